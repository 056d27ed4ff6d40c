// Copyright (C) 2025 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package classify scans a bucket prefix and plans one action per
// object. The plan is persisted as a manifest before anything moves.
package classify

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/cardinalhq/relocator/internal/manifest"
	"github.com/cardinalhq/relocator/internal/objstore"
)

const (
	DefaultWorkers     = 8
	DefaultSampleBytes = 4096
)

var classifiedCounter metric.Int64Counter

func init() {
	meter := otel.Meter("github.com/cardinalhq/relocator/internal/classify")

	var err error
	classifiedCounter, err = meter.Int64Counter(
		"relocator.classify.objects",
		metric.WithDescription("Number of objects classified, by destination key"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create classify.objects counter: %w", err))
	}
}

// Classifier fans object classification out over a bounded worker pool.
type Classifier struct {
	Store       objstore.ObjectStore
	Rules       []Rule
	Workers     int
	SampleBytes int64
}

// NewClassifier returns a classifier with the default rule chain.
func NewClassifier(store objstore.ObjectStore) *Classifier {
	return &Classifier{
		Store:       store,
		Rules:       DefaultRules(),
		Workers:     DefaultWorkers,
		SampleBytes: DefaultSampleBytes,
	}
}

// Classify lists every object under prefix and produces one record per
// object. Records land in completion order, not listing order: the
// manifest is a set of independent facts, not a meaningful sequence.
// When the prefix holds no objects, Classify returns (nil, nil) and the
// caller is expected to tell the operator there is nothing to plan.
func (c *Classifier) Classify(ctx context.Context, bucket, prefix string) (*manifest.Manifest, error) {
	objects, err := c.Store.List(ctx, bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("list objects under %s/%s: %w", bucket, prefix, err)
	}
	if len(objects) == 0 {
		slog.Info("No objects found under prefix", slog.String("bucket", bucket), slog.String("prefix", prefix))
		return nil, nil
	}

	workers := c.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	results := make(chan manifest.ActionRecord)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	go func() {
		for _, obj := range objects {
			g.Go(func() error {
				results <- c.classifyObject(gctx, bucket, obj)
				return nil
			})
		}
		_ = g.Wait()
		close(results)
	}()

	records := make([]manifest.ActionRecord, 0, len(objects))
	for rec := range results {
		records = append(records, rec)
	}

	slog.Info("Classification complete",
		slog.String("bucket", bucket),
		slog.String("prefix", prefix),
		slog.Int("records", len(records)))
	return manifest.New(records), nil
}

// classifyObject never fails: a classification error becomes an ERROR
// record so the manifest stays a complete inventory of the prefix.
func (c *Classifier) classifyObject(ctx context.Context, bucket string, obj objstore.ObjectInfo) manifest.ActionRecord {
	sampleBytes := c.SampleBytes
	if sampleBytes <= 0 {
		sampleBytes = DefaultSampleBytes
	}

	sampler := func(ctx context.Context) (Sample, error) {
		data, err := c.Store.ReadRange(ctx, bucket, obj.Key, sampleBytes)
		if err != nil {
			return Sample{}, fmt.Errorf("sample %s: %w", obj.Key, err)
		}
		return Sample{Data: data, Truncated: obj.Size > sampleBytes}, nil
	}

	dest, err := Decide(ctx, c.Rules, obj.Key, sampler)
	if err != nil {
		slog.Warn("Classification failed, recording ERROR action",
			slog.String("key", obj.Key), slog.Any("error", err))
		rec := manifest.NewErrorRecord(bucket, obj.Key, obj.Size, obj.ContentHash(), err)
		classifiedCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("destination", string(rec.DestinationKey))))
		return rec
	}

	rec := manifest.NewMoveRecord(bucket, obj.Key, obj.Size, obj.ContentHash(), dest)
	classifiedCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("destination", string(dest))))
	return rec
}
