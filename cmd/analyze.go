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

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardinalhq/relocator/config"
	"github.com/cardinalhq/relocator/internal/classify"
)

func init() {
	var bucket string
	var prefix string
	var manifestOut string
	var workers int

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Classify objects under a prefix and write the action manifest",
		RunE: func(c *cobra.Command, _ []string) error {
			servicename := "relocator-analyze"
			doneCtx, doneFx, err := setupTelemetry(servicename)
			if err != nil {
				return fmt.Errorf("failed to setup telemetry: %w", err)
			}
			defer func() {
				if err := doneFx(); err != nil {
					slog.Error("Error shutting down telemetry", slog.Any("error", err))
				}
			}()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			store, err := storeForBucket(doneCtx, bucket)
			if err != nil {
				return err
			}

			ctx, span := tracer.Start(doneCtx, "analyze",
				trace.WithAttributes(
					attribute.String("bucket", bucket),
					attribute.String("prefix", prefix)))
			defer span.End()

			classifier := classify.NewClassifier(store)
			classifier.Workers = cfg.Classify.Workers
			if workers > 0 {
				classifier.Workers = workers
			}
			classifier.SampleBytes = cfg.Classify.SampleBytes

			m, err := classifier.Classify(ctx, bucket, prefix)
			if err != nil {
				return fmt.Errorf("classify %s/%s: %w", bucket, prefix, err)
			}
			if m == nil {
				fmt.Println("nothing to classify")
				return nil
			}

			out := manifestOut
			if out == "" {
				out = m.ID + ".parquet"
			}
			if err := saveManifest(ctx, out, m); err != nil {
				return fmt.Errorf("write manifest: %w", err)
			}

			moves := len(m.MoveRecords())
			slog.Info("manifest written",
				slog.String("manifestID", m.ID),
				slog.String("location", out),
				slog.Int("records", len(m.Records)),
				slog.Int("moves", moves),
				slog.Int("errors", len(m.Records)-moves))
			fmt.Printf("wrote %s (%d records)\n", out, len(m.Records))
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "source bucket or container to scan")
	cmd.Flags().StringVar(&prefix, "prefix", "", "key prefix to scan under")
	cmd.Flags().StringVar(&manifestOut, "manifest-out", "", "manifest destination (local path or s3://bucket/key), default <id>.parquet")
	cmd.Flags().IntVar(&workers, "workers", 0, "classification worker count, overrides config")
	_ = cmd.MarkFlagRequired("bucket")

	rootCmd.AddCommand(cmd)
}
