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

// Package verify audits a previously executed manifest: every MOVE
// record must have its source gone and its destination present.
package verify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hashicorp/go-multierror"

	"github.com/cardinalhq/relocator/internal/manifest"
	"github.com/cardinalhq/relocator/internal/objstore"
)

// Result is the audit outcome for one MOVE record.
type Result struct {
	Record manifest.ActionRecord
	Err    error
}

// OK reports whether the record passed both checks.
func (r Result) OK() bool { return r.Err == nil }

// Summary aggregates a verification run.
type Summary struct {
	OK      int
	Failed  int
	Results []Result
}

// Passed reports whether the whole manifest verified cleanly.
func (s Summary) Passed() bool { return s.Failed == 0 }

// Verifier checks executed manifests against the store. Verification
// is read-only and deliberately sequential: the point is a trustworthy
// audit, not throughput.
type Verifier struct {
	Store objstore.ObjectStore
}

func NewVerifier(store objstore.ObjectStore) *Verifier {
	return &Verifier{Store: store}
}

// Verify audits every MOVE record in the manifest. ERROR records are
// not part of the contract the executor made, so they are not checked.
func (v *Verifier) Verify(ctx context.Context, m *manifest.Manifest) (Summary, error) {
	if m == nil {
		return Summary{}, fmt.Errorf("no manifest to verify")
	}

	moves := m.MoveRecords()
	if len(moves) == 0 {
		slog.Info("nothing to verify")
		return Summary{}, nil
	}

	summary := Summary{Results: make([]Result, 0, len(moves))}
	for _, rec := range moves {
		res := Result{Record: rec, Err: v.checkOne(ctx, rec)}
		if res.OK() {
			summary.OK++
		} else {
			summary.Failed++
			slog.Warn("verification failed",
				slog.String("sourcePath", rec.SourcePath),
				slog.String("destinationPath", rec.DestinationPath),
				slog.Any("error", res.Err))
		}
		summary.Results = append(summary.Results, res)
	}
	return summary, nil
}

func (v *Verifier) checkOne(ctx context.Context, rec manifest.ActionRecord) error {
	var result *multierror.Error

	_, err := v.Store.Stat(ctx, rec.SourceContainer, rec.SourcePath)
	switch {
	case err == nil:
		result = multierror.Append(result, fmt.Errorf("source still exists: %s", rec.SourcePath))
	case !objstore.IsNotFound(err):
		result = multierror.Append(result, fmt.Errorf("stat source %s: %w", rec.SourcePath, err))
	}

	_, err = v.Store.Stat(ctx, rec.SourceContainer, rec.DestinationPath)
	switch {
	case objstore.IsNotFound(err):
		result = multierror.Append(result, fmt.Errorf("destination missing: %s", rec.DestinationPath))
	case err != nil:
		result = multierror.Append(result, fmt.Errorf("stat destination %s: %w", rec.DestinationPath, err))
	}

	return result.ErrorOrNil()
}
