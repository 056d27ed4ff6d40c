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

package objstore

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var (
	storeOps      metric.Int64Counter
	storeErrors   metric.Int64Counter
	copySteps     metric.Int64Counter
	bytesCopied   metric.Int64Counter
	objectsMissed metric.Int64Counter
)

func init() {
	meter := otel.Meter("github.com/cardinalhq/relocator/internal/objstore")

	var err error
	storeOps, err = meter.Int64Counter(
		"relocator.store.operations",
		metric.WithDescription("Number of blob store operations"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create store.operations counter: %w", err))
	}

	storeErrors, err = meter.Int64Counter(
		"relocator.store.errors",
		metric.WithDescription("Number of failed blob store operations"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create store.errors counter: %w", err))
	}

	copySteps, err = meter.Int64Counter(
		"relocator.store.copy.steps",
		metric.WithDescription("Number of copy continuation steps issued"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create store.copy.steps counter: %w", err))
	}

	bytesCopied, err = meter.Int64Counter(
		"relocator.store.copy.bytes",
		metric.WithDescription("Bytes moved by server-side copies"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create store.copy.bytes counter: %w", err))
	}

	objectsMissed, err = meter.Int64Counter(
		"relocator.store.notfound",
		metric.WithDescription("Number of operations that hit a missing object"),
	)
	if err != nil {
		panic(fmt.Errorf("failed to create store.notfound counter: %w", err))
	}
}
