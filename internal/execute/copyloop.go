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

package execute

import (
	"context"
	"fmt"

	"github.com/cardinalhq/relocator/internal/objstore"
)

// maxCopySteps bounds the continuation-token loop. A multipart copy of
// the largest objects we handle finishes in far fewer steps; hitting
// the ceiling means the store is handing back tokens without making
// progress.
const maxCopySteps = 10000

// runCopy drives a server-side copy to completion by feeding each
// returned continuation token back into the store until it reports an
// empty token.
func runCopy(ctx context.Context, store objstore.ObjectStore, bucket, srcKey, dstKey string) error {
	token := ""
	for step := 0; step < maxCopySteps; step++ {
		next, err := store.CopyStep(ctx, bucket, srcKey, dstKey, token)
		if err != nil {
			return fmt.Errorf("copy step %d: %w", step, err)
		}
		if next == "" {
			return nil
		}
		token = next
	}
	return fmt.Errorf("copy %s: no completion after %d steps", srcKey, maxCopySteps)
}
