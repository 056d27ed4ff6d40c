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

package classify

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/relocator/internal/manifest"
	"github.com/cardinalhq/relocator/internal/objstore"
)

func seedObject(t *testing.T, base, bucket, key string, content []byte) {
	t.Helper()
	path := filepath.Join(base, bucket, filepath.FromSlash(key))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func TestClassifyEmptyPrefix(t *testing.T) {
	store := objstore.NewFileStore(t.TempDir())
	c := NewClassifier(store)

	m, err := c.Classify(context.Background(), "bucket", "incoming/")
	require.NoError(t, err)
	assert.Nil(t, m, "empty prefix produces no manifest")
}

func TestClassifyProducesCompleteInventory(t *testing.T) {
	base := t.TempDir()
	seedObject(t, base, "bucket", "in/db.bak", []byte("binary"))
	seedObject(t, base, "bucket", "in/app.log", []byte("2024-01-01 FATAL crash"))
	seedObject(t, base, "bucket", "in/clean.log", []byte("all good"))
	seedObject(t, base, "bucket", "in/rows.csv", []byte("a,b,c"))
	seedObject(t, base, "bucket", "in/paper.pdf", []byte("%PDF-1.4"))
	seedObject(t, base, "bucket", "in/broken.py", []byte("def broken(:\n pass"))
	seedObject(t, base, "bucket", "in/good.py", []byte("def ok():\n    return 1\n"))
	seedObject(t, base, "bucket", "in/nb.ipynb", []byte("{}"))
	seedObject(t, base, "bucket", "in/secret.txt", []byte("Confidential material"))
	seedObject(t, base, "bucket", "in/plain.txt", []byte("hello"))

	store := objstore.NewFileStore(base)
	c := NewClassifier(store)
	c.Workers = 4

	m, err := c.Classify(context.Background(), "bucket", "in/")
	require.NoError(t, err)
	require.NotNil(t, m)
	require.Len(t, m.Records, 10)
	require.NotEmpty(t, m.ID)

	byPath := make(map[string]manifest.ActionRecord)
	for _, rec := range m.Records {
		byPath[rec.SourcePath] = rec
	}

	want := map[string]manifest.DestinationKey{
		"in/db.bak":     manifest.DestArchive,
		"in/app.log":    manifest.DestDiscard,
		"in/clean.log":  manifest.DestDefault,
		"in/rows.csv":   manifest.DestDefault,
		"in/paper.pdf":  manifest.DestGet,
		"in/broken.py":  manifest.DestLabsDump,
		"in/good.py":    manifest.DestDefault,
		"in/nb.ipynb":   manifest.DestLabsDump,
		"in/secret.txt": manifest.DestDiscard,
		"in/plain.txt":  manifest.DestDefault,
	}
	for path, dest := range want {
		rec, ok := byPath[path]
		require.True(t, ok, "missing record for %s", path)
		assert.Equal(t, dest, rec.DestinationKey, path)
		assert.Equal(t, manifest.ActionMove, rec.Action, path)
		assert.Equal(t, dest.Path(rec.FileName), rec.DestinationPath, path)
		assert.NotEmpty(t, rec.ContentHash, path)
	}
}

// errStore fails content reads so sampling-based rules cannot decide.
type errStore struct {
	objstore.ObjectStore
}

func (s *errStore) ReadRange(ctx context.Context, bucket, key string, n int64) ([]byte, error) {
	return nil, assert.AnError
}

func TestClassifyErrorBecomesErrorRecord(t *testing.T) {
	base := t.TempDir()
	seedObject(t, base, "bucket", "in/app.log", []byte("ERROR"))
	seedObject(t, base, "bucket", "in/db.bak", []byte("x"))

	c := NewClassifier(&errStore{objstore.NewFileStore(base)})
	m, err := c.Classify(context.Background(), "bucket", "in/")
	require.NoError(t, err, "per-object failures never abort the scan")
	require.NotNil(t, m)
	require.Len(t, m.Records, 2)

	byPath := make(map[string]manifest.ActionRecord)
	for _, rec := range m.Records {
		byPath[rec.SourcePath] = rec
	}

	logRec := byPath["in/app.log"]
	assert.Equal(t, manifest.ActionError, logRec.Action)
	assert.Equal(t, manifest.DestError, logRec.DestinationKey)
	assert.Contains(t, logRec.DestinationPath, "sample in/app.log")

	// The .bak rule never samples, so it classifies fine even on a
	// store that cannot read content.
	bakRec := byPath["in/db.bak"]
	assert.Equal(t, manifest.ActionMove, bakRec.Action)
	assert.Equal(t, manifest.DestArchive, bakRec.DestinationKey)
}
