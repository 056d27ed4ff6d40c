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

package manifest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/relocator/internal/objstore"
)

func sampleRecords() []ActionRecord {
	return []ActionRecord{
		NewMoveRecord("data-bucket", "incoming/backup.bak", 1024, "abc123", DestArchive),
		NewMoveRecord("data-bucket", "incoming/report.pdf", 2048, "def456", DestGet),
		NewErrorRecord("data-bucket", "incoming/corrupt.dat", 0, "", errors.New("read sample: connection reset")),
	}
}

func TestDestinationPaths(t *testing.T) {
	cases := []struct {
		key  DestinationKey
		want string
	}{
		{DestArchive, "archive/f.bak"},
		{DestDiscard, "discard/f.bak"},
		{DestLabsDump, "labs_dump/f.bak"},
		{DestGet, "get/f.bak"},
		{DestDefault, "shared/f.bak"},
		{DestError, "error/f.bak"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.key.Path("f.bak"))
	}
}

func TestNewMoveRecord(t *testing.T) {
	rec := NewMoveRecord("bkt", "deep/nested/notes.csv", 77, "h1", DestDefault)
	assert.Equal(t, "notes.csv", rec.FileName)
	assert.Equal(t, "shared/notes.csv", rec.DestinationPath)
	assert.Equal(t, ActionMove, rec.Action)
}

func TestNewErrorRecordKeepsDiagnostics(t *testing.T) {
	rec := NewErrorRecord("bkt", "x/y.dat", 5, "", errors.New("boom"))
	assert.Equal(t, ActionError, rec.Action)
	assert.Equal(t, DestError, rec.DestinationKey)
	assert.Equal(t, "boom", rec.DestinationPath)
}

func TestManifestRoundTrip(t *testing.T) {
	m := New(sampleRecords())
	require.NotEmpty(t, m.ID)

	path := filepath.Join(t.TempDir(), "manifest.parquet")
	require.NoError(t, m.WriteFile(path))

	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, m.Records, got.Records)
}

func TestMoveRecordsFiltersErrors(t *testing.T) {
	m := New(sampleRecords())
	moves := m.MoveRecords()
	require.Len(t, moves, 2)
	for _, rec := range moves {
		assert.Equal(t, ActionMove, rec.Action)
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.parquet"))
	require.Error(t, err)
}

func TestParseLocation(t *testing.T) {
	loc, err := ParseLocation("/tmp/m.parquet")
	require.NoError(t, err)
	assert.False(t, loc.Remote())
	assert.Equal(t, "/tmp/m.parquet", loc.Path)

	loc, err = ParseLocation("s3://bkt/manifests/run1.parquet")
	require.NoError(t, err)
	assert.True(t, loc.Remote())
	assert.Equal(t, "bkt", loc.Bucket)
	assert.Equal(t, "manifests/run1.parquet", loc.Key)

	_, err = ParseLocation("s3://bkt")
	require.Error(t, err)

	_, err = ParseLocation("gopher://bkt/x")
	require.Error(t, err)
}

func TestLoadSaveRemote(t *testing.T) {
	store := objstore.NewFileStore(t.TempDir())
	m := New(sampleRecords())

	require.NoError(t, Save(context.Background(), store, "s3://bkt/manifests/run.parquet", m))

	got, err := Load(context.Background(), store, "s3://bkt/manifests/run.parquet")
	require.NoError(t, err)
	assert.Equal(t, m.Records, got.Records)

	_, err = Load(context.Background(), store, "s3://bkt/manifests/absent.parquet")
	require.ErrorIs(t, err, objstore.ErrNotFound)

	_, err = Load(context.Background(), nil, "s3://bkt/manifests/run.parquet")
	require.Error(t, err)
}
