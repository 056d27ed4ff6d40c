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

package report

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/relocator/internal/manifest"
)

func TestBuildFindsDuplicates(t *testing.T) {
	m := manifest.New(nil)
	m.Records = append(m.Records,
		manifest.NewMoveRecord("bucket", "in/a.csv", 3, "dup123", manifest.DestDefault),
		manifest.NewMoveRecord("bucket", "in/sub/b.csv", 3, "dup123", manifest.DestDefault),
		manifest.NewMoveRecord("bucket", "in/c.csv", 5, "unique", manifest.DestDefault))

	r := Build(m)
	require.Len(t, r.Duplicates, 1)
	assert.Equal(t, "dup123", r.Duplicates[0].ContentHash)
	assert.Equal(t, []string{"in/a.csv", "in/sub/b.csv"}, r.Duplicates[0].SourcePaths)
}

func TestBuildFindsCollisions(t *testing.T) {
	m := manifest.New(nil)
	// Same file name in two source folders, both bound for shared/.
	m.Records = append(m.Records,
		manifest.NewMoveRecord("bucket", "in/foo.txt", 1, "h1", manifest.DestDefault),
		manifest.NewMoveRecord("bucket", "in/other/foo.txt", 2, "h2", manifest.DestDefault))

	r := Build(m)
	require.Len(t, r.Collisions, 1)
	assert.Equal(t, "shared/foo.txt", r.Collisions[0].DestinationPath)
	require.Len(t, r.Collisions[0].Sources, 2)
	assert.Equal(t, "in/foo.txt", r.Collisions[0].Sources[0].SourcePath)
	assert.Equal(t, int64(1), r.Collisions[0].Sources[0].SizeBytes)
	assert.Equal(t, "h1", r.Collisions[0].Sources[0].ContentHash)
	assert.Equal(t, "in/other/foo.txt", r.Collisions[0].Sources[1].SourcePath)
	assert.Equal(t, "h2", r.Collisions[0].Sources[1].ContentHash)

	want := "shared/foo.txt:\n  in/foo.txt (1 bytes, h1)\n  in/other/foo.txt (2 bytes, h2)\n"
	assert.Equal(t, want, r.RenderCollisions())

	// Same name headed for different destination buckets is no collision.
	m2 := manifest.New(nil)
	m2.Records = append(m2.Records,
		manifest.NewMoveRecord("bucket", "in/foo.txt", 1, "h1", manifest.DestDefault),
		manifest.NewMoveRecord("bucket", "in/foo.txt.bak", 2, "h2", manifest.DestArchive))
	assert.Empty(t, Build(m2).Collisions)
}

func TestBuildIncludesErrorRecords(t *testing.T) {
	// An ERROR record keeps the hash captured before classification
	// failed, so it still counts toward a duplicate set.
	m := manifest.New(nil)
	m.Records = append(m.Records,
		manifest.NewMoveRecord("bucket", "in/a.csv", 3, "dup123", manifest.DestDefault),
		manifest.NewErrorRecord("bucket", "in/b.py", 3, "dup123", errors.New("sample failed")))

	r := Build(m)
	require.Len(t, r.Duplicates, 1)
	assert.Equal(t, "dup123", r.Duplicates[0].ContentHash)
	assert.Equal(t, []string{"in/a.csv", "in/b.py"}, r.Duplicates[0].SourcePaths)
	// The ERROR record's destination_path holds diagnostic text and
	// appears once, so no collision group forms.
	assert.Empty(t, r.Collisions)
	assert.False(t, r.Empty())
}

func TestRenderSectionsAreStable(t *testing.T) {
	m := manifest.New(nil)
	m.Records = append(m.Records,
		manifest.NewMoveRecord("bucket", "in/z.csv", 1, "bbb", manifest.DestDefault),
		manifest.NewMoveRecord("bucket", "in/y.csv", 1, "bbb", manifest.DestDefault),
		manifest.NewMoveRecord("bucket", "in/x.csv", 1, "aaa", manifest.DestDefault),
		manifest.NewMoveRecord("bucket", "in/w.csv", 1, "aaa", manifest.DestDefault))

	r := Build(m)
	want := "aaa:\n  in/w.csv\n  in/x.csv\nbbb:\n  in/y.csv\n  in/z.csv\n"
	assert.Equal(t, want, r.RenderDuplicates())
}

func TestWriteFilesOnlyOnFindings(t *testing.T) {
	dir := t.TempDir()

	clean := manifest.New(nil)
	clean.Records = append(clean.Records,
		manifest.NewMoveRecord("bucket", "in/a.csv", 1, "h1", manifest.DestDefault))
	require.NoError(t, Build(clean).WriteFiles(dir))
	_, err := os.Stat(filepath.Join(dir, "duplicates.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "collisions.txt"))
	assert.True(t, os.IsNotExist(err))

	dirty := manifest.New(nil)
	dirty.Records = append(dirty.Records,
		manifest.NewMoveRecord("bucket", "in/foo.txt", 1, "dup", manifest.DestDefault),
		manifest.NewMoveRecord("bucket", "in/other/foo.txt", 1, "dup", manifest.DestDefault))
	require.NoError(t, Build(dirty).WriteFiles(dir))

	dups, err := os.ReadFile(filepath.Join(dir, "duplicates.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(dups), "dup:")
	cols, err := os.ReadFile(filepath.Join(dir, "collisions.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(cols), "shared/foo.txt:")
}
