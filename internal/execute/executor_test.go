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
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"sync"
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

func TestExecuteMovesRecords(t *testing.T) {
	base := t.TempDir()
	seedObject(t, base, "bucket", "in/report.csv", []byte("a,b,c"))
	store := objstore.NewFileStore(base)

	src, err := store.Stat(context.Background(), "bucket", "in/report.csv")
	require.NoError(t, err)

	m := manifest.New(nil)
	m.Records = append(m.Records,
		manifest.NewMoveRecord("bucket", "in/report.csv", src.Size, src.ContentHash(), manifest.DestDefault))

	outcomes, err := NewExecutor(store).Execute(context.Background(), m)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusSuccess, outcomes[0].Status)
	assert.Equal(t, "SUCCESS: moved in/report.csv to shared/report.csv", outcomes[0].String())

	// Source gone, destination present.
	_, err = store.Stat(context.Background(), "bucket", "in/report.csv")
	assert.True(t, objstore.IsNotFound(err))
	dst, err := store.Stat(context.Background(), "bucket", "shared/report.csv")
	require.NoError(t, err)
	assert.Equal(t, src.ContentHash(), dst.ContentHash())
}

func TestExecuteMissingSource(t *testing.T) {
	store := objstore.NewFileStore(t.TempDir())

	m := manifest.New(nil)
	m.Records = append(m.Records,
		manifest.NewMoveRecord("bucket", "in/gone.csv", 10, "abc", manifest.DestDefault))

	outcomes, err := NewExecutor(store).Execute(context.Background(), m)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusError, outcomes[0].Status)
	assert.Equal(t, "ERROR: source not found", outcomes[0].String())

	// A missing source must never create a destination object.
	_, err = store.Stat(context.Background(), "bucket", "shared/gone.csv")
	assert.True(t, objstore.IsNotFound(err))
}

// countingStore records how many calls each record triggers.
type countingStore struct {
	objstore.ObjectStore
	mu    sync.Mutex
	calls int
}

func (s *countingStore) bump() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *countingStore) Stat(ctx context.Context, bucket, key string) (*objstore.ObjectInfo, error) {
	s.bump()
	return s.ObjectStore.Stat(ctx, bucket, key)
}

func (s *countingStore) CopyStep(ctx context.Context, bucket, srcKey, dstKey, token string) (string, error) {
	s.bump()
	return s.ObjectStore.CopyStep(ctx, bucket, srcKey, dstKey, token)
}

func (s *countingStore) Delete(ctx context.Context, bucket, key string) error {
	s.bump()
	return s.ObjectStore.Delete(ctx, bucket, key)
}

func TestExecuteSkipsErrorRecords(t *testing.T) {
	store := &countingStore{ObjectStore: objstore.NewFileStore(t.TempDir())}

	m := manifest.New(nil)
	m.Records = append(m.Records,
		manifest.NewErrorRecord("bucket", "in/bad.py", 12, "h", errors.New("sample failed")))

	outcomes, err := NewExecutor(store).Execute(context.Background(), m)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusSkipped, outcomes[0].Status)
	assert.Equal(t, "SKIPPED", outcomes[0].String())
	assert.Zero(t, store.calls, "skipped records must not touch the store")
}

func TestExecuteOutcomesFollowManifestOrder(t *testing.T) {
	base := t.TempDir()
	m := manifest.New(nil)
	store := objstore.NewFileStore(base)
	for i := 0; i < 20; i++ {
		key := "in/f" + strconv.Itoa(i) + ".csv"
		seedObject(t, base, "bucket", key, []byte(strconv.Itoa(i)))
		src, err := store.Stat(context.Background(), "bucket", key)
		require.NoError(t, err)
		m.Records = append(m.Records,
			manifest.NewMoveRecord("bucket", key, src.Size, src.ContentHash(), manifest.DestDefault))
	}

	exec := NewExecutor(store)
	exec.Workers = 4
	outcomes, err := exec.Execute(context.Background(), m)
	require.NoError(t, err)
	require.Len(t, outcomes, len(m.Records))
	for i, o := range outcomes {
		assert.Equal(t, m.Records[i].SourcePath, o.Record.SourcePath)
		assert.Equal(t, StatusSuccess, o.Status)
	}
	assert.Equal(t, map[Status]int{StatusSuccess: 20}, Summarize(outcomes))
}

// tokenStore completes copies only after several continuation steps.
type tokenStore struct {
	objstore.ObjectStore
	mu    sync.Mutex
	steps map[string]int
}

func (s *tokenStore) CopyStep(ctx context.Context, bucket, srcKey, dstKey, token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.steps == nil {
		s.steps = make(map[string]int)
	}
	s.steps[srcKey]++
	if s.steps[srcKey] < 3 {
		return "part-" + strconv.Itoa(s.steps[srcKey]), nil
	}
	// Final step performs the actual copy.
	if _, err := s.ObjectStore.CopyStep(ctx, bucket, srcKey, dstKey, ""); err != nil {
		return "", err
	}
	return "", nil
}

func TestExecuteDrivesMultiStepCopy(t *testing.T) {
	base := t.TempDir()
	seedObject(t, base, "bucket", "in/big.bak", []byte("lots of bytes"))
	store := &tokenStore{ObjectStore: objstore.NewFileStore(base)}

	inner := objstore.NewFileStore(base)
	src, err := inner.Stat(context.Background(), "bucket", "in/big.bak")
	require.NoError(t, err)

	m := manifest.New(nil)
	m.Records = append(m.Records,
		manifest.NewMoveRecord("bucket", "in/big.bak", src.Size, src.ContentHash(), manifest.DestArchive))

	outcomes, err := NewExecutor(store).Execute(context.Background(), m)
	require.NoError(t, err)
	require.Len(t, outcomes, 1)
	assert.Equal(t, StatusSuccess, outcomes[0].Status)
	assert.Equal(t, 3, store.steps["in/big.bak"], "copy should take exactly three steps")

	_, err = inner.Stat(context.Background(), "bucket", "archive/big.bak")
	require.NoError(t, err)
}

// stallingStore hands back tokens forever.
type stallingStore struct {
	objstore.ObjectStore
}

func (s *stallingStore) CopyStep(ctx context.Context, bucket, srcKey, dstKey, token string) (string, error) {
	return "again", nil
}

func TestRunCopyBoundsSteps(t *testing.T) {
	store := &stallingStore{}
	err := runCopy(context.Background(), store, "bucket", "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no completion")
}
