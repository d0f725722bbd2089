/*
Copyright © 2024 LocalRivet <github.com/localrivet>
*/
package rollback

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDir(t *testing.T) string {
	tempDir, err := os.MkdirTemp("", "rollback-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tempDir) })
	return tempDir
}

func newTestRepo(t *testing.T) *Repository {
	repo, err := NewRepository(setupTestDir(t), nil)
	require.NoError(t, err)
	return repo
}

func testPoint(id string, ts time.Time) Point {
	return Point{
		ID:          id,
		Timestamp:   ts,
		Description: "test point " + id,
		Services:    []string{"web"},
		ImageRefs:   map[string]string{"web": "nginx:1.25"},
	}
}

func TestRepositoryAppendAndGet(t *testing.T) {
	repo := newTestRepo(t)

	point := testPoint("rb-000000000001", time.Now().UTC())
	require.NoError(t, repo.Append(point))

	got, err := repo.Get(point.ID)
	require.NoError(t, err)
	assert.Equal(t, point.ID, got.ID)
	assert.Equal(t, point.Description, got.Description)
	assert.Equal(t, point.ImageRefs, got.ImageRefs)
}

func TestRepositoryAppendRejectsDuplicateID(t *testing.T) {
	repo := newTestRepo(t)

	point := testPoint("rb-aaaaaaaaaaaa", time.Now().UTC())
	require.NoError(t, repo.Append(point))

	err := repo.Append(point)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRepository)
}

func TestRepositoryGetNotFound(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.Get("rb-missing00000")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsNotFound(err))
}

func TestRepositoryListNewestFirst(t *testing.T) {
	repo := newTestRepo(t)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Append(testPoint("rb-a00000000000", base)))
	require.NoError(t, repo.Append(testPoint("rb-b00000000000", base.Add(time.Minute))))
	require.NoError(t, repo.Append(testPoint("rb-c00000000000", base.Add(2*time.Minute))))

	points, err := repo.List()
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, "rb-c00000000000", points[0].ID)
	assert.Equal(t, "rb-b00000000000", points[1].ID)
	assert.Equal(t, "rb-a00000000000", points[2].ID)
}

func TestRepositoryListBreaksTimestampTiesByInsertionOrder(t *testing.T) {
	repo := newTestRepo(t)

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Append(testPoint("rb-first0000000", ts)))
	require.NoError(t, repo.Append(testPoint("rb-second000000", ts)))

	points, err := repo.List()
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "rb-second000000", points[0].ID)
	assert.Equal(t, "rb-first0000000", points[1].ID)
}

func TestRepositoryListEmpty(t *testing.T) {
	repo := newTestRepo(t)

	points, err := repo.List()
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestRepositoryDeleteIsIdempotent(t *testing.T) {
	repo := newTestRepo(t)

	point := testPoint("rb-deleteme0000", time.Now().UTC())
	require.NoError(t, repo.Append(point))

	// The backing directory goes away with the entry.
	dir := repo.PointDir(point.ID)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "configs"), 0755))

	removed, err := repo.Delete(point.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	_, statErr := os.Stat(dir)
	assert.True(t, os.IsNotExist(statErr))

	removed, err = repo.Delete(point.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = repo.Delete("rb-neverexisted")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestRepositoryCorruptIndex(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, os.WriteFile(repo.indexPath(), []byte("{not json"), 0644))

	_, err := repo.List()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRepository)

	_, err = repo.Get("rb-anything0000")
	assert.ErrorIs(t, err, ErrRepository)

	err = repo.Append(testPoint("rb-anything0000", time.Now().UTC()))
	assert.ErrorIs(t, err, ErrRepository)
}

func TestRepositoryEnforceRetention(t *testing.T) {
	repo := newTestRepo(t)

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Append(testPoint("rb-oldest000000", base)))
	require.NoError(t, repo.Append(testPoint("rb-middle000000", base.Add(time.Minute))))
	require.NoError(t, repo.Append(testPoint("rb-newest000000", base.Add(2*time.Minute))))

	oldestDir := repo.PointDir("rb-oldest000000")
	require.NoError(t, os.MkdirAll(oldestDir, 0755))

	require.NoError(t, repo.EnforceRetention(2))

	points, err := repo.List()
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, "rb-newest000000", points[0].ID)
	assert.Equal(t, "rb-middle000000", points[1].ID)

	_, err = repo.Get("rb-oldest000000")
	assert.ErrorIs(t, err, ErrNotFound)
	_, statErr := os.Stat(oldestDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRepositoryEnforceRetentionNoOpUnderLimit(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Append(testPoint("rb-only00000000", time.Now().UTC())))
	require.NoError(t, repo.EnforceRetention(5))

	points, err := repo.List()
	require.NoError(t, err)
	assert.Len(t, points, 1)

	// Zero disables retention entirely.
	require.NoError(t, repo.EnforceRetention(0))
	points, err = repo.List()
	require.NoError(t, err)
	assert.Len(t, points, 1)
}

func TestRepositoryExists(t *testing.T) {
	repo := newTestRepo(t)

	exists, err := repo.Exists("rb-nothere00000")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, repo.Append(testPoint("rb-here00000000", time.Now().UTC())))
	exists, err = repo.Exists("rb-here00000000")
	require.NoError(t, err)
	assert.True(t, exists)
}
