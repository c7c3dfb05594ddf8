package runlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndListNewestFirst(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 23, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, Entry{ID: "p1", Model: "o/n", Version: "v1", Status: "starting", CreatedAt: base}))
	require.NoError(t, s.Record(ctx, Entry{ID: "p2", Model: "o/n", Version: "v1", Status: "starting", CreatedAt: base.Add(time.Minute)}))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "p2", got[0].ID)
	assert.Equal(t, "p1", got[1].ID)
	assert.True(t, got[1].CreatedAt.Equal(base))
}

func TestRecordRefreshesStatusOnConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, Entry{ID: "p1", Model: "o/n", Version: "v1", Status: "starting"}))
	require.NoError(t, s.Record(ctx, Entry{ID: "p1", Model: "o/n", Version: "v1", Status: "succeeded"}))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "succeeded", got[0].Status)
}

func TestUpdateStatus(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, Entry{ID: "p1", Model: "o/n", Version: "v1", Status: "processing"}))
	require.NoError(t, s.UpdateStatus(ctx, "p1", "canceled"))

	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "canceled", got[0].Status)
}

func TestDefaultedCreatedAtIsRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, Entry{ID: "p1", Model: "o/n", Version: "v1", Status: "starting"}))
	got, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.WithinDuration(t, time.Now().UTC(), got[0].CreatedAt, time.Minute)
}
