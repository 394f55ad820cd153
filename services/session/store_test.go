package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, time.Hour), mr
}

func TestTouchUpdatesActivity(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	start := time.Unix(1_700_000_000, 0).UTC()
	require.NoError(t, store.Save(ctx, &Meta{SessionID: "s1", WorkflowID: "s1", RunID: "r1", CreatedAt: start, LastActivity: start}))

	later := start.Add(time.Hour)
	require.NoError(t, store.Touch(ctx, "s1", later))

	meta, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, later.Unix(), meta.LastActivity.Unix())
	assert.Equal(t, "r1", meta.RunID)

	idle, err := store.IdleSince(ctx, start)
	require.NoError(t, err)
	assert.Empty(t, idle)
}

func TestTouchUnknownSession(t *testing.T) {
	store, mr := newTestStore(t)

	err := store.Touch(context.Background(), "gone", time.Now())
	assert.True(t, errors.Is(err, ErrUnknownSession))
	assert.False(t, mr.Exists(sessionPrefix+"gone"))
}

func TestTouchDoesNotResurrectEndedSession(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.Save(ctx, &Meta{SessionID: "s1", WorkflowID: "s1", LastActivity: now}))

	// the session ends between reading and writing the metadata
	store.beforeTouchCommit = func() {
		require.NoError(t, store.Delete(ctx, "s1"))
	}

	err := store.Touch(ctx, "s1", now.Add(time.Minute))
	assert.True(t, errors.Is(err, ErrUnknownSession))
	assert.False(t, mr.Exists(sessionPrefix+"s1"))

	active, err := store.Active(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}
