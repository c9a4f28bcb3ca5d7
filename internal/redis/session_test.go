package redisclient

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSessions(t *testing.T, ttl time.Duration) *SessionStore {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	rdb, err := NewRedisClient(context.Background(), addr, os.Getenv("REDIS_USERNAME"), os.Getenv("REDIS_PASSWORD"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return NewSessionStore(rdb, ttl)
}

func TestSessionLifecycle(t *testing.T) {
	store := setupSessions(t, time.Minute)
	ctx := context.Background()

	id, err := store.Create(ctx, "64b7f0c2a1b2c3d4e5f60718")
	require.NoError(t, err)
	assert.Len(t, id, 64)

	uid, err := store.Lookup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "64b7f0c2a1b2c3d4e5f60718", uid)

	require.NoError(t, store.Destroy(ctx, id))
	_, err = store.Lookup(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionExpires(t *testing.T) {
	store := setupSessions(t, 50*time.Millisecond)
	ctx := context.Background()

	id, err := store.Create(ctx, "someone")
	require.NoError(t, err)

	time.Sleep(150 * time.Millisecond)
	_, err = store.Lookup(ctx, id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
