package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewState_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		s := NewState()
		require.NotEmpty(t, s)
		require.False(t, seen[s], "duplicate state %q", s)
		seen[s] = true
	}
}

// =========================================================================
// MEMORY STORE
// =========================================================================

func TestMemoryStateStore_SingleUse(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()

	require.NoError(t, store.Save(ctx, "abc", time.Minute))

	ok, err := store.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok, "first Consume should succeed")

	ok, err = store.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok, "second Consume must fail")
}

func TestMemoryStateStore_UnknownState(t *testing.T) {
	ok, err := NewMemoryStateStore().Consume(context.Background(), "never-saved")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStateStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, "abc", time.Minute))

	store.now = func() time.Time { return now.Add(2 * time.Minute) }
	ok, err := store.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok, "expired state must not be accepted")
}

func TestMemoryStateStore_SweepsExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStateStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, "old", time.Minute))
	store.now = func() time.Time { return now.Add(time.Hour) }
	require.NoError(t, store.Save(ctx, "new", time.Minute))

	assert.Len(t, store.entries, 1)
}

func TestMemoryStateStore_RejectsEmpty(t *testing.T) {
	assert.Error(t, NewMemoryStateStore().Save(context.Background(), "", time.Minute))
}

// =========================================================================
// REDIS STORE
// =========================================================================

func newTestRedisStore(t *testing.T) (*RedisStateStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStateStore(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStateStore_SingleUse(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	require.NoError(t, store.Save(ctx, "abc", time.Minute))
	assert.True(t, mr.Exists(redisStatePrefix+"abc"))

	ok, err := store.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStateStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	require.NoError(t, store.Save(ctx, "abc", time.Minute))
	mr.FastForward(2 * time.Minute)

	ok, err := store.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStateStore_ServerDown(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)
	mr.Close()

	_, err := store.Consume(ctx, "abc")
	assert.Error(t, err)
}

func TestNewRedisStateStore_BadURL(t *testing.T) {
	_, err := NewRedisStateStore(context.Background(), "not a url")
	assert.Error(t, err)
}
