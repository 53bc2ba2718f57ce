package booking

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return mr, client
}

func TestRedisStoreNeverPersistsPayment(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisStore(client, 30*time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "u1", readyState(t)))

	raw, err := mr.Get("booking:draft:u1")
	require.NoError(t, err)
	assert.NotContains(t, raw, "4242")
	assert.NotContains(t, strings.ToLower(raw), "cvv")

	loaded, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, StepPayment, loaded.Step)
	assert.Equal(t, "14:00", loaded.Draft.Time)
	assert.Equal(t, Payment{}, loaded.Draft.Payment)
}

func TestRedisStoreTTLAndDelete(t *testing.T) {
	mr, client := setupTestRedis(t)
	store := NewRedisStore(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "u1", openAt(t, StepReason)))
	assert.Equal(t, time.Minute, mr.TTL("booking:draft:u1"))

	require.NoError(t, store.Delete(ctx, "u1"))
	s, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, s.Open)

	require.NoError(t, store.Save(ctx, "u2", openAt(t, StepReason)))
	mr.FastForward(2 * time.Minute)
	s, err = store.Load(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, State{}, s)
}

func TestRedisStoreCorruptValue(t *testing.T) {
	mr, client := setupTestRedis(t)
	require.NoError(t, mr.Set("booking:draft:u1", "not-json"))
	_, err := NewRedisStore(client, 0).Load(context.Background(), "u1")
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "u1", readyState(t)))
	s, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, Payment{}, s.Draft.Payment)

	s.Draft.Reason = "changed"
	again, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Suivi annuel", again.Draft.Reason, "loaded state must be a copy")

	now = now.Add(time.Minute)
	s, err = store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, s.Open)
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("u1")
	assert.Len(t, k.locks, 1)
	unlock()
	assert.Empty(t, k.locks)
}
