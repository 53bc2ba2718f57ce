package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

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

func TestRedisCacheRoundTripAndTTL(t *testing.T) {
	mr, client := setupTestRedis(t)
	c := NewRedisCache(client, "portal")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "doctors", []item{{ID: "d1", Name: "Dr. Dupont"}}, time.Minute))
	assert.True(t, mr.Exists("portal:doctors"))

	var got []item
	require.NoError(t, c.Get(ctx, "doctors", &got))
	assert.Equal(t, []item{{ID: "d1", Name: "Dr. Dupont"}}, got)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "doctors", &got), ErrMiss)
}

func TestRedisCacheDelete(t *testing.T) {
	_, client := setupTestRedis(t)
	c := NewRedisCache(client, "")
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", item{ID: "a"}, 0))
	require.NoError(t, c.Delete(ctx, "a", "missing"))
	require.NoError(t, c.Delete(ctx))

	var got item
	assert.ErrorIs(t, c.Get(ctx, "a", &got), ErrMiss)
}

func TestRedisCacheDecodeError(t *testing.T) {
	mr, client := setupTestRedis(t)
	require.NoError(t, mr.Set("bad", "{not json"))
	c := NewRedisCache(client, "")

	var got item
	err := c.Get(context.Background(), "bad", &got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", item{ID: "1"}, time.Minute))
	require.NoError(t, c.Set(ctx, "forever", item{ID: "2"}, 0))

	var got item
	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, "1", got.ID)

	now = now.Add(time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrMiss)
	require.NoError(t, c.Get(ctx, "forever", &got))

	require.NoError(t, c.Delete(ctx, "forever"))
	assert.ErrorIs(t, c.Get(ctx, "forever", &got), ErrMiss)
}

func TestNewRedisCachePanicsOnNilClient(t *testing.T) {
	assert.Panics(t, func() { NewRedisCache(nil, "") })
}
