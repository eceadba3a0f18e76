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

func newRedisCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCacheFromClient(client, "portal:")
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "session:abc", SessionKey("abc"))
	assert.Equal(t, "file-exists:fs:financials/a.pdf", FileExistsKey("fs", "financials/a.pdf"))
	assert.Equal(t, "a:b:c", Key("a", "b", "c"))
}

// exerciseCache runs the behaviour every Cache implementation shares
func exerciseCache(t *testing.T, c Cache) {
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "session:1", []byte("one"), time.Minute))
	require.NoError(t, c.Set(ctx, "session:2", []byte("two"), 0))
	require.NoError(t, c.Set(ctx, "file-exists:x", []byte("1"), time.Minute))

	value, err := c.Get(ctx, "session:1")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), value)

	exists, err := c.Exists(ctx, "session:2")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, c.Delete(ctx, "session:2"))
	exists, err = c.Exists(ctx, "session:2")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, c.Clear(ctx, "session:*"))
	_, err = c.Get(ctx, "session:1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	value, err = c.Get(ctx, "file-exists:x")
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), value)
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	exerciseCache(t, c)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	require.NoError(t, c.Set(ctx, "forever", []byte("v"), 0))

	now = now.Add(2 * time.Second)
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	exists, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = c.Get(ctx, "forever")
	assert.NoError(t, err)
}

func TestMemoryCacheCopiesValues(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, c.Set(ctx, "k", value, 0))
	value[0] = 'x'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)

	got[1] = 'y'
	again, _ := c.Get(ctx, "k")
	assert.Equal(t, []byte("abc"), again)
}

func TestMemoryCacheCloseTwice(t *testing.T) {
	c := NewMemoryCache()
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestRedisCache(t *testing.T) {
	c, mr := newRedisCache(t)
	exerciseCache(t, c)

	assert.True(t, mr.Exists("portal:file-exists:x"))
	assert.False(t, mr.Exists("file-exists:x"))
	assert.NoError(t, c.Ping(context.Background()))
}

func TestRedisCacheTTL(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "session:abc", []byte("state"), time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("portal:session:abc"))

	mr.FastForward(2 * time.Hour)
	_, err := c.Get(ctx, "session:abc")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisCacheUnavailable(t *testing.T) {
	c, mr := newRedisCache(t)
	mr.Close()

	_, err := c.Get(context.Background(), "k")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestNewRedisCacheFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisCache(RedisConfig{Addr: addr})
	assert.Error(t, err)
}
