package refcache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	backend := NewRedisBackendFromClient(client)
	t.Cleanup(func() { _ = backend.Close() })
	return backend, srv
}

func TestRedisBackendRoundTrip(t *testing.T) {
	backend, _ := newRedisBackend(t)
	ctx := context.Background()

	entry := &Entry{
		RefID:       "public:abcdef1234",
		Namespace:   "public",
		Value:       "ein Wert",
		ContentHash: "abcdef1234",
		CreatedAt:   time.Now().UTC(),
		TTL:         time.Hour,
		Strategy:    StrategySample,
	}
	require.NoError(t, backend.Set(ctx, entry))

	got, ok, err := backend.Get(ctx, entry.RefID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entry.RefID, got.RefID)
	assert.Equal(t, "ein Wert", got.Value)
	assert.Equal(t, entry.ContentHash, got.ContentHash)
}

func TestRedisBackendMiss(t *testing.T) {
	backend, _ := newRedisBackend(t)

	_, ok, err := backend.Get(context.Background(), "public:missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisBackendExpiry(t *testing.T) {
	backend, srv := newRedisBackend(t)
	ctx := context.Background()

	entry := &Entry{
		RefID:       "public:deadbeef00",
		Namespace:   "public",
		Value:       "short lived",
		ContentHash: "deadbeef00",
		CreatedAt:   time.Now().UTC(),
		TTL:         time.Minute,
		Strategy:    StrategySample,
	}
	require.NoError(t, backend.Set(ctx, entry))

	srv.FastForward(2 * time.Minute)

	_, ok, err := backend.Get(ctx, entry.RefID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisBackendDeleteAndLen(t *testing.T) {
	backend, _ := newRedisBackend(t)
	ctx := context.Background()

	for _, id := range []string{"public:aaaaaaaaaa", "public:bbbbbbbbbb"} {
		entry := &Entry{
			RefID:       id,
			Namespace:   "public",
			Value:       "x",
			ContentHash: id,
			CreatedAt:   time.Now().UTC(),
			TTL:         time.Hour,
			Strategy:    StrategySample,
		}
		require.NoError(t, backend.Set(ctx, entry))
	}

	n, err := backend.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, backend.Delete(ctx, "public:aaaaaaaaaa"))
	n, err = backend.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestCacheOnRedis(t *testing.T) {
	backend, _ := newRedisBackend(t)
	cache := New(backend, DefaultConfig())
	ctx := context.Background()

	ref, err := cache.Put(ctx, PutRequest{
		Namespace: "public",
		Value:     []string{"alpha", "beta", "gamma"},
	})
	require.NoError(t, err)

	resolved, err := cache.Get(ctx, GetRequest{RefID: ref.RefID})
	require.NoError(t, err)

	// Values round-trip through JSON on this backend.
	got, ok := resolved.Value.([]any)
	require.True(t, ok)
	assert.Equal(t, []any{"alpha", "beta", "gamma"}, got)
}
