package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCache connects to a local Redis, skipping when none is reachable
func testCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 1})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}

	t.Cleanup(func() { client.Close() })
	return NewWithClient(client, ttl, zerolog.Nop())
}

func testKey(t *testing.T) string {
	return fmt.Sprintf("test:%s:%d", t.Name(), time.Now().UnixNano())
}

func TestGetMissOnUnknownKey(t *testing.T) {
	cache := testCache(t, time.Minute)

	data, ok, err := cache.Get(context.Background(), testKey(t))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
}

func TestSetGetRoundTrip(t *testing.T) {
	cache := testCache(t, time.Minute)
	ctx := context.Background()
	key := testKey(t)

	require.NoError(t, cache.Set(ctx, key, []byte(`{"total_messages":12}`)))
	t.Cleanup(func() { cache.Del(ctx, key) })

	data, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte(`{"total_messages":12}`), data)
}

func TestSetResetsTTLOnOverwrite(t *testing.T) {
	cache := testCache(t, 200*time.Millisecond)
	ctx := context.Background()
	key := testKey(t)

	require.NoError(t, cache.Set(ctx, key, []byte("first")))
	time.Sleep(120 * time.Millisecond)
	require.NoError(t, cache.Set(ctx, key, []byte("second")))
	time.Sleep(120 * time.Millisecond)

	// Past the first write's TTL but within the second's
	data, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("second"), data)
}

func TestEntryExpires(t *testing.T) {
	cache := testCache(t, 100*time.Millisecond)
	ctx := context.Background()
	key := testKey(t)

	require.NoError(t, cache.Set(ctx, key, []byte("soon gone")))
	time.Sleep(200 * time.Millisecond)

	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok, "entry must expire after the TTL")
}

func TestDel(t *testing.T) {
	cache := testCache(t, time.Minute)
	ctx := context.Background()
	key := testKey(t)

	require.NoError(t, cache.Set(ctx, key, []byte("value")))
	require.NoError(t, cache.Del(ctx, key))

	_, ok, err := cache.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	// Deleting an absent key is a no-op
	assert.NoError(t, cache.Del(ctx, key))
}

func TestGetFaultOnClosedConnection(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 1})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	cache := NewWithClient(client, time.Minute, zerolog.Nop())
	require.NoError(t, cache.Close())

	_, ok, err := cache.Get(context.Background(), testKey(t))
	require.Error(t, err, "a cache fault must surface as an error, not a miss")
	assert.False(t, ok)
}
