package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"truck-routing-service/internal/ports"
)

func newTestRedisCache(t *testing.T, ttl time.Duration) (*RedisDistanceCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewRedisDistanceCache(rdb, ttl), mr
}

func TestRedisDistanceCache_RoundTrip(t *testing.T) {
	c, _ := newTestRedisCache(t, 0)
	ctx := context.Background()

	err := c.PutMany(ctx, "0,0", map[string]ports.DistanceResult{
		"3,4": {DistanceMeters: 5, DurationSeconds: 5},
		"6,8": {DistanceMeters: 10, DurationSeconds: 12.5},
	})
	require.NoError(t, err)

	got, err := c.GetMany(ctx, "0,0", []string{"3,4", "6,8", "9,9", "3,4", " "})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, ports.DistanceResult{DistanceMeters: 10, DurationSeconds: 12.5}, got["6,8"])
	require.NotContains(t, got, "9,9")
}

func TestRedisDistanceCache_OriginsAreIsolated(t *testing.T) {
	c, _ := newTestRedisCache(t, 0)
	ctx := context.Background()

	require.NoError(t, c.PutMany(ctx, "0,0", map[string]ports.DistanceResult{"1,1": {DistanceMeters: 1}}))

	got, err := c.GetMany(ctx, "1,1", []string{"0,0", "1,1"})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRedisDistanceCache_Expires(t *testing.T) {
	c, mr := newTestRedisCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.PutMany(ctx, "0,0", map[string]ports.DistanceResult{"1,1": {DistanceMeters: 1}}))
	mr.FastForward(2 * time.Minute)

	got, err := c.GetMany(ctx, "0,0", []string{"1,1"})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRedisDistanceCache_CorruptEntryIsMiss(t *testing.T) {
	c, mr := newTestRedisCache(t, 0)
	ctx := context.Background()

	mr.HSet(redisKeyPrefix+"0,0", "1,1", "not-json")

	got, err := c.GetMany(ctx, "0,0", []string{"1,1"})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestRedisDistanceCache_RejectsEmptyOrigin(t *testing.T) {
	c, _ := newTestRedisCache(t, 0)

	_, err := c.GetMany(context.Background(), "", []string{"1,1"})
	require.Error(t, err)
	require.Error(t, c.PutMany(context.Background(), "", map[string]ports.DistanceResult{"1,1": {}}))
}
