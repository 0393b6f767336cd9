package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"truck-routing-service/internal/platform/obs"
	"truck-routing-service/internal/ports"
)

var _ ports.DistanceCache = (*RedisDistanceCache)(nil)

const redisKeyPrefix = "distance:"

type redisEntry struct {
	Meters  float64 `json:"m"`
	Seconds float64 `json:"s"`
}

// RedisDistanceCache keeps one hash per origin; each field is a destination
// key holding a JSON-encoded distance result. TTL applies to the whole
// origin hash and is refreshed on every write.
type RedisDistanceCache struct {
	rdb *redis.Client
	TTL time.Duration
}

func NewRedisDistanceCache(rdb *redis.Client, ttl time.Duration) *RedisDistanceCache {
	return &RedisDistanceCache{rdb: rdb, TTL: ttl}
}

// NewRedisDistanceCacheFromURL parses a redis:// URL such as REDIS_URL.
func NewRedisDistanceCacheFromURL(url string, ttl time.Duration) (*RedisDistanceCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisDistanceCache(redis.NewClient(opt), ttl), nil
}

func (c *RedisDistanceCache) Close() error {
	return c.rdb.Close()
}

func (c *RedisDistanceCache) GetMany(
	ctx context.Context,
	origin string,
	destinations []string,
) (_ map[string]ports.DistanceResult, err error) {
	defer obs.Time(ctx, "distance.redis.GetMany")(&err)

	if origin == "" {
		return nil, errors.New("get redis distance cache: origin must not be empty")
	}

	uniq := uniqueKeys(destinations)
	if len(uniq) == 0 {
		return map[string]ports.DistanceResult{}, nil
	}

	vals, err := c.rdb.HMGet(ctx, redisKeyPrefix+origin, uniq...).Result()
	if err != nil {
		return nil, fmt.Errorf("get redis distance cache: %w", err)
	}

	out := make(map[string]ports.DistanceResult, len(uniq))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}

		var e redisEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			log.Printf("redis distance cache: dropping corrupt entry %s -> %s: %v", origin, uniq[i], err)
			continue
		}
		out[uniq[i]] = ports.DistanceResult{DistanceMeters: e.Meters, DurationSeconds: e.Seconds}
	}

	return out, nil
}

func (c *RedisDistanceCache) PutMany(
	ctx context.Context,
	origin string,
	results map[string]ports.DistanceResult,
) error {
	if origin == "" {
		return errors.New("insert redis distance cache: origin must not be empty")
	}

	if len(results) == 0 {
		return nil
	}

	fields := make(map[string]any, len(results))
	for dest, r := range results {
		if strings.TrimSpace(dest) == "" {
			return fmt.Errorf("insert redis distance cache: empty destination key")
		}

		data, err := json.Marshal(redisEntry{Meters: r.DistanceMeters, Seconds: r.DurationSeconds})
		if err != nil {
			return fmt.Errorf("encode distance %s -> %s: %w", origin, dest, err)
		}
		fields[dest] = string(data)
	}

	key := redisKeyPrefix + origin
	_, err := c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key, fields)
		if c.TTL > 0 {
			p.Expire(ctx, key, c.TTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert redis distance cache: %w", err)
	}

	return nil
}
