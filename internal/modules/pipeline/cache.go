package pipeline

import (
	"context"
	"encoding/json"
	"time"

	redisc "github.com/lingokit/core/internal/pkg/redis"
)

const (
	cacheKeyPrefix    = "lingo:cache:resp:"
	lastGoodKeyPrefix = "lingo:cache:lastgood:"
)

// RedisCache is the response cache backed by redis. A redis failure on read
// surfaces as an error; the orchestrator treats it as a miss.
type RedisCache struct {
	rc          *redisc.Client
	ttl         time.Duration
	lastGoodTTL time.Duration
}

func NewRedisCache(rc *redisc.Client, ttl, lastGoodTTL time.Duration) *RedisCache {
	return &RedisCache{rc: rc, ttl: ttl, lastGoodTTL: lastGoodTTL}
}

func (c *RedisCache) Get(ctx context.Context, fingerprint string) (*CachedResponse, error) {
	return c.get(ctx, cacheKeyPrefix+fingerprint)
}

func (c *RedisCache) Put(ctx context.Context, fingerprint string, resp *CachedResponse) error {
	return c.put(ctx, cacheKeyPrefix+fingerprint, resp, c.ttl)
}

func (c *RedisCache) GetLastGood(ctx context.Context, cluster string) (*CachedResponse, error) {
	return c.get(ctx, lastGoodKeyPrefix+cluster)
}

func (c *RedisCache) PutLastGood(ctx context.Context, cluster string, resp *CachedResponse) error {
	return c.put(ctx, lastGoodKeyPrefix+cluster, resp, c.lastGoodTTL)
}

func (c *RedisCache) get(ctx context.Context, key string) (*CachedResponse, error) {
	data, err := c.rc.GetBytes(ctx, key)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var resp CachedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		// A corrupt entry is a miss, not a turn-killing failure.
		_ = c.rc.Del(ctx, key)
		return nil, nil
	}
	return &resp, nil
}

func (c *RedisCache) put(ctx context.Context, key string, resp *CachedResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return c.rc.Set(ctx, key, data, ttl)
}
