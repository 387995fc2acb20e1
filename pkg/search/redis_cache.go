package search

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/matst80/killu-finder/pkg/logger"
	"github.com/matst80/killu-finder/pkg/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "killu:results:"

// NewRedisClient accepts either a redis:// url or a plain host:port address.
func NewRedisClient(addr, password string) (*redis.Client, error) {
	if strings.Contains(addr, "://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		if password != "" {
			opt.Password = password
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	}), nil
}

// RedisCache keeps a session's results in Redis so they survive across
// instances, with an in-process copy in front of it.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration

	mu    sync.RWMutex
	local map[string]types.ResultSet
}

func NewRedisCache(client *redis.Client, sessionId string, ttl time.Duration) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: redisKeyPrefix + sessionId + ":",
		ttl:    ttl,
		local:  make(map[string]types.ResultSet),
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (types.ResultSet, bool) {
	c.mu.RLock()
	rs, ok := c.local[key]
	c.mu.RUnlock()
	if ok {
		return rs, true
	}
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Log.Warn("redis cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if err = sonic.Unmarshal(data, &rs); err != nil {
		logger.Log.Warn("redis cache entry unreadable", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	c.mu.Lock()
	c.local[key] = rs
	c.mu.Unlock()
	return rs, true
}

func (c *RedisCache) Set(ctx context.Context, key string, results types.ResultSet) {
	c.mu.Lock()
	c.local[key] = results
	c.mu.Unlock()
	data, err := sonic.Marshal(results)
	if err != nil {
		logger.Log.Warn("redis cache encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err = c.client.Set(ctx, c.prefix+key, data, c.ttl).Err(); err != nil {
		logger.Log.Warn("redis cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *RedisCache) Clear(ctx context.Context) {
	c.mu.Lock()
	c.local = make(map[string]types.ResultSet)
	c.mu.Unlock()
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	keys := make([]string, 0)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		logger.Log.Warn("redis cache scan failed", zap.Error(err))
	}
	if len(keys) > 0 {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			logger.Log.Warn("redis cache clear failed", zap.Error(err))
		}
	}
}

func (c *RedisCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.local)
}
