package redis

import (
	"context"
	"encoding/json"
	"time"

	"kinto-admin/internal/kinto"
	"kinto-admin/internal/shared/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const serverInfoKeyPrefix = "kinto-admin:server-info:"

// RedisServerInfoCache shares server info documents between instances
type RedisServerInfoCache struct {
	client *redis.Client
	logger logger.Logger
}

// NewRedisServerInfoCache creates a Redis backed server info cache
func NewRedisServerInfoCache(client *redis.Client, log logger.Logger) *RedisServerInfoCache {
	return &RedisServerInfoCache{client: client, logger: log.WithComponent("server_info_cache")}
}

func serverInfoKey(server string) string {
	return serverInfoKeyPrefix + server
}

func (c *RedisServerInfoCache) Get(ctx context.Context, server string) (kinto.ServerInfo, bool, error) {
	var info kinto.ServerInfo
	data, err := c.client.Get(ctx, serverInfoKey(server)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return info, false, nil
		}
		return info, false, err
	}
	if err := json.Unmarshal(data, &info); err != nil {
		c.logger.Warn("Dropping unreadable cached server info", zap.String("server", server), zap.Error(err))
		_ = c.Invalidate(ctx, server)
		return kinto.ServerInfo{}, false, nil
	}
	return info, true, nil
}

func (c *RedisServerInfoCache) Set(ctx context.Context, server string, info kinto.ServerInfo, ttl time.Duration) error {
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, serverInfoKey(server), data, ttl).Err()
}

func (c *RedisServerInfoCache) Invalidate(ctx context.Context, server string) error {
	return c.client.Del(ctx, serverInfoKey(server)).Err()
}
