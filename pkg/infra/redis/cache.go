package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache 实体读取缓存（键 → 值 + 过期时间）
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache 创建缓存实例
func NewCache(addr, password string, db int, ttl time.Duration) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// 测试连接
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{
		client: client,
		ttl:    ttl,
	}, nil
}

// NewCacheWithClient 基于已有客户端创建缓存（共享连接）
func NewCacheWithClient(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Get 读取缓存值（未命中返回 ok=false）
func (c *Cache) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache get failed: %w", err)
	}
	return val, true, nil
}

// Set 写入缓存值（使用默认 TTL）
func (c *Cache) Set(ctx context.Context, key, value string) error {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set failed: %w", err)
	}
	return nil
}

// Invalidate 删除指定键（精确键与通配键混用，通配键经 SCAN 展开）
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if containsWildcard(key) {
			if err := c.invalidatePattern(ctx, key); err != nil {
				return err
			}
			continue
		}
		if err := c.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("cache del failed for %s: %w", key, err)
		}
	}
	return nil
}

// invalidatePattern 按模式删除（SCAN 游标遍历，避免阻塞 Redis）
func (c *Cache) invalidatePattern(ctx context.Context, pattern string) error {
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("cache del failed for %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan failed: %w", err)
	}
	return nil
}

// Close 关闭 Redis 连接
func (c *Cache) Close() error {
	return c.client.Close()
}

// containsWildcard 判断键是否为通配模式
func containsWildcard(key string) bool {
	for i := 0; i < len(key); i++ {
		if key[i] == '*' || key[i] == '?' {
			return true
		}
	}
	return false
}
