package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache provides typed caching utilities
// ⭐ SSOT: 캐시 헬퍼는 여기서만
type Cache struct {
	client *Client
	prefix string
}

// NewCache creates a new cache helper
func NewCache(client *Client, prefix string) *Cache {
	return &Cache{
		client: client,
		prefix: prefix,
	}
}

// Enabled reports whether the underlying client is active
func (c *Cache) Enabled() bool {
	return c.client != nil && c.client.Enabled()
}

func (c *Cache) fullKey(key string) string {
	return fmt.Sprintf("%s:cache:%s", c.prefix, key)
}

// Get retrieves a cached value. A missing key reports (false, nil).
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !c.Enabled() {
		return false, nil
	}

	data, err := c.client.Redis().Get(ctx, c.fullKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("cache unmarshal failed: %w", err)
	}

	return true, nil
}

// Set stores a value in cache with TTL
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !c.Enabled() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}

	return c.client.Redis().Set(ctx, c.fullKey(key), data, ttl).Err()
}

// Delete removes a cached value
func (c *Cache) Delete(ctx context.Context, key string) error {
	if !c.Enabled() {
		return nil
	}

	return c.client.Redis().Del(ctx, c.fullKey(key)).Err()
}

// DeleteMatching removes every key under the given key pattern (e.g. "series:*")
func (c *Cache) DeleteMatching(ctx context.Context, pattern string) (int, error) {
	if !c.Enabled() {
		return 0, nil
	}

	var deleted int
	iter := c.client.Redis().Scan(ctx, 0, c.fullKey(pattern), 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Redis().Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("cache delete failed: %w", err)
		}
		deleted++
	}

	return deleted, iter.Err()
}

// Predefined TTLs
const (
	TTLShort  = 1 * time.Minute  // 최근 실행 조회
	TTLMedium = 10 * time.Minute // 요약 통계
	TTLLong   = 1 * time.Hour    // 정규화된 시계열
	TTLDaily  = 24 * time.Hour   // 일별 예측
)

// SeriesKey identifies a normalized dataset version
func SeriesKey(path string, modUnixNano int64, policy string) string {
	return fmt.Sprintf("series:%s:%d:%s", path, modUnixNano, policy)
}

// SeriesPattern matches every cached version of a dataset
func SeriesPattern(path string) string {
	return fmt.Sprintf("series:%s:*", path)
}

// ForecastRunKey identifies a stored forecast run
func ForecastRunKey(id string) string {
	return fmt.Sprintf("forecast:run:%s", id)
}

// ForecastRunPattern matches every cached forecast run
func ForecastRunPattern() string {
	return "forecast:run:*"
}
