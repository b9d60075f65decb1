package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "legal-updates:feed:"

var _ FeedCache = (*Cache)(nil)

// Cache wraps a Redis client for rendered feed output.
type Cache struct {
	client *redis.Client
}

// NewCache connects to Redis at addr and verifies the connection.
func NewCache(ctx context.Context, addr, password string) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", addr)

	return &Cache{client: client}, nil
}

// GenerateFeedKey derives a short stable key from a request identifier.
func GenerateFeedKey(request string) string {
	hash := sha256.Sum256([]byte(request))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:8])
}

type feedEntry struct {
	Content  string `json:"content"`
	CachedAt int64  `json:"cached_at"`
}

func (c *Cache) SetFeed(ctx context.Context, key, content string, ttl time.Duration) error {
	data, err := json.Marshal(feedEntry{Content: content, CachedAt: time.Now().Unix()})
	if err != nil {
		return fmt.Errorf("failed to marshal feed entry: %w", err)
	}

	if err := c.client.Set(ctx, GenerateFeedKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set feed %s: %w", key, err)
	}
	return nil
}

func (c *Cache) GetFeed(ctx context.Context, key string) (string, bool, error) {
	redisKey := GenerateFeedKey(key)

	data, err := c.client.Get(ctx, redisKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get feed %s: %w", key, err)
	}

	var entry feedEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// Unreadable entries are dropped and reported as a miss.
		c.client.Del(ctx, redisKey)
		return "", false, nil
	}

	return entry.Content, true, nil
}

// Invalidate removes every cached feed.
func (c *Cache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan feed keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete feed keys: %w", err)
	}
	return nil
}

func (c *Cache) Health(ctx context.Context) map[string]interface{} {
	health := map[string]interface{}{
		"status": "healthy",
		"type":   "redis",
	}

	if err := c.client.Ping(ctx).Err(); err != nil {
		health["status"] = "unhealthy"
		health["error"] = err.Error()
		return health
	}

	if size, err := c.client.DBSize(ctx).Result(); err == nil {
		health["key_count"] = size
	}

	return health
}

func (c *Cache) Close() error {
	return c.client.Close()
}
