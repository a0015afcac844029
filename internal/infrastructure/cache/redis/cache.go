package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eskorokhod/construction-doc-chat/internal/core/domain"
)

// Cache stores response entries as JSON values under their request key.
// Redis enforces the TTL; the embedded expiry stamp is still checked so a
// server with lax eviction cannot serve a stale answer.
type Cache struct {
	client    *redis.Client
	keyPrefix string
	now       func() time.Time
}

func New(client *redis.Client, keyPrefix string) *Cache {
	if keyPrefix == "" {
		keyPrefix = "chat:response:"
	}
	return &Cache{
		client:    client,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

func (c *Cache) Get(ctx context.Context, key string) (*domain.CacheEntry, bool, error) {
	raw, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// A corrupt value behaves like a miss and is dropped.
		c.client.Del(ctx, c.keyPrefix+key)
		return nil, false, nil
	}
	if entry.Expired(c.now()) {
		c.client.Del(ctx, c.keyPrefix+key)
		return nil, false, nil
	}
	return &entry, true, nil
}

func (c *Cache) Put(ctx context.Context, key string, entry domain.CacheEntry, ttl time.Duration) error {
	if ttl > 0 {
		entry.ExpiresAt = c.now().Add(ttl)
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("cache marshal: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

// Ping verifies the connection at startup.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
