package memory

import (
	"context"
	"sync"
	"time"

	"github.com/eskorokhod/construction-doc-chat/internal/core/domain"
)

// Cache is an in-process response cache with lazy expiry. Expired entries
// are dropped when touched; no background sweeper runs.
type Cache struct {
	mu      sync.Mutex
	entries map[string]domain.CacheEntry
	now     func() time.Time
}

func New() *Cache {
	return &Cache{
		entries: make(map[string]domain.CacheEntry),
		now:     time.Now,
	}
}

func (c *Cache) Get(ctx context.Context, key string) (*domain.CacheEntry, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if entry.Expired(c.now()) {
		delete(c.entries, key)
		return nil, false, nil
	}
	out := entry
	return &out, true, nil
}

func (c *Cache) Put(ctx context.Context, key string, entry domain.CacheEntry, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if ttl > 0 {
		entry.ExpiresAt = c.now().Add(ttl)
	}
	c.entries[key] = entry
	return nil
}

// Len reports live plus not-yet-touched expired entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
