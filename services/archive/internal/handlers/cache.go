package handlers

import (
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// Cache is the read-through cache in front of GET /api/movies.
// Implementations must be safe for concurrent use.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, v any)
	Purge()
}

type cacheItem struct {
	val       any
	expiresAt time.Time
}

// TTLCache is an in-memory Cache with per-entry expiry. Any message on the
// invalidation subject drops every entry: a movie set change can move any
// page.
type TTLCache struct {
	mu    sync.RWMutex
	items map[string]cacheItem
	ttl   time.Duration
	sub   *nats.Subscription
}

// NewTTLCache subscribes to subj when nc is non-nil.
func NewTTLCache(ttl time.Duration, nc *nats.Conn, subj string) (*TTLCache, error) {
	if ttl <= 0 {
		ttl = time.Minute
	}
	c := &TTLCache{items: make(map[string]cacheItem), ttl: ttl}
	if nc != nil && subj != "" {
		sub, err := nc.Subscribe(subj, func(*nats.Msg) { c.Purge() })
		if err != nil {
			return nil, err
		}
		c.sub = sub
	}
	return c, nil
}

func (c *TTLCache) Get(key string) (any, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(it.expiresAt) {
		c.mu.Lock()
		if cur, ok2 := c.items[key]; ok2 && time.Now().After(cur.expiresAt) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return it.val, true
}

func (c *TTLCache) Set(key string, v any) {
	c.mu.Lock()
	c.items[key] = cacheItem{val: v, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *TTLCache) Purge() {
	c.mu.Lock()
	c.items = make(map[string]cacheItem)
	c.mu.Unlock()
}

// Close drops the invalidation subscription.
func (c *TTLCache) Close() error {
	if c.sub == nil {
		return nil
	}
	return c.sub.Unsubscribe()
}
