package access

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache memoises resolved decisions per (guild, user) for a fixed TTL.
// It is process-local: a missing or expired entry only costs a
// recomputation, and a positive decision is never served past its TTL.
type Cache struct {
	lru *expirable.LRU[string, Decision]
	ttl time.Duration
}

// NewCache returns a Cache holding at most size decisions for ttl each.
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = 4096
	}
	return &Cache{
		lru: expirable.NewLRU[string, Decision](size, nil, ttl),
		ttl: ttl,
	}
}

// Get returns the cached decision for the pair, if still fresh.
func (c *Cache) Get(guildID, userID string) (Decision, bool) {
	return c.lru.Get(cacheKey(guildID, userID))
}

// Put stores a decision under the cache TTL.
func (c *Cache) Put(guildID, userID string, decision Decision) {
	c.lru.Add(cacheKey(guildID, userID), decision)
}

// Forget drops the pair's entry. Called after grant or role writes so
// this process converges immediately; other instances converge at TTL.
func (c *Cache) Forget(guildID, userID string) {
	c.lru.Remove(cacheKey(guildID, userID))
}

// TTL reports the configured decision lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

func cacheKey(guildID, userID string) string {
	return guildID + ":" + userID
}
