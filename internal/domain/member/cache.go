package member

import (
	"context"
	"sync"
	"time"
)

// RosterLoader reads the current roster from storage.
type RosterLoader interface {
	Load(ctx context.Context) (Roster, error)
}

// CachedRoster memoizes the roster for a fixed TTL.
// A zero TTL disables caching.
type CachedRoster struct {
	loader RosterLoader
	ttl    time.Duration
	now    func() time.Time

	mu       sync.Mutex
	roster   Roster
	loadedAt time.Time
	valid    bool
}

// NewCachedRoster wraps loader with a TTL cache.
func NewCachedRoster(loader RosterLoader, ttl time.Duration) *CachedRoster {
	return &CachedRoster{loader: loader, ttl: ttl, now: time.Now}
}

// Load returns the cached roster, refreshing it when stale.
// PRE: none
// POST: Returns the roster as of at most ttl ago, or a loader error
func (c *CachedRoster) Load(ctx context.Context) (Roster, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid && c.ttl > 0 && c.now().Sub(c.loadedAt) < c.ttl {
		return c.roster, nil
	}
	r, err := c.loader.Load(ctx)
	if err != nil {
		return Roster{}, err
	}
	c.roster = r
	c.loadedAt = c.now()
	c.valid = true
	return r, nil
}

// Invalidate drops the cached roster so the next Load hits storage.
func (c *CachedRoster) Invalidate() {
	c.mu.Lock()
	c.valid = false
	c.mu.Unlock()
}
