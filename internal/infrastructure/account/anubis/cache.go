package anubis

import (
	"sync"
	"time"

	"github.com/riskibarqy/peg-league/internal/domain/user"
)

type cachedPrincipal struct {
	principal user.Principal
	validTil  time.Time
}

// principalCache remembers verified principals by token hash. An entry
// never outlives the token it was verified from. When full, the oldest
// insertion is dropped first. ttl <= 0 disables caching.
type principalCache struct {
	ttl   time.Duration
	limit int
	now   func() time.Time

	mu    sync.Mutex
	byKey map[string]cachedPrincipal
	order []string
}

func newPrincipalCache(ttl time.Duration, limit int) *principalCache {
	return &principalCache{
		ttl:   ttl,
		limit: limit,
		now:   time.Now,
		byKey: make(map[string]cachedPrincipal),
	}
}

func (c *principalCache) Get(key string) (user.Principal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached, ok := c.byKey[key]
	if !ok {
		return user.Principal{}, false
	}
	if !c.now().Before(cached.validTil) {
		delete(c.byKey, key)
		return user.Principal{}, false
	}
	return cached.principal, true
}

// Set stores principal until ttl elapses or tokenExpiry passes, whichever
// comes first. A zero tokenExpiry means the token did not report one.
func (c *principalCache) Set(key string, principal user.Principal, tokenExpiry time.Time) {
	if c.ttl <= 0 {
		return
	}

	now := c.now()
	validTil := now.Add(c.ttl)
	if !tokenExpiry.IsZero() && tokenExpiry.Before(validTil) {
		validTil = tokenExpiry
	}
	if !validTil.After(now) {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byKey[key]; !exists {
		c.order = append(c.order, key)
	}
	c.byKey[key] = cachedPrincipal{principal: principal, validTil: validTil}
	c.trim()
}

// trim drops keys already removed by Get, then the oldest live ones, until
// the cache fits its limit.
func (c *principalCache) trim() {
	if c.limit <= 0 {
		return
	}
	if len(c.order) > 2*c.limit {
		live := c.order[:0]
		for _, key := range c.order {
			if _, ok := c.byKey[key]; ok {
				live = append(live, key)
			}
		}
		c.order = live
	}
	for len(c.byKey) > c.limit && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.byKey, oldest)
	}
}
