package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"classroom-quiz-service/internal/app"
	"classroom-quiz-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ClassCache caches roster lookups with TTL to avoid hitting the class
// service on every quiz request. Roster changes become visible after the TTL.
type ClassCache struct {
	source app.ClassDirectory
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedClass
}

type cachedClass struct {
	class     domain.Class
	expiresAt time.Time
}

func NewClassCache(source app.ClassDirectory, ttl time.Duration) *ClassCache {
	return &ClassCache{
		source: source,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedClass),
	}
}

func (c *ClassCache) GetClass(ctx context.Context, classID string) (domain.Class, error) {
	if class, ok := c.lookup(classID); ok {
		return class, nil
	}

	result, err, _ := c.sf.Do(classID, func() (interface{}, error) {
		if class, ok := c.lookup(classID); ok {
			return class, nil
		}

		class, err := c.source.GetClass(ctx, classID)
		if err != nil {
			return domain.Class{}, err
		}

		c.mu.Lock()
		c.cache[classID] = cachedClass{
			class:     class,
			expiresAt: c.clock().Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return class, nil
	})
	if err != nil {
		return domain.Class{}, err
	}
	return result.(domain.Class), nil
}

// Invalidate drops a cached roster.
func (c *ClassCache) Invalidate(classID string) {
	c.mu.Lock()
	delete(c.cache, classID)
	c.mu.Unlock()
}

func (c *ClassCache) lookup(classID string) (domain.Class, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.cache[classID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.Class{}, false
	}
	return entry.class, true
}

func (c *ClassCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
