package service

import (
	"sync"
	"time"

	"github.com/set-night/pocketchat/internal/domain"
)

// ModelsCache keeps the provider's model catalog for a bounded time so the
// client does not refetch it on every request.
type ModelsCache struct {
	mu      sync.RWMutex
	models  []domain.AIModel
	expires time.Time
	ttl     time.Duration
}

func NewModelsCache(ttl time.Duration) *ModelsCache {
	return &ModelsCache{ttl: ttl}
}

// Get returns the cached catalog, or nil when empty or expired.
func (c *ModelsCache) Get() []domain.AIModel {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.models == nil || time.Now().After(c.expires) {
		return nil
	}
	return c.models
}

func (c *ModelsCache) Set(models []domain.AIModel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.models = models
	c.expires = time.Now().Add(c.ttl)
}
