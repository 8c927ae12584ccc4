package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/set-night/pocketchat/internal/domain"
	"github.com/set-night/pocketchat/internal/kvstore"
)

// UsageRepository persists per-session usage totals under the session's
// namespace, so deleting the session removes them too.
type UsageRepository struct {
	store kvstore.Store
}

func NewUsageRepository(store kvstore.Store) *UsageRepository {
	return &UsageRepository{store: store}
}

// Get returns the usage totals for a session, zero totals when none were
// recorded yet.
func (r *UsageRepository) Get(ctx context.Context, name string) (*domain.SessionUsage, error) {
	value, err := r.store.Get(ctx, usageKey(name))
	if errors.Is(err, domain.ErrKeyNotFound) {
		return &domain.SessionUsage{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get usage for %q: %w", name, err)
	}

	var usage domain.SessionUsage
	if err := json.Unmarshal([]byte(value), &usage); err != nil {
		return nil, fmt.Errorf("decode usage for %q: %w", name, err)
	}
	return &usage, nil
}

func (r *UsageRepository) Set(ctx context.Context, name string, usage domain.SessionUsage) error {
	value, err := json.Marshal(usage)
	if err != nil {
		return fmt.Errorf("encode usage for %q: %w", name, err)
	}
	if err := r.store.Set(ctx, usageKey(name), string(value)); err != nil {
		return fmt.Errorf("store usage for %q: %w", name, err)
	}
	return nil
}
