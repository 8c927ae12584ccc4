package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/set-night/pocketchat/internal/domain"
	"github.com/set-night/pocketchat/internal/kvstore"
)

// APIKeyRepository stores one secret per completion provider, namespaced
// separately from sessions.
type APIKeyRepository struct {
	store kvstore.Store
}

func NewAPIKeyRepository(store kvstore.Store) *APIKeyRepository {
	return &APIKeyRepository{store: store}
}

func (r *APIKeyRepository) Get(ctx context.Context, provider string) (string, error) {
	key, err := r.store.Get(ctx, apiKeyKey(provider))
	if errors.Is(err, domain.ErrKeyNotFound) {
		return "", domain.ErrAPIKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get api key for %q: %w", provider, err)
	}
	return key, nil
}

func (r *APIKeyRepository) Set(ctx context.Context, provider, key string) error {
	if err := r.store.Set(ctx, apiKeyKey(provider), key); err != nil {
		return fmt.Errorf("store api key for %q: %w", provider, err)
	}
	return nil
}

func (r *APIKeyRepository) Delete(ctx context.Context, provider string) error {
	if err := r.store.Delete(ctx, apiKeyKey(provider)); err != nil {
		return fmt.Errorf("delete api key for %q: %w", provider, err)
	}
	return nil
}
