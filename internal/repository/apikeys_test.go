package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/set-night/pocketchat/internal/domain"
	"github.com/set-night/pocketchat/internal/kvstore"
)

func TestAPIKeyRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAPIKeyRepository(kvstore.NewMemory())

	if _, err := repo.Get(ctx, "openrouter"); !errors.Is(err, domain.ErrAPIKeyNotFound) {
		t.Errorf("got %v, want ErrAPIKeyNotFound", err)
	}

	if err := repo.Set(ctx, "openrouter", "sk-or-123"); err != nil {
		t.Fatalf("set: %v", err)
	}
	key, err := repo.Get(ctx, "openrouter")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if key != "sk-or-123" {
		t.Errorf("got %q, want %q", key, "sk-or-123")
	}

	// Providers are independent.
	if _, err := repo.Get(ctx, "openai"); !errors.Is(err, domain.ErrAPIKeyNotFound) {
		t.Errorf("got %v, want ErrAPIKeyNotFound", err)
	}

	if err := repo.Delete(ctx, "openrouter"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(ctx, "openrouter"); !errors.Is(err, domain.ErrAPIKeyNotFound) {
		t.Errorf("after delete: got %v, want ErrAPIKeyNotFound", err)
	}
}
