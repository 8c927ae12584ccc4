// Package kvstore provides the flat, string-keyed persistent store the
// repositories are built on. Keys are namespaced by convention
// ("sessions/{name}", "sessions/{name}/messages", "api_keys/{provider}");
// the store itself knows nothing about namespaces.
package kvstore

import "context"

// Store is a flat key-value store. Get returns domain.ErrKeyNotFound for an
// absent key so callers can tell absent from empty. Delete and MultiDelete
// are idempotent.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	MultiDelete(ctx context.Context, keys []string) error
	ListKeys(ctx context.Context) ([]string, error)
}
