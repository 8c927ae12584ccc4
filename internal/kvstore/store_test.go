package kvstore

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"testing"

	"github.com/set-night/pocketchat/internal/domain"
	_ "modernc.org/sqlite"
)

// testStores returns every Store implementation under test.
func testStores(t *testing.T) map[string]Store {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("CREATE TABLE kv (key TEXT PRIMARY KEY, value TEXT NOT NULL)"); err != nil {
		t.Fatalf("create table: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return map[string]Store{
		"sqlite": NewSQLite(db),
		"memory": NewMemory(),
	}
}

func TestStore_SetGet(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Set(ctx, "a", "1"); err != nil {
				t.Fatalf("set: %v", err)
			}
			got, err := store.Get(ctx, "a")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got != "1" {
				t.Errorf("got %q, want %q", got, "1")
			}

			// Overwrite
			if err := store.Set(ctx, "a", "2"); err != nil {
				t.Fatalf("set: %v", err)
			}
			got, err = store.Get(ctx, "a")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			if got != "2" {
				t.Errorf("after overwrite got %q, want %q", got, "2")
			}

			// Empty value is not absence
			if err := store.Set(ctx, "empty", ""); err != nil {
				t.Fatalf("set: %v", err)
			}
			if got, err := store.Get(ctx, "empty"); err != nil || got != "" {
				t.Errorf("empty value: got %q, %v; want empty string, nil", got, err)
			}
		})
	}
}

func TestStore_GetAbsent(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "missing")
			if !errors.Is(err, domain.ErrKeyNotFound) {
				t.Errorf("got %v, want ErrKeyNotFound", err)
			}
		})
	}
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Set(ctx, "a", "1"); err != nil {
				t.Fatalf("set: %v", err)
			}
			if err := store.Delete(ctx, "a"); err != nil {
				t.Fatalf("delete: %v", err)
			}
			if _, err := store.Get(ctx, "a"); !errors.Is(err, domain.ErrKeyNotFound) {
				t.Errorf("got %v, want ErrKeyNotFound", err)
			}
			// Idempotent
			if err := store.Delete(ctx, "a"); err != nil {
				t.Errorf("second delete: %v", err)
			}
		})
	}
}

func TestStore_MultiDelete(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"a", "b", "c"} {
				if err := store.Set(ctx, key, "x"); err != nil {
					t.Fatalf("set: %v", err)
				}
			}
			if err := store.MultiDelete(ctx, []string{"a", "c", "never-existed"}); err != nil {
				t.Fatalf("multi delete: %v", err)
			}
			keys, err := store.ListKeys(ctx)
			if err != nil {
				t.Fatalf("list keys: %v", err)
			}
			if len(keys) != 1 || keys[0] != "b" {
				t.Errorf("got %v, want [b]", keys)
			}
			// Empty key set is a no-op
			if err := store.MultiDelete(ctx, nil); err != nil {
				t.Errorf("empty multi delete: %v", err)
			}
		})
	}
}

func TestStore_ListKeys(t *testing.T) {
	ctx := context.Background()
	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			keys, err := store.ListKeys(ctx)
			if err != nil {
				t.Fatalf("list keys on empty store: %v", err)
			}
			if len(keys) != 0 {
				t.Errorf("empty store: got %v", keys)
			}

			want := []string{"api_keys/openrouter", "sessions/a", "sessions/a/messages"}
			for _, key := range want {
				if err := store.Set(ctx, key, "x"); err != nil {
					t.Fatalf("set: %v", err)
				}
			}
			keys, err = store.ListKeys(ctx)
			if err != nil {
				t.Fatalf("list keys: %v", err)
			}
			sort.Strings(keys)
			if len(keys) != len(want) {
				t.Fatalf("got %v, want %v", keys, want)
			}
			for i := range want {
				if keys[i] != want[i] {
					t.Errorf("key %d: got %q, want %q", i, keys[i], want[i])
				}
			}
		})
	}
}
