package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/set-night/pocketchat/internal/domain"
	"github.com/set-night/pocketchat/internal/kvstore"
)

// SessionRepository persists session settings, keyed by session name.
type SessionRepository struct {
	store kvstore.Store
}

func NewSessionRepository(store kvstore.Store) *SessionRepository {
	return &SessionRepository{store: store}
}

// ListNames returns all session names in lexicographic order. An empty store
// yields an empty slice, never an error.
func (r *SessionRepository) ListNames(ctx context.Context) ([]string, error) {
	keys, err := r.store.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("list session keys: %w", err)
	}

	names := make([]string, 0, len(keys))
	for _, key := range keys {
		if name, ok := sessionNameFromKey(key); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (r *SessionRepository) Get(ctx context.Context, name string) (*domain.SessionSettings, error) {
	value, err := r.store.Get(ctx, sessionKey(name))
	if errors.Is(err, domain.ErrKeyNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %q: %w", name, err)
	}

	var settings domain.SessionSettings
	if err := json.Unmarshal([]byte(value), &settings); err != nil {
		return nil, fmt.Errorf("decode session %q: %w", name, err)
	}
	return &settings, nil
}

// Create persists settings under a new name. The name becomes a storage key
// segment, so it must be non-empty and slash-free. The message log is not
// initialized; it is implicitly empty until first write.
func (r *SessionRepository) Create(ctx context.Context, name string, settings domain.SessionSettings) error {
	if name == "" || strings.Contains(name, "/") {
		return domain.ErrInvalidSessionName
	}

	_, err := r.store.Get(ctx, sessionKey(name))
	if err == nil {
		return domain.ErrSessionExists
	}
	if !errors.Is(err, domain.ErrKeyNotFound) {
		return fmt.Errorf("check session %q: %w", name, err)
	}

	return r.put(ctx, name, settings)
}

// Update merges the non-nil patch fields into the existing settings. The
// session name itself is immutable.
func (r *SessionRepository) Update(ctx context.Context, name string, patch domain.SessionPatch) error {
	settings, err := r.Get(ctx, name)
	if err != nil {
		return err
	}
	patch.Apply(settings)
	return r.put(ctx, name, *settings)
}

// Delete removes the settings record and everything else stored under the
// session's namespace, including the message log. Deleting a session that
// does not exist is a no-op.
func (r *SessionRepository) Delete(ctx context.Context, name string) error {
	keys, err := r.store.ListKeys(ctx)
	if err != nil {
		return fmt.Errorf("list session keys: %w", err)
	}

	var doomed []string
	for _, key := range keys {
		if belongsToSession(key, name) {
			doomed = append(doomed, key)
		}
	}

	if err := r.store.MultiDelete(ctx, doomed); err != nil {
		return fmt.Errorf("delete session %q: %w", name, err)
	}
	return nil
}

// DeleteAll removes every session and every message log. Idempotent.
func (r *SessionRepository) DeleteAll(ctx context.Context) error {
	keys, err := r.store.ListKeys(ctx)
	if err != nil {
		return fmt.Errorf("list session keys: %w", err)
	}

	var doomed []string
	for _, key := range keys {
		if strings.HasPrefix(key, sessionPrefix) {
			doomed = append(doomed, key)
		}
	}

	if err := r.store.MultiDelete(ctx, doomed); err != nil {
		return fmt.Errorf("delete all sessions: %w", err)
	}
	return nil
}

func (r *SessionRepository) put(ctx context.Context, name string, settings domain.SessionSettings) error {
	value, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode session %q: %w", name, err)
	}
	if err := r.store.Set(ctx, sessionKey(name), string(value)); err != nil {
		return fmt.Errorf("store session %q: %w", name, err)
	}
	return nil
}
