package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/set-night/pocketchat/internal/domain"
	"github.com/set-night/pocketchat/internal/kvstore"
)

// MessageLogRepository persists a session's ordered message log as a single
// JSON blob. The log is read in full and rewritten in full on every
// mutation; there is no incremental append at the storage layer.
type MessageLogRepository struct {
	store kvstore.Store
}

func NewMessageLogRepository(store kvstore.Store) *MessageLogRepository {
	return &MessageLogRepository{store: store}
}

// Get returns the full message log in chronological order. A session with no
// log yet yields an empty slice, never an error.
func (r *MessageLogRepository) Get(ctx context.Context, name string) ([]domain.Message, error) {
	value, err := r.store.Get(ctx, messagesKey(name))
	if errors.Is(err, domain.ErrKeyNotFound) {
		return []domain.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get messages for %q: %w", name, err)
	}

	var messages []domain.Message
	if err := json.Unmarshal([]byte(value), &messages); err != nil {
		return nil, fmt.Errorf("decode messages for %q: %w", name, err)
	}
	return messages, nil
}

// GetLastN returns the last n messages, fewer if the log is shorter. The
// whole log is read regardless of n; there is no pagination cursor.
func (r *MessageLogRepository) GetLastN(ctx context.Context, name string, n int) ([]domain.Message, error) {
	messages, err := r.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []domain.Message{}, nil
	}
	if n >= len(messages) {
		return messages, nil
	}
	return messages[len(messages)-n:], nil
}

// Set replaces the stored log with the given full sequence.
func (r *MessageLogRepository) Set(ctx context.Context, name string, messages []domain.Message) error {
	if messages == nil {
		messages = []domain.Message{}
	}
	value, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode messages for %q: %w", name, err)
	}
	if err := r.store.Set(ctx, messagesKey(name), string(value)); err != nil {
		return fmt.Errorf("store messages for %q: %w", name, err)
	}
	return nil
}
