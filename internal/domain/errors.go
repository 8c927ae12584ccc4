package domain

import (
	"errors"
	"fmt"
)

var (
	ErrKeyNotFound        = errors.New("key not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExists      = errors.New("session already exists")
	ErrInvalidSessionName = errors.New("invalid session name")
	ErrModelNotFound      = errors.New("model not found")
	ErrAPIKeyNotFound     = errors.New("api key not found")
	ErrRequestInFlight    = errors.New("request already in flight")
)

// CompletionError wraps any failure of a completion request: network, auth,
// rate limiting or a malformed response. StatusCode is zero when the failure
// happened before an HTTP status was received.
type CompletionError struct {
	Model      string
	StatusCode int
	Err        error
}

func (e *CompletionError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("completion failed (model %s, status %d): %v", e.Model, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("completion failed (model %s): %v", e.Model, e.Err)
}

func (e *CompletionError) Unwrap() error {
	return e.Err
}
