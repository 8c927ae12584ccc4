package service

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/set-night/pocketchat/internal/config"
	"github.com/set-night/pocketchat/internal/domain"
	"github.com/set-night/pocketchat/internal/repository"
)

// ChatState is the controller's request lifecycle state.
type ChatState int

const (
	StateIdle ChatState = iota
	StateSending
	StateError
)

func (s ChatState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// CompletionClient is the slice of the provider client the controller needs.
type CompletionClient interface {
	Complete(ctx context.Context, modelName string, messages []domain.Message, streaming bool, h StreamHandlers) (*Completion, error)
}

// ChatSession orchestrates one open conversation: it owns the in-memory
// message log, drives the completion client and keeps the ephemeral
// streaming state shown while a response is being generated.
//
// At most one request is in flight at a time; submitting while Sending is
// rejected with domain.ErrRequestInFlight.
type ChatSession struct {
	name     string
	settings domain.SessionSettings
	logs     *repository.MessageLogRepository
	client   CompletionClient
	tracker  *UsageTracker // optional

	mu         sync.Mutex
	state      ChatState
	lastErr    error
	log        []domain.Message
	streamed   strings.Builder
	generating bool
	tokenFn    func(delta string)
}

// OpenChatSession loads the session's settings and message log and returns a
// controller for it. Fails with domain.ErrSessionNotFound when the session
// was never created.
func OpenChatSession(ctx context.Context, name string, sessions *repository.SessionRepository, logs *repository.MessageLogRepository, client CompletionClient, tracker *UsageTracker) (*ChatSession, error) {
	settings, err := sessions.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	log, err := logs.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return &ChatSession{
		name:     name,
		settings: *settings,
		logs:     logs,
		client:   client,
		tracker:  tracker,
		log:      log,
	}, nil
}

func (c *ChatSession) Name() string { return c.name }

func (c *ChatSession) Settings() domain.SessionSettings { return c.settings }

func (c *ChatSession) State() ChatState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the failure that put the session into StateError, nil
// otherwise.
func (c *ChatSession) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateError {
		return nil
	}
	return c.lastErr
}

// OnToken registers a listener invoked for every streamed delta, in arrival
// order, while a request is in flight. Intended for live display.
func (c *ChatSession) OnToken(fn func(delta string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenFn = fn
}

// Generating reports whether the provider is actively producing tokens,
// toggled by the stream's begin and end events. It is a narrower signal than
// StateSending, which also covers the persistence around the provider call.
func (c *ChatSession) Generating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generating
}

// StreamedText returns the tokens accumulated for the in-flight response.
func (c *ChatSession) StreamedText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streamed.String()
}

// Transcript returns the persisted log plus, while a response is streaming
// in, a synthetic trailing AI entry holding the tokens so far. The synthetic
// entry is never persisted.
func (c *ChatSession) Transcript() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := slices.Clone(c.log)
	if c.state == StateSending && c.streamed.Len() > 0 {
		out = append(out, domain.Message{Role: domain.RoleAI, Content: c.streamed.String()})
	}
	return out
}

// Send submits one human message and returns the AI response.
//
// The human turn is appended and persisted before the provider is called, so
// it survives a failed generation; the user retries by resubmitting. On
// failure the AI turn is never persisted and the session moves to
// StateError. Cancelling ctx aborts the request best-effort; the remote
// generation may still finish server-side.
func (c *ChatSession) Send(ctx context.Context, content string) (domain.Message, error) {
	c.mu.Lock()
	if c.state == StateSending {
		c.mu.Unlock()
		return domain.Message{}, domain.ErrRequestInFlight
	}
	c.state = StateSending
	c.lastErr = nil
	c.streamed.Reset()

	c.log = append(c.log, domain.Message{Role: domain.RoleHuman, Content: content})
	snapshot := slices.Clone(c.log)
	c.mu.Unlock()

	if err := c.logs.Set(ctx, c.name, snapshot); err != nil {
		return domain.Message{}, c.fail(err)
	}

	request := c.buildRequest(snapshot)

	handlers := StreamHandlers{
		OnBegin: func() {
			c.mu.Lock()
			c.generating = true
			c.mu.Unlock()
		},
		OnEnd: func() {
			c.mu.Lock()
			c.generating = false
			c.mu.Unlock()
		},
		OnToken: func(delta string) {
			c.mu.Lock()
			c.streamed.WriteString(delta)
			fn := c.tokenFn
			c.mu.Unlock()
			if fn != nil {
				fn(delta)
			}
		},
		OnError: func(err error) {
			slog.Debug("stream error", "session", c.name, "error", err)
		},
	}

	completion, err := c.client.Complete(ctx, c.settings.ModelName, request, c.settings.Streaming, handlers)
	if err != nil {
		return domain.Message{}, c.fail(err)
	}

	ai := completion.Message
	ai.Role = domain.RoleAI

	c.mu.Lock()
	c.log = append(c.log, ai)
	snapshot = slices.Clone(c.log)
	c.mu.Unlock()

	if err := c.logs.Set(ctx, c.name, snapshot); err != nil {
		return domain.Message{}, c.fail(err)
	}

	if c.tracker != nil {
		if err := c.tracker.Record(ctx, c.name, c.settings.ModelName, completion.Usage); err != nil {
			slog.Error("record usage", "session", c.name, "error", err)
		}
	}

	c.mu.Lock()
	c.state = StateIdle
	c.generating = false
	c.streamed.Reset()
	c.mu.Unlock()

	return ai, nil
}

// buildRequest bounds the context to the last ContextWindowMessages turns
// and prepends the system prompt when one is set. The system message is
// synthesized per request, never stored in the log.
func (c *ChatSession) buildRequest(log []domain.Message) []domain.Message {
	window := log
	if len(window) > config.ContextWindowMessages {
		window = window[len(window)-config.ContextWindowMessages:]
	}

	request := make([]domain.Message, 0, len(window)+1)
	if c.settings.SystemPrompt != "" {
		request = append(request, domain.Message{Role: domain.RoleSystem, Content: c.settings.SystemPrompt})
	}
	return append(request, window...)
}

func (c *ChatSession) fail(err error) error {
	c.mu.Lock()
	c.state = StateError
	c.lastErr = err
	c.generating = false
	c.streamed.Reset()
	c.mu.Unlock()
	return err
}
