package service

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/set-night/pocketchat/internal/config"
	"github.com/set-night/pocketchat/internal/domain"
	"github.com/set-night/pocketchat/internal/repository"
)

// StreamHandlers receives incremental events during a streaming completion.
// Any handler may be nil. OnBegin fires once before the first token, OnToken
// per delta in arrival order, OnEnd exactly once on success and OnError on
// failure.
type StreamHandlers struct {
	OnBegin func()
	OnToken func(delta string)
	OnEnd   func()
	OnError func(err error)
}

// Usage reports token counts and provider-side cost for one request.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalCost        float64
}

// Completion is the final result of one completion request.
type Completion struct {
	Message domain.Message
	Usage   Usage
}

// OpenRouterService talks to an OpenRouter-compatible chat-completions API.
// The API key is read from the key repository before every request.
type OpenRouterService struct {
	baseURL    string
	provider   string
	keys       *repository.APIKeyRepository
	httpClient *http.Client
	cache      *ModelsCache
}

func NewOpenRouterService(baseURL, provider string, keys *repository.APIKeyRepository) *OpenRouterService {
	return &OpenRouterService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		provider:   provider,
		keys:       keys,
		httpClient: &http.Client{Timeout: config.RequestTimeout},
		cache:      NewModelsCache(config.ModelCacheDuration),
	}
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int     `json:"prompt_tokens"`
		CompletionTokens int     `json:"completion_tokens"`
		TotalCost        float64 `json:"total_cost"`
	} `json:"usage"`
}

// streamChunk is one SSE data payload of a streaming response.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int     `json:"prompt_tokens"`
		CompletionTokens int     `json:"completion_tokens"`
		TotalCost        float64 `json:"total_cost"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Complete sends the ordered message list to the provider and returns the
// final response message. With streaming enabled the handlers observe every
// token delta in arrival order and the returned content equals their
// concatenation. On failure no partial message is returned.
func (s *OpenRouterService) Complete(ctx context.Context, modelName string, messages []domain.Message, streaming bool, h StreamHandlers) (*Completion, error) {
	apiKey, err := s.keys.Get(ctx, s.provider)
	if err != nil {
		return nil, s.fail(h, modelName, 0, err)
	}

	wire := make([]ChatMessage, len(messages))
	for i, m := range messages {
		wire[i] = ChatMessage{Role: wireRole(m.Role), Content: m.Content}
	}

	requestID := uuid.New().String()
	slog.Debug("completion request",
		"request_id", requestID,
		"model", modelName,
		"streaming", streaming,
		"messages", len(wire),
	)

	if streaming {
		return s.completeStreaming(ctx, apiKey, modelName, wire, h)
	}
	return s.completeOnce(ctx, apiKey, modelName, wire, h)
}

func (s *OpenRouterService) completeOnce(ctx context.Context, apiKey, modelName string, wire []ChatMessage, h StreamHandlers) (*Completion, error) {
	resp, err := s.post(ctx, apiKey, ChatRequest{Model: modelName, Messages: wire}, false)
	if err != nil {
		return nil, s.fail(h, modelName, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.fail(h, modelName, resp.StatusCode, statusError(resp))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, s.fail(h, modelName, 0, fmt.Errorf("read response: %w", err))
	}

	var chatResp ChatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, s.fail(h, modelName, 0, fmt.Errorf("parse response: %w", err))
	}
	if len(chatResp.Choices) == 0 {
		return nil, s.fail(h, modelName, 0, fmt.Errorf("empty choices in response"))
	}

	return &Completion{
		Message: domain.Message{Role: domain.RoleAI, Content: chatResp.Choices[0].Message.Content},
		Usage: Usage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
			TotalCost:        chatResp.Usage.TotalCost,
		},
	}, nil
}

func (s *OpenRouterService) completeStreaming(ctx context.Context, apiKey, modelName string, wire []ChatMessage, h StreamHandlers) (*Completion, error) {
	resp, err := s.post(ctx, apiKey, ChatRequest{Model: modelName, Messages: wire, Stream: true}, true)
	if err != nil {
		return nil, s.fail(h, modelName, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, s.fail(h, modelName, resp.StatusCode, statusError(resp))
	}

	if h.OnBegin != nil {
		h.OnBegin()
	}

	var content strings.Builder
	var usage Usage

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// SSE: only data fields matter; comments and blank lines are skipped.
		data, ok := strings.CutPrefix(line, "data:")
		if !ok {
			continue
		}
		data = strings.TrimSpace(data)
		if data == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			continue
		}
		if chunk.Error != nil {
			err := fmt.Errorf("provider error %d: %s", chunk.Error.Code, chunk.Error.Message)
			return nil, s.fail(h, modelName, chunk.Error.Code, err)
		}
		if chunk.Usage != nil {
			usage = Usage{
				PromptTokens:     chunk.Usage.PromptTokens,
				CompletionTokens: chunk.Usage.CompletionTokens,
				TotalCost:        chunk.Usage.TotalCost,
			}
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			content.WriteString(delta)
			if h.OnToken != nil {
				h.OnToken(delta)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, s.fail(h, modelName, 0, fmt.Errorf("read stream: %w", err))
	}

	if h.OnEnd != nil {
		h.OnEnd()
	}

	return &Completion{
		Message: domain.Message{Role: domain.RoleAI, Content: content.String()},
		Usage:   usage,
	}, nil
}

func (s *OpenRouterService) post(ctx context.Context, apiKey string, chatReq ChatRequest, stream bool) (*http.Response, error) {
	payload, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	return resp, nil
}

// fail notifies the error handler and wraps the cause so callers see a
// single completion-failure kind with the original error inside.
func (s *OpenRouterService) fail(h StreamHandlers, modelName string, status int, err error) error {
	cerr := &domain.CompletionError{Model: modelName, StatusCode: status, Err: err}
	if h.OnError != nil {
		h.OnError(cerr)
	}
	return cerr
}

func statusError(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return fmt.Errorf("rate limited by provider (429)")
	case http.StatusServiceUnavailable:
		return fmt.Errorf("provider unavailable (503)")
	case http.StatusUnauthorized:
		return fmt.Errorf("invalid api key (401)")
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

func wireRole(r domain.Role) string {
	switch r {
	case domain.RoleHuman:
		return "user"
	case domain.RoleAI:
		return "assistant"
	default:
		return "system"
	}
}

// ListModels returns the provider's model catalog, cached for the configured
// TTL.
func (s *OpenRouterService) ListModels(ctx context.Context) ([]domain.AIModel, error) {
	if cached := s.cache.Get(); cached != nil {
		return cached, nil
	}

	apiKey, err := s.keys.Get(ctx, s.provider)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", s.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch models: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var result struct {
		Data []struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			Description string `json:"description"`
			Pricing     struct {
				Prompt     string `json:"prompt"`
				Completion string `json:"completion"`
			} `json:"pricing"`
			ContextLength int `json:"context_length"`
			TopProvider   struct {
				ContextLength int `json:"context_length"`
			} `json:"top_provider"`
		} `json:"data"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse models: %w", err)
	}

	models := make([]domain.AIModel, 0, len(result.Data))
	for _, m := range result.Data {
		var promptPrice, completionPrice float64
		fmt.Sscanf(m.Pricing.Prompt, "%f", &promptPrice)
		fmt.Sscanf(m.Pricing.Completion, "%f", &completionPrice)

		// Prices from OpenRouter are per token, convert to per 1M tokens
		promptPrice *= 1_000_000
		completionPrice *= 1_000_000

		ctxLen := m.ContextLength
		if m.TopProvider.ContextLength > 0 {
			ctxLen = m.TopProvider.ContextLength
		}

		models = append(models, domain.AIModel{
			ID:              m.ID,
			Name:            m.Name,
			Description:     m.Description,
			PromptPrice:     promptPrice,
			CompletionPrice: completionPrice,
			ContextLength:   ctxLen,
		})
	}

	s.cache.Set(models)
	return models, nil
}

func (s *OpenRouterService) GetModel(ctx context.Context, modelID string) (*domain.AIModel, error) {
	models, err := s.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	for _, m := range models {
		if m.ID == modelID {
			return &m, nil
		}
	}
	return nil, domain.ErrModelNotFound
}
