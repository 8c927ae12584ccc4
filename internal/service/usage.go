package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/set-night/pocketchat/internal/domain"
	"github.com/set-night/pocketchat/internal/repository"
	"github.com/shopspring/decimal"
)

// ModelResolver resolves a model identifier to its catalog entry, for
// pricing.
type ModelResolver interface {
	GetModel(ctx context.Context, modelID string) (*domain.AIModel, error)
}

// UsageTracker accumulates per-session token counts and spend after each
// completed request.
type UsageTracker struct {
	usage  *repository.UsageRepository
	models ModelResolver
}

func NewUsageTracker(usage *repository.UsageRepository, models ModelResolver) *UsageTracker {
	return &UsageTracker{usage: usage, models: models}
}

// Record folds one request's usage into the session totals. When the
// provider reported no cost, it is derived from the catalog prices; an
// unresolvable model only loses the cost figure, never the token counts.
func (t *UsageTracker) Record(ctx context.Context, sessionName, modelName string, u Usage) error {
	cost := decimal.Zero
	if u.TotalCost > 0 {
		cost = decimal.NewFromFloat(u.TotalCost)
	} else if t.models != nil {
		model, err := t.models.GetModel(ctx, modelName)
		switch {
		case err == nil:
			cost = CalculateCost(u.PromptTokens, u.CompletionTokens, model.PromptPrice, model.CompletionPrice)
		case errors.Is(err, domain.ErrModelNotFound):
			slog.Debug("model not in catalog, recording tokens only", "model", modelName)
		default:
			slog.Debug("model lookup failed, recording tokens only", "model", modelName, "error", err)
		}
	}

	totals, err := t.usage.Get(ctx, sessionName)
	if err != nil {
		return err
	}
	totals.Add(u.PromptTokens, u.CompletionTokens, cost)

	if err := t.usage.Set(ctx, sessionName, *totals); err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// Totals returns the accumulated usage for a session.
func (t *UsageTracker) Totals(ctx context.Context, sessionName string) (*domain.SessionUsage, error) {
	return t.usage.Get(ctx, sessionName)
}

// CalculateCost prices a request from token counts. Prices are USD per 1M
// tokens.
func CalculateCost(promptTokens, completionTokens int, promptPrice, completionPrice float64) decimal.Decimal {
	promptCost := decimal.NewFromFloat(float64(promptTokens) * promptPrice / 1_000_000)
	completionCost := decimal.NewFromFloat(float64(completionTokens) * completionPrice / 1_000_000)
	return promptCost.Add(completionCost)
}
