package domain

import "github.com/shopspring/decimal"

// SessionUsage accumulates token counts and spend across all completed
// requests of one session.
type SessionUsage struct {
	Requests         int             `json:"requests"`
	PromptTokens     int             `json:"promptTokens"`
	CompletionTokens int             `json:"completionTokens"`
	TotalCost        decimal.Decimal `json:"totalCost"`
}

// Add folds one request's usage into the running totals.
func (u *SessionUsage) Add(promptTokens, completionTokens int, cost decimal.Decimal) {
	u.Requests++
	u.PromptTokens += promptTokens
	u.CompletionTokens += completionTokens
	u.TotalCost = u.TotalCost.Add(cost)
}
