package domain

// AIModel describes a model offered by the completion provider. Prices are
// USD per 1M tokens.
type AIModel struct {
	ID              string
	Name            string
	Description     string
	PromptPrice     float64
	CompletionPrice float64
	ContextLength   int
}

// IsFree reports whether the model costs nothing per token.
func (m *AIModel) IsFree() bool {
	return m.PromptPrice == 0 && m.CompletionPrice == 0
}
