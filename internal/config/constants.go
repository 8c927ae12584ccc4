package config

import "time"

const (
	// ContextWindowMessages bounds how many history messages are sent per
	// completion request, independent of token counts.
	ContextWindowMessages = 20

	// AI request timeout
	RequestTimeout = 90 * time.Second

	// Model cache duration
	ModelCacheDuration = 1 * time.Hour

	// Default AI model
	DefaultModel = "z-ai/glm-4.5-air:free"
)
