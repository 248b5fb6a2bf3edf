package providers

import "context"

// Completion is the result of one upstream LLM call. Token counts are the
// provider-reported values, used for cache storage and budget recording.
type Completion struct {
	Text         string `json:"text"`
	InputTokens  int    `json:"inputTokens"`
	OutputTokens int    `json:"outputTokens"`
	LatencyMs    int    `json:"latencyMs"`
}

// Provider is the black-box LLM capability: generate a completion given
// model id, system prompt, user prompt and an output token cap.
type Provider interface {
	Complete(ctx context.Context, model, systemPrompt, userPrompt string, maxTokens int) (*Completion, error)
	ValidateModel(model string) bool
	GetProviderName() string
}
