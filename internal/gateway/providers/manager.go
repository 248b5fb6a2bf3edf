package providers

import (
	"fmt"
	"strings"

	"github.com/rocodehq/rocode-gateway/internal/shared/config"
)

// Manager resolves which provider serves a given model. Model selection
// itself belongs to the optimizer's router; this only maps model id to
// provider client.
type Manager struct {
	providers map[string]Provider
}

// NewManager creates a new provider manager
func NewManager(cfg *config.Config) *Manager {
	m := &Manager{
		providers: make(map[string]Provider),
	}

	// Initialize providers based on available API keys
	if cfg.AnthropicAPIKey != "" {
		m.providers["anthropic"] = NewAnthropicProvider(cfg.AnthropicAPIKey)
	}
	if cfg.OpenAIAPIKey != "" {
		m.providers["openai"] = NewOpenAIProvider(cfg.OpenAIAPIKey)
	}

	return m
}

// GetProvider returns the provider for a given model
func (m *Manager) GetProvider(model string) (Provider, string, error) {
	providerName := detectProvider(model)
	if providerName == "" {
		return nil, "", fmt.Errorf("unknown model: %s", model)
	}

	provider, ok := m.providers[providerName]
	if !ok {
		return nil, "", fmt.Errorf("provider %s not configured (check API key)", providerName)
	}

	return provider, providerName, nil
}

// detectProvider determines which provider a model belongs to
func detectProvider(model string) string {
	if strings.HasPrefix(model, "claude-") {
		return "anthropic"
	}
	if strings.HasPrefix(model, "gpt-") {
		return "openai"
	}
	return ""
}
