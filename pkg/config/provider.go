package config

import (
	"fmt"

	"github.com/entrhq/tabpilot/pkg/llm/openai"
)

// ProviderOverrides carries command-line values that take precedence over
// the environment and the config file.
type ProviderOverrides struct {
	Model   string
	BaseURL string
	APIKey  string
}

// Resolve merges overrides over the section: flags > environment (already
// applied by Load) > config file > defaults.
func (s LLMSection) Resolve(o ProviderOverrides) LLMSection {
	out := s
	if o.Model != "" {
		out.Model = o.Model
	}
	if o.BaseURL != "" {
		out.BaseURL = o.BaseURL
	}
	if o.APIKey != "" {
		out.APIKey = o.APIKey
	}
	if out.Model == "" {
		out.Model = DefaultModel
	}
	return out
}

// BuildProvider creates the OpenAI-compatible provider for the resolved settings.
func BuildProvider(s LLMSection, o ProviderOverrides, clientID string) (*openai.Provider, error) {
	resolved := s.Resolve(o)

	if resolved.APIKey == "" {
		return nil, fmt.Errorf("API key is required. Set %s, use --api-key, or set llm.api_key in the config file", EnvAPIKey)
	}

	opts := []openai.ProviderOption{
		openai.WithModel(resolved.Model),
	}
	if resolved.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(resolved.BaseURL))
	}
	if clientID != "" {
		opts = append(opts, openai.WithUserAgent(clientID))
	}

	provider, err := openai.NewProvider(resolved.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM provider: %w", err)
	}
	return provider, nil
}
