package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMSection_Resolve(t *testing.T) {
	base := LLMSection{Model: "file-model", BaseURL: "https://file.test/v1", APIKey: "file-key"}

	tests := []struct {
		name string
		in   LLMSection
		o    ProviderOverrides
		want LLMSection
	}{
		{"no overrides", base, ProviderOverrides{}, base},
		{
			"flags win",
			base,
			ProviderOverrides{Model: "flag-model", APIKey: "flag-key"},
			LLMSection{Model: "flag-model", BaseURL: "https://file.test/v1", APIKey: "flag-key"},
		},
		{"default model", LLMSection{APIKey: "k"}, ProviderOverrides{}, LLMSection{Model: DefaultModel, APIKey: "k"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Resolve(tt.o))
		})
	}
}

func TestBuildProvider(t *testing.T) {
	isolate(t)

	_, err := BuildProvider(LLMSection{Model: "m"}, ProviderOverrides{}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvAPIKey)

	provider, err := BuildProvider(LLMSection{Model: "m", APIKey: "k"}, ProviderOverrides{Model: "override"}, "tabpilot-cli")
	require.NoError(t, err)
	assert.Equal(t, "override", provider.GetModelInfo().Name)
	assert.NotContains(t, provider.GetModelInfo().Metadata, "base_url")

	provider, err = BuildProvider(LLMSection{Model: "m", APIKey: "k", BaseURL: "http://localhost:1234/v1"}, ProviderOverrides{}, "")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:1234/v1", provider.GetModelInfo().Metadata["base_url"])
}
