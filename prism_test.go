package prism

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windmark/prism/provider"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, id := range ProviderIDs {
		for _, suffix := range []string{"_API_KEY", "_BASE_URL", "_MODEL"} {
			t.Setenv(envName(id)+suffix, "")
		}
	}
}

func envName(id string) string {
	out := make([]byte, len(id))
	for i := 0; i < len(id); i++ {
		out[i] = id[i] &^ 0x20
	}
	return string(out)
}

func TestNewProviderKnownIdentifiers(t *testing.T) {
	cases := map[string]provider.Config{
		"openai":      {APIKey: "sk-test"},
		"anthropic":   {APIKey: "sk-ant-test"},
		"gemini":      {APIKey: "AIza-test"},
		"ollama":      {},
		"huggingface": {APIKey: "hf_test"},
	}
	for id, cfg := range cases {
		p, err := NewProvider(id, cfg, nil)
		require.NoError(t, err, id)
		assert.Equal(t, id, p.Name())
	}
}

func TestNewProviderRejectsUnknownIdentifier(t *testing.T) {
	_, err := NewProvider("cohere", provider.Config{APIKey: "x"}, nil)
	require.ErrorIs(t, err, provider.ErrUnknownProvider)
}

func TestNewProviderValidatesAtConstruction(t *testing.T) {
	_, err := NewProvider("openai", provider.Config{}, nil)
	require.Error(t, err)

	var cerr *provider.ConfigError
	assert.ErrorAs(t, err, &cerr)
}

func TestNewRegistrySkipsUnconfiguredProviders(t *testing.T) {
	clearProviderEnv(t)

	r := NewRegistry(map[string]provider.Config{
		"openai": {APIKey: "sk-test"},
	}, nil)

	_, ok := r.Get("openai")
	assert.True(t, ok)
	_, ok = r.Get("ollama") // needs no key, default base URL suffices
	assert.True(t, ok)
	_, ok = r.Get("anthropic")
	assert.False(t, ok)
}

func TestNewRegistryOverrideBeatsEnv(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-from-env")

	r := NewRegistry(map[string]provider.Config{
		"openai": {APIKey: "sk-from-override"},
	}, nil)

	_, ok := r.Get("openai")
	require.True(t, ok)
}
