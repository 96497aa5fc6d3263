package provider

import (
	"testing"

	"github.com/go-openapi/swag"
	"github.com/stretchr/testify/assert"
)

func TestMergeOverrideReplacesSetFields(t *testing.T) {
	base := Config{APIKey: "A", BaseURL: "B"}
	merged := base.Merge(Config{APIKey: "A2"})

	assert.Equal(t, "A2", merged.APIKey)
	assert.Equal(t, "B", merged.BaseURL)
}

func TestMergeUnsetOverrideFallsThrough(t *testing.T) {
	base := Config{
		APIKey:      "key",
		BaseURL:     "https://example.test",
		Model:       "m1",
		Temperature: swag.Float64(0.7),
		MaxTokens:   swag.Int(256),
	}
	merged := base.Merge(Config{})

	assert.Equal(t, base, merged)
}

func TestMergeDoesNotMutateArguments(t *testing.T) {
	base := Config{APIKey: "A"}
	override := Config{BaseURL: "https://other.test"}
	_ = base.Merge(override)

	assert.Equal(t, Config{APIKey: "A"}, base)
	assert.Equal(t, Config{BaseURL: "https://other.test"}, override)
}

func TestMergeZeroTemperatureOverrides(t *testing.T) {
	base := Config{Temperature: swag.Float64(0.9)}
	merged := base.Merge(Config{Temperature: swag.Float64(0)})

	assert.Equal(t, 0.0, swag.Float64Value(merged.Temperature))
}

func TestFromEnvReadsPrefixedVariables(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("OPENAI_BASE_URL", "https://proxy.test/v1")
	t.Setenv("OPENAI_MODEL", "gpt-4o")
	t.Setenv("OPENAI_TEMPERATURE", "0.3")
	t.Setenv("OPENAI_MAX_TOKENS", "512")

	cfg := FromEnv("openai")

	assert.Equal(t, "sk-env", cfg.APIKey)
	assert.Equal(t, "https://proxy.test/v1", cfg.BaseURL)
	assert.Equal(t, "gpt-4o", cfg.Model)
	assert.Equal(t, 0.3, swag.Float64Value(cfg.Temperature))
	assert.Equal(t, 512, swag.IntValue(cfg.MaxTokens))
}

func TestFromEnvMissingVariablesStayUnset(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := FromEnv("anthropic")

	assert.Empty(t, cfg.APIKey)
	assert.Nil(t, cfg.Temperature)
	assert.Nil(t, cfg.MaxTokens)
}

func TestFromEnvIgnoresUnparsableNumbers(t *testing.T) {
	t.Setenv("OLLAMA_TEMPERATURE", "warm")

	cfg := FromEnv("ollama")

	assert.Nil(t, cfg.Temperature)
}
