package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/windmark/prism/provider"
)

func TestNewReturnsCompatibleAdapter(t *testing.T) {
	p := New(provider.Config{APIKey: "AIza-test"}, nil)

	assert.Equal(t, Name, p.Name())
	assert.NoError(t, p.ValidateConfig())
}

func TestKeyIsStillRequired(t *testing.T) {
	p := New(provider.Config{}, nil)

	var cerr *provider.ConfigError
	assert.ErrorAs(t, p.ValidateConfig(), &cerr)
}
