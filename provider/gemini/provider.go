// Package gemini adapts Google's models through their OpenAI-compatible
// endpoint. It is a thin convenience wrapper over the openai adapter with
// Google defaults, so the wire handling lives in exactly one place.
package gemini

import (
	"github.com/windmark/prism/pkg/httpx"
	"github.com/windmark/prism/pkg/stdx"
	"github.com/windmark/prism/provider"
	"github.com/windmark/prism/provider/openai"
)

const (
	Name           = "gemini"
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"
	DefaultModel   = "gemini-2.0-flash"
)

// New builds the Google adapter. The returned provider reports Name as
// "gemini" and speaks the OpenAI-compatible dialect.
func New(cfg provider.Config, hc *httpx.Client) *openai.Provider {
	cfg.BaseURL = stdx.Coalesce(cfg.BaseURL, DefaultBaseURL)
	cfg.Model = stdx.Coalesce(cfg.Model, DefaultModel)
	return openai.NewCompatible(Name, cfg, hc)
}
