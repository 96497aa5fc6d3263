// Package prism wires the provider adapters, the streaming normalizer
// and the tool orchestrator into one constructor surface. The packages
// underneath are independently usable; this package only does the
// dispatch and default plumbing.
package prism

import (
	"fmt"

	"github.com/windmark/prism/internal/registry"
	"github.com/windmark/prism/pkg/httpx"
	"github.com/windmark/prism/provider"
	"github.com/windmark/prism/provider/anthropic"
	"github.com/windmark/prism/provider/gemini"
	"github.com/windmark/prism/provider/huggingface"
	"github.com/windmark/prism/provider/ollama"
	"github.com/windmark/prism/provider/openai"
)

// ProviderIDs lists the provider identifiers NewProvider accepts, in
// the order they are documented.
var ProviderIDs = []string{
	openai.Name,
	anthropic.Name,
	gemini.Name,
	ollama.Name,
	huggingface.Name,
}

// NewProvider resolves a provider identifier to a constructed adapter.
// The identifier set is closed: anything outside ProviderIDs fails with
// ErrUnknownProvider. The adapter's configuration is validated here, at
// construction, so a misconfigured provider never reaches a request.
func NewProvider(id string, cfg provider.Config, hc *httpx.Client) (provider.Provider, error) {
	if hc == nil {
		hc = httpx.Must()
	}

	var p provider.Provider
	switch id {
	case openai.Name:
		p = openai.New(cfg, hc)
	case anthropic.Name:
		p = anthropic.New(cfg, hc)
	case gemini.Name:
		p = gemini.New(cfg, hc)
	case ollama.Name:
		p = ollama.New(cfg, hc)
	case huggingface.Name:
		p = huggingface.New(cfg, hc)
	default:
		return nil, fmt.Errorf("%w: %q", provider.ErrUnknownProvider, id)
	}

	if err := p.ValidateConfig(); err != nil {
		return nil, err
	}
	return p, nil
}

// Registry is a named collection of constructed providers.
type Registry = registry.Registry[provider.Provider]

// NewRegistry constructs and validates one provider per identifier,
// layering each per-provider override on top of its environment
// defaults. Identifiers that fail validation are skipped rather than
// aborting the whole set, so one missing API key does not take down the
// providers that are configured.
func NewRegistry(overrides map[string]provider.Config, hc *httpx.Client) Registry {
	r := registry.New[provider.Provider]()
	for _, id := range ProviderIDs {
		cfg := provider.FromEnv(id).Merge(overrides[id])
		p, err := NewProvider(id, cfg, hc)
		if err != nil {
			continue
		}
		r.Add(id, p)
	}
	return r
}
