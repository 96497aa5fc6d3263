// Package api exposes the provider layer over HTTP: a chat endpoint that
// speaks both one-shot JSON and canonical SSE streaming, direct tool
// execution, and a fixed-window rate limit on everything but health.
package api

import (
	"time"

	"github.com/windmark/prism"
	"github.com/windmark/prism/internal/cache"
	"github.com/windmark/prism/internal/ratelimit"
	"github.com/windmark/prism/orchestrator"
	"github.com/windmark/prism/pkg/httpx"
	"github.com/windmark/prism/provider"
	"github.com/windmark/prism/tool"
	"github.com/windmark/prism/tool/builtin"
)

// Resources bundles the process-wide state the handlers need. It is
// built once at startup and passed in explicitly; nothing in this
// package reaches for globals.
type Resources struct {
	Providers prism.Registry
	Tools     tool.Registry
	Orch      *orchestrator.Orchestrator
	Memo      *cache.Cache[orchestrator.Result]
	Limiter   *ratelimit.Limiter
	HTTP      *httpx.Client
}

// NewResources wires the default bundle: a resilient HTTP client shared
// by adapters and tools, the builtin tool set, the tool memo cache, and
// whichever providers the environment has credentials for.
func NewResources(overrides map[string]provider.Config) *Resources {
	hc := httpx.Must()
	memo := cache.New[orchestrator.Result](time.Minute)
	tools := tool.NewRegistry(builtin.All(hc)...)

	return &Resources{
		Providers: prism.NewRegistry(overrides, hc),
		Tools:     tools,
		Orch:      orchestrator.New(tools, memo),
		Memo:      memo,
		Limiter:   ratelimit.New(),
		HTTP:      hc,
	}
}

// Reset clears the mutable state, so tests sharing a bundle start clean.
func (r *Resources) Reset() {
	r.Memo.Clear()
	r.Limiter.Reset()
}

// Close releases background goroutines.
func (r *Resources) Close() {
	r.Memo.Close()
}
