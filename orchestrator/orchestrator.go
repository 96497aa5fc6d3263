// Package orchestrator decides, before a provider call, whether a user
// message warrants running one of the built-in tools, executes it, and
// turns the result into a single synthetic system message for the
// conversation. Classification is deterministic keyword matching, not a
// model round-trip, and tool failures are downgraded to a short note so
// the chat continues regardless.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"

	"github.com/windmark/prism/internal/cache"
	"github.com/windmark/prism/pkg/jsonx"
	"github.com/windmark/prism/pkg/slogx"
	"github.com/windmark/prism/provider"
	"github.com/windmark/prism/tool"
	"github.com/windmark/prism/tool/builtin"
)

// Result is what a tool run produced, as stored in the memo cache and
// handed to formatting.
type Result struct {
	Tool      string          `json:"tool"`
	Args      map[string]any  `json:"args"`
	Data      any             `json:"data"`
	Cached    bool            `json:"cached"`
	Timestamp strfmt.DateTime `json:"timestamp"`
}

// Orchestrator matches messages against an ordered rule list and runs
// the first matching tool, memoizing results per tool TTL.
type Orchestrator struct {
	tools tool.Registry
	memo  *cache.Cache[Result]
	rules []Rule
}

// New builds an orchestrator over the given tool registry. The memo
// cache is shared with the caller so it can be sized and closed there.
func New(tools tool.Registry, memo *cache.Cache[Result]) *Orchestrator {
	return &Orchestrator{
		tools: tools,
		memo:  memo,
		rules: DefaultRules(),
	}
}

// Classify returns the name of the tool the message would trigger and
// the extracted arguments, or ok=false when no rule matches.
func (o *Orchestrator) Classify(message string) (string, map[string]any, bool) {
	for _, rule := range o.rules {
		if _, registered := o.tools.Get(rule.Tool); !registered {
			continue
		}
		if args, ok := rule.Match(message); ok {
			return rule.Tool, args, true
		}
	}
	return "", nil, false
}

// Augment runs the classification and, on a match, executes the tool and
// returns a system message carrying its output. ok is false when no rule
// matched; execution errors never propagate and instead yield a short
// failure note, so the caller always gets at most one message to inject.
func (o *Orchestrator) Augment(ctx context.Context, message string) (provider.Message, bool) {
	name, args, ok := o.Classify(message)
	if !ok {
		return provider.Message{}, false
	}

	res, err := o.Execute(ctx, name, args)
	if err != nil {
		slog.Warn("tool execution failed", slogx.Tool(name), slogx.Error(err))
		return provider.Message{
			Role:    provider.RoleSystem,
			Content: fmt.Sprintf("The %s tool failed to run. Answer from your own knowledge and mention that live data was unavailable.", name),
		}, true
	}

	return provider.Message{
		Role:    provider.RoleSystem,
		Content: formatResult(res),
	}, true
}

// Execute runs a registered tool by name, consulting the memo cache
// first. A hit is returned with Cached set; a miss executes the tool and
// stores the result under the tool's own TTL.
func (o *Orchestrator) Execute(ctx context.Context, name string, args map[string]any) (Result, error) {
	def, ok := o.tools.Get(name)
	if !ok {
		return Result{}, fmt.Errorf("unknown tool %q", name)
	}

	key := tool.MemoKey(name, args)
	if hit, ok := o.memo.Get(key); ok {
		hit.Cached = true
		return hit, nil
	}

	data, err := def.Execute(ctx, args)
	if err != nil {
		return Result{}, fmt.Errorf("tool %s: %w", name, err)
	}

	res := Result{
		Tool:      name,
		Args:      args,
		Data:      data,
		Timestamp: strfmt.DateTime(time.Now().UTC()),
	}
	o.memo.Set(key, res, def.TTL)
	return res, nil
}

// formatResult renders a tool result for injection. Search results come
// back as an enumerated list, everything else as key: value lines under
// a one-line header naming the tool.
func formatResult(res Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Tool %s returned:\n", res.Tool)

	switch data := res.Data.(type) {
	case string:
		fmt.Fprintf(&b, "result: %s", data)
	case []builtin.SearchResult:
		for i, r := range data {
			fmt.Fprintf(&b, "%d. %s - %s\n   %s\n", i+1, r.Title, r.URL, r.Snippet)
		}
	default:
		writeKeyValues(&b, data)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeKeyValues(b *strings.Builder, data any) {
	fields, err := jsonx.ToDynamicJSON(data)
	if err != nil {
		fmt.Fprintf(b, "result: %v", data)
		return
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s: %v\n", k, fields[k])
	}
}
