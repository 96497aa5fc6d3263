// Package tool models named, schema-described callables that can be
// declared to a provider and executed locally before a model call.
package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fogfish/opts"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	"github.com/windmark/prism/internal/registry"
	"github.com/windmark/prism/pkg/stdx"
)

// Executor is the function behind a tool. Arguments arrive as a decoded
// JSON object; the result must be JSON-serializable.
type Executor func(ctx context.Context, args map[string]any) (any, error)

// Definition describes one tool: its unique name, a human-readable
// description the model sees, a JSON schema for its arguments, how long
// its results stay fresh, and the function that runs it.
type Definition struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	TTL         time.Duration
	Execute     Executor
}

// Option configures a Definition.
type Option = opts.Option[Definition]

var (
	Description = opts.ForName[Definition, string]("Description")
	Parameters  = opts.ForName[Definition, *jsonschema.Schema]("Parameters")
	TTL         = opts.ForName[Definition, time.Duration]("TTL")
)

// New creates a tool definition from a name, an executor and options.
func New(name string, execute Executor, options ...Option) (Definition, error) {
	if strings.TrimSpace(name) == "" {
		return Definition{}, fmt.Errorf("tool name is required")
	}
	if execute == nil {
		return Definition{}, fmt.Errorf("tool %s has no executor", name)
	}

	var def Definition
	if err := opts.Apply(&def, options); err != nil {
		return Definition{}, err
	}
	def.Name = name
	def.Execute = execute
	if def.Parameters == nil {
		def.Parameters = ObjectSchema()
	}
	return def, nil
}

// Must wraps New and panics on an invalid definition. Intended for
// building the fixed tool set at startup.
func Must(name string, execute Executor, options ...Option) Definition {
	return stdx.Must1(New(name, execute, options...))
}

// Property describes one named parameter in an object schema.
type Property struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// ObjectSchema builds the parameter schema for a tool from its properties,
// preserving declaration order.
func ObjectSchema(props ...Property) *jsonschema.Schema {
	schema := &jsonschema.Schema{
		Type:       "object",
		Properties: orderedmap.New[string, *jsonschema.Schema](),
	}
	for _, p := range props {
		schema.Properties.Set(p.Name, &jsonschema.Schema{
			Type:        p.Type,
			Description: p.Description,
		})
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return schema
}

// Registry is a named collection of tool definitions.
type Registry = registry.Registry[Definition]

// NewRegistry builds a registry from the given definitions.
func NewRegistry(defs ...Definition) Registry {
	r := registry.New[Definition]()
	for _, def := range defs {
		r.Add(def.Name, def)
	}
	return r
}

// MemoKey derives the deterministic memoization key for a tool invocation
// from the tool name and its normalized arguments: keys sorted, values
// trimmed and lowercased, so equivalent invocations collide.
func MemoKey(name string, args map[string]any) string {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(name)
	for _, k := range keys {
		sb.WriteByte(':')
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(strings.ToLower(strings.TrimSpace(fmt.Sprint(args[k]))))
	}
	return sb.String()
}
