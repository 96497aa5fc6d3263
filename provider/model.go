package provider

import (
	"context"
	"io"

	"github.com/windmark/prism/tool"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn in a conversation. Order within a request is
// chronological and must be preserved when translating for a backend.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is the canonical chat request every adapter understands.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
	Model       string
	Tools       []tool.Definition
	ToolChoice  string
}

const (
	MinTemperature = 0.0
	MaxTemperature = 2.0
	MinMaxTokens   = 1
	MaxMaxTokens   = 4000
)

// Clamped returns a copy of the request with temperature and max tokens
// forced into their documented ranges.
func (r Request) Clamped() Request {
	if r.Temperature < MinTemperature {
		r.Temperature = MinTemperature
	}
	if r.Temperature > MaxTemperature {
		r.Temperature = MaxTemperature
	}
	if r.MaxTokens < MinMaxTokens {
		r.MaxTokens = MinMaxTokens
	}
	if r.MaxTokens > MaxMaxTokens {
		r.MaxTokens = MaxMaxTokens
	}
	return r
}

// Usage reports token accounting when the backend provides it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the canonical one-shot chat reply.
type Response struct {
	Content string `json:"content"`
	Model   string `json:"model,omitempty"`
	Usage   *Usage `json:"usage,omitempty"`
}

// DeltaChunk is one incremental fragment of a streamed reply. A stream is
// a finite sequence of chunks in which Done is true exactly once, on the
// last element.
type DeltaChunk struct {
	Content string `json:"content"`
	Done    bool   `json:"done"`
	Model   string `json:"model,omitempty"`
}

// Provider is the adapter abstraction over one upstream LLM backend.
// Implementations are stateless beyond their resolved configuration and
// are constructed fresh per request.
type Provider interface {
	// Name returns the provider identifier, e.g. "openai".
	Name() string

	// ValidateConfig checks structural validity of the adapter's
	// configuration without any network call.
	ValidateConfig() error

	// Chat issues a single blocking completion call.
	Chat(ctx context.Context, req Request) (Response, error)

	// Stream issues the same call with streaming enabled and returns the
	// raw response body for the stream normalizer to consume.
	Stream(ctx context.Context, req Request) (io.ReadCloser, error)
}
