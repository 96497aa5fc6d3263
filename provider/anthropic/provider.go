// Package anthropic implements the adapter for the Anthropic messages
// API. System-role messages travel in the dedicated system field, tools in
// the input_schema shape, and streamed replies arrive as typed SSE events.
package anthropic

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/windmark/prism/pkg/httpx"
	"github.com/windmark/prism/pkg/jsonx"
	"github.com/windmark/prism/pkg/stdx"
	"github.com/windmark/prism/provider"
	"github.com/windmark/prism/tool"
)

const (
	Name           = "anthropic"
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultModel   = "claude-3-5-sonnet-latest"

	apiVersion = "2023-06-01"
)

type Provider struct {
	cfg provider.Config
	hc  *httpx.Client
}

func New(cfg provider.Config, hc *httpx.Client) *Provider {
	cfg.BaseURL = stdx.Coalesce(cfg.BaseURL, DefaultBaseURL)
	cfg.Model = stdx.Coalesce(cfg.Model, DefaultModel)
	return &Provider{cfg: cfg, hc: hc}
}

func (p *Provider) Name() string { return Name }

func (p *Provider) ValidateConfig() error {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return &provider.ConfigError{Provider: Name, Reason: "api key is required"}
	}
	if !strings.HasPrefix(p.cfg.APIKey, "sk-ant-") {
		return &provider.ConfigError{Provider: Name, Reason: `api key must start with "sk-ant-"`}
	}
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type toolParam struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type messagesRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	System      string        `json:"system,omitempty"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream,omitempty"`
	Tools       []toolParam   `json:"tools,omitempty"`
}

type messagesResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage *struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// convertTools translates canonical tool definitions into this backend's
// input_schema shape. Computed before the request literal is assembled so
// the body only references the finished slice.
func convertTools(defs []tool.Definition) ([]toolParam, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	out := make([]toolParam, len(defs))
	for i, def := range defs {
		schema, err := jsonx.ToDynamicJSON(def.Parameters)
		if err != nil {
			return nil, fmt.Errorf("convert tool %s schema: %w", def.Name, err)
		}
		out[i] = toolParam{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: schema,
		}
	}
	return out, nil
}

// splitSystem separates system-role messages, which this backend takes in
// a dedicated request field, from the conversational turns. The relative
// order of the remaining turns is preserved.
func splitSystem(messages []provider.Message) ([]chatMessage, string) {
	var system []string
	out := make([]chatMessage, 0, len(messages))
	for _, m := range messages {
		if m.Role == provider.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		out = append(out, chatMessage{Role: string(m.Role), Content: m.Content})
	}
	return out, strings.Join(system, "\n\n")
}

func (p *Provider) buildBody(req provider.Request, stream bool) ([]byte, error) {
	req = req.Clamped()

	tools, err := convertTools(req.Tools)
	if err != nil {
		return nil, err
	}
	messages, system := splitSystem(req.Messages)

	model := req.Model
	if strings.TrimSpace(model) == "" {
		model = p.cfg.Model
	}

	return json.Marshal(messagesRequest{
		Model:       model,
		Messages:    messages,
		System:      system,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
		Tools:       tools,
	})
}

func (p *Provider) post(ctx context.Context, body []byte, stream bool) (*http.Response, error) {
	header := http.Header{}
	header.Set("x-api-key", p.cfg.APIKey)
	header.Set("anthropic-version", apiVersion)

	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/v1/messages"
	var resp *http.Response
	var err error
	if stream {
		header.Set("Accept", "text/event-stream")
		resp, err = p.hc.PostStream(ctx, endpoint, header, body)
	} else {
		resp, err = p.hc.Post(ctx, endpoint, header, body)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: request: %w", Name, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, provider.NewAPIError(Name, resp)
	}
	return resp, nil
}

func (p *Provider) Chat(ctx context.Context, req provider.Request) (provider.Response, error) {
	body, err := p.buildBody(req, false)
	if err != nil {
		return provider.Response{}, err
	}

	resp, err := p.post(ctx, body, false)
	if err != nil {
		return provider.Response{}, err
	}
	defer resp.Body.Close()

	var parsed messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return provider.Response{}, fmt.Errorf("%s: decode response: %w", Name, err)
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	out := provider.Response{Content: sb.String(), Model: parsed.Model}
	if parsed.Usage != nil {
		out.Usage = &provider.Usage{
			PromptTokens:     parsed.Usage.InputTokens,
			CompletionTokens: parsed.Usage.OutputTokens,
			TotalTokens:      parsed.Usage.InputTokens + parsed.Usage.OutputTokens,
		}
	}
	return out, nil
}

func (p *Provider) Stream(ctx context.Context, req provider.Request) (io.ReadCloser, error) {
	body, err := p.buildBody(req, true)
	if err != nil {
		return nil, err
	}

	resp, err := p.post(ctx, body, true)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
