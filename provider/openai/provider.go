// Package openai implements the adapter for the OpenAI chat completions
// API and for every backend speaking the same wire dialect. Other
// OpenAI-compatible providers reuse it through NewCompatible instead of
// duplicating the request construction.
package openai

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
	Name           = "openai"
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"

	GPT4o     = "gpt-4o"
	GPT4oMini = "gpt-4o-mini"
	O3Mini    = "o3-mini"
)

type Provider struct {
	name   string
	strict bool // enforce the sk- key prefix
	cfg    provider.Config
	hc     *httpx.Client
}

// New builds the adapter for api.openai.com.
func New(cfg provider.Config, hc *httpx.Client) *Provider {
	cfg.BaseURL = stdx.Coalesce(cfg.BaseURL, DefaultBaseURL)
	cfg.Model = stdx.Coalesce(cfg.Model, DefaultModel)
	return &Provider{name: Name, strict: true, cfg: cfg, hc: hc}
}

// NewCompatible builds the same adapter under a different provider name,
// for backends exposing an OpenAI-compatible endpoint. Key format checks
// are relaxed to non-empty, since compatible backends issue their own key
// shapes.
func NewCompatible(name string, cfg provider.Config, hc *httpx.Client) *Provider {
	return &Provider{name: name, cfg: cfg, hc: hc}
}

func (p *Provider) Name() string { return p.name }

func (p *Provider) ValidateConfig() error {
	if strings.TrimSpace(p.cfg.APIKey) == "" {
		return &provider.ConfigError{Provider: p.name, Reason: "api key is required"}
	}
	if p.strict && !strings.HasPrefix(p.cfg.APIKey, "sk-") {
		return &provider.ConfigError{Provider: p.name, Reason: `api key must start with "sk-"`}
	}
	if strings.TrimSpace(p.cfg.BaseURL) == "" {
		return &provider.ConfigError{Provider: p.name, Reason: "base url is required"}
	}
	return nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type toolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type toolParam struct {
	Type     string       `json:"type"`
	Function toolFunction `json:"function"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream,omitempty"`
	Tools       []toolParam   `json:"tools,omitempty"`
	ToolChoice  string        `json:"tool_choice,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage *provider.Usage `json:"usage"`
}

// convertTools translates canonical tool definitions into the function
// calling shape this dialect expects. It runs as its own step so the body
// literal only references the finished slice.
func convertTools(defs []tool.Definition) ([]toolParam, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	out := make([]toolParam, len(defs))
	for i, def := range defs {
		params, err := jsonx.ToDynamicJSON(def.Parameters)
		if err != nil {
			return nil, fmt.Errorf("convert tool %s schema: %w", def.Name, err)
		}
		out[i] = toolParam{
			Type: "function",
			Function: toolFunction{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  params,
			},
		}
	}
	return out, nil
}

func (p *Provider) buildBody(req provider.Request, stream bool) ([]byte, error) {
	req = req.Clamped()

	tools, err := convertTools(req.Tools)
	if err != nil {
		return nil, err
	}

	msgs := make([]chatMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = chatMessage{Role: string(m.Role), Content: m.Content}
	}

	return json.Marshal(chatRequest{
		Model:       p.resolveModel(req.Model),
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		Stream:      stream,
		Tools:       tools,
		ToolChoice:  req.ToolChoice,
	})
}

func (p *Provider) resolveModel(override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return p.cfg.Model
}

func (p *Provider) endpoint() string {
	return strings.TrimRight(p.cfg.BaseURL, "/") + "/chat/completions"
}

func (p *Provider) post(ctx context.Context, body []byte, stream bool) (*http.Response, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	var resp *http.Response
	var err error
	if stream {
		header.Set("Accept", "text/event-stream")
		resp, err = p.hc.PostStream(ctx, p.endpoint(), header, body)
	} else {
		resp, err = p.hc.Post(ctx, p.endpoint(), header, body)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: request: %w", p.name, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, provider.NewAPIError(p.name, resp)
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

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return provider.Response{}, fmt.Errorf("%s: decode response: %w", p.name, err)
	}
	if len(parsed.Choices) == 0 {
		return provider.Response{}, fmt.Errorf("%s: response carried no choices", p.name)
	}

	return provider.Response{
		Content: parsed.Choices[0].Message.Content,
		Model:   parsed.Model,
		Usage:   parsed.Usage,
	}, nil
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
