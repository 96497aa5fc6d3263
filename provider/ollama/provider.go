// Package ollama implements the adapter for a self-hosted Ollama server.
// Its native chat API answers with newline-delimited JSON objects, one per
// line, flagged done:true on the final object; no API key is involved.
package ollama

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
	Name           = "ollama"
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
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

// ValidateConfig only requires a base URL; a local server needs no key.
func (p *Provider) ValidateConfig() error {
	if strings.TrimSpace(p.cfg.BaseURL) == "" {
		return &provider.ConfigError{Provider: Name, Reason: "base url is required"}
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

type chatOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  chatOptions   `json:"options"`
	Tools    []toolParam   `json:"tools,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done            bool `json:"done"`
	PromptEvalCount int  `json:"prompt_eval_count"`
	EvalCount       int  `json:"eval_count"`
}

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

	model := req.Model
	if strings.TrimSpace(model) == "" {
		model = p.cfg.Model
	}

	return json.Marshal(chatRequest{
		Model:    model,
		Messages: msgs,
		Stream:   stream,
		Options: chatOptions{
			Temperature: req.Temperature,
			NumPredict:  req.MaxTokens,
		},
		Tools: tools,
	})
}

func (p *Provider) post(ctx context.Context, body []byte, stream bool) (*http.Response, error) {
	endpoint := strings.TrimRight(p.cfg.BaseURL, "/") + "/api/chat"
	var resp *http.Response
	var err error
	if stream {
		resp, err = p.hc.PostStream(ctx, endpoint, nil, body)
	} else {
		resp, err = p.hc.Post(ctx, endpoint, nil, body)
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

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return provider.Response{}, fmt.Errorf("%s: decode response: %w", Name, err)
	}

	out := provider.Response{
		Content: parsed.Message.Content,
		Model:   parsed.Model,
	}
	if parsed.PromptEvalCount > 0 || parsed.EvalCount > 0 {
		out.Usage = &provider.Usage{
			PromptTokens:     parsed.PromptEvalCount,
			CompletionTokens: parsed.EvalCount,
			TotalTokens:      parsed.PromptEvalCount + parsed.EvalCount,
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
