// Package huggingface implements the adapter for text-generation-inference
// style endpoints. The request carries a flattened prompt, and streamed
// replies deliver token.text frames, sometimes followed by the full
// generated_text which downstream normalization diffs against what it
// already emitted. Function calling is not part of this dialect, so tool
// declarations are dropped.
package huggingface

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/tidwall/gjson"
	"github.com/windmark/prism/pkg/httpx"
	"github.com/windmark/prism/pkg/stdx"
	"github.com/windmark/prism/provider"
)

const (
	Name           = "huggingface"
	DefaultBaseURL = "https://api-inference.huggingface.co/models"
	DefaultModel   = "mistralai/Mistral-7B-Instruct-v0.3"
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
	if !strings.HasPrefix(p.cfg.APIKey, "hf_") {
		return &provider.ConfigError{Provider: Name, Reason: `api key must start with "hf_"`}
	}
	return nil
}

type generateParameters struct {
	Temperature  float64 `json:"temperature"`
	MaxNewTokens int     `json:"max_new_tokens"`
	ReturnText   bool    `json:"return_full_text"`
}

type generateRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters generateParameters `json:"parameters"`
	Stream     bool               `json:"stream,omitempty"`
}

// flattenPrompt folds the ordered conversation into a single prompt,
// labelling each turn with its role. Order is preserved.
func flattenPrompt(messages []provider.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		sb.WriteString(string(m.Role))
		sb.WriteString(": ")
		sb.WriteString(m.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("assistant: ")
	return sb.String()
}

func (p *Provider) buildBody(req provider.Request, stream bool) ([]byte, error) {
	req = req.Clamped()

	return json.Marshal(generateRequest{
		Inputs: flattenPrompt(req.Messages),
		Parameters: generateParameters{
			Temperature:  req.Temperature,
			MaxNewTokens: req.MaxTokens,
		},
		Stream: stream,
	})
}

func (p *Provider) model(override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return p.cfg.Model
}

func (p *Provider) endpoint(model string, stream bool) string {
	base := strings.TrimRight(p.cfg.BaseURL, "/") + "/" + model
	if stream {
		return base + "/generate_stream"
	}
	return base + "/generate"
}

func (p *Provider) post(ctx context.Context, url string, body []byte, stream bool) (*http.Response, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	var resp *http.Response
	var err error
	if stream {
		header.Set("Accept", "text/event-stream")
		resp, err = p.hc.PostStream(ctx, url, header, body)
	} else {
		resp, err = p.hc.Post(ctx, url, header, body)
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

	model := p.model(req.Model)
	resp, err := p.post(ctx, p.endpoint(model, false), body, false)
	if err != nil {
		return provider.Response{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return provider.Response{}, fmt.Errorf("%s: read response: %w", Name, err)
	}

	// the reply is either a bare object or a one-element array of objects
	text := gjson.GetBytes(raw, "generated_text")
	if !text.Exists() {
		text = gjson.GetBytes(raw, "0.generated_text")
	}
	if !text.Exists() {
		return provider.Response{}, fmt.Errorf("%s: response carried no generated_text", Name)
	}

	return provider.Response{Content: text.String(), Model: model}, nil
}

func (p *Provider) Stream(ctx context.Context, req provider.Request) (io.ReadCloser, error) {
	body, err := p.buildBody(req, true)
	if err != nil {
		return nil, err
	}

	resp, err := p.post(ctx, p.endpoint(p.model(req.Model), true), body, true)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}
