package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/tidwall/sjson"

	"github.com/windmark/prism"
	"github.com/windmark/prism/pkg/slogx"
	"github.com/windmark/prism/provider"
	"github.com/windmark/prism/stream"
)

const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 1024
)

type chatRequest struct {
	Provider    string             `json:"provider"`
	Messages    []provider.Message `json:"messages"`
	Model       string             `json:"model,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	MaxTokens   *int               `json:"max_tokens,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
	Tools       *bool              `json:"tools,omitempty"`
	APIKey      string             `json:"apiKey,omitempty"`
	BaseURL     string             `json:"baseURL,omitempty"`
	Config      *configOverride    `json:"config,omitempty"`
}

// configOverride groups the per-request credential overrides; the nested
// form is equivalent to the top-level apiKey/baseURL fields and wins when
// both are present.
type configOverride struct {
	APIKey  string `json:"apiKey,omitempty"`
	BaseURL string `json:"baseURL,omitempty"`
	Model   string `json:"model,omitempty"`
}

func (s *Server) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Provider) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "provider is required")
	}
	if len(req.Messages) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "messages must not be empty")
	}

	cfg := provider.FromEnv(req.Provider).Merge(provider.Config{
		APIKey:  req.APIKey,
		BaseURL: req.BaseURL,
	})
	if req.Config != nil {
		cfg = cfg.Merge(provider.Config{
			APIKey:  req.Config.APIKey,
			BaseURL: req.Config.BaseURL,
			Model:   req.Config.Model,
		})
	}

	p, err := prism.NewProvider(req.Provider, cfg, s.res.HTTP)
	if err != nil {
		var cerr *provider.ConfigError
		switch {
		case errors.Is(err, provider.ErrUnknownProvider):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.As(err, &cerr):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return err
		}
	}

	messages := req.Messages
	// orchestrator pre-pass, on unless the request disables it
	if req.Tools == nil || *req.Tools {
		messages = s.augment(c, messages)
	}

	preq := provider.Request{
		Messages:    messages,
		Temperature: resolveTemperature(req.Temperature, cfg.Temperature),
		MaxTokens:   resolveMaxTokens(req.MaxTokens, cfg.MaxTokens),
		Model:       req.Model,
	}

	if req.Stream {
		return s.streamChat(c, p, preq)
	}

	resp, err := p.Chat(c.Request().Context(), preq)
	if err != nil {
		return upstreamError(err)
	}
	return c.JSON(http.StatusOK, resp)
}

// augment runs the tool orchestrator against the last user turn and, on
// a match, injects its single system message right before that turn.
func (s *Server) augment(c echo.Context, messages []provider.Message) []provider.Message {
	last := -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == provider.RoleUser {
			last = i
			break
		}
	}
	if last < 0 {
		return messages
	}

	injected, ok := s.res.Orch.Augment(c.Request().Context(), messages[last].Content)
	if !ok {
		return messages
	}

	out := make([]provider.Message, 0, len(messages)+1)
	out = append(out, messages[:last]...)
	out = append(out, injected)
	out = append(out, messages[last:]...)
	return out
}

func (s *Server) streamChat(c echo.Context, p provider.Provider, preq provider.Request) error {
	ctx := c.Request().Context()

	body, err := p.Stream(ctx, preq)
	if err != nil {
		return upstreamError(err)
	}

	norm := stream.NewNormalizer(body)
	defer norm.Close()

	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)

	for {
		chunk, err := norm.Recv()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			slog.Debug("stream ended abnormally", slogx.Provider(p.Name()), slogx.Error(err))
			return nil
		}
		if err := writeFrame(c, chunk); err != nil {
			// client went away; closing the normalizer tears down the
			// upstream body
			return nil
		}
	}
}

func writeFrame(c echo.Context, chunk provider.DeltaChunk) error {
	var frame string
	if chunk.Done {
		frame = "data: [DONE]\n\n"
	} else {
		body, err := sjson.Set("", "choices.0.delta.content", chunk.Content)
		if err != nil {
			return err
		}
		if chunk.Model != "" {
			if body, err = sjson.Set(body, "model", chunk.Model); err != nil {
				return err
			}
		}
		frame = "data: " + body + "\n\n"
	}

	if _, err := c.Response().Write([]byte(frame)); err != nil {
		return err
	}
	c.Response().Flush()
	return nil
}

func resolveTemperature(request, configured *float64) float64 {
	switch {
	case request != nil:
		return *request
	case configured != nil:
		return *configured
	default:
		return defaultTemperature
	}
}

func resolveMaxTokens(request, configured *int) int {
	switch {
	case request != nil:
		return *request
	case configured != nil:
		return *configured
	default:
		return defaultMaxTokens
	}
}

// upstreamError keeps the backend's status for API errors and maps
// everything else to a bad gateway.
func upstreamError(err error) error {
	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		return echo.NewHTTPError(apiErr.Status, apiErr.Message)
	}
	return echo.NewHTTPError(http.StatusBadGateway, err.Error())
}
