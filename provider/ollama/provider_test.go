package ollama

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/windmark/prism/pkg/httpx"
	"github.com/windmark/prism/provider"
)

const chatReply = `{
	"model": "llama3.2",
	"message": {"role": "assistant", "content": "Hello from the llama."},
	"done": true,
	"prompt_eval_count": 11,
	"eval_count": 6
}`

func newProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(provider.Config{BaseURL: srv.URL}, httpx.Must())
}

func TestValidateConfigNeedsNoKey(t *testing.T) {
	assert.NoError(t, New(provider.Config{}, nil).ValidateConfig())
}

func TestDefaultsApplied(t *testing.T) {
	p := New(provider.Config{}, nil)
	assert.Equal(t, DefaultBaseURL, p.cfg.BaseURL)
	assert.Equal(t, DefaultModel, p.cfg.Model)
}

func TestChatRequestShape(t *testing.T) {
	var captured []byte
	var path string
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		path = r.URL.Path
		w.Write([]byte(chatReply))
	})

	_, err := p.Chat(context.Background(), provider.Request{
		Messages:    []provider.Message{{Role: provider.RoleUser, Content: "hi"}},
		Temperature: 0.4,
		MaxTokens:   64,
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/chat", path)
	body := gjson.ParseBytes(captured)
	assert.Equal(t, DefaultModel, body.Get("model").String())
	assert.False(t, body.Get("stream").Bool())
	assert.Equal(t, 0.4, body.Get("options.temperature").Float())
	assert.Equal(t, int64(64), body.Get("options.num_predict").Int())
}

func TestChatMapsUsageFromEvalCounts(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(chatReply))
	})

	resp, err := p.Chat(context.Background(), provider.Request{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello from the llama.", resp.Content)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 11, resp.Usage.PromptTokens)
	assert.Equal(t, 6, resp.Usage.CompletionTokens)
	assert.Equal(t, 17, resp.Usage.TotalTokens)
}

func TestChatWithoutEvalCountsOmitsUsage(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"model":"llama3.2","message":{"content":"hi"},"done":true}`))
	})

	resp, err := p.Chat(context.Background(), provider.Request{})
	require.NoError(t, err)
	assert.Nil(t, resp.Usage)
}

func TestChatSurfacesAPIError(t *testing.T) {
	p := newProvider(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"model \"nope\" not found"}`))
	})

	_, err := p.Chat(context.Background(), provider.Request{})
	var apiErr *provider.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestStreamReturnsNDJSONBody(t *testing.T) {
	lines := `{"message":{"content":"Hel"},"done":false}
{"message":{"content":"lo"},"done":true}
`
	var streamFlag bool
	p := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		streamFlag = gjson.GetBytes(body, "stream").Bool()
		w.Write([]byte(lines))
	})

	rc, err := p.Stream(context.Background(), provider.Request{
		Messages: []provider.Message{{Role: provider.RoleUser, Content: "hi"}},
	})
	require.NoError(t, err)
	defer rc.Close()

	raw, _ := io.ReadAll(rc)
	assert.Equal(t, lines, string(raw))
	assert.True(t, streamFlag)
}
