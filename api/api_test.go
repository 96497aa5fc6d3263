package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newTestServer(t *testing.T, options ...Option) *Server {
	t.Helper()
	res := NewResources(nil)
	t.Cleanup(res.Close)

	s, err := New(res, options...)
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", gjson.Get(rec.Body.String(), "status").String())
}

func TestListTools(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodGet, "/v1/tools", "")
	require.Equal(t, http.StatusOK, rec.Code)

	names := gjson.Get(rec.Body.String(), "tools.#.name")
	assert.ElementsMatch(t,
		[]string{"calculator", "web_search", "stock_price", "crypto_price"},
		toStrings(names))
}

func toStrings(r gjson.Result) []string {
	var out []string
	for _, v := range r.Array() {
		out = append(out, v.String())
	}
	return out
}

func TestRateLimitHeadersAndRejection(t *testing.T) {
	s := newTestServer(t, WithRateLimit(2))

	rec := do(t, s, http.MethodGet, "/v1/tools", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do(t, s, http.MethodGet, "/v1/tools", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do(t, s, http.MethodGet, "/v1/tools", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
}

func TestHealthBypassesRateLimit(t *testing.T) {
	s := newTestServer(t, WithRateLimit(1))

	for i := 0; i < 5; i++ {
		rec := do(t, s, http.MethodGet, "/healthz", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestExecuteToolSuccessAndMemoization(t *testing.T) {
	s := newTestServer(t)
	body := `{"toolName":"calculator","args":{"expression":"2 + 2 * 10"}}`

	rec := do(t, s, http.MethodPost, "/v1/tools/execute", body)
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.True(t, gjson.Get(out, "success").Bool())
	assert.Equal(t, "22", gjson.Get(out, "result").String())
	assert.False(t, gjson.Get(out, "cached").Bool())

	rec = do(t, s, http.MethodPost, "/v1/tools/execute", body)
	require.Equal(t, http.StatusOK, rec.Code)
	out = rec.Body.String()
	assert.Equal(t, "22", gjson.Get(out, "result").String())
	assert.True(t, gjson.Get(out, "cached").Bool())
}

func TestExecuteUnknownToolIs404(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/tools/execute", `{"toolName":"time_machine"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExecuteToolFailureReportsWithoutError(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/tools/execute",
		`{"toolName":"calculator","args":{"expression":"1 / 0"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.False(t, gjson.Get(out, "success").Bool())
	assert.Contains(t, gjson.Get(out, "error").String(), "division by zero")
}

func TestChatRejectsMissingProvider(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/chat",
		`{"messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatRejectsUnknownProvider(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/chat",
		`{"provider":"cohere","messages":[{"role":"user","content":"hi"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatRejectsEmptyMessages(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/chat", `{"provider":"openai","messages":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func newUpstream(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func chatBody(upstream, extra string) string {
	return `{"provider":"openai","config":{"apiKey":"sk-test","baseURL":"` + upstream + `"},` + extra +
		`"messages":[{"role":"user","content":"tell me a story"}]}`
}

func TestChatProxiesOneShotReply(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "")
	upstream := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"model":"gpt-4o-mini","choices":[{"message":{"content":"Once upon a time."}}]}`))
	})
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/chat", chatBody(upstream.URL, ""))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Once upon a time.", gjson.Get(rec.Body.String(), "content").String())
}

func TestChatAcceptsTopLevelOverrides(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "")
	var auth string
	var captured []byte
	upstream := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		captured, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"model":"gpt-4o-mini","choices":[{"message":{"content":"ok"}}]}`))
	})
	s := newTestServer(t)

	body := `{"provider":"openai","apiKey":"sk-flat","baseURL":"` + upstream.URL + `",` +
		`"max_tokens":64,"tools":false,` +
		`"messages":[{"role":"user","content":"hi"}]}`
	rec := do(t, s, http.MethodPost, "/v1/chat", body)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "Bearer sk-flat", auth)
	assert.Equal(t, int64(64), gjson.GetBytes(captured, "max_tokens").Int())
}

func TestChatNestedConfigWinsOverTopLevel(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "")
	var auth string
	upstream := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.Write([]byte(`{"model":"gpt-4o-mini","choices":[{"message":{"content":"ok"}}]}`))
	})
	s := newTestServer(t)

	body := `{"provider":"openai","apiKey":"sk-flat","tools":false,` +
		`"config":{"apiKey":"sk-nested","baseURL":"` + upstream.URL + `"},` +
		`"messages":[{"role":"user","content":"hi"}]}`
	rec := do(t, s, http.MethodPost, "/v1/chat", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Bearer sk-nested", auth)
}

func TestChatKeepsUpstreamErrorStatus(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "")
	upstream := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	})
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/chat", chatBody(upstream.URL, ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestChatStreamEmitsCanonicalSSE(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "")
	upstream := newUpstream(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"model\":\"gpt-4o-mini\",\"choices\":[{\"delta\":{\"content\":\"Once\"}}]}\n\n"))
		w.Write([]byte("data: {\"choices\":[{\"delta\":{\"content\":\" upon a time\"}}]}\n\n"))
		w.Write([]byte("data: [DONE]\n\n"))
	})
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/v1/chat", chatBody(upstream.URL, `"stream":true,`))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	out := rec.Body.String()
	frames := strings.Split(strings.TrimSuffix(out, "\n\n"), "\n\n")
	require.Len(t, frames, 3)
	assert.Equal(t, "Once", gjson.Get(strings.TrimPrefix(frames[0], "data: "), "choices.0.delta.content").String())
	assert.Equal(t, "gpt-4o-mini", gjson.Get(strings.TrimPrefix(frames[0], "data: "), "model").String())
	assert.Equal(t, " upon a time", gjson.Get(strings.TrimPrefix(frames[1], "data: "), "choices.0.delta.content").String())
	assert.Equal(t, "data: [DONE]", frames[2])
}

func TestChatInjectsToolResultBeforeLastUserTurn(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "")
	var captured []byte
	upstream := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"model":"gpt-4o-mini","choices":[{"message":{"content":"It is 22."}}]}`))
	})
	s := newTestServer(t)

	body := `{"provider":"openai","config":{"apiKey":"sk-test","baseURL":"` + upstream.URL + `"},` +
		`"messages":[{"role":"user","content":"calculate 2 + 2 * 10"}]}`
	rec := do(t, s, http.MethodPost, "/v1/chat", body)
	require.Equal(t, http.StatusOK, rec.Code)

	msgs := gjson.GetBytes(captured, "messages")
	require.Equal(t, int64(2), msgs.Get("#").Int())
	assert.Equal(t, "system", msgs.Get("0.role").String())
	assert.Contains(t, msgs.Get("0.content").String(), "22")
	assert.Equal(t, "user", msgs.Get("1.role").String())
}

func TestChatToolPassDisabled(t *testing.T) {
	t.Setenv("OPENAI_BASE_URL", "")
	var captured []byte
	upstream := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		w.Write([]byte(`{"model":"gpt-4o-mini","choices":[{"message":{"content":"22"}}]}`))
	})
	s := newTestServer(t)

	body := `{"provider":"openai","tools":false,"config":{"apiKey":"sk-test","baseURL":"` + upstream.URL + `"},` +
		`"messages":[{"role":"user","content":"calculate 2 + 2 * 10"}]}`
	rec := do(t, s, http.MethodPost, "/v1/chat", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(1), gjson.GetBytes(captured, "messages.#").Int())
}
