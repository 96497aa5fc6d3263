// Package httpx wraps outbound HTTP calls with a hard timeout and a
// bounded exponential-backoff retry policy.
//
// Retries apply only to a fixed whitelist of transient transport failures
// (connection reset, connection refused, DNS failure, timeout). Application
// errors reach the caller on the first attempt: a 4xx or 5xx response is a
// response, not a transport failure, and is never replayed here.
//
// Request-response calls run under the full timeout, body read included.
// Streaming calls go through PostStream, where the timeout guards only the
// connection and response-header phase: a live stream may outlast it for as
// long as the upstream keeps sending.
package httpx

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/fogfish/opts"
)

// Settings holds the tunables for a Client.
type Settings struct {
	// Timeout aborts a single attempt, connection included.
	Timeout time.Duration

	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// InitialDelay seeds the backoff schedule.
	InitialDelay time.Duration

	// MaxDelay caps the backoff schedule.
	MaxDelay time.Duration

	// Multiplier grows the delay between attempts.
	Multiplier float64

	// Transport overrides the underlying round tripper, mainly for tests.
	Transport http.RoundTripper
}

// Option configures a Client.
type Option = opts.Option[Settings]

var (
	WithTimeout      = opts.ForName[Settings, time.Duration]("Timeout")
	WithMaxRetries   = opts.ForName[Settings, int]("MaxRetries")
	WithInitialDelay = opts.ForName[Settings, time.Duration]("InitialDelay")
	WithMaxDelay     = opts.ForName[Settings, time.Duration]("MaxDelay")
	WithMultiplier   = opts.ForName[Settings, float64]("Multiplier")
	WithTransport    = opts.ForName[Settings, http.RoundTripper]("Transport")
)

// Client issues HTTP requests with the retry policy described above.
type Client struct {
	hc       *http.Client
	stream   *http.Client // no overall deadline; bodies are read incrementally
	settings Settings
}

// New builds a Client. Defaults: 10s timeout, 3 retries, backoff starting
// at 250ms, doubling, capped at 4s.
func New(options ...Option) (*Client, error) {
	settings := Settings{
		Timeout:      10 * time.Second,
		MaxRetries:   3,
		InitialDelay: 250 * time.Millisecond,
		MaxDelay:     4 * time.Second,
		Multiplier:   2,
	}
	if err := opts.Apply(&settings, options); err != nil {
		return nil, err
	}
	if settings.Multiplier < 1 {
		return nil, fmt.Errorf("httpx: multiplier must be >= 1, got %v", settings.Multiplier)
	}

	return &Client{
		hc: &http.Client{
			Timeout:   settings.Timeout,
			Transport: settings.Transport,
		},
		stream: &http.Client{
			Transport: settings.Transport,
		},
		settings: settings,
	}, nil
}

// Must builds a Client and panics on invalid options.
func Must(options ...Option) *Client {
	c, err := New(options...)
	if err != nil {
		panic(err)
	}
	return c
}

// Do sends req, retrying transient transport failures. The request body, if
// any, must be replayable through req.GetBody; requests built with
// http.NewRequest from a bytes.Reader satisfy this.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.do(c.hc, req)
}

func (c *Client) do(hc *http.Client, req *http.Request) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.settings.MaxRetries; attempt++ {
		if attempt > 0 {
			if req.GetBody != nil {
				body, err := req.GetBody()
				if err != nil {
					return nil, fmt.Errorf("httpx: rewind request body: %w", err)
				}
				req.Body = body
			}
			if err := sleep(req.Context(), c.backoff(attempt-1)); err != nil {
				return nil, err
			}
			slog.Debug("retrying request",
				slog.String("url", req.URL.String()),
				slog.Int("attempt", attempt),
			)
		}

		resp, err := hc.Do(req)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if !isTransient(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

// Post issues a POST with the given body and headers. The body is buffered
// so retries can replay it.
func (c *Client) Post(ctx context.Context, url string, header http.Header, body []byte) (*http.Response, error) {
	req, err := newPost(ctx, url, header, body)
	if err != nil {
		return nil, err
	}
	return c.Do(req)
}

// PostStream issues a POST whose response body the caller reads
// incrementally. The per-attempt timeout covers only establishing the
// connection and receiving the response headers; once headers arrive the
// guard is released and the body stays open for as long as the upstream
// keeps it. Closing the returned body releases the underlying connection.
func (c *Client) PostStream(ctx context.Context, url string, header http.Header, body []byte) (*http.Response, error) {
	sctx, cancel := context.WithCancel(ctx)

	req, err := newPost(sctx, url, header, body)
	if err != nil {
		cancel()
		return nil, err
	}

	if c.settings.Timeout > 0 {
		guard := time.AfterFunc(c.settings.Timeout, cancel)
		defer guard.Stop()
	}
	resp, err := c.do(c.stream, req)
	if err != nil {
		cancel()
		return nil, err
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose ties the lifetime of the request context to the response
// body, so abandoning a stream tears down its connection.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func newPost(ctx context.Context, url string, header http.Header, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// Get issues a GET request with the retry policy applied.
func (c *Client) Get(ctx context.Context, url string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return c.Do(req)
}

// Timeout reports the per-attempt timeout the client enforces.
func (c *Client) Timeout() time.Duration {
	return c.settings.Timeout
}

// backoff returns min(InitialDelay * Multiplier^attempt, MaxDelay).
func (c *Client) backoff(attempt int) time.Duration {
	delay := float64(c.settings.InitialDelay)
	for i := 0; i < attempt; i++ {
		delay *= c.settings.Multiplier
		if time.Duration(delay) >= c.settings.MaxDelay {
			return c.settings.MaxDelay
		}
	}
	d := time.Duration(delay)
	if d > c.settings.MaxDelay {
		return c.settings.MaxDelay
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
