package provider

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
)

// ErrUnknownProvider is returned when an identifier does not name any of
// the supported backends.
var ErrUnknownProvider = errors.New("unknown provider")

// ConfigError reports a structurally invalid adapter configuration. It is
// surfaced at construction time, before any network call.
type ConfigError struct {
	Provider string
	Reason   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: invalid config: %s", e.Provider, e.Reason)
}

// APIError carries a non-2xx upstream reply. Message holds the backend's
// own error message when its body carried one, else the HTTP status text.
type APIError struct {
	Provider string
	Status   int
	Message  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: upstream error (status %d): %s", e.Provider, e.Status, e.Message)
}

// errorMessagePaths are the places backends put their error message,
// tried in order.
var errorMessagePaths = []string{"error.message", "error", "message", "detail"}

// NewAPIError drains resp.Body and extracts the most specific error
// message available. The body is closed.
func NewAPIError(name string, resp *http.Response) *APIError {
	defer resp.Body.Close()

	apiErr := &APIError{
		Provider: name,
		Status:   resp.StatusCode,
		Message:  http.StatusText(resp.StatusCode),
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	for _, path := range errorMessagePaths {
		if msg := gjson.GetBytes(body, path); msg.Exists() && msg.Type == gjson.String && msg.String() != "" {
			apiErr.Message = msg.String()
			return apiErr
		}
	}
	return apiErr
}
