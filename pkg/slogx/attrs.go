// Package slogx carries the shared slog attribute constructors, so log
// keys stay consistent across packages.
package slogx

import "log/slog"

// Error returns a slog.Attr for the provided error under the "error" key.
func Error(err error) slog.Attr {
	return slog.String("error", err.Error())
}

// Provider returns a slog.Attr identifying an upstream provider.
func Provider(name string) slog.Attr {
	return slog.String("provider", name)
}

// Tool returns a slog.Attr identifying a tool by name.
func Tool(name string) slog.Attr {
	return slog.String("tool", name)
}
