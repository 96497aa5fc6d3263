package httpx

import (
	"context"
	"errors"
	"net"
	"os"
	"syscall"
)

// isTransient reports whether err belongs to the fixed whitelist of
// transport failures worth retrying: connection reset, connection refused,
// DNS resolution failure, and timeouts. Everything else surfaces
// immediately.
func isTransient(err error) bool {
	if err == nil {
		return false
	}

	// A cancelled caller is not a transient upstream condition.
	if errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return false
}
