package send

import (
	"context"
	"errors"
	"strings"
)

// ErrorKind drives the retry policy of the send worker.
type ErrorKind int

const (
	// ErrKindTransient errors are retried with exponential backoff.
	ErrKindTransient ErrorKind = iota
	// ErrKindRateLimited errors are retried with a longer backoff floor.
	ErrKindRateLimited
	// ErrKindTerminal errors fail the request immediately.
	ErrKindTerminal
)

// ErrNotReady is returned by the client adapter while the session is not in
// a sendable state.
var ErrNotReady = errors.New("client not ready")

// ErrShutdown marks work cancelled by graceful shutdown.
var ErrShutdown = errors.New("shutdown in progress")

var transientMarkers = []string{
	"detached frame",
	"execution context was destroyed",
	"not ready",
	"timeout",
	"timed out",
	"connection reset",
	"broken pipe",
	"websocket",
	"disconnected",
	"reconnect",
	"temporarily unavailable",
}

// ClassifyError buckets a client error. Unknown errors are terminal: retrying
// an invalid target or a permanent media failure only burns the rate budget.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrKindTerminal
	}
	if errors.Is(err, ErrNotReady) || errors.Is(err, context.DeadlineExceeded) {
		return ErrKindTransient
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "rate limit") || strings.Contains(s, "too many requests") {
		return ErrKindRateLimited
	}
	for _, marker := range transientMarkers {
		if strings.Contains(s, marker) {
			return ErrKindTransient
		}
	}
	return ErrKindTerminal
}
