package authgate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnauthenticated is returned when resolution produced no session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrGatewayNotReady is returned when an Engine method is called before Build.
	ErrGatewayNotReady = errors.New("gateway not initialized")
	// ErrProviderUnavailable is returned when the identity provider backend fails.
	ErrProviderUnavailable = errors.New("identity provider unavailable")
	// ErrRefreshRejected is returned when the identity provider rejects a refresh exchange.
	ErrRefreshRejected = errors.New("refresh exchange rejected")
	// ErrCacheUnavailable is returned when the shared session cache cannot be reached.
	ErrCacheUnavailable = errors.New("session cache unavailable")
)

// RateLimitError is the resource-exhausted condition surfaced when a
// signup, verification, or resend budget is exceeded. It carries the
// retry-after value both as a machine-readable seconds count and as the
// human-readable minute count used in user-facing messages.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded: try again in %d minutes", e.RetryAfterMinutes())
}

// RetryAfterSeconds returns the retry-after value rounded up to whole seconds,
// never below 1.
func (e *RateLimitError) RetryAfterSeconds() int {
	secs := int((e.RetryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return secs
}

// RetryAfterMinutes returns the retry-after value rounded up to whole minutes,
// never below 1.
func (e *RateLimitError) RetryAfterMinutes() int {
	mins := int((e.RetryAfter + time.Minute - 1) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	return mins
}
