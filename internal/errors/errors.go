// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// ErrSignatureInvalid is returned by webhook verification when the signature
// header is missing, malformed, or does not match the payload. Requests
// failing verification must not mutate any state.
var ErrSignatureInvalid = errors.New("webhook signature invalid")

// RateLimitError marks a source API failure caused by rate limiting. It is
// transient: the orchestrator rolls back the current repository and renews its
// staleness marker so a later trigger retries.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("source API rate limited: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// SourceAPIError wraps any other unexpected upstream failure. Handled the same
// way as rate limiting: abort the repository, mark stale, move on.
type SourceAPIError struct {
	Op  string
	Err error
}

func (e *SourceAPIError) Error() string {
	return fmt.Sprintf("source API error during %s: %v", e.Op, e.Err)
}

func (e *SourceAPIError) Unwrap() error { return e.Err }

// IsRetryable reports whether err should be converted into a renewed
// staleness marker rather than propagated. Every reconciliation failure is
// retryable; this exists so callers log rate limits at a lower severity.
func IsRetryable(err error) bool {
	var rl *RateLimitError
	var api *SourceAPIError
	return errors.As(err, &rl) || errors.As(err, &api)
}

// IsRateLimit reports whether err is (or wraps) a rate limit error.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
