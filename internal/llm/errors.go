package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind groups provider failures by how callers should react.
type Kind string

const (
	KindNone        Kind = ""
	KindRateLimit   Kind = "rate_limit"
	KindUnavailable Kind = "unavailable"
	KindInvalid     Kind = "invalid_response"
	KindTruncated   Kind = "truncated"
	KindCanceled    Kind = "canceled"
)

// KindOf classifies err. Errors that are not from this package count as
// the provider being unavailable.
func KindOf(err error) Kind {
	var (
		rl  *ErrRateLimit
		inv *ErrInvalidResponse
		tr  *ErrMaxTokensExceeded
	)
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.As(err, &rl):
		return KindRateLimit
	case errors.As(err, &inv):
		return KindInvalid
	case errors.As(err, &tr):
		return KindTruncated
	}
	return KindUnavailable
}

// ErrRateLimit is an HTTP 429 from the provider. RetryAfter is zero when
// the provider gave no hint.
type ErrRateLimit struct {
	RetryAfter time.Duration
	Err        error
}

func (e *ErrRateLimit) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("llm rate limited, retry after %s: %v", e.RetryAfter, e.Err)
	}
	return fmt.Sprintf("llm rate limited: %v", e.Err)
}

func (e *ErrRateLimit) Unwrap() error { return e.Err }

// ErrInvalidResponse is a reply that failed schema validation or had no
// usable content. Content is the raw reply, if any.
type ErrInvalidResponse struct {
	Content json.RawMessage
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("llm reply rejected: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// ErrProviderUnavailable covers outages, network errors and a missing
// configuration.
type ErrProviderUnavailable struct {
	Err error
}

func (e *ErrProviderUnavailable) Error() string {
	if e.Err == nil {
		return "llm provider unavailable"
	}
	return "llm provider unavailable: " + e.Err.Error()
}

func (e *ErrProviderUnavailable) Unwrap() error { return e.Err }

// ErrMaxTokensExceeded is a structured reply cut off at MaxTokens.
type ErrMaxTokensExceeded struct {
	Content json.RawMessage
}

func (e *ErrMaxTokensExceeded) Error() string {
	return fmt.Sprintf("llm reply truncated after %d bytes", len(e.Content))
}
