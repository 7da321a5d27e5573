package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a generation failure.
type Kind string

const (
	KindTransport   Kind = "transport"
	KindQuota       Kind = "quota"
	KindAuth        Kind = "auth"
	KindRejected    Kind = "rejected"
	KindMalformed   Kind = "malformed"
	KindTimeout     Kind = "timeout"
	KindUnavailable Kind = "unavailable"
)

// Error is a failed generation call.
type Error struct {
	Kind       Kind
	Provider   Provider
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s (HTTP %d): %s", e.Provider, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %s", e.Provider, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind returns true if err (or any wrapped error) is an Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr.Kind == kind
	}
	return false
}

// KindForStatus maps an HTTP status to a failure kind.
func KindForStatus(code int) Kind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindQuota
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return KindAuth
	case code == http.StatusRequestTimeout || code == http.StatusGatewayTimeout:
		return KindTimeout
	case code >= 500:
		return KindUnavailable
	case code >= 400:
		return KindRejected
	default:
		return KindMalformed
	}
}

// FromContext converts a context error into a timeout Error. Other errors
// pass through unchanged.
func FromContext(provider Provider, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Provider: provider, Message: "generation timed out", Err: err}
	}
	return err
}

// Summary returns short human-readable text for err, suitable for a chat notice.
func Summary(err error) string {
	if err == nil {
		return ""
	}
	var genErr *Error
	if !errors.As(err, &genErr) {
		if errors.Is(err, context.DeadlineExceeded) {
			return "The model took too long to answer."
		}
		return err.Error()
	}
	switch genErr.Kind {
	case KindQuota:
		return "Rate limit reached, slow down a little."
	case KindAuth:
		return "The API key was rejected. Check your configuration."
	case KindTimeout:
		return "The model took too long to answer."
	case KindUnavailable:
		if genErr.Message != "" {
			return "Generation unavailable: " + genErr.Message
		}
		return "Generation service unavailable."
	default:
		if genErr.Message != "" {
			return genErr.Message
		}
		return "Failed to generate response."
	}
}
