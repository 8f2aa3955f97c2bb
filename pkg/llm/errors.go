package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

var (
	// ErrMalformedResponse marks a response that arrived but could not be used
	// (bad JSON, missing fields). It is never retried.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrValidation marks a request rejected locally before any network call.
	ErrValidation = errors.New("invalid request")
)

// APIError is a non-success answer from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: http %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: http %d: %s", e.Provider, e.StatusCode, e.Message)
}

// Transient reports whether the status code is worth retrying.
func (e *APIError) Transient() bool {
	switch {
	case e.StatusCode == 408, e.StatusCode == 429:
		return true
	case e.StatusCode >= 500:
		// includes Anthropic's 529 overloaded
		return true
	}
	return false
}

// IsTransient classifies err as a rate limit, timeout, transient connection
// failure or server error.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrMalformedResponse) || errors.Is(err, ErrValidation) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	return false
}
