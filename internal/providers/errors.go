package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// ErrMissingCredential is wrapped by AuthenticationError when no API key is configured.
var ErrMissingCredential = errors.New("missing API credential")

// ErrProviderNotFound is wrapped by registry lookups for unknown names.
var ErrProviderNotFound = errors.New("provider not found")

// AuthenticationError reports a missing or rejected credential. Never retried.
type AuthenticationError struct {
	Provider   string
	StatusCode int // 0 when the key was missing locally
	Message    string
	Err        error
}

func (e *AuthenticationError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: authentication failed: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: authentication failed (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// ServiceError reports a non-2xx status or a malformed provider response.
type ServiceError struct {
	Provider   string
	StatusCode int // 0 for transport failures and malformed bodies
	Message    string
	Err        error

	transport bool
}

func (e *ServiceError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: service error: %s", e.Provider, e.Message)
	}
	return fmt.Sprintf("%s: service error (status %d): %s", e.Provider, e.StatusCode, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// TimeoutError reports an external call that exceeded its time budget.
type TimeoutError struct {
	Provider string
	Timeout  time.Duration
	Err      error
}

func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("%s: request timed out after %s", e.Provider, e.Timeout)
	}
	return fmt.Sprintf("%s: request timed out", e.Provider)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// missingCredential returns the error used when a provider has no API key.
func missingCredential(provider, envHint string) error {
	msg := "no API key configured"
	if envHint != "" {
		msg += " (set " + envHint + ")"
	}
	return &AuthenticationError{Provider: provider, Message: msg, Err: ErrMissingCredential}
}

// statusError maps a non-2xx HTTP response to the provider error taxonomy.
func statusError(provider string, status int, body []byte) error {
	msg := errorMessage(body)
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return &AuthenticationError{Provider: provider, StatusCode: status, Message: msg}
	}
	return &ServiceError{Provider: provider, StatusCode: status, Message: msg}
}

// transportError maps a failed round trip. Parent context cancellation is
// returned untouched so callers see context.Canceled.
func transportError(ctx context.Context, provider string, timeout time.Duration, err error) error {
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return err
	}
	if isTimeout(err) {
		return &TimeoutError{Provider: provider, Timeout: timeout, Err: err}
	}
	return &ServiceError{Provider: provider, Message: "request failed", Err: err, transport: true}
}

// malformedResponse reports a 2xx body that could not be used.
func malformedResponse(provider, msg string, err error) error {
	return &ServiceError{Provider: provider, Message: msg, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// errorMessage pulls a readable message out of common provider error bodies.
func errorMessage(body []byte) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	var flat struct {
		Message string `json:"message"`
		Detail  any    `json:"detail"`
	}
	if json.Unmarshal(body, &flat) == nil {
		if flat.Message != "" {
			return flat.Message
		}
		if s, ok := flat.Detail.(string); ok && s != "" {
			return s
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 500 {
		msg = msg[:500] + "..."
	}
	if msg == "" {
		msg = "empty response body"
	}
	return msg
}

// IsTransient reports whether err is worth retrying: rate limits, 5xx and
// transport failures. Authentication errors and timeouts are final.
func IsTransient(err error) bool {
	var se *ServiceError
	if !errors.As(err, &se) {
		return false
	}
	switch {
	case se.StatusCode == http.StatusTooManyRequests:
		return true
	case se.StatusCode >= 500:
		return true
	}
	return se.transport
}
