package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// Kind classifies a failure returned by an external embedding or completion provider.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuth
	KindRateLimited
	KindTransient
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindAuth:
		return "auth"
	case KindRateLimited:
		return "rate_limited"
	case KindTransient:
		return "transient"
	case KindInvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Retryable reports whether failures of this kind are worth another attempt.
func (k Kind) Retryable() bool {
	return k == KindRateLimited || k == KindTransient
}

// Error is a classified provider failure.
type Error struct {
	Provider   string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s provider error (%s", e.Provider, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(", status %d", e.StatusCode)
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the kind sentinels below, so callers can write
// errors.Is(err, provider.ErrRateLimited).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Err != nil || t.Provider != "" {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrAuth         = &Error{Kind: KindAuth}
	ErrRateLimited  = &Error{Kind: KindRateLimited}
	ErrTransient    = &Error{Kind: KindTransient}
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
)

// KindOf returns the kind of a classified error, or KindUnknown.
func KindOf(err error) Kind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return KindUnknown
}

// KindForStatus maps an HTTP status code returned by a provider to a Kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusBadRequest, status == http.StatusRequestEntityTooLarge,
		status == http.StatusUnprocessableEntity:
		return KindInvalidInput
	case status == http.StatusRequestTimeout, status >= 500:
		return KindTransient
	default:
		return KindUnknown
	}
}

// FromStatus builds a classified error from a raw HTTP response.
func FromStatus(name string, status int, body string) error {
	return &Error{
		Provider:   name,
		Kind:       KindForStatus(status),
		StatusCode: status,
		Err:        fmt.Errorf("status %d: %s", status, body),
	}
}

// Classify converts an error returned by a provider client into an *Error.
// Errors that are already classified and parent-context cancellations are
// returned unchanged.
func Classify(name string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		kind := KindForStatus(apiErr.HTTPStatusCode)
		if apiErr.Code == "context_length_exceeded" {
			kind = KindInvalidInput
		}
		return &Error{Provider: name, Kind: kind, StatusCode: apiErr.HTTPStatusCode, Err: err}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		kind := KindForStatus(reqErr.HTTPStatusCode)
		if kind == KindUnknown {
			kind = KindTransient
		}
		return &Error{Provider: name, Kind: kind, StatusCode: reqErr.HTTPStatusCode, Err: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Provider: name, Kind: KindTransient, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Error{Provider: name, Kind: KindTransient, Err: err}
	}

	return &Error{Provider: name, Kind: KindUnknown, Err: err}
}
