// Package apierrors defines the typed errors surfaced by the RaceGrid client.
package apierrors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind categorises a client failure so callers can decide how to react
// without string-matching error text.
type Kind string

const (
	// Configuration marks invalid or missing constructor arguments. Fatal:
	// the operation is aborted before any network traffic.
	Configuration Kind = "configuration_error"
	// TokenExchange marks a token endpoint rejection (non-2xx status or a
	// malformed token response). The provider was reached but said no.
	TokenExchange Kind = "token_exchange_error"
	// Transport marks a network failure (DNS, timeout, connection reset)
	// before any HTTP response was obtained.
	Transport Kind = "transport_error"
	// ResourceRequest marks a resource endpoint rejection after a valid
	// token was attached.
	ResourceRequest Kind = "resource_request_error"
)

// Error is a structured client error. StatusCode and Body are populated when
// the provider returned an HTTP response; Cause carries the underlying error
// for transport failures.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Body       string
	Cause      error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("%s: %s (HTTP %d: %s)", e.Kind, e.Message, e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Kind, e.Message, e.StatusCode)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap wraps an underlying error with a kind and message.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Cause: err}
}

// WithStatus attaches the HTTP status code of the provider response.
func (e *Error) WithStatus(code int) *Error {
	e.StatusCode = code
	return e
}

// WithBody attaches the provider response body.
func (e *Error) WithBody(body string) *Error {
	e.Body = body
	return e
}

// IsKind reports whether err (or anything it wraps) is an Error of the
// given kind.
func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind == kind
	}
	return false
}

// ProviderError is the error body the RaceGrid identity and API hosts return
// on rejection, per RFC 6749 section 5.2 for the token endpoint and the same
// shape for resource endpoints.
type ProviderError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (p ProviderError) String() string {
	if p.Description != "" {
		return fmt.Sprintf("%s: %s", p.Code, p.Description)
	}
	return p.Code
}

// ParseProviderBody extracts a ProviderError from a response body. The second
// return value is false when the body is not a recognisable provider error,
// in which case the raw body should be surfaced instead.
func ParseProviderBody(body []byte) (ProviderError, bool) {
	var pe ProviderError
	if err := json.Unmarshal(body, &pe); err != nil || pe.Code == "" {
		return ProviderError{}, false
	}
	return pe, true
}
