// Package apierr models the failures a tool call can run into before it is
// flattened into response text.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failure.
type Kind int

const (
	// KindRequest covers unknown tools and missing arguments.
	KindRequest Kind = iota
	// KindPrecondition covers checks made before any network call, such as a
	// missing credential or a missing local file.
	KindPrecondition
	// KindRemote is a non-2xx HTTP response.
	KindRemote
	// KindTransport means no response was received.
	KindTransport
	// KindUnexpected is anything else.
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindPrecondition:
		return "precondition"
	case KindRemote:
		return "remote"
	case KindTransport:
		return "transport"
	default:
		return "unexpected"
	}
}

// Error is the structured failure returned by backend clients.
type Error struct {
	Kind    Kind
	Status  int
	Body    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

func (e *Error) Unwrap() error { return e.Err }

// Precondition reports a failure detected before any network call.
func Precondition(format string, args ...any) *Error {
	return &Error{Kind: KindPrecondition, Message: fmt.Sprintf(format, args...)}
}

// Request reports a malformed tool call.
func Request(format string, args ...any) *Error {
	return &Error{Kind: KindRequest, Message: fmt.Sprintf(format, args...)}
}

// Remote reports a non-2xx response. msg is the rendered text.
func Remote(status int, body []byte, msg string) *Error {
	return &Error{Kind: KindRemote, Status: status, Body: string(body), Message: msg}
}

// Transport reports that no response was received.
func Transport(err error, msg string) *Error {
	if msg == "" && err != nil {
		msg = err.Error()
	}
	return &Error{Kind: KindTransport, Message: msg, Err: err}
}

// Unexpected wraps an error that fits no other kind.
func Unexpected(err error) *Error {
	return &Error{Kind: KindUnexpected, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnexpected.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Status
	}
	return 0
}

// StatusText renders the canned message for well-known HTTP statuses.
// detail is the provider-supplied message, if any. provider names the
// remote API in the fallback texts.
func StatusText(status int, detail, provider string) string {
	switch {
	case status == http.StatusBadRequest:
		if detail != "" {
			return detail
		}
		return "bad request"
	case status == http.StatusUnauthorized:
		return "API key is invalid or missing"
	case status == http.StatusForbidden:
		return "no permission to access the requested resource"
	case status == http.StatusNotFound:
		return "requested resource not found"
	case status == http.StatusTooManyRequests:
		return "API rate limit exceeded"
	case status >= http.StatusInternalServerError:
		return provider + " API server error"
	}
	if detail != "" {
		return detail
	}
	return fmt.Sprintf("%s API error: %d", provider, status)
}
