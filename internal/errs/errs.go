// Package errs classifies failures into the kinds surfaced to users.
package errs

import (
	"context"
	"errors"
	"net"
	"net/http"
)

// Kind is a failure category shared by every collaborator boundary.
type Kind string

const (
	Validation      Kind = "validation"
	NotFound        Kind = "not_found"
	Server          Kind = "server"
	Unavailable     Kind = "unavailable"
	RateLimited     Kind = "rate_limited"
	InvalidRequest  Kind = "invalid_request"
	InvalidResponse Kind = "invalid_response"
	Connection      Kind = "connection"
	Unknown         Kind = "unknown"
)

var knownKinds = map[Kind]struct{}{
	Validation:      {},
	NotFound:        {},
	Server:          {},
	Unavailable:     {},
	RateLimited:     {},
	InvalidRequest:  {},
	InvalidResponse: {},
	Connection:      {},
	Unknown:         {},
}

// ParseKind returns the kind named by value, reporting whether it is known.
func ParseKind(value string) (Kind, bool) {
	kind := Kind(value)
	_, ok := knownKinds[kind]
	return kind, ok
}

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		if e.Err != nil {
			return e.Message + ": " + e.Err.Error()
		}
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Classified exposes the kind of a failure. Errors declared outside this
// package implement it to take part in KindOf.
type Classified interface {
	Kind() Kind
}

// New creates a classified error with message.
func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a classified error with message and cause.
func Wrap(kind Kind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf returns the failure kind, defaulting to Unknown.
func KindOf(err error) Kind {
	if err == nil {
		return Unknown
	}
	// The outermost classification wins.
	for current := err; current != nil; current = errors.Unwrap(current) {
		switch typed := current.(type) {
		case *Error:
			if typed.Kind != "" {
				return typed.Kind
			}
		case Classified:
			if kind := typed.Kind(); kind != "" {
				return kind
			}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Connection
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Connection
	}
	return Unknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the most specific message attached to err.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var coded *Error
	if errors.As(err, &coded) && coded.Message != "" {
		return coded.Message
	}
	return "internal error"
}

// HTTPStatus maps a kind to the status the API answers with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case Validation, InvalidRequest:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case RateLimited:
		return http.StatusTooManyRequests
	case InvalidResponse:
		return http.StatusBadGateway
	case Unavailable, Connection:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// KindForStatus maps an HTTP status received from a collaborator to a kind.
func KindForStatus(status int) Kind {
	switch {
	case status == http.StatusNotFound:
		return NotFound
	case status == http.StatusTooManyRequests:
		return RateLimited
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity,
		status == http.StatusUnauthorized, status == http.StatusForbidden:
		return InvalidRequest
	case status == http.StatusInternalServerError:
		return Server
	case status >= 500:
		return Unavailable
	default:
		return Unknown
	}
}
