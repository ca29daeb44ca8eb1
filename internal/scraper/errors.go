package scraper

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by the scraper and the services built on it.
type ErrorKind string

const (
	ErrorValidation ErrorKind = "validation"
	ErrorNetwork    ErrorKind = "network"
	ErrorUpstream   ErrorKind = "upstream"
	ErrorNotFound   ErrorKind = "not_found"
)

// Error carries a kind, the operation that failed and a caller-facing message.
type Error struct {
	Kind    ErrorKind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of the first *Error in err's chain, or "" if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

func validationError(op, format string, args ...any) *Error {
	return &Error{Kind: ErrorValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

func networkError(op string, err error) *Error {
	return &Error{Kind: ErrorNetwork, Op: op, Message: op + " request failed", Err: err}
}

// UpstreamError reports a well-formed response in which the server signalled failure.
func UpstreamError(op, msg string) *Error {
	if msg == "" {
		msg = "unknown error"
	}
	return &Error{Kind: ErrorUpstream, Op: op, Message: "api request failed: " + msg}
}

func notFoundError(op, msg string) *Error {
	return &Error{Kind: ErrorNotFound, Op: op, Message: msg}
}
