// Package errcode defines the error taxonomy surfaced to tool callers.
package errcode

import (
	"github.com/cockroachdb/errors"
)

// Code is a JSON-RPC error code.
type Code int

// JSON-RPC 2.0 error codes.
const (
	CodeParseError     Code = -32700
	CodeInvalidRequest Code = -32600
	CodeMethodNotFound Code = -32601
	CodeInvalidParams  Code = -32602
	CodeInternalError  Code = -32603
)

// Markers for errors.Is checks.
var (
	// ErrParse marks a message that is not valid JSON.
	ErrParse = errors.New("parse error")
	// ErrInvalidRequest marks valid JSON that is not a JSON-RPC request or notification.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidArgument marks a missing or malformed argument. Not retryable.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMethodNotFound marks an unknown tool or method name.
	ErrMethodNotFound = errors.New("method not found")
	// ErrUpstream marks a failed call to the language-model API. The caller may resubmit.
	ErrUpstream = errors.New("upstream error")
	// ErrInternal marks any other failure.
	ErrInternal = errors.New("internal error")
)

// Parse wraps err and marks it with ErrParse.
func Parse(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrParse)
}

// InvalidRequest wraps err and marks it with ErrInvalidRequest.
func InvalidRequest(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrInvalidRequest)
}

// InvalidArgument returns a new error marked with ErrInvalidArgument.
func InvalidArgument(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrInvalidArgument)
}

// MethodNotFound returns a new error marked with ErrMethodNotFound.
func MethodNotFound(format string, args ...any) error {
	return errors.Mark(errors.Newf(format, args...), ErrMethodNotFound)
}

// Upstream wraps err and marks it with ErrUpstream.
func Upstream(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrUpstream)
}

// Internal wraps err and marks it with ErrInternal.
func Internal(err error, msg string) error {
	return errors.Mark(errors.Wrap(err, msg), ErrInternal)
}

// IsCoded returns true if err carries a caller-facing classification
// that must pass through unchanged.
func IsCoded(err error) bool {
	return errors.Is(err, ErrInvalidArgument) || errors.Is(err, ErrMethodNotFound)
}

// CodeOf maps err to a JSON-RPC error code.
// Upstream failures are reported as internal errors.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrParse):
		return CodeParseError
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	case errors.Is(err, ErrInvalidArgument):
		return CodeInvalidParams
	case errors.Is(err, ErrMethodNotFound):
		return CodeMethodNotFound
	default:
		return CodeInternalError
	}
}
