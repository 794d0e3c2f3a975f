// Package errors provides the classified error taxonomy for mcpwire.
// Every failure a caller can observe is one of a small set of categories
// (connection, timeout, auth, rate limit, protocol, server) carried by a
// structured Error that maps to a JSON-RPC error code.
package errors

import (
	"errors"
	"fmt"
)

// Category classifies an error for retry and reporting decisions.
type Category string

const (
	CategoryConnection Category = "connection"
	CategoryTimeout    Category = "timeout"
	CategoryAuth       Category = "auth"
	CategoryRateLimit  Category = "rate_limit"
	CategoryProtocol   Category = "protocol"
	CategoryServer     Category = "server"
)

// Severity indicates how critical an error is.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Context records where an error occurred.
type Context struct {
	Transport string `json:"transport,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
	Method    string `json:"method,omitempty"`
	Operation string `json:"operation,omitempty"`
}

// Error is the classified error type returned by every mcpwire component.
type Error struct {
	code     int
	message  string
	detail   string
	category Category
	severity Severity
	context  *Context
	cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.detail != "" {
		return fmt.Sprintf("%s: %s", e.message, e.detail)
	}
	return e.message
}

// Code returns the JSON-RPC error code.
func (e *Error) Code() int { return e.code }

// Message returns the human-readable message without detail.
func (e *Error) Message() string { return e.message }

// Category returns the error's classification.
func (e *Error) Category() Category { return e.category }

// Severity returns the error's severity level.
func (e *Error) Severity() Severity { return e.severity }

// Context returns the error context, or nil.
func (e *Error) Context() *Context { return e.context }

// Unwrap returns the underlying cause for errors.Is/As traversal.
func (e *Error) Unwrap() error { return e.cause }

// WithContext returns a copy of the error carrying ctx.
func (e *Error) WithContext(ctx *Context) *Error {
	clone := *e
	clone.context = ctx
	return &clone
}

// WithDetail returns a copy of the error with detail appended.
func (e *Error) WithDetail(detail string) *Error {
	clone := *e
	if clone.detail != "" {
		clone.detail = fmt.Sprintf("%s; %s", clone.detail, detail)
	} else {
		clone.detail = detail
	}
	return &clone
}

// New creates a classified error.
func New(code int, message string, category Category, severity Severity) *Error {
	return &Error{code: code, message: message, category: category, severity: severity}
}

// Newf creates a classified error with a formatted message.
func Newf(code int, category Category, severity Severity, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...), category, severity)
}

// Wrap wraps cause as a classified error.
func Wrap(cause error, code int, message string, category Category, severity Severity) *Error {
	return &Error{code: code, message: message, category: category, severity: severity, cause: cause}
}

// As extracts a classified *Error from err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCategory reports whether err classifies into category.
func IsCategory(err error, category Category) bool {
	if e, ok := As(err); ok {
		return e.category == category
	}
	return false
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code int) bool {
	if e, ok := As(err); ok {
		return e.code == code
	}
	return false
}
