package common

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error classes. Services wrap one of these so the HTTP layer can pick a
// status code with errors.Is without knowing where the error came from.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrUpstream        = errors.New("upstream failure")
	ErrConflict        = errors.New("conflict")
)

// ErrEmailTaken is wrapped by a conflict on the account email rather than
// the username.
var ErrEmailTaken = errors.New("email already registered")

// ClassError carries a client-facing message plus the class sentinel.
type ClassError struct {
	Class   error
	Message string
	Err     error
}

func (e *ClassError) Error() string {
	if e.Err != nil && e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Class, e.Err)
	}
	return e.Message
}

// Is reports whether target is this error's class sentinel.
func (e *ClassError) Is(target error) bool {
	return target == e.Class
}

func (e *ClassError) Unwrap() error {
	return e.Err
}

// NotFound reports a missing resource. The message reads "Prediction not found"
// for resource "prediction".
func NotFound(resource string) error {
	msg := "Not found"
	if resource != "" {
		msg = capitalise(resource) + " not found"
	}
	return &ClassError{Class: ErrNotFound, Message: msg}
}

// InvalidArgument reports a malformed request.
func InvalidArgument(msg string) error {
	return &ClassError{Class: ErrInvalidArgument, Message: msg}
}

// Unauthorized reports failed authentication.
func Unauthorized(msg string) error {
	if msg == "" {
		msg = "Invalid credentials"
	}
	return &ClassError{Class: ErrUnauthorized, Message: msg}
}

// Conflict reports a uniqueness violation.
func Conflict(msg string) error {
	return &ClassError{Class: ErrConflict, Message: msg}
}

// Upstream wraps a failure of the market data provider.
func Upstream(err error) error {
	return &ClassError{Class: ErrUpstream, Message: "Failed to fetch data from provider", Err: err}
}

// ValidationError carries per-field messages for a rejected form. It is in
// the InvalidArgument class.
type ValidationError struct {
	Fields map[string][]string
}

// NewValidationError returns an empty ValidationError.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string][]string{}}
}

// Add records msg against field.
func (e *ValidationError) Add(field, msg string) {
	e.Fields[field] = append(e.Fields[field], msg)
}

// HasErrors reports whether any field was rejected.
func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArgument
}

// Message returns the client-facing message for a classified error, or "".
func Message(err error) string {
	var ce *ClassError
	if errors.As(err, &ce) {
		return ce.Message
	}
	return ""
}

func capitalise(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}
