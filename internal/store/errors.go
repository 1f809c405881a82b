package store

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a persistence failure independently of its message.
type Kind uint8

const (
	KindNotFound Kind = iota + 1
	KindAlreadyExists
	KindInvalidInput
	KindConflict
)

// HTTPCode maps a kind to the status a handler would answer with.
func (k Kind) HTTPCode() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyExists, KindConflict:
		return http.StatusConflict
	case KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a persistence error. Two errors match under errors.Is when their
// kinds match, so a sentinel still matches after WithMessage or WithCause.
type Error struct {
	Kind    Kind
	Message string
	Err     error // underlying driver error, optional
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a store error of the same kind.
func (e *Error) Is(target error) bool {
	var t *Error
	return errors.As(target, &t) && t.Kind == e.Kind
}

// HTTPCode returns the HTTP status code associated with this error.
func (e *Error) HTTPCode() int { return e.Kind.HTTPCode() }

// WithMessage returns a copy with a custom message.
func (e *Error) WithMessage(msg string) *Error {
	return &Error{Kind: e.Kind, Message: msg, Err: e.Err}
}

// WithCause returns a copy wrapping err.
func (e *Error) WithCause(err error) *Error {
	return &Error{Kind: e.Kind, Message: e.Message, Err: err}
}

// Sentinel errors.
var (
	ErrNotFound      = &Error{Kind: KindNotFound, Message: "resource not found"}
	ErrAlreadyExists = &Error{Kind: KindAlreadyExists, Message: "resource already exists"}
	ErrInvalidInput  = &Error{Kind: KindInvalidInput, Message: "invalid input"}

	// ErrConflict reports a conditional write that matched no row because
	// another writer got there first.
	ErrConflict = &Error{Kind: KindConflict, Message: "resource was modified concurrently"}
)
