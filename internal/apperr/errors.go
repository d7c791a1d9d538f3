// Package apperr defines the structured error codes surfaced by the allocation core.
package apperr

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure. Codes are stable and safe to show to callers.
type Code string

const (
	CodeCapacity          Code = "CAPACITY_EXCEEDED"
	CodeDuplicateEntry    Code = "DUPLICATE_ENTRY"
	CodeNoCapacity        Code = "NO_CAPACITY"
	CodeNotAllocated      Code = "NOT_ALLOCATED"
	CodeAlreadyAllocated  Code = "ALREADY_ALLOCATED_CONFLICT"
	CodeInvalidTransition Code = "INVALID_TRANSITION"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInvalidArgument   Code = "INVALID_ARGUMENT"
)

// Error is a coded error. Two Errors match under errors.Is when their codes are equal.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target carries the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrCapacity          = &Error{Code: CodeCapacity}
	ErrDuplicateEntry    = &Error{Code: CodeDuplicateEntry}
	ErrNoCapacity        = &Error{Code: CodeNoCapacity}
	ErrNotAllocated      = &Error{Code: CodeNotAllocated}
	ErrAlreadyAllocated  = &Error{Code: CodeAlreadyAllocated}
	ErrInvalidTransition = &Error{Code: CodeInvalidTransition}
	ErrNotFound          = &Error{Code: CodeNotFound}
	ErrInvalidArgument   = &Error{Code: CodeInvalidArgument}
)

// New returns a coded error with a formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

func Capacity(format string, args ...any) *Error { return New(CodeCapacity, format, args...) }

func DuplicateEntry(format string, args ...any) *Error {
	return New(CodeDuplicateEntry, format, args...)
}

func NoCapacity(format string, args ...any) *Error { return New(CodeNoCapacity, format, args...) }

func NotAllocated(format string, args ...any) *Error {
	return New(CodeNotAllocated, format, args...)
}

func AlreadyAllocated(format string, args ...any) *Error {
	return New(CodeAlreadyAllocated, format, args...)
}

func InvalidTransition(format string, args ...any) *Error {
	return New(CodeInvalidTransition, format, args...)
}

func NotFound(format string, args ...any) *Error { return New(CodeNotFound, format, args...) }

func InvalidArgument(format string, args ...any) *Error {
	return New(CodeInvalidArgument, format, args...)
}

// CodeOf extracts the code of the first *Error in err's chain, or "" when there is none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// MessageOf returns the human readable message of a coded error, falling back to err.Error().
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}
