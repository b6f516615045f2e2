// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error categories and error handling utilities for hioload-mem.
// Callers separate misuse (argument, range) from logic bugs (operation)
// and resource exhaustion by inspecting the ErrorCode.

package api

import (
	"errors"
	"fmt"
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeOutOfRange
	ErrCodeInvalidOperation
	ErrCodeOutOfMemory
	ErrCodeDisposed
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid argument"
	case ErrCodeOutOfRange:
		return "out of range"
	case ErrCodeInvalidOperation:
		return "invalid operation"
	case ErrCodeOutOfMemory:
		return "out of memory"
	case ErrCodeDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// Sentinels. errors.Is(err, ErrOutOfRange) holds for every *Error carrying
// the matching code, whatever its message.
var (
	ErrInvalidArgument  = &Error{Code: ErrCodeInvalidArgument, Message: "invalid argument"}
	ErrOutOfRange       = &Error{Code: ErrCodeOutOfRange, Message: "index out of range"}
	ErrInvalidOperation = &Error{Code: ErrCodeInvalidOperation, Message: "invalid operation"}
	ErrOutOfMemory      = &Error{Code: ErrCodeOutOfMemory, Message: "out of memory"}
	ErrDisposed         = &Error{Code: ErrCodeDisposed, Message: "use after dispose"}
)

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.cause != nil {
		msg = msg + ": " + e.cause.Error()
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Errorf creates a structured error with a formatted message.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// Wrap attaches cause to a new structured error.
func Wrap(code ErrorCode, cause error, message string) *Error {
	return &Error{Code: code, Message: message, cause: cause}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// CodeOf extracts the ErrorCode from err, ErrCodeOK for nil and
// ErrCodeInvalidOperation for foreign errors.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInvalidOperation
}
