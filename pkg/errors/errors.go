// Package errors provides structured error types for spacegraph.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the CLI and the HTTP API
//   - Machine-readable error codes for programmatic handling
//   - User-facing messages without the code prefix
//
// Domain packages keep their own sentinel errors (attr.ErrColumnLocked,
// comm.ErrCancelled and so on). The CLI and server wrap those at their
// boundary with [FromDomain] so exit codes and HTTP statuses can branch on a
// [Code].
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - *_NOT_FOUND: Resource not found
//   - NOT_A_GRAPH, MALFORMED_GRAPH: graph file read failures
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "invalid radius: %s", r)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeMalformedGraph, origErr, "reading %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput   Code = "INVALID_INPUT"
	ErrCodeInvalidOptions Code = "INVALID_OPTIONS"
	ErrCodeInvalidFormat  Code = "INVALID_FORMAT"
	ErrCodeInvalidPath    Code = "INVALID_PATH"
	ErrCodeInvalidName    Code = "INVALID_NAME"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"
	ErrCodeMapNotFound  Code = "MAP_NOT_FOUND"

	// Graph file errors
	ErrCodeNotAGraph      Code = "NOT_A_GRAPH"
	ErrCodeMalformedGraph Code = "MALFORMED_GRAPH"

	// Map state errors
	ErrCodeCancelled     Code = "CANCELLED"
	ErrCodeColumnLocked  Code = "COLUMN_LOCKED"
	ErrCodeDuplicateName Code = "DUPLICATE_NAME"
	ErrCodeNotEditable   Code = "NOT_EDITABLE"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// domainCodes pairs sentinel errors of the domain packages with codes.
// It is filled by [Register] so this package stays free of domain imports.
var domainCodes []struct {
	err  error
	code Code
}

// Register associates a sentinel error with a code for [FromDomain].
// It is meant to be called from package init functions.
func Register(sentinel error, code Code) {
	domainCodes = append(domainCodes, struct {
		err  error
		code Code
	}{sentinel, code})
}

// FromDomain wraps err with the code of the first registered sentinel in
// its chain. Errors that already carry a code, and nil, are returned as is.
// Anything else becomes ErrCodeInternal.
func FromDomain(err error, format string, args ...any) error {
	if err == nil || GetCode(err) != "" {
		return err
	}
	for _, dc := range domainCodes {
		if errors.Is(err, dc.err) {
			return Wrap(dc.code, err, format, args...)
		}
	}
	return Wrap(ErrCodeInternal, err, format, args...)
}
