// Package errors provides structured error handling with typed error codes.
//
// Error codes are organized into categories:
//   - General errors (1-99): Unknown errors and missing inputs
//   - Rule errors (100-199): Rule text parsing and compilation failures
//   - Data errors (200-299): Missing or insufficient bar history
//   - Indicator errors (300-399): Indicator lookup and calculation errors
//   - Portfolio errors (400-499): Entry/exit rejections and sizing errors
//   - Engine errors (500-599): Backtest configuration and run errors
//
// Usage:
//
//	err := errors.New(errors.ErrCodeNoData, "no bars for symbol")
//	err := errors.Newf(errors.ErrCodeParse, "unexpected token %q", tok)
//	err := errors.Wrap(errors.ErrCodeQueryFailed, "failed to fetch bars", cause)
//	if errors.HasCode(err, errors.ErrCodeNoData) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error represents a structured error with an error code and message.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   nil,
	}
}

// Newf creates a new Error with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   nil,
	}
}

// Wrap wraps an existing error with a new Error containing the given code and message.
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an existing error with a new Error containing the given code and formatted message.
func Wrapf(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Cause)
	}

	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// GetCode extracts the ErrorCode from an error if it's an *Error type.
// Returns ErrCodeUnknown if the error is not an *Error type.
func GetCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ErrCodeUnknown
}

// HasCode checks if an error has a specific ErrorCode.
func HasCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// ParseError reports a rule-text compilation failure together with the
// offending fragment, so callers can show the user exactly what was rejected.
type ParseError struct {
	Input    string // full rule text being parsed
	Fragment string // offending substring
	Offset   int    // byte offset of the fragment within Input
	Message  string
}

// NewParseError creates a new ParseError.
func NewParseError(input, fragment string, offset int, message string) *ParseError {
	return &ParseError{
		Input:    input,
		Fragment: fragment,
		Offset:   offset,
		Message:  message,
	}
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Fragment == "" {
		return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Message)
	}

	return fmt.Sprintf("parse error at offset %d near %q: %s", e.Offset, e.Fragment, e.Message)
}

// InsufficientDataError reports that a calculation needed more bars than
// were available (e.g. an indicator warm-up window or a universe threshold).
type InsufficientDataError struct {
	Required int    // minimum bars required
	Actual   int    // bars available
	Code     string // optional: instrument context
	Message  string
}

// NewInsufficientDataError creates a new InsufficientDataError.
func NewInsufficientDataError(required, actual int, code, message string) *InsufficientDataError {
	return &InsufficientDataError{
		Required: required,
		Actual:   actual,
		Code:     code,
		Message:  message,
	}
}

// Error implements the error interface.
func (e *InsufficientDataError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (required %d bars, have %d)", e.Code, e.Message, e.Required, e.Actual)
	}

	return fmt.Sprintf("%s (required %d bars, have %d)", e.Message, e.Required, e.Actual)
}
