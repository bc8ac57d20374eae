package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryUsage      Category = "usage"
	CategoryType       Category = "type"
	CategoryEvaluation Category = "evaluation"
	CategoryTemplate   Category = "template"
	CategoryConfig     Category = "config"
	CategorySource     Category = "source"
	CategoryProtocol   Category = "protocol"
	CategoryCLI        Category = "cli"
)

// TalError is a structured error with a code, a category and an optional hint.
//
// Every failure the binding core raises to its caller (a UsageError in the
// terminology of the engine) is a *TalError. Data faults that are absorbed at the
// accessor boundary are logged instead and never surface as a TalError.
type TalError struct {
	// Code is a unique error identifier (e.g., "T002").
	Code string

	// Category is the error type (usage, type, template, etc.).
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation, usually naming the offending input.
	Detail string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *TalError) Error() string {
	msg := e.Message
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *TalError) Unwrap() error {
	return e.Wrapped
}

// WithSuggestion adds a fix suggestion to the error.
func (e *TalError) WithSuggestion(s string) *TalError {
	e.Suggestion = s
	return e
}

// WithDetail adds a detailed explanation to the error.
func (e *TalError) WithDetail(d string) *TalError {
	e.Detail = d
	return e
}

// WithDetailf adds a formatted detail to the error.
func (e *TalError) WithDetailf(format string, args ...any) *TalError {
	e.Detail = fmt.Sprintf(format, args...)
	return e
}

// Wrap wraps another error.
func (e *TalError) Wrap(err error) *TalError {
	e.Wrapped = err
	return e
}

// New creates a TalError from a registered error code.
func New(code string) *TalError {
	template, ok := registry[code]
	if !ok {
		return &TalError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &TalError{
		Code:       code,
		Category:   template.Category,
		Message:    template.Message,
		Suggestion: template.Suggestion,
	}
}

// Newf creates a new TalError with a formatted message (no code).
func Newf(category Category, format string, args ...any) *TalError {
	return &TalError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError wraps a standard error in a TalError.
func FromError(err error, code string) *TalError {
	if err == nil {
		return nil
	}
	var te *TalError
	if stderrors.As(err, &te) {
		return te
	}
	return New(code).Wrap(err)
}

// As reports whether err is (or wraps) a *TalError and returns it.
func As(err error) (*TalError, bool) {
	var te *TalError
	if stderrors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// HasCode reports whether err is a *TalError carrying the given code.
func HasCode(err error, code string) bool {
	te, ok := As(err)
	return ok && te.Code == code
}
