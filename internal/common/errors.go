package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDatabase     = errors.New("database error")
)

// Recognition failures surfaced by the pipeline
var (
	ErrSubmissionFailed     = errors.New("recognition submission failed")
	ErrRecognitionJobFailed = errors.New("recognition job failed")
	ErrRecognitionTimeout   = errors.New("recognition timed out")
	ErrMalformedResult      = errors.New("malformed recognition result")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// MalformedResult reports an unusable backend payload.
func MalformedResult(format string, args ...any) error {
	return NewAppError("MALFORMED_RESULT", fmt.Sprintf(format, args...), ErrMalformedResult)
}
