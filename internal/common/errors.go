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

// Processing error taxonomy. Every failure surfaced by the pipeline matches
// exactly one of these via errors.Is.
var (
	// ErrValidation: input file fails the type or size precondition.
	// Raised before any engine or rasterizer work starts.
	ErrValidation = errors.New("validation failed")

	// ErrRecognition: the recognition engine failed to initialize,
	// configure, or execute.
	ErrRecognition = errors.New("recognition failed")

	// ErrEmptyText: recognition succeeded but produced no usable text.
	// User-actionable, not a system fault.
	ErrEmptyText = errors.New("no extractable text, retake a clearer image")

	// ErrPdfRender: the PDF has no pages, page render failed, or the
	// raster could not be encoded.
	ErrPdfRender = errors.New("pdf render failed")
)

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

// ClassifyError passes taxonomy errors through untouched and wraps anything
// else as a generic UNKNOWN AppError, so callers always receive a
// well-shaped error value.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrRecognition) ||
		errors.Is(err, ErrEmptyText) ||
		errors.Is(err, ErrPdfRender) {
		return err
	}
	return NewAppError("UNKNOWN", "unexpected error while processing document", err)
}
