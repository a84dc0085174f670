package errors

import (
	"errors"
	"fmt"
)

// DeskError is the structured error type for leasedesk.
// It carries a stable code plus enough context for logging and fallback decisions.
type DeskError struct {
	// Code is the unique error code (e.g., "ERR_201_STORAGE_WRITE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Service, ...).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *DeskError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *DeskError) Unwrap() error {
	return e.Cause
}

// Is matches DeskErrors by code so errors.Is works across wrap sites.
func (e *DeskError) Is(target error) bool {
	if t, ok := target.(*DeskError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *DeskError) WithDetail(key, value string) *DeskError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a DeskError with the given code and message.
// Category, severity, and the retryable flag are derived from the code.
func New(code string, message string, cause error) *DeskError {
	return &DeskError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a DeskError from an existing error, keeping its message.
func Wrap(code string, err error) *DeskError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// StorageError creates a persistence error. Surfaced to ingest callers.
func StorageError(message string, cause error) *DeskError {
	return New(ErrCodeStorageWrite, message, cause)
}

// ExtractionError creates a text-extraction error. Recovered locally by the chunker.
func ExtractionError(message string, cause error) *DeskError {
	return New(ErrCodeExtractionFailed, message, cause)
}

// EmbeddingError creates an embedding-service error.
// These are converted to tier fallback, never surfaced to search callers.
func EmbeddingError(message string, cause error) *DeskError {
	return New(ErrCodeEmbeddingUnavailable, message, cause)
}

// GenerationError creates a generation-service error.
// Callers degrade to returning citations alone.
func GenerationError(message string, cause error) *DeskError {
	return New(ErrCodeGenerationUnavailable, message, cause)
}

// ValidationError creates an input validation error.
func ValidationError(message string, cause error) *DeskError {
	return New(ErrCodeInvalidInput, message, cause)
}

// IsRetryable reports whether err is a retryable DeskError.
func IsRetryable(err error) bool {
	var de *DeskError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}

// GetCode extracts the error code from a DeskError anywhere in the chain.
// Returns empty string if no DeskError is present.
func GetCode(err error) string {
	var de *DeskError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// GetCategory extracts the category from a DeskError anywhere in the chain.
func GetCategory(err error) Category {
	var de *DeskError
	if errors.As(err, &de) {
		return de.Category
	}
	return ""
}
