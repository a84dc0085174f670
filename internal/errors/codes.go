// Package errors provides structured error handling for leasedesk.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage and extraction errors
//   - 3XX: External-service errors (embedding, generation)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category classifies errors for logging and fallback decisions.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates persistence errors (SQLite read/write).
	CategoryStorage Category = "STORAGE"
	// CategoryService indicates external-service errors (embedding, generation).
	CategoryService Category = "SERVICE"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but the caller can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage and extraction errors (200-299)
	ErrCodeStorageWrite     = "ERR_201_STORAGE_WRITE"
	ErrCodeStorageRead      = "ERR_202_STORAGE_READ"
	ErrCodeExtractionFailed = "ERR_203_EXTRACTION_FAILED"
	ErrCodeCorruptStore     = "ERR_204_CORRUPT_STORE"

	// External-service errors (300-399)
	ErrCodeEmbeddingUnavailable  = "ERR_301_EMBEDDING_UNAVAILABLE"
	ErrCodeGenerationUnavailable = "ERR_302_GENERATION_UNAVAILABLE"
	ErrCodeServiceTimeout        = "ERR_303_SERVICE_TIMEOUT"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeEmptyQuery        = "ERR_403_EMPTY_QUERY"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
)

// categoryFromCode derives the category from the numeric portion of a code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryService
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode derives the default severity from a code.
// Service errors are warnings: the retrieval ladder degrades instead of aborting.
func severityFromCode(code string) Severity {
	switch categoryFromCode(code) {
	case CategoryConfig:
		return SeverityFatal
	case CategoryService:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether operations failing with this code may be retried.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbeddingUnavailable, ErrCodeGenerationUnavailable, ErrCodeServiceTimeout:
		return true
	default:
		return false
	}
}
