// Package errors provides structured error handling for docsearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Index and corpus I/O errors
//   - 4XX: Validation errors
//   - 5XX: Retrieval backend and internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIndex indicates index artifact and corpus errors.
	CategoryIndex Category = "INDEX"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryBackend indicates failures of the embedding or tokenization backends.
	CategoryBackend Category = "BACKEND"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid    = "ERR_101_CONFIG_INVALID"
	ErrCodeConfigPermission = "ERR_102_CONFIG_PERMISSION"

	// Index errors (200-299)
	ErrCodeIndexNotFound    = "ERR_201_INDEX_NOT_FOUND"
	ErrCodeIndexLocked      = "ERR_202_INDEX_LOCKED"
	ErrCodeCorpusUnreadable = "ERR_203_CORPUS_UNREADABLE"
	ErrCodeIndexWrite       = "ERR_204_INDEX_WRITE"
	ErrCodeCorruptIndex     = "ERR_205_CORRUPT_INDEX"
	ErrCodeIndexMisaligned  = "ERR_206_INDEX_MISALIGNED"
	ErrCodeEmptyCorpus      = "ERR_207_EMPTY_CORPUS"

	// Validation errors (400-499)
	ErrCodeInvalidInput = "ERR_401_INVALID_INPUT"
	ErrCodeUnknownDoc   = "ERR_402_UNKNOWN_DOCUMENT"

	// Backend and internal errors (500-599)
	ErrCodeBackendUnavailable = "ERR_501_BACKEND_UNAVAILABLE"
	ErrCodeEmbeddingFailed    = "ERR_502_EMBEDDING_FAILED"
	ErrCodeSearchFailed       = "ERR_503_SEARCH_FAILED"
	ErrCodeDimensionMismatch  = "ERR_504_DIMENSION_MISMATCH"
	ErrCodeInternal           = "ERR_599_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract numeric portion (e.g., "201" from "ERR_201_INDEX_NOT_FOUND")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIndex
	case '4':
		return CategoryValidation
	case '5':
		if code == ErrCodeInternal {
			return CategoryInternal
		}
		return CategoryBackend
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
// Every load-time invariant violation is fatal: no searcher may be built on it.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeIndexNotFound, ErrCodeCorruptIndex, ErrCodeIndexMisaligned,
		ErrCodeEmptyCorpus, ErrCodeDimensionMismatch:
		return SeverityFatal
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeBackendUnavailable, ErrCodeIndexLocked:
		return true
	default:
		return false
	}
}
