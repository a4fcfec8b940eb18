package errors

import (
	stderrors "errors"
	"fmt"
)

// Error is the structured error type for docsearch.
// It provides rich context for error handling, logging, and user presentation.
type Error struct {
	// Code is the unique error code (e.g., "ERR_201_INDEX_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Index, Backend, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work against the sentinel values below.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// New creates a new Error with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an Error from an existing error.
// The error's message becomes the Error message.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is comparisons. Matching is by code only.
var (
	ErrIndexNotFound      = &Error{Code: ErrCodeIndexNotFound}
	ErrIndexLocked        = &Error{Code: ErrCodeIndexLocked}
	ErrCorruptIndex       = &Error{Code: ErrCodeCorruptIndex}
	ErrIndexMisaligned    = &Error{Code: ErrCodeIndexMisaligned}
	ErrEmptyCorpus        = &Error{Code: ErrCodeEmptyCorpus}
	ErrInvalidInput       = &Error{Code: ErrCodeInvalidInput}
	ErrBackendUnavailable = &Error{Code: ErrCodeBackendUnavailable}
	ErrDimensionMismatch  = &Error{Code: ErrCodeDimensionMismatch}
)

// NoIndex reports that the index directory lacks a readable artifact.
func NoIndex(dir string, cause error) *Error {
	return New(ErrCodeIndexNotFound, fmt.Sprintf("no index available in %s", dir), cause).
		WithDetail("index_dir", dir).
		WithSuggestion("Run 'docsearch index' to build the index first")
}

// CorruptIndex reports malformed persisted index data.
func CorruptIndex(message string, cause error) *Error {
	return New(ErrCodeCorruptIndex, message, cause).
		WithSuggestion("Rebuild the index with 'docsearch index'")
}

// Misaligned reports that an index does not cover the same chunk positions as the document store.
func Misaligned(component string, want, got int) *Error {
	return New(ErrCodeIndexMisaligned,
		fmt.Sprintf("%s holds %d entries, document store holds %d chunks", component, got, want), nil).
		WithDetail("component", component).
		WithSuggestion("Rebuild the index with 'docsearch index'")
}

// BackendUnavailable reports a failed or timed out embedding/tokenization call.
func BackendUnavailable(message string, cause error) *Error {
	return New(ErrCodeBackendUnavailable, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *Error {
	return New(ErrCodeInvalidInput, message, cause)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *Error {
	return New(ErrCodeConfigInvalid, message, cause)
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := As(err); ok {
		return e.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if e, ok := As(err); ok {
		return e.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from err's chain.
// Returns empty string if there is none.
func GetCode(err error) string {
	if e, ok := As(err); ok {
		return e.Code
	}
	return ""
}
