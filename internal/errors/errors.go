package errors

import (
	"errors"
	"fmt"
)

// QueryError is the structured error type for leasehound.
// It provides rich context for error handling, logging, and user presentation.
type QueryError struct {
	// Code is the unique error code (e.g., "ERR_301_INDEX_UNAVAILABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Store, Collaborator, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *QueryError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with QueryError.
func (e *QueryError) Is(target error) bool {
	if t, ok := target.(*QueryError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *QueryError) WithDetail(key, value string) *QueryError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new QueryError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *QueryError {
	return &QueryError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a QueryError from an existing error.
// The error's message becomes the QueryError message.
func Wrap(code string, err error) *QueryError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// IndexUnavailable creates an error for an unreachable sub-index.
// These are transient by assumption and retryable.
func IndexUnavailable(source string, cause error) *QueryError {
	return New(ErrCodeIndexUnavailable,
		fmt.Sprintf("%s index unavailable", source), cause).
		WithDetail("source", source)
}

// RetrievalUnavailable creates the terminal error surfaced after retry
// of an unavailable sub-index failed.
func RetrievalUnavailable(cause error) *QueryError {
	return New(ErrCodeRetrievalUnavailable, "retrieval unavailable", cause)
}

// NoRelevantContext creates the reported condition for a search that
// succeeded but matched nothing. Not a failure.
func NoRelevantContext(query string) *QueryError {
	return New(ErrCodeNoRelevantContext, "no relevant passages found", nil).
		WithDetail("query", query)
}

// GenerationFailed creates an error for a failed or empty answer generation.
func GenerationFailed(cause error) *QueryError {
	return New(ErrCodeGenerationFailed, "answer generation failed", cause)
}

// DanglingChunk creates an error for a chunk id returned by an index but
// absent from the chunk store. Always a retrieval error, never dropped.
func DanglingChunk(chunkID string) *QueryError {
	return New(ErrCodeDanglingChunk,
		fmt.Sprintf("chunk %s referenced by index but not in store", chunkID), nil).
		WithDetail("chunk_id", chunkID)
}

// IsCode checks whether err carries the given leasehound error code
// anywhere in its chain.
func IsCode(err error, code string) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code == code
	}
	return false
}

// IsNoRelevantContext reports whether err is the "nothing found" outcome.
func IsNoRelevantContext(err error) bool {
	return IsCode(err, ErrCodeNoRelevantContext)
}

// IsRetrievalUnavailable reports whether err is the terminal retrieval failure.
func IsRetrievalUnavailable(err error) bool {
	return IsCode(err, ErrCodeRetrievalUnavailable)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error chain contains a QueryError with Retryable set.
func IsRetryable(err error) bool {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Retryable
	}
	return false
}

// GetCode extracts the error code from a QueryError chain.
// Returns empty string if no QueryError is present.
func GetCode(err error) string {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// GetCategory extracts the category from a QueryError chain.
// Returns empty string if no QueryError is present.
func GetCategory(err error) Category {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Category
	}
	return ""
}
