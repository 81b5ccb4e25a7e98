// Package errors provides structured error handling for leasehound.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Store errors (chunk store, on-disk indices)
//   - 3XX: Collaborator errors (indices, embedding, generation)
//   - 4XX: Validation errors
//   - 5XX: Query outcomes and internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStore indicates chunk store and index persistence errors.
	CategoryStore Category = "STORE"
	// CategoryCollaborator indicates errors from external collaborators
	// (index backends, embedding service, language model).
	CategoryCollaborator Category = "COLLABORATOR"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryQuery indicates query-level outcomes and internal errors.
	CategoryQuery Category = "QUERY"
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
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Store errors (200-299)
	ErrCodeStoreClosed   = "ERR_201_STORE_CLOSED"
	ErrCodeDanglingChunk = "ERR_202_DANGLING_CHUNK"
	ErrCodeCorruptIndex  = "ERR_203_CORRUPT_INDEX"

	// Collaborator errors (300-399)
	ErrCodeIndexUnavailable     = "ERR_301_INDEX_UNAVAILABLE"
	ErrCodeEmbeddingFailed      = "ERR_302_EMBEDDING_FAILED"
	ErrCodeGenerationFailed     = "ERR_303_GENERATION_FAILED"
	ErrCodeRetrievalUnavailable = "ERR_304_RETRIEVAL_UNAVAILABLE"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeQueryEmpty        = "ERR_402_QUERY_EMPTY"
	ErrCodeDimensionMismatch = "ERR_403_DIMENSION_MISMATCH"
	ErrCodeSessionNotFound   = "ERR_404_SESSION_NOT_FOUND"

	// Query outcomes and internal errors (500-599)
	ErrCodeNoRelevantContext     = "ERR_501_NO_RELEVANT_CONTEXT"
	ErrCodeReformulationDegraded = "ERR_502_REFORMULATION_DEGRADED"
	ErrCodeInternal              = "ERR_503_INTERNAL"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryQuery
	}

	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStore
	case '3':
		return CategoryCollaborator
	case '4':
		return CategoryValidation
	default:
		return CategoryQuery
	}
}

// severityFromCode derives severity from the error code.
// Most errors abort the current request; the two soft outcomes are graded down.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeNoRelevantContext:
		return SeverityInfo
	case ErrCodeReformulationDegraded:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// isRetryableCode reports whether a single bounded retry is worthwhile.
// Only transient infrastructure hiccups qualify.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeIndexUnavailable, ErrCodeEmbeddingFailed:
		return true
	default:
		return false
	}
}
