package dto

import (
	"net/http"

	"github.com/campusbill/backend/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeConsistency is used when a persisted invariant was found broken,
	// e.g. a guarded update affected zero rows while holding the row lock
	ErrCodeConsistency = "ERR_CONSISTENCY"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeNotFoundOrProcessed is used when a lifecycle operation found no
	// row in the required status, usually because a concurrent actor already
	// processed it
	ErrCodeNotFoundOrProcessed = "ERR_NOT_FOUND_OR_PROCESSED"
	// ErrCodeDocumentLockHeld is used when document generation is already in
	// progress for the entity
	ErrCodeDocumentLockHeld = "ERR_DOCUMENT_LOCK_HELD"
	// ErrCodeDuplicateMonthlyCharge is used when issuing would create a second
	// issued charge for the same student, product and billing period
	ErrCodeDuplicateMonthlyCharge = "ERR_DUPLICATE_MONTHLY_CHARGE"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:     http.StatusInternalServerError,
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeConsistency: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	// Resource errors
	ErrCodeNotFound:               http.StatusNotFound,
	ErrCodeConflict:               http.StatusConflict,
	ErrCodeNotFoundOrProcessed:    http.StatusConflict,
	ErrCodeDocumentLockHeld:       http.StatusConflict,
	ErrCodeDuplicateMonthlyCharge: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState: http.StatusUnprocessableEntity,
	ErrCodeBusinessRule: http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain-level error codes to transport codes.
// Domain errors carry short stable codes; the HTTP layer presents them in
// the ERR_* namespace.
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":                ErrCodeNotFound,
	"NOT_FOUND_OR_PROCESSED":   ErrCodeNotFoundOrProcessed,
	"DOCUMENT_LOCK_HELD":       ErrCodeDocumentLockHeld,
	"DUPLICATE_MONTHLY_CHARGE": ErrCodeDuplicateMonthlyCharge,
	"INVALID_STATE":            ErrCodeInvalidState,
	"MISSING_OPERATING_DATE":   ErrCodeValidationRequired,
	"NO_LINE_ITEMS":            ErrCodeBusinessRule,
	"INVALID_INPUT":            ErrCodeInvalidInput,
	"INTERNAL_ERROR":           ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the transport format.
// If the code is already in the ERR_* format or unknown, returns it as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}

// KindHTTPStatus falls back to the error kind when the specific code has no
// mapping of its own.
func KindHTTPStatus(kind shared.ErrorKind) int {
	switch kind {
	case shared.KindValidation:
		return http.StatusBadRequest
	case shared.KindConflict:
		return http.StatusConflict
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindConsistency:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
