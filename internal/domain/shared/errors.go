package shared

import "errors"

// ErrorKind classifies a domain error for transport mapping and retry decisions.
type ErrorKind string

const (
	// KindValidation marks caller mistakes: missing fields, empty line sets,
	// negative totals. Never retryable.
	KindValidation ErrorKind = "VALIDATION"
	// KindConflict marks expected concurrent contention: row not in the
	// required status, advisory lock held, duplicate monthly charge.
	// Callers may retry or back off.
	KindConflict ErrorKind = "CONFLICT"
	// KindConsistency marks broken invariants: an update that should hit
	// exactly one row hit zero, or a post-commit read found nothing.
	// Logged at highest severity, surfaced as a server-side failure.
	KindConsistency ErrorKind = "CONSISTENCY"
	// KindNotFound marks a missing resource on plain lookups.
	KindNotFound ErrorKind = "NOT_FOUND"
)

// DomainError represents a domain-level error with a stable machine-readable code.
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewValidationError creates a validation-kind domain error
func NewValidationError(code, message string) *DomainError {
	return &DomainError{Kind: KindValidation, Code: code, Message: message}
}

// NewConflictError creates a conflict-kind domain error
func NewConflictError(code, message string) *DomainError {
	return &DomainError{Kind: KindConflict, Code: code, Message: message}
}

// NewConsistencyError creates a consistency-fault domain error
func NewConsistencyError(code, message string) *DomainError {
	return &DomainError{Kind: KindConsistency, Code: code, Message: message}
}

// NewNotFoundError creates a not-found domain error
func NewNotFoundError(code, message string) *DomainError {
	return &DomainError{Kind: KindNotFound, Code: code, Message: message}
}

// IsKind reports whether err is a DomainError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind == kind
	}
	return false
}

// Common domain errors
var (
	ErrNotFound             = NewNotFoundError("NOT_FOUND", "Resource not found")
	ErrNotFoundOrBlocked    = NewConflictError("NOT_FOUND_OR_PROCESSED", "Resource not found in the required status or already being processed")
	ErrDocumentLockHeld     = NewConflictError("DOCUMENT_LOCK_HELD", "Document generation is already in progress")
	ErrDuplicateCharge      = NewConflictError("DUPLICATE_MONTHLY_CHARGE", "The student already has an issued charge for this product and month")
	ErrInvalidState         = NewConflictError("INVALID_STATE", "Operation not allowed in current state")
	ErrMissingOperatingDate = NewValidationError("MISSING_OPERATING_DATE", "Receipt has no operating date")
	ErrNoLineItems          = NewValidationError("NO_LINE_ITEMS", "Receipt has no line items to bill")
)
