package billing

import (
	"fmt"
	"time"

	"github.com/campusbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptStatus represents the lifecycle status of a receipt
type ReceiptStatus string

const (
	ReceiptStatusDraft     ReceiptStatus = "DRAFT"     // Editable, not yet charged
	ReceiptStatusIssued    ReceiptStatus = "ISSUED"    // Money collected, linked to a cash cut
	ReceiptStatusCancelled ReceiptStatus = "CANCELLED" // Terminal, retained for audit
)

// IsValid checks if the status is a valid ReceiptStatus
func (s ReceiptStatus) IsValid() bool {
	switch s {
	case ReceiptStatusDraft, ReceiptStatusIssued, ReceiptStatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of ReceiptStatus
func (s ReceiptStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the receipt is in a terminal state
func (s ReceiptStatus) IsTerminal() bool {
	return s == ReceiptStatusCancelled
}

// CanIssue returns true if the receipt can be issued in this status
func (s ReceiptStatus) CanIssue() bool {
	return s == ReceiptStatusDraft
}

// CanCancel returns true if the receipt can be cancelled in this status
func (s ReceiptStatus) CanCancel() bool {
	return s == ReceiptStatusIssued
}

// PaymentMethod represents the method of payment for a receipt
type PaymentMethod string

const (
	PaymentMethodCash     PaymentMethod = "CASH"
	PaymentMethodCard     PaymentMethod = "CARD"
	PaymentMethodTransfer PaymentMethod = "TRANSFER"
)

// IsValid checks if the payment method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// Receipt is the aggregate root for one billable transaction of one student.
// It is created as DRAFT together with its line items by the intake flow and
// afterwards mutated only through the lifecycle operations.
type Receipt struct {
	shared.BaseEntity
	StudentID     uuid.UUID
	CampusID      uuid.UUID
	CashierID     uuid.UUID
	OperatingDate time.Time
	PaymentMethod PaymentMethod
	Status        ReceiptStatus
	Total         decimal.Decimal
	// CashCutID links the receipt to its aggregation bucket once issued.
	CashCutID *string
	IssuedAt    *time.Time
	CancelledAt *time.Time
	// ArtifactRef is the canonical object-store reference of the rendered
	// document, written back after a successful upload.
	ArtifactRef *string
	// Computing is a non-authoritative UI hint that a recompute is running.
	Computing bool
	// GeneratingDocument is the persisted advisory lock serializing document
	// (re)generation. It survives the owning transaction and process restarts.
	GeneratingDocument bool
	// CancellationRequested is set by an external approval step and is a
	// precondition for Cancel.
	CancellationRequested bool

	LineItems []ReceiptLineItem
}

// ValidateForIssue checks the mandatory-field and total invariants before
// a receipt may transition to ISSUED.
func (r *Receipt) ValidateForIssue() error {
	if r.StudentID == uuid.Nil {
		return shared.NewValidationError("MISSING_STUDENT", "Receipt has no student")
	}
	if r.CampusID == uuid.Nil {
		return shared.NewValidationError("MISSING_CAMPUS", "Receipt has no campus")
	}
	if r.OperatingDate.IsZero() {
		return shared.ErrMissingOperatingDate
	}
	if r.Total.IsNegative() {
		return shared.NewValidationError("NEGATIVE_TOTAL",
			fmt.Sprintf("Receipt total cannot be negative, got %s", r.Total))
	}
	return nil
}

// BucketID derives the cash-cut bucket key for this receipt. The key is a
// function of the receipt's own operating date, never the processing clock,
// so back-dated receipts land in the bucket matching their business day.
func (r *Receipt) BucketID() string {
	return CashCutBucketID(r.CashierID, r.CampusID, r.OperatingDate)
}

// MarkIssued flips the receipt to ISSUED and stamps the transition fields.
// The caller persists the change under the row lock; this mutator only
// encodes the state-machine rules.
func (r *Receipt) MarkIssued(bucketID string, at time.Time) error {
	if !r.Status.CanIssue() {
		return shared.ErrInvalidState
	}
	r.Status = ReceiptStatusIssued
	r.IssuedAt = &at
	r.CashCutID = &bucketID
	r.GeneratingDocument = true
	r.Computing = false
	for i := range r.LineItems {
		if r.LineItems[i].Status == ReceiptStatusDraft {
			r.LineItems[i].Status = ReceiptStatusIssued
		}
	}
	return nil
}

// MarkCancelled flips the receipt to CANCELLED. Requires a prior
// cancellation request approved by an external step.
func (r *Receipt) MarkCancelled(at time.Time) error {
	if !r.Status.CanCancel() {
		return shared.ErrInvalidState
	}
	if !r.CancellationRequested {
		return shared.NewConflictError("CANCELLATION_NOT_REQUESTED",
			"Receipt has no approved cancellation request")
	}
	r.Status = ReceiptStatusCancelled
	r.CancelledAt = &at
	r.CancellationRequested = false
	r.GeneratingDocument = true
	for i := range r.LineItems {
		if r.LineItems[i].Status == ReceiptStatusIssued {
			r.LineItems[i].Status = ReceiptStatusCancelled
		}
	}
	return nil
}
