package billing

import (
	"github.com/campusbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Recurrence classifies how often a product is billed
type Recurrence string

const (
	RecurrenceMonthly Recurrence = "MONTHLY"  // Recurring monthly charge, carries a billed month/year
	RecurrenceOneTime Recurrence = "ONE_TIME" // Single charge, no billing period
)

// IsValid checks if the recurrence is valid
func (r Recurrence) IsValid() bool {
	return r == RecurrenceMonthly || r == RecurrenceOneTime
}

// String returns the string representation of Recurrence
func (r Recurrence) String() string {
	return string(r)
}

// ReceiptLineItem is one priced product entry on a receipt.
// FinalPrice = max(0, ceil(base - discount - scholarship + surcharge + adjustment))
// and is recomputed only while the owning receipt is DRAFT.
type ReceiptLineItem struct {
	shared.BaseEntity
	ReceiptID   uuid.UUID
	ProductID   uuid.UUID
	Description string
	BasePrice   decimal.Decimal
	Recurrence  Recurrence
	// BillingMonth and BillingYear identify the billed period.
	// Required iff Recurrence is MONTHLY.
	BillingMonth *int
	BillingYear  *int
	Discount     decimal.Decimal
	Surcharge    decimal.Decimal
	Scholarship  decimal.Decimal
	// Adjustment is a manual per-line correction applied after rule evaluation.
	Adjustment decimal.Decimal
	FinalPrice decimal.Decimal
	Status     ReceiptStatus
}

// HasBillingPeriod reports whether the line carries a billed month and year.
func (li *ReceiptLineItem) HasBillingPeriod() bool {
	return li.BillingMonth != nil && li.BillingYear != nil
}

// Validate checks the line invariants independent of pricing.
func (li *ReceiptLineItem) Validate() error {
	if li.ProductID == uuid.Nil {
		return shared.NewValidationError("MISSING_PRODUCT", "Line item has no product")
	}
	if !li.Recurrence.IsValid() {
		return shared.NewValidationError("INVALID_RECURRENCE", "Line item recurrence is not valid")
	}
	if li.Recurrence == RecurrenceMonthly && !li.HasBillingPeriod() {
		return shared.NewValidationError("MISSING_BILLING_PERIOD",
			"Monthly line item requires a billing month and year")
	}
	return nil
}

// ApplyPricing writes an evaluation result into the line.
func (li *ReceiptLineItem) ApplyPricing(p LinePricing) {
	li.Discount = p.Discount
	li.Surcharge = p.Surcharge
	li.Scholarship = p.Scholarship
	li.FinalPrice = p.FinalPrice
	li.Touch()
}
