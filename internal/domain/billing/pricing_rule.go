package billing

import (
	"time"

	"github.com/campusbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TemporalCase classifies a monthly line relative to the receipt's operating date
type TemporalCase string

const (
	TemporalCaseEarly   TemporalCase = "EARLY"   // Billed period is after the operating month
	TemporalCaseCurrent TemporalCase = "CURRENT" // Billed period equals the operating month
	TemporalCaseLate    TemporalCase = "LATE"    // Billed period is before the operating month
)

// IsValid checks if the temporal case is valid
func (c TemporalCase) IsValid() bool {
	switch c {
	case TemporalCaseEarly, TemporalCaseCurrent, TemporalCaseLate:
		return true
	}
	return false
}

// String returns the string representation of TemporalCase
func (c TemporalCase) String() string {
	return string(c)
}

// ClassifyTemporalCase compares the billed (year, month) of a line against the
// operating date's (year, month). Day-of-month never participates.
func ClassifyTemporalCase(billingYear, billingMonth int, operatingDate time.Time) TemporalCase {
	opYear, opMonth := operatingDate.Year(), int(operatingDate.Month())
	switch {
	case billingYear > opYear || (billingYear == opYear && billingMonth > opMonth):
		return TemporalCaseEarly
	case billingYear < opYear || (billingYear == opYear && billingMonth < opMonth):
		return TemporalCaseLate
	default:
		return TemporalCaseCurrent
	}
}

// PricingRule is a conditional discount/surcharge definition for one product.
// All rules matching a line apply additively; Priority orders evaluation only
// and does not make the highest-priority rule exclusive.
type PricingRule struct {
	shared.BaseEntity
	ProductID     uuid.UUID
	PaymentMethod PaymentMethod
	// TemporalCase constrains the rule to early/current/late monthly lines.
	// Nil means the rule applies regardless of the case, and it is ignored
	// entirely for one-time lines.
	TemporalCase *TemporalCase
	ValidFrom    time.Time
	ValidUntil   time.Time
	// DayStart/DayEnd define an optional day-of-month recurrence window.
	// Both nil means the rule is not periodic.
	DayStart *int
	DayEnd   *int
	Priority int
	// DiscountPct and SurchargePct are fractions of the base price (0.10 = 10%).
	DiscountPct  decimal.Decimal
	SurchargePct decimal.Decimal
	Active       bool
}

// IsPeriodic reports whether the rule is constrained to a day-of-month window.
func (pr *PricingRule) IsPeriodic() bool {
	return pr.DayStart != nil && pr.DayEnd != nil
}

// Matches reports whether the rule applies to a line billed with the given
// payment method and temporal case on the given operating date. temporalCase
// is nil for one-time lines.
func (pr *PricingRule) Matches(productID uuid.UUID, method PaymentMethod, temporalCase *TemporalCase, operatingDate time.Time) bool {
	if !pr.Active || pr.ProductID != productID || pr.PaymentMethod != method {
		return false
	}
	if operatingDate.Before(pr.ValidFrom) || operatingDate.After(pr.ValidUntil) {
		return false
	}
	if pr.TemporalCase != nil {
		if temporalCase == nil || *pr.TemporalCase != *temporalCase {
			return false
		}
	}
	if pr.IsPeriodic() {
		day := operatingDate.Day()
		if day < *pr.DayStart || day > *pr.DayEnd {
			return false
		}
	}
	return true
}
