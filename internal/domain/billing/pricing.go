package billing

import (
	"sort"
	"time"

	"github.com/campusbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LinePricing is the result of evaluating one line item.
type LinePricing struct {
	TemporalCase *TemporalCase
	Discount     decimal.Decimal
	Surcharge    decimal.Decimal
	Scholarship  decimal.Decimal
	FinalPrice   decimal.Decimal
	// AppliedRuleIDs records which rules matched, in evaluation order.
	AppliedRuleIDs []string
}

// EvaluateLine computes a line item's discount, surcharge, scholarship and
// final price. Pure and deterministic: same inputs always produce the same
// result, no I/O.
//
// Every matching rule applies additively against the base price; percentages
// are never compounded. scholarshipPct is a fraction of the base price and
// only applies to monthly lines. The final price is floored at zero and
// rounded with a ceiling to the nearest integer currency unit so the system
// never under-bills.
func EvaluateLine(operatingDate time.Time, method PaymentMethod, item *ReceiptLineItem, rules []PricingRule, scholarshipPct decimal.Decimal) (LinePricing, error) {
	if operatingDate.IsZero() {
		return LinePricing{}, shared.ErrMissingOperatingDate
	}
	if err := item.Validate(); err != nil {
		return LinePricing{}, err
	}

	var temporalCase *TemporalCase
	if item.Recurrence == RecurrenceMonthly && item.HasBillingPeriod() {
		tc := ClassifyTemporalCase(*item.BillingYear, *item.BillingMonth, operatingDate)
		temporalCase = &tc
	}

	// Priority governs evaluation order only; every matching rule contributes.
	ordered := make([]PricingRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority > ordered[j].Priority
	})

	discount := decimal.Zero
	surcharge := decimal.Zero
	var applied []string
	for i := range ordered {
		rule := &ordered[i]
		if !rule.Matches(item.ProductID, method, temporalCase, operatingDate) {
			continue
		}
		discount = discount.Add(item.BasePrice.Mul(rule.DiscountPct))
		surcharge = surcharge.Add(item.BasePrice.Mul(rule.SurchargePct))
		applied = append(applied, rule.ID.String())
	}

	scholarship := decimal.Zero
	if item.Recurrence == RecurrenceMonthly && scholarshipPct.IsPositive() {
		scholarship = item.BasePrice.Mul(scholarshipPct)
	}

	final := item.BasePrice.
		Sub(discount).
		Sub(scholarship).
		Add(surcharge).
		Add(item.Adjustment).
		Ceil()
	if final.IsNegative() {
		final = decimal.Zero
	}

	return LinePricing{
		TemporalCase:   temporalCase,
		Discount:       discount,
		Surcharge:      surcharge,
		Scholarship:    scholarship,
		FinalPrice:     final,
		AppliedRuleIDs: applied,
	}, nil
}
