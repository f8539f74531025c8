package billing

import (
	"fmt"
	"time"

	"github.com/campusbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashCutBucketID derives the deterministic bucket key for one cashier at one
// campus on one business day: "<cashier-id>-<campus-id>-<YYYYMMDD>".
func CashCutBucketID(cashierID, campusID uuid.UUID, operatingDate time.Time) string {
	return fmt.Sprintf("%s-%s-%s", cashierID, campusID, operatingDate.Format("20060102"))
}

// CashCut is the aggregation bucket summarizing all receipts handled by one
// cashier at one campus on one operating day. Its totals are always recomputed
// from the full member set, never incremented, so redundant recomputation is
// harmless.
type CashCut struct {
	ID            string
	CashierID     uuid.UUID
	CampusID      uuid.UUID
	OperatingDay  time.Time
	IssuedCount   int
	CashTotal     decimal.Decimal
	CardTotal     decimal.Decimal
	TransferTotal decimal.Decimal
	// GrandTotal = cash + card + transfer, before expenses.
	GrandTotal     decimal.Decimal
	CancelledCount int
	CancelledTotal decimal.Decimal
	CashExpenses   decimal.Decimal
	// NetCash = CashTotal - CashExpenses.
	NetCash     decimal.Decimal
	ArtifactRef *string
	// GeneratingDocument is the advisory lock serializing report regeneration.
	GeneratingDocument bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// MethodTotals holds aggregated sums for the bucket, split by payment method
// and lifecycle status.
type MethodTotals struct {
	IssuedCount    int
	CashTotal      decimal.Decimal
	CardTotal      decimal.Decimal
	TransferTotal  decimal.Decimal
	CancelledCount int
	CancelledTotal decimal.Decimal
}

// ApplyTotals replaces the bucket's aggregates with a fresh full-set
// computation and re-derives the invariant columns.
func (cc *CashCut) ApplyTotals(t MethodTotals, expenses decimal.Decimal) {
	cc.IssuedCount = t.IssuedCount
	cc.CashTotal = t.CashTotal
	cc.CardTotal = t.CardTotal
	cc.TransferTotal = t.TransferTotal
	cc.CancelledCount = t.CancelledCount
	cc.CancelledTotal = t.CancelledTotal
	cc.GrandTotal = t.CashTotal.Add(t.CardTotal).Add(t.TransferTotal)
	cc.CashExpenses = expenses
	cc.NetCash = t.CashTotal.Sub(expenses)
	cc.UpdatedAt = time.Now()
}

// CashExpense is one cash outflow recorded against a bucket. Expenses reduce
// NetCash but never GrandTotal.
type CashExpense struct {
	shared.BaseEntity
	CashCutID   string
	Description string
	Amount      decimal.Decimal
}

// NewCashExpense creates a validated cash expense for a bucket.
func NewCashExpense(cashCutID, description string, amount decimal.Decimal) (*CashExpense, error) {
	if cashCutID == "" {
		return nil, shared.NewValidationError("MISSING_CASH_CUT", "Expense has no cash cut")
	}
	if amount.IsNegative() || amount.IsZero() {
		return nil, shared.NewValidationError("INVALID_EXPENSE_AMOUNT", "Expense amount must be positive")
	}
	return &CashExpense{
		BaseEntity:  shared.NewBaseEntity(),
		CashCutID:   cashCutID,
		Description: description,
		Amount:      amount,
	}, nil
}
