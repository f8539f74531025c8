package billing

import (
	"github.com/campusbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChargePaymentStatus tracks whether a monthly obligation has been settled
type ChargePaymentStatus string

const (
	ChargePaymentStatusPending ChargePaymentStatus = "PENDING"
	ChargePaymentStatusPaid    ChargePaymentStatus = "PAID"
)

// MonthlyCharge is the ledger entry for one student's obligation for one
// product in one billing month. The pricing evaluator consumes it for the
// scholarship percentage; it is owned and mutated elsewhere.
type MonthlyCharge struct {
	shared.BaseEntity
	StudentID uuid.UUID
	ProductID uuid.UUID
	Month     int
	Year      int
	// ScholarshipPct is a fraction of the base price (0.25 = 25%).
	ScholarshipPct decimal.Decimal
	PaymentStatus  ChargePaymentStatus
}
