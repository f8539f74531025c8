package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/campusbill/backend/internal/domain/billing"
	"github.com/campusbill/backend/internal/domain/shared"
	"github.com/campusbill/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CashCutService maintains the per-bucket aggregates. Totals are always
// recomputed from the full current member set, so the operation is idempotent
// and interleaved issues converge regardless of ordering.
type CashCutService struct {
	store  BillingStore
	logger *zap.Logger
}

// NewCashCutService creates a new CashCutService
func NewCashCutService(store BillingStore, logger *zap.Logger) *CashCutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CashCutService{store: store, logger: logger}
}

// log prefers the request-scoped logger attached by the HTTP middleware,
// falling back to the injected one.
func (s *CashCutService) log(ctx context.Context) *zap.Logger {
	return logger.FromContextOr(ctx, s.logger)
}

// RecomputeInTx recreates the bucket aggregates inside an already-open
// lifecycle transaction. Creates the bucket row on first use.
func (s *CashCutService) RecomputeInTx(tx BillingTx, bucketID string, cashierID, campusID uuid.UUID, day time.Time) (*billing.CashCut, error) {
	cut, err := tx.EnsureCashCut(bucketID, cashierID, campusID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure cash cut %s: %w", bucketID, err)
	}

	totals, err := tx.AggregateCashCut(bucketID)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate cash cut %s: %w", bucketID, err)
	}
	expenses, err := tx.SumCashExpenses(bucketID)
	if err != nil {
		return nil, fmt.Errorf("failed to sum expenses for cash cut %s: %w", bucketID, err)
	}

	cut.ApplyTotals(totals, expenses)
	if err := tx.SaveCashCut(cut); err != nil {
		return nil, fmt.Errorf("failed to save cash cut %s: %w", bucketID, err)
	}
	return cut, nil
}

// Recompute re-derives the bucket aggregates in a transaction of its own.
// Safe to call redundantly.
func (s *CashCutService) Recompute(ctx context.Context, bucketID string) (*billing.CashCut, error) {
	existing, err := s.store.FindCashCut(ctx, bucketID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, shared.ErrNotFound
	}

	var cut *billing.CashCut
	err = s.store.InTransaction(ctx, func(tx BillingTx) error {
		cut, err = s.RecomputeInTx(tx, bucketID, existing.CashierID, existing.CampusID, existing.OperatingDay)
		return err
	})
	if err != nil {
		return nil, err
	}
	return cut, nil
}

// Get returns one bucket with its recorded expenses.
func (s *CashCutService) Get(ctx context.Context, bucketID string) (*billing.CashCut, []billing.CashExpense, error) {
	cut, err := s.store.FindCashCut(ctx, bucketID)
	if err != nil {
		return nil, nil, err
	}
	if cut == nil {
		return nil, nil, shared.ErrNotFound
	}
	expenses, err := s.store.ListCashExpenses(ctx, bucketID)
	if err != nil {
		return nil, nil, err
	}
	return cut, expenses, nil
}

// RecordExpense appends a cash expense to a bucket and re-derives net cash
// in the same transaction.
func (s *CashCutService) RecordExpense(ctx context.Context, bucketID, description string, amount decimal.Decimal) (*billing.CashCut, error) {
	existing, err := s.store.FindCashCut(ctx, bucketID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, shared.ErrNotFound
	}

	expense, err := billing.NewCashExpense(bucketID, description, amount)
	if err != nil {
		return nil, err
	}

	var cut *billing.CashCut
	err = s.store.InTransaction(ctx, func(tx BillingTx) error {
		if err := tx.InsertCashExpense(expense); err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}
		cut, err = s.RecomputeInTx(tx, bucketID, existing.CashierID, existing.CampusID, existing.OperatingDay)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log(ctx).Info("Cash expense recorded",
		zap.String("cash_cut_id", bucketID),
		zap.String("amount", amount.String()),
	)
	return cut, nil
}
