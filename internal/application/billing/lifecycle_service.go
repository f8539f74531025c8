package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/campusbill/backend/internal/domain/billing"
	"github.com/campusbill/backend/internal/domain/shared"
	"github.com/campusbill/backend/internal/infrastructure/logger"
	"github.com/campusbill/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReceiptLifecycleService drives the Draft→Issued→Cancelled state machine.
// All cross-request coordination happens through database row locks scoped by
// the required status; the service never holds in-memory locks.
type ReceiptLifecycleService struct {
	store     BillingStore
	cashCuts  *CashCutService
	documents *DocumentService
	logger    *zap.Logger
}

// NewReceiptLifecycleService creates a new ReceiptLifecycleService
func NewReceiptLifecycleService(store BillingStore, cashCuts *CashCutService, documents *DocumentService, logger *zap.Logger) *ReceiptLifecycleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptLifecycleService{
		store:     store,
		cashCuts:  cashCuts,
		documents: documents,
		logger:    logger,
	}
}

// log prefers the request-scoped logger attached by the HTTP middleware,
// falling back to the injected one.
func (s *ReceiptLifecycleService) log(ctx context.Context) *zap.Logger {
	return logger.FromContextOr(ctx, s.logger)
}

// LifecycleResult is the outcome of an Issue/Cancel/Regenerate operation.
// Warning carries a side-effect failure that did not roll back the
// lifecycle transition.
type LifecycleResult struct {
	Receipt     *billing.Receipt
	ArtifactRef *string
	Warning     string
}

// Get returns one receipt with its line items.
func (s *ReceiptLifecycleService) Get(ctx context.Context, id uuid.UUID) (*billing.Receipt, error) {
	r, err := s.store.FindReceipt(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, shared.ErrNotFound
	}
	return r, nil
}

// Compute reprices every draft line of a DRAFT receipt and persists the new
// total. Idempotent: repeated calls converge to the same total for the same
// rules and ledger data. A receipt whose lines were all removed computes to a
// total of exactly zero; that is the intentional no-op case, not an error.
func (s *ReceiptLifecycleService) Compute(ctx context.Context, id uuid.UUID) (*billing.Receipt, error) {
	ctx, span := telemetry.StartSpan(ctx, "billing", "compute_receipt")
	defer span.End()

	// The computing flag is a UI hint only. Its writes run outside the
	// transaction and their failures never abort the recompute.
	if err := s.store.SetComputingHint(ctx, id, true); err != nil {
		s.log(ctx).Warn("Failed to set computing hint", zap.String("receipt_id", id.String()), zap.Error(err))
	}
	defer func() {
		if err := s.store.SetComputingHint(ctx, id, false); err != nil {
			s.log(ctx).Warn("Failed to clear computing hint", zap.String("receipt_id", id.String()), zap.Error(err))
		}
	}()

	var result *billing.Receipt
	err := s.store.InTransaction(ctx, func(tx BillingTx) error {
		r, err := tx.LockReceipt(id, billing.ReceiptStatusDraft)
		if err != nil {
			return err
		}
		if r == nil {
			return shared.ErrNotFoundOrBlocked
		}
		total, err := s.recomputeLines(tx, r)
		if err != nil {
			return err
		}
		if err := tx.SaveReceiptTotal(r.ID, total); err != nil {
			return fmt.Errorf("failed to save receipt total: %w", err)
		}
		r.Total = total
		result = r
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	return result, nil
}

// Issue transitions a DRAFT receipt to ISSUED: validates, guards against
// duplicate monthly charges, reprices, links the receipt to its cash-cut
// bucket and recomputes the bucket, all in one transaction. After commit the
// document side effect runs; its failure is reported as a warning because the
// collected money must never be undone by a failed PDF.
func (s *ReceiptLifecycleService) Issue(ctx context.Context, id uuid.UUID, documentName string) (*LifecycleResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "billing", "issue_receipt")
	defer span.End()

	var bucketID string
	err := s.store.InTransaction(ctx, func(tx BillingTx) error {
		r, err := tx.LockReceipt(id, billing.ReceiptStatusDraft)
		if err != nil {
			return err
		}
		if r == nil {
			return shared.ErrNotFoundOrBlocked
		}
		if err := r.ValidateForIssue(); err != nil {
			return err
		}

		draftLines := 0
		for i := range r.LineItems {
			if r.LineItems[i].Status == billing.ReceiptStatusDraft {
				draftLines++
			}
		}
		if draftLines == 0 {
			return shared.ErrNoLineItems
		}

		if err := s.guardDuplicateCharges(tx, r); err != nil {
			return err
		}

		total, err := s.recomputeLines(tx, r)
		if err != nil {
			return err
		}
		r.Total = total

		bucketID = r.BucketID()
		now := time.Now()
		if err := r.MarkIssued(bucketID, now); err != nil {
			return err
		}

		rows, err := tx.TransitionReceipt(r, billing.ReceiptStatusDraft)
		if err != nil {
			return fmt.Errorf("failed to persist issue transition: %w", err)
		}
		if rows != 1 {
			// The row was locked by us, so anything but exactly one affected
			// row means another actor raced ahead inside our lock scope.
			return shared.NewConsistencyError("ISSUE_TRANSITION_LOST",
				fmt.Sprintf("Issue transition for receipt %s affected %d rows, expected 1", id, rows))
		}
		if err := tx.UpdateLineStatuses(r.ID, billing.ReceiptStatusDraft, billing.ReceiptStatusIssued); err != nil {
			return fmt.Errorf("failed to issue line items: %w", err)
		}

		if _, err := s.cashCuts.RecomputeInTx(tx, bucketID, r.CashierID, r.CampusID, r.OperatingDate); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	// Post-commit sanity check: the transaction said yes, the pooled
	// connection must agree. Absence here is a broken invariant.
	check, err := s.store.FindIssuedInBucket(ctx, id, bucketID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("post-commit read failed: %w", err)
	}
	if check == nil {
		err = shared.NewConsistencyError("POST_COMMIT_READ_MISS",
			fmt.Sprintf("Receipt %s not found as ISSUED in bucket %s after commit", id, bucketID))
		s.log(ctx).Error("Post-commit verification failed",
			zap.String("receipt_id", id.String()),
			zap.String("cash_cut_id", bucketID),
		)
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &LifecycleResult{Receipt: check}
	ref, docErr := s.documents.GenerateReceiptDocument(ctx, id, documentName)
	if docErr != nil {
		result.Warning = fmt.Sprintf("receipt issued but document generation failed: %v", docErr)
		s.log(ctx).Warn("Document generation failed after issue",
			zap.String("receipt_id", id.String()),
			zap.Error(docErr),
		)
	} else {
		result.ArtifactRef = &ref
		check.ArtifactRef = &ref
	}
	return result, nil
}

// RequestCancellation records the external approval that precedes Cancel.
func (s *ReceiptLifecycleService) RequestCancellation(ctx context.Context, id uuid.UUID) error {
	rows, err := s.store.RequestCancellation(ctx, id)
	if err != nil {
		return err
	}
	if rows == 0 {
		return shared.ErrNotFoundOrBlocked
	}
	return nil
}

// Cancel transitions an ISSUED receipt with an approved cancellation request
// to CANCELLED, re-aggregates its original bucket and regenerates the
// document with the cancellation watermark, overwriting the prior artifact.
func (s *ReceiptLifecycleService) Cancel(ctx context.Context, id uuid.UUID) (*LifecycleResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "billing", "cancel_receipt")
	defer span.End()

	var cancelled *billing.Receipt
	err := s.store.InTransaction(ctx, func(tx BillingTx) error {
		r, err := tx.LockReceipt(id, billing.ReceiptStatusIssued)
		if err != nil {
			return err
		}
		if r == nil {
			return shared.ErrNotFoundOrBlocked
		}

		if err := r.MarkCancelled(time.Now()); err != nil {
			return err
		}

		rows, err := tx.TransitionReceipt(r, billing.ReceiptStatusIssued)
		if err != nil {
			return fmt.Errorf("failed to persist cancel transition: %w", err)
		}
		if rows != 1 {
			return shared.NewConsistencyError("CANCEL_TRANSITION_LOST",
				fmt.Sprintf("Cancel transition for receipt %s affected %d rows, expected 1", id, rows))
		}
		if err := tx.UpdateLineStatuses(r.ID, billing.ReceiptStatusIssued, billing.ReceiptStatusCancelled); err != nil {
			return fmt.Errorf("failed to cancel line items: %w", err)
		}

		// The receipt keeps its bucket linkage for audit; the bucket totals
		// move the amount from issued to cancelled.
		if r.CashCutID != nil {
			if _, err := s.cashCuts.RecomputeInTx(tx, *r.CashCutID, r.CashierID, r.CampusID, r.OperatingDate); err != nil {
				return err
			}
		}
		cancelled = r
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &LifecycleResult{Receipt: cancelled}
	ref, docErr := s.documents.GenerateReceiptDocument(ctx, id, "")
	if docErr != nil {
		result.Warning = fmt.Sprintf("receipt cancelled but document regeneration failed: %v", docErr)
		s.log(ctx).Warn("Document regeneration failed after cancel",
			zap.String("receipt_id", id.String()),
			zap.Error(docErr),
		)
	} else {
		result.ArtifactRef = &ref
		cancelled.ArtifactRef = &ref
	}
	return result, nil
}

// Regenerate is the administrative repair path for a missing or failed
// document. The lifecycle status is left untouched.
func (s *ReceiptLifecycleService) Regenerate(ctx context.Context, id uuid.UUID) (*LifecycleResult, error) {
	ref, err := s.documents.RegenerateReceiptDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	r, err := s.store.FindReceipt(ctx, id)
	if err != nil {
		return nil, err
	}
	return &LifecycleResult{Receipt: r, ArtifactRef: &ref}, nil
}

// recomputeLines reprices every draft line via the pure evaluator and
// persists the results, returning the new receipt total.
func (s *ReceiptLifecycleService) recomputeLines(tx BillingTx, r *billing.Receipt) (decimal.Decimal, error) {
	total := decimal.Zero
	for i := range r.LineItems {
		li := &r.LineItems[i]
		if li.Status != billing.ReceiptStatusDraft {
			continue
		}

		rules, err := tx.RulesForProduct(li.ProductID, r.PaymentMethod)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to load pricing rules: %w", err)
		}

		scholarshipPct := decimal.Zero
		if li.Recurrence == billing.RecurrenceMonthly && li.HasBillingPeriod() {
			scholarshipPct, err = tx.ScholarshipPct(r.StudentID, li.ProductID, *li.BillingMonth, *li.BillingYear)
			if err != nil {
				return decimal.Zero, fmt.Errorf("failed to look up scholarship: %w", err)
			}
		}

		pricing, err := billing.EvaluateLine(r.OperatingDate, r.PaymentMethod, li, rules, scholarshipPct)
		if err != nil {
			return decimal.Zero, err
		}
		li.ApplyPricing(pricing)
		if err := tx.SaveLineItem(li); err != nil {
			return decimal.Zero, fmt.Errorf("failed to save line item: %w", err)
		}
		total = total.Add(li.FinalPrice)
	}
	return total, nil
}

// guardDuplicateCharges enforces the anti-double-billing invariant: a student
// may hold at most one ISSUED monthly line per (product, month, year),
// regardless of which receipt carries it.
func (s *ReceiptLifecycleService) guardDuplicateCharges(tx BillingTx, r *billing.Receipt) error {
	for i := range r.LineItems {
		li := &r.LineItems[i]
		if li.Status != billing.ReceiptStatusDraft || li.Recurrence != billing.RecurrenceMonthly || !li.HasBillingPeriod() {
			continue
		}
		exists, err := tx.HasIssuedMonthlyLine(r.StudentID, li.ProductID, *li.BillingMonth, *li.BillingYear, r.ID)
		if err != nil {
			return fmt.Errorf("failed to check duplicate charge: %w", err)
		}
		if exists {
			return shared.ErrDuplicateCharge
		}
	}
	return nil
}
