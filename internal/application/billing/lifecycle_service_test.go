package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campusbill/backend/internal/domain/billing"
	"github.com/campusbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Test helpers
func newDraftReceipt() *billing.Receipt {
	month, year := 3, 2026
	return &billing.Receipt{
		BaseEntity:    shared.NewBaseEntity(),
		StudentID:     uuid.New(),
		CampusID:      uuid.New(),
		CashierID:     uuid.New(),
		OperatingDate: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		PaymentMethod: billing.PaymentMethodCash,
		Status:        billing.ReceiptStatusDraft,
		LineItems: []billing.ReceiptLineItem{
			{
				BaseEntity:   shared.NewBaseEntity(),
				ProductID:    uuid.New(),
				Description:  "Monthly tuition",
				BasePrice:    decimal.NewFromInt(1000),
				Recurrence:   billing.RecurrenceMonthly,
				BillingMonth: &month,
				BillingYear:  &year,
				Status:       billing.ReceiptStatusDraft,
			},
		},
	}
}

func newLifecycleFixture() (*ReceiptLifecycleService, *mockBillingStore, *mockDocumentRenderer, *mockArtifactStore) {
	store := newMockBillingStore()
	renderer := &mockDocumentRenderer{}
	artifacts := &mockArtifactStore{}
	documents := NewDocumentService(store, renderer, artifacts, zap.NewNop())
	cashCuts := NewCashCutService(store, zap.NewNop())
	svc := NewReceiptLifecycleService(store, cashCuts, documents, zap.NewNop())
	return svc, store, renderer, artifacts
}

// expectPricing scripts the rule and scholarship lookups for every draft
// monthly line of the receipt.
func expectPricing(store *mockBillingStore, r *billing.Receipt) {
	store.tx.On("RulesForProduct", mock.Anything, r.PaymentMethod).Return(nil, nil)
	store.tx.On("ScholarshipPct", r.StudentID, mock.Anything, mock.Anything, mock.Anything).Return(decimal.Zero, nil)
	store.tx.On("SaveLineItem", mock.Anything).Return(nil)
}

// expectBucketRecompute scripts the cash-cut aggregation of an issue or
// cancel transaction.
func expectBucketRecompute(store *mockBillingStore, r *billing.Receipt) {
	bucket := r.BucketID()
	store.tx.On("EnsureCashCut", bucket, r.CashierID, r.CampusID, mock.Anything).
		Return(&billing.CashCut{ID: bucket, CashierID: r.CashierID, CampusID: r.CampusID, OperatingDay: r.OperatingDate}, nil)
	store.tx.On("AggregateCashCut", bucket).Return(billing.MethodTotals{
		IssuedCount: 1,
		CashTotal:   decimal.NewFromInt(1000),
	}, nil)
	store.tx.On("SumCashExpenses", bucket).Return(decimal.Zero, nil)
	store.tx.On("SaveCashCut", mock.Anything).Return(nil)
}

// expectDocumentGeneration scripts a successful render-and-upload pass for
// a receipt whose document lock is already held.
func expectDocumentGeneration(store *mockBillingStore, renderer *mockDocumentRenderer, artifacts *mockArtifactStore, r *billing.Receipt) string {
	key := receiptKeyPrefix + r.ID.String() + documentExtension
	ref := "s3://billing-artifacts/" + key
	store.On("FindReceiptDocument", mock.Anything, r.ID).
		Return(&ReceiptDocument{Receipt: *r, StudentName: "Test Student", CampusName: "Main Campus"}, nil)
	renderer.On("RenderReceipt", mock.Anything, mock.Anything).Return([]byte("%PDF-1.7"), nil)
	artifacts.On("Delete", mock.Anything, key).Return(nil)
	artifacts.On("Put", mock.Anything, key, mock.Anything, documentContentType).Return(ref, nil)
	store.On("SetReceiptArtifact", mock.Anything, r.ID, r.Status, ref).Return(int64(1), nil)
	store.On("ClearReceiptDocumentLock", mock.Anything, r.ID).Return(nil)
	return ref
}

// ============================================
// Get Tests
// ============================================

func TestReceiptLifecycleService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("returns receipt", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		r := newDraftReceipt()
		store.On("FindReceipt", mock.Anything, r.ID).Return(r, nil)

		got, err := svc.Get(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, r.ID, got.ID)
	})

	t.Run("not found", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		id := uuid.New()
		store.On("FindReceipt", mock.Anything, id).Return(nil, nil)

		_, err := svc.Get(ctx, id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

// ============================================
// Compute Tests
// ============================================

func TestReceiptLifecycleService_Compute(t *testing.T) {
	ctx := context.Background()

	t.Run("reprices draft lines and saves total", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		r := newDraftReceipt()

		store.On("SetComputingHint", mock.Anything, r.ID, true).Return(nil)
		store.On("SetComputingHint", mock.Anything, r.ID, false).Return(nil)
		store.On("InTransaction", mock.Anything).Return(nil)
		store.tx.On("LockReceipt", r.ID, billing.ReceiptStatusDraft).Return(r, nil)
		expectPricing(store, r)
		store.tx.On("SaveReceiptTotal", r.ID, mock.Anything).Return(nil)

		got, err := svc.Compute(ctx, r.ID)
		require.NoError(t, err)
		assert.True(t, got.Total.Equal(decimal.NewFromInt(1000)), "total = %s", got.Total)
		store.AssertExpectations(t)
		store.tx.AssertExpectations(t)
	})

	t.Run("receipt locked or missing", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		id := uuid.New()

		store.On("SetComputingHint", mock.Anything, id, mock.Anything).Return(nil)
		store.On("InTransaction", mock.Anything).Return(nil)
		store.tx.On("LockReceipt", id, billing.ReceiptStatusDraft).Return(nil, nil)

		_, err := svc.Compute(ctx, id)
		assert.ErrorIs(t, err, shared.ErrNotFoundOrBlocked)
	})

	t.Run("hint failure does not abort recompute", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		r := newDraftReceipt()

		store.On("SetComputingHint", mock.Anything, r.ID, mock.Anything).Return(errors.New("hint write failed"))
		store.On("InTransaction", mock.Anything).Return(nil)
		store.tx.On("LockReceipt", r.ID, billing.ReceiptStatusDraft).Return(r, nil)
		expectPricing(store, r)
		store.tx.On("SaveReceiptTotal", r.ID, mock.Anything).Return(nil)

		_, err := svc.Compute(ctx, r.ID)
		assert.NoError(t, err)
	})

	t.Run("receipt without lines computes to zero", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		r := newDraftReceipt()
		r.LineItems = nil

		store.On("SetComputingHint", mock.Anything, r.ID, mock.Anything).Return(nil)
		store.On("InTransaction", mock.Anything).Return(nil)
		store.tx.On("LockReceipt", r.ID, billing.ReceiptStatusDraft).Return(r, nil)
		store.tx.On("SaveReceiptTotal", r.ID, decimal.Zero).Return(nil)

		got, err := svc.Compute(ctx, r.ID)
		require.NoError(t, err)
		assert.True(t, got.Total.IsZero())
	})
}

// ============================================
// Issue Tests
// ============================================

func TestReceiptLifecycleService_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("issues receipt and generates document", func(t *testing.T) {
		svc, store, renderer, artifacts := newLifecycleFixture()
		r := newDraftReceipt()
		bucket := r.BucketID()

		store.On("InTransaction", mock.Anything).Return(nil)
		store.tx.On("LockReceipt", r.ID, billing.ReceiptStatusDraft).Return(r, nil)
		store.tx.On("HasIssuedMonthlyLine", r.StudentID, mock.Anything, 3, 2026, r.ID).Return(false, nil)
		expectPricing(store, r)
		store.tx.On("TransitionReceipt", mock.Anything, billing.ReceiptStatusDraft).Return(int64(1), nil)
		store.tx.On("UpdateLineStatuses", r.ID, billing.ReceiptStatusDraft, billing.ReceiptStatusIssued).Return(nil)
		expectBucketRecompute(store, r)

		issued := *r
		issued.Status = billing.ReceiptStatusIssued
		issued.CashCutID = &bucket
		store.On("FindIssuedInBucket", mock.Anything, r.ID, bucket).Return(&issued, nil)
		ref := expectDocumentGeneration(store, renderer, artifacts, &issued)

		result, err := svc.Issue(ctx, r.ID, "")
		require.NoError(t, err)
		assert.Equal(t, billing.ReceiptStatusIssued, result.Receipt.Status)
		assert.Empty(t, result.Warning)
		require.NotNil(t, result.ArtifactRef)
		assert.Equal(t, ref, *result.ArtifactRef)
		store.AssertExpectations(t)
		store.tx.AssertExpectations(t)
	})

	t.Run("document failure downgraded to warning", func(t *testing.T) {
		svc, store, renderer, _ := newLifecycleFixture()
		r := newDraftReceipt()
		bucket := r.BucketID()

		store.On("InTransaction", mock.Anything).Return(nil)
		store.tx.On("LockReceipt", r.ID, billing.ReceiptStatusDraft).Return(r, nil)
		store.tx.On("HasIssuedMonthlyLine", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
		expectPricing(store, r)
		store.tx.On("TransitionReceipt", mock.Anything, billing.ReceiptStatusDraft).Return(int64(1), nil)
		store.tx.On("UpdateLineStatuses", r.ID, mock.Anything, mock.Anything).Return(nil)
		expectBucketRecompute(store, r)

		issued := *r
		issued.Status = billing.ReceiptStatusIssued
		issued.CashCutID = &bucket
		store.On("FindIssuedInBucket", mock.Anything, r.ID, bucket).Return(&issued, nil)
		store.On("FindReceiptDocument", mock.Anything, r.ID).
			Return(&ReceiptDocument{Receipt: issued}, nil)
		renderer.On("RenderReceipt", mock.Anything, mock.Anything).Return(nil, errors.New("chrome crashed"))
		store.On("ClearReceiptDocumentLock", mock.Anything, r.ID).Return(nil)

		result, err := svc.Issue(ctx, r.ID, "")
		require.NoError(t, err)
		assert.Equal(t, billing.ReceiptStatusIssued, result.Receipt.Status)
		assert.Contains(t, result.Warning, "document generation failed")
		assert.Nil(t, result.ArtifactRef)
		// The lock is released even when rendering failed.
		store.AssertCalled(t, "ClearReceiptDocumentLock", mock.Anything, r.ID)
	})

	t.Run("no draft lines", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		r := newDraftReceipt()
		r.LineItems[0].Status = billing.ReceiptStatusCancelled

		store.On("InTransaction", mock.Anything).Return(nil)
		store.tx.On("LockReceipt", r.ID, billing.ReceiptStatusDraft).Return(r, nil)

		_, err := svc.Issue(ctx, r.ID, "")
		assert.ErrorIs(t, err, shared.ErrNoLineItems)
	})

	t.Run("duplicate monthly charge", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		r := newDraftReceipt()

		store.On("InTransaction", mock.Anything).Return(nil)
		store.tx.On("LockReceipt", r.ID, billing.ReceiptStatusDraft).Return(r, nil)
		store.tx.On("HasIssuedMonthlyLine", r.StudentID, r.LineItems[0].ProductID, 3, 2026, r.ID).Return(true, nil)

		_, err := svc.Issue(ctx, r.ID, "")
		assert.ErrorIs(t, err, shared.ErrDuplicateCharge)
	})

	t.Run("missing operating date", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		r := newDraftReceipt()
		r.OperatingDate = time.Time{}

		store.On("InTransaction", mock.Anything).Return(nil)
		store.tx.On("LockReceipt", r.ID, billing.ReceiptStatusDraft).Return(r, nil)

		_, err := svc.Issue(ctx, r.ID, "")
		assert.ErrorIs(t, err, shared.ErrMissingOperatingDate)
	})

	t.Run("receipt locked or missing", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		id := uuid.New()

		store.On("InTransaction", mock.Anything).Return(nil)
		store.tx.On("LockReceipt", id, billing.ReceiptStatusDraft).Return(nil, nil)

		_, err := svc.Issue(ctx, id, "")
		assert.ErrorIs(t, err, shared.ErrNotFoundOrBlocked)
	})

	t.Run("lost transition is a consistency fault", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		r := newDraftReceipt()

		store.On("InTransaction", mock.Anything).Return(nil)
		store.tx.On("LockReceipt", r.ID, billing.ReceiptStatusDraft).Return(r, nil)
		store.tx.On("HasIssuedMonthlyLine", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
		expectPricing(store, r)
		store.tx.On("TransitionReceipt", mock.Anything, billing.ReceiptStatusDraft).Return(int64(0), nil)

		_, err := svc.Issue(ctx, r.ID, "")
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindConsistency))
	})

	t.Run("post-commit read miss is a consistency fault", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		r := newDraftReceipt()
		bucket := r.BucketID()

		store.On("InTransaction", mock.Anything).Return(nil)
		store.tx.On("LockReceipt", r.ID, billing.ReceiptStatusDraft).Return(r, nil)
		store.tx.On("HasIssuedMonthlyLine", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(false, nil)
		expectPricing(store, r)
		store.tx.On("TransitionReceipt", mock.Anything, billing.ReceiptStatusDraft).Return(int64(1), nil)
		store.tx.On("UpdateLineStatuses", r.ID, mock.Anything, mock.Anything).Return(nil)
		expectBucketRecompute(store, r)
		store.On("FindIssuedInBucket", mock.Anything, r.ID, bucket).Return(nil, nil)

		_, err := svc.Issue(ctx, r.ID, "")
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindConsistency))
	})
}

// ============================================
// RequestCancellation Tests
// ============================================

func TestReceiptLifecycleService_RequestCancellation(t *testing.T) {
	ctx := context.Background()

	t.Run("flags issued receipt", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		id := uuid.New()
		store.On("RequestCancellation", mock.Anything, id).Return(int64(1), nil)

		assert.NoError(t, svc.RequestCancellation(ctx, id))
	})

	t.Run("not cancellable", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		id := uuid.New()
		store.On("RequestCancellation", mock.Anything, id).Return(int64(0), nil)

		err := svc.RequestCancellation(ctx, id)
		assert.ErrorIs(t, err, shared.ErrNotFoundOrBlocked)
	})
}

// ============================================
// Cancel Tests
// ============================================

func TestReceiptLifecycleService_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels and regenerates document", func(t *testing.T) {
		svc, store, renderer, artifacts := newLifecycleFixture()
		r := newDraftReceipt()
		bucket := r.BucketID()
		require.NoError(t, r.MarkIssued(bucket, time.Now()))
		r.GeneratingDocument = false
		r.CancellationRequested = true

		store.On("InTransaction", mock.Anything).Return(nil)
		store.tx.On("LockReceipt", r.ID, billing.ReceiptStatusIssued).Return(r, nil)
		store.tx.On("TransitionReceipt", mock.Anything, billing.ReceiptStatusIssued).Return(int64(1), nil)
		store.tx.On("UpdateLineStatuses", r.ID, billing.ReceiptStatusIssued, billing.ReceiptStatusCancelled).Return(nil)
		expectBucketRecompute(store, r)
		ref := expectDocumentGeneration(store, renderer, artifacts, r)

		result, err := svc.Cancel(ctx, r.ID)
		require.NoError(t, err)
		assert.Equal(t, billing.ReceiptStatusCancelled, result.Receipt.Status)
		assert.Empty(t, result.Warning)
		require.NotNil(t, result.ArtifactRef)
		assert.Equal(t, ref, *result.ArtifactRef)
	})

	t.Run("requires cancellation request", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		r := newDraftReceipt()
		require.NoError(t, r.MarkIssued(r.BucketID(), time.Now()))
		r.GeneratingDocument = false

		store.On("InTransaction", mock.Anything).Return(nil)
		store.tx.On("LockReceipt", r.ID, billing.ReceiptStatusIssued).Return(r, nil)

		_, err := svc.Cancel(ctx, r.ID)
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindConflict))
	})

	t.Run("receipt locked or missing", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		id := uuid.New()

		store.On("InTransaction", mock.Anything).Return(nil)
		store.tx.On("LockReceipt", id, billing.ReceiptStatusIssued).Return(nil, nil)

		_, err := svc.Cancel(ctx, id)
		assert.ErrorIs(t, err, shared.ErrNotFoundOrBlocked)
	})
}

// ============================================
// Regenerate Tests
// ============================================

func TestReceiptLifecycleService_Regenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("repairs document for issued receipt", func(t *testing.T) {
		svc, store, renderer, artifacts := newLifecycleFixture()
		r := newDraftReceipt()
		require.NoError(t, r.MarkIssued(r.BucketID(), time.Now()))
		r.GeneratingDocument = false

		store.On("AcquireReceiptDocumentLock", mock.Anything, r.ID,
			[]billing.ReceiptStatus{billing.ReceiptStatusIssued, billing.ReceiptStatusCancelled}).Return(int64(1), nil)
		ref := expectDocumentGeneration(store, renderer, artifacts, r)
		store.On("FindReceipt", mock.Anything, r.ID).Return(r, nil)

		result, err := svc.Regenerate(ctx, r.ID)
		require.NoError(t, err)
		require.NotNil(t, result.ArtifactRef)
		assert.Equal(t, ref, *result.ArtifactRef)
	})

	t.Run("lock already held", func(t *testing.T) {
		svc, store, _, _ := newLifecycleFixture()
		id := uuid.New()

		store.On("AcquireReceiptDocumentLock", mock.Anything, id, mock.Anything).Return(int64(0), nil)

		_, err := svc.Regenerate(ctx, id)
		assert.ErrorIs(t, err, shared.ErrNotFoundOrBlocked)
	})
}
