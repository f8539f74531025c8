package billing

import (
	"testing"
	"time"

	"github.com/campusbill/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers
func createDraftReceipt() *Receipt {
	month, year := 3, 2026
	return &Receipt{
		BaseEntity:    shared.NewBaseEntity(),
		StudentID:     uuid.New(),
		CampusID:      uuid.New(),
		CashierID:     uuid.New(),
		OperatingDate: operatingDate(2026, 3, 15),
		PaymentMethod: PaymentMethodCash,
		Status:        ReceiptStatusDraft,
		Total:         decimal.NewFromInt(900),
		LineItems: []ReceiptLineItem{
			{
				BaseEntity:   shared.NewBaseEntity(),
				ProductID:    uuid.New(),
				Description:  "Monthly tuition",
				BasePrice:    decimal.NewFromInt(1000),
				Recurrence:   RecurrenceMonthly,
				BillingMonth: &month,
				BillingYear:  &year,
				FinalPrice:   decimal.NewFromInt(900),
				Status:       ReceiptStatusDraft,
			},
		},
	}
}

func createIssuedReceipt(t *testing.T) *Receipt {
	r := createDraftReceipt()
	err := r.MarkIssued(r.BucketID(), time.Now())
	require.NoError(t, err)
	return r
}

// ============================================
// ReceiptStatus Tests
// ============================================

func TestReceiptStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  ReceiptStatus
		isValid bool
	}{
		{ReceiptStatusDraft, true},
		{ReceiptStatusIssued, true},
		{ReceiptStatusCancelled, true},
		{ReceiptStatus("INVALID"), false},
		{ReceiptStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestReceiptStatus_Transitions(t *testing.T) {
	tests := []struct {
		status     ReceiptStatus
		canIssue   bool
		canCancel  bool
		isTerminal bool
	}{
		{ReceiptStatusDraft, true, false, false},
		{ReceiptStatusIssued, false, true, false},
		{ReceiptStatusCancelled, false, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.canIssue, tt.status.CanIssue())
			assert.Equal(t, tt.canCancel, tt.status.CanCancel())
			assert.Equal(t, tt.isTerminal, tt.status.IsTerminal())
		})
	}
}

func TestPaymentMethod_IsValid(t *testing.T) {
	tests := []struct {
		method  PaymentMethod
		isValid bool
	}{
		{PaymentMethodCash, true},
		{PaymentMethodCard, true},
		{PaymentMethodTransfer, true},
		{PaymentMethod("BARTER"), false},
		{PaymentMethod(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.method), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.method.IsValid())
		})
	}
}

// ============================================
// Receipt.ValidateForIssue Tests
// ============================================

func TestReceipt_ValidateForIssue(t *testing.T) {
	t.Run("valid receipt", func(t *testing.T) {
		r := createDraftReceipt()
		assert.NoError(t, r.ValidateForIssue())
	})

	t.Run("missing student", func(t *testing.T) {
		r := createDraftReceipt()
		r.StudentID = uuid.Nil
		err := r.ValidateForIssue()
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindValidation))
	})

	t.Run("missing campus", func(t *testing.T) {
		r := createDraftReceipt()
		r.CampusID = uuid.Nil
		assert.Error(t, r.ValidateForIssue())
	})

	t.Run("missing operating date", func(t *testing.T) {
		r := createDraftReceipt()
		r.OperatingDate = time.Time{}
		assert.ErrorIs(t, r.ValidateForIssue(), shared.ErrMissingOperatingDate)
	})

	t.Run("negative total", func(t *testing.T) {
		r := createDraftReceipt()
		r.Total = decimal.NewFromInt(-1)
		err := r.ValidateForIssue()
		require.Error(t, err)
		assert.True(t, shared.IsKind(err, shared.KindValidation))
	})

	t.Run("zero total is allowed", func(t *testing.T) {
		r := createDraftReceipt()
		r.Total = decimal.Zero
		assert.NoError(t, r.ValidateForIssue())
	})
}

// ============================================
// Receipt.BucketID Tests
// ============================================

func TestReceipt_BucketID(t *testing.T) {
	r := createDraftReceipt()
	want := r.CashierID.String() + "-" + r.CampusID.String() + "-20260315"
	assert.Equal(t, want, r.BucketID())
}

func TestReceipt_BucketID_UsesOperatingDate(t *testing.T) {
	// A back-dated receipt lands in the bucket of its own business day.
	r := createDraftReceipt()
	r.OperatingDate = operatingDate(2026, 2, 1)
	assert.Contains(t, r.BucketID(), "-20260201")
}

func TestCashCutBucketID_Deterministic(t *testing.T) {
	cashierID := uuid.New()
	campusID := uuid.New()
	day := operatingDate(2026, 3, 15)

	first := CashCutBucketID(cashierID, campusID, day)
	assert.Equal(t, first, CashCutBucketID(cashierID, campusID, day))
	assert.NotEqual(t, first, CashCutBucketID(uuid.New(), campusID, day))
}

// ============================================
// Receipt.MarkIssued Tests
// ============================================

func TestReceipt_MarkIssued(t *testing.T) {
	r := createDraftReceipt()
	bucket := r.BucketID()
	at := time.Now()

	err := r.MarkIssued(bucket, at)
	require.NoError(t, err)

	assert.Equal(t, ReceiptStatusIssued, r.Status)
	require.NotNil(t, r.IssuedAt)
	assert.Equal(t, at, *r.IssuedAt)
	require.NotNil(t, r.CashCutID)
	assert.Equal(t, bucket, *r.CashCutID)
	assert.True(t, r.GeneratingDocument)
	assert.False(t, r.Computing)
	for _, li := range r.LineItems {
		assert.Equal(t, ReceiptStatusIssued, li.Status)
	}
}

func TestReceipt_MarkIssued_InvalidState(t *testing.T) {
	r := createIssuedReceipt(t)

	err := r.MarkIssued(r.BucketID(), time.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

// ============================================
// Receipt.MarkCancelled Tests
// ============================================

func TestReceipt_MarkCancelled(t *testing.T) {
	r := createIssuedReceipt(t)
	r.CancellationRequested = true
	at := time.Now()

	err := r.MarkCancelled(at)
	require.NoError(t, err)

	assert.Equal(t, ReceiptStatusCancelled, r.Status)
	require.NotNil(t, r.CancelledAt)
	assert.Equal(t, at, *r.CancelledAt)
	assert.False(t, r.CancellationRequested)
	assert.True(t, r.GeneratingDocument)
	for _, li := range r.LineItems {
		assert.Equal(t, ReceiptStatusCancelled, li.Status)
	}
}

func TestReceipt_MarkCancelled_WithoutRequest(t *testing.T) {
	r := createIssuedReceipt(t)

	err := r.MarkCancelled(time.Now())
	require.Error(t, err)
	assert.True(t, shared.IsKind(err, shared.KindConflict))
}

func TestReceipt_MarkCancelled_FromDraft(t *testing.T) {
	r := createDraftReceipt()
	r.CancellationRequested = true

	err := r.MarkCancelled(time.Now())
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

// ============================================
// ReceiptLineItem Tests
// ============================================

func TestReceiptLineItem_Validate(t *testing.T) {
	month, year := 3, 2026

	tests := []struct {
		name    string
		item    ReceiptLineItem
		wantErr bool
	}{
		{
			name: "valid monthly line",
			item: ReceiptLineItem{
				ProductID:    uuid.New(),
				Recurrence:   RecurrenceMonthly,
				BillingMonth: &month,
				BillingYear:  &year,
			},
		},
		{
			name: "valid one-time line",
			item: ReceiptLineItem{ProductID: uuid.New(), Recurrence: RecurrenceOneTime},
		},
		{
			name:    "missing product",
			item:    ReceiptLineItem{Recurrence: RecurrenceOneTime},
			wantErr: true,
		},
		{
			name:    "invalid recurrence",
			item:    ReceiptLineItem{ProductID: uuid.New(), Recurrence: Recurrence("WEEKLY")},
			wantErr: true,
		},
		{
			name:    "monthly without billing period",
			item:    ReceiptLineItem{ProductID: uuid.New(), Recurrence: RecurrenceMonthly},
			wantErr: true,
		},
		{
			name: "monthly with only month",
			item: ReceiptLineItem{
				ProductID:    uuid.New(),
				Recurrence:   RecurrenceMonthly,
				BillingMonth: &month,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, shared.IsKind(err, shared.KindValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestReceiptLineItem_ApplyPricing(t *testing.T) {
	li := &ReceiptLineItem{
		BaseEntity: shared.NewBaseEntity(),
		ProductID:  uuid.New(),
		BasePrice:  decimal.NewFromInt(1000),
		Recurrence: RecurrenceOneTime,
	}
	before := li.UpdatedAt

	li.ApplyPricing(LinePricing{
		Discount:   decimal.NewFromInt(100),
		Surcharge:  decimal.NewFromInt(50),
		FinalPrice: decimal.NewFromInt(950),
	})

	assert.True(t, li.Discount.Equal(decimal.NewFromInt(100)))
	assert.True(t, li.Surcharge.Equal(decimal.NewFromInt(50)))
	assert.True(t, li.FinalPrice.Equal(decimal.NewFromInt(950)))
	assert.True(t, !li.UpdatedAt.Before(before))
}
