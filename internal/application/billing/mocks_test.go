package billing

import (
	"context"
	"time"

	"github.com/campusbill/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// mockBillingTx is a mock implementation of BillingTx
type mockBillingTx struct {
	mock.Mock
}

func (m *mockBillingTx) LockReceipt(id uuid.UUID, status billing.ReceiptStatus) (*billing.Receipt, error) {
	args := m.Called(id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Receipt), args.Error(1)
}

func (m *mockBillingTx) RulesForProduct(productID uuid.UUID, method billing.PaymentMethod) ([]billing.PricingRule, error) {
	args := m.Called(productID, method)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.PricingRule), args.Error(1)
}

func (m *mockBillingTx) ScholarshipPct(studentID, productID uuid.UUID, month, year int) (decimal.Decimal, error) {
	args := m.Called(studentID, productID, month, year)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockBillingTx) HasIssuedMonthlyLine(studentID, productID uuid.UUID, month, year int, excludeReceiptID uuid.UUID) (bool, error) {
	args := m.Called(studentID, productID, month, year, excludeReceiptID)
	return args.Bool(0), args.Error(1)
}

func (m *mockBillingTx) SaveLineItem(item *billing.ReceiptLineItem) error {
	args := m.Called(item)
	return args.Error(0)
}

func (m *mockBillingTx) SaveReceiptTotal(receiptID uuid.UUID, total decimal.Decimal) error {
	args := m.Called(receiptID, total)
	return args.Error(0)
}

func (m *mockBillingTx) UpdateLineStatuses(receiptID uuid.UUID, from, to billing.ReceiptStatus) error {
	args := m.Called(receiptID, from, to)
	return args.Error(0)
}

func (m *mockBillingTx) TransitionReceipt(r *billing.Receipt, expected billing.ReceiptStatus) (int64, error) {
	args := m.Called(r, expected)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBillingTx) EnsureCashCut(bucketID string, cashierID, campusID uuid.UUID, day time.Time) (*billing.CashCut, error) {
	args := m.Called(bucketID, cashierID, campusID, day)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CashCut), args.Error(1)
}

func (m *mockBillingTx) AggregateCashCut(bucketID string) (billing.MethodTotals, error) {
	args := m.Called(bucketID)
	return args.Get(0).(billing.MethodTotals), args.Error(1)
}

func (m *mockBillingTx) SumCashExpenses(bucketID string) (decimal.Decimal, error) {
	args := m.Called(bucketID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockBillingTx) SaveCashCut(cut *billing.CashCut) error {
	args := m.Called(cut)
	return args.Error(0)
}

func (m *mockBillingTx) InsertCashExpense(expense *billing.CashExpense) error {
	args := m.Called(expense)
	return args.Error(0)
}

// mockBillingStore is a mock implementation of BillingStore. InTransaction
// runs the callback against the embedded tx mock so a test can script the
// whole transactional flow.
type mockBillingStore struct {
	mock.Mock
	tx *mockBillingTx
}

func newMockBillingStore() *mockBillingStore {
	return &mockBillingStore{tx: &mockBillingTx{}}
}

func (m *mockBillingStore) InTransaction(ctx context.Context, fn func(tx BillingTx) error) error {
	args := m.Called(ctx)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(m.tx)
}

func (m *mockBillingStore) FindReceipt(ctx context.Context, id uuid.UUID) (*billing.Receipt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Receipt), args.Error(1)
}

func (m *mockBillingStore) FindIssuedInBucket(ctx context.Context, id uuid.UUID, bucketID string) (*billing.Receipt, error) {
	args := m.Called(ctx, id, bucketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Receipt), args.Error(1)
}

func (m *mockBillingStore) SetComputingHint(ctx context.Context, id uuid.UUID, computing bool) error {
	args := m.Called(ctx, id, computing)
	return args.Error(0)
}

func (m *mockBillingStore) RequestCancellation(ctx context.Context, id uuid.UUID) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBillingStore) AcquireReceiptDocumentLock(ctx context.Context, id uuid.UUID, statuses []billing.ReceiptStatus) (int64, error) {
	args := m.Called(ctx, id, statuses)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBillingStore) FindReceiptDocument(ctx context.Context, id uuid.UUID) (*ReceiptDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ReceiptDocument), args.Error(1)
}

func (m *mockBillingStore) SetReceiptArtifact(ctx context.Context, id uuid.UUID, expected billing.ReceiptStatus, ref string) (int64, error) {
	args := m.Called(ctx, id, expected, ref)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBillingStore) ClearReceiptDocumentLock(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockBillingStore) FindCashCut(ctx context.Context, id string) (*billing.CashCut, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CashCut), args.Error(1)
}

func (m *mockBillingStore) FindCashCutDocument(ctx context.Context, id string) (*CashCutDocument, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CashCutDocument), args.Error(1)
}

func (m *mockBillingStore) AcquireCashCutDocumentLock(ctx context.Context, id string) (int64, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBillingStore) SetCashCutArtifact(ctx context.Context, id string, ref string) (int64, error) {
	args := m.Called(ctx, id, ref)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockBillingStore) ClearCashCutDocumentLock(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockBillingStore) ListCashExpenses(ctx context.Context, id string) ([]billing.CashExpense, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.CashExpense), args.Error(1)
}

// mockDocumentRenderer is a mock implementation of DocumentRenderer
type mockDocumentRenderer struct {
	mock.Mock
}

func (m *mockDocumentRenderer) RenderReceipt(ctx context.Context, doc *ReceiptDocument) ([]byte, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *mockDocumentRenderer) RenderCashCut(ctx context.Context, doc *CashCutDocument) ([]byte, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// mockArtifactStore is a mock implementation of ArtifactStore
type mockArtifactStore struct {
	mock.Mock
}

func (m *mockArtifactStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *mockArtifactStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	args := m.Called(ctx, key, data, contentType)
	return args.String(0), args.Error(1)
}

func (m *mockArtifactStore) KeyFromRef(ref string) (string, bool) {
	args := m.Called(ref)
	return args.String(0), args.Bool(1)
}
