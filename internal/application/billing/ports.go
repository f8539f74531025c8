package billing

import (
	"context"
	"time"

	"github.com/campusbill/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BillingTx is the transaction-scoped persistence surface of the lifecycle
// operations. Every method runs inside the owning database transaction; the
// row returned by LockReceipt stays locked until commit or rollback.
type BillingTx interface {
	// LockReceipt acquires an exclusive row lock on the receipt, filtered to
	// the required status and a clear document-generation lock. Returns nil
	// when no such row exists: the caller treats that as a conflict, not a
	// crash, since a concurrent actor may have raced ahead.
	LockReceipt(id uuid.UUID, status billing.ReceiptStatus) (*billing.Receipt, error)

	// RulesForProduct returns the active pricing rules for one product and
	// payment method. Temporal and validity filtering happens in the
	// evaluator, which needs the full candidate set.
	RulesForProduct(productID uuid.UUID, method billing.PaymentMethod) ([]billing.PricingRule, error)

	// ScholarshipPct returns the scholarship fraction from the student's
	// monthly charge ledger, or zero when no entry exists.
	ScholarshipPct(studentID, productID uuid.UUID, month, year int) (decimal.Decimal, error)

	// HasIssuedMonthlyLine reports whether any other receipt already carries
	// an ISSUED monthly line for (student, product, month, year).
	HasIssuedMonthlyLine(studentID, productID uuid.UUID, month, year int, excludeReceiptID uuid.UUID) (bool, error)

	// SaveLineItem persists the priced amounts and status of one line.
	SaveLineItem(item *billing.ReceiptLineItem) error

	// SaveReceiptTotal persists the recomputed total of a DRAFT receipt.
	SaveReceiptTotal(receiptID uuid.UUID, total decimal.Decimal) error

	// UpdateLineStatuses flips every line of the receipt currently in the
	// from status to the to status.
	UpdateLineStatuses(receiptID uuid.UUID, from, to billing.ReceiptStatus) error

	// TransitionReceipt persists a lifecycle flip guarded by the expected
	// prior status and returns the affected row count. Zero rows on a
	// transition that just held the lock is a consistency fault surfaced by
	// the caller.
	TransitionReceipt(r *billing.Receipt, expected billing.ReceiptStatus) (int64, error)

	// EnsureCashCut creates the bucket row for (cashier, campus, day) if it
	// does not exist yet and returns it.
	EnsureCashCut(bucketID string, cashierID, campusID uuid.UUID, day time.Time) (*billing.CashCut, error)

	// AggregateCashCut recomputes the per-method totals from the full set of
	// receipts currently linked to the bucket.
	AggregateCashCut(bucketID string) (billing.MethodTotals, error)

	// SumCashExpenses sums the expenses recorded against the bucket.
	SumCashExpenses(bucketID string) (decimal.Decimal, error)

	// SaveCashCut persists recomputed bucket totals.
	SaveCashCut(cut *billing.CashCut) error

	// InsertCashExpense appends one expense row to a bucket.
	InsertCashExpense(expense *billing.CashExpense) error
}

// BillingStore is the persistence port of the billing engine. Transactional
// work goes through InTransaction; the remaining methods run on the pooled
// connection set and are used for post-commit reads and the advisory-lock
// writes that must survive a rolled-back transaction.
type BillingStore interface {
	InTransaction(ctx context.Context, fn func(tx BillingTx) error) error

	FindReceipt(ctx context.Context, id uuid.UUID) (*billing.Receipt, error)

	// FindIssuedInBucket re-reads a receipt by (id, ISSUED, bucket) as the
	// post-commit sanity check after Issue.
	FindIssuedInBucket(ctx context.Context, id uuid.UUID, bucketID string) (*billing.Receipt, error)

	// SetComputingHint flips the non-authoritative computing flag. Failures
	// are logged by the caller and never abort the operation.
	SetComputingHint(ctx context.Context, id uuid.UUID, computing bool) error

	// RequestCancellation sets the cancellation-request flag on an ISSUED
	// receipt. Zero affected rows means the receipt is not cancellable.
	RequestCancellation(ctx context.Context, id uuid.UUID) (int64, error)

	// AcquireReceiptDocumentLock sets the generating-document flag guarded by
	// the allowed statuses only, returning the affected row count. A lock that
	// is already held is taken over, so the administrative Regenerate path can
	// recover receipts whose lock was left behind by a failed generation.
	AcquireReceiptDocumentLock(ctx context.Context, id uuid.UUID, statuses []billing.ReceiptStatus) (int64, error)

	// FindReceiptDocument reads the fully hydrated receipt snapshot for
	// rendering, joined with student and campus display data.
	FindReceiptDocument(ctx context.Context, id uuid.UUID) (*ReceiptDocument, error)

	// SetReceiptArtifact writes the artifact reference back, guarded by the
	// expected status and a still-held document lock. Returns affected rows;
	// zero means the entity changed state concurrently.
	SetReceiptArtifact(ctx context.Context, id uuid.UUID, expected billing.ReceiptStatus, ref string) (int64, error)

	// ClearReceiptDocumentLock releases the advisory lock. Called on every
	// exit path of document generation; its own failure is logged, never
	// propagated.
	ClearReceiptDocumentLock(ctx context.Context, id uuid.UUID) error

	FindCashCut(ctx context.Context, id string) (*billing.CashCut, error)
	FindCashCutDocument(ctx context.Context, id string) (*CashCutDocument, error)
	AcquireCashCutDocumentLock(ctx context.Context, id string) (int64, error)
	SetCashCutArtifact(ctx context.Context, id string, ref string) (int64, error)
	ClearCashCutDocumentLock(ctx context.Context, id string) error
	ListCashExpenses(ctx context.Context, id string) ([]billing.CashExpense, error)
}

// ReceiptDocument is the hydrated snapshot handed to the document renderer.
// It is re-read from committed state, never from a pre-commit copy.
type ReceiptDocument struct {
	Receipt     billing.Receipt
	StudentName string
	CampusName  string
	CampusCode  string
	CashierName string
	// Cancelled selects the cancellation watermark.
	Cancelled bool
}

// CashCutDocument is the hydrated snapshot for a cash-cut report.
type CashCutDocument struct {
	CashCut     billing.CashCut
	CashierName string
	CampusName  string
	CampusCode  string
	Expenses    []billing.CashExpense
}

// DocumentRenderer produces the printable document bytes for an entity
// snapshot. Implementations must be deterministic for identical input and
// must never corrupt committed lifecycle state on failure.
type DocumentRenderer interface {
	RenderReceipt(ctx context.Context, doc *ReceiptDocument) ([]byte, error)
	RenderCashCut(ctx context.Context, doc *CashCutDocument) ([]byte, error)
}

// ArtifactStore persists rendered documents. Put returns the canonical
// reference "scheme://bucket/path"; Delete tolerates missing objects.
type ArtifactStore interface {
	Delete(ctx context.Context, key string) error
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// KeyFromRef extracts the object key from a canonical reference,
	// reporting false when the reference does not belong to this store.
	KeyFromRef(ref string) (string, bool)
}
