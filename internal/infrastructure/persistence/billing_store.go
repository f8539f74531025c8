package persistence

import (
	"context"
	"errors"
	"time"

	appbilling "github.com/campusbill/backend/internal/application/billing"
	"github.com/campusbill/backend/internal/domain/billing"
	"github.com/campusbill/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBillingStore implements the application BillingStore port using GORM.
type GormBillingStore struct {
	db *gorm.DB
}

// NewGormBillingStore creates a new GormBillingStore
func NewGormBillingStore(db *gorm.DB) *GormBillingStore {
	return &GormBillingStore{db: db}
}

// InTransaction runs fn inside one database transaction. Row locks taken by
// the transactional surface are held until commit or rollback.
func (s *GormBillingStore) InTransaction(ctx context.Context, fn func(tx appbilling.BillingTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&billingTx{db: tx})
	})
}

// FindReceipt loads a receipt with its line items. Returns nil when absent.
func (s *GormBillingStore) FindReceipt(ctx context.Context, id uuid.UUID) (*billing.Receipt, error) {
	var model models.ReceiptModel
	if err := s.db.WithContext(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB {
			return db.Order("receipt_line_items.created_at ASC")
		}).
		First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindIssuedInBucket re-reads a receipt by id, ISSUED status and bucket link.
func (s *GormBillingStore) FindIssuedInBucket(ctx context.Context, id uuid.UUID, bucketID string) (*billing.Receipt, error) {
	var model models.ReceiptModel
	if err := s.db.WithContext(ctx).
		First(&model, "id = ? AND status = ? AND cash_cut_id = ?",
			id, billing.ReceiptStatusIssued, bucketID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// SetComputingHint flips the non-authoritative computing flag.
func (s *GormBillingStore) SetComputingHint(ctx context.Context, id uuid.UUID, computing bool) error {
	return s.db.WithContext(ctx).
		Model(&models.ReceiptModel{}).
		Where("id = ?", id).
		Update("computing", computing).Error
}

// RequestCancellation marks an ISSUED receipt as awaiting cancellation.
func (s *GormBillingStore) RequestCancellation(ctx context.Context, id uuid.UUID) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.ReceiptModel{}).
		Where("id = ? AND status = ? AND cancellation_requested = ?",
			id, billing.ReceiptStatusIssued, false).
		Update("cancellation_requested", true)
	return res.RowsAffected, res.Error
}

// AcquireReceiptDocumentLock sets the generating-document flag for a receipt
// in one of the allowed statuses. A lock already held does not block the
// acquisition: the only caller is the repair path, which must be able to take
// over a lock left behind by a crashed or aborted generation.
func (s *GormBillingStore) AcquireReceiptDocumentLock(ctx context.Context, id uuid.UUID, statuses []billing.ReceiptStatus) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.ReceiptModel{}).
		Where("id = ? AND status IN ?", id, statuses).
		Update("generating_document", true)
	return res.RowsAffected, res.Error
}

// FindReceiptDocument reads the committed receipt joined with directory
// display data for rendering. Missing directory rows leave their names
// empty rather than failing the render.
func (s *GormBillingStore) FindReceiptDocument(ctx context.Context, id uuid.UUID) (*appbilling.ReceiptDocument, error) {
	r, err := s.FindReceipt(ctx, id)
	if err != nil || r == nil {
		return nil, err
	}

	doc := &appbilling.ReceiptDocument{
		Receipt:   *r,
		Cancelled: r.Status == billing.ReceiptStatusCancelled,
	}

	var student models.StudentModel
	if err := s.db.WithContext(ctx).First(&student, "id = ?", r.StudentID).Error; err == nil {
		doc.StudentName = student.FullName()
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var campus models.CampusModel
	if err := s.db.WithContext(ctx).First(&campus, "id = ?", r.CampusID).Error; err == nil {
		doc.CampusName = campus.Name
		doc.CampusCode = campus.Code
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var cashier models.CashierModel
	if err := s.db.WithContext(ctx).First(&cashier, "id = ?", r.CashierID).Error; err == nil {
		doc.CashierName = cashier.Name
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	return doc, nil
}

// SetReceiptArtifact writes the artifact reference guarded by the expected
// status and a still-held document lock.
func (s *GormBillingStore) SetReceiptArtifact(ctx context.Context, id uuid.UUID, expected billing.ReceiptStatus, ref string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.ReceiptModel{}).
		Where("id = ? AND status = ? AND generating_document = ?", id, expected, true).
		Update("artifact_ref", ref)
	return res.RowsAffected, res.Error
}

// ClearReceiptDocumentLock releases the advisory lock unconditionally.
func (s *GormBillingStore) ClearReceiptDocumentLock(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).
		Model(&models.ReceiptModel{}).
		Where("id = ?", id).
		Update("generating_document", false).Error
}

// FindCashCut loads one bucket. Returns nil when absent.
func (s *GormBillingStore) FindCashCut(ctx context.Context, id string) (*billing.CashCut, error) {
	var model models.CashCutModel
	if err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindCashCutDocument reads a bucket joined with directory display data and
// its expenses for rendering.
func (s *GormBillingStore) FindCashCutDocument(ctx context.Context, id string) (*appbilling.CashCutDocument, error) {
	cut, err := s.FindCashCut(ctx, id)
	if err != nil || cut == nil {
		return nil, err
	}

	doc := &appbilling.CashCutDocument{CashCut: *cut}

	var cashier models.CashierModel
	if err := s.db.WithContext(ctx).First(&cashier, "id = ?", cut.CashierID).Error; err == nil {
		doc.CashierName = cashier.Name
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var campus models.CampusModel
	if err := s.db.WithContext(ctx).First(&campus, "id = ?", cut.CampusID).Error; err == nil {
		doc.CampusName = campus.Name
		doc.CampusCode = campus.Code
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	expenses, err := s.ListCashExpenses(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Expenses = expenses

	return doc, nil
}

// AcquireCashCutDocumentLock sets the bucket's generating-document flag when
// it is currently clear.
func (s *GormBillingStore) AcquireCashCutDocumentLock(ctx context.Context, id string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.CashCutModel{}).
		Where("id = ? AND generating_document = ?", id, false).
		Update("generating_document", true)
	return res.RowsAffected, res.Error
}

// SetCashCutArtifact writes the bucket's artifact reference while the lock
// is still held.
func (s *GormBillingStore) SetCashCutArtifact(ctx context.Context, id string, ref string) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&models.CashCutModel{}).
		Where("id = ? AND generating_document = ?", id, true).
		Update("artifact_ref", ref)
	return res.RowsAffected, res.Error
}

// ClearCashCutDocumentLock releases the bucket's advisory lock unconditionally.
func (s *GormBillingStore) ClearCashCutDocumentLock(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).
		Model(&models.CashCutModel{}).
		Where("id = ?", id).
		Update("generating_document", false).Error
}

// ListCashExpenses returns the expenses of a bucket in insertion order.
func (s *GormBillingStore) ListCashExpenses(ctx context.Context, id string) ([]billing.CashExpense, error) {
	var expenseModels []models.CashExpenseModel
	if err := s.db.WithContext(ctx).
		Where("cash_cut_id = ?", id).
		Order("created_at ASC").
		Find(&expenseModels).Error; err != nil {
		return nil, err
	}
	expenses := make([]billing.CashExpense, len(expenseModels))
	for i := range expenseModels {
		expenses[i] = *expenseModels[i].ToDomain()
	}
	return expenses, nil
}

// billingTx implements the transaction-scoped BillingTx port on a *gorm.DB
// that is already inside a transaction.
type billingTx struct {
	db *gorm.DB
}

// LockReceipt acquires SELECT ... FOR UPDATE on the receipt row, filtered to
// the required status and a clear document lock. Returns nil when no such
// row exists.
func (t *billingTx) LockReceipt(id uuid.UUID, status billing.ReceiptStatus) (*billing.Receipt, error) {
	var model models.ReceiptModel
	if err := t.db.
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&model, "id = ? AND status = ? AND generating_document = ?", id, status, false).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var lineModels []models.ReceiptLineItemModel
	if err := t.db.
		Where("receipt_id = ?", id).
		Order("created_at ASC").
		Find(&lineModels).Error; err != nil {
		return nil, err
	}
	model.LineItems = lineModels

	return model.ToDomain(), nil
}

// RulesForProduct returns the active rules for one product and payment
// method, highest priority first.
func (t *billingTx) RulesForProduct(productID uuid.UUID, method billing.PaymentMethod) ([]billing.PricingRule, error) {
	var ruleModels []models.PricingRuleModel
	if err := t.db.
		Where("product_id = ? AND payment_method = ? AND active = ?", productID, method, true).
		Order("priority DESC, created_at ASC").
		Find(&ruleModels).Error; err != nil {
		return nil, err
	}
	rules := make([]billing.PricingRule, len(ruleModels))
	for i := range ruleModels {
		rules[i] = *ruleModels[i].ToDomain()
	}
	return rules, nil
}

// ScholarshipPct returns the scholarship fraction from the monthly charge
// ledger, or zero when no entry exists.
func (t *billingTx) ScholarshipPct(studentID, productID uuid.UUID, month, year int) (decimal.Decimal, error) {
	var model models.MonthlyChargeModel
	if err := t.db.
		First(&model, "student_id = ? AND product_id = ? AND month = ? AND year = ?",
			studentID, productID, month, year).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, nil
		}
		return decimal.Zero, err
	}
	return model.ScholarshipPct, nil
}

// HasIssuedMonthlyLine reports whether another receipt already carries an
// ISSUED line for the same (student, product, month, year).
func (t *billingTx) HasIssuedMonthlyLine(studentID, productID uuid.UUID, month, year int, excludeReceiptID uuid.UUID) (bool, error) {
	var count int64
	if err := t.db.
		Model(&models.ReceiptLineItemModel{}).
		Joins("JOIN receipts ON receipts.id = receipt_line_items.receipt_id").
		Where("receipts.student_id = ? AND receipt_line_items.product_id = ?", studentID, productID).
		Where("receipt_line_items.billing_month = ? AND receipt_line_items.billing_year = ?", month, year).
		Where("receipt_line_items.status = ?", billing.ReceiptStatusIssued).
		Where("receipt_line_items.receipt_id <> ?", excludeReceiptID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveLineItem persists the priced amounts and status of one line.
func (t *billingTx) SaveLineItem(item *billing.ReceiptLineItem) error {
	return t.db.
		Model(&models.ReceiptLineItemModel{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"discount":    item.Discount,
			"surcharge":   item.Surcharge,
			"scholarship": item.Scholarship,
			"final_price": item.FinalPrice,
			"status":      item.Status,
		}).Error
}

// SaveReceiptTotal persists the recomputed total of a DRAFT receipt.
func (t *billingTx) SaveReceiptTotal(receiptID uuid.UUID, total decimal.Decimal) error {
	return t.db.
		Model(&models.ReceiptModel{}).
		Where("id = ? AND status = ?", receiptID, billing.ReceiptStatusDraft).
		Update("total", total).Error
}

// UpdateLineStatuses flips every line of the receipt in the from status to
// the to status.
func (t *billingTx) UpdateLineStatuses(receiptID uuid.UUID, from, to billing.ReceiptStatus) error {
	return t.db.
		Model(&models.ReceiptLineItemModel{}).
		Where("receipt_id = ? AND status = ?", receiptID, from).
		Update("status", to).Error
}

// TransitionReceipt persists a lifecycle flip guarded by the expected prior
// status and returns the affected row count.
func (t *billingTx) TransitionReceipt(r *billing.Receipt, expected billing.ReceiptStatus) (int64, error) {
	res := t.db.
		Model(&models.ReceiptModel{}).
		Where("id = ? AND status = ?", r.ID, expected).
		Updates(map[string]interface{}{
			"status":                 r.Status,
			"total":                  r.Total,
			"cash_cut_id":            r.CashCutID,
			"issued_at":              r.IssuedAt,
			"cancelled_at":           r.CancelledAt,
			"computing":              r.Computing,
			"generating_document":    r.GeneratingDocument,
			"cancellation_requested": r.CancellationRequested,
		})
	return res.RowsAffected, res.Error
}

// EnsureCashCut creates the bucket row if it does not exist yet and returns
// it. Concurrent creators converge on the same row.
func (t *billingTx) EnsureCashCut(bucketID string, cashierID, campusID uuid.UUID, day time.Time) (*billing.CashCut, error) {
	var model models.CashCutModel
	err := t.db.First(&model, "id = ?", bucketID).Error
	if err == nil {
		return model.ToDomain(), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()
	model = models.CashCutModel{
		ID:           bucketID,
		CashierID:    cashierID,
		CampusID:     campusID,
		OperatingDay: day,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := t.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&model).Error; err != nil {
		return nil, err
	}
	if err := t.db.First(&model, "id = ?", bucketID).Error; err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

type cashCutAggregateRow struct {
	IssuedCount    int
	CashTotal      decimal.Decimal
	CardTotal      decimal.Decimal
	TransferTotal  decimal.Decimal
	CancelledCount int
	CancelledTotal decimal.Decimal
}

// AggregateCashCut recomputes the per-method totals from the full set of
// receipts linked to the bucket. Always a full-set scan, never an increment.
func (t *billingTx) AggregateCashCut(bucketID string) (billing.MethodTotals, error) {
	var row cashCutAggregateRow
	err := t.db.Raw(`
		SELECT
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS issued_count,
			COALESCE(SUM(CASE WHEN status = ? AND payment_method = ? THEN total ELSE 0 END), 0) AS cash_total,
			COALESCE(SUM(CASE WHEN status = ? AND payment_method = ? THEN total ELSE 0 END), 0) AS card_total,
			COALESCE(SUM(CASE WHEN status = ? AND payment_method = ? THEN total ELSE 0 END), 0) AS transfer_total,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS cancelled_count,
			COALESCE(SUM(CASE WHEN status = ? THEN total ELSE 0 END), 0) AS cancelled_total
		FROM receipts
		WHERE cash_cut_id = ?`,
		billing.ReceiptStatusIssued,
		billing.ReceiptStatusIssued, billing.PaymentMethodCash,
		billing.ReceiptStatusIssued, billing.PaymentMethodCard,
		billing.ReceiptStatusIssued, billing.PaymentMethodTransfer,
		billing.ReceiptStatusCancelled,
		billing.ReceiptStatusCancelled,
		bucketID,
	).Scan(&row).Error
	if err != nil {
		return billing.MethodTotals{}, err
	}
	return billing.MethodTotals{
		IssuedCount:    row.IssuedCount,
		CashTotal:      row.CashTotal,
		CardTotal:      row.CardTotal,
		TransferTotal:  row.TransferTotal,
		CancelledCount: row.CancelledCount,
		CancelledTotal: row.CancelledTotal,
	}, nil
}

// SumCashExpenses sums the expenses recorded against the bucket.
func (t *billingTx) SumCashExpenses(bucketID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := t.db.Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM cash_expenses WHERE cash_cut_id = ?`,
		bucketID,
	).Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// SaveCashCut persists recomputed bucket totals.
func (t *billingTx) SaveCashCut(cut *billing.CashCut) error {
	return t.db.
		Model(&models.CashCutModel{}).
		Where("id = ?", cut.ID).
		Updates(map[string]interface{}{
			"issued_count":    cut.IssuedCount,
			"cash_total":      cut.CashTotal,
			"card_total":      cut.CardTotal,
			"transfer_total":  cut.TransferTotal,
			"grand_total":     cut.GrandTotal,
			"cancelled_count": cut.CancelledCount,
			"cancelled_total": cut.CancelledTotal,
			"cash_expenses":   cut.CashExpenses,
			"net_cash":        cut.NetCash,
			"updated_at":      cut.UpdatedAt,
		}).Error
}

// InsertCashExpense appends one expense row to a bucket.
func (t *billingTx) InsertCashExpense(expense *billing.CashExpense) error {
	return t.db.Create(models.CashExpenseModelFromDomain(expense)).Error
}
