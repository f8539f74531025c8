package models

import (
	"time"

	"github.com/campusbill/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReceiptModel is the persistence model for the Receipt aggregate root.
type ReceiptModel struct {
	BaseModel
	StudentID             uuid.UUID             `gorm:"type:uuid;not null;index"`
	CampusID              uuid.UUID             `gorm:"type:uuid;not null;index"`
	CashierID             uuid.UUID             `gorm:"type:uuid;not null;index"`
	OperatingDate         time.Time             `gorm:"not null;index"`
	PaymentMethod         billing.PaymentMethod `gorm:"type:varchar(20);not null"`
	Status                billing.ReceiptStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
	Total                 decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	CashCutID             *string               `gorm:"type:varchar(120);index"`
	IssuedAt              *time.Time
	CancelledAt           *time.Time
	ArtifactRef           *string                `gorm:"type:varchar(500)"`
	Computing             bool                   `gorm:"not null;default:false"`
	GeneratingDocument    bool                   `gorm:"not null;default:false"`
	CancellationRequested bool                   `gorm:"not null;default:false"`
	LineItems             []ReceiptLineItemModel `gorm:"foreignKey:ReceiptID;references:ID"`
}

// TableName returns the table name for GORM
func (ReceiptModel) TableName() string {
	return "receipts"
}

// ToDomain converts the persistence model to a domain Receipt entity.
func (m *ReceiptModel) ToDomain() *billing.Receipt {
	r := &billing.Receipt{
		BaseEntity:            m.BaseModel.ToDomain(),
		StudentID:             m.StudentID,
		CampusID:              m.CampusID,
		CashierID:             m.CashierID,
		OperatingDate:         m.OperatingDate,
		PaymentMethod:         m.PaymentMethod,
		Status:                m.Status,
		Total:                 m.Total,
		CashCutID:             m.CashCutID,
		IssuedAt:              m.IssuedAt,
		CancelledAt:           m.CancelledAt,
		ArtifactRef:           m.ArtifactRef,
		Computing:             m.Computing,
		GeneratingDocument:    m.GeneratingDocument,
		CancellationRequested: m.CancellationRequested,
	}
	if len(m.LineItems) > 0 {
		r.LineItems = make([]billing.ReceiptLineItem, len(m.LineItems))
		for i := range m.LineItems {
			r.LineItems[i] = *m.LineItems[i].ToDomain()
		}
	}
	return r
}

// FromDomain populates the persistence model from a domain Receipt entity.
// Line items are mapped and persisted separately.
func (m *ReceiptModel) FromDomain(r *billing.Receipt) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.StudentID = r.StudentID
	m.CampusID = r.CampusID
	m.CashierID = r.CashierID
	m.OperatingDate = r.OperatingDate
	m.PaymentMethod = r.PaymentMethod
	m.Status = r.Status
	m.Total = r.Total
	m.CashCutID = r.CashCutID
	m.IssuedAt = r.IssuedAt
	m.CancelledAt = r.CancelledAt
	m.ArtifactRef = r.ArtifactRef
	m.Computing = r.Computing
	m.GeneratingDocument = r.GeneratingDocument
	m.CancellationRequested = r.CancellationRequested
}

// ReceiptModelFromDomain creates a new persistence model from a domain Receipt.
func ReceiptModelFromDomain(r *billing.Receipt) *ReceiptModel {
	m := &ReceiptModel{}
	m.FromDomain(r)
	return m
}

// ReceiptLineItemModel is the persistence model for one priced line of a receipt.
type ReceiptLineItemModel struct {
	BaseModel
	ReceiptID    uuid.UUID             `gorm:"type:uuid;not null;index"`
	ProductID    uuid.UUID             `gorm:"type:uuid;not null;index"`
	Description  string                `gorm:"type:varchar(200)"`
	BasePrice    decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Recurrence   billing.Recurrence    `gorm:"type:varchar(20);not null"`
	BillingMonth *int                  `gorm:"index:idx_line_billing_period"`
	BillingYear  *int                  `gorm:"index:idx_line_billing_period"`
	Discount     decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Surcharge    decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Scholarship  decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Adjustment   decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	FinalPrice   decimal.Decimal       `gorm:"type:decimal(18,4);not null"`
	Status       billing.ReceiptStatus `gorm:"type:varchar(20);not null;default:'DRAFT';index"`
}

// TableName returns the table name for GORM
func (ReceiptLineItemModel) TableName() string {
	return "receipt_line_items"
}

// ToDomain converts the persistence model to a domain ReceiptLineItem entity.
func (m *ReceiptLineItemModel) ToDomain() *billing.ReceiptLineItem {
	return &billing.ReceiptLineItem{
		BaseEntity:   m.BaseModel.ToDomain(),
		ReceiptID:    m.ReceiptID,
		ProductID:    m.ProductID,
		Description:  m.Description,
		BasePrice:    m.BasePrice,
		Recurrence:   m.Recurrence,
		BillingMonth: m.BillingMonth,
		BillingYear:  m.BillingYear,
		Discount:     m.Discount,
		Surcharge:    m.Surcharge,
		Scholarship:  m.Scholarship,
		Adjustment:   m.Adjustment,
		FinalPrice:   m.FinalPrice,
		Status:       m.Status,
	}
}

// FromDomain populates the persistence model from a domain ReceiptLineItem entity.
func (m *ReceiptLineItemModel) FromDomain(li *billing.ReceiptLineItem) {
	m.FromDomainBaseEntity(li.BaseEntity)
	m.ReceiptID = li.ReceiptID
	m.ProductID = li.ProductID
	m.Description = li.Description
	m.BasePrice = li.BasePrice
	m.Recurrence = li.Recurrence
	m.BillingMonth = li.BillingMonth
	m.BillingYear = li.BillingYear
	m.Discount = li.Discount
	m.Surcharge = li.Surcharge
	m.Scholarship = li.Scholarship
	m.Adjustment = li.Adjustment
	m.FinalPrice = li.FinalPrice
	m.Status = li.Status
}

// ReceiptLineItemModelFromDomain creates a new persistence model from a domain line item.
func ReceiptLineItemModelFromDomain(li *billing.ReceiptLineItem) *ReceiptLineItemModel {
	m := &ReceiptLineItemModel{}
	m.FromDomain(li)
	return m
}

// PricingRuleModel is the persistence model for a pricing rule.
type PricingRuleModel struct {
	BaseModel
	ProductID     uuid.UUID             `gorm:"type:uuid;not null;index"`
	PaymentMethod billing.PaymentMethod `gorm:"type:varchar(20);not null;index"`
	TemporalCase  *billing.TemporalCase `gorm:"type:varchar(20)"`
	ValidFrom     time.Time             `gorm:"not null"`
	ValidUntil    time.Time             `gorm:"not null"`
	DayStart      *int
	DayEnd        *int
	Priority      int             `gorm:"not null;default:0"`
	DiscountPct   decimal.Decimal `gorm:"type:decimal(8,6);not null"`
	SurchargePct  decimal.Decimal `gorm:"type:decimal(8,6);not null"`
	Active        bool            `gorm:"not null;default:true;index"`
}

// TableName returns the table name for GORM
func (PricingRuleModel) TableName() string {
	return "pricing_rules"
}

// ToDomain converts the persistence model to a domain PricingRule entity.
func (m *PricingRuleModel) ToDomain() *billing.PricingRule {
	return &billing.PricingRule{
		BaseEntity:    m.BaseModel.ToDomain(),
		ProductID:     m.ProductID,
		PaymentMethod: m.PaymentMethod,
		TemporalCase:  m.TemporalCase,
		ValidFrom:     m.ValidFrom,
		ValidUntil:    m.ValidUntil,
		DayStart:      m.DayStart,
		DayEnd:        m.DayEnd,
		Priority:      m.Priority,
		DiscountPct:   m.DiscountPct,
		SurchargePct:  m.SurchargePct,
		Active:        m.Active,
	}
}

// FromDomain populates the persistence model from a domain PricingRule entity.
func (m *PricingRuleModel) FromDomain(pr *billing.PricingRule) {
	m.FromDomainBaseEntity(pr.BaseEntity)
	m.ProductID = pr.ProductID
	m.PaymentMethod = pr.PaymentMethod
	m.TemporalCase = pr.TemporalCase
	m.ValidFrom = pr.ValidFrom
	m.ValidUntil = pr.ValidUntil
	m.DayStart = pr.DayStart
	m.DayEnd = pr.DayEnd
	m.Priority = pr.Priority
	m.DiscountPct = pr.DiscountPct
	m.SurchargePct = pr.SurchargePct
	m.Active = pr.Active
}

// MonthlyChargeModel is the persistence model for a monthly charge ledger entry.
type MonthlyChargeModel struct {
	BaseModel
	StudentID      uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_charge_period,priority:1"`
	ProductID      uuid.UUID                   `gorm:"type:uuid;not null;uniqueIndex:idx_charge_period,priority:2"`
	Month          int                         `gorm:"not null;uniqueIndex:idx_charge_period,priority:3"`
	Year           int                         `gorm:"not null;uniqueIndex:idx_charge_period,priority:4"`
	ScholarshipPct decimal.Decimal             `gorm:"type:decimal(8,6);not null"`
	PaymentStatus  billing.ChargePaymentStatus `gorm:"type:varchar(20);not null;default:'PENDING'"`
}

// TableName returns the table name for GORM
func (MonthlyChargeModel) TableName() string {
	return "monthly_charges"
}

// ToDomain converts the persistence model to a domain MonthlyCharge entity.
func (m *MonthlyChargeModel) ToDomain() *billing.MonthlyCharge {
	return &billing.MonthlyCharge{
		BaseEntity:     m.BaseModel.ToDomain(),
		StudentID:      m.StudentID,
		ProductID:      m.ProductID,
		Month:          m.Month,
		Year:           m.Year,
		ScholarshipPct: m.ScholarshipPct,
		PaymentStatus:  m.PaymentStatus,
	}
}

// FromDomain populates the persistence model from a domain MonthlyCharge entity.
func (m *MonthlyChargeModel) FromDomain(mc *billing.MonthlyCharge) {
	m.FromDomainBaseEntity(mc.BaseEntity)
	m.StudentID = mc.StudentID
	m.ProductID = mc.ProductID
	m.Month = mc.Month
	m.Year = mc.Year
	m.ScholarshipPct = mc.ScholarshipPct
	m.PaymentStatus = mc.PaymentStatus
}

// CashCutModel is the persistence model for an aggregation bucket. Its primary
// key is the deterministic bucket string, not a UUID.
type CashCutModel struct {
	ID                 string          `gorm:"type:varchar(120);primary_key"`
	CashierID          uuid.UUID       `gorm:"type:uuid;not null;index"`
	CampusID           uuid.UUID       `gorm:"type:uuid;not null;index"`
	OperatingDay       time.Time       `gorm:"not null;index"`
	IssuedCount        int             `gorm:"not null;default:0"`
	CashTotal          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CardTotal          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TransferTotal      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	GrandTotal         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CancelledCount     int             `gorm:"not null;default:0"`
	CancelledTotal     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CashExpenses       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	NetCash            decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ArtifactRef        *string         `gorm:"type:varchar(500)"`
	GeneratingDocument bool            `gorm:"not null;default:false"`
	CreatedAt          time.Time       `gorm:"not null"`
	UpdatedAt          time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CashCutModel) TableName() string {
	return "cash_cuts"
}

// ToDomain converts the persistence model to a domain CashCut entity.
func (m *CashCutModel) ToDomain() *billing.CashCut {
	return &billing.CashCut{
		ID:                 m.ID,
		CashierID:          m.CashierID,
		CampusID:           m.CampusID,
		OperatingDay:       m.OperatingDay,
		IssuedCount:        m.IssuedCount,
		CashTotal:          m.CashTotal,
		CardTotal:          m.CardTotal,
		TransferTotal:      m.TransferTotal,
		GrandTotal:         m.GrandTotal,
		CancelledCount:     m.CancelledCount,
		CancelledTotal:     m.CancelledTotal,
		CashExpenses:       m.CashExpenses,
		NetCash:            m.NetCash,
		ArtifactRef:        m.ArtifactRef,
		GeneratingDocument: m.GeneratingDocument,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain CashCut entity.
func (m *CashCutModel) FromDomain(cc *billing.CashCut) {
	m.ID = cc.ID
	m.CashierID = cc.CashierID
	m.CampusID = cc.CampusID
	m.OperatingDay = cc.OperatingDay
	m.IssuedCount = cc.IssuedCount
	m.CashTotal = cc.CashTotal
	m.CardTotal = cc.CardTotal
	m.TransferTotal = cc.TransferTotal
	m.GrandTotal = cc.GrandTotal
	m.CancelledCount = cc.CancelledCount
	m.CancelledTotal = cc.CancelledTotal
	m.CashExpenses = cc.CashExpenses
	m.NetCash = cc.NetCash
	m.ArtifactRef = cc.ArtifactRef
	m.GeneratingDocument = cc.GeneratingDocument
	m.CreatedAt = cc.CreatedAt
	m.UpdatedAt = cc.UpdatedAt
}

// CashCutModelFromDomain creates a new persistence model from a domain CashCut.
func CashCutModelFromDomain(cc *billing.CashCut) *CashCutModel {
	m := &CashCutModel{}
	m.FromDomain(cc)
	return m
}

// CashExpenseModel is the persistence model for one cash outflow of a bucket.
type CashExpenseModel struct {
	BaseModel
	CashCutID   string          `gorm:"type:varchar(120);not null;index"`
	Description string          `gorm:"type:varchar(300)"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (CashExpenseModel) TableName() string {
	return "cash_expenses"
}

// ToDomain converts the persistence model to a domain CashExpense entity.
func (m *CashExpenseModel) ToDomain() *billing.CashExpense {
	return &billing.CashExpense{
		BaseEntity:  m.BaseModel.ToDomain(),
		CashCutID:   m.CashCutID,
		Description: m.Description,
		Amount:      m.Amount,
	}
}

// FromDomain populates the persistence model from a domain CashExpense entity.
func (m *CashExpenseModel) FromDomain(e *billing.CashExpense) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.CashCutID = e.CashCutID
	m.Description = e.Description
	m.Amount = e.Amount
}

// CashExpenseModelFromDomain creates a new persistence model from a domain CashExpense.
func CashExpenseModelFromDomain(e *billing.CashExpense) *CashExpenseModel {
	m := &CashExpenseModel{}
	m.FromDomain(e)
	return m
}
