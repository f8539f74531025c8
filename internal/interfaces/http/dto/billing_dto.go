package dto

import (
	"time"

	"github.com/campusbill/backend/internal/application/billing"
	domainbilling "github.com/campusbill/backend/internal/domain/billing"
)

// IssueReceiptRequest carries the optional document name for the receipt PDF.
// When empty, the object key is derived from the receipt ID.
type IssueReceiptRequest struct {
	DocumentName string `json:"document_name" binding:"omitempty,max=100" example:"receipt-2026-001"`
}

// RecordExpenseRequest registers a cash outflow against a cash-cut bucket
type RecordExpenseRequest struct {
	Description string  `json:"description" binding:"required,max=255" example:"Office supplies"`
	Amount      float64 `json:"amount" binding:"required,gt=0" example:"150.00"`
}

// ReceiptLineItemResponse represents one line of a receipt
type ReceiptLineItemResponse struct {
	ID           string  `json:"id"`
	ProductID    string  `json:"product_id"`
	Description  string  `json:"description"`
	BasePrice    float64 `json:"base_price"`
	Recurrence   string  `json:"recurrence"`
	BillingMonth *int    `json:"billing_month,omitempty"`
	BillingYear  *int    `json:"billing_year,omitempty"`
	Discount     float64 `json:"discount"`
	Surcharge    float64 `json:"surcharge"`
	Scholarship  float64 `json:"scholarship"`
	Adjustment   float64 `json:"adjustment"`
	FinalPrice   float64 `json:"final_price"`
	Status       string  `json:"status"`
}

// ReceiptResponse represents a receipt with its line items
type ReceiptResponse struct {
	ID                    string                    `json:"id"`
	StudentID             string                    `json:"student_id"`
	CampusID              string                    `json:"campus_id"`
	CashierID             string                    `json:"cashier_id"`
	OperatingDate         string                    `json:"operating_date"`
	PaymentMethod         string                    `json:"payment_method"`
	Status                string                    `json:"status"`
	Total                 float64                   `json:"total"`
	CashCutID             *string                   `json:"cash_cut_id,omitempty"`
	IssuedAt              *time.Time                `json:"issued_at,omitempty"`
	CancelledAt           *time.Time                `json:"cancelled_at,omitempty"`
	ArtifactRef           *string                   `json:"artifact_ref,omitempty"`
	Computing             bool                      `json:"computing"`
	GeneratingDocument    bool                      `json:"generating_document"`
	CancellationRequested bool                      `json:"cancellation_requested"`
	LineItems             []ReceiptLineItemResponse `json:"line_items"`
	CreatedAt             time.Time                 `json:"created_at"`
	UpdatedAt             time.Time                 `json:"updated_at"`
}

// NewReceiptResponse converts a domain receipt to its transport shape
func NewReceiptResponse(r *domainbilling.Receipt) ReceiptResponse {
	lines := make([]ReceiptLineItemResponse, 0, len(r.LineItems))
	for i := range r.LineItems {
		lines = append(lines, newLineItemResponse(&r.LineItems[i]))
	}
	return ReceiptResponse{
		ID:                    r.ID.String(),
		StudentID:             r.StudentID.String(),
		CampusID:              r.CampusID.String(),
		CashierID:             r.CashierID.String(),
		OperatingDate:         r.OperatingDate.Format("2006-01-02"),
		PaymentMethod:         r.PaymentMethod.String(),
		Status:                r.Status.String(),
		Total:                 r.Total.InexactFloat64(),
		CashCutID:             r.CashCutID,
		IssuedAt:              r.IssuedAt,
		CancelledAt:           r.CancelledAt,
		ArtifactRef:           r.ArtifactRef,
		Computing:             r.Computing,
		GeneratingDocument:    r.GeneratingDocument,
		CancellationRequested: r.CancellationRequested,
		LineItems:             lines,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
}

func newLineItemResponse(li *domainbilling.ReceiptLineItem) ReceiptLineItemResponse {
	return ReceiptLineItemResponse{
		ID:           li.ID.String(),
		ProductID:    li.ProductID.String(),
		Description:  li.Description,
		BasePrice:    li.BasePrice.InexactFloat64(),
		Recurrence:   li.Recurrence.String(),
		BillingMonth: li.BillingMonth,
		BillingYear:  li.BillingYear,
		Discount:     li.Discount.InexactFloat64(),
		Surcharge:    li.Surcharge.InexactFloat64(),
		Scholarship:  li.Scholarship.InexactFloat64(),
		Adjustment:   li.Adjustment.InexactFloat64(),
		FinalPrice:   li.FinalPrice.InexactFloat64(),
		Status:       li.Status.String(),
	}
}

// LifecycleResponse is the outcome of an issue, cancel or regenerate call
type LifecycleResponse struct {
	Receipt     ReceiptResponse `json:"receipt"`
	ArtifactRef *string         `json:"artifact_ref,omitempty"`
}

// NewLifecycleResponse converts a lifecycle result to its transport shape.
// The caller attaches the warning, if any, at the response envelope level.
func NewLifecycleResponse(res *billing.LifecycleResult) LifecycleResponse {
	return LifecycleResponse{
		Receipt:     NewReceiptResponse(res.Receipt),
		ArtifactRef: res.ArtifactRef,
	}
}

// CashExpenseResponse represents one recorded cash outflow
type CashExpenseResponse struct {
	ID          string    `json:"id"`
	CashCutID   string    `json:"cash_cut_id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewCashExpenseResponse converts a domain expense to its transport shape
func NewCashExpenseResponse(e *domainbilling.CashExpense) CashExpenseResponse {
	return CashExpenseResponse{
		ID:          e.ID.String(),
		CashCutID:   e.CashCutID,
		Description: e.Description,
		Amount:      e.Amount.InexactFloat64(),
		CreatedAt:   e.CreatedAt,
	}
}

// CashCutResponse represents a daily cash-cut bucket with its aggregates
type CashCutResponse struct {
	ID                 string                `json:"id"`
	CashierID          string                `json:"cashier_id"`
	CampusID           string                `json:"campus_id"`
	OperatingDay       string                `json:"operating_day"`
	IssuedCount        int                   `json:"issued_count"`
	CashTotal          float64               `json:"cash_total"`
	CardTotal          float64               `json:"card_total"`
	TransferTotal      float64               `json:"transfer_total"`
	GrandTotal         float64               `json:"grand_total"`
	CancelledCount     int                   `json:"cancelled_count"`
	CancelledTotal     float64               `json:"cancelled_total"`
	CashExpenses       float64               `json:"cash_expenses"`
	NetCash            float64               `json:"net_cash"`
	ArtifactRef        *string               `json:"artifact_ref,omitempty"`
	GeneratingDocument bool                  `json:"generating_document"`
	Expenses           []CashExpenseResponse `json:"expenses,omitempty"`
	CreatedAt          time.Time             `json:"created_at"`
	UpdatedAt          time.Time             `json:"updated_at"`
}

// NewCashCutResponse converts a domain cash cut to its transport shape
func NewCashCutResponse(cc *domainbilling.CashCut, expenses []domainbilling.CashExpense) CashCutResponse {
	resp := CashCutResponse{
		ID:                 cc.ID,
		CashierID:          cc.CashierID.String(),
		CampusID:           cc.CampusID.String(),
		OperatingDay:       cc.OperatingDay.Format("2006-01-02"),
		IssuedCount:        cc.IssuedCount,
		CashTotal:          cc.CashTotal.InexactFloat64(),
		CardTotal:          cc.CardTotal.InexactFloat64(),
		TransferTotal:      cc.TransferTotal.InexactFloat64(),
		GrandTotal:         cc.GrandTotal.InexactFloat64(),
		CancelledCount:     cc.CancelledCount,
		CancelledTotal:     cc.CancelledTotal.InexactFloat64(),
		CashExpenses:       cc.CashExpenses.InexactFloat64(),
		NetCash:            cc.NetCash.InexactFloat64(),
		ArtifactRef:        cc.ArtifactRef,
		GeneratingDocument: cc.GeneratingDocument,
		CreatedAt:          cc.CreatedAt,
		UpdatedAt:          cc.UpdatedAt,
	}
	for i := range expenses {
		resp.Expenses = append(resp.Expenses, NewCashExpenseResponse(&expenses[i]))
	}
	return resp
}
