package handler

import (
	"github.com/campusbill/backend/internal/application/billing"
	"github.com/campusbill/backend/internal/interfaces/http/dto"
	"github.com/campusbill/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// CashCutHandler exposes the daily cash-cut aggregates and their report
type CashCutHandler struct {
	BaseHandler
	cashCuts  *billing.CashCutService
	documents *billing.DocumentService
}

// NewCashCutHandler creates a new CashCutHandler
func NewCashCutHandler(cashCuts *billing.CashCutService, documents *billing.DocumentService) *CashCutHandler {
	return &CashCutHandler{
		cashCuts:  cashCuts,
		documents: documents,
	}
}

// RegisterRoutes registers all cash-cut routes
func (h *CashCutHandler) RegisterRoutes(rg *gin.RouterGroup) {
	cashCuts := rg.Group("/cash-cuts")
	{
		cashCuts.GET("/:id", h.Get)
		cashCuts.POST("/:id/recompute", h.Recompute)
		cashCuts.POST("/:id/expenses", h.RecordExpense)
		cashCuts.POST("/:id/regenerate", h.RegenerateReport)
	}
}

// bucketID validates and returns the cash-cut bucket ID path parameter
func (h *CashCutHandler) bucketID(c *gin.Context) (string, bool) {
	var req dto.BucketIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid cash cut ID format")
		return "", false
	}
	return req.ID, true
}

// Get returns one cash-cut bucket with its recorded expenses
func (h *CashCutHandler) Get(c *gin.Context) {
	id, ok := h.bucketID(c)
	if !ok {
		return
	}

	cut, expenses, err := h.cashCuts.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.NewCashCutResponse(cut, expenses))
}

// Recompute re-derives the bucket aggregates from the full set of linked
// receipts. Safe to call at any time; the result is idempotent for an
// unchanged receipt set.
func (h *CashCutHandler) Recompute(c *gin.Context) {
	id, ok := h.bucketID(c)
	if !ok {
		return
	}

	cut, err := h.cashCuts.Recompute(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.NewCashCutResponse(cut, nil))
}

// RecordExpense appends a cash outflow to the bucket and returns the bucket
// with its refreshed net cash
func (h *CashCutHandler) RecordExpense(c *gin.Context) {
	id, ok := h.bucketID(c)
	if !ok {
		return
	}

	var req dto.RecordExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	cut, err := h.cashCuts.RecordExpense(c.Request.Context(), id, req.Description, toDecimal(req.Amount))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	_, expenses, err := h.cashCuts.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, dto.NewCashCutResponse(cut, expenses))
}

// RegenerateReport re-renders and re-uploads the cash-cut report
func (h *CashCutHandler) RegenerateReport(c *gin.Context) {
	id, ok := h.bucketID(c)
	if !ok {
		return
	}

	ref, err := h.documents.GenerateCashCutDocument(c.Request.Context(), id, "")
	if err != nil {
		h.HandleError(c, err)
		return
	}

	cut, expenses, err := h.cashCuts.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := dto.NewCashCutResponse(cut, expenses)
	resp.ArtifactRef = &ref
	h.Success(c, resp)
}
