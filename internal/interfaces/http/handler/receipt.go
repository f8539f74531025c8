package handler

import (
	"github.com/campusbill/backend/internal/application/billing"
	"github.com/campusbill/backend/internal/interfaces/http/dto"
	"github.com/campusbill/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ReceiptHandler exposes the receipt lifecycle operations
type ReceiptHandler struct {
	BaseHandler
	lifecycle *billing.ReceiptLifecycleService
}

// NewReceiptHandler creates a new ReceiptHandler
func NewReceiptHandler(lifecycle *billing.ReceiptLifecycleService) *ReceiptHandler {
	return &ReceiptHandler{lifecycle: lifecycle}
}

// RegisterRoutes registers all receipt routes
func (h *ReceiptHandler) RegisterRoutes(rg *gin.RouterGroup) {
	receipts := rg.Group("/receipts")
	{
		receipts.GET("/:id", h.Get)
		receipts.POST("/:id/compute", h.Compute)
		receipts.POST("/:id/issue", h.Issue)
		receipts.POST("/:id/request-cancellation", h.RequestCancellation)
		receipts.POST("/:id/cancel", h.Cancel)
		receipts.POST("/:id/regenerate", h.Regenerate)
	}
}

// Get returns one receipt with its line items
func (h *ReceiptHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	receipt, err := h.lifecycle.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.NewReceiptResponse(receipt))
}

// Compute re-prices every draft line of a DRAFT receipt and refreshes its total
func (h *ReceiptHandler) Compute(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	receipt, err := h.lifecycle.Compute(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.NewReceiptResponse(receipt))
}

// Issue transitions a DRAFT receipt to ISSUED, links it to its cash-cut
// bucket and generates the receipt document. A document failure is reported
// as a warning, never as an error: the receipt stays ISSUED.
func (h *ReceiptHandler) Issue(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	// The request body is optional; an empty body issues with a derived
	// document name.
	var req dto.IssueReceiptRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			middleware.HandleValidationError(c, err)
			return
		}
	}

	result, err := h.lifecycle.Issue(c.Request.Context(), id, req.DocumentName)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithWarning(c, dto.NewLifecycleResponse(result), result.Warning)
}

// RequestCancellation flags an ISSUED receipt for cancellation
func (h *ReceiptHandler) RequestCancellation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	if err := h.lifecycle.RequestCancellation(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Cancel transitions a flagged ISSUED receipt to CANCELLED, refreshes its
// bucket aggregates and regenerates the document with the cancellation mark
func (h *ReceiptHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	result, err := h.lifecycle.Cancel(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithWarning(c, dto.NewLifecycleResponse(result), result.Warning)
}

// Regenerate re-renders and re-uploads the receipt document without touching
// lifecycle state
func (h *ReceiptHandler) Regenerate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid receipt ID format")
		return
	}

	result, err := h.lifecycle.Regenerate(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.SuccessWithWarning(c, dto.NewLifecycleResponse(result), result.Warning)
}
