package printing

import (
	"context"
	"embed"
	"fmt"

	billingapp "github.com/campusbill/backend/internal/application/billing"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	receiptTemplatePath = "templates/receipt_a4.html"
	cashCutTemplatePath = "templates/cash_cut_a4.html"
)

// Ensure BillingDocumentRenderer implements DocumentRenderer
var _ billingapp.DocumentRenderer = (*BillingDocumentRenderer)(nil)

// BillingDocumentRenderer produces the printable PDF for receipt and
// cash-cut snapshots. Templates are embedded; rendering is a pure function
// of the snapshot handed in.
type BillingDocumentRenderer struct {
	engine   *TemplateEngine
	renderer PDFRenderer
	logger   *zap.Logger
}

// NewBillingDocumentRenderer creates a new BillingDocumentRenderer
func NewBillingDocumentRenderer(renderer PDFRenderer, logger *zap.Logger) *BillingDocumentRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingDocumentRenderer{
		engine:   NewTemplateEngine(),
		renderer: renderer,
		logger:   logger,
	}
}

// RenderReceipt renders the receipt document, with the cancellation
// watermark when the snapshot is cancelled.
func (r *BillingDocumentRenderer) RenderReceipt(ctx context.Context, doc *billingapp.ReceiptDocument) ([]byte, error) {
	if doc == nil {
		return nil, NewRenderError(ErrCodeInvalidHTML, "receipt snapshot is nil", nil)
	}

	html, err := r.renderTemplate(receiptTemplatePath, doc)
	if err != nil {
		return nil, err
	}

	result, err := r.renderer.Render(ctx, &RenderRequest{
		HTML:    html,
		Title:   fmt.Sprintf("Receipt %s", doc.Receipt.ID),
		Margins: DefaultMargins(),
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Rendered receipt document",
		zap.String("receipt_id", doc.Receipt.ID.String()),
		zap.Bool("cancelled", doc.Cancelled),
		zap.Int("pages", result.PageCount),
	)
	return result.PDFData, nil
}

// RenderCashCut renders the daily cash-cut report for a bucket.
func (r *BillingDocumentRenderer) RenderCashCut(ctx context.Context, doc *billingapp.CashCutDocument) ([]byte, error) {
	if doc == nil {
		return nil, NewRenderError(ErrCodeInvalidHTML, "cash cut snapshot is nil", nil)
	}

	html, err := r.renderTemplate(cashCutTemplatePath, doc)
	if err != nil {
		return nil, err
	}

	result, err := r.renderer.Render(ctx, &RenderRequest{
		HTML:    html,
		Title:   fmt.Sprintf("Cash cut %s", doc.CashCut.ID),
		Margins: DefaultMargins(),
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("Rendered cash cut document",
		zap.String("cash_cut_id", doc.CashCut.ID),
		zap.Int("pages", result.PageCount),
	)
	return result.PDFData, nil
}

func (r *BillingDocumentRenderer) renderTemplate(path string, data interface{}) (string, error) {
	content, err := templateFS.ReadFile(path)
	if err != nil {
		return "", NewRenderError(ErrCodeInvalidHTML, "failed to load template "+path, err)
	}
	return r.engine.Render(path, string(content), data)
}
