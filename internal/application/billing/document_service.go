package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/campusbill/backend/internal/domain/billing"
	"github.com/campusbill/backend/internal/domain/shared"
	"github.com/campusbill/backend/internal/infrastructure/logger"
	"github.com/campusbill/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	receiptKeyPrefix    = "receipts/"
	cashCutKeyPrefix    = "cuts/"
	documentExtension   = ".pdf"
	documentContentType = "application/pdf"
)

// DocumentService is the side-effect orchestrator. It runs after the
// lifecycle transaction committed: re-reads the committed state, renders the
// document, replaces the stored artifact and reconciles the reference with a
// guarded update, all while the persisted generating-document lock is held.
// Failures here never roll back the lifecycle transition; the caller
// downgrades them to warnings.
type DocumentService struct {
	store     BillingStore
	renderer  DocumentRenderer
	artifacts ArtifactStore
	logger    *zap.Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(store BillingStore, renderer DocumentRenderer, artifacts ArtifactStore, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		store:     store,
		renderer:  renderer,
		artifacts: artifacts,
		logger:    logger,
	}
}

// log prefers the request-scoped logger attached by the HTTP middleware,
// falling back to the injected one.
func (s *DocumentService) log(ctx context.Context) *zap.Logger {
	return logger.FromContextOr(ctx, s.logger)
}

// GenerateReceiptDocument renders and uploads the document for a receipt
// whose generating-document lock is already held, and writes the artifact
// reference back. The lock is cleared on every exit path.
func (s *DocumentService) GenerateReceiptDocument(ctx context.Context, receiptID uuid.UUID, documentName string) (ref string, err error) {
	ctx, span := telemetry.StartSpan(ctx, "billing", "generate_receipt_document")
	defer span.End()

	defer func() {
		// The advisory lock must never be left behind, even when rendering
		// or upload failed. A cleanup failure is logged, not returned, so it
		// cannot mask the primary error.
		if clearErr := s.store.ClearReceiptDocumentLock(ctx, receiptID); clearErr != nil {
			s.log(ctx).Error("Failed to clear document lock",
				zap.String("receipt_id", receiptID.String()),
				zap.Error(clearErr),
			)
		}
	}()

	doc, err := s.store.FindReceiptDocument(ctx, receiptID)
	if err != nil {
		telemetry.RecordError(span, err)
		return "", fmt.Errorf("failed to load receipt snapshot: %w", err)
	}
	if doc == nil {
		err = shared.NewConsistencyError("RECEIPT_VANISHED",
			fmt.Sprintf("Receipt %s not found when generating its document", receiptID))
		telemetry.RecordError(span, err)
		return "", err
	}

	key, err := s.resolveReceiptKey(ctx, doc, documentName)
	if err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}

	data, err := s.renderer.RenderReceipt(ctx, doc)
	if err != nil {
		telemetry.RecordError(span, err)
		return "", fmt.Errorf("failed to render receipt document: %w", err)
	}

	storedRef, err := s.replaceArtifact(ctx, key, data)
	if err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}

	rows, err := s.store.SetReceiptArtifact(ctx, receiptID, doc.Receipt.Status, storedRef)
	if err != nil {
		telemetry.RecordError(span, err)
		return "", fmt.Errorf("failed to store artifact reference: %w", err)
	}
	if rows != 1 {
		// The receipt changed state between commit and reconciliation.
		// Refusing to overwrite is the whole point of the guarded update.
		err = shared.NewConsistencyError("ARTIFACT_WRITE_LOST",
			fmt.Sprintf("Artifact reference update for receipt %s affected %d rows, expected 1", receiptID, rows))
		telemetry.RecordError(span, err)
		return "", err
	}

	s.log(ctx).Info("Receipt document generated",
		zap.String("receipt_id", receiptID.String()),
		zap.String("artifact_ref", storedRef),
	)
	return storedRef, nil
}

// RegenerateReceiptDocument is the administrative repair path: it force-takes
// the document lock, including one left behind by a crashed or failed
// generation, re-renders from current persisted state and overwrites the
// artifact at its resolved path.
func (s *DocumentService) RegenerateReceiptDocument(ctx context.Context, receiptID uuid.UUID) (string, error) {
	rows, err := s.store.AcquireReceiptDocumentLock(ctx, receiptID,
		[]billing.ReceiptStatus{billing.ReceiptStatusIssued, billing.ReceiptStatusCancelled})
	if err != nil {
		return "", err
	}
	if rows == 0 {
		return "", shared.ErrNotFoundOrBlocked
	}
	return s.GenerateReceiptDocument(ctx, receiptID, "")
}

// GenerateCashCutDocument renders and uploads the report for a cash-cut
// bucket, acquiring and releasing its document lock.
func (s *DocumentService) GenerateCashCutDocument(ctx context.Context, bucketID, documentName string) (ref string, err error) {
	ctx, span := telemetry.StartSpan(ctx, "billing", "generate_cash_cut_document")
	defer span.End()

	rows, err := s.store.AcquireCashCutDocumentLock(ctx, bucketID)
	if err != nil {
		return "", err
	}
	if rows == 0 {
		return "", shared.ErrDocumentLockHeld
	}
	defer func() {
		if clearErr := s.store.ClearCashCutDocumentLock(ctx, bucketID); clearErr != nil {
			s.log(ctx).Error("Failed to clear cash cut document lock",
				zap.String("cash_cut_id", bucketID),
				zap.Error(clearErr),
			)
		}
	}()

	doc, err := s.store.FindCashCutDocument(ctx, bucketID)
	if err != nil {
		telemetry.RecordError(span, err)
		return "", fmt.Errorf("failed to load cash cut snapshot: %w", err)
	}
	if doc == nil {
		err = shared.NewConsistencyError("CASH_CUT_VANISHED",
			fmt.Sprintf("Cash cut %s not found when generating its report", bucketID))
		telemetry.RecordError(span, err)
		return "", err
	}

	key, err := s.resolveCashCutKey(doc, documentName)
	if err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}

	data, err := s.renderer.RenderCashCut(ctx, doc)
	if err != nil {
		telemetry.RecordError(span, err)
		return "", fmt.Errorf("failed to render cash cut report: %w", err)
	}

	storedRef, err := s.replaceArtifact(ctx, key, data)
	if err != nil {
		telemetry.RecordError(span, err)
		return "", err
	}

	rows, err = s.store.SetCashCutArtifact(ctx, bucketID, storedRef)
	if err != nil {
		telemetry.RecordError(span, err)
		return "", fmt.Errorf("failed to store artifact reference: %w", err)
	}
	if rows != 1 {
		err = shared.NewConsistencyError("ARTIFACT_WRITE_LOST",
			fmt.Sprintf("Artifact reference update for cash cut %s affected %d rows, expected 1", bucketID, rows))
		telemetry.RecordError(span, err)
		return "", err
	}

	s.log(ctx).Info("Cash cut report generated",
		zap.String("cash_cut_id", bucketID),
		zap.String("artifact_ref", storedRef),
	)
	return storedRef, nil
}

// replaceArtifact deletes any stale object at the key, then uploads the new
// bytes. Deleting a missing object is not an error.
func (s *DocumentService) replaceArtifact(ctx context.Context, key string, data []byte) (string, error) {
	if err := s.artifacts.Delete(ctx, key); err != nil {
		return "", fmt.Errorf("failed to delete stale artifact %s: %w", key, err)
	}
	ref, err := s.artifacts.Put(ctx, key, data, documentContentType)
	if err != nil {
		return "", fmt.Errorf("failed to upload artifact %s: %w", key, err)
	}
	return ref, nil
}

// resolveReceiptKey picks the object key: the caller-supplied name when
// present, otherwise the key of the existing reference, otherwise the
// deterministic per-receipt fallback.
func (s *DocumentService) resolveReceiptKey(ctx context.Context, doc *ReceiptDocument, documentName string) (string, error) {
	if documentName != "" {
		name, err := sanitizeDocumentName(documentName)
		if err != nil {
			return "", err
		}
		return receiptKeyPrefix + name + documentExtension, nil
	}
	if doc.Receipt.ArtifactRef != nil {
		// Only trust stored references that carry our canonical prefix.
		if key, ok := s.artifacts.KeyFromRef(*doc.Receipt.ArtifactRef); ok && strings.HasPrefix(key, receiptKeyPrefix) {
			return key, nil
		}
		s.log(ctx).Warn("Stored artifact reference is not canonical, using fallback path",
			zap.String("receipt_id", doc.Receipt.ID.String()),
			zap.String("artifact_ref", *doc.Receipt.ArtifactRef),
		)
	}
	return receiptKeyPrefix + doc.Receipt.ID.String() + documentExtension, nil
}

func (s *DocumentService) resolveCashCutKey(doc *CashCutDocument, documentName string) (string, error) {
	if documentName != "" {
		name, err := sanitizeDocumentName(documentName)
		if err != nil {
			return "", err
		}
		return cashCutKeyPrefix + name + documentExtension, nil
	}
	if doc.CashCut.ArtifactRef != nil {
		if key, ok := s.artifacts.KeyFromRef(*doc.CashCut.ArtifactRef); ok && strings.HasPrefix(key, cashCutKeyPrefix) {
			return key, nil
		}
	}
	return cashCutKeyPrefix + doc.CashCut.ID + documentExtension, nil
}

// sanitizeDocumentName rejects traversal segments and separators in
// caller-supplied document names.
func sanitizeDocumentName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", shared.NewValidationError("INVALID_DOCUMENT_NAME", "Document name cannot be empty")
	}
	if strings.Contains(trimmed, "..") || strings.ContainsAny(trimmed, "/\\") {
		return "", shared.NewValidationError("INVALID_DOCUMENT_NAME",
			"Document name cannot contain path separators or traversal segments")
	}
	return trimmed, nil
}
