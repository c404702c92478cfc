package ports

import (
	"context"
	"io"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
)

// DocumentRepository persists document state and terminal pipeline results.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.ScannedDocument) error
	GetByID(ctx context.Context, id string) (*domain.ScannedDocument, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	SaveResult(ctx context.Context, id string, result domain.PipelineResult) error
	GetResult(ctx context.Context, id string) ([]byte, error)
	ListByStatus(ctx context.Context, status domain.DocumentStatus, limit int) ([]domain.ScannedDocument, error)
}

// ObjectStorage stores source scans. Delete is best-effort cleanup;
// deleting a missing key is not an error.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes document-scanned events.
type MessageQueue interface {
	PublishDocumentScanned(ctx context.Context, documentID string) error
	SubscribeDocumentScanned(ctx context.Context, handler func(context.Context, string) error) error
}

// PageSplitter turns a stored scan into ordered page references.
type PageSplitter interface {
	Split(ctx context.Context, storageKey, mimeType string) ([]domain.PageImage, error)
}

// ReviewReportWriter renders the review-queue workbook.
type ReviewReportWriter interface {
	WriteReviewQueue(docs []domain.ScannedDocument) ([]byte, error)
}

// Classifier assigns a document type and confidence from page images.
type Classifier interface {
	Classify(ctx context.Context, pages []domain.PageImage, tenant domain.TenantContext) (domain.Classification, error)
}

// ExtractionAgent turns page images into a typed extraction. One instance
// per document type and tier; failures are ordinary error values.
type ExtractionAgent interface {
	Extract(ctx context.Context, pages []domain.PageImage) (domain.Extraction, error)
}

// CorrectionAgent re-extracts with the failed audit checks as feedback.
type CorrectionAgent interface {
	AttemptCorrection(ctx context.Context, pages []domain.PageImage, current domain.Extraction, report domain.AuditReport) (domain.Extraction, error)
}

// RegistryEntity is a business-registry record matched by VAT number.
type RegistryEntity struct {
	VATNumber string `json:"vat_number"`
	LegalName string `json:"legal_name"`
	Active    bool   `json:"active"`
}

// RegistryLookup consults an external business registry. Must be treated
// as unreliable; callers map errors to incomplete checks.
type RegistryLookup interface {
	SearchByVAT(ctx context.Context, vatNumber string) (RegistryEntity, error)
}

// PipelineObserver records terminal pipeline outcomes for monitoring.
// A nil observer is valid everywhere one is accepted.
type PipelineObserver interface {
	RecordVerdict(documentType, verdict string)
	ObserveCorrectionAttempts(attempts int)
}

// JudgmentModel is the optional LLM-backed judge for ambiguous cases.
type JudgmentModel interface {
	Judge(ctx context.Context, jc domain.JudgmentContext) (domain.JudgmentDecision, error)
}
