package ports

import (
	"context"
	"io"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
)

// DocumentIntake is the inbound contract for scan upload orchestration.
type DocumentIntake interface {
	Upload(ctx context.Context, tenant domain.TenantContext, filename, mimeType string, body io.Reader) (*domain.ScannedDocument, error)
}

// DocumentPipeline runs the autonomous pipeline over one document's pages.
// The returned error is reserved for caller cancellation and invalid input;
// collaborator failures resolve to a Rejection inside the result.
type DocumentPipeline interface {
	Process(ctx context.Context, pages []domain.PageImage, tenant domain.TenantContext) (domain.PipelineResult, error)
}

// DocumentProcessor is the inbound contract for asynchronous processing of
// a stored document by id.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for document state and results.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.ScannedDocument, error)
	GetResult(ctx context.Context, id string) ([]byte, error)
}

// ReviewQueueExporter builds the human-review workbook.
type ReviewQueueExporter interface {
	ExportReviewQueue(ctx context.Context) ([]byte, error)
}
