package usecase

import (
	"context"
	"fmt"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
	"github.com/jverhaegen/ledgerpilot/internal/core/ports"
)

const reviewQueueLimit = 500

// ExportReviewQueueUseCase builds the workbook reviewers work through.
type ExportReviewQueueUseCase struct {
	repo   ports.DocumentRepository
	writer ports.ReviewReportWriter
}

func NewExportReviewQueueUseCase(repo ports.DocumentRepository, writer ports.ReviewReportWriter) *ExportReviewQueueUseCase {
	return &ExportReviewQueueUseCase{repo: repo, writer: writer}
}

func (uc *ExportReviewQueueUseCase) ExportReviewQueue(ctx context.Context) ([]byte, error) {
	docs, err := uc.repo.ListByStatus(ctx, domain.StatusNeedsReview, reviewQueueLimit)
	if err != nil {
		return nil, fmt.Errorf("list review queue: %w", err)
	}
	data, err := uc.writer.WriteReviewQueue(docs)
	if err != nil {
		return nil, fmt.Errorf("render review workbook: %w", err)
	}
	return data, nil
}
