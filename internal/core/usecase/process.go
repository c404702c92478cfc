package usecase

import (
	"context"
	"fmt"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
	"github.com/jverhaegen/ledgerpilot/internal/core/ports"
)

// ProcessDocumentUseCase runs the autonomous pipeline for a stored
// document and persists the terminal envelope and status.
type ProcessDocumentUseCase struct {
	repo     ports.DocumentRepository
	pipeline ports.DocumentPipeline
	observer ports.PipelineObserver
}

func NewProcessDocumentUseCase(repo ports.DocumentRepository, pipeline ports.DocumentPipeline, observer ports.PipelineObserver) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{repo: repo, pipeline: pipeline, observer: observer}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	if err := uc.repo.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	tenant := domain.TenantContext{TenantID: doc.TenantID, CountryCode: doc.Country}
	result, err := uc.pipeline.Process(ctx, doc.Pages, tenant)
	if err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.repo.SaveResult(ctx, documentID, result); err != nil {
		if failErr := uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return fmt.Errorf("save pipeline result: %w", err)
	}

	status, errMessage := terminalStatus(result)
	if err := uc.repo.UpdateStatus(ctx, documentID, status, errMessage); err != nil {
		return fmt.Errorf("set terminal status: %w", err)
	}

	uc.observe(result)
	return nil
}

func (uc *ProcessDocumentUseCase) observe(result domain.PipelineResult) {
	if uc.observer == nil {
		return
	}

	docType := ""
	if result.Classification != nil {
		docType = string(result.Classification.DocumentType)
	}
	verdict := "REJECTED"
	if !result.Rejected() && result.Judgment != nil {
		verdict = string(result.Judgment.Outcome)
	}
	uc.observer.RecordVerdict(docType, verdict)

	if result.Retry != nil {
		switch result.Retry.Kind {
		case domain.RetryCorrected:
			uc.observer.ObserveCorrectionAttempts(result.Retry.Attempt)
		case domain.RetryStillFailing:
			uc.observer.ObserveCorrectionAttempts(result.Retry.Attempts)
		default:
			uc.observer.ObserveCorrectionAttempts(0)
		}
	}
}

func terminalStatus(result domain.PipelineResult) (domain.DocumentStatus, string) {
	if result.Rejected() {
		return domain.StatusRejected, result.Rejection.Reason
	}
	switch result.Judgment.Outcome {
	case domain.OutcomeAutoApprove:
		return domain.StatusAutoApproved, ""
	case domain.OutcomeNeedsReview:
		return domain.StatusNeedsReview, ""
	default:
		return domain.StatusRejected, ""
	}
}
