package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
)

type memoryRepo struct {
	docs     map[string]*domain.ScannedDocument
	results  map[string]domain.PipelineResult
	statuses []domain.DocumentStatus

	createErr     error
	saveResultErr error
	statusErr     error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		docs:    map[string]*domain.ScannedDocument{},
		results: map[string]domain.PipelineResult{},
	}
}

func (r *memoryRepo) Create(_ context.Context, doc *domain.ScannedDocument) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.docs[doc.ID] = doc
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id string) (*domain.ScannedDocument, error) {
	doc, ok := r.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (r *memoryRepo) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	if r.statusErr != nil {
		return r.statusErr
	}
	doc, ok := r.docs[id]
	if !ok {
		return domain.ErrDocumentNotFound
	}
	doc.Status = status
	doc.Error = errMessage
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *memoryRepo) SaveResult(_ context.Context, id string, result domain.PipelineResult) error {
	if r.saveResultErr != nil {
		return r.saveResultErr
	}
	r.results[id] = result
	return nil
}

func (r *memoryRepo) GetResult(_ context.Context, id string) ([]byte, error) {
	if _, ok := r.results[id]; !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return []byte(`{}`), nil
}

func (r *memoryRepo) ListByStatus(_ context.Context, status domain.DocumentStatus, limit int) ([]domain.ScannedDocument, error) {
	var out []domain.ScannedDocument
	for _, doc := range r.docs {
		if doc.Status == status && len(out) < limit {
			out = append(out, *doc)
		}
	}
	return out, nil
}

type stubPipeline struct {
	result domain.PipelineResult
	err    error
	tenant domain.TenantContext
	pages  int
}

func (p *stubPipeline) Process(_ context.Context, pages []domain.PageImage, tenant domain.TenantContext) (domain.PipelineResult, error) {
	p.tenant = tenant
	p.pages = len(pages)
	return p.result, p.err
}

type recordingObserver struct {
	docType  string
	verdict  string
	attempts []int
}

func (o *recordingObserver) RecordVerdict(documentType, verdict string) {
	o.docType = documentType
	o.verdict = verdict
}

func (o *recordingObserver) ObserveCorrectionAttempts(attempts int) {
	o.attempts = append(o.attempts, attempts)
}

func storedDoc(repo *memoryRepo) *domain.ScannedDocument {
	doc := &domain.ScannedDocument{
		ID:        "doc-1",
		TenantID:  "acme",
		Country:   "BE",
		Filename:  "invoice.pdf",
		MimeType:  "application/pdf",
		Pages:     testPages(),
		Status:    domain.StatusReceived,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	repo.docs[doc.ID] = doc
	return doc
}

func approvedResult() domain.PipelineResult {
	cls := domain.Classification{DocumentType: domain.DocTypeInvoice, Confidence: 0.9}
	retry := domain.NoRetryNeeded()
	audit := domain.NewAuditReport(nil)
	return domain.PipelineResult{
		Classification: &cls,
		Extraction:     sampleInvoice(),
		Audit:          &audit,
		Retry:          &retry,
		Judgment:       &domain.JudgmentDecision{Outcome: domain.OutcomeAutoApprove, Confidence: 0.9},
	}
}

func TestProcessByIDApprovedDocument(t *testing.T) {
	repo := newMemoryRepo()
	doc := storedDoc(repo)
	pipeline := &stubPipeline{result: approvedResult()}
	observer := &recordingObserver{}
	uc := NewProcessDocumentUseCase(repo, pipeline, observer)

	if err := uc.ProcessByID(context.Background(), doc.ID); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}

	if doc.Status != domain.StatusAutoApproved {
		t.Fatalf("status = %s", doc.Status)
	}
	want := []domain.DocumentStatus{domain.StatusProcessing, domain.StatusAutoApproved}
	if len(repo.statuses) != 2 || repo.statuses[0] != want[0] || repo.statuses[1] != want[1] {
		t.Fatalf("status transitions = %v, want %v", repo.statuses, want)
	}
	if _, ok := repo.results[doc.ID]; !ok {
		t.Fatalf("result not persisted")
	}
	if pipeline.tenant.TenantID != "acme" || pipeline.tenant.CountryCode != "BE" {
		t.Fatalf("tenant context = %+v", pipeline.tenant)
	}
	if observer.verdict != "AUTO_APPROVE" || observer.docType != "INVOICE" {
		t.Fatalf("observer = %+v", observer)
	}
	if len(observer.attempts) != 1 || observer.attempts[0] != 0 {
		t.Fatalf("correction attempts = %v", observer.attempts)
	}
}

func TestProcessByIDNeedsReviewDocument(t *testing.T) {
	repo := newMemoryRepo()
	doc := storedDoc(repo)
	result := approvedResult()
	result.Judgment.Outcome = domain.OutcomeNeedsReview
	retry := domain.CorrectedOnRetry(sampleInvoice(), 2, []string{"totalAmount"}, nil)
	result.Retry = &retry
	observer := &recordingObserver{}
	uc := NewProcessDocumentUseCase(repo, &stubPipeline{result: result}, observer)

	if err := uc.ProcessByID(context.Background(), doc.ID); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if doc.Status != domain.StatusNeedsReview {
		t.Fatalf("status = %s", doc.Status)
	}
	if len(observer.attempts) != 1 || observer.attempts[0] != 2 {
		t.Fatalf("correction attempts = %v", observer.attempts)
	}
}

func TestProcessByIDRejectedDocumentKeepsReason(t *testing.T) {
	repo := newMemoryRepo()
	doc := storedDoc(repo)
	cls := domain.Classification{DocumentType: domain.DocTypeUnknown, Confidence: 0.8}
	result := domain.RejectedResult(&cls, domain.StageClassification, "unrecognized document type", nil)
	observer := &recordingObserver{}
	uc := NewProcessDocumentUseCase(repo, &stubPipeline{result: result}, observer)

	if err := uc.ProcessByID(context.Background(), doc.ID); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if doc.Status != domain.StatusRejected {
		t.Fatalf("status = %s", doc.Status)
	}
	if doc.Error != "unrecognized document type" {
		t.Fatalf("error message = %q", doc.Error)
	}
	if observer.verdict != "REJECTED" {
		t.Fatalf("observer verdict = %q", observer.verdict)
	}
}

func TestProcessByIDPipelineErrorMarksFailed(t *testing.T) {
	repo := newMemoryRepo()
	doc := storedDoc(repo)
	pipelineErr := errors.New("context deadline exceeded")
	uc := NewProcessDocumentUseCase(repo, &stubPipeline{err: pipelineErr}, nil)

	err := uc.ProcessByID(context.Background(), doc.ID)
	if !errors.Is(err, pipelineErr) {
		t.Fatalf("ProcessByID() error = %v, want the pipeline error", err)
	}
	if doc.Status != domain.StatusFailed {
		t.Fatalf("status = %s", doc.Status)
	}
	if doc.Error == "" {
		t.Fatalf("failure reason must be stored")
	}
}

func TestProcessByIDUnknownDocument(t *testing.T) {
	uc := NewProcessDocumentUseCase(newMemoryRepo(), &stubPipeline{}, nil)

	err := uc.ProcessByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrDocumentNotFound) {
		t.Fatalf("error = %v", err)
	}
}

func TestProcessByIDSaveResultFailureMarksFailed(t *testing.T) {
	repo := newMemoryRepo()
	doc := storedDoc(repo)
	repo.saveResultErr = errors.New("postgres down")
	uc := NewProcessDocumentUseCase(repo, &stubPipeline{result: approvedResult()}, nil)

	if err := uc.ProcessByID(context.Background(), doc.ID); err == nil {
		t.Fatalf("expected error")
	}
	if doc.Status != domain.StatusFailed {
		t.Fatalf("status = %s", doc.Status)
	}
}

func TestProcessByIDNilObserverIsSafe(t *testing.T) {
	repo := newMemoryRepo()
	doc := storedDoc(repo)
	uc := NewProcessDocumentUseCase(repo, &stubPipeline{result: approvedResult()}, nil)

	if err := uc.ProcessByID(context.Background(), doc.ID); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
}
