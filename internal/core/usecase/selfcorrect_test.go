package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
)

type correctionStep struct {
	result domain.Extraction
	err    error
}

type stubCorrector struct {
	steps []correctionStep
	calls int
}

func (c *stubCorrector) AttemptCorrection(_ context.Context, _ []domain.PageImage, _ domain.Extraction, _ domain.AuditReport) (domain.Extraction, error) {
	step := c.steps[c.calls]
	c.calls++
	return step.result, step.err
}

func auditWith(t *testing.T) auditFunc {
	t.Helper()
	auditor := offlineAuditor(t)
	return func(ctx context.Context, ex domain.Extraction) domain.AuditReport {
		return auditor.Audit(ctx, ex, beTenant())
	}
}

func brokenInvoice() *domain.InvoiceData {
	inv := sampleInvoice()
	inv.Total = dec("131.00")
	return inv
}

func TestSelfCorrectorSkipsWhenDisabled(t *testing.T) {
	corrector := &stubCorrector{}
	reaudit := auditWith(t)
	inv := brokenInvoice()
	report := reaudit(context.Background(), inv)

	sc := NewSelfCorrector(2, false)
	retry, finalReport, finalEx := sc.Run(context.Background(), corrector, nil, inv, report, reaudit)

	if retry.Kind != domain.RetryNotNeeded {
		t.Fatalf("kind = %s", retry.Kind)
	}
	if corrector.calls != 0 {
		t.Fatalf("disabled corrector must not be called")
	}
	if finalEx != domain.Extraction(inv) || finalReport.OverallStatus != report.OverallStatus {
		t.Fatalf("disabled run must pass inputs through")
	}
}

func TestSelfCorrectorSkipsWhenAuditPassed(t *testing.T) {
	corrector := &stubCorrector{}
	reaudit := auditWith(t)
	inv := sampleInvoice()
	report := reaudit(context.Background(), inv)

	sc := NewSelfCorrector(2, true)
	retry, _, _ := sc.Run(context.Background(), corrector, nil, inv, report, reaudit)

	if retry.Kind != domain.RetryNotNeeded {
		t.Fatalf("kind = %s", retry.Kind)
	}
	if corrector.calls != 0 {
		t.Fatalf("passing audit must not trigger correction")
	}
}

func TestSelfCorrectorSkipsWithoutAgent(t *testing.T) {
	reaudit := auditWith(t)
	inv := brokenInvoice()
	report := reaudit(context.Background(), inv)

	sc := NewSelfCorrector(2, true)
	retry, _, _ := sc.Run(context.Background(), nil, nil, inv, report, reaudit)
	if retry.Kind != domain.RetryNotNeeded {
		t.Fatalf("kind = %s", retry.Kind)
	}
}

func TestSelfCorrectorCorrectsOnFirstAttempt(t *testing.T) {
	fixed := sampleInvoice()
	corrector := &stubCorrector{steps: []correctionStep{{result: fixed}}}
	reaudit := auditWith(t)
	inv := brokenInvoice()
	report := reaudit(context.Background(), inv)

	sc := NewSelfCorrector(2, true)
	retry, finalReport, finalEx := sc.Run(context.Background(), corrector, nil, inv, report, reaudit)

	if retry.Kind != domain.RetryCorrected {
		t.Fatalf("kind = %s", retry.Kind)
	}
	if retry.Attempt != 1 {
		t.Fatalf("attempt = %d, want 1", retry.Attempt)
	}
	if len(retry.CorrectedFields) != 1 || retry.CorrectedFields[0] != "totalAmount" {
		t.Fatalf("corrected fields = %v", retry.CorrectedFields)
	}
	if len(retry.OriginalFailures) == 0 {
		t.Fatalf("original failures must be preserved")
	}
	if finalReport.OverallStatus != domain.AuditPassed {
		t.Fatalf("final report = %s", finalReport.OverallStatus)
	}
	if finalEx != domain.Extraction(fixed) {
		t.Fatalf("final extraction must be the corrected one")
	}
}

func TestSelfCorrectorCorrectsOnSecondAttempt(t *testing.T) {
	stillBroken := brokenInvoice()
	fixed := sampleInvoice()
	corrector := &stubCorrector{steps: []correctionStep{
		{result: stillBroken},
		{result: fixed},
	}}
	reaudit := auditWith(t)
	inv := brokenInvoice()
	report := reaudit(context.Background(), inv)

	sc := NewSelfCorrector(2, true)
	retry, _, _ := sc.Run(context.Background(), corrector, nil, inv, report, reaudit)

	if retry.Kind != domain.RetryCorrected {
		t.Fatalf("kind = %s", retry.Kind)
	}
	if retry.Attempt != 2 {
		t.Fatalf("attempt = %d, want 2", retry.Attempt)
	}
	if corrector.calls != 2 {
		t.Fatalf("calls = %d", corrector.calls)
	}
}

func TestSelfCorrectorGivesUpAfterBudget(t *testing.T) {
	corrector := &stubCorrector{steps: []correctionStep{
		{result: brokenInvoice()},
		{result: brokenInvoice()},
	}}
	reaudit := auditWith(t)
	inv := brokenInvoice()
	report := reaudit(context.Background(), inv)

	sc := NewSelfCorrector(2, true)
	retry, finalReport, _ := sc.Run(context.Background(), corrector, nil, inv, report, reaudit)

	if retry.Kind != domain.RetryStillFailing {
		t.Fatalf("kind = %s", retry.Kind)
	}
	if retry.Attempts != 2 {
		t.Fatalf("attempts = %d, want the full budget", retry.Attempts)
	}
	if corrector.calls != 2 {
		t.Fatalf("calls = %d, budget must be strict", corrector.calls)
	}
	if len(retry.RemainingFailures) == 0 {
		t.Fatalf("remaining failures must be reported")
	}
	if finalReport.OverallStatus != domain.AuditFailed {
		t.Fatalf("final report = %s", finalReport.OverallStatus)
	}
}

type cancellingCorrector struct {
	cancel context.CancelFunc
	calls  int
}

func (c *cancellingCorrector) AttemptCorrection(_ context.Context, _ []domain.PageImage, _ domain.Extraction, _ domain.AuditReport) (domain.Extraction, error) {
	c.calls++
	c.cancel()
	return nil, errors.New("model shutting down")
}

func TestSelfCorrectorCancellationReportsConsumedAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	corrector := &cancellingCorrector{cancel: cancel}
	reaudit := auditWith(t)
	inv := brokenInvoice()
	report := reaudit(context.Background(), inv)

	sc := NewSelfCorrector(2, true)
	retry, _, finalEx := sc.Run(ctx, corrector, nil, inv, report, reaudit)

	if retry.Kind != domain.RetryStillFailing {
		t.Fatalf("kind = %s", retry.Kind)
	}
	if corrector.calls != 1 {
		t.Fatalf("calls = %d, cancellation must stop the loop", corrector.calls)
	}
	if retry.Attempts != 1 {
		t.Fatalf("attempts = %d, want only the attempt that ran", retry.Attempts)
	}
	if finalEx != domain.Extraction(inv) {
		t.Fatalf("extraction must remain the uncorrected one")
	}
}

func TestSelfCorrectorAgentErrorConsumesBudget(t *testing.T) {
	corrector := &stubCorrector{steps: []correctionStep{
		{err: errors.New("model unavailable")},
		{result: sampleInvoice()},
	}}
	reaudit := auditWith(t)
	inv := brokenInvoice()
	report := reaudit(context.Background(), inv)

	sc := NewSelfCorrector(2, true)
	retry, _, _ := sc.Run(context.Background(), corrector, nil, inv, report, reaudit)

	// The failed first call burns an attempt; the second succeeds.
	if retry.Kind != domain.RetryCorrected {
		t.Fatalf("kind = %s", retry.Kind)
	}
	if retry.Attempt != 2 {
		t.Fatalf("attempt = %d, want 2", retry.Attempt)
	}
}

func TestSelfCorrectorAgentErrorNeverPassesOldDataAsFixed(t *testing.T) {
	corrector := &stubCorrector{steps: []correctionStep{
		{err: errors.New("model unavailable")},
		{err: errors.New("model unavailable")},
	}}
	reaudit := auditWith(t)
	inv := brokenInvoice()
	report := reaudit(context.Background(), inv)

	sc := NewSelfCorrector(2, true)
	retry, finalReport, finalEx := sc.Run(context.Background(), corrector, nil, inv, report, reaudit)

	if retry.Kind != domain.RetryStillFailing {
		t.Fatalf("kind = %s", retry.Kind)
	}
	if finalEx != domain.Extraction(inv) {
		t.Fatalf("extraction must remain the uncorrected one")
	}
	if finalReport.OverallStatus != domain.AuditFailed {
		t.Fatalf("final report = %s", finalReport.OverallStatus)
	}
}
