package usecase

import (
	"context"
	"log/slog"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
	"github.com/jverhaegen/ledgerpilot/internal/core/ports"
)

// SelfCorrector drives the bounded feedback retry loop. Each attempt hands
// the correction agent the original pages, the current extraction and the
// failing audit report, then re-audits whatever comes back.
type SelfCorrector struct {
	maxRetries int
	enabled    bool
}

func NewSelfCorrector(maxRetries int, enabled bool) *SelfCorrector {
	if maxRetries <= 0 {
		maxRetries = 2
	}
	return &SelfCorrector{maxRetries: maxRetries, enabled: enabled}
}

type auditFunc func(ctx context.Context, ex domain.Extraction) domain.AuditReport

// Run returns the retry outcome, the audit report that stands afterwards
// and the extraction downstream stages must use. When the entry condition
// does not hold it short-circuits without consuming budget.
func (s *SelfCorrector) Run(
	ctx context.Context,
	agent ports.CorrectionAgent,
	pages []domain.PageImage,
	extraction domain.Extraction,
	report domain.AuditReport,
	reaudit auditFunc,
) (domain.RetryResult, domain.AuditReport, domain.Extraction) {
	critical := report.CriticalFailures()
	if !s.enabled || agent == nil || report.OverallStatus == domain.AuditPassed || len(critical) == 0 {
		return domain.NoRetryNeeded(), report, extraction
	}

	current := extraction
	currentReport := report
	var lastErr error

	// attempts counts what actually ran: a cancelled context leaves the
	// remaining budget unconsumed and is reported as such.
	attempts := 0
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		if ctx.Err() != nil {
			break
		}
		attempts++

		slog.Info("self_correction_attempt",
			"attempt", attempt,
			"max_retries", s.maxRetries,
			"critical_failures", len(currentReport.CriticalFailures()),
		)

		corrected, err := agent.AttemptCorrection(ctx, pages, current, currentReport)
		if err != nil {
			// The agent's own failure must not pass the old data through
			// as if it were resolved.
			lastErr = err
			slog.Warn("self_correction_agent_error", "attempt", attempt, "error", err)
			continue
		}

		newReport := reaudit(ctx, corrected)
		if len(newReport.CriticalFailures()) == 0 {
			fields := changedFields(current, corrected)
			return domain.CorrectedOnRetry(corrected, attempt, fields, critical), newReport, corrected
		}

		current = corrected
		currentReport = newReport
	}

	if lastErr != nil {
		slog.Warn("self_correction_exhausted", "attempts", attempts, "last_agent_error", lastErr)
	}
	remaining := currentReport.CriticalFailures()
	return domain.StillFailing(current, attempts, remaining), currentReport, current
}

// changedFields diffs the salient fields of two extractions of the same type.
func changedFields(before, after domain.Extraction) []string {
	beforeFields := before.SalientFields()
	afterFields := after.SalientFields()
	if len(beforeFields) != len(afterFields) {
		return nil
	}
	var changed []string
	for i := range afterFields {
		if beforeFields[i].Value != afterFields[i].Value {
			changed = append(changed, afterFields[i].Name)
		}
	}
	return changed
}
