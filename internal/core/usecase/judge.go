package usecase

import (
	"fmt"
	"strings"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
)

// RuleJudge renders the deterministic three-way verdict. Rules are ordered
// by precedence; the first matching rule fixes the outcome, and every rule
// that is not satisfied with full confidence contributes a user-facing
// issue in that same order.
type RuleJudge struct {
	confidenceFloor float64
}

func NewRuleJudge(confidenceFloor float64) *RuleJudge {
	return &RuleJudge{confidenceFloor: confidenceFloor}
}

func (j *RuleJudge) Judge(jc domain.JudgmentContext) domain.JudgmentDecision {
	var issues []string

	if len(jc.MissingEssentials) > 0 {
		issues = append(issues, fmt.Sprintf("missing essential fields: %s", strings.Join(jc.MissingEssentials, ", ")))
	}

	critical := jc.Audit.CriticalFailures()
	criticalUnresolved := len(critical) > 0 && jc.Retry.Kind != domain.RetryCorrected
	advisory := advisoryFailures(jc.Audit)
	if criticalUnresolved {
		issues = append(issues, fmt.Sprintf("critical validation failures: %s", describeChecks(critical)))
		if jc.Retry.Kind == domain.RetryStillFailing {
			issues = append(issues, fmt.Sprintf("automatic correction gave up after %d attempts", jc.Retry.Attempts))
		}
	}
	// The retry loop only clears critical checks, so a failed registry
	// check stays failed even after a successful correction and still
	// needs a human.
	if len(advisory) > 0 {
		issues = append(issues, fmt.Sprintf("advisory validation failures: %s", describeChecks(advisory)))
	}
	if jc.Retry.Kind == domain.RetryCorrected {
		issues = append(issues, fmt.Sprintf(
			"fields %s were corrected automatically on attempt %d",
			strings.Join(jc.Retry.CorrectedFields, ", "), jc.Retry.Attempt,
		))
	}

	if jc.Conflicts.HasConflicts() {
		fields := make([]string, 0, len(jc.Conflicts.Conflicts))
		for _, c := range jc.Conflicts.Conflicts {
			fields = append(fields, c.Field)
		}
		issues = append(issues, fmt.Sprintf("extraction tiers disagreed on: %s", strings.Join(fields, ", ")))
	}

	if jc.ExtractionConfidence < j.confidenceFloor {
		issues = append(issues, fmt.Sprintf(
			"extraction confidence %.2f below floor %.2f", jc.ExtractionConfidence, j.confidenceFloor,
		))
	}

	if warnings := warningCount(jc.Audit); warnings > 0 {
		issues = append(issues, fmt.Sprintf("%d validation warning(s) in the audit report", warnings))
	}

	outcome := j.outcome(jc, criticalUnresolved, len(advisory) > 0)
	return domain.JudgmentDecision{
		Outcome:    outcome,
		Confidence: decisionConfidence(jc.ExtractionConfidence, len(issues)),
		Issues:     issues,
	}
}

func (j *RuleJudge) outcome(jc domain.JudgmentContext, criticalUnresolved, hasAdvisoryFailures bool) domain.JudgmentOutcome {
	switch {
	case len(jc.MissingEssentials) > 0:
		return domain.OutcomeReject
	case criticalUnresolved:
		return domain.OutcomeReject
	case hasAdvisoryFailures:
		return domain.OutcomeNeedsReview
	case jc.Conflicts.HasConflicts():
		return domain.OutcomeNeedsReview
	case jc.ExtractionConfidence < j.confidenceFloor:
		return domain.OutcomeNeedsReview
	default:
		return domain.OutcomeAutoApprove
	}
}

func decisionConfidence(base float64, issueCount int) float64 {
	conf := base
	for i := 0; i < issueCount; i++ {
		conf *= 0.75
	}
	if conf < 0.05 {
		conf = 0.05
	}
	return conf
}

func describeChecks(checks []domain.AuditCheck) string {
	parts := make([]string, 0, len(checks))
	for _, c := range checks {
		parts = append(parts, fmt.Sprintf("%s (%s)", c.Type, c.Message))
	}
	return strings.Join(parts, "; ")
}

// advisoryFailures returns the failed registry checks. They never block
// automatic correction, only human review.
func advisoryFailures(report domain.AuditReport) []domain.AuditCheck {
	var out []domain.AuditCheck
	for _, c := range report.Checks {
		if c.Status != domain.CheckFailed {
			continue
		}
		switch c.Type {
		case domain.CheckCompanyExists, domain.CheckCompanyName:
			out = append(out, c)
		}
	}
	return out
}

func warningCount(report domain.AuditReport) int {
	n := 0
	for _, c := range report.Checks {
		if c.Status == domain.CheckWarning {
			n++
		}
	}
	return n
}
