package domain

type JudgmentOutcome string

const (
	OutcomeAutoApprove JudgmentOutcome = "AUTO_APPROVE"
	OutcomeNeedsReview JudgmentOutcome = "NEEDS_REVIEW"
	OutcomeReject      JudgmentOutcome = "REJECT"
)

// JudgmentContext is a read-only snapshot of every upstream signal,
// assembled once by the coordinator and consumed once by the judge.
type JudgmentContext struct {
	DocumentType         DocumentType
	ExtractionConfidence float64
	MissingEssentials    []string
	Conflicts            *ConflictReport
	Audit                AuditReport
	Retry                RetryResult
}

type JudgmentDecision struct {
	Outcome    JudgmentOutcome `json:"outcome"`
	Confidence float64         `json:"confidence"`
	Issues     []string        `json:"issues_for_user,omitempty"`
}
