package domain

type RejectionStage string

const (
	StageClassification RejectionStage = "CLASSIFICATION"
	StageExtraction     RejectionStage = "EXTRACTION"
	StageValidation     RejectionStage = "VALIDATION"
)

// Rejection is the only hard failure mode process() exposes.
type Rejection struct {
	Reason  string            `json:"reason"`
	Stage   RejectionStage    `json:"stage"`
	Details map[string]string `json:"details,omitempty"`
}

// PipelineResult is the terminal envelope of one process() call. A nil
// Rejection means success; the provenance fields explain the verdict.
type PipelineResult struct {
	Classification *Classification   `json:"classification,omitempty"`
	Extraction     Extraction        `json:"-"`
	Conflicts      *ConflictReport   `json:"conflicts,omitempty"`
	Audit          *AuditReport      `json:"audit,omitempty"`
	Retry          *RetryResult      `json:"retry,omitempty"`
	Judgment       *JudgmentDecision `json:"judgment,omitempty"`
	Rejection      *Rejection        `json:"rejection,omitempty"`
}

func (r PipelineResult) Rejected() bool { return r.Rejection != nil }

func RejectedResult(cls *Classification, stage RejectionStage, reason string, details map[string]string) PipelineResult {
	return PipelineResult{
		Classification: cls,
		Rejection:      &Rejection{Reason: reason, Stage: stage, Details: details},
	}
}
