package domain

type RetryKind string

const (
	RetryNotNeeded    RetryKind = "NO_RETRY_NEEDED"
	RetryCorrected    RetryKind = "CORRECTED_ON_RETRY"
	RetryStillFailing RetryKind = "STILL_FAILING"
)

// RetryResult is the self-correction loop's terminal state. Corrected and
// StillFailing both carry the extraction the loop ended with; NotNeeded
// carries nothing.
type RetryResult struct {
	Kind              RetryKind    `json:"kind"`
	Data              Extraction   `json:"-"`
	Attempt           int          `json:"attempt,omitempty"`
	Attempts          int          `json:"attempts,omitempty"`
	CorrectedFields   []string     `json:"corrected_fields,omitempty"`
	OriginalFailures  []AuditCheck `json:"original_failures,omitempty"`
	RemainingFailures []AuditCheck `json:"remaining_failures,omitempty"`
}

func NoRetryNeeded() RetryResult {
	return RetryResult{Kind: RetryNotNeeded}
}

func CorrectedOnRetry(data Extraction, attempt int, correctedFields []string, originalFailures []AuditCheck) RetryResult {
	return RetryResult{
		Kind:             RetryCorrected,
		Data:             data,
		Attempt:          attempt,
		CorrectedFields:  correctedFields,
		OriginalFailures: originalFailures,
	}
}

func StillFailing(data Extraction, attempts int, remaining []AuditCheck) RetryResult {
	return RetryResult{
		Kind:              RetryStillFailing,
		Data:              data,
		Attempts:          attempts,
		RemainingFailures: remaining,
	}
}
