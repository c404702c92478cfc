package domain

// EnsembleResult packages both extraction tiers' outcomes. A tier that
// failed has a nil candidate and a non-nil error; neither tier's failure
// hides the other's result.
type EnsembleResult struct {
	Fast      Extraction
	Expert    Extraction
	FastErr   error
	ExpertErr error
}

func (r EnsembleResult) HasAnyCandidate() bool {
	return r.Fast != nil || r.Expert != nil
}

type ConsensusKind string

const (
	ConsensusNoData        ConsensusKind = "NO_DATA"
	ConsensusSingleSource  ConsensusKind = "SINGLE_SOURCE"
	ConsensusUnanimous     ConsensusKind = "UNANIMOUS"
	ConsensusWithConflicts ConsensusKind = "WITH_CONFLICTS"
)

// FieldConflict records one salient-field disagreement between tiers.
// ChosenValue is what the merged extraction carries.
type FieldConflict struct {
	Field       string `json:"field"`
	FastValue   string `json:"fast_value"`
	ExpertValue string `json:"expert_value"`
	ChosenValue string `json:"chosen_value"`
	Rationale   string `json:"rationale"`
}

type ConflictReport struct {
	Conflicts []FieldConflict `json:"conflicts"`
}

func (r *ConflictReport) HasConflicts() bool {
	return r != nil && len(r.Conflicts) > 0
}

type ConsensusResult struct {
	Kind   ConsensusKind
	Data   Extraction
	Report *ConflictReport
}

func NoDataConsensus() ConsensusResult {
	return ConsensusResult{Kind: ConsensusNoData}
}

func SingleSourceConsensus(data Extraction) ConsensusResult {
	return ConsensusResult{Kind: ConsensusSingleSource, Data: data}
}

func UnanimousConsensus(data Extraction) ConsensusResult {
	return ConsensusResult{Kind: ConsensusUnanimous, Data: data}
}

func ConflictingConsensus(data Extraction, report *ConflictReport) ConsensusResult {
	return ConsensusResult{Kind: ConsensusWithConflicts, Data: data, Report: report}
}
