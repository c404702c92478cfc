package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
	"github.com/jverhaegen/ledgerpilot/internal/core/ports"
)

// PipelineOptions is the read-only configuration bound at construction.
type PipelineOptions struct {
	EnsembleEnabled       bool
	ParallelExtraction    bool
	SelfCorrectionEnabled bool
	UseLLMJudge           bool
	FailFastUnknown       bool
	ClassificationFloor   float64
	ConfidenceFloor       float64
	MaxRetries            int
}

// AgentBundle holds the per-type extraction collaborators. Any slot may be
// nil; the coordinator treats an unusable bundle as a configuration error.
type AgentBundle struct {
	Fast      ports.ExtractionAgent
	Expert    ports.ExtractionAgent
	Corrector ports.CorrectionAgent
}

// StrategyTable binds one bundle per document type up front. Invoice,
// credit note and pro-forma documents share the invoice bundle.
type StrategyTable struct {
	Invoice AgentBundle
	Bill    AgentBundle
	Receipt AgentBundle
	Expense AgentBundle
}

// AutonomousPipeline sequences the five stages: classify, extract,
// reconcile, audit (with self-correction), judge. It holds no per-call
// state; every Process invocation works on fresh values.
type AutonomousPipeline struct {
	opts       PipelineOptions
	classifier ports.Classifier
	strategies StrategyTable
	auditor    *Auditor
	corrector  *SelfCorrector
	judge      *RuleJudge
	llmJudge   ports.JudgmentModel
}

func NewAutonomousPipeline(
	opts PipelineOptions,
	classifier ports.Classifier,
	strategies StrategyTable,
	auditor *Auditor,
	llmJudge ports.JudgmentModel,
) *AutonomousPipeline {
	return &AutonomousPipeline{
		opts:       opts,
		classifier: classifier,
		strategies: strategies,
		auditor:    auditor,
		corrector:  NewSelfCorrector(opts.MaxRetries, opts.SelfCorrectionEnabled),
		judge:      NewRuleJudge(opts.ConfidenceFloor),
		llmJudge:   llmJudge,
	}
}

// Process runs the full pipeline over one document. Collaborator failures
// resolve to a Rejection in the envelope; the returned error is reserved
// for caller cancellation and invalid input.
func (p *AutonomousPipeline) Process(ctx context.Context, pages []domain.PageImage, tenant domain.TenantContext) (domain.PipelineResult, error) {
	if len(pages) == 0 {
		return domain.PipelineResult{}, domain.WrapError(domain.ErrInvalidInput, "process document", errors.New("no pages"))
	}

	cls, err := p.classifier.Classify(ctx, pages, tenant)
	if err != nil {
		if ctx.Err() != nil {
			return domain.PipelineResult{}, ctx.Err()
		}
		return domain.RejectedResult(nil, domain.StageClassification, "document classification failed", map[string]string{
			"error": err.Error(),
		}), nil
	}
	classification := &cls

	slog.Info("document_classified",
		"tenant_id", tenant.TenantID,
		"document_type", cls.DocumentType,
		"confidence", cls.Confidence,
	)

	if cls.Confidence < p.opts.ClassificationFloor {
		return domain.RejectedResult(classification, domain.StageClassification, "classification confidence below threshold", map[string]string{
			"confidence": fmt.Sprintf("%.2f", cls.Confidence),
			"threshold":  fmt.Sprintf("%.2f", p.opts.ClassificationFloor),
		}), nil
	}
	if cls.DocumentType == domain.DocTypeUnknown && p.opts.FailFastUnknown {
		return domain.RejectedResult(classification, domain.StageClassification, "unrecognized document type", nil), nil
	}

	routed := cls.DocumentType
	if routed == domain.DocTypeUnknown {
		// Without fail-fast an unknown scan takes the widest path.
		routed = domain.DocTypeInvoice
	}
	bundle := p.route(routed)
	merge, err := mergeForType(routed)
	if err != nil {
		return domain.RejectedResult(classification, domain.StageExtraction, "no pipeline for document type", map[string]string{
			"document_type": string(routed),
		}), nil
	}

	ens, configErr := p.extractCandidates(ctx, bundle, pages)
	if configErr != nil {
		return domain.RejectedResult(classification, domain.StageExtraction, "no extraction agent configured for document type", map[string]string{
			"document_type": string(routed),
		}), nil
	}
	if ctx.Err() != nil {
		return domain.PipelineResult{}, ctx.Err()
	}
	if !ens.HasAnyCandidate() {
		details := map[string]string{}
		if ens.FastErr != nil {
			details["fast_error"] = ens.FastErr.Error()
		}
		if ens.ExpertErr != nil {
			details["expert_error"] = ens.ExpertErr.Error()
		}
		return domain.RejectedResult(classification, domain.StageExtraction, "extraction failed on all tiers", details), nil
	}

	cons := merge(ens.Fast, ens.Expert)
	if cons.Kind == domain.ConsensusNoData {
		return domain.RejectedResult(classification, domain.StageExtraction, "consensus produced no data", nil), nil
	}

	report := p.auditor.Audit(ctx, cons.Data, tenant)
	reaudit := func(ctx context.Context, ex domain.Extraction) domain.AuditReport {
		return p.auditor.Audit(ctx, ex, tenant)
	}
	retry, finalReport, finalExtraction := p.corrector.Run(ctx, bundle.Corrector, pages, cons.Data, report, reaudit)
	if ctx.Err() != nil {
		return domain.PipelineResult{}, ctx.Err()
	}

	jc := domain.JudgmentContext{
		DocumentType:         routed,
		ExtractionConfidence: finalExtraction.ExtractionConfidence(),
		MissingEssentials:    finalExtraction.MissingEssentials(),
		Conflicts:            cons.Report,
		Audit:                finalReport,
		Retry:                retry,
	}
	decision := p.decide(ctx, jc)

	slog.Info("document_judged",
		"tenant_id", tenant.TenantID,
		"document_type", routed,
		"consensus", cons.Kind,
		"audit_status", finalReport.OverallStatus,
		"retry", retry.Kind,
		"outcome", decision.Outcome,
	)

	return domain.PipelineResult{
		Classification: classification,
		Extraction:     finalExtraction,
		Conflicts:      cons.Report,
		Audit:          &finalReport,
		Retry:          &retry,
		Judgment:       &decision,
	}, nil
}

func (p *AutonomousPipeline) route(docType domain.DocumentType) AgentBundle {
	switch docType {
	case domain.DocTypeBill:
		return p.strategies.Bill
	case domain.DocTypeReceipt:
		return p.strategies.Receipt
	case domain.DocTypeExpense:
		return p.strategies.Expense
	default:
		return p.strategies.Invoice
	}
}

// extractCandidates honors the ensemble toggles. With the ensemble off the
// expert agent runs alone, falling back to the fast agent only when no
// expert is configured; neither agent configured is a configuration error,
// not an extraction failure.
func (p *AutonomousPipeline) extractCandidates(ctx context.Context, bundle AgentBundle, pages []domain.PageImage) (domain.EnsembleResult, error) {
	if bundle.Fast == nil && bundle.Expert == nil {
		return domain.EnsembleResult{}, domain.ErrNoAgentConfigured
	}

	if p.opts.EnsembleEnabled {
		return runEnsemble(ctx, bundle.Fast, bundle.Expert, pages, p.opts.ParallelExtraction), nil
	}

	var result domain.EnsembleResult
	if bundle.Expert != nil {
		result.Expert, result.ExpertErr = bundle.Expert.Extract(ctx, pages)
	} else {
		result.Fast, result.FastErr = bundle.Fast.Extract(ctx, pages)
	}
	return result, nil
}

// decide applies the rule judge and, when enabled, lets the LLM judge
// refine ambiguous NEEDS_REVIEW outcomes. Missing essential fields always
// stand; an LLM failure leaves the rule decision in place.
func (p *AutonomousPipeline) decide(ctx context.Context, jc domain.JudgmentContext) domain.JudgmentDecision {
	decision := p.judge.Judge(jc)
	if !p.opts.UseLLMJudge || p.llmJudge == nil {
		return decision
	}
	if decision.Outcome != domain.OutcomeNeedsReview || len(jc.MissingEssentials) > 0 {
		return decision
	}

	refined, err := p.llmJudge.Judge(ctx, jc)
	if err != nil {
		slog.Warn("llm_judge_failed", "error", err)
		return decision
	}
	if len(refined.Issues) == 0 {
		refined.Issues = decision.Issues
	}
	return refined
}
