package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
)

// Classifier assigns a document type from the page images.
type Classifier struct {
	client *Client
	model  string
}

func NewClassifier(client *Client, model string) *Classifier {
	return &Classifier{client: client, model: model}
}

func (c *Classifier) Classify(ctx context.Context, pages []domain.PageImage, tenant domain.TenantContext) (domain.Classification, error) {
	raw, err := c.client.generateJSON(ctx, c.model, buildClassificationPrompt(tenant), pages, "classify")
	if err != nil {
		return domain.Classification{}, err
	}

	var dto struct {
		DocumentType string  `json:"document_type"`
		Confidence   float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &dto); err != nil {
		return domain.Classification{}, fmt.Errorf("parse classification json: %w", err)
	}
	return domain.Classification{
		DocumentType: normalizeDocumentType(dto.DocumentType),
		Confidence:   clampConfidence(dto.Confidence),
	}, nil
}

func normalizeDocumentType(raw string) domain.DocumentType {
	switch domain.DocumentType(strings.ToUpper(strings.TrimSpace(raw))) {
	case domain.DocTypeInvoice:
		return domain.DocTypeInvoice
	case domain.DocTypeCreditNote:
		return domain.DocTypeCreditNote
	case domain.DocTypeProForma:
		return domain.DocTypeProForma
	case domain.DocTypeBill:
		return domain.DocTypeBill
	case domain.DocTypeReceipt:
		return domain.DocTypeReceipt
	case domain.DocTypeExpense:
		return domain.DocTypeExpense
	default:
		return domain.DocTypeUnknown
	}
}

// Extractor is one extraction tier for one document type; the tier is
// just which model it is given.
type Extractor struct {
	client  *Client
	model   string
	docType domain.DocumentType
}

func NewExtractor(client *Client, model string, docType domain.DocumentType) *Extractor {
	return &Extractor{client: client, model: model, docType: docType}
}

func (e *Extractor) Extract(ctx context.Context, pages []domain.PageImage) (domain.Extraction, error) {
	raw, err := e.client.generateJSON(ctx, e.model, buildExtractionPrompt(e.docType), pages, "extract")
	if err != nil {
		return nil, err
	}
	return parseExtraction(e.docType, raw)
}

// Corrector re-extracts with the failing audit checks as targeted
// feedback.
type Corrector struct {
	client  *Client
	model   string
	docType domain.DocumentType
}

func NewCorrector(client *Client, model string, docType domain.DocumentType) *Corrector {
	return &Corrector{client: client, model: model, docType: docType}
}

func (c *Corrector) AttemptCorrection(ctx context.Context, pages []domain.PageImage, current domain.Extraction, report domain.AuditReport) (domain.Extraction, error) {
	prompt, err := buildCorrectionPrompt(c.docType, current, report)
	if err != nil {
		return nil, err
	}
	raw, err := c.client.generateJSON(ctx, c.model, prompt, pages, "correct")
	if err != nil {
		return nil, err
	}
	return parseExtraction(c.docType, raw)
}

// Judge is the optional LLM-backed judgment strategy.
type Judge struct {
	client *Client
	model  string
}

func NewJudge(client *Client, model string) *Judge {
	return &Judge{client: client, model: model}
}

func (j *Judge) Judge(ctx context.Context, jc domain.JudgmentContext) (domain.JudgmentDecision, error) {
	prompt, err := buildJudgmentPrompt(jc)
	if err != nil {
		return domain.JudgmentDecision{}, err
	}
	raw, err := j.client.generateJSON(ctx, j.model, prompt, nil, "judge")
	if err != nil {
		return domain.JudgmentDecision{}, err
	}

	var dto struct {
		Outcome    string   `json:"outcome"`
		Confidence float64  `json:"confidence"`
		Issues     []string `json:"issues"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &dto); err != nil {
		return domain.JudgmentDecision{}, fmt.Errorf("parse judgment json: %w", err)
	}

	outcome := domain.JudgmentOutcome(strings.ToUpper(strings.TrimSpace(dto.Outcome)))
	switch outcome {
	case domain.OutcomeAutoApprove, domain.OutcomeNeedsReview, domain.OutcomeReject:
	default:
		return domain.JudgmentDecision{}, fmt.Errorf("model returned unknown outcome %q", dto.Outcome)
	}
	return domain.JudgmentDecision{
		Outcome:    outcome,
		Confidence: clampConfidence(dto.Confidence),
		Issues:     dto.Issues,
	}, nil
}
