package ollama

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
)

func buildClassificationPrompt(tenant domain.TenantContext) string {
	return fmt.Sprintf(`You classify scanned financial documents for a %s bookkeeping system.
Look at the attached page images and return a strict JSON object with keys:
document_type (one of INVOICE, CREDIT_NOTE, PRO_FORMA, BILL, RECEIPT, EXPENSE, UNKNOWN),
confidence (number from 0 to 1).
No markdown, no extra keys.`, tenant.CountryCode)
}

var extractionFieldSpecs = map[domain.DocumentType]string{
	domain.DocTypeInvoice: `invoice_number (string), vendor_name (string), vendor_vat (string),
iban (string), payment_ref (string, the +++ structured communication if present),
issue_date (YYYY-MM-DD), due_date (YYYY-MM-DD),
subtotal (string decimal), vat_amount (string decimal), total (string decimal),
currency (ISO 4217), category (string, e.g. restaurant, hotel, office),
line_items (array of {description, quantity, unit_price, amount}),
confidence (number from 0 to 1)`,
	domain.DocTypeBill: `supplier_name (string), supplier_vat (string), iban (string),
payment_ref (string), period_start (YYYY-MM-DD), period_end (YYYY-MM-DD),
due_date (YYYY-MM-DD), subtotal (string decimal), vat_amount (string decimal),
total (string decimal), currency (ISO 4217), category (string),
confidence (number from 0 to 1)`,
	domain.DocTypeReceipt: `merchant_name (string), merchant_vat (string),
purchase_date (YYYY-MM-DD), subtotal (string decimal), vat_amount (string decimal),
total (string decimal), currency (ISO 4217), payment_method (string),
category (string), line_items (array of {description, quantity, unit_price, amount}),
confidence (number from 0 to 1)`,
	domain.DocTypeExpense: `description (string), claimant (string),
expense_date (YYYY-MM-DD), subtotal (string decimal), vat_amount (string decimal),
total (string decimal), currency (ISO 4217), category (string),
confidence (number from 0 to 1)`,
}

func buildExtractionPrompt(docType domain.DocumentType) string {
	spec, ok := extractionFieldSpecs[docType]
	if !ok {
		spec = extractionFieldSpecs[domain.DocTypeInvoice]
	}
	return fmt.Sprintf(`You extract structured data from a scanned %s.
Read the attached page images carefully and return a strict JSON object with keys:
%s.
Use empty string for fields not on the document. Amounts keep the document's exact value.
No markdown, no extra keys.`, strings.ToLower(strings.ReplaceAll(string(docType), "_", " ")), spec)
}

func buildCorrectionPrompt(docType domain.DocumentType, current domain.Extraction, report domain.AuditReport) (string, error) {
	currentJSON, err := json.MarshalIndent(current, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal current extraction: %w", err)
	}

	var failures strings.Builder
	for _, check := range report.Checks {
		if check.Status != domain.CheckFailed {
			continue
		}
		failures.WriteString(fmt.Sprintf("- %s on field %s: %s", check.Type, check.Field, check.Message))
		if check.Expected != "" || check.Actual != "" {
			failures.WriteString(fmt.Sprintf(" (expected %s, got %s)", check.Expected, check.Actual))
		}
		if check.Hint != "" {
			failures.WriteString("\n  hint: " + check.Hint)
		}
		failures.WriteString("\n")
	}

	spec := extractionFieldSpecs[docType]
	if spec == "" {
		spec = extractionFieldSpecs[domain.DocTypeInvoice]
	}
	return fmt.Sprintf(`A previous extraction of this scanned document failed validation.
Re-read the attached page images and fix ONLY what the failed checks point at;
keep every other field as extracted.

Previous extraction:
%s

Failed checks:
%s
Return the full corrected record as a strict JSON object with keys:
%s.
No markdown, no extra keys.`, currentJSON, failures.String(), spec), nil
}

func buildJudgmentPrompt(jc domain.JudgmentContext) (string, error) {
	auditJSON, err := json.MarshalIndent(jc.Audit, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal audit report: %w", err)
	}
	conflictsJSON := []byte("null")
	if jc.Conflicts != nil {
		conflictsJSON, err = json.MarshalIndent(jc.Conflicts, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal conflict report: %w", err)
		}
	}

	return fmt.Sprintf(`You are the final reviewer of an automatically processed %s.
Decide whether the extracted data can be posted without a human looking at it.

Extraction confidence: %.2f
Missing essential fields: %s
Retry outcome: %s

Conflict report:
%s

Audit report:
%s

Return a strict JSON object with keys:
outcome (one of AUTO_APPROVE, NEEDS_REVIEW, REJECT),
confidence (number from 0 to 1),
issues (array of short strings for the reviewer, most important first).
Be conservative: prefer NEEDS_REVIEW over AUTO_APPROVE when in doubt.
No markdown, no extra keys.`,
		strings.ToLower(string(jc.DocumentType)),
		jc.ExtractionConfidence,
		strings.Join(jc.MissingEssentials, ", "),
		jc.Retry.Kind,
		conflictsJSON,
		auditJSON,
	), nil
}
