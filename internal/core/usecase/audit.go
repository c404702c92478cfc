package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
	"github.com/jverhaegen/ledgerpilot/internal/core/ports"
)

// mathTolerance absorbs rounding differences in subtotal + VAT = total.
var mathTolerance = decimal.NewFromFloat(0.01)

// Auditor runs the domain-validation battery against a merged extraction.
// Checks are independent; auditing is idempotent and the registry checks
// are the only ones that touch the network.
type Auditor struct {
	rules           *VATRules
	registry        ports.RegistryLookup
	externalEnabled bool
}

func NewAuditor(rules *VATRules, registry ports.RegistryLookup, externalEnabled bool) *Auditor {
	return &Auditor{
		rules:           rules,
		registry:        registry,
		externalEnabled: externalEnabled,
	}
}

// Audit dispatches to the per-type check composition.
func (a *Auditor) Audit(ctx context.Context, ex domain.Extraction, tenant domain.TenantContext) domain.AuditReport {
	switch ex.DocumentType() {
	case domain.DocTypeBill:
		return a.AuditBill(ctx, ex, tenant)
	case domain.DocTypeReceipt:
		return a.AuditReceipt(ctx, ex, tenant)
	case domain.DocTypeExpense:
		return a.AuditExpense(ctx, ex, tenant)
	default:
		return a.AuditInvoice(ctx, ex, tenant)
	}
}

func (a *Auditor) AuditInvoice(ctx context.Context, ex domain.Extraction, tenant domain.TenantContext) domain.AuditReport {
	fin := ex.Financials()
	checks := []domain.AuditCheck{
		checkArithmetic(fin),
		checkIBANChecksum(fin),
		checkOGMChecksum(fin),
		a.checkVATRate(fin, tenant),
	}
	checks = append(checks, a.registryChecks(ctx, fin)...)
	return domain.NewAuditReport(checks)
}

func (a *Auditor) AuditBill(ctx context.Context, ex domain.Extraction, tenant domain.TenantContext) domain.AuditReport {
	fin := ex.Financials()
	checks := []domain.AuditCheck{
		checkArithmetic(fin),
		checkIBANChecksum(fin),
		checkOGMChecksum(fin),
		a.checkVATRate(fin, tenant),
	}
	checks = append(checks, a.registryChecks(ctx, fin)...)
	return domain.NewAuditReport(checks)
}

func (a *Auditor) AuditReceipt(ctx context.Context, ex domain.Extraction, tenant domain.TenantContext) domain.AuditReport {
	fin := ex.Financials()
	checks := []domain.AuditCheck{
		checkArithmetic(fin),
		a.checkVATRate(fin, tenant),
	}
	checks = append(checks, a.registryChecks(ctx, fin)...)
	return domain.NewAuditReport(checks)
}

func (a *Auditor) AuditExpense(ctx context.Context, ex domain.Extraction, tenant domain.TenantContext) domain.AuditReport {
	fin := ex.Financials()
	checks := []domain.AuditCheck{
		checkArithmetic(fin),
		a.checkVATRate(fin, tenant),
	}
	return domain.NewAuditReport(checks)
}

func checkArithmetic(fin domain.Financials) domain.AuditCheck {
	check := domain.AuditCheck{Type: domain.CheckMath, Field: "totalAmount"}
	if fin.Subtotal == nil || fin.VATAmount == nil || fin.Total == nil {
		check.Status = domain.CheckIncomplete
		check.Message = "subtotal, VAT amount and total are all required for the arithmetic check"
		return check
	}

	expected := fin.Subtotal.Add(*fin.VATAmount)
	if expected.Sub(*fin.Total).Abs().LessThanOrEqual(mathTolerance) {
		check.Status = domain.CheckPassed
		check.Message = "subtotal + VAT equals total"
		return check
	}

	check.Status = domain.CheckFailed
	check.Message = "subtotal + VAT does not equal total"
	check.Expected = expected.StringFixed(2)
	check.Actual = fin.Total.StringFixed(2)
	check.Hint = fmt.Sprintf(
		"subtotal %s + VAT %s = %s, document states %s; one of the three amounts was misread",
		fin.Subtotal.StringFixed(2), fin.VATAmount.StringFixed(2), expected.StringFixed(2), fin.Total.StringFixed(2),
	)
	return check
}

func checkIBANChecksum(fin domain.Financials) domain.AuditCheck {
	check := domain.AuditCheck{Type: domain.CheckIBAN, Field: "iban"}
	if strings.TrimSpace(fin.IBAN) == "" {
		check.Status = domain.CheckIncomplete
		check.Message = "no IBAN on document"
		return check
	}
	if validIBAN(fin.IBAN) {
		check.Status = domain.CheckPassed
		check.Message = "IBAN mod-97 checksum valid"
		return check
	}
	check.Status = domain.CheckFailed
	check.Message = "IBAN mod-97 checksum invalid"
	check.Actual = fin.IBAN
	check.Hint = "one or more IBAN characters were likely misread; re-read the account number digits"
	return check
}

func checkOGMChecksum(fin domain.Financials) domain.AuditCheck {
	check := domain.AuditCheck{Type: domain.CheckOGM, Field: "paymentRef"}
	if strings.TrimSpace(fin.PaymentRef) == "" {
		check.Status = domain.CheckIncomplete
		check.Message = "no structured payment reference on document"
		return check
	}
	if validOGM(fin.PaymentRef) {
		check.Status = domain.CheckPassed
		check.Message = "structured reference mod-97 checksum valid"
		return check
	}
	check.Status = domain.CheckFailed
	check.Message = "structured reference mod-97 checksum invalid"
	check.Actual = fin.PaymentRef
	check.Hint = "structured references are 12 digits where the last two are the first ten mod 97; re-read the +++ block"
	return check
}

func (a *Auditor) checkVATRate(fin domain.Financials, tenant domain.TenantContext) domain.AuditCheck {
	check := domain.AuditCheck{Type: domain.CheckVATRate, Field: "vatAmount"}
	if fin.Subtotal == nil || fin.VATAmount == nil || fin.Subtotal.IsZero() {
		check.Status = domain.CheckIncomplete
		check.Message = "subtotal and VAT amount are required to derive the VAT rate"
		return check
	}

	implied := fin.VATAmount.Div(*fin.Subtotal).Mul(decimal.NewFromInt(10000)).Round(0).IntPart()
	verdict := a.rules.Evaluate(tenant.CountryCode, implied, fin.Category, fin.DocumentDate)
	switch {
	case verdict.Matched:
		check.Status = domain.CheckPassed
		check.Message = verdict.Message
		check.Actual = fmt.Sprintf("%d bp", implied)
	case !verdict.Known:
		check.Status = domain.CheckIncomplete
		check.Message = "VAT rate not validated"
		check.Hint = verdict.Hint
	default:
		check.Status = domain.CheckWarning
		check.Message = fmt.Sprintf("implied VAT rate %d bp matches no standard rate", implied)
		check.Actual = fmt.Sprintf("%d bp", implied)
		check.Hint = verdict.Hint
	}
	return check
}

// registryChecks consults the business registry once and derives both the
// company-exists and the name-match checks from the single lookup. These
// are advisory: unreachable or disabled maps to incomplete, and failures
// never count as critical.
func (a *Auditor) registryChecks(ctx context.Context, fin domain.Financials) []domain.AuditCheck {
	exists := domain.AuditCheck{Type: domain.CheckCompanyExists, Field: "vatNumber"}
	name := domain.AuditCheck{Type: domain.CheckCompanyName, Field: "counterpartyName"}

	if !a.externalEnabled || a.registry == nil {
		exists.Status = domain.CheckIncomplete
		exists.Message = "external validation disabled"
		name.Status = domain.CheckIncomplete
		name.Message = "external validation disabled"
		return []domain.AuditCheck{exists, name}
	}
	if strings.TrimSpace(fin.VATNumber) == "" {
		exists.Status = domain.CheckIncomplete
		exists.Message = "no VAT number on document"
		name.Status = domain.CheckIncomplete
		name.Message = "no VAT number on document"
		return []domain.AuditCheck{exists, name}
	}

	entity, err := a.registry.SearchByVAT(ctx, fin.VATNumber)
	switch {
	case domain.IsKind(err, domain.ErrCompanyNotFound):
		exists.Status = domain.CheckFailed
		exists.Message = fmt.Sprintf("VAT number %s not found in business registry", fin.VATNumber)
		exists.Actual = fin.VATNumber
		name.Status = domain.CheckIncomplete
		name.Message = "company not found, name not compared"
		return []domain.AuditCheck{exists, name}
	case err != nil:
		exists.Status = domain.CheckIncomplete
		exists.Message = "business registry unreachable"
		name.Status = domain.CheckIncomplete
		name.Message = "business registry unreachable"
		return []domain.AuditCheck{exists, name}
	}

	exists.Status = domain.CheckPassed
	exists.Message = fmt.Sprintf("VAT number %s registered to %s", entity.VATNumber, entity.LegalName)

	if companyNamesMatch(fin.Counterparty, entity.LegalName) {
		name.Status = domain.CheckPassed
		name.Message = "extracted counterparty matches registered legal name"
	} else {
		name.Status = domain.CheckFailed
		name.Message = "extracted counterparty does not match registered legal name"
		name.Expected = entity.LegalName
		name.Actual = fin.Counterparty
		name.Hint = "the counterparty name may belong to a trade name or a different entity"
	}
	return []domain.AuditCheck{exists, name}
}

var legalFormTokens = map[string]struct{}{
	"bv": {}, "nv": {}, "bvba": {}, "cvba": {}, "vof": {},
	"sprl": {}, "sa": {}, "srl": {}, "gmbh": {}, "ltd": {}, "llc": {},
}

func companyNamesMatch(extracted, registered string) bool {
	return stripLegalForm(extracted) == stripLegalForm(registered)
}

func stripLegalForm(name string) string {
	fields := strings.Fields(strings.ToLower(name))
	kept := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,()")
		if _, ok := legalFormTokens[f]; ok {
			continue
		}
		if f != "" {
			kept = append(kept, f)
		}
	}
	return strings.Join(kept, " ")
}
