package usecase

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
)

// amountEpsilon is the tolerance under which two monetary values are the
// same field value despite formatting variance. Anything beyond it is a
// genuine conflict.
var amountEpsilon = decimal.NewFromFloat(0.01)

// mergeTyped merges two candidate extractions of the same concrete type.
// It walks the salient fields pairwise: a disagreement keeps the expert
// value and is recorded; a gap on one tier is filled from the other tier
// without counting as a conflict. Pure function over its inputs.
func mergeTyped[T any, P interface {
	*T
	domain.Extraction
}](fast, expert P, copiers map[string]func(dst, src *T)) domain.ConsensusResult {
	switch {
	case fast == nil && expert == nil:
		return domain.NoDataConsensus()
	case expert == nil:
		return domain.SingleSourceConsensus(fast)
	case fast == nil:
		return domain.SingleSourceConsensus(expert)
	}

	merged := *(*T)(expert)
	fastFields := fast.SalientFields()
	expertFields := expert.SalientFields()

	var conflicts []domain.FieldConflict
	for i, ef := range expertFields {
		fv := fastFields[i].Value
		ev := ef.Value
		switch {
		case fv == "" && ev == "":
			// neither tier saw the field
		case ev == "":
			if copyField, ok := copiers[ef.Name]; ok {
				copyField(&merged, (*T)(fast))
			}
		case fv == "":
			// expert value already in merged
		default:
			if !fieldValuesEqual(ef.Kind, fv, ev) {
				conflicts = append(conflicts, domain.FieldConflict{
					Field:       ef.Name,
					FastValue:   fv,
					ExpertValue: ev,
					ChosenValue: ev,
					Rationale:   "expert tier preferred on disagreement",
				})
			}
		}
	}

	result := P(&merged)
	if len(conflicts) == 0 {
		return domain.UnanimousConsensus(result)
	}
	return domain.ConflictingConsensus(result, &domain.ConflictReport{Conflicts: conflicts})
}

func fieldValuesEqual(kind domain.FieldKind, a, b string) bool {
	switch kind {
	case domain.FieldAmount:
		da, errA := decimal.NewFromString(a)
		db, errB := decimal.NewFromString(b)
		if errA != nil || errB != nil {
			return strings.TrimSpace(a) == strings.TrimSpace(b)
		}
		return da.Sub(db).Abs().LessThanOrEqual(amountEpsilon)
	case domain.FieldIdentifier:
		return normalizeIdentifier(a) == normalizeIdentifier(b)
	case domain.FieldDate:
		return strings.TrimSpace(a) == strings.TrimSpace(b)
	default:
		return normalizeText(a) == normalizeText(b)
	}
}

func normalizeIdentifier(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		switch r {
		case ' ', '.', '-', '/', '+':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// MergeInvoices reconciles the two invoice-tier candidates. CreditNote and
// ProForma documents share this merge.
func MergeInvoices(fast, expert domain.Extraction) domain.ConsensusResult {
	return mergeTyped[domain.InvoiceData](asConcrete[domain.InvoiceData](fast), asConcrete[domain.InvoiceData](expert), invoiceCopiers)
}

func MergeBills(fast, expert domain.Extraction) domain.ConsensusResult {
	return mergeTyped[domain.BillData](asConcrete[domain.BillData](fast), asConcrete[domain.BillData](expert), billCopiers)
}

func MergeReceipts(fast, expert domain.Extraction) domain.ConsensusResult {
	return mergeTyped[domain.ReceiptData](asConcrete[domain.ReceiptData](fast), asConcrete[domain.ReceiptData](expert), receiptCopiers)
}

func MergeExpenses(fast, expert domain.Extraction) domain.ConsensusResult {
	return mergeTyped[domain.ExpenseData](asConcrete[domain.ExpenseData](fast), asConcrete[domain.ExpenseData](expert), expenseCopiers)
}

func asConcrete[T any](ex domain.Extraction) *T {
	if ex == nil {
		return nil
	}
	// Widen to any first: an interface cannot be asserted directly to a
	// pointer-to-type-parameter.
	v, _ := any(ex).(*T)
	return v
}

var invoiceCopiers = map[string]func(dst, src *domain.InvoiceData){
	"invoiceNumber": func(dst, src *domain.InvoiceData) { dst.InvoiceNumber = src.InvoiceNumber },
	"vendorName":    func(dst, src *domain.InvoiceData) { dst.VendorName = src.VendorName },
	"vendorVat":     func(dst, src *domain.InvoiceData) { dst.VendorVAT = src.VendorVAT },
	"iban":          func(dst, src *domain.InvoiceData) { dst.IBAN = src.IBAN },
	"paymentRef":    func(dst, src *domain.InvoiceData) { dst.PaymentRef = src.PaymentRef },
	"issueDate":     func(dst, src *domain.InvoiceData) { dst.IssueDate = src.IssueDate },
	"dueDate":       func(dst, src *domain.InvoiceData) { dst.DueDate = src.DueDate },
	"subtotal":      func(dst, src *domain.InvoiceData) { dst.Subtotal = src.Subtotal },
	"vatAmount":     func(dst, src *domain.InvoiceData) { dst.VATAmount = src.VATAmount },
	"totalAmount":   func(dst, src *domain.InvoiceData) { dst.Total = src.Total },
}

var billCopiers = map[string]func(dst, src *domain.BillData){
	"supplierName": func(dst, src *domain.BillData) { dst.SupplierName = src.SupplierName },
	"supplierVat":  func(dst, src *domain.BillData) { dst.SupplierVAT = src.SupplierVAT },
	"iban":         func(dst, src *domain.BillData) { dst.IBAN = src.IBAN },
	"paymentRef":   func(dst, src *domain.BillData) { dst.PaymentRef = src.PaymentRef },
	"dueDate":      func(dst, src *domain.BillData) { dst.DueDate = src.DueDate },
	"subtotal":     func(dst, src *domain.BillData) { dst.Subtotal = src.Subtotal },
	"vatAmount":    func(dst, src *domain.BillData) { dst.VATAmount = src.VATAmount },
	"totalAmount":  func(dst, src *domain.BillData) { dst.Total = src.Total },
}

var receiptCopiers = map[string]func(dst, src *domain.ReceiptData){
	"merchantName": func(dst, src *domain.ReceiptData) { dst.MerchantName = src.MerchantName },
	"merchantVat":  func(dst, src *domain.ReceiptData) { dst.MerchantVAT = src.MerchantVAT },
	"purchaseDate": func(dst, src *domain.ReceiptData) { dst.PurchaseDate = src.PurchaseDate },
	"subtotal":     func(dst, src *domain.ReceiptData) { dst.Subtotal = src.Subtotal },
	"vatAmount":    func(dst, src *domain.ReceiptData) { dst.VATAmount = src.VATAmount },
	"totalAmount":  func(dst, src *domain.ReceiptData) { dst.Total = src.Total },
}

var expenseCopiers = map[string]func(dst, src *domain.ExpenseData){
	"description": func(dst, src *domain.ExpenseData) { dst.Description = src.Description },
	"claimant":    func(dst, src *domain.ExpenseData) { dst.Claimant = src.Claimant },
	"expenseDate": func(dst, src *domain.ExpenseData) { dst.ExpenseDate = src.ExpenseDate },
	"subtotal":    func(dst, src *domain.ExpenseData) { dst.Subtotal = src.Subtotal },
	"vatAmount":   func(dst, src *domain.ExpenseData) { dst.VATAmount = src.VATAmount },
	"totalAmount": func(dst, src *domain.ExpenseData) { dst.Total = src.Total },
}

// mergeForType selects the merge function bound to a routed document type.
func mergeForType(docType domain.DocumentType) (func(fast, expert domain.Extraction) domain.ConsensusResult, error) {
	switch docType {
	case domain.DocTypeInvoice, domain.DocTypeCreditNote, domain.DocTypeProForma:
		return MergeInvoices, nil
	case domain.DocTypeBill:
		return MergeBills, nil
	case domain.DocTypeReceipt:
		return MergeReceipts, nil
	case domain.DocTypeExpense:
		return MergeExpenses, nil
	default:
		return nil, fmt.Errorf("no consensus merge for document type %s", docType)
	}
}
