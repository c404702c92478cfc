package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type FieldKind string

const (
	FieldText       FieldKind = "text"
	FieldAmount     FieldKind = "amount"
	FieldDate       FieldKind = "date"
	FieldIdentifier FieldKind = "identifier"
)

// FieldValue is one salient field in canonical string form. Amounts are
// normalized decimal strings, dates are ISO 8601.
type FieldValue struct {
	Name  string    `json:"name"`
	Kind  FieldKind `json:"kind"`
	Value string    `json:"value"`
}

// Financials is the auditor's view of an extraction: the monetary triple,
// payment identifiers and the classification inputs of the VAT-rate rules.
// Nil pointers mean the field was not present on the document.
type Financials struct {
	Subtotal     *decimal.Decimal
	VATAmount    *decimal.Decimal
	Total        *decimal.Decimal
	IBAN         string
	PaymentRef   string
	VATNumber    string
	Counterparty string
	DocumentDate *time.Time
	Category     string
}

// Extraction is the structured record one extraction tier produced for a
// document. Each document type has its own implementation; the pipeline
// only consumes this interface.
type Extraction interface {
	DocumentType() DocumentType
	ExtractionConfidence() float64
	// SalientFields lists the fields that participate in consensus
	// comparison: amounts, dates, identifiers, counterparty names.
	// Free-text and line-item dumps are excluded.
	SalientFields() []FieldValue
	Financials() Financials
	// MissingEssentials names the essential fields that are absent,
	// in a stable order. Empty means auto-approvable in principle.
	MissingEssentials() []string
}

type LineItem struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Amount      decimal.Decimal `json:"amount"`
}

type InvoiceData struct {
	Type           DocumentType     `json:"type"`
	InvoiceNumber  string           `json:"invoice_number"`
	VendorName     string           `json:"vendor_name"`
	VendorVAT      string           `json:"vendor_vat"`
	IBAN           string           `json:"iban"`
	PaymentRef     string           `json:"payment_ref"`
	IssueDate      *time.Time       `json:"issue_date,omitempty"`
	DueDate        *time.Time       `json:"due_date,omitempty"`
	Subtotal       *decimal.Decimal `json:"subtotal,omitempty"`
	VATAmount      *decimal.Decimal `json:"vat_amount,omitempty"`
	Total          *decimal.Decimal `json:"total,omitempty"`
	Currency       string           `json:"currency"`
	Category       string           `json:"category"`
	LineItems      []LineItem       `json:"line_items,omitempty"`
	Confidence     float64          `json:"confidence"`
}

func (d *InvoiceData) DocumentType() DocumentType {
	if d.Type == "" {
		return DocTypeInvoice
	}
	return d.Type
}

func (d *InvoiceData) ExtractionConfidence() float64 { return d.Confidence }

func (d *InvoiceData) SalientFields() []FieldValue {
	return []FieldValue{
		{Name: "invoiceNumber", Kind: FieldIdentifier, Value: d.InvoiceNumber},
		{Name: "vendorName", Kind: FieldText, Value: d.VendorName},
		{Name: "vendorVat", Kind: FieldIdentifier, Value: d.VendorVAT},
		{Name: "iban", Kind: FieldIdentifier, Value: d.IBAN},
		{Name: "paymentRef", Kind: FieldIdentifier, Value: d.PaymentRef},
		{Name: "issueDate", Kind: FieldDate, Value: formatDate(d.IssueDate)},
		{Name: "dueDate", Kind: FieldDate, Value: formatDate(d.DueDate)},
		{Name: "subtotal", Kind: FieldAmount, Value: formatAmount(d.Subtotal)},
		{Name: "vatAmount", Kind: FieldAmount, Value: formatAmount(d.VATAmount)},
		{Name: "totalAmount", Kind: FieldAmount, Value: formatAmount(d.Total)},
	}
}

func (d *InvoiceData) Financials() Financials {
	return Financials{
		Subtotal:     d.Subtotal,
		VATAmount:    d.VATAmount,
		Total:        d.Total,
		IBAN:         d.IBAN,
		PaymentRef:   d.PaymentRef,
		VATNumber:    d.VendorVAT,
		Counterparty: d.VendorName,
		DocumentDate: d.IssueDate,
		Category:     d.Category,
	}
}

func (d *InvoiceData) MissingEssentials() []string {
	var missing []string
	if d.Total == nil {
		missing = append(missing, "totalAmount")
	}
	if d.VendorName == "" {
		missing = append(missing, "vendorName")
	}
	return missing
}

type BillData struct {
	SupplierName string           `json:"supplier_name"`
	SupplierVAT  string           `json:"supplier_vat"`
	IBAN         string           `json:"iban"`
	PaymentRef   string           `json:"payment_ref"`
	PeriodStart  *time.Time       `json:"period_start,omitempty"`
	PeriodEnd    *time.Time       `json:"period_end,omitempty"`
	DueDate      *time.Time       `json:"due_date,omitempty"`
	Subtotal     *decimal.Decimal `json:"subtotal,omitempty"`
	VATAmount    *decimal.Decimal `json:"vat_amount,omitempty"`
	Total        *decimal.Decimal `json:"total,omitempty"`
	Currency     string           `json:"currency"`
	Category     string           `json:"category"`
	Confidence   float64          `json:"confidence"`
}

func (d *BillData) DocumentType() DocumentType { return DocTypeBill }
func (d *BillData) ExtractionConfidence() float64 { return d.Confidence }

func (d *BillData) SalientFields() []FieldValue {
	return []FieldValue{
		{Name: "supplierName", Kind: FieldText, Value: d.SupplierName},
		{Name: "supplierVat", Kind: FieldIdentifier, Value: d.SupplierVAT},
		{Name: "iban", Kind: FieldIdentifier, Value: d.IBAN},
		{Name: "paymentRef", Kind: FieldIdentifier, Value: d.PaymentRef},
		{Name: "dueDate", Kind: FieldDate, Value: formatDate(d.DueDate)},
		{Name: "subtotal", Kind: FieldAmount, Value: formatAmount(d.Subtotal)},
		{Name: "vatAmount", Kind: FieldAmount, Value: formatAmount(d.VATAmount)},
		{Name: "totalAmount", Kind: FieldAmount, Value: formatAmount(d.Total)},
	}
}

func (d *BillData) Financials() Financials {
	return Financials{
		Subtotal:     d.Subtotal,
		VATAmount:    d.VATAmount,
		Total:        d.Total,
		IBAN:         d.IBAN,
		PaymentRef:   d.PaymentRef,
		VATNumber:    d.SupplierVAT,
		Counterparty: d.SupplierName,
		DocumentDate: d.DueDate,
		Category:     d.Category,
	}
}

func (d *BillData) MissingEssentials() []string {
	var missing []string
	if d.Total == nil {
		missing = append(missing, "totalAmount")
	}
	if d.SupplierName == "" {
		missing = append(missing, "supplierName")
	}
	return missing
}

type ReceiptData struct {
	MerchantName  string           `json:"merchant_name"`
	MerchantVAT   string           `json:"merchant_vat"`
	PurchaseDate  *time.Time       `json:"purchase_date,omitempty"`
	Subtotal      *decimal.Decimal `json:"subtotal,omitempty"`
	VATAmount     *decimal.Decimal `json:"vat_amount,omitempty"`
	Total         *decimal.Decimal `json:"total,omitempty"`
	Currency      string           `json:"currency"`
	PaymentMethod string           `json:"payment_method"`
	Category      string           `json:"category"`
	LineItems     []LineItem       `json:"line_items,omitempty"`
	Confidence    float64          `json:"confidence"`
}

func (d *ReceiptData) DocumentType() DocumentType { return DocTypeReceipt }
func (d *ReceiptData) ExtractionConfidence() float64 { return d.Confidence }

func (d *ReceiptData) SalientFields() []FieldValue {
	return []FieldValue{
		{Name: "merchantName", Kind: FieldText, Value: d.MerchantName},
		{Name: "merchantVat", Kind: FieldIdentifier, Value: d.MerchantVAT},
		{Name: "purchaseDate", Kind: FieldDate, Value: formatDate(d.PurchaseDate)},
		{Name: "subtotal", Kind: FieldAmount, Value: formatAmount(d.Subtotal)},
		{Name: "vatAmount", Kind: FieldAmount, Value: formatAmount(d.VATAmount)},
		{Name: "totalAmount", Kind: FieldAmount, Value: formatAmount(d.Total)},
	}
}

func (d *ReceiptData) Financials() Financials {
	return Financials{
		Subtotal:     d.Subtotal,
		VATAmount:    d.VATAmount,
		Total:        d.Total,
		VATNumber:    d.MerchantVAT,
		Counterparty: d.MerchantName,
		DocumentDate: d.PurchaseDate,
		Category:     d.Category,
	}
}

func (d *ReceiptData) MissingEssentials() []string {
	var missing []string
	if d.Total == nil {
		missing = append(missing, "totalAmount")
	}
	if d.MerchantName == "" {
		missing = append(missing, "merchantName")
	}
	return missing
}

type ExpenseData struct {
	Description string           `json:"description"`
	Claimant    string           `json:"claimant"`
	ExpenseDate *time.Time       `json:"expense_date,omitempty"`
	Subtotal    *decimal.Decimal `json:"subtotal,omitempty"`
	VATAmount   *decimal.Decimal `json:"vat_amount,omitempty"`
	Total       *decimal.Decimal `json:"total,omitempty"`
	Currency    string           `json:"currency"`
	Category    string           `json:"category"`
	Confidence  float64          `json:"confidence"`
}

func (d *ExpenseData) DocumentType() DocumentType { return DocTypeExpense }
func (d *ExpenseData) ExtractionConfidence() float64 { return d.Confidence }

func (d *ExpenseData) SalientFields() []FieldValue {
	return []FieldValue{
		{Name: "description", Kind: FieldText, Value: d.Description},
		{Name: "claimant", Kind: FieldText, Value: d.Claimant},
		{Name: "expenseDate", Kind: FieldDate, Value: formatDate(d.ExpenseDate)},
		{Name: "subtotal", Kind: FieldAmount, Value: formatAmount(d.Subtotal)},
		{Name: "vatAmount", Kind: FieldAmount, Value: formatAmount(d.VATAmount)},
		{Name: "totalAmount", Kind: FieldAmount, Value: formatAmount(d.Total)},
	}
}

func (d *ExpenseData) Financials() Financials {
	return Financials{
		Subtotal:     d.Subtotal,
		VATAmount:    d.VATAmount,
		Total:        d.Total,
		Counterparty: d.Claimant,
		DocumentDate: d.ExpenseDate,
		Category:     d.Category,
	}
}

func (d *ExpenseData) MissingEssentials() []string {
	var missing []string
	if d.Total == nil {
		missing = append(missing, "totalAmount")
	}
	if d.ExpenseDate == nil {
		missing = append(missing, "expenseDate")
	}
	return missing
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatAmount(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}
