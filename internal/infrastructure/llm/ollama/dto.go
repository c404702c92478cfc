package ollama

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
)

// flexString absorbs the model returning either a JSON string or a bare
// number for amount fields.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	*f = flexString(string(data))
	return nil
}

type lineItemDTO struct {
	Description string     `json:"description"`
	Quantity    flexString `json:"quantity"`
	UnitPrice   flexString `json:"unit_price"`
	Amount      flexString `json:"amount"`
}

type invoiceDTO struct {
	InvoiceNumber string        `json:"invoice_number"`
	VendorName    string        `json:"vendor_name"`
	VendorVAT     string        `json:"vendor_vat"`
	IBAN          string        `json:"iban"`
	PaymentRef    string        `json:"payment_ref"`
	IssueDate     string        `json:"issue_date"`
	DueDate       string        `json:"due_date"`
	Subtotal      flexString    `json:"subtotal"`
	VATAmount     flexString    `json:"vat_amount"`
	Total         flexString    `json:"total"`
	Currency      string        `json:"currency"`
	Category      string        `json:"category"`
	LineItems     []lineItemDTO `json:"line_items"`
	Confidence    float64       `json:"confidence"`
}

type billDTO struct {
	SupplierName string     `json:"supplier_name"`
	SupplierVAT  string     `json:"supplier_vat"`
	IBAN         string     `json:"iban"`
	PaymentRef   string     `json:"payment_ref"`
	PeriodStart  string     `json:"period_start"`
	PeriodEnd    string     `json:"period_end"`
	DueDate      string     `json:"due_date"`
	Subtotal     flexString `json:"subtotal"`
	VATAmount    flexString `json:"vat_amount"`
	Total        flexString `json:"total"`
	Currency     string     `json:"currency"`
	Category     string     `json:"category"`
	Confidence   float64    `json:"confidence"`
}

type receiptDTO struct {
	MerchantName  string        `json:"merchant_name"`
	MerchantVAT   string        `json:"merchant_vat"`
	PurchaseDate  string        `json:"purchase_date"`
	Subtotal      flexString    `json:"subtotal"`
	VATAmount     flexString    `json:"vat_amount"`
	Total         flexString    `json:"total"`
	Currency      string        `json:"currency"`
	PaymentMethod string        `json:"payment_method"`
	Category      string        `json:"category"`
	LineItems     []lineItemDTO `json:"line_items"`
	Confidence    float64       `json:"confidence"`
}

type expenseDTO struct {
	Description string     `json:"description"`
	Claimant    string     `json:"claimant"`
	ExpenseDate string     `json:"expense_date"`
	Subtotal    flexString `json:"subtotal"`
	VATAmount   flexString `json:"vat_amount"`
	Total       flexString `json:"total"`
	Currency    string     `json:"currency"`
	Category    string     `json:"category"`
	Confidence  float64    `json:"confidence"`
}

func parseExtraction(docType domain.DocumentType, raw string) (domain.Extraction, error) {
	payload := []byte(extractJSONObject(raw))
	switch docType {
	case domain.DocTypeBill:
		var dto billDTO
		if err := json.Unmarshal(payload, &dto); err != nil {
			return nil, fmt.Errorf("parse bill json: %w", err)
		}
		return &domain.BillData{
			SupplierName: dto.SupplierName,
			SupplierVAT:  dto.SupplierVAT,
			IBAN:         dto.IBAN,
			PaymentRef:   dto.PaymentRef,
			PeriodStart:  parseDatePtr(dto.PeriodStart),
			PeriodEnd:    parseDatePtr(dto.PeriodEnd),
			DueDate:      parseDatePtr(dto.DueDate),
			Subtotal:     parseAmountPtr(dto.Subtotal),
			VATAmount:    parseAmountPtr(dto.VATAmount),
			Total:        parseAmountPtr(dto.Total),
			Currency:     dto.Currency,
			Category:     dto.Category,
			Confidence:   clampConfidence(dto.Confidence),
		}, nil
	case domain.DocTypeReceipt:
		var dto receiptDTO
		if err := json.Unmarshal(payload, &dto); err != nil {
			return nil, fmt.Errorf("parse receipt json: %w", err)
		}
		return &domain.ReceiptData{
			MerchantName:  dto.MerchantName,
			MerchantVAT:   dto.MerchantVAT,
			PurchaseDate:  parseDatePtr(dto.PurchaseDate),
			Subtotal:      parseAmountPtr(dto.Subtotal),
			VATAmount:     parseAmountPtr(dto.VATAmount),
			Total:         parseAmountPtr(dto.Total),
			Currency:      dto.Currency,
			PaymentMethod: dto.PaymentMethod,
			Category:      dto.Category,
			LineItems:     parseLineItems(dto.LineItems),
			Confidence:    clampConfidence(dto.Confidence),
		}, nil
	case domain.DocTypeExpense:
		var dto expenseDTO
		if err := json.Unmarshal(payload, &dto); err != nil {
			return nil, fmt.Errorf("parse expense json: %w", err)
		}
		return &domain.ExpenseData{
			Description: dto.Description,
			Claimant:    dto.Claimant,
			ExpenseDate: parseDatePtr(dto.ExpenseDate),
			Subtotal:    parseAmountPtr(dto.Subtotal),
			VATAmount:   parseAmountPtr(dto.VATAmount),
			Total:       parseAmountPtr(dto.Total),
			Currency:    dto.Currency,
			Category:    dto.Category,
			Confidence:  clampConfidence(dto.Confidence),
		}, nil
	default:
		var dto invoiceDTO
		if err := json.Unmarshal(payload, &dto); err != nil {
			return nil, fmt.Errorf("parse invoice json: %w", err)
		}
		return &domain.InvoiceData{
			Type:          docType,
			InvoiceNumber: dto.InvoiceNumber,
			VendorName:    dto.VendorName,
			VendorVAT:     dto.VendorVAT,
			IBAN:          dto.IBAN,
			PaymentRef:    dto.PaymentRef,
			IssueDate:     parseDatePtr(dto.IssueDate),
			DueDate:       parseDatePtr(dto.DueDate),
			Subtotal:      parseAmountPtr(dto.Subtotal),
			VATAmount:     parseAmountPtr(dto.VATAmount),
			Total:         parseAmountPtr(dto.Total),
			Currency:      dto.Currency,
			Category:      dto.Category,
			LineItems:     parseLineItems(dto.LineItems),
			Confidence:    clampConfidence(dto.Confidence),
		}, nil
	}
}

func parseLineItems(dtos []lineItemDTO) []domain.LineItem {
	if len(dtos) == 0 {
		return nil
	}
	items := make([]domain.LineItem, 0, len(dtos))
	for _, dto := range dtos {
		items = append(items, domain.LineItem{
			Description: dto.Description,
			Quantity:    parseAmount(dto.Quantity),
			UnitPrice:   parseAmount(dto.UnitPrice),
			Amount:      parseAmount(dto.Amount),
		})
	}
	return items
}

func parseAmountPtr(s flexString) *decimal.Decimal {
	if strings.TrimSpace(string(s)) == "" {
		return nil
	}
	d, err := decimal.NewFromString(normalizeDecimalSeparator(string(s)))
	if err != nil {
		return nil
	}
	return &d
}

func parseAmount(s flexString) decimal.Decimal {
	if d := parseAmountPtr(s); d != nil {
		return *d
	}
	return decimal.Zero
}

// normalizeDecimalSeparator accepts European formatting ("1.234,56").
func normalizeDecimalSeparator(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	return s
}

func parseDatePtr(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006", "02-01-2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func clampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
