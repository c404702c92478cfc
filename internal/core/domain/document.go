package domain

import "time"

type DocumentType string

const (
	DocTypeInvoice    DocumentType = "INVOICE"
	DocTypeCreditNote DocumentType = "CREDIT_NOTE"
	DocTypeProForma   DocumentType = "PRO_FORMA"
	DocTypeBill       DocumentType = "BILL"
	DocTypeReceipt    DocumentType = "RECEIPT"
	DocTypeExpense    DocumentType = "EXPENSE"
	DocTypeUnknown    DocumentType = "UNKNOWN"
)

type DocumentStatus string

const (
	StatusReceived     DocumentStatus = "received"
	StatusProcessing   DocumentStatus = "processing"
	StatusAutoApproved DocumentStatus = "auto_approved"
	StatusNeedsReview  DocumentStatus = "needs_review"
	StatusRejected     DocumentStatus = "rejected"
	StatusFailed       DocumentStatus = "failed"
)

// PageImage references one scanned page in object storage. The pipeline
// never holds raw image bytes; collaborators load them by key.
type PageImage struct {
	Index      int    `json:"index"`
	StorageKey string `json:"storage_key"`
	MediaType  string `json:"media_type"`
}

type ScannedDocument struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	Country   string         `json:"country_code"`
	Filename  string         `json:"filename"`
	MimeType  string         `json:"mime_type"`
	Pages     []PageImage    `json:"pages"`
	Status    DocumentStatus `json:"status"`
	Error     string         `json:"error,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// TenantContext carries the caller's jurisdiction into the pipeline.
type TenantContext struct {
	TenantID    string `json:"tenant_id"`
	CountryCode string `json:"country_code"`
}

type Classification struct {
	DocumentType DocumentType `json:"document_type"`
	Confidence   float64      `json:"confidence"`
}
