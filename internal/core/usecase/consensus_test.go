package usecase

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
)

func dec(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func sampleInvoice() *domain.InvoiceData {
	return &domain.InvoiceData{
		InvoiceNumber: "F2024-001",
		VendorName:    "Acme BV",
		VendorVAT:     "BE0123456789",
		IBAN:          "BE71096123456769",
		PaymentRef:    "+++090/9337/55493+++",
		IssueDate:     datePtr("2024-03-01"),
		Subtotal:      dec("100.00"),
		VATAmount:     dec("21.00"),
		Total:         dec("121.00"),
		Currency:      "EUR",
		Confidence:    0.9,
	}
}

func TestMergeInvoicesNoData(t *testing.T) {
	got := MergeInvoices(nil, nil)
	if got.Kind != domain.ConsensusNoData {
		t.Fatalf("kind = %s, want %s", got.Kind, domain.ConsensusNoData)
	}
}

func TestMergeInvoicesSingleSource(t *testing.T) {
	expert := sampleInvoice()

	got := MergeInvoices(nil, expert)
	if got.Kind != domain.ConsensusSingleSource {
		t.Fatalf("kind = %s, want %s", got.Kind, domain.ConsensusSingleSource)
	}
	if got.Data != domain.Extraction(expert) {
		t.Fatalf("single source must pass the surviving candidate through")
	}

	got = MergeInvoices(expert, nil)
	if got.Kind != domain.ConsensusSingleSource {
		t.Fatalf("kind = %s, want %s", got.Kind, domain.ConsensusSingleSource)
	}
}

func TestMergeInvoicesIgnoresForeignExtractionType(t *testing.T) {
	expert := sampleInvoice()
	stray := &domain.BillData{SupplierName: "Utility NV", Total: dec("80.00")}

	got := MergeInvoices(stray, expert)
	if got.Kind != domain.ConsensusSingleSource {
		t.Fatalf("kind = %s, want %s", got.Kind, domain.ConsensusSingleSource)
	}
	if got.Data != domain.Extraction(expert) {
		t.Fatalf("expert candidate must survive a mistyped fast candidate")
	}

	if got := MergeInvoices(stray, nil); got.Kind != domain.ConsensusNoData {
		t.Fatalf("kind = %s, want %s", got.Kind, domain.ConsensusNoData)
	}
}

func TestMergeInvoicesUnanimousDespiteFormatting(t *testing.T) {
	fast := sampleInvoice()
	expert := sampleInvoice()
	fast.IBAN = "BE71 0961 2345 6769"
	fast.PaymentRef = "090933755493"
	fast.VendorName = "  acme   bv "

	got := MergeInvoices(fast, expert)
	if got.Kind != domain.ConsensusUnanimous {
		t.Fatalf("kind = %s, want %s (conflicts: %+v)", got.Kind, domain.ConsensusUnanimous, got.Report)
	}
	if got.Report.HasConflicts() {
		t.Fatalf("unexpected conflicts: %+v", got.Report)
	}
}

func TestMergeInvoicesAmountEpsilon(t *testing.T) {
	fast := sampleInvoice()
	expert := sampleInvoice()
	fast.Total = dec("121.01")

	got := MergeInvoices(fast, expert)
	if got.Kind != domain.ConsensusUnanimous {
		t.Fatalf("0.01 difference is within epsilon, got %s", got.Kind)
	}

	fast.Total = dec("121.02")
	got = MergeInvoices(fast, expert)
	if got.Kind != domain.ConsensusWithConflicts {
		t.Fatalf("0.02 difference must conflict, got %s", got.Kind)
	}
}

func TestMergeInvoicesConflictPrefersExpert(t *testing.T) {
	fast := sampleInvoice()
	expert := sampleInvoice()
	fast.Total = dec("112.00")

	got := MergeInvoices(fast, expert)
	if got.Kind != domain.ConsensusWithConflicts {
		t.Fatalf("kind = %s, want %s", got.Kind, domain.ConsensusWithConflicts)
	}
	if len(got.Report.Conflicts) != 1 {
		t.Fatalf("conflicts = %+v, want exactly one", got.Report.Conflicts)
	}

	c := got.Report.Conflicts[0]
	if c.Field != "totalAmount" {
		t.Fatalf("conflict field = %q", c.Field)
	}
	if c.ChosenValue != c.ExpertValue {
		t.Fatalf("chosen %q, expert %q: expert must win", c.ChosenValue, c.ExpertValue)
	}

	merged := got.Data.(*domain.InvoiceData)
	if !merged.Total.Equal(*expert.Total) {
		t.Fatalf("merged total = %s, want expert %s", merged.Total, expert.Total)
	}
}

func TestMergeInvoicesGapFillIsNotAConflict(t *testing.T) {
	fast := sampleInvoice()
	expert := sampleInvoice()
	expert.IBAN = ""
	expert.PaymentRef = ""

	got := MergeInvoices(fast, expert)
	if got.Kind != domain.ConsensusUnanimous {
		t.Fatalf("gap fill must not count as conflict, got %s: %+v", got.Kind, got.Report)
	}

	merged := got.Data.(*domain.InvoiceData)
	if merged.IBAN != fast.IBAN {
		t.Fatalf("merged IBAN = %q, want fast value %q", merged.IBAN, fast.IBAN)
	}
	if merged.PaymentRef != fast.PaymentRef {
		t.Fatalf("merged payment ref = %q, want fast value %q", merged.PaymentRef, fast.PaymentRef)
	}
}

func TestMergeInvoicesDoesNotMutateInputs(t *testing.T) {
	fast := sampleInvoice()
	expert := sampleInvoice()
	expert.IBAN = ""
	fastBefore := *fast
	expertBefore := *expert

	_ = MergeInvoices(fast, expert)

	if diff := cmp.Diff(fastBefore, *fast); diff != "" {
		t.Fatalf("fast candidate mutated (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(expertBefore, *expert); diff != "" {
		t.Fatalf("expert candidate mutated (-want +got):\n%s", diff)
	}
}

func TestMergeInvoicesDeterministic(t *testing.T) {
	fast := sampleInvoice()
	expert := sampleInvoice()
	fast.Total = dec("112.00")
	expert.IBAN = ""

	first := MergeInvoices(fast, expert)
	for i := 0; i < 10; i++ {
		got := MergeInvoices(fast, expert)
		if got.Kind != first.Kind {
			t.Fatalf("run %d: kind %s != %s", i, got.Kind, first.Kind)
		}
		if diff := cmp.Diff(first.Report, got.Report); diff != "" {
			t.Fatalf("run %d report differs (-first +got):\n%s", i, diff)
		}
	}
}

func TestMergeBillsConflict(t *testing.T) {
	fast := &domain.BillData{SupplierName: "Proximus NV", Total: dec("55.00"), Confidence: 0.8}
	expert := &domain.BillData{SupplierName: "Proximus NV", Total: dec("65.00"), Confidence: 0.9}

	got := MergeBills(fast, expert)
	if got.Kind != domain.ConsensusWithConflicts {
		t.Fatalf("kind = %s", got.Kind)
	}
	merged := got.Data.(*domain.BillData)
	if !merged.Total.Equal(*expert.Total) {
		t.Fatalf("merged total = %s, want expert's", merged.Total)
	}
}

func TestMergeForTypeRoutesCreditNotesToInvoices(t *testing.T) {
	for _, dt := range []domain.DocumentType{domain.DocTypeInvoice, domain.DocTypeCreditNote, domain.DocTypeProForma} {
		if _, err := mergeForType(dt); err != nil {
			t.Fatalf("mergeForType(%s) error = %v", dt, err)
		}
	}
	if _, err := mergeForType(domain.DocTypeUnknown); err == nil {
		t.Fatalf("expected error for UNKNOWN")
	}
}
