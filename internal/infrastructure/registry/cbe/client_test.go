package cbe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
	"github.com/jverhaegen/ledgerpilot/internal/infrastructure/resilience"
)

func newTestExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    1,
		RetryInitialBackoff: time.Millisecond,
		BreakerEnabled:      false,
	})
}

func TestNormalizeVATNumber(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"BE 0123.456.789", "0123456789"},
		{"0123456789", "0123456789"},
		{"123456789", "0123456789"},
		{"BE0123456789", "0123456789"},
		{"", ""},
		{"12345", ""},
	}
	for _, tc := range cases {
		if got := normalizeVATNumber(tc.in); got != tc.want {
			t.Errorf("normalizeVATNumber(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSearchByVATFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/enterprises/0123456789" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"enterprise_number":"0123456789","denomination":"Acme BV","status":"ACTIVE"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, 100, newTestExecutor())
	entity, err := client.SearchByVAT(context.Background(), "BE 0123.456.789")
	if err != nil {
		t.Fatalf("SearchByVAT() error = %v", err)
	}
	if entity.LegalName != "Acme BV" {
		t.Fatalf("LegalName = %q", entity.LegalName)
	}
	if !entity.Active {
		t.Fatalf("expected active entity")
	}
	if entity.VATNumber != "BE0123456789" {
		t.Fatalf("VATNumber = %q", entity.VATNumber)
	}
}

func TestSearchByVATNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := New(srv.URL, 100, newTestExecutor())
	_, err := client.SearchByVAT(context.Background(), "0123456789")
	if !domain.IsKind(err, domain.ErrCompanyNotFound) {
		t.Fatalf("expected ErrCompanyNotFound, got %v", err)
	}
}

func TestSearchByVATServerErrorIsTemporary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := New(srv.URL, 100, newTestExecutor())
	_, err := client.SearchByVAT(context.Background(), "0123456789")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}

func TestSearchByVATRejectsMalformedNumber(t *testing.T) {
	client := New("http://registry.invalid", 100, newTestExecutor())
	_, err := client.SearchByVAT(context.Background(), "not-a-number")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
