package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
)

type fakeIntake struct {
	gotTenant   domain.TenantContext
	gotFilename string
	err         error
}

func (f *fakeIntake) Upload(_ context.Context, tenant domain.TenantContext, filename, mimeType string, body io.Reader) (*domain.ScannedDocument, error) {
	f.gotTenant = tenant
	f.gotFilename = filename
	if f.err != nil {
		return nil, f.err
	}
	_, _ = io.Copy(io.Discard, body)
	return &domain.ScannedDocument{ID: "doc-1", TenantID: tenant.TenantID, Filename: filename, Status: domain.StatusReceived}, nil
}

type fakeReader struct {
	doc       *domain.ScannedDocument
	docErr    error
	result    []byte
	resultErr error
}

func (f *fakeReader) GetByID(context.Context, string) (*domain.ScannedDocument, error) {
	return f.doc, f.docErr
}

func (f *fakeReader) GetResult(context.Context, string) ([]byte, error) {
	return f.result, f.resultErr
}

type fakeExporter struct {
	data []byte
	err  error
}

func (f *fakeExporter) ExportReviewQueue(context.Context) ([]byte, error) {
	return f.data, f.err
}

type fakeRecorder struct {
	tenant string
	pages  int
	calls  int
}

func (f *fakeRecorder) RecordUpload(tenant string, pageCount int) {
	f.tenant = tenant
	f.pages = pageCount
	f.calls++
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestUploadRequiresTenantHeader(t *testing.T) {
	rt := NewRouter(&fakeIntake{}, &fakeReader{}, &fakeExporter{}, nil)

	body, contentType := multipartUpload(t, "scan.pdf", "pdf-bytes")
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	rt.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestUploadAcceptedWithDefaultCountry(t *testing.T) {
	intake := &fakeIntake{}
	recorder := &fakeRecorder{}
	rt := NewRouter(intake, &fakeReader{}, &fakeExporter{}, recorder)

	body, contentType := multipartUpload(t, "scan.pdf", "pdf-bytes")
	req := httptest.NewRequest(http.MethodPost, "/v1/documents", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(tenantHeader, "acme")
	rec := httptest.NewRecorder()

	rt.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}
	if intake.gotTenant.TenantID != "acme" {
		t.Fatalf("tenant = %q", intake.gotTenant.TenantID)
	}
	if intake.gotTenant.CountryCode != "BE" {
		t.Fatalf("country = %q, want default BE", intake.gotTenant.CountryCode)
	}
	if intake.gotFilename != "scan.pdf" {
		t.Fatalf("filename = %q", intake.gotFilename)
	}

	var doc domain.ScannedDocument
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if doc.ID != "doc-1" {
		t.Fatalf("doc id = %q", doc.ID)
	}
	if recorder.calls != 1 || recorder.tenant != "acme" {
		t.Fatalf("recorder calls = %d tenant = %q", recorder.calls, recorder.tenant)
	}
}

func TestGetDocumentNotFoundMapsTo404(t *testing.T) {
	rt := NewRouter(&fakeIntake{}, &fakeReader{docErr: domain.ErrDocumentNotFound}, &fakeExporter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/missing", nil)
	rec := httptest.NewRecorder()

	rt.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestGetDocumentResultPassesEnvelopeThrough(t *testing.T) {
	envelope := []byte(`{"judgment":{"outcome":"AUTO_APPROVE"}}`)
	rt := NewRouter(&fakeIntake{}, &fakeReader{result: envelope}, &fakeExporter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/documents/doc-1/result", nil)
	rec := httptest.NewRecorder()

	rt.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), envelope) {
		t.Fatalf("body = %s", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
}

func TestReviewQueueReportSetsAttachmentHeaders(t *testing.T) {
	rt := NewRouter(&fakeIntake{}, &fakeReader{}, &fakeExporter{data: []byte("xlsx-bytes")}, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/reports/review-queue", nil)
	rec := httptest.NewRecorder()

	rt.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "review-queue.xlsx") {
		t.Fatalf("content disposition = %q", rec.Header().Get("Content-Disposition"))
	}
}

func TestRequestIDHeaderIsEchoed(t *testing.T) {
	rt := NewRouter(&fakeIntake{}, &fakeReader{}, &fakeExporter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()

	rt.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get(requestIDHeader); got != "req-42" {
		t.Fatalf("request id = %q, want req-42", got)
	}
}
