package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
	"github.com/jverhaegen/ledgerpilot/internal/core/ports"
)

const (
	tenantHeader  = "X-Tenant-Id"
	countryHeader = "X-Country-Code"

	maxUploadBytes = 64 << 20
)

// UploadRecorder counts accepted uploads for monitoring. A nil recorder
// is valid.
type UploadRecorder interface {
	RecordUpload(tenant string, pageCount int)
}

type Router struct {
	intake   ports.DocumentIntake
	reader   ports.DocumentReader
	exporter ports.ReviewQueueExporter
	recorder UploadRecorder
}

func NewRouter(intake ports.DocumentIntake, reader ports.DocumentReader, exporter ports.ReviewQueueExporter, recorder UploadRecorder) *Router {
	return &Router{intake: intake, reader: reader, exporter: exporter, recorder: recorder}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.uploadDocument)
	mux.HandleFunc("/v1/documents/", rt.documentSubresource)
	mux.HandleFunc("/v1/reports/review-queue", rt.reviewQueueReport)
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	tenant := domain.TenantContext{
		TenantID:    strings.TrimSpace(r.Header.Get(tenantHeader)),
		CountryCode: strings.ToUpper(strings.TrimSpace(r.Header.Get(countryHeader))),
	}
	if tenant.TenantID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "header " + tenantHeader + " is required"})
		return
	}
	if tenant.CountryCode == "" {
		tenant.CountryCode = "BE"
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.intake.Upload(
		r.Context(),
		tenant,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if rt.recorder != nil {
		rt.recorder.RecordUpload(doc.TenantID, len(doc.Pages))
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) documentSubresource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if rest == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	if id, ok := strings.CutSuffix(rest, "/result"); ok {
		rt.getDocumentResult(w, r, id)
		return
	}
	if strings.Contains(rest, "/") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	rt.getDocumentByID(w, r, rest)
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request, id string) {
	doc, err := rt.reader.GetByID(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) getDocumentResult(w http.ResponseWriter, r *http.Request, id string) {
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}
	envelope, err := rt.reader.GetResult(r.Context(), id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(envelope)
}

func (rt *Router) reviewQueueReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	workbook, err := rt.exporter.ExportReviewQueue(r.Context())
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="review-queue.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(workbook)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
