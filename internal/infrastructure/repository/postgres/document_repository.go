package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api and worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(874201)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	tenant_id TEXT NOT NULL,
	country_code TEXT NOT NULL DEFAULT 'BE',
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	pages JSONB NOT NULL DEFAULT '[]'::jsonb,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS pipeline_results (
	document_id TEXT PRIMARY KEY REFERENCES documents(id),
	verdict TEXT NOT NULL,
	envelope JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_tenant ON documents(tenant_id);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.ScannedDocument) error {
	pagesJSON, err := json.Marshal(doc.Pages)
	if err != nil {
		return fmt.Errorf("marshal pages: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, tenant_id, country_code, filename, mime_type, pages, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		doc.ID, doc.TenantID, doc.Country, doc.Filename, doc.MimeType, pagesJSON,
		string(doc.Status), doc.Error, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.ScannedDocument, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, tenant_id, country_code, filename, mime_type, pages, status, COALESCE(error_message, ''), created_at, updated_at
FROM documents WHERE id = $1
`, id)
	return scanDocument(row)
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents SET status = $2, error_message = $3, updated_at = $4 WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

// resultEnvelope re-attaches the extraction payload, which the domain
// envelope keeps out of its own JSON form.
type resultEnvelope struct {
	domain.PipelineResult
	ExtractionData any `json:"extraction,omitempty"`
}

func (r *DocumentRepository) SaveResult(ctx context.Context, id string, result domain.PipelineResult) error {
	envelope, err := json.Marshal(resultEnvelope{PipelineResult: result, ExtractionData: result.Extraction})
	if err != nil {
		return fmt.Errorf("marshal result envelope: %w", err)
	}

	verdict := "REJECTED"
	if !result.Rejected() && result.Judgment != nil {
		verdict = string(result.Judgment.Outcome)
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO pipeline_results (document_id, verdict, envelope, created_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (document_id) DO UPDATE SET verdict = EXCLUDED.verdict, envelope = EXCLUDED.envelope, created_at = EXCLUDED.created_at
`, id, verdict, envelope, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert pipeline result: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetResult(ctx context.Context, id string) ([]byte, error) {
	var envelope []byte
	err := r.db.QueryRowContext(ctx, `
SELECT envelope FROM pipeline_results WHERE document_id = $1
`, id).Scan(&envelope)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select pipeline result: %w", err)
	}
	return envelope, nil
}

func (r *DocumentRepository) ListByStatus(ctx context.Context, status domain.DocumentStatus, limit int) ([]domain.ScannedDocument, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, tenant_id, country_code, filename, mime_type, pages, status, COALESCE(error_message, ''), created_at, updated_at
FROM documents WHERE status = $1 ORDER BY created_at DESC LIMIT $2
`, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("select documents by status: %w", err)
	}
	defer rows.Close()

	var docs []domain.ScannedDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.ScannedDocument, error) {
	var (
		doc       domain.ScannedDocument
		pagesJSON []byte
		status    string
	)
	err := row.Scan(
		&doc.ID, &doc.TenantID, &doc.Country, &doc.Filename, &doc.MimeType,
		&pagesJSON, &status, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document row: %w", err)
	}
	if err := json.Unmarshal(pagesJSON, &doc.Pages); err != nil {
		return nil, fmt.Errorf("unmarshal pages: %w", err)
	}
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}
