package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
	"github.com/jverhaegen/ledgerpilot/internal/core/ports"
)

type IntakeDocumentUseCase struct {
	repo     ports.DocumentRepository
	storage  ports.ObjectStorage
	splitter ports.PageSplitter
	queue    ports.MessageQueue
}

func NewIntakeDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	splitter ports.PageSplitter,
	queue ports.MessageQueue,
) *IntakeDocumentUseCase {
	return &IntakeDocumentUseCase{
		repo:     repo,
		storage:  storage,
		splitter: splitter,
		queue:    queue,
	}
}

func (uc *IntakeDocumentUseCase) Upload(
	ctx context.Context,
	tenant domain.TenantContext,
	filename, mimeType string,
	body io.Reader,
) (*domain.ScannedDocument, error) {
	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save scan to object storage: %w", err)
	}

	pages, err := uc.splitter.Split(ctx, storageKey, mimeType)
	if err != nil {
		uc.discardScan(ctx, storageKey)
		return nil, fmt.Errorf("split scan into pages: %w", err)
	}

	doc := &domain.ScannedDocument{
		ID:        id,
		TenantID:  tenant.TenantID,
		Country:   tenant.CountryCode,
		Filename:  filename,
		MimeType:  mimeType,
		Pages:     pages,
		Status:    domain.StatusReceived,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		uc.discardScan(ctx, storageKey)
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if err := uc.queue.PublishDocumentScanned(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish scanned event: %w", err)
	}

	return doc, nil
}

// discardScan removes a stored object that never got a document row. The
// upload already failed, so a cleanup failure is only logged.
func (uc *IntakeDocumentUseCase) discardScan(ctx context.Context, key string) {
	if err := uc.storage.Delete(context.WithoutCancel(ctx), key); err != nil {
		slog.Warn("orphaned scan cleanup failed", "storage_key", key, "error", err)
	}
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "document.bin"
	}
	return base
}
