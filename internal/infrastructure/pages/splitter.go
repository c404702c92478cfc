// Package pages resolves an uploaded scan into the ordered page
// references the pipeline works with.
package pages

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jverhaegen/ledgerpilot/internal/core/domain"
	"github.com/jverhaegen/ledgerpilot/internal/core/ports"
)

type Splitter struct {
	storage ports.ObjectStorage
}

func NewSplitter(storage ports.ObjectStorage) *Splitter {
	return &Splitter{storage: storage}
}

// Split counts the pages of a stored PDF and emits one reference per
// page. Plain image uploads are a single page. Page references share
// the source storage key; collaborators that need pixels load the
// object and pick their page by index.
func (s *Splitter) Split(ctx context.Context, storageKey, mimeType string) ([]domain.PageImage, error) {
	if !isPDF(mimeType) {
		return []domain.PageImage{{Index: 0, StorageKey: storageKey, MediaType: mimeType}}, nil
	}

	rc, err := s.storage.Open(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("open stored scan: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read stored scan: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse pdf", err)
	}

	count := reader.NumPage()
	if count < 1 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse pdf", fmt.Errorf("no pages in %s", storageKey))
	}

	result := make([]domain.PageImage, 0, count)
	for i := 0; i < count; i++ {
		result = append(result, domain.PageImage{
			Index:      i,
			StorageKey: storageKey,
			MediaType:  mimeType,
		})
	}
	return result, nil
}

func isPDF(mimeType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	return mt == "application/pdf" || strings.HasPrefix(mt, "application/pdf;")
}
