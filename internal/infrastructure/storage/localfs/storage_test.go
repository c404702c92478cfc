package localfs

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveAndOpenRoundTrip(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := storage.Save(context.Background(), "doc-1_invoice.pdf", strings.NewReader("scan bytes")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	r, err := storage.Open(context.Background(), "doc-1_invoice.pdf")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "scan bytes" {
		t.Fatalf("data = %q", data)
	}
}

func TestDeleteRemovesObjectAndToleratesMissing(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := storage.Save(context.Background(), "doc-2_bill.pdf", strings.NewReader("scan")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := storage.Delete(context.Background(), "doc-2_bill.pdf"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := storage.Open(context.Background(), "doc-2_bill.pdf"); err == nil {
		t.Fatalf("deleted object must not open")
	}

	if err := storage.Delete(context.Background(), "doc-2_bill.pdf"); err != nil {
		t.Fatalf("deleting a missing key must not fail: %v", err)
	}
}

func TestRejectsEscapingKeys(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for _, key := range []string{"", "../outside", "/etc/passwd", "a/../../b"} {
		if err := storage.Save(context.Background(), key, strings.NewReader("x")); err == nil {
			t.Errorf("Save(%q) accepted an unsafe key", key)
		}
		if _, err := storage.Open(context.Background(), key); err == nil {
			t.Errorf("Open(%q) accepted an unsafe key", key)
		}
		if err := storage.Delete(context.Background(), key); err == nil {
			t.Errorf("Delete(%q) accepted an unsafe key", key)
		}
	}
}
