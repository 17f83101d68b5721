package storefs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goliatone/go-report/export"
)

func sampleFile() *export.ExportFile {
	return &export.ExportFile{
		ID:          "exp-1",
		Format:      export.FormatCSV,
		Filename:    "Usuarios.csv",
		ContentType: "text/csv; charset=utf-8",
		Rows:        2,
		Data:        []byte("hello"),
	}
}

func TestStore_PutGetDelete(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	if err := store.Put(context.Background(), sampleFile()); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "exp-1.meta.json")); err != nil {
		t.Fatalf("expected metadata sidecar: %v", err)
	}

	got, err := store.Get(context.Background(), "exp-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got.Data) != "hello" || got.Filename != "Usuarios.csv" || got.Rows != 2 || got.Format != export.FormatCSV {
		t.Fatalf("unexpected file %+v", got)
	}

	if err := store.Delete(context.Background(), "exp-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = store.Get(context.Background(), "exp-1")
	var exportErr *export.ExportError
	if !errors.As(err, &exportErr) || exportErr.Kind != export.KindNotFound {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestStore_RejectsEscapingIDs(t *testing.T) {
	store := NewStore(t.TempDir())
	file := sampleFile()
	file.ID = "../outside"
	if err := store.Put(context.Background(), file); err == nil {
		t.Fatalf("expected invalid id error")
	}
	if _, err := store.Get(context.Background(), ".."); err == nil {
		t.Fatalf("expected invalid id error")
	}
}

func TestStore_RequiresRoot(t *testing.T) {
	store := NewStore("")
	var exportErr *export.ExportError
	if err := store.Put(context.Background(), sampleFile()); !errors.As(err, &exportErr) || exportErr.Kind != export.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStore_RetentionAndCleanup(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store := NewStore(t.TempDir())
	store.Now = func() time.Time { return now }
	store.Retention = export.RetentionRules{ByFormat: map[export.Format]time.Duration{export.FormatCSV: time.Minute}}

	if err := store.Put(context.Background(), sampleFile()); err != nil {
		t.Fatalf("put: %v", err)
	}
	pdf := sampleFile()
	pdf.ID = "exp-2"
	pdf.Format = export.FormatPDF
	if err := store.Put(context.Background(), pdf); err != nil {
		t.Fatalf("put pdf: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if _, err := store.Get(context.Background(), "exp-1"); err == nil {
		t.Fatalf("expected expired file to be hidden")
	}
	removed, err := store.Cleanup(context.Background())
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := store.Get(context.Background(), "exp-2"); err != nil {
		t.Fatalf("pdf without ttl should survive: %v", err)
	}
}
