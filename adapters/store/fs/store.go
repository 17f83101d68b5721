package storefs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-report/export"
)

// Store keeps export files on disk, one payload plus a metadata sidecar per ID.
type Store struct {
	Root      string
	Retention export.RetentionRules
	Now       func() time.Time
}

type fileMeta struct {
	ID          string        `json:"id"`
	Format      export.Format `json:"format"`
	Filename    string        `json:"filename"`
	ContentType string        `json:"content_type"`
	Rows        int64         `json:"rows"`
	Size        int64         `json:"size"`
	CreatedAt   time.Time     `json:"created_at"`
	ExpiresAt   time.Time     `json:"expires_at,omitempty"`
}

// NewStore creates a filesystem-backed file store.
func NewStore(root string) *Store {
	return &Store{Root: root, Now: time.Now}
}

// Put writes the file atomically under its ID.
func (s *Store) Put(ctx context.Context, file *export.ExportFile) error {
	_ = ctx
	if err := s.check(); err != nil {
		return err
	}
	if file == nil || file.ID == "" {
		return export.NewError(export.KindValidation, "export file id is required", nil)
	}

	pathOnDisk, err := s.resolvePath(file.ID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(pathOnDisk), 0o755); err != nil {
		return export.NewError(export.KindInternal, "create store directory failed", err)
	}
	if err := writeAtomic(pathOnDisk, ".export-*", file.Data); err != nil {
		return export.NewError(export.KindInternal, "write export file failed", err)
	}

	meta := fileMeta{
		ID:          file.ID,
		Format:      file.Format,
		Filename:    file.Filename,
		ContentType: file.ContentType,
		Rows:        file.Rows,
		Size:        int64(len(file.Data)),
		CreatedAt:   s.now(),
	}
	if ttl := s.Retention.TTL(file.Format); ttl > 0 {
		meta.ExpiresAt = meta.CreatedAt.Add(ttl)
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return export.NewError(export.KindInternal, "encode export metadata failed", err)
	}
	if err := writeAtomic(metaPath(pathOnDisk), ".meta-*", payload); err != nil {
		return export.NewError(export.KindInternal, "write export metadata failed", err)
	}
	return nil
}

// Get reads a stored file. Missing and expired files are reported as not found.
func (s *Store) Get(ctx context.Context, id string) (*export.ExportFile, error) {
	_ = ctx
	if err := s.check(); err != nil {
		return nil, err
	}
	pathOnDisk, err := s.resolvePath(id)
	if err != nil {
		return nil, err
	}

	meta, err := readMeta(pathOnDisk)
	if err != nil || meta.expired(s.now()) {
		return nil, export.NewError(export.KindNotFound, fmt.Sprintf("export %q not found", id), err)
	}
	data, err := os.ReadFile(pathOnDisk)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, export.NewError(export.KindNotFound, fmt.Sprintf("export %q not found", id), err)
		}
		return nil, export.NewError(export.KindInternal, "read export file failed", err)
	}

	return &export.ExportFile{
		ID:          meta.ID,
		Format:      meta.Format,
		Filename:    meta.Filename,
		ContentType: meta.ContentType,
		Rows:        meta.Rows,
		Data:        data,
	}, nil
}

// Delete removes a stored file. Missing IDs are not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	_ = ctx
	if err := s.check(); err != nil {
		return err
	}
	pathOnDisk, err := s.resolvePath(id)
	if err != nil {
		return err
	}
	_ = os.Remove(pathOnDisk)
	_ = os.Remove(metaPath(pathOnDisk))
	return nil
}

// Cleanup removes expired files and returns how many were dropped.
func (s *Store) Cleanup(ctx context.Context) (int, error) {
	if err := s.check(); err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, export.NewError(export.KindInternal, "list store directory failed", err)
	}

	now := s.now()
	removed := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return removed, export.NewError(export.KindCanceled, "cleanup canceled", err)
		}
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".meta.json") {
			continue
		}
		pathOnDisk := filepath.Join(s.Root, strings.TrimSuffix(name, ".meta.json"))
		meta, err := readMeta(pathOnDisk)
		if err != nil || !meta.expired(now) {
			continue
		}
		_ = os.Remove(pathOnDisk)
		_ = os.Remove(metaPath(pathOnDisk))
		removed++
	}
	return removed, nil
}

func (s *Store) check() error {
	if s == nil {
		return export.NewError(export.KindInternal, "store is nil", nil)
	}
	if s.Root == "" {
		return export.NewError(export.KindValidation, "store root is required", nil)
	}
	return nil
}

// IDs are flat names; anything that could escape Root is rejected.
func (s *Store) resolvePath(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", export.NewError(export.KindValidation, "invalid export id", nil)
	}
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", export.NewError(export.KindInternal, "resolve store root failed", err)
	}
	return filepath.Join(root, id), nil
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func writeAtomic(target, pattern string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), pattern)
	if err != nil {
		return err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

func readMeta(pathOnDisk string) (fileMeta, error) {
	data, err := os.ReadFile(metaPath(pathOnDisk))
	if err != nil {
		return fileMeta{}, err
	}
	var meta fileMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return fileMeta{}, err
	}
	return meta, nil
}

func (m fileMeta) expired(now time.Time) bool {
	return !m.ExpiresAt.IsZero() && !now.Before(m.ExpiresAt)
}

func metaPath(pathOnDisk string) string {
	return pathOnDisk + ".meta.json"
}

var _ export.FileStore = (*Store)(nil)
