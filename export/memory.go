package export

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// FileStore keeps finished export files addressable by ID.
type FileStore interface {
	Put(ctx context.Context, file *ExportFile) error
	Get(ctx context.Context, id string) (*ExportFile, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore stores export files in memory (test/dev only).
type MemoryStore struct {
	// MaxFiles evicts the oldest files past this count. Zero keeps everything.
	MaxFiles  int
	Retention RetentionRules
	Now       func() time.Time

	mu    sync.RWMutex
	files map[string]memoryObject
	order []string
}

type memoryObject struct {
	file      ExportFile
	expiresAt time.Time
}

// NewMemoryStore creates an in-memory file store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string]memoryObject)}
}

// Put stores a copy of the file.
func (s *MemoryStore) Put(ctx context.Context, file *ExportFile) error {
	_ = ctx
	if file == nil || file.ID == "" {
		return NewError(KindValidation, "export file id is required", nil)
	}

	obj := memoryObject{file: *file}
	obj.file.Data = append([]byte(nil), file.Data...)
	if ttl := s.Retention.TTL(file.Format); ttl > 0 {
		obj.expiresAt = s.now().Add(ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files == nil {
		s.files = make(map[string]memoryObject)
	}
	if _, exists := s.files[file.ID]; !exists {
		s.order = append(s.order, file.ID)
	}
	s.files[file.ID] = obj
	s.evictLocked()
	return nil
}

// Get returns a copy of a stored file. Expired files are reported as missing.
func (s *MemoryStore) Get(ctx context.Context, id string) (*ExportFile, error) {
	_ = ctx
	s.mu.RLock()
	obj, ok := s.files[id]
	s.mu.RUnlock()
	if !ok || obj.expired(s.now()) {
		return nil, NewError(KindNotFound, fmt.Sprintf("export %q not found", id), nil)
	}
	file := obj.file
	file.Data = append([]byte(nil), obj.file.Data...)
	return &file, nil
}

// Delete removes a file. Missing IDs are not an error.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(id)
	return nil
}

// Len returns the number of files held, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.files)
}

// Cleanup drops expired files and returns how many were removed.
func (s *MemoryStore) Cleanup(ctx context.Context) (int, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pruneLocked(s.now()), nil
}

func (s *MemoryStore) pruneLocked(now time.Time) int {
	removed := 0
	for _, id := range append([]string(nil), s.order...) {
		if s.files[id].expired(now) {
			s.removeLocked(id)
			removed++
		}
	}
	return removed
}

func (s *MemoryStore) evictLocked() {
	s.pruneLocked(s.now())
	for s.MaxFiles > 0 && len(s.order) > s.MaxFiles {
		s.removeLocked(s.order[0])
	}
}

func (s *MemoryStore) removeLocked(id string) {
	if _, ok := s.files[id]; !ok {
		return
	}
	delete(s.files, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *MemoryStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (o memoryObject) expired(now time.Time) bool {
	return !o.expiresAt.IsZero() && !now.Before(o.expiresAt)
}

var _ FileStore = (*MemoryStore)(nil)
