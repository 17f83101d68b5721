package export

import (
	"context"
	"time"
)

// HistoryEntry is one recorded export outcome.
type HistoryEntry struct {
	ID        int64         `json:"id"`
	ExportID  string        `json:"export_id,omitempty"`
	Event     string        `json:"event"`
	Format    Format        `json:"format"`
	Rows      int64         `json:"rows"`
	Bytes     int64         `json:"bytes"`
	Duration  time.Duration `json:"duration"`
	ErrorKind ErrorKind     `json:"error_kind,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// HistoryFilter narrows history listings.
type HistoryFilter struct {
	Format Format
	Event  string
	Since  time.Time
	Until  time.Time
	Limit  int
}

// HistoryReader reads recorded export outcomes.
type HistoryReader interface {
	Status(ctx context.Context, exportID string) (HistoryEntry, error)
	List(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error)
}
