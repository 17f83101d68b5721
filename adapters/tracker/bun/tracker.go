package trackerbun

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-report/export"
	"github.com/uptrace/bun"
)

// Tracker keeps a history of export outcomes in a Bun-backed database. It
// implements export.MetricsHook so it can be attached to an Exporter.
type Tracker struct {
	DB  *bun.DB
	Now func() time.Time
}

// NewTracker creates a Bun-backed tracker.
func NewTracker(db *bun.DB) *Tracker {
	return &Tracker{DB: db, Now: time.Now}
}

// CreateSchema creates the history table when missing.
func (t *Tracker) CreateSchema(ctx context.Context) error {
	if t == nil || t.DB == nil {
		return export.NewError(export.KindNotImpl, "tracker database not configured", nil)
	}
	_, err := t.DB.NewCreateTable().Model((*entryModel)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return export.NewError(export.KindInternal, "create report history table failed", err)
	}
	return nil
}

// Emit records an export outcome.
func (t *Tracker) Emit(ctx context.Context, evt export.MetricsEvent) error {
	if t == nil || t.DB == nil {
		return export.NewError(export.KindNotImpl, "tracker database not configured", nil)
	}
	if evt.Name == "" {
		return export.NewError(export.KindValidation, "event name is required", nil)
	}

	created := evt.Timestamp
	if created.IsZero() {
		created = t.now()
	}
	model := entryModel{
		ExportID:   evt.ExportID,
		Event:      evt.Name,
		Format:     string(evt.Format),
		Rows:       evt.Rows,
		Bytes:      evt.Bytes,
		DurationMS: evt.Duration.Milliseconds(),
		ErrorKind:  string(evt.ErrorKind),
		CreatedAt:  created,
	}
	if _, err := t.DB.NewInsert().Model(&model).Exec(ctx); err != nil {
		return export.NewError(export.KindInternal, "record export history failed", err)
	}
	return nil
}

// Status returns the latest entry recorded for an export ID.
func (t *Tracker) Status(ctx context.Context, exportID string) (export.HistoryEntry, error) {
	if t == nil || t.DB == nil {
		return export.HistoryEntry{}, export.NewError(export.KindNotImpl, "tracker database not configured", nil)
	}
	if exportID == "" {
		return export.HistoryEntry{}, export.NewError(export.KindValidation, "export ID is required", nil)
	}

	model := new(entryModel)
	err := t.DB.NewSelect().Model(model).
		Where("export_id = ?", exportID).
		Order("id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return export.HistoryEntry{}, export.NewError(export.KindNotFound, fmt.Sprintf("export %q not found", exportID), nil)
		}
		return export.HistoryEntry{}, export.NewError(export.KindInternal, "read export history failed", err)
	}
	return model.toEntry(), nil
}

// List returns entries matching a filter, newest first.
func (t *Tracker) List(ctx context.Context, filter export.HistoryFilter) ([]export.HistoryEntry, error) {
	if t == nil || t.DB == nil {
		return nil, export.NewError(export.KindNotImpl, "tracker database not configured", nil)
	}

	models := make([]entryModel, 0)
	query := t.DB.NewSelect().Model(&models)
	if filter.Format != "" {
		query = query.Where("format = ?", string(export.NormalizeFormat(filter.Format)))
	}
	if filter.Event != "" {
		query = query.Where("event = ?", filter.Event)
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		query = query.Where("created_at <= ?", filter.Until)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	query = query.Order("created_at DESC", "id DESC")

	if err := query.Scan(ctx); err != nil {
		return nil, export.NewError(export.KindInternal, "list export history failed", err)
	}

	entries := make([]export.HistoryEntry, 0, len(models))
	for _, model := range models {
		entries = append(entries, model.toEntry())
	}
	return entries, nil
}

// Prune deletes entries recorded before the cutoff and returns how many went.
func (t *Tracker) Prune(ctx context.Context, before time.Time) (int, error) {
	if t == nil || t.DB == nil {
		return 0, export.NewError(export.KindNotImpl, "tracker database not configured", nil)
	}
	res, err := t.DB.NewDelete().Model((*entryModel)(nil)).
		Where("created_at < ?", before).
		Exec(ctx)
	if err != nil {
		return 0, export.NewError(export.KindInternal, "prune export history failed", err)
	}
	affected, _ := res.RowsAffected()
	return int(affected), nil
}

type entryModel struct {
	bun.BaseModel `bun:"table:report_exports,alias:report_exports"`

	ID         int64     `bun:",pk,autoincrement"`
	ExportID   string    `bun:"export_id"`
	Event      string    `bun:",notnull"`
	Format     string    `bun:",notnull"`
	Rows       int64     `bun:"row_count"`
	Bytes      int64     `bun:"byte_count"`
	DurationMS int64     `bun:"duration_ms"`
	ErrorKind  string    `bun:"error_kind"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

func (m entryModel) toEntry() export.HistoryEntry {
	return export.HistoryEntry{
		ID:        m.ID,
		ExportID:  m.ExportID,
		Event:     m.Event,
		Format:    export.Format(m.Format),
		Rows:      m.Rows,
		Bytes:     m.Bytes,
		Duration:  time.Duration(m.DurationMS) * time.Millisecond,
		ErrorKind: export.ErrorKind(m.ErrorKind),
		CreatedAt: m.CreatedAt,
	}
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

var (
	_ export.MetricsHook   = (*Tracker)(nil)
	_ export.HistoryReader = (*Tracker)(nil)
)
