package command

import (
	"context"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-report/export"
)

// Exporter runs a single export.
type Exporter interface {
	Export(ctx context.Context, req export.ExportRequest) (*export.ExportFile, error)
}

// Cleaner drops expired stored files.
type Cleaner interface {
	Cleanup(ctx context.Context) (int, error)
}

// ExportReportHandler handles report export messages.
type ExportReportHandler struct {
	Exporter Exporter
	// Store keeps the produced file for later download when set.
	Store export.FileStore
}

func NewExportReportHandler(exporter Exporter, store export.FileStore) *ExportReportHandler {
	return &ExportReportHandler{Exporter: exporter, Store: store}
}

func (h *ExportReportHandler) Execute(ctx context.Context, msg ExportReport) error {
	if h == nil || h.Exporter == nil {
		return errors.New("exporter is required", errors.CategoryInternal).
			WithTextCode("EXPORTER_REQUIRED")
	}
	file, err := h.Exporter.Export(ctx, msg.Request)
	if err != nil {
		return err
	}
	if file == nil {
		return nil
	}
	if h.Store != nil {
		if err := h.Store.Put(ctx, file); err != nil {
			return err
		}
	}
	if msg.Result != nil {
		*msg.Result = *file
	}
	if res := gcmd.ResultFromContext[*export.ExportFile](ctx); res != nil {
		res.Store(file)
	}
	return nil
}

// DeleteReportHandler removes stored export files.
type DeleteReportHandler struct {
	Store export.FileStore
}

func NewDeleteReportHandler(store export.FileStore) *DeleteReportHandler {
	return &DeleteReportHandler{Store: store}
}

func (h *DeleteReportHandler) Execute(ctx context.Context, msg DeleteReport) error {
	if h == nil || h.Store == nil {
		return errors.New("export store is required", errors.CategoryInternal).
			WithTextCode("STORE_REQUIRED")
	}
	return h.Store.Delete(ctx, msg.ExportID)
}

// CleanupReportsHandler removes expired stored exports.
type CleanupReportsHandler struct {
	Store  Cleaner
	Config gcmd.HandlerConfig
}

func NewCleanupReportsHandler(store Cleaner) *CleanupReportsHandler {
	return &CleanupReportsHandler{Store: store, Config: gcmd.HandlerConfig{Expression: "*/15 * * * *"}}
}

func (h *CleanupReportsHandler) Execute(ctx context.Context, msg CleanupReports) error {
	if h == nil || h.Store == nil {
		return errors.New("export store is required", errors.CategoryInternal).
			WithTextCode("STORE_REQUIRED")
	}
	count, err := h.Store.Cleanup(ctx)
	if err != nil {
		return err
	}
	if msg.Result != nil {
		*msg.Result = count
	}
	if res := gcmd.ResultFromContext[int](ctx); res != nil {
		res.Store(count)
	}
	return nil
}

func (h *CleanupReportsHandler) CronHandler() func() error {
	return func() error {
		return h.Execute(context.Background(), CleanupReports{})
	}
}

func (h *CleanupReportsHandler) CronOptions() gcmd.HandlerConfig {
	return h.Config
}
