package query

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-report/export"
)

// ReportStatusHandler returns the latest history entry of an export.
type ReportStatusHandler struct {
	History export.HistoryReader
}

func NewReportStatusHandler(history export.HistoryReader) *ReportStatusHandler {
	return &ReportStatusHandler{History: history}
}

func (h *ReportStatusHandler) Query(ctx context.Context, msg ReportStatus) (export.HistoryEntry, error) {
	if h == nil || h.History == nil {
		return export.HistoryEntry{}, errors.New("export history is required", errors.CategoryInternal).
			WithTextCode("HISTORY_REQUIRED")
	}
	return h.History.Status(ctx, msg.ExportID)
}

// ReportHistoryHandler lists recorded export outcomes.
type ReportHistoryHandler struct {
	History export.HistoryReader
}

func NewReportHistoryHandler(history export.HistoryReader) *ReportHistoryHandler {
	return &ReportHistoryHandler{History: history}
}

func (h *ReportHistoryHandler) Query(ctx context.Context, msg ReportHistory) ([]export.HistoryEntry, error) {
	if h == nil || h.History == nil {
		return nil, errors.New("export history is required", errors.CategoryInternal).
			WithTextCode("HISTORY_REQUIRED")
	}
	return h.History.List(ctx, msg.Filter)
}

// DownloadMetadataHandler returns stored file metadata.
type DownloadMetadataHandler struct {
	Store export.FileStore
}

func NewDownloadMetadataHandler(store export.FileStore) *DownloadMetadataHandler {
	return &DownloadMetadataHandler{Store: store}
}

func (h *DownloadMetadataHandler) Query(ctx context.Context, msg DownloadMetadata) (DownloadInfo, error) {
	if h == nil || h.Store == nil {
		return DownloadInfo{}, errors.New("export store is required", errors.CategoryInternal).
			WithTextCode("STORE_REQUIRED")
	}
	file, err := h.Store.Get(ctx, msg.ExportID)
	if err != nil {
		return DownloadInfo{}, export.AsGoError(err)
	}
	return DownloadInfo{
		ID:          file.ID,
		Format:      file.Format,
		Filename:    file.Filename,
		ContentType: file.ContentType,
		Rows:        file.Rows,
		Bytes:       int64(len(file.Data)),
	}, nil
}
