package query

import (
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-report/export"
)

// ReportStatus requests the latest recorded outcome of an export.
type ReportStatus struct {
	ExportID string
}

func (ReportStatus) Type() string { return "report:status" }

func (msg ReportStatus) Validate() error {
	if msg.ExportID == "" {
		return errors.New("export ID is required", errors.CategoryValidation).
			WithTextCode("EXPORT_ID_REQUIRED")
	}
	return nil
}

// ReportHistory requests recorded export outcomes.
type ReportHistory struct {
	Filter export.HistoryFilter
}

func (ReportHistory) Type() string { return "report:history" }

func (msg ReportHistory) Validate() error {
	if msg.Filter.Limit < 0 {
		return errors.New("history limit must not be negative", errors.CategoryValidation).
			WithTextCode("LIMIT_INVALID")
	}
	if !msg.Filter.Since.IsZero() && !msg.Filter.Until.IsZero() && msg.Filter.Until.Before(msg.Filter.Since) {
		return errors.New("history range is inverted", errors.CategoryValidation).
			WithTextCode("RANGE_INVALID")
	}
	return nil
}

// DownloadMetadata requests metadata of a stored export file.
type DownloadMetadata struct {
	ExportID string
}

func (DownloadMetadata) Type() string { return "report:download" }

func (msg DownloadMetadata) Validate() error {
	if msg.ExportID == "" {
		return errors.New("export ID is required", errors.CategoryValidation).
			WithTextCode("EXPORT_ID_REQUIRED")
	}
	return nil
}

// DownloadInfo describes a stored export file without its payload.
type DownloadInfo struct {
	ID          string        `json:"id"`
	Format      export.Format `json:"format"`
	Filename    string        `json:"filename"`
	ContentType string        `json:"content_type"`
	Rows        int64         `json:"rows"`
	Bytes       int64         `json:"bytes"`
}
