package command

import (
	"fmt"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-report/export"
)

// ExportReport runs a synchronous report export.
type ExportReport struct {
	Request export.ExportRequest
	Result  *export.ExportFile
}

func (ExportReport) Type() string { return "report:export" }

// Validate rejects requests the exporter would silently skip, so callers
// learn about a bad format or an empty data set before dispatch.
func (msg ExportReport) Validate() error {
	if len(msg.Request.Records) == 0 {
		return errors.New("records are required", errors.CategoryValidation).
			WithTextCode("RECORDS_REQUIRED")
	}
	if !export.IsKnownFormat(export.NormalizeFormat(msg.Request.Format)) {
		return errors.New(fmt.Sprintf("unsupported export format %q", msg.Request.Format), errors.CategoryValidation).
			WithTextCode("FORMAT_UNSUPPORTED")
	}
	return nil
}

// DeleteReport removes a stored export file.
type DeleteReport struct {
	ExportID string
}

func (DeleteReport) Type() string { return "report:delete" }

func (msg DeleteReport) Validate() error {
	if msg.ExportID == "" {
		return errors.New("export ID is required", errors.CategoryValidation).
			WithTextCode("EXPORT_ID_REQUIRED")
	}
	return nil
}

// CleanupReports removes expired stored export files.
type CleanupReports struct {
	Result *int
}

func (CleanupReports) Type() string { return "report:cleanup" }

func (CleanupReports) Validate() error { return nil }
