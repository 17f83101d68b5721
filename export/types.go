package export

import (
	"context"
	"errors"
	"io"
	"time"
)

// Format is the export output format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatPDF  Format = "pdf"
)

// Orientation controls the page orientation of document output.
type Orientation string

const (
	OrientationPortrait  Orientation = "portrait"
	OrientationLandscape Orientation = "landscape"
)

// HeadMode controls when the table head is written.
type HeadMode string

const (
	HeadNever     HeadMode = "never"
	HeadFirstPage HeadMode = "firstPage"
	HeadEveryPage HeadMode = "everyPage"
)

// GroupLayout selects how group columns are laid out in document output.
type GroupLayout string

const (
	GroupLayoutHorizontal GroupLayout = "horizontal"
	GroupLayoutVertical   GroupLayout = "vertical"
)

// OrgInfo describes the organization printed on document headers.
type OrgInfo struct {
	Name    string         `json:"name,omitempty" yaml:"name,omitempty"`
	Address string         `json:"address,omitempty" yaml:"address,omitempty"`
	TaxID   string         `json:"tax_id,omitempty" yaml:"tax_id,omitempty"`
	Phone   string         `json:"phone,omitempty" yaml:"phone,omitempty"`
	Extra   map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Session identifies the user requesting the export.
type Session struct {
	User string         `json:"user,omitempty" yaml:"user,omitempty"`
	Data map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// ExportRequest captures a single export call. It is not modified by the engine.
type ExportRequest struct {
	Records            []Record      `json:"records"`
	Format             Format        `json:"format"`
	Columns            ColumnsMap    `json:"columns,omitempty"`
	Title              string        `json:"title,omitempty"`
	Filename           string        `json:"filename,omitempty"`
	Orientation        Orientation   `json:"orientation,omitempty"`
	ShowHead           HeadMode      `json:"show_head,omitempty"`
	GroupLayout        GroupLayout   `json:"group_layout,omitempty"`
	ExtraHeaderContent string        `json:"extra_header_content,omitempty"`
	BusinessInfo       *OrgInfo      `json:"business_info,omitempty"`
	Session            *Session      `json:"session,omitempty"`
	Options            FormatOptions `json:"options,omitempty"`
	CSV                CSVOptions    `json:"csv,omitempty"`
}

// FormatOptions configures locale/timezone formatting.
type FormatOptions struct {
	Locale     string `json:"locale,omitempty"`
	Timezone   string `json:"timezone,omitempty"`
	DateLayout string `json:"date_layout,omitempty"`
}

// CSVOptions configures CSV output.
type CSVOptions struct {
	Delimiter rune `json:"delimiter,omitempty"`
	UseCRLF   bool `json:"use_crlf,omitempty"`
}

// ExportFile is the encoded output of an export.
type ExportFile struct {
	ID          string
	Format      Format
	Filename    string
	ContentType string
	Rows        int64
	Data        []byte
}

// RenderStats capture encoder output.
type RenderStats struct {
	Rows  int64
	Bytes int64
}

// RenderJob is the input shared by every encoder.
type RenderJob struct {
	Request    ExportRequest
	Columns    []ResolvedColumn
	Flattener  Flattener
	Header     HeaderContent
	Rasterizer Rasterizer
	Now        time.Time
	MaxRows    int
}

// Encoder writes a report to the destination.
type Encoder interface {
	Encode(ctx context.Context, job RenderJob, w io.Writer) (RenderStats, error)
}

// EncoderFunc adapts a function to an Encoder.
type EncoderFunc func(ctx context.Context, job RenderJob, w io.Writer) (RenderStats, error)

func (f EncoderFunc) Encode(ctx context.Context, job RenderJob, w io.Writer) (RenderStats, error) {
	if f == nil {
		return RenderStats{}, NewError(KindInternal, "encoder func is nil", nil)
	}
	return f(ctx, job, w)
}

// MetricsEvent is one export outcome observation.
type MetricsEvent struct {
	Name      string
	ExportID  string
	Format    Format
	Rows      int64
	Bytes     int64
	Duration  time.Duration
	ErrorKind ErrorKind
	Timestamp time.Time
}

// Metrics event names.
const (
	MetricExportCompleted = "export.completed"
	MetricExportFailed    = "export.failed"
	MetricExportSkipped   = "export.skipped"
)

// MetricsHook receives export outcome observations.
type MetricsHook interface {
	Emit(ctx context.Context, evt MetricsEvent) error
}

// MetricsHooks fans an event out to every hook. All hooks run; their errors
// are joined.
type MetricsHooks []MetricsHook

// Emit implements MetricsHook.
func (h MetricsHooks) Emit(ctx context.Context, evt MetricsEvent) error {
	var errs []error
	for _, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Emit(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Logger provides logging hooks.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NopLogger is a no-op logger.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any) {}
func (NopLogger) Infof(string, ...any)  {}
func (NopLogger) Warnf(string, ...any)  {}
func (NopLogger) Errorf(string, ...any) {}
