package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Exporter orchestrates one export: it resolves columns, prepares the header
// block, picks a rasterizer and dispatches to the format encoder.
type Exporter struct {
	Encoders        *EncoderRegistry
	Rasterizers     []Rasterizer
	ColumnRenderers map[string]Renderer
	Logger          Logger
	Metrics         MetricsHook
	Now             func() time.Time
	IDGenerator     func() string
	// MaxRows rejects requests with more records. Zero disables the check.
	MaxRows int
	// MaxBytes caps the encoded output size. Zero disables the check.
	MaxBytes int64
	// Timeout bounds a single export. Zero leaves the caller's deadline alone.
	Timeout time.Duration
}

// NewExporter creates an exporter with the CSV, XLSX and PDF encoders and the
// default named renderers.
func NewExporter() *Exporter {
	encoders := NewEncoderRegistry()
	_ = encoders.Register(FormatCSV, CSVEncoder{})
	_ = encoders.Register(FormatXLSX, XLSXEncoder{})
	_ = encoders.Register(FormatPDF, PDFEncoder{})

	return &Exporter{
		Encoders:        encoders,
		ColumnRenderers: DefaultRenderers(),
		Logger:          NopLogger{},
		Now:             time.Now,
		IDGenerator:     uuid.NewString,
	}
}

// Export encodes the request. Empty records and formats outside the known set
// are no-ops: both return a nil file and a nil error, with a warning logged.
func (e *Exporter) Export(ctx context.Context, req ExportRequest) (*ExportFile, error) {
	if e == nil {
		return nil, AsGoError(NewError(KindInternal, "exporter is nil", nil))
	}
	if e.Encoders == nil {
		return nil, AsGoError(NewError(KindInternal, "exporter encoders are not configured", nil))
	}
	logger := e.Logger
	if logger == nil {
		logger = NopLogger{}
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	nextID := e.IDGenerator
	if nextID == nil {
		nextID = uuid.NewString
	}

	format := NormalizeFormat(req.Format)
	if len(req.Records) == 0 {
		logger.Warnf("export: no records to export, nothing produced")
		e.emit(ctx, MetricsEvent{Name: MetricExportSkipped, Format: format, Timestamp: now()})
		return nil, nil
	}
	if !IsKnownFormat(format) {
		logger.Debugf("export: format %q is not one of %v", req.Format, e.Encoders.Formats())
		logger.Warnf("export: unknown format %q, nothing produced", req.Format)
		e.emit(ctx, MetricsEvent{Name: MetricExportSkipped, Format: format, Timestamp: now()})
		return nil, nil
	}

	if e.MaxRows > 0 && len(req.Records) > e.MaxRows {
		return nil, AsGoError(NewError(KindValidation, fmt.Sprintf("export has %d records, limit is %d", len(req.Records), e.MaxRows), nil))
	}

	encoder, ok := e.Encoders.Resolve(format)
	if !ok {
		return nil, AsGoError(NewError(KindNotFound, fmt.Sprintf("encoder %q not registered", format), nil))
	}

	columns, err := ResolveColumns(req.Columns, req.Records, e.ColumnRenderers)
	if err != nil {
		return nil, AsGoError(err)
	}

	normalize, err := NewNormalizeOptions(req.Options)
	if err != nil {
		return nil, AsGoError(err)
	}

	ctx, cancel := applyTimeout(ctx, e.Timeout)
	if cancel != nil {
		defer cancel()
	}

	started := now()
	req.Format = format
	job := RenderJob{
		Request:   req,
		Columns:   columns,
		Flattener: Flattener{Logger: logger, Format: format},
		Now:       started,
		MaxRows:   e.MaxRows,
	}
	job.Header = PrepareHeader(req.ExtraHeaderContent, HeaderData{
		Title:   req.Title,
		Now:     started,
		Org:     req.BusinessInfo,
		Session: req.Session,
		Format:  normalize,
	}, logger)
	if format == FormatPDF && !job.Header.Empty() && !job.Header.Fallback {
		job.Rasterizer = SelectRasterizer(ctx, e.Rasterizers)
		logger.Debugf("export: header rasterizer %T", job.Rasterizer)
	}

	id := nextID()
	var buf bytes.Buffer
	out := newLimitedWriter(&buf, e.MaxBytes)
	stats, err := encoder.Encode(ctx, job, out)
	if err != nil {
		logger.Errorf("export: %s encode failed after %d rows: %v", format, stats.Rows, err)
		finished := now()
		e.emit(ctx, MetricsEvent{
			Name:      MetricExportFailed,
			ExportID:  id,
			Format:    format,
			Rows:      stats.Rows,
			Duration:  finished.Sub(started),
			ErrorKind: KindFromError(err),
			Timestamp: finished,
		})
		return nil, AsGoError(err)
	}

	filename, err := renderFilename(req, format, started)
	if err != nil {
		return nil, AsGoError(err)
	}

	file := &ExportFile{
		ID:          id,
		Format:      format,
		Filename:    filename,
		ContentType: contentTypeForFormat(format),
		Rows:        stats.Rows,
		Data:        buf.Bytes(),
	}
	finished := now()
	logger.Infof("export: %s %q rows=%d bytes=%d in %s", format, filename, stats.Rows, stats.Bytes, finished.Sub(started))
	e.emit(ctx, MetricsEvent{
		Name:      MetricExportCompleted,
		ExportID:  file.ID,
		Format:    format,
		Rows:      stats.Rows,
		Bytes:     int64(len(file.Data)),
		Duration:  finished.Sub(started),
		Timestamp: finished,
	})
	return file, nil
}

func (e *Exporter) emit(ctx context.Context, evt MetricsEvent) {
	if e.Metrics == nil {
		return
	}
	if err := e.Metrics.Emit(context.WithoutCancel(ctx), evt); err != nil && e.Logger != nil {
		e.Logger.Debugf("export: metrics hook failed: %v", err)
	}
}

func applyTimeout(ctx context.Context, limit time.Duration) (context.Context, context.CancelFunc) {
	if limit <= 0 {
		return ctx, nil
	}
	if existing, ok := ctx.Deadline(); ok && time.Until(existing) < limit {
		return ctx, nil
	}
	return context.WithTimeout(ctx, limit)
}
