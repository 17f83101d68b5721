package exportprom

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-report/export"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_RecordsOutcomes(t *testing.T) {
	c := NewCollector(Config{}, nil)
	ctx := context.Background()

	_ = c.Emit(ctx, export.MetricsEvent{Name: export.MetricExportCompleted, Format: export.FormatCSV, Rows: 3, Bytes: 2048, Duration: time.Second})
	_ = c.Emit(ctx, export.MetricsEvent{Name: export.MetricExportFailed, Format: export.FormatPDF, Rows: 1, ErrorKind: export.KindRender})
	_ = c.Emit(ctx, export.MetricsEvent{Name: export.MetricExportSkipped})

	if got := testutil.ToFloat64(c.exports.WithLabelValues("csv", "completed", "")); got != 1 {
		t.Fatalf("expected 1 completed csv export, got %v", got)
	}
	if got := testutil.ToFloat64(c.exports.WithLabelValues("pdf", "failed", "render")); got != 1 {
		t.Fatalf("expected 1 failed pdf export, got %v", got)
	}
	if got := testutil.ToFloat64(c.exports.WithLabelValues("unknown", "skipped", "")); got != 1 {
		t.Fatalf("expected 1 skipped export, got %v", got)
	}
	if got := testutil.ToFloat64(c.rows.WithLabelValues("csv")); got != 3 {
		t.Fatalf("expected 3 csv rows, got %v", got)
	}
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector(Config{Namespace: "reports"}, nil)
	_ = c.Emit(context.Background(), export.MetricsEvent{Name: export.MetricExportCompleted, Format: export.FormatXLSX, Rows: 1, Bytes: 10})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "reports_export_total") {
		t.Fatalf("expected export counter in scrape output")
	}
}

func TestCollector_WiredIntoExporter(t *testing.T) {
	c := NewCollector(Config{}, nil)
	exporter := export.NewExporter()
	exporter.Metrics = c

	_, err := exporter.Export(context.Background(), export.ExportRequest{
		Format:  export.FormatCSV,
		Records: []export.Record{export.NewRecord("name", "Ana")},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if got := testutil.ToFloat64(c.exports.WithLabelValues("csv", "completed", "")); got != 1 {
		t.Fatalf("expected exporter to emit completion, got %v", got)
	}
}
