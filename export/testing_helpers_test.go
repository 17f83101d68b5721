package export

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"
)

type recordingLogger struct {
	mu     sync.Mutex
	debugs []string
	infos  []string
	warns  []string
	errors []string
}

func (l *recordingLogger) Debugf(format string, args ...any) { l.add(&l.debugs, format, args) }
func (l *recordingLogger) Infof(format string, args ...any)  { l.add(&l.infos, format, args) }
func (l *recordingLogger) Warnf(format string, args ...any)  { l.add(&l.warns, format, args) }
func (l *recordingLogger) Errorf(format string, args ...any) { l.add(&l.errors, format, args) }

func (l *recordingLogger) add(target *[]string, format string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*target = append(*target, fmt.Sprintf(format, args...))
}

func (l *recordingLogger) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

func contactRecords() []Record {
	return []Record{
		NewRecord("NAME", "Ana", "CONTACTS", []any{
			map[string]any{"TYPE": "mail", "VALUE": "ana@example.com"},
			map[string]any{"TYPE": "phone", "VALUE": "555-0101"},
		}),
		NewRecord("NAME", "Luis", "CONTACTS", []any{}),
	}
}

func contactColumns() ColumnsMap {
	return Columns(
		Identifier("NAME", "Nombre"),
		Group("CONTACTS", "Contact", 0,
			Child("TYPE", "Type", nil),
			Child("VALUE", "Value", nil),
		),
	)
}

func mustResolve(columns ColumnsMap, records []Record) []ResolvedColumn {
	resolved, err := ResolveColumns(columns, records, DefaultRenderers())
	if err != nil {
		panic(err)
	}
	return resolved
}

var fixedNow = time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)

func newJob(t *testing.T, req ExportRequest) RenderJob {
	t.Helper()
	columns, err := ResolveColumns(req.Columns, req.Records, DefaultRenderers())
	if err != nil {
		t.Fatalf("resolve columns: %v", err)
	}
	return RenderJob{
		Request:   req,
		Columns:   columns,
		Flattener: Flattener{Format: req.Format},
		Now:       fixedNow,
	}
}

type stubRasterizer struct {
	available bool
	raster    Raster
	err       error
	calls     int
	html      string
	opts      RasterOptions
}

func (s *stubRasterizer) Available(context.Context) bool {
	return s.available
}

func (s *stubRasterizer) Rasterize(_ context.Context, html string, opts RasterOptions) (Raster, error) {
	s.calls++
	s.html = html
	s.opts = opts
	if s.err != nil {
		return Raster{}, s.err
	}
	return s.raster, nil
}

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
