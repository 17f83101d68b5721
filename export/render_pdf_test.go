package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
)

func encodePDF(t *testing.T, job RenderJob) []byte {
	t.Helper()
	var buf bytes.Buffer
	stats, err := PDFEncoder{Uncompressed: true}.Encode(context.Background(), job, &buf)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if stats.Rows != int64(len(job.Request.Records)) {
		t.Fatalf("expected %d rows, got %d", len(job.Request.Records), stats.Rows)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("expected pdf header")
	}
	return buf.Bytes()
}

func manyRecords(n int) []Record {
	records := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, NewRecord("NAME", fmt.Sprintf("Persona %d", i), "CITY", "Lima"))
	}
	return records
}

func TestPDFEncoder_DrawsPageHeaderAndTable(t *testing.T) {
	req := ExportRequest{
		Format:       FormatPDF,
		Title:        "Contactos",
		Records:      contactRecords(),
		Columns:      contactColumns(),
		BusinessInfo: &OrgInfo{Name: "Acme SA", TaxID: "B-12345678"},
		Session:      &Session{User: "ana"},
	}
	out := encodePDF(t, newJob(t, req))

	for _, want := range []string{"(Contactos)", "(Acme SA)", "(B-12345678)", "(Usuario: ana)", "(Fecha: 05/03/2024)", "(Contact #1)", "(ana@example.com)", "gina 1 de 1"} {
		if !bytes.Contains(out, []byte(want)) {
			t.Fatalf("expected %q in document", want)
		}
	}
}

func TestPDFEncoder_EmptyCellsShowPlaceholder(t *testing.T) {
	req := ExportRequest{Format: FormatPDF, Records: contactRecords(), Columns: contactColumns()}
	out := encodePDF(t, newJob(t, req))

	if !bytes.Contains(out, []byte("(N/A)")) {
		t.Fatalf("expected N/A placeholder for missing contacts")
	}
}

func TestPDFEncoder_HeadRepetition(t *testing.T) {
	cases := []struct {
		mode    HeadMode
		atLeast int
		atMost  int
	}{
		{HeadNever, 0, 0},
		{HeadFirstPage, 1, 1},
		{HeadEveryPage, 3, 1 << 20},
	}
	for _, tc := range cases {
		t.Run(string(tc.mode), func(t *testing.T) {
			req := ExportRequest{
				Format:   FormatPDF,
				Records:  manyRecords(200),
				Columns:  Columns(Identifier("NAME", "Nombre"), Identifier("CITY", "Ciudad")),
				ShowHead: tc.mode,
			}
			out := encodePDF(t, newJob(t, req))

			heads := bytes.Count(out, []byte("(Nombre)"))
			if heads < tc.atLeast || heads > tc.atMost {
				t.Fatalf("expected between %d and %d heads, got %d", tc.atLeast, tc.atMost, heads)
			}
			if !bytes.Contains(out, []byte("gina 2 de")) {
				t.Fatalf("expected multiple pages")
			}
		})
	}
}

func TestPDFEncoder_VerticalGroupLayout(t *testing.T) {
	req := ExportRequest{
		Format:      FormatPDF,
		Records:     contactRecords(),
		Columns:     contactColumns(),
		GroupLayout: GroupLayoutVertical,
		Orientation: OrientationLandscape,
	}
	out := encodePDF(t, newJob(t, req))

	if !bytes.Contains(out, []byte("(555-0101)")) || !bytes.Contains(out, []byte("(Contact)")) {
		t.Fatalf("expected vertical rows with group head")
	}
	if bytes.Contains(out, []byte("(Contact #1 Type)")) {
		t.Fatalf("vertical layout must not unroll group headers")
	}
}

func TestPDFEncoder_InjectsRasterizedHeader(t *testing.T) {
	rasterizer := &stubRasterizer{available: true, raster: Raster{PNG: testPNG(t, 400, 100), Width: 400, Height: 100}}
	req := tagsRequest()
	req.Format = FormatPDF
	job := newJob(t, req)
	job.Header = HeaderContent{Source: "<p>hola</p>", HTML: "<p>hola</p>", Lines: []string{"hola"}}
	job.Rasterizer = rasterizer

	out := encodePDF(t, job)
	if rasterizer.calls != 1 || rasterizer.html != "<p>hola</p>" {
		t.Fatalf("expected one rasterize call, got %d", rasterizer.calls)
	}
	if rasterizer.opts.WidthPx <= 0 {
		t.Fatalf("expected page width in pixels")
	}
	if !bytes.Contains(out, []byte("/Subtype /Image")) {
		t.Fatalf("expected embedded header image")
	}
}

func TestPDFEncoder_TextFallbackHeader(t *testing.T) {
	req := tagsRequest()
	req.Format = FormatPDF
	job := newJob(t, req)
	job.Header = HeaderContent{Source: "<p>Informe interno</p>", HTML: "<p>Informe interno</p>", Lines: []string{"Informe interno"}}
	job.Rasterizer = TextRasterizer{}

	out := encodePDF(t, job)
	if !bytes.Contains(out, []byte("(Informe interno)")) {
		t.Fatalf("expected header text line")
	}
}

func TestPDFEncoder_RasterFailureIsFatal(t *testing.T) {
	req := tagsRequest()
	req.Format = FormatPDF
	job := newJob(t, req)
	job.Header = HeaderContent{Source: "<p>x</p>", HTML: "<p>x</p>", Lines: []string{"x"}}
	job.Rasterizer = &stubRasterizer{available: true, err: errors.New("browser crashed")}

	var buf bytes.Buffer
	_, err := PDFEncoder{}.Encode(context.Background(), job, &buf)
	var exportErr *ExportError
	if !errors.As(err, &exportErr) || exportErr.Kind != KindRender {
		t.Fatalf("expected render error, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no partial output, got %d bytes", buf.Len())
	}
}

func TestPDFEncoder_RendererOutputIsNotDateFormatted(t *testing.T) {
	stamp := func(any, Record, RenderContext) (any, error) {
		return "2024-03-05T14:30:00Z", nil
	}
	req := ExportRequest{
		Format:  FormatPDF,
		Records: []Record{NewRecord("WHEN", "ignored")},
		Columns: Columns(Simple("WHEN", "When", stamp)),
	}
	out := encodePDF(t, newJob(t, req))

	if !bytes.Contains(out, []byte("(2024-03-05T14:30:00Z)")) {
		t.Fatalf("expected renderer text in cell")
	}
	if bytes.Contains(out, []byte("(05/03/2024 14:30)")) {
		t.Fatalf("renderer output must not be reformatted as a date")
	}
}
