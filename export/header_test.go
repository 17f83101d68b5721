package export

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestPrepareHeader_RendersTemplateContext(t *testing.T) {
	raw := `<h2>{{ title }}</h2><p>{{ data.name }} - {{ data.user }} - {{ date }} {{ time }}</p>`
	header := PrepareHeader(raw, HeaderData{
		Title:   "Ventas",
		Now:     fixedNow,
		Org:     &OrgInfo{Name: "Acme"},
		Session: &Session{User: "ana"},
	}, nil)

	if header.Fallback {
		t.Fatalf("unexpected fallback")
	}
	if !strings.Contains(header.HTML, "Acme - ana - 05/03/2024 14:30") {
		t.Fatalf("unexpected html %q", header.HTML)
	}
	if len(header.Lines) != 2 || header.Lines[1] != "Acme - ana - 05/03/2024 14:30" {
		t.Fatalf("unexpected lines %q", header.Lines)
	}
}

func TestPrepareHeader_SessionOverridesOrganization(t *testing.T) {
	data := templateData(&OrgInfo{Name: "Acme", Extra: map[string]any{"branch": "Norte"}}, &Session{Data: map[string]any{"branch": "Sur"}})
	if data["branch"] != "Sur" || data["name"] != "Acme" {
		t.Fatalf("unexpected merged data %v", data)
	}
}

func TestPrepareHeader_InvalidTemplateFallsBack(t *testing.T) {
	logger := &recordingLogger{}
	header := PrepareHeader("<p>Total {% if %}</p>", HeaderData{Now: fixedNow}, logger)

	if !header.Fallback || header.HTML != "" {
		t.Fatalf("expected text fallback, got %+v", header)
	}
	if len(header.Lines) == 0 || !strings.HasPrefix(header.Lines[0], "Total") {
		t.Fatalf("expected raw text lines, got %q", header.Lines)
	}
	if logger.warnCount() != 1 {
		t.Fatalf("expected one warning, got %d", logger.warnCount())
	}
}

func TestSanitizeHTML_RemovesActiveContent(t *testing.T) {
	raw := `<div onclick="steal()"><script>alert(1)</script><style>p{}</style>` +
		`<a href="javascript:alert(1)">link</a><a href="https://example.com">ok</a>` +
		`<iframe src="x"></iframe><img src="logo.png" onerror="x()"></div>`
	out, err := SanitizeHTML(raw)
	if err != nil {
		t.Fatalf("sanitize: %v", err)
	}

	for _, banned := range []string{"<script", "alert(1)", "<style", "onclick", "onerror", "javascript:", "<iframe"} {
		if strings.Contains(out, banned) {
			t.Fatalf("expected %q removed, got %q", banned, out)
		}
	}
	for _, kept := range []string{`href="https://example.com"`, `src="logo.png"`, ">link</a>"} {
		if !strings.Contains(out, kept) {
			t.Fatalf("expected %q kept, got %q", kept, out)
		}
	}
}

func TestTextLines_DropsBlankAndDecoration(t *testing.T) {
	lines := TextLines("<h1>Title</h1><p>first</p><br><p>  </p><div>second</div>")
	for _, line := range lines {
		if strings.Trim(line, "*-= ") == "" {
			t.Fatalf("unexpected decoration line in %q", lines)
		}
	}
	joined := strings.Join(lines, "|")
	if !strings.Contains(joined, "first") || !strings.Contains(joined, "second") {
		t.Fatalf("unexpected lines %q", lines)
	}
}

type stubCanvas struct {
	width  float64
	lines  []string
	images int
	drawnH float64
}

func (c *stubCanvas) ContentWidth() float64 { return c.width }

func (c *stubCanvas) DrawImage(_ []byte, _, _, _, height float64) error {
	c.images++
	c.drawnH = height
	return nil
}

func (c *stubCanvas) DrawLines(lines []string, _ float64) float64 {
	c.lines = append(c.lines, lines...)
	return float64(len(lines)) * 5
}

func TestInjectHeader_BothPathsAdvanceCursor(t *testing.T) {
	header := HeaderContent{Source: "<p>a</p><p>b</p>", HTML: "<p>a</p><p>b</p>", Lines: []string{"a", "b"}}

	textCanvas := &stubCanvas{width: 190}
	height, err := injectHeader(context.Background(), textCanvas, header, TextRasterizer{}, 30)
	if err != nil {
		t.Fatalf("text inject: %v", err)
	}
	if height != 10 || !reflect.DeepEqual(textCanvas.lines, []string{"a", "b"}) {
		t.Fatalf("unexpected text path height=%v lines=%v", height, textCanvas.lines)
	}

	imageCanvas := &stubCanvas{width: 190}
	raster := &stubRasterizer{available: true, raster: Raster{PNG: []byte{1}, Width: 1436, Height: 359}}
	height, err = injectHeader(context.Background(), imageCanvas, header, raster, 30)
	if err != nil {
		t.Fatalf("image inject: %v", err)
	}
	if imageCanvas.images != 1 || height <= 0 || height != imageCanvas.drawnH {
		t.Fatalf("unexpected image path height=%v images=%d", height, imageCanvas.images)
	}
	if want := 190.0 * 359 / 1436; height < want-0.01 || height > want+0.01 {
		t.Fatalf("expected aspect-preserving height %v, got %v", want, height)
	}
}

func TestInjectHeader_EmptyAndFailure(t *testing.T) {
	canvas := &stubCanvas{width: 190}
	if height, err := injectHeader(context.Background(), canvas, HeaderContent{}, TextRasterizer{}, 0); err != nil || height != 0 {
		t.Fatalf("expected no-op for empty header, got %v %v", height, err)
	}

	header := HeaderContent{Source: "<p>a</p>", HTML: "<p>a</p>", Lines: []string{"a"}}
	_, err := injectHeader(context.Background(), canvas, header, &stubRasterizer{err: errors.New("boom")}, 0)
	var exportErr *ExportError
	if !errors.As(err, &exportErr) || exportErr.Kind != KindRender {
		t.Fatalf("expected render error, got %v", err)
	}
}

func TestSelectRasterizer(t *testing.T) {
	unavailable := &stubRasterizer{available: false}
	available := &stubRasterizer{available: true}

	if got := SelectRasterizer(context.Background(), []Rasterizer{unavailable, available}); got != available {
		t.Fatalf("expected first available rasterizer")
	}
	if _, ok := SelectRasterizer(context.Background(), []Rasterizer{unavailable}).(TextRasterizer); !ok {
		t.Fatalf("expected text rasterizer fallback")
	}
}
