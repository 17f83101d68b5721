package export

import (
	"context"
	"strings"
	"time"

	"github.com/flosch/pongo2/v6"
	"github.com/jaytaylor/html2text"
)

// HeaderContent is the free-form header block prepared once per export.
type HeaderContent struct {
	// Source is the raw template text from the request.
	Source string
	// HTML is the rendered and sanitized fragment; empty when templating failed.
	HTML string
	// Lines is the plain text form used by CSV, XLSX and the text fallback.
	Lines []string
	// Fallback is set when templating or sanitizing failed.
	Fallback bool
}

// Empty reports whether there is nothing to inject.
func (h HeaderContent) Empty() bool {
	return strings.TrimSpace(h.Source) == ""
}

// HeaderData feeds the header template.
type HeaderData struct {
	Title   string
	Now     time.Time
	Org     *OrgInfo
	Session *Session
	Format  NormalizeOptions
}

// PrepareHeader renders the header template and reduces it to sanitized HTML
// plus plain lines. Template or sanitize failures log a warning and fall back
// to the text of the raw content.
func PrepareHeader(raw string, data HeaderData, logger Logger) HeaderContent {
	if strings.TrimSpace(raw) == "" {
		return HeaderContent{}
	}
	out := HeaderContent{Source: raw}

	rendered, err := renderHeaderTemplate(raw, data)
	if err == nil {
		rendered, err = SanitizeHTML(rendered)
	}
	if err != nil {
		logWarn(logger, "export: header content fell back to plain text: %v", err)
		out.Fallback = true
		out.Lines = TextLines(raw)
		return out
	}

	out.HTML = rendered
	out.Lines = TextLines(rendered)
	return out
}

func renderHeaderTemplate(raw string, data HeaderData) (string, error) {
	tpl, err := pongo2.FromString(raw)
	if err != nil {
		return "", NewError(KindValidation, "parse header template", err)
	}
	now := data.Now
	if data.Format.Location != nil {
		now = now.In(data.Format.Location)
	}
	locale := normalizeLocale(data.Format.Locale)
	out, err := tpl.Execute(pongo2.Context{
		"title": data.Title,
		"date":  formatLocaleTime(now, NormalizeOptions{Locale: locale, DateLayout: "02/01/2006"}),
		"time":  formatLocaleTime(now, NormalizeOptions{Locale: locale, DateLayout: "15:04"}),
		"data":  templateData(data.Org, data.Session),
	})
	if err != nil {
		return "", NewError(KindValidation, "execute header template", err)
	}
	return out, nil
}

// templateData merges organization info and session fields. Session values
// win on key collisions.
func templateData(org *OrgInfo, session *Session) map[string]any {
	data := make(map[string]any)
	if org != nil {
		for key, value := range org.Extra {
			data[key] = value
		}
		setIfPresent(data, "name", org.Name)
		setIfPresent(data, "address", org.Address)
		setIfPresent(data, "tax_id", org.TaxID)
		setIfPresent(data, "phone", org.Phone)
	}
	if session != nil {
		for key, value := range session.Data {
			data[key] = value
		}
		setIfPresent(data, "user", session.User)
	}
	return data
}

func setIfPresent(data map[string]any, key, value string) {
	if value != "" {
		data[key] = value
	}
}

// TextLines converts an HTML fragment to trimmed, non-empty text lines.
// Lines made only of heading decoration are dropped.
func TextLines(fragment string) []string {
	text, err := html2text.FromString(fragment, html2text.Options{OmitLinks: true})
	if err != nil {
		text = plainText(fragment)
	}

	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || decorationOnly(line) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func decorationOnly(line string) bool {
	return strings.Trim(line, "*-=") == ""
}

// RasterOptions size the raster to the printable page width.
type RasterOptions struct {
	WidthPx int
	WidthMM float64
}

// Raster is a rendered header block. Image rasterizers fill PNG and its
// pixel size; the text rasterizer fills Lines only.
type Raster struct {
	PNG    []byte
	Width  int
	Height int
	Lines  []string
}

// Rasterizer turns sanitized header HTML into a drawable block.
type Rasterizer interface {
	Available(ctx context.Context) bool
	Rasterize(ctx context.Context, html string, opts RasterOptions) (Raster, error)
}

// TextRasterizer is the degraded rasterizer used when no rendering surface is
// available. It is always available.
type TextRasterizer struct{}

func (TextRasterizer) Available(context.Context) bool {
	return true
}

func (TextRasterizer) Rasterize(ctx context.Context, fragment string, _ RasterOptions) (Raster, error) {
	if err := ctx.Err(); err != nil {
		return Raster{}, err
	}
	return Raster{Lines: TextLines(fragment)}, nil
}

// SelectRasterizer returns the first available candidate, falling back to
// TextRasterizer.
func SelectRasterizer(ctx context.Context, candidates []Rasterizer) Rasterizer {
	for _, candidate := range candidates {
		if candidate != nil && candidate.Available(ctx) {
			return candidate
		}
	}
	return TextRasterizer{}
}

// headerCanvas is the drawing surface the injector writes on.
type headerCanvas interface {
	ContentWidth() float64
	DrawImage(png []byte, x, y, width, height float64) error
	DrawLines(lines []string, y float64) float64
}

// mmPerInch and cssDPI convert page millimeters to CSS pixels.
const (
	mmPerInch = 25.4
	cssDPI    = 96.0
)

// MMToPixels converts a length in millimeters to CSS pixels.
func MMToPixels(mm float64) int {
	return int(mm/mmPerInch*cssDPI + 0.5)
}

// injectHeader draws the header block at y and returns the height consumed.
// Both the image and text paths advance the cursor the same way. A failing
// rasterizer aborts the export.
func injectHeader(ctx context.Context, canvas headerCanvas, header HeaderContent, rasterizer Rasterizer, y float64) (float64, error) {
	if header.Empty() {
		return 0, nil
	}
	if header.Fallback || rasterizer == nil || header.HTML == "" {
		return canvas.DrawLines(header.Lines, y), nil
	}

	width := canvas.ContentWidth()
	raster, err := rasterizer.Rasterize(ctx, header.HTML, RasterOptions{WidthPx: MMToPixels(width), WidthMM: width})
	if err != nil {
		return 0, NewError(KindRender, "header rasterization failed", err)
	}

	if len(raster.PNG) == 0 || raster.Width <= 0 || raster.Height <= 0 {
		lines := raster.Lines
		if lines == nil {
			lines = header.Lines
		}
		return canvas.DrawLines(lines, y), nil
	}

	drawWidth := width
	if natural := float64(raster.Width) / cssDPI * mmPerInch; natural < drawWidth {
		drawWidth = natural
	}
	height := drawWidth * float64(raster.Height) / float64(raster.Width)
	if err := canvas.DrawImage(raster.PNG, 0, y, drawWidth, height); err != nil {
		return 0, NewError(KindRender, "draw header image", err)
	}
	return height, nil
}
