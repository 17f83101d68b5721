package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMargin        = 10.0
	pdfFooterSpace   = 12.0
	pdfLineHeight    = 4.0
	pdfCellPadding   = 1.0
	pdfMinColWidth   = 12.0
	pdfMaxColWidth   = 80.0
	pdfSampleRows    = 50
	pdfEmptyCell     = "N/A"
	pdfDefaultFamily = "Helvetica"
	pdfDefaultSize   = "A4"
)

// PDFEncoder draws a paginated document: page header, optional injected
// header block and the data table with repeating head and page footer.
type PDFEncoder struct {
	PageSize   string
	FontFamily string
	// Uncompressed writes plain content streams, mostly useful for inspection.
	Uncompressed bool
}

// Encode lays out the document and writes it to w.
func (e PDFEncoder) Encode(ctx context.Context, job RenderJob, w io.Writer) (RenderStats, error) {
	opts, err := NewNormalizeOptions(job.Request.Options)
	if err != nil {
		return RenderStats{}, err
	}

	doc := e.newDocument(job)
	doc.pdf.AddPage()

	y, err := doc.drawPageHeader(ctx, job, opts)
	if err != nil {
		return RenderStats{}, err
	}

	layout := job.Flattener.Layout(job.Request.Records, job.Columns, job.Request.GroupLayout)
	table := newPDFTable(doc, layout, job.Request.Records, opts)

	stats := RenderStats{}
	headMode := normalizeHeadMode(job.Request.ShowHead)
	if headMode != HeadNever {
		y = table.ensureRoom(y, table.headHeight()+table.minRowHeight())
		y = table.drawHead(y)
	}

	for rowIndex, rec := range job.Request.Records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		for sub := 0; sub < layout.RowsFor(rec); sub++ {
			cells, height := table.rowCells(rec, rowIndex, sub)
			if y+height > doc.bottom() {
				doc.pdf.AddPage()
				y = doc.top
				if headMode == HeadEveryPage {
					y = table.drawHead(y)
				}
			}
			y = table.drawRow(y, cells, height)
		}
		stats.Rows++
	}

	if err := doc.pdf.Error(); err != nil {
		return stats, NewError(KindRender, "pdf layout failed", err)
	}

	cw := &countingWriter{w: w}
	if err := doc.pdf.Output(cw); err != nil {
		return stats, NewError(KindRender, "write pdf", err)
	}
	stats.Bytes = cw.count
	return stats, nil
}

type pdfDocument struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	family string
	left   float64
	top    float64
	width  float64
	height float64
	images int
}

func (e PDFEncoder) newDocument(job RenderJob) *pdfDocument {
	orientation := "P"
	if normalizeOrientation(job.Request.Orientation) == OrientationLandscape {
		orientation = "L"
	}
	size := e.PageSize
	if size == "" {
		size = pdfDefaultSize
	}
	family := e.FontFamily
	if family == "" {
		family = pdfDefaultFamily
	}

	pdf := fpdf.New(orientation, "mm", size, "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfMargin)
	pdf.SetCreationDate(job.Now)
	pdf.SetModificationDate(job.Now)
	pdf.SetCatalogSort(true)
	pdf.SetCompression(!e.Uncompressed)
	pdf.AliasNbPages("")

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	if title := strings.TrimSpace(job.Request.Title); title != "" {
		pdf.SetTitle(title, true)
	}
	pdf.SetCreator("go-report", true)

	pageWidth, pageHeight := pdf.GetPageSize()
	doc := &pdfDocument{
		pdf:    pdf,
		tr:     tr,
		family: family,
		left:   pdfMargin,
		top:    pdfMargin,
		width:  pageWidth - 2*pdfMargin,
		height: pageHeight,
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfMargin)
		pdf.SetFont(family, "I", 8)
		pdf.SetTextColor(90, 90, 90)
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("Página %d de {nb}", pdf.PageNo())), "", 0, "C", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	})
	return doc
}

func (d *pdfDocument) bottom() float64 {
	return d.height - pdfFooterSpace
}

// drawPageHeader writes the title, organization and session blocks, the rule
// and the injected header content. It returns the cursor below them.
func (d *pdfDocument) drawPageHeader(ctx context.Context, job RenderJob, opts NormalizeOptions) (float64, error) {
	pdf := d.pdf
	y := d.top

	if title := strings.TrimSpace(job.Request.Title); title != "" {
		pdf.SetFont(d.family, "B", 14)
		pdf.SetXY(d.left, y)
		pdf.CellFormat(d.width, 7, d.tr(title), "", 0, "C", false, 0, "")
		y += 9
	}

	pdf.SetFont(d.family, "", 9)
	leftY := y
	for i, line := range orgLines(job.Request.BusinessInfo) {
		if i == 0 {
			pdf.SetFont(d.family, "B", 9)
		} else {
			pdf.SetFont(d.family, "", 9)
		}
		pdf.SetXY(d.left, leftY)
		pdf.CellFormat(d.width/2, pdfLineHeight+0.5, d.tr(line), "", 0, "L", false, 0, "")
		leftY += pdfLineHeight + 0.5
	}

	pdf.SetFont(d.family, "", 9)
	rightY := y
	for _, line := range sessionLines(job, opts) {
		pdf.SetXY(d.left+d.width/2, rightY)
		pdf.CellFormat(d.width/2, pdfLineHeight+0.5, d.tr(line), "", 0, "R", false, 0, "")
		rightY += pdfLineHeight + 0.5
	}

	y = max(leftY, rightY) + 2
	pdf.SetLineWidth(0.3)
	pdf.Line(d.left, y, d.left+d.width, y)
	y += 4

	consumed, err := injectHeader(ctx, d, job.Header, job.Rasterizer, y)
	if err != nil {
		return 0, err
	}
	if consumed > 0 {
		y += consumed + 3
	}
	return y, nil
}

func orgLines(org *OrgInfo) []string {
	if org == nil {
		return nil
	}
	var lines []string
	for _, value := range []string{org.Name, org.Address, org.TaxID, org.Phone} {
		if value = strings.TrimSpace(value); value != "" {
			lines = append(lines, value)
		}
	}
	return lines
}

func sessionLines(job RenderJob, opts NormalizeOptions) []string {
	now := job.Now
	if opts.Location != nil {
		now = now.In(opts.Location)
	}
	lines := []string{
		"Fecha: " + formatLocaleTime(now, NormalizeOptions{Locale: opts.Locale, DateLayout: "02/01/2006"}),
		"Hora: " + formatLocaleTime(now, NormalizeOptions{Locale: opts.Locale, DateLayout: "15:04"}),
	}
	if job.Request.Session != nil {
		if user := strings.TrimSpace(job.Request.Session.User); user != "" {
			lines = append(lines, "Usuario: "+user)
		}
	}
	return lines
}

// ContentWidth implements headerCanvas.
func (d *pdfDocument) ContentWidth() float64 {
	return d.width
}

// DrawImage implements headerCanvas. x is relative to the left margin.
func (d *pdfDocument) DrawImage(png []byte, x, y, width, height float64) error {
	d.images++
	name := fmt.Sprintf("header-%d", d.images)
	options := fpdf.ImageOptions{ImageType: "PNG"}
	d.pdf.RegisterImageOptionsReader(name, options, bytes.NewReader(png))
	if err := d.pdf.Error(); err != nil {
		return err
	}
	d.pdf.ImageOptions(name, d.left+x, y, width, height, false, options, 0, "")
	return d.pdf.Error()
}

// DrawLines implements headerCanvas, wrapping each line to the content width.
func (d *pdfDocument) DrawLines(lines []string, y float64) float64 {
	start := y
	d.pdf.SetFont(d.family, "", 9)
	for _, line := range lines {
		for _, part := range d.pdf.SplitLines([]byte(d.tr(line)), d.width) {
			d.pdf.SetXY(d.left, y)
			d.pdf.CellFormat(d.width, pdfLineHeight+0.5, string(part), "", 0, "L", false, 0, "")
			y += pdfLineHeight + 0.5
		}
	}
	return y - start
}

type pdfTable struct {
	doc    *pdfDocument
	layout TableLayout
	opts   NormalizeOptions
	widths []float64
}

func newPDFTable(doc *pdfDocument, layout TableLayout, records []Record, opts NormalizeOptions) *pdfTable {
	t := &pdfTable{doc: doc, layout: layout, opts: opts}
	t.widths = t.columnWidths(records)
	return t
}

// columnWidths sizes columns from the header and a sample of body text, then
// scales them to fill the content width.
func (t *pdfTable) columnWidths(records []Record) []float64 {
	pdf := t.doc.pdf
	n := len(t.layout.Columns)
	if n == 0 {
		return nil
	}

	natural := make([]float64, n)
	pdf.SetFont(t.doc.family, "B", 8)
	for i, col := range t.layout.Columns {
		natural[i] = pdf.GetStringWidth(t.doc.tr(col.Header)) + 2*pdfCellPadding
	}
	pdf.SetFont(t.doc.family, "", 8)
	for rowIndex, rec := range records {
		if rowIndex >= pdfSampleRows {
			break
		}
		for i, col := range t.layout.Columns {
			text := t.cellText(col, rec, rowIndex, 0)
			if width := pdf.GetStringWidth(t.doc.tr(text)) + 2*pdfCellPadding; width > natural[i] {
				natural[i] = width
			}
		}
	}

	total := 0.0
	for i := range natural {
		natural[i] = min(max(natural[i], pdfMinColWidth), pdfMaxColWidth)
		total += natural[i]
	}
	scale := t.doc.width / total
	for i := range natural {
		natural[i] *= scale
	}
	return natural
}

func (t *pdfTable) cellText(col FlattenedColumn, rec Record, row, sub int) string {
	if t.layout.Padding(col, rec, sub) {
		return ""
	}
	text := stringify(t.layout.Value(col, rec, row, sub, t.opts))
	if strings.TrimSpace(text) == "" {
		return pdfEmptyCell
	}
	return text
}

func (t *pdfTable) minRowHeight() float64 {
	return pdfLineHeight + 2*pdfCellPadding
}

func (t *pdfTable) headHeight() float64 {
	return float64(len(t.layout.Head)) * t.minRowHeight()
}

// ensureRoom starts a new page when height does not fit below y.
func (t *pdfTable) ensureRoom(y, height float64) float64 {
	if y+height <= t.doc.bottom() {
		return y
	}
	t.doc.pdf.AddPage()
	return t.doc.top
}

// drawHead draws one or two head rows. Cells with RowSpan 2 cover both rows;
// second-row cells fill the remaining columns in order.
func (t *pdfTable) drawHead(y float64) float64 {
	pdf := t.doc.pdf
	rowHeight := t.minRowHeight()
	pdf.SetFont(t.doc.family, "B", 8)
	pdf.SetFillColor(230, 230, 230)

	covered := make([]bool, len(t.widths))
	col := 0
	for _, cell := range t.layout.Head[0] {
		span := max(cell.ColSpan, 1)
		if col+span > len(t.widths) {
			span = len(t.widths) - col
		}
		if span <= 0 {
			break
		}
		width := t.spanWidth(col, span)
		height := rowHeight * float64(max(cell.RowSpan, 1))
		t.drawBox(t.columnX(col), y, width, height, cell.Text, "C", true)
		if cell.RowSpan > 1 {
			for i := col; i < col+span; i++ {
				covered[i] = true
			}
		}
		col += span
	}

	if len(t.layout.Head) > 1 {
		next := 0
		for i := range t.widths {
			if covered[i] || next >= len(t.layout.Head[1]) {
				continue
			}
			cell := t.layout.Head[1][next]
			next++
			t.drawBox(t.columnX(i), y+rowHeight, t.widths[i], rowHeight, cell.Text, "C", true)
		}
	}

	pdf.SetFont(t.doc.family, "", 8)
	return y + t.headHeight()
}

func (t *pdfTable) rowCells(rec Record, row, sub int) ([]string, float64) {
	pdf := t.doc.pdf
	pdf.SetFont(t.doc.family, "", 8)
	cells := make([]string, len(t.layout.Columns))
	lines := 1
	for i, col := range t.layout.Columns {
		cells[i] = t.doc.tr(t.cellText(col, rec, row, sub))
		if n := len(pdf.SplitLines([]byte(cells[i]), t.widths[i]-2*pdfCellPadding)); n > lines {
			lines = n
		}
	}
	return cells, float64(lines)*pdfLineHeight + 2*pdfCellPadding
}

func (t *pdfTable) drawRow(y float64, cells []string, height float64) float64 {
	for i, text := range cells {
		x := t.columnX(i)
		t.doc.pdf.Rect(x, y, t.widths[i], height, "D")
		t.doc.pdf.SetXY(x+pdfCellPadding, y+pdfCellPadding)
		t.doc.pdf.MultiCell(t.widths[i]-2*pdfCellPadding, pdfLineHeight, text, "", "L", false)
	}
	return y + height
}

func (t *pdfTable) drawBox(x, y, width, height float64, text, align string, fill bool) {
	pdf := t.doc.pdf
	style := "D"
	if fill {
		style = "FD"
	}
	pdf.Rect(x, y, width, height, style)
	lines := pdf.SplitLines([]byte(t.doc.tr(text)), width-2*pdfCellPadding)
	textHeight := float64(len(lines)) * pdfLineHeight
	offset := (height - textHeight) / 2
	if offset < 0 {
		offset = 0
	}
	for i, line := range lines {
		pdf.SetXY(x+pdfCellPadding, y+offset+float64(i)*pdfLineHeight)
		pdf.CellFormat(width-2*pdfCellPadding, pdfLineHeight, string(line), "", 0, align, false, 0, "")
	}
}

func (t *pdfTable) columnX(index int) float64 {
	x := t.doc.left
	for i := 0; i < index; i++ {
		x += t.widths[i]
	}
	return x
}

func (t *pdfTable) spanWidth(start, span int) float64 {
	width := 0.0
	for i := start; i < start+span && i < len(t.widths); i++ {
		width += t.widths[i]
	}
	return width
}
