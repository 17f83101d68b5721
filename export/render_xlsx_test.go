package export

import (
	"bytes"
	"context"
	"testing"

	"github.com/xuri/excelize/v2"
)

func openWorkbook(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	t.Cleanup(func() { _ = file.Close() })
	return file
}

func TestXLSXEncoder_WritesReporteSheet(t *testing.T) {
	req := ExportRequest{
		Format: FormatXLSX,
		Records: []Record{
			NewRecord("NAME", "Ana", "AMOUNT", 1234.5, "QTY", "12", "CODE", "007", "AT", "2024-03-05T14:30:00Z", "MISSING", nil),
			NewRecord("NAME", "Luis", "AMOUNT", 10, "QTY", "3", "CODE", "010", "AT", "", "MISSING", nil),
		},
	}
	var buf bytes.Buffer
	stats, err := XLSXEncoder{}.Encode(context.Background(), newJob(t, req), &buf)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if stats.Rows != 2 || stats.Bytes != int64(buf.Len()) {
		t.Fatalf("unexpected stats %+v", stats)
	}

	file := openWorkbook(t, buf.Bytes())
	if sheets := file.GetSheetList(); len(sheets) != 1 || sheets[0] != "Reporte" {
		t.Fatalf("expected single Reporte sheet, got %v", sheets)
	}

	rows, err := file.GetRows("Reporte", excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 data rows, got %d", len(rows))
	}
	if rows[0][0] != "NAME" || rows[0][1] != "AMOUNT" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][1] != "1234.5" || rows[1][2] != "12" {
		t.Fatalf("expected native numbers, got %v", rows[1])
	}
	if rows[1][3] != "007" {
		t.Fatalf("expected leading-zero code kept as text, got %q", rows[1][3])
	}

	style, err := file.GetCellStyle("Reporte", "B2")
	if err != nil {
		t.Fatalf("cell style: %v", err)
	}
	if style == 0 {
		t.Fatalf("expected number format style on decimal cell")
	}

	headerStyle, err := file.GetCellStyle("Reporte", "A1")
	if err != nil {
		t.Fatalf("header style: %v", err)
	}
	def, err := file.GetStyle(headerStyle)
	if err != nil {
		t.Fatalf("get style: %v", err)
	}
	if def.Font == nil || !def.Font.Bold {
		t.Fatalf("expected bold header")
	}
}

func TestXLSXEncoder_EmptyValuesAreBlank(t *testing.T) {
	req := ExportRequest{
		Format:  FormatXLSX,
		Records: contactRecords(),
		Columns: contactColumns(),
	}
	var buf bytes.Buffer
	if _, err := (XLSXEncoder{}).Encode(context.Background(), newJob(t, req), &buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	file := openWorkbook(t, buf.Bytes())
	value, err := file.GetCellValue("Reporte", "B3")
	if err != nil {
		t.Fatalf("cell value: %v", err)
	}
	if value != "" {
		t.Fatalf("expected blank cell for missing contact, got %q", value)
	}
	header, _ := file.GetCellValue("Reporte", "E1")
	if header != "Contact #2 Value" {
		t.Fatalf("unexpected unrolled header %q", header)
	}
}

func TestXLSXEncoder_HeaderLinesPrecedeTable(t *testing.T) {
	req := tagsRequest()
	req.Format = FormatXLSX
	job := newJob(t, req)
	job.Header = HeaderContent{Source: "x", Lines: []string{"Empresa Demo"}}

	var buf bytes.Buffer
	if _, err := (XLSXEncoder{}).Encode(context.Background(), job, &buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	file := openWorkbook(t, buf.Bytes())
	rows, err := file.GetRows("Reporte")
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows) != 3 || rows[0][0] != "Empresa Demo" || rows[1][0] != "NAME" || rows[2][1] != "x, y" {
		t.Fatalf("unexpected rows %v", rows)
	}

	width, err := file.GetColWidth("Reporte", "A")
	if err != nil {
		t.Fatalf("col width: %v", err)
	}
	if width != minColumnWidth {
		t.Fatalf("expected minimum column width, got %v", width)
	}
}

func TestXLSXEncoder_BodyRowCountMatchesRecords(t *testing.T) {
	records := make([]Record, 0, 25)
	for i := 0; i < 25; i++ {
		records = append(records, NewRecord("N", i))
	}
	req := ExportRequest{Format: FormatXLSX, Records: records}

	var buf bytes.Buffer
	if _, err := (XLSXEncoder{}).Encode(context.Background(), newJob(t, req), &buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	rows, err := openWorkbook(t, buf.Bytes()).GetRows("Reporte")
	if err != nil {
		t.Fatalf("get rows: %v", err)
	}
	if len(rows)-1 != len(records) {
		t.Fatalf("expected %d data rows, got %d", len(records), len(rows)-1)
	}
}

func TestXLSXEncoder_GroupedNumberKeepsDecimalFormat(t *testing.T) {
	req := ExportRequest{
		Format:  FormatXLSX,
		Records: []Record{NewRecord("AMOUNT", "1,234", "RATE", 2.5, "QTY", 12)},
	}
	var buf bytes.Buffer
	if _, err := (XLSXEncoder{}).Encode(context.Background(), newJob(t, req), &buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	file := openWorkbook(t, buf.Bytes())

	value, err := file.GetCellValue("Reporte", "A2", excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatalf("cell value: %v", err)
	}
	if value != "1234" {
		t.Fatalf("expected grouped text stored as a number, got %q", value)
	}

	styleOf := func(cell string) int {
		id, err := file.GetCellStyle("Reporte", cell)
		if err != nil {
			t.Fatalf("cell style %s: %v", cell, err)
		}
		return id
	}
	grouped, decimal, integer := styleOf("A2"), styleOf("B2"), styleOf("C2")
	if grouped != decimal {
		t.Fatalf("expected grouped number to share the decimal style, got %d want %d", grouped, decimal)
	}
	if grouped == integer {
		t.Fatalf("grouped number must not use the integer style")
	}
}
