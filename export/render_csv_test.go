package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func tagsRequest() ExportRequest {
	return ExportRequest{
		Format:  FormatCSV,
		Records: []Record{NewRecord("NAME", "Ana", "TAGS", []any{"x", "y"})},
		Columns: ColumnsMap{
			Identifier("NAME", "NAME"),
			{Key: "TAGS", Definition: ColumnDefinition{Header: "Tags"}},
		},
	}
}

func TestCSVEncoder_QuotesEveryField(t *testing.T) {
	var buf bytes.Buffer
	stats, err := CSVEncoder{}.Encode(context.Background(), newJob(t, tagsRequest()), &buf)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	want := "\uFEFF\"NAME\",\"Tags\"\n\"Ana\",\"x, y\"\n"
	if buf.String() != want {
		t.Fatalf("unexpected output %q", buf.String())
	}
	if stats.Rows != 1 || stats.Bytes != int64(len(want)) {
		t.Fatalf("unexpected stats %+v", stats)
	}
}

func TestCSVEncoder_EscapesQuotesAndUsesCRLF(t *testing.T) {
	req := ExportRequest{
		Format:  FormatCSV,
		Records: []Record{NewRecord("NOTE", "say \"hi\"\nbye")},
		CSV:     CSVOptions{UseCRLF: true, Delimiter: ';'},
	}
	var buf bytes.Buffer
	if _, err := (CSVEncoder{}).Encode(context.Background(), newJob(t, req), &buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	want := "\uFEFF\"NOTE\"\r\n\"say \"\"hi\"\"\r\nbye\"\r\n"
	if buf.String() != want {
		t.Fatalf("unexpected output %q", buf.String())
	}
	if strings.Contains(strings.ReplaceAll(buf.String(), "\r\n", ""), "\n") {
		t.Fatalf("expected consistent CRLF line endings")
	}
}

func TestCSVEncoder_HeaderLinesAndHeadNever(t *testing.T) {
	req := tagsRequest()
	req.ShowHead = HeadNever
	job := newJob(t, req)
	job.Header = HeaderContent{Source: "x", Lines: []string{"Empresa Demo", "Reporte mensual"}}

	var buf bytes.Buffer
	if _, err := (CSVEncoder{}).Encode(context.Background(), job, &buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	want := "\uFEFF\"Empresa Demo\"\n\"Reporte mensual\"\n\"Ana\",\"x, y\"\n"
	if buf.String() != want {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestCSVEncoder_RoundTrip(t *testing.T) {
	records := contactRecords()
	records = append(records, NewRecord("NAME", "Eva, \"la\" jefa", "CONTACTS", []any{
		map[string]any{"TYPE": "mail", "VALUE": "eva@example.com"},
	}))
	req := ExportRequest{Format: FormatCSV, Records: records, Columns: contactColumns()}
	job := newJob(t, req)

	var buf bytes.Buffer
	if _, err := (CSVEncoder{}).Encode(context.Background(), job, &buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	reader := csv.NewReader(strings.NewReader(strings.TrimPrefix(buf.String(), "\uFEFF")))
	rows, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}

	wantHeader := headersOf(job.Flattener.Flatten(records, job.Columns))
	if !reflect.DeepEqual(rows[0], wantHeader) {
		t.Fatalf("expected header %v, got %v", wantHeader, rows[0])
	}
	if len(rows)-1 != len(records) {
		t.Fatalf("expected %d body rows, got %d", len(records), len(rows)-1)
	}
	if rows[3][0] != "Eva, \"la\" jefa" {
		t.Fatalf("unexpected round-tripped value %q", rows[3][0])
	}
	if rows[2][1] != "" {
		t.Fatalf("expected empty cell for missing contact, got %q", rows[2][1])
	}
}

func TestCSVEncoder_Deterministic(t *testing.T) {
	req := ExportRequest{Format: FormatCSV, Records: contactRecords(), Columns: contactColumns(), Title: "Contactos"}

	var first, second bytes.Buffer
	if _, err := (CSVEncoder{}).Encode(context.Background(), newJob(t, req), &first); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := (CSVEncoder{}).Encode(context.Background(), newJob(t, req), &second); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Fatalf("expected identical output")
	}
}

func TestCSVEncoder_StopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	_, err := CSVEncoder{}.Encode(ctx, newJob(t, tagsRequest()), &buf)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestCSVEncoder_RendererOutputIsNotDateFormatted(t *testing.T) {
	stamp := func(any, Record, RenderContext) (any, error) {
		return "2024-03-05T14:30:00Z", nil
	}
	req := ExportRequest{
		Format:  FormatCSV,
		Records: []Record{NewRecord("WHEN", "ignored")},
		Columns: Columns(Simple("WHEN", "When", stamp)),
	}
	var buf bytes.Buffer
	if _, err := (CSVEncoder{}).Encode(context.Background(), newJob(t, req), &buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	want := "\uFEFF\"When\"\n\"2024-03-05T14:30:00Z\"\n"
	if buf.String() != want {
		t.Fatalf("expected renderer text kept, got %q", buf.String())
	}
}
