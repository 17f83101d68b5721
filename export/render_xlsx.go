package export

import (
	"context"
	"io"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const (
	excelMaxRows     = 1048576
	defaultSheetName = "Reporte"
	defaultDateTime  = "dd/mm/yyyy hh:mm"
	minColumnWidth   = 10
	maxColumnWidth   = 60
)

// XLSXEncoder writes a single-sheet workbook with typed cells.
type XLSXEncoder struct{}

// Encode streams the header lines, the header row and one row per record.
func (XLSXEncoder) Encode(ctx context.Context, job RenderJob, w io.Writer) (RenderStats, error) {
	opts, err := NewNormalizeOptions(job.Request.Options)
	if err != nil {
		return RenderStats{}, err
	}
	cellOpts := opts.Spreadsheet()

	columns := job.Flattener.Flatten(job.Request.Records, job.Columns)
	showHead := normalizeHeadMode(job.Request.ShowHead) != HeadNever

	total := len(job.Header.Lines) + len(job.Request.Records)
	if showHead {
		total++
	}
	if total > excelMaxRows {
		return RenderStats{}, NewError(KindValidation, "xlsx row limit exceeded", nil)
	}

	file := excelize.NewFile()
	defer func() {
		_ = file.Close()
	}()

	if current := file.GetSheetName(0); current != defaultSheetName {
		if err := file.SetSheetName(current, defaultSheetName); err != nil {
			return RenderStats{}, err
		}
	}

	stream, err := file.NewStreamWriter(defaultSheetName)
	if err != nil {
		return RenderStats{}, err
	}

	styles, err := buildXLSXStyles(file)
	if err != nil {
		return RenderStats{}, err
	}

	for i, col := range columns {
		if err := stream.SetColWidth(i+1, i+1, columnWidth(col.Header)); err != nil {
			return RenderStats{}, err
		}
	}

	rowIndex := 1
	for _, line := range job.Header.Lines {
		cell, _ := excelize.CoordinatesToCellName(1, rowIndex)
		if err := stream.SetRow(cell, []any{line}); err != nil {
			return RenderStats{}, err
		}
		if len(columns) > 1 {
			last, _ := excelize.CoordinatesToCellName(len(columns), rowIndex)
			if err := stream.MergeCell(cell, last); err != nil {
				return RenderStats{}, err
			}
		}
		rowIndex++
	}

	if showHead {
		headers := make([]any, len(columns))
		for i, col := range columns {
			headers[i] = excelize.Cell{StyleID: styles.headerID, Value: col.Header}
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowIndex)
		if err := stream.SetRow(cell, headers); err != nil {
			return RenderStats{}, err
		}
		rowIndex++
	}

	stats := RenderStats{}
	cells := make([]any, len(columns))
	for recIndex, rec := range job.Request.Records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		for i, col := range columns {
			value, numFmt := col.SpreadsheetValue(rec, recIndex, cellOpts)
			cells[i] = styles.cell(value, numFmt)
		}
		cell, _ := excelize.CoordinatesToCellName(1, rowIndex)
		if err := stream.SetRow(cell, cells); err != nil {
			return stats, err
		}
		stats.Rows++
		rowIndex++
	}

	if err := stream.Flush(); err != nil {
		return stats, err
	}

	cw := &countingWriter{w: w}
	if _, err := file.WriteTo(cw); err != nil {
		return stats, err
	}
	stats.Bytes = cw.count
	return stats, nil
}

func columnWidth(header string) float64 {
	width := utf8.RuneCountInString(header) + 2
	if width < minColumnWidth {
		width = minColumnWidth
	}
	if width > maxColumnWidth {
		width = maxColumnWidth
	}
	return float64(width)
}

type xlsxStyles struct {
	headerID  int
	dateID    int
	integerID int
	decimalID int
}

func buildXLSXStyles(file *excelize.File) (*xlsxStyles, error) {
	headerID, err := file.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	dateID, err := newCustomStyle(file, defaultDateTime)
	if err != nil {
		return nil, err
	}
	integerID, err := newCustomStyle(file, NumFmtInteger)
	if err != nil {
		return nil, err
	}
	decimalID, err := newCustomStyle(file, NumFmtDecimal)
	if err != nil {
		return nil, err
	}
	return &xlsxStyles{
		headerID:  headerID,
		dateID:    dateID,
		integerID: integerID,
		decimalID: decimalID,
	}, nil
}

func newCustomStyle(file *excelize.File, format string) (int, error) {
	return file.NewStyle(&excelize.Style{CustomNumFmt: &format})
}

// cell wraps a spreadsheet-normalized value with the style its type needs.
// numFmt is the format detected on the value before normalization; numbers
// without one fall back to detection on the converted value.
func (s *xlsxStyles) cell(value any, numFmt string) excelize.Cell {
	switch v := value.(type) {
	case time.Time:
		return excelize.Cell{Value: v, StyleID: s.dateID}
	case int64, float64:
		if numFmt == "" {
			numFmt = DetectFormat(v)
		}
		switch numFmt {
		case NumFmtInteger:
			return excelize.Cell{Value: v, StyleID: s.integerID}
		case NumFmtDecimal:
			return excelize.Cell{Value: v, StyleID: s.decimalID}
		}
		return excelize.Cell{Value: stringify(v)}
	case bool:
		return excelize.Cell{Value: v}
	default:
		return excelize.Cell{Value: stringify(v)}
	}
}
