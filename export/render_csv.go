package export

import (
	"bufio"
	"context"
	"io"
	"strings"
)

const utf8BOM = "\uFEFF"

// CSVEncoder writes delimited text. Every field is quoted, the file starts
// with a UTF-8 byte-order mark and uses one line ending throughout.
type CSVEncoder struct{}

// Encode streams one row per record.
func (CSVEncoder) Encode(ctx context.Context, job RenderJob, w io.Writer) (RenderStats, error) {
	opts, err := NewNormalizeOptions(job.Request.Options)
	if err != nil {
		return RenderStats{}, err
	}

	cw := &countingWriter{w: w}
	writer := newQuotedWriter(cw, job.Request.CSV)
	if err := writer.writeRaw(utf8BOM); err != nil {
		return RenderStats{}, err
	}

	for _, line := range job.Header.Lines {
		if err := writer.Write([]string{line}); err != nil {
			return RenderStats{}, err
		}
	}

	columns := job.Flattener.Flatten(job.Request.Records, job.Columns)
	if normalizeHeadMode(job.Request.ShowHead) != HeadNever {
		headers := make([]string, len(columns))
		for i, col := range columns {
			headers[i] = col.Header
		}
		if err := writer.Write(headers); err != nil {
			return RenderStats{}, err
		}
	}

	stats := RenderStats{}
	fields := make([]string, len(columns))
	for rowIndex, rec := range job.Request.Records {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		for i, col := range columns {
			fields[i] = stringify(col.Value(rec, rowIndex, opts))
		}
		if err := writer.Write(fields); err != nil {
			return stats, err
		}
		stats.Rows++
	}

	if err := writer.Flush(); err != nil {
		return stats, err
	}
	stats.Bytes = cw.count
	return stats, nil
}

// quotedWriter is a CSV writer that quotes every field. encoding/csv only
// quotes fields that need it.
type quotedWriter struct {
	w       *bufio.Writer
	comma   string
	newline string
}

func newQuotedWriter(w io.Writer, opts CSVOptions) *quotedWriter {
	comma := ","
	if opts.Delimiter != 0 && opts.Delimiter != '"' && opts.Delimiter != '\r' && opts.Delimiter != '\n' {
		comma = string(opts.Delimiter)
	}
	newline := "\n"
	if opts.UseCRLF {
		newline = "\r\n"
	}
	return &quotedWriter{w: bufio.NewWriter(w), comma: comma, newline: newline}
}

func (q *quotedWriter) Write(fields []string) error {
	for i, field := range fields {
		if i > 0 {
			if _, err := q.w.WriteString(q.comma); err != nil {
				return err
			}
		}
		if err := q.w.WriteByte('"'); err != nil {
			return err
		}
		if _, err := q.w.WriteString(strings.ReplaceAll(q.normalizeNewlines(field), `"`, `""`)); err != nil {
			return err
		}
		if err := q.w.WriteByte('"'); err != nil {
			return err
		}
	}
	_, err := q.w.WriteString(q.newline)
	return err
}

func (q *quotedWriter) normalizeNewlines(field string) string {
	if !strings.ContainsRune(field, '\n') && !strings.ContainsRune(field, '\r') {
		return field
	}
	field = strings.ReplaceAll(field, "\r\n", "\n")
	field = strings.ReplaceAll(field, "\r", "\n")
	if q.newline != "\n" {
		field = strings.ReplaceAll(field, "\n", q.newline)
	}
	return field
}

func (q *quotedWriter) writeRaw(s string) error {
	_, err := q.w.WriteString(s)
	return err
}

func (q *quotedWriter) Flush() error {
	return q.w.Flush()
}
