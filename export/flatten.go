package export

import (
	"fmt"
)

// FlattenedColumn is one single-valued output column. It is derived per
// export and never persisted.
type FlattenedColumn struct {
	Header      string
	DataIndex   string
	Key         string
	Child       string
	GroupHeader string
	ChildHeader string
	// Repeat is the group array index read by Value, or -1 for scalar columns.
	Repeat      int
	Grouped     bool
	Placeholder bool

	render Renderer
	logger Logger
	format Format
}

// IsScalar reports whether the column reads a top-level field.
func (c FlattenedColumn) IsScalar() bool {
	return !c.Grouped
}

// Value extracts and normalizes the column value from a record at position row.
func (c FlattenedColumn) Value(rec Record, row int, opts NormalizeOptions) any {
	return c.ValueAt(rec, row, c.Repeat, opts)
}

// ValueAt is Value reading group element index instead of the column's own
// repeat. Scalar columns ignore index. Out-of-range indices yield "".
func (c FlattenedColumn) ValueAt(rec Record, row, index int, opts NormalizeOptions) any {
	raw, rendered := c.cell(rec, row, index)
	if rendered {
		opts.SkipDateFormat = true
	}
	return Normalize(raw, opts)
}

// SpreadsheetValue is Value in spreadsheet mode together with the number
// format of the raw value. The format is detected before numeric text loses
// its grouping separators.
func (c FlattenedColumn) SpreadsheetValue(rec Record, row int, opts NormalizeOptions) (any, string) {
	raw, rendered := c.cell(rec, row, c.Repeat)
	if rendered {
		opts.SkipDateFormat = true
	}
	opts.ForSpreadsheetCell = true
	return Normalize(raw, opts), DetectFormat(raw)
}

func (c FlattenedColumn) cell(rec Record, row, index int) (any, bool) {
	if c.Placeholder {
		return nil, false
	}

	ctx := RenderContext{Key: c.Key, Child: c.Child, Row: row, Index: -1, Format: c.format}
	var raw any
	if !c.Grouped {
		raw, _ = rec.Get(c.Key)
	} else {
		field, _ := rec.Get(c.Key)
		items, ok := asSlice(field)
		if !ok || index < 0 || index >= len(items) {
			return nil, false
		}
		ctx.Index = index
		raw, _ = fieldOf(items[index], c.Child)
	}

	if c.render == nil {
		return raw, false
	}
	return safeRender(c.logger, c.render, raw, rec, ctx)
}

func safeRender(logger Logger, fn Renderer, raw any, rec Record, ctx RenderContext) (value any, rendered bool) {
	defer func() {
		if r := recover(); r != nil {
			logWarn(logger, "export: renderer for %s row %d panicked: %v", cellName(ctx), ctx.Row, r)
			value, rendered = raw, false
		}
	}()

	out, err := fn(raw, rec, ctx)
	if err != nil {
		logWarn(logger, "export: renderer for %s row %d failed: %v", cellName(ctx), ctx.Row, err)
		return raw, false
	}
	return out, true
}

func cellName(ctx RenderContext) string {
	if ctx.Child == "" {
		return fmt.Sprintf("%q", ctx.Key)
	}
	return fmt.Sprintf("%q[%d].%q", ctx.Key, ctx.Index, ctx.Child)
}

func logWarn(logger Logger, format string, args ...any) {
	if logger == nil {
		return
	}
	logger.Warnf(format, args...)
}

// HeadCell is one cell of a possibly spanning table head.
type HeadCell struct {
	Text    string
	ColSpan int
	RowSpan int
}

// TableLayout separates head and body for document output.
type TableLayout struct {
	Head     [][]HeadCell
	Columns  []FlattenedColumn
	Grouped  bool
	Vertical bool
}

// RowsFor returns the number of body rows a record occupies. Horizontal and
// flat layouts always use one row; vertical layouts use one row per group
// element, at least one.
func (t TableLayout) RowsFor(rec Record) int {
	if !t.Vertical {
		return 1
	}
	rows := 1
	seen := make(map[string]struct{})
	for _, col := range t.Columns {
		if !col.Grouped {
			continue
		}
		if _, ok := seen[col.Key]; ok {
			continue
		}
		seen[col.Key] = struct{}{}
		field, _ := rec.Get(col.Key)
		if items, ok := asSlice(field); ok && len(items) > rows {
			rows = len(items)
		}
	}
	return rows
}

// Value returns the normalized cell for column col on sub-row sub of a
// record. Blank padding is returned as "".
func (t TableLayout) Value(col FlattenedColumn, rec Record, row, sub int, opts NormalizeOptions) any {
	if !t.Vertical {
		return col.Value(rec, row, opts)
	}
	if !col.Grouped {
		if sub > 0 {
			return ""
		}
		return col.Value(rec, row, opts)
	}
	return col.ValueAt(rec, row, sub, opts)
}

// Padding reports whether a vertical sub-row cell is blank filler: scalar
// columns below the first sub-row and group cells past the record's array.
func (t TableLayout) Padding(col FlattenedColumn, rec Record, sub int) bool {
	if !t.Vertical || sub == 0 {
		return false
	}
	if !col.Grouped || col.Placeholder {
		return true
	}
	field, _ := rec.Get(col.Key)
	items, _ := asSlice(field)
	return sub >= len(items)
}

// Flattener turns resolved columns into output columns.
type Flattener struct {
	Logger Logger
	Format Format
}

// Flatten unrolls every group column into effectiveMax repeats of its
// children, in schema order.
func (f Flattener) Flatten(records []Record, columns []ResolvedColumn) []FlattenedColumn {
	out := make([]FlattenedColumn, 0, len(columns))
	for _, col := range columns {
		if !col.IsGroup() {
			out = append(out, f.scalar(col))
			continue
		}
		if len(col.Children) == 0 {
			out = append(out, f.placeholder(col))
			continue
		}
		repeats := EffectiveMax(records, col)
		for i := 0; i < repeats; i++ {
			for _, child := range col.Children {
				out = append(out, f.child(col, child, i))
			}
		}
	}
	return out
}

// Layout builds the table head and body columns for document output.
func (f Flattener) Layout(records []Record, columns []ResolvedColumn, layout GroupLayout) TableLayout {
	grouped := false
	for _, col := range columns {
		if col.IsGroup() {
			grouped = true
			break
		}
	}

	if !grouped {
		flat := f.Flatten(records, columns)
		head := make([]HeadCell, 0, len(flat))
		for _, col := range flat {
			head = append(head, HeadCell{Text: col.Header, ColSpan: 1, RowSpan: 1})
		}
		return TableLayout{Head: [][]HeadCell{head}, Columns: flat}
	}

	if normalizeGroupLayout(layout) == GroupLayoutVertical {
		return f.verticalLayout(columns)
	}
	return f.horizontalLayout(records, columns)
}

func (f Flattener) horizontalLayout(records []Record, columns []ResolvedColumn) TableLayout {
	top := make([]HeadCell, 0, len(columns))
	bottom := make([]HeadCell, 0)
	body := make([]FlattenedColumn, 0, len(columns))

	for _, col := range columns {
		switch {
		case !col.IsGroup():
			top = append(top, HeadCell{Text: col.Header, ColSpan: 1, RowSpan: 2})
			body = append(body, f.scalar(col))
		case len(col.Children) == 0:
			top = append(top, HeadCell{Text: col.Header, ColSpan: 1, RowSpan: 2})
			body = append(body, f.placeholder(col))
		default:
			repeats := EffectiveMax(records, col)
			for i := 0; i < repeats; i++ {
				top = append(top, HeadCell{
					Text:    fmt.Sprintf("%s #%d", col.Header, i+1),
					ColSpan: len(col.Children),
					RowSpan: 1,
				})
				for _, child := range col.Children {
					bottom = append(bottom, HeadCell{Text: child.Header, ColSpan: 1, RowSpan: 1})
					body = append(body, f.child(col, child, i))
				}
			}
		}
	}
	return TableLayout{Head: [][]HeadCell{top, bottom}, Columns: body, Grouped: true}
}

func (f Flattener) verticalLayout(columns []ResolvedColumn) TableLayout {
	top := make([]HeadCell, 0, len(columns))
	bottom := make([]HeadCell, 0)
	body := make([]FlattenedColumn, 0, len(columns))

	for _, col := range columns {
		switch {
		case !col.IsGroup():
			top = append(top, HeadCell{Text: col.Header, ColSpan: 1, RowSpan: 2})
			body = append(body, f.scalar(col))
		case len(col.Children) == 0:
			top = append(top, HeadCell{Text: col.Header, ColSpan: 1, RowSpan: 2})
			body = append(body, f.placeholder(col))
		default:
			top = append(top, HeadCell{Text: col.Header, ColSpan: len(col.Children), RowSpan: 1})
			for _, child := range col.Children {
				bottom = append(bottom, HeadCell{Text: child.Header, ColSpan: 1, RowSpan: 1})
				vertical := f.child(col, child, 0)
				vertical.Header = child.Header
				vertical.DataIndex = col.Key + "." + child.Key
				body = append(body, vertical)
			}
		}
	}
	return TableLayout{Head: [][]HeadCell{top, bottom}, Columns: body, Grouped: true, Vertical: true}
}

func (f Flattener) scalar(col ResolvedColumn) FlattenedColumn {
	return FlattenedColumn{
		Header:    col.Header,
		DataIndex: col.Key,
		Key:       col.Key,
		Repeat:    -1,
		render:    col.Render,
		logger:    f.Logger,
		format:    f.Format,
	}
}

func (f Flattener) placeholder(col ResolvedColumn) FlattenedColumn {
	return FlattenedColumn{
		Header:      col.Header,
		DataIndex:   col.Key,
		Key:         col.Key,
		GroupHeader: col.Header,
		Repeat:      -1,
		Grouped:     true,
		Placeholder: true,
		logger:      f.Logger,
		format:      f.Format,
	}
}

func (f Flattener) child(col ResolvedColumn, child ResolvedChild, index int) FlattenedColumn {
	return FlattenedColumn{
		Header:      fmt.Sprintf("%s #%d %s", col.Header, index+1, child.Header),
		DataIndex:   fmt.Sprintf("%s.%d.%s", col.Key, index, child.Key),
		Key:         col.Key,
		Child:       child.Key,
		GroupHeader: col.Header,
		ChildHeader: child.Header,
		Repeat:      index,
		Grouped:     true,
		render:      child.Render,
		logger:      f.Logger,
		format:      f.Format,
	}
}

// EffectiveMax returns how many times a group column repeats: the larger of
// its MaxItems and the longest array observed across records, at least 1.
func EffectiveMax(records []Record, col ResolvedColumn) int {
	longest := col.MaxItems
	for _, rec := range records {
		field, ok := rec.Get(col.Key)
		if !ok {
			continue
		}
		if items, ok := asSlice(field); ok && len(items) > longest {
			longest = len(items)
		}
	}
	if longest < 1 {
		return 1
	}
	return longest
}
