package export

import (
	"fmt"
	"strings"
)

// ColumnKind tags a column definition.
type ColumnKind int

const (
	// ColumnAuto infers the kind from the definition shape: children make a
	// group, anything else is a simple column.
	ColumnAuto ColumnKind = iota
	ColumnIdentifier
	ColumnSimple
	ColumnGroup
)

func (k ColumnKind) String() string {
	switch k {
	case ColumnIdentifier:
		return "identifier"
	case ColumnSimple:
		return "simple"
	case ColumnGroup:
		return "group"
	default:
		return "auto"
	}
}

// RenderContext describes the cell a Renderer is producing.
type RenderContext struct {
	Key    string
	Child  string
	Row    int
	Index  int
	Format Format
}

// Renderer customizes how a raw value becomes a display value. Returned errors
// and panics are recovered per cell; the raw value is used instead.
type Renderer func(value any, record Record, ctx RenderContext) (any, error)

// GroupChild describes one sub-column of a group column.
type GroupChild struct {
	Key        string
	Header     string
	Render     Renderer
	RenderName string
}

// ColumnDefinition is an entry of a ColumnsMap before resolution.
type ColumnDefinition struct {
	Kind       ColumnKind
	Header     string
	Render     Renderer
	RenderName string
	Children   []GroupChild
	MaxItems   int
}

// ColumnEntry pairs a schema key with its definition.
type ColumnEntry struct {
	Key        string
	Definition ColumnDefinition
}

// ColumnsMap is the ordered export schema.
type ColumnsMap []ColumnEntry

// Columns builds a ColumnsMap from entries.
func Columns(entries ...ColumnEntry) ColumnsMap {
	return ColumnsMap(entries)
}

// Identifier declares a plain field column. An empty header falls back to the key.
func Identifier(key, header string) ColumnEntry {
	return ColumnEntry{Key: key, Definition: ColumnDefinition{Kind: ColumnIdentifier, Header: header}}
}

// Simple declares a single-value column with an optional renderer.
func Simple(key, header string, render Renderer) ColumnEntry {
	return ColumnEntry{Key: key, Definition: ColumnDefinition{Kind: ColumnSimple, Header: header, Render: render}}
}

// Group declares a repeating column whose field holds an array of sub-records.
func Group(key, header string, maxItems int, children ...GroupChild) ColumnEntry {
	if children == nil {
		children = []GroupChild{}
	}
	return ColumnEntry{Key: key, Definition: ColumnDefinition{
		Kind:     ColumnGroup,
		Header:   header,
		Children: children,
		MaxItems: maxItems,
	}}
}

// Child declares a group sub-column.
func Child(key, header string, render Renderer) GroupChild {
	return GroupChild{Key: key, Header: header, Render: render}
}

// ResolvedChild is a group sub-column after resolution.
type ResolvedChild struct {
	Key    string
	Header string
	Render Renderer
}

// ResolvedColumn is the closed tagged form of a column definition.
type ResolvedColumn struct {
	Kind     ColumnKind
	Key      string
	Header   string
	Render   Renderer
	Children []ResolvedChild
	MaxItems int
}

// IsGroup reports whether the column unrolls into repeated sub-columns.
func (c ResolvedColumn) IsGroup() bool {
	return c.Kind == ColumnGroup
}

// ResolveColumns classifies every schema entry once. A nil schema derives one
// identifier column per key of the first record, in that record's order. A
// present but empty schema resolves to no columns.
// Named renderers referenced by RenderName are looked up in named.
func ResolveColumns(columns ColumnsMap, records []Record, named map[string]Renderer) ([]ResolvedColumn, error) {
	if columns == nil {
		return autoColumns(records), nil
	}

	resolved := make([]ResolvedColumn, 0, len(columns))
	seen := make(map[string]struct{}, len(columns))
	for _, entry := range columns {
		key := strings.TrimSpace(entry.Key)
		if key == "" {
			return nil, NewError(KindValidation, "column key is required", nil)
		}
		if _, dup := seen[key]; dup {
			return nil, NewError(KindValidation, fmt.Sprintf("column %q declared twice", key), nil)
		}
		seen[key] = struct{}{}

		col, err := resolveEntry(key, entry.Definition, named)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, col)
	}
	return resolved, nil
}

func resolveEntry(key string, def ColumnDefinition, named map[string]Renderer) (ResolvedColumn, error) {
	kind := def.Kind
	if kind == ColumnAuto {
		kind = ColumnSimple
		if def.Children != nil {
			kind = ColumnGroup
		}
	}

	header := strings.TrimSpace(def.Header)
	if header == "" {
		header = key
	}

	col := ResolvedColumn{Kind: kind, Key: key, Header: header}
	if kind == ColumnIdentifier {
		return col, nil
	}

	render, err := pickRenderer(def.Render, def.RenderName, named)
	if err != nil {
		return ResolvedColumn{}, err
	}
	if kind == ColumnSimple {
		col.Render = render
		return col, nil
	}

	if def.MaxItems < 0 {
		return ResolvedColumn{}, NewError(KindValidation, fmt.Sprintf("group %q max items must not be negative", key), nil)
	}
	col.MaxItems = def.MaxItems
	col.Children = make([]ResolvedChild, 0, len(def.Children))
	for _, child := range def.Children {
		childKey := strings.TrimSpace(child.Key)
		if childKey == "" {
			return ResolvedColumn{}, NewError(KindValidation, fmt.Sprintf("group %q has a child without key", key), nil)
		}
		childRender, err := pickRenderer(child.Render, child.RenderName, named)
		if err != nil {
			return ResolvedColumn{}, err
		}
		childHeader := strings.TrimSpace(child.Header)
		if childHeader == "" {
			childHeader = childKey
		}
		col.Children = append(col.Children, ResolvedChild{Key: childKey, Header: childHeader, Render: childRender})
	}
	return col, nil
}

func pickRenderer(render Renderer, name string, named map[string]Renderer) (Renderer, error) {
	if render != nil {
		return render, nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	if fn, ok := named[name]; ok && fn != nil {
		return fn, nil
	}
	return nil, NewError(KindValidation, fmt.Sprintf("renderer %q not registered", name), nil)
}

func autoColumns(records []Record) []ResolvedColumn {
	if len(records) == 0 {
		return nil
	}
	keys := records[0].Keys()
	out := make([]ResolvedColumn, 0, len(keys))
	for _, key := range keys {
		out = append(out, ResolvedColumn{Kind: ColumnIdentifier, Key: key, Header: key})
	}
	return out
}
