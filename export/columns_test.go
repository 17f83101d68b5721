package export

import (
	"encoding/json"
	"errors"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestResolveColumns_Kinds(t *testing.T) {
	upper := func(value any, _ Record, _ RenderContext) (any, error) { return value, nil }
	columns := Columns(
		Identifier("NAME", ""),
		Simple("AGE", "Edad", upper),
		Group("CONTACTS", "Contacto", 0, Child("TYPE", "", nil)),
	)

	resolved, err := ResolveColumns(columns, nil, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(resolved) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(resolved))
	}
	if resolved[0].Kind != ColumnIdentifier || resolved[0].Header != "NAME" {
		t.Fatalf("expected identifier with key header, got %+v", resolved[0])
	}
	if resolved[1].Kind != ColumnSimple || resolved[1].Header != "Edad" || resolved[1].Render == nil {
		t.Fatalf("unexpected simple column %+v", resolved[1])
	}
	if !resolved[2].IsGroup() || resolved[2].Children[0].Header != "TYPE" {
		t.Fatalf("unexpected group column %+v", resolved[2])
	}
}

func TestResolveColumns_AutoSchemaFollowsFirstRecord(t *testing.T) {
	records := []Record{
		NewRecord("b", 1, "a", 2, "c", 3),
		NewRecord("z", 1),
	}
	resolved, err := ResolveColumns(nil, records, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	var keys []string
	for _, col := range resolved {
		if col.Kind != ColumnIdentifier {
			t.Fatalf("expected identifier columns, got %v", col.Kind)
		}
		keys = append(keys, col.Header)
	}
	if len(keys) != 3 || keys[0] != "b" || keys[1] != "a" || keys[2] != "c" {
		t.Fatalf("expected [b a c], got %v", keys)
	}
}

func TestResolveColumns_EmptySchemaIsNotAutoSchema(t *testing.T) {
	var req ExportRequest
	if err := json.Unmarshal([]byte(`{"format":"csv","records":[{"a":1,"b":2}],"columns":{}}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.Columns == nil {
		t.Fatalf("expected empty non-nil columns")
	}
	resolved, err := ResolveColumns(req.Columns, req.Records, nil)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(resolved) != 0 {
		t.Fatalf("expected no columns for an empty schema, got %d", len(resolved))
	}
}

func TestResolveColumns_RejectsDuplicateKeys(t *testing.T) {
	_, err := ResolveColumns(Columns(Identifier("A", ""), Identifier("A", "again")), nil, nil)
	var exportErr *ExportError
	if !errors.As(err, &exportErr) || exportErr.Kind != KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestResolveColumns_NamedRenderers(t *testing.T) {
	columns := ColumnsMap{{Key: "NAME", Definition: ColumnDefinition{Kind: ColumnSimple, RenderName: "upper"}}}

	resolved, err := ResolveColumns(columns, nil, DefaultRenderers())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved[0].Render == nil {
		t.Fatalf("expected named renderer to be bound")
	}

	if _, err := ResolveColumns(columns, nil, nil); err == nil {
		t.Fatalf("expected error for unregistered renderer")
	}
}

func TestColumnsMap_UnmarshalJSONShapes(t *testing.T) {
	var columns ColumnsMap
	src := `{
		"NAME": "Nombre",
		"TAGS": {"header": "Tags"},
		"CONTACTS": {"header": "Contact", "maxItems": 3, "children": [{"key": "TYPE", "header": "Type"}]},
		"EMPTY": {"header": "Empty", "children": []},
		"RAW": null
	}`
	if err := json.Unmarshal([]byte(src), &columns); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	want := []struct {
		key  string
		kind ColumnKind
	}{
		{"NAME", ColumnIdentifier},
		{"TAGS", ColumnSimple},
		{"CONTACTS", ColumnGroup},
		{"EMPTY", ColumnGroup},
		{"RAW", ColumnIdentifier},
	}
	if len(columns) != len(want) {
		t.Fatalf("expected %d columns, got %d", len(want), len(columns))
	}
	for i, w := range want {
		if columns[i].Key != w.key || columns[i].Definition.Kind != w.kind {
			t.Fatalf("column %d: expected %s/%s, got %s/%s", i, w.key, w.kind, columns[i].Key, columns[i].Definition.Kind)
		}
	}
	if columns[0].Definition.Header != "Nombre" {
		t.Fatalf("expected identifier header from string value, got %q", columns[0].Definition.Header)
	}
	if columns[2].Definition.MaxItems != 3 || len(columns[2].Definition.Children) != 1 {
		t.Fatalf("unexpected group definition %+v", columns[2].Definition)
	}
}

func TestColumnsMap_UnmarshalJSONNullIsAutoSchema(t *testing.T) {
	var req ExportRequest
	if err := json.Unmarshal([]byte(`{"format":"csv","records":[{"a":1}],"columns":null}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.Columns != nil {
		t.Fatalf("expected nil columns, got %+v", req.Columns)
	}
}

func TestColumnsMap_UnmarshalYAMLKeepsOrder(t *testing.T) {
	var columns ColumnsMap
	src := `
ZETA: Last
ALPHA:
  header: First
  render: upper
CONTACTS:
  header: Contact
  max_items: 2
  children:
    - key: TYPE
      header: Type
`
	if err := yaml.Unmarshal([]byte(src), &columns); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(columns) != 3 || columns[0].Key != "ZETA" || columns[1].Key != "ALPHA" || columns[2].Key != "CONTACTS" {
		t.Fatalf("unexpected order %+v", columns)
	}
	if columns[1].Definition.RenderName != "upper" {
		t.Fatalf("expected render name, got %q", columns[1].Definition.RenderName)
	}
	if columns[2].Definition.Kind != ColumnGroup || columns[2].Definition.MaxItems != 2 {
		t.Fatalf("unexpected group %+v", columns[2].Definition)
	}
}
