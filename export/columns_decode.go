package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

type childSpec struct {
	Key    string `json:"key" yaml:"key"`
	Header string `json:"header" yaml:"header"`
	Render string `json:"render" yaml:"render"`
}

type columnSpec struct {
	Header        string       `json:"header" yaml:"header"`
	Render        string       `json:"render" yaml:"render"`
	Children      *[]childSpec `json:"children" yaml:"children"`
	MaxItems      int          `json:"maxItems" yaml:"maxItems"`
	MaxItemsSnake int          `json:"max_items" yaml:"max_items"`
}

func (s columnSpec) definition() ColumnDefinition {
	if s.Children == nil {
		return ColumnDefinition{Kind: ColumnSimple, Header: s.Header, RenderName: s.Render}
	}
	children := make([]GroupChild, 0, len(*s.Children))
	for _, child := range *s.Children {
		children = append(children, GroupChild{Key: child.Key, Header: child.Header, RenderName: child.Render})
	}
	maxItems := s.MaxItems
	if maxItems == 0 {
		maxItems = s.MaxItemsSnake
	}
	return ColumnDefinition{
		Kind:       ColumnGroup,
		Header:     s.Header,
		RenderName: s.Render,
		Children:   children,
		MaxItems:   maxItems,
	}
}

// UnmarshalJSON decodes an ordered schema object. A string value declares an
// identifier column with that header, an object with "children" declares a
// group and any other object a simple column. JSON null leaves the schema nil
// so the export derives columns from the first record.
func (c *ColumnsMap) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*c = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return NewError(KindValidation, "columns must be a JSON object", nil)
	}

	out := ColumnsMap{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		def, err := decodeColumnJSON(key, raw)
		if err != nil {
			return err
		}
		out = append(out, ColumnEntry{Key: key, Definition: def})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}

func decodeColumnJSON(key string, raw json.RawMessage) (ColumnDefinition, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		return ColumnDefinition{Kind: ColumnIdentifier}, nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		var header string
		if err := json.Unmarshal(trimmed, &header); err != nil {
			return ColumnDefinition{}, err
		}
		return ColumnDefinition{Kind: ColumnIdentifier, Header: header}, nil
	case len(trimmed) > 0 && trimmed[0] == '{':
		var spec columnSpec
		if err := json.Unmarshal(trimmed, &spec); err != nil {
			return ColumnDefinition{}, NewError(KindValidation, fmt.Sprintf("column %q", key), err)
		}
		return spec.definition(), nil
	default:
		return ColumnDefinition{}, NewError(KindValidation, fmt.Sprintf("column %q must be a string or an object", key), nil)
	}
}

// UnmarshalYAML decodes an ordered schema mapping with the same shapes as
// UnmarshalJSON.
func (c *ColumnsMap) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		*c = nil
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return NewError(KindValidation, "columns must be a mapping", nil)
	}

	out := ColumnsMap{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value := node.Content[i+1]

		var def ColumnDefinition
		switch value.Kind {
		case yaml.ScalarNode:
			def = ColumnDefinition{Kind: ColumnIdentifier}
			if value.Tag != "!!null" {
				def.Header = value.Value
			}
		case yaml.MappingNode:
			var spec columnSpec
			if err := value.Decode(&spec); err != nil {
				return NewError(KindValidation, fmt.Sprintf("column %q", key), err)
			}
			def = spec.definition()
		default:
			return NewError(KindValidation, fmt.Sprintf("column %q must be a string or a mapping", key), nil)
		}
		out = append(out, ColumnEntry{Key: key, Definition: def})
	}
	*c = out
	return nil
}
