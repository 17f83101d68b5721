package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Record is an ordered mapping from field name to a JSON-shaped value. Key
// order is kept from construction or decoding so auto-schema exports follow
// the source ordering.
type Record struct {
	keys   []string
	values map[string]any
}

// NewRecord builds a record from alternating key/value pairs. A repeated key
// keeps its first position and its last value.
func NewRecord(pairs ...any) Record {
	rec := Record{values: make(map[string]any, len(pairs)/2)}
	for i := 0; i+1 < len(pairs); i += 2 {
		rec.set(fmt.Sprint(pairs[i]), pairs[i+1])
	}
	return rec
}

// RecordFromMap builds a record from a map, ordering keys alphabetically.
func RecordFromMap(values map[string]any) Record {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rec := Record{keys: keys, values: make(map[string]any, len(values))}
	for key, value := range values {
		rec.values[key] = value
	}
	return rec
}

func (r *Record) set(key string, value any) {
	if r.values == nil {
		r.values = make(map[string]any)
	}
	if _, exists := r.values[key]; !exists {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	if r.values == nil {
		return nil, false
	}
	value, ok := r.values[key]
	return value, ok
}

// Keys returns the field names in record order.
func (r Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.keys)
}

// Map returns a shallow copy of the record values.
func (r Record) Map() map[string]any {
	out := make(map[string]any, len(r.values))
	for key, value := range r.values {
		out[key] = value
	}
	return out
}

// MarshalJSON encodes the record keeping key order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')
		encodedValue, err := json.Marshal(r.values[key])
		if err != nil {
			return nil, err
		}
		buf.Write(encodedValue)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping key order. Numbers decode as
// json.Number so large integers survive untouched.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return NewError(KindValidation, "record must be a JSON object", nil)
	}

	out := Record{values: make(map[string]any)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return NewError(KindValidation, "record key must be a string", nil)
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		out.set(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*r = out
	return nil
}

// UnmarshalYAML decodes a YAML mapping keeping key order.
func (r *Record) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return NewError(KindValidation, "record must be a mapping", nil)
	}
	out := Record{values: make(map[string]any, len(node.Content)/2)}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var value any
		if err := node.Content[i+1].Decode(&value); err != nil {
			return err
		}
		out.set(node.Content[i].Value, value)
	}
	*r = out
	return nil
}
