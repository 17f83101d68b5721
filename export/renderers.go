package export

import (
	"fmt"
	"strings"
	"time"
)

// DefaultRenderers returns the named renderers a schema can reference by
// name when it is decoded from JSON or YAML.
func DefaultRenderers() map[string]Renderer {
	return map[string]Renderer{
		"upper": func(value any, _ Record, _ RenderContext) (any, error) {
			return strings.ToUpper(stringify(value)), nil
		},
		"lower": func(value any, _ Record, _ RenderContext) (any, error) {
			return strings.ToLower(stringify(value)), nil
		},
		"trim": func(value any, _ Record, _ RenderContext) (any, error) {
			return strings.TrimSpace(stringify(value)), nil
		},
		"yesno": func(value any, _ Record, _ RenderContext) (any, error) {
			if value == nil {
				return "", nil
			}
			switch v := value.(type) {
			case bool:
				if v {
					return "Sí", nil
				}
				return "No", nil
			case string:
				switch strings.ToLower(strings.TrimSpace(v)) {
				case "true", "1", "si", "sí", "yes":
					return "Sí", nil
				case "false", "0", "no", "":
					return "No", nil
				}
			}
			return nil, fmt.Errorf("not a boolean: %v", value)
		},
		"date": func(value any, _ Record, _ RenderContext) (any, error) {
			if value == nil {
				return "", nil
			}
			switch v := value.(type) {
			case time.Time:
				return v.Format("02/01/2006"), nil
			case string:
				parsed, ok := parseISODateTime(v, nil)
				if !ok {
					parsed, ok = parseDate(v)
				}
				if !ok {
					return nil, fmt.Errorf("not a date: %q", v)
				}
				return parsed.Format("02/01/2006"), nil
			}
			return nil, fmt.Errorf("not a date: %v", value)
		},
		"count": func(value any, _ Record, _ RenderContext) (any, error) {
			items, ok := asSlice(value)
			if !ok {
				return 0, nil
			}
			return len(items), nil
		},
	}
}

func parseDate(raw string) (time.Time, bool) {
	parsed, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}
