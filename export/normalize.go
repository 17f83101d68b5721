package export

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

const (
	// NumFmtInteger is the spreadsheet format applied to integral numbers.
	NumFmtInteger = "0"
	// NumFmtDecimal is the spreadsheet format applied to decimals and grouped numbers.
	NumFmtDecimal = "#,##0.00"

	defaultLocale     = "es_ES"
	defaultDateLayout = "02/01/2006 15:04"
)

var (
	isoDateTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`)
	plainNumberPattern = regexp.MustCompile(`^-?(0|[1-9]\d*)(\.\d+)?$`)
	groupedNumberRegex = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d+)?$`)
)

// NormalizeOptions select the target of a normalized value.
type NormalizeOptions struct {
	ForSpreadsheetCell bool
	SkipDateFormat     bool
	Locale             string
	DateLayout         string
	Location           *time.Location
}

// NewNormalizeOptions builds options from request formatting settings.
func NewNormalizeOptions(opts FormatOptions) (NormalizeOptions, error) {
	out := NormalizeOptions{
		Locale:     strings.TrimSpace(opts.Locale),
		DateLayout: strings.TrimSpace(opts.DateLayout),
	}
	if tz := strings.TrimSpace(opts.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return NormalizeOptions{}, NewError(KindValidation, "invalid timezone", err)
		}
		out.Location = loc
	}
	return out, nil
}

// Spreadsheet returns a copy of the options targeting spreadsheet cells.
func (o NormalizeOptions) Spreadsheet() NormalizeOptions {
	o.ForSpreadsheetCell = true
	return o
}

// Normalize converts a raw record value into a display-safe value. Text mode
// always returns a string. Spreadsheet mode keeps numbers, booleans and dates
// native so the workbook stores typed cells.
func Normalize(value any, opts NormalizeOptions) any {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return normalizeString(v, opts)
	case time.Time:
		return normalizeTime(v, opts)
	case *time.Time:
		if v == nil {
			return ""
		}
		return normalizeTime(*v, opts)
	case bool:
		if opts.ForSpreadsheetCell {
			return v
		}
		return strconv.FormatBool(v)
	case json.Number:
		if opts.ForSpreadsheetCell {
			if n, ok := numberFromString(v.String()); ok {
				return n
			}
		}
		return v.String()
	case Record:
		return compactJSON(v)
	}

	if n, ok := nativeNumber(value); ok {
		if opts.ForSpreadsheetCell {
			return n
		}
		return formatNumber(n)
	}

	if items, ok := asSlice(value); ok {
		return joinItems(items)
	}

	return compactJSON(value)
}

// NormalizeText is Normalize in text mode, returned as a string.
func NormalizeText(value any, opts NormalizeOptions) string {
	opts.ForSpreadsheetCell = false
	return stringify(Normalize(value, opts))
}

// DetectFormat returns the spreadsheet number format for a value: "0" for
// integers, "#,##0.00" for decimals and comma-grouped numeric strings, and ""
// for anything else.
func DetectFormat(value any) string {
	switch v := value.(type) {
	case nil, bool:
		return ""
	case string:
		raw := strings.TrimSpace(v)
		if groupedNumberRegex.MatchString(raw) {
			return NumFmtDecimal
		}
		if !plainNumberPattern.MatchString(raw) {
			return ""
		}
		if strings.Contains(raw, ".") {
			return NumFmtDecimal
		}
		return NumFmtInteger
	case json.Number:
		return DetectFormat(v.String())
	}

	n, ok := nativeNumber(value)
	if !ok {
		return ""
	}
	switch num := n.(type) {
	case float64:
		if math.IsNaN(num) || math.IsInf(num, 0) {
			return ""
		}
		if math.Trunc(num) == num {
			return NumFmtInteger
		}
		return NumFmtDecimal
	default:
		return NumFmtInteger
	}
}

func normalizeString(raw string, opts NormalizeOptions) any {
	if !opts.SkipDateFormat && isoDateTimePattern.MatchString(raw) {
		if parsed, ok := parseISODateTime(raw, opts.Location); ok {
			return normalizeTime(parsed, opts)
		}
	}
	if opts.ForSpreadsheetCell {
		if n, ok := numberFromString(raw); ok {
			return n
		}
	}
	return raw
}

func normalizeTime(value time.Time, opts NormalizeOptions) any {
	if opts.Location != nil {
		value = value.In(opts.Location)
	}
	if opts.ForSpreadsheetCell {
		return value
	}
	return formatLocaleTime(value, opts)
}

func formatLocaleTime(value time.Time, opts NormalizeOptions) string {
	locale := normalizeLocale(opts.Locale)
	layout := opts.DateLayout
	if layout == "" {
		layout = dateLayoutForLocale(locale)
	}
	return monday.Format(value, layout, monday.Locale(locale))
}

func normalizeLocale(raw string) string {
	raw = strings.TrimSpace(strings.ReplaceAll(raw, "-", "_"))
	if raw == "" {
		return defaultLocale
	}
	return raw
}

func dateLayoutForLocale(locale string) string {
	switch {
	case locale == "en_US":
		return "01/02/2006 03:04 PM"
	case strings.HasPrefix(locale, "ja_"), strings.HasPrefix(locale, "zh_"), strings.HasPrefix(locale, "ko_"):
		return "2006/01/02 15:04"
	default:
		return defaultDateLayout
	}
}

func parseISODateTime(raw string, loc *time.Location) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if parsed, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return parsed, true
	}
	if loc == nil {
		loc = time.UTC
	}
	layouts := []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if parsed, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// numberFromString parses plain or comma-grouped numeric text. Values with
// leading zeros or more than 15 significant digits stay text so identifiers
// keep their exact form.
func numberFromString(raw string) (any, bool) {
	raw = strings.TrimSpace(raw)
	switch {
	case plainNumberPattern.MatchString(raw):
	case groupedNumberRegex.MatchString(raw):
		raw = strings.ReplaceAll(raw, ",", "")
	default:
		return nil, false
	}
	if significantDigits(raw) > 15 {
		return nil, false
	}
	if !strings.Contains(raw, ".") {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return parsed, true
		}
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, false
	}
	return parsed, true
}

func significantDigits(raw string) int {
	count := 0
	for _, r := range strings.TrimLeft(strings.TrimPrefix(raw, "-"), "0.") {
		if r >= '0' && r <= '9' {
			count++
		}
	}
	return count
}

// nativeNumber widens Go numeric kinds to int64 or float64.
func nativeNumber(value any) (any, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case uint, uint64:
		if i, ok := coerceInt(v); ok {
			return i, true
		}
		f, _ := coerceFloat(v)
		return f, true
	case int, int64, int32, int16, int8, uint32, uint16, uint8:
		i, ok := coerceInt(v)
		return i, ok
	default:
		return nil, false
	}
}

func formatNumber(n any) string {
	switch v := n.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func joinItems(items []any) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		text := itemText(item)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, ", ")
}

func itemText(item any) string {
	switch v := item.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	}
	if n, ok := nativeNumber(item); ok {
		return formatNumber(n)
	}
	if nested, ok := asSlice(item); ok {
		return joinItems(nested)
	}
	return compactJSON(item)
}

func compactJSON(value any) string {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(data)
}

// asSlice exposes any slice or array value as []any. Byte slices are not
// treated as arrays.
func asSlice(value any) ([]any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case []any:
		return v, true
	case []Record:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	case []string:
		out := make([]any, len(v))
		for i := range v {
			out[i] = v[i]
		}
		return out, true
	case []byte:
		return nil, false
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// fieldOf reads a named field from a group element, which may be a Record or
// a plain map.
func fieldOf(item any, key string) (any, bool) {
	switch v := item.(type) {
	case Record:
		return v.Get(key)
	case map[string]any:
		value, ok := v[key]
		return value, ok
	case map[string]string:
		value, ok := v[key]
		return value, ok
	default:
		return nil, false
	}
}

func coerceInt(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int16:
		return int64(v), true
	case int8:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case uint64:
		if v > math.MaxInt64 {
			return 0, false
		}
		return int64(v), true
	case float64:
		if math.Trunc(v) != v {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		parsed, err := v.Int64()
		if err == nil {
			return parsed, true
		}
		return 0, false
	default:
		return 0, false
	}
}

func coerceFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}
