package export

import (
	"encoding/json"
	"strings"
)

// NormalizeFormat coerces format values into known aliases. Unknown values are
// returned lowercased so callers can detect them with IsKnownFormat.
func NormalizeFormat(format Format) Format {
	normalized := strings.ToLower(strings.TrimSpace(string(format)))
	switch normalized {
	case string(FormatCSV), "delimited", "text/csv":
		return FormatCSV
	case string(FormatXLSX), "spreadsheet", "excel", "xls":
		return FormatXLSX
	case string(FormatPDF), "document":
		return FormatPDF
	default:
		return Format(normalized)
	}
}

// IsKnownFormat reports whether the format belongs to the closed set of outputs.
func IsKnownFormat(format Format) bool {
	switch NormalizeFormat(format) {
	case FormatCSV, FormatXLSX, FormatPDF:
		return true
	default:
		return false
	}
}

func contentTypeForFormat(format Format) string {
	switch NormalizeFormat(format) {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

func normalizeOrientation(value Orientation) Orientation {
	switch strings.ToLower(strings.TrimSpace(string(value))) {
	case "landscape", "l", "horizontal":
		return OrientationLandscape
	default:
		return OrientationPortrait
	}
}

func normalizeHeadMode(value HeadMode) HeadMode {
	switch strings.ToLower(strings.TrimSpace(string(value))) {
	case "never", "false", "none":
		return HeadNever
	case "firstpage", "first_page", "first":
		return HeadFirstPage
	default:
		return HeadEveryPage
	}
}

func normalizeGroupLayout(value GroupLayout) GroupLayout {
	if strings.EqualFold(strings.TrimSpace(string(value)), string(GroupLayoutVertical)) {
		return GroupLayoutVertical
	}
	return GroupLayoutHorizontal
}

// UnmarshalJSON accepts booleans (true = everyPage, false = never) as well as
// the named modes.
func (m *HeadMode) UnmarshalJSON(data []byte) error {
	var flag bool
	if err := json.Unmarshal(data, &flag); err == nil {
		if flag {
			*m = HeadEveryPage
		} else {
			*m = HeadNever
		}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return NewError(KindValidation, "show_head must be a boolean or a string", err)
	}
	*m = normalizeHeadMode(HeadMode(raw))
	return nil
}
