package export

import (
	"bytes"
	"strings"
	"text/template"
	"time"
)

const defaultFilename = "reporte"

type filenameData struct {
	Title     string
	Format    string
	Timestamp string
	Date      string
}

// renderFilename resolves the download name: the request filename (which may
// use {{.Title}}, {{.Format}}, {{.Date}} and {{.Timestamp}}), else the title,
// else "reporte". The format extension is appended when missing.
func renderFilename(req ExportRequest, format Format, now time.Time) (string, error) {
	name := strings.TrimSpace(req.Filename)
	if name == "" {
		name = strings.TrimSpace(req.Title)
	}

	if strings.Contains(name, "{{") {
		tmpl, err := template.New("filename").Option("missingkey=error").Parse(name)
		if err != nil {
			return "", NewError(KindValidation, "invalid filename template", err)
		}
		var buf bytes.Buffer
		err = tmpl.Execute(&buf, filenameData{
			Title:     strings.TrimSpace(req.Title),
			Format:    string(format),
			Timestamp: now.UTC().Format("20060102T150405Z"),
			Date:      now.UTC().Format("20060102"),
		})
		if err != nil {
			return "", NewError(KindValidation, "invalid filename template", err)
		}
		name = strings.TrimSpace(buf.String())
	}

	name = strings.NewReplacer("/", "_", "\\", "_").Replace(name)
	if name == "" {
		name = defaultFilename
	}

	ext := "." + string(format)
	if !strings.HasSuffix(strings.ToLower(name), ext) {
		name += ext
	}
	return name, nil
}
