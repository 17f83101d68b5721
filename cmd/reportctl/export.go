package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/goliatone/go-report/export"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var exportFlags struct {
	records     string
	columns     string
	header      string
	format      string
	title       string
	filename    string
	orientation string
	layout      string
	out         string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a record file to a report",
	Long: `Export a JSON or YAML list of records to CSV, XLSX or PDF.

Examples:
  # CSV with columns derived from the first record
  reportctl export --records users.json

  # PDF with a column schema and an HTML header
  reportctl export --records users.yaml --columns columns.yaml \
    --format pdf --title "Usuarios" --header header.html --out ./reports`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFlags.records, "records", "r", "", "records file (.json, .yaml)")
	exportCmd.Flags().StringVar(&exportFlags.columns, "columns", "", "column schema file (.json, .yaml)")
	exportCmd.Flags().StringVar(&exportFlags.header, "header", "", "HTML header fragment file")
	exportCmd.Flags().StringVarP(&exportFlags.format, "format", "f", "", "output format (csv, xlsx, pdf)")
	exportCmd.Flags().StringVarP(&exportFlags.title, "title", "t", "", "report title")
	exportCmd.Flags().StringVar(&exportFlags.filename, "filename", "", "filename template")
	exportCmd.Flags().StringVar(&exportFlags.orientation, "orientation", "", "PDF orientation (portrait, landscape)")
	exportCmd.Flags().StringVar(&exportFlags.layout, "group-layout", "", "PDF group layout (horizontal, vertical)")
	exportCmd.Flags().StringVarP(&exportFlags.out, "out", "o", ".", "output directory")
	_ = exportCmd.MarkFlagRequired("records")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if cmd != nil {
		ctx = cmd.Context()
	}

	req, err := buildExportRequest()
	if err != nil {
		return err
	}

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	file, err := a.Export(ctx, req)
	if err != nil {
		return err
	}
	if file == nil {
		fmt.Println("Nothing to export")
		return nil
	}

	if err := os.MkdirAll(exportFlags.out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	target := filepath.Join(exportFlags.out, filepath.Base(file.Filename))
	if err := os.WriteFile(target, file.Data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Printf("✓ Wrote %s (%d rows, %s)\n", target, file.Rows, humanize.Bytes(uint64(len(file.Data))))
	return nil
}

func buildExportRequest() (export.ExportRequest, error) {
	req := export.ExportRequest{
		Format:      export.Format(exportFlags.format),
		Title:       exportFlags.title,
		Filename:    exportFlags.filename,
		Orientation: export.Orientation(exportFlags.orientation),
		GroupLayout: export.GroupLayout(exportFlags.layout),
	}

	if exportFlags.records == "" {
		return req, fmt.Errorf("--records is required")
	}
	if err := decodeFile(exportFlags.records, &req.Records); err != nil {
		return req, fmt.Errorf("read records: %w", err)
	}
	if exportFlags.columns != "" {
		if err := decodeFile(exportFlags.columns, &req.Columns); err != nil {
			return req, fmt.Errorf("read columns: %w", err)
		}
	}
	if exportFlags.header != "" {
		data, err := os.ReadFile(exportFlags.header)
		if err != nil {
			return req, fmt.Errorf("read header: %w", err)
		}
		req.ExtraHeaderContent = string(data)
	}
	return req, nil
}

// decodeFile reads JSON or YAML by extension.
func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, out)
	default:
		return json.Unmarshal(data, out)
	}
}
