// Package config loads go-report settings from defaults, an optional config
// file and REPORT_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-report/export"
)

// Config holds the service and CLI configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Export   ExportConfig   `mapstructure:"export"`
	Chromium ChromiumConfig `mapstructure:"chromium"`
	Store    StoreConfig    `mapstructure:"store"`
	History  HistoryConfig  `mapstructure:"history"`
	Log      LogConfig      `mapstructure:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	BasePath string `mapstructure:"base_path"`
}

// ExportConfig holds exporter limits and formatting defaults.
type ExportConfig struct {
	MaxRows       int           `mapstructure:"max_rows"`
	MaxBytes      int64         `mapstructure:"max_bytes"`
	MaxBodyBytes  int64         `mapstructure:"max_body_bytes"`
	Timeout       time.Duration `mapstructure:"timeout"`
	DefaultFormat string        `mapstructure:"default_format"`
	Locale        string        `mapstructure:"locale"`
	Timezone      string        `mapstructure:"timezone"`
}

// ChromiumConfig configures the header rasterizer.
type ChromiumConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Path     string        `mapstructure:"path"`
	Headless bool          `mapstructure:"headless"`
	Args     []string      `mapstructure:"args"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// StoreConfig configures the download store. An empty Dir keeps files in memory.
type StoreConfig struct {
	Dir      string        `mapstructure:"dir"`
	MaxFiles int           `mapstructure:"max_files"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// HistoryConfig configures the SQLite export history.
type HistoryConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	DSN     string        `mapstructure:"dsn"`
	Keep    time.Duration `mapstructure:"keep"`
}

// LogConfig configures zap.
type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// Defaults returns a Config with sensible defaults.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Host:     "localhost",
			Port:     "8080",
			BasePath: "/reports/export",
		},
		Export: ExportConfig{
			MaxRows:       100000,
			MaxBytes:      64 * 1024 * 1024,
			MaxBodyBytes:  32 * 1024 * 1024,
			Timeout:       2 * time.Minute,
			DefaultFormat: string(export.FormatCSV),
			Locale:        "es_ES",
		},
		Chromium: ChromiumConfig{
			Enabled:  true,
			Headless: true,
			Timeout:  20 * time.Second,
		},
		Store: StoreConfig{
			MaxFiles: 200,
			TTL:      30 * time.Minute,
		},
		History: HistoryConfig{
			DSN:  "file:reports.db?cache=shared",
			Keep: 30 * 24 * time.Hour,
		},
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      "/metrics",
			Namespace: "go_report",
		},
	}
}

// Validate checks values that would otherwise fail late at request time.
func (c Config) Validate() error {
	if format := export.NormalizeFormat(export.Format(c.Export.DefaultFormat)); !export.IsKnownFormat(format) {
		return errors.New(fmt.Sprintf("export.default_format %q is not supported", c.Export.DefaultFormat), errors.CategoryValidation).
			WithTextCode("CONFIG_DEFAULT_FORMAT")
	}
	if c.Export.MaxRows < 0 || c.Export.MaxBytes < 0 || c.Export.Timeout < 0 {
		return errors.New("export limits must not be negative", errors.CategoryValidation).
			WithTextCode("CONFIG_EXPORT_LIMITS")
	}
	if _, err := export.NewNormalizeOptions(export.FormatOptions{Timezone: c.Export.Timezone}); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "export.timezone is invalid").
			WithTextCode("CONFIG_TIMEZONE")
	}
	switch strings.ToLower(c.Log.Encoding) {
	case "json", "console":
	default:
		return errors.New("log.encoding must be json or console", errors.CategoryValidation).
			WithTextCode("CONFIG_LOG_ENCODING")
	}
	return nil
}

// Apply copies the exporter limits onto e.
func (c ExportConfig) Apply(e *export.Exporter) {
	if e == nil {
		return
	}
	e.MaxRows = c.MaxRows
	e.MaxBytes = c.MaxBytes
	e.Timeout = c.Timeout
}

// Defaults fills request formatting options the caller left empty.
func (c ExportConfig) Defaults(req export.ExportRequest) export.ExportRequest {
	if strings.TrimSpace(string(req.Format)) == "" {
		req.Format = export.Format(c.DefaultFormat)
	}
	if req.Options.Locale == "" {
		req.Options.Locale = c.Locale
	}
	if req.Options.Timezone == "" {
		req.Options.Timezone = c.Timezone
	}
	return req
}

// Retention returns the store retention rules.
func (c StoreConfig) Retention() export.RetentionRules {
	return export.RetentionRules{DefaultTTL: c.TTL}
}
