package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goliatone/go-report/app"
	"github.com/goliatone/go-report/config"
	"github.com/goliatone/go-report/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "reportctl",
	Short: "Export tabular reports to CSV, XLSX and PDF",
	Long: `reportctl turns record lists into downloadable reports.

Records are ordered key/value objects. An optional column schema picks,
renames and groups fields; group columns unroll arrays of sub-records into
repeated sub-columns. PDF reports can carry an HTML header fragment that is
rasterized when a Chromium binary is available.

Configuration is read from --config and REPORT_* environment variables.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (yaml, json or toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func loadApp(ctx context.Context) (*app.App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log, "reportctl")
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger)
}
