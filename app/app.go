// Package app assembles the report exporter, its stores and its observers from
// configuration.
package app

import (
	"context"
	"errors"
	"time"

	exportchromium "github.com/goliatone/go-report/adapters/chromium"
	"github.com/goliatone/go-report/adapters/exportapi"
	exportprom "github.com/goliatone/go-report/adapters/prometheus"
	storefs "github.com/goliatone/go-report/adapters/store/fs"
	trackerbun "github.com/goliatone/go-report/adapters/tracker/bun"
	"github.com/goliatone/go-report/config"
	"github.com/goliatone/go-report/export"
	"github.com/goliatone/go-report/logging"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// Store is a FileStore that can drop expired files.
type Store interface {
	export.FileStore
	Cleanup(ctx context.Context) (int, error)
}

// App holds the wired dependencies.
type App struct {
	Config   config.Config
	Logger   *zap.SugaredLogger
	Exporter *export.Exporter
	Store    Store
	History  *trackerbun.Tracker
	Metrics  *exportprom.Collector
	Now      func() time.Time

	db *bun.DB
}

// New builds an App from cfg. A nil logger discards output.
func New(ctx context.Context, cfg config.Config, logger *zap.SugaredLogger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}

	a := &App{Config: cfg, Logger: logger, Now: time.Now}

	exporter := export.NewExporter()
	exporter.Logger = logger
	cfg.Export.Apply(exporter)
	if cfg.Chromium.Enabled {
		rasterizer := exportchromium.NewRasterizer()
		rasterizer.BrowserPath = cfg.Chromium.Path
		rasterizer.Headless = cfg.Chromium.Headless
		rasterizer.Args = cfg.Chromium.Args
		if cfg.Chromium.Timeout > 0 {
			rasterizer.Timeout = cfg.Chromium.Timeout
		}
		exporter.Rasterizers = append(exporter.Rasterizers, rasterizer)
	}
	a.Exporter = exporter

	if cfg.Store.Dir != "" {
		store := storefs.NewStore(cfg.Store.Dir)
		store.Retention = cfg.Store.Retention()
		a.Store = store
	} else {
		store := export.NewMemoryStore()
		store.MaxFiles = cfg.Store.MaxFiles
		store.Retention = cfg.Store.Retention()
		a.Store = store
	}

	hooks := export.MetricsHooks{}
	if cfg.Metrics.Enabled {
		a.Metrics = exportprom.NewCollector(exportprom.Config{Namespace: cfg.Metrics.Namespace}, nil)
		hooks = append(hooks, a.Metrics)
	}
	if cfg.History.Enabled {
		db, err := trackerbun.OpenSQLite(cfg.History.DSN)
		if err != nil {
			return nil, err
		}
		tracker := trackerbun.NewTracker(db)
		if err := tracker.CreateSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		a.db = db
		a.History = tracker
		hooks = append(hooks, tracker)
	}
	if len(hooks) > 0 {
		exporter.Metrics = hooks
	}

	logger.Debugf("app: store=%T metrics=%t history=%t chromium=%t",
		a.Store, a.Metrics != nil, a.History != nil, cfg.Chromium.Enabled)
	return a, nil
}

// Export runs an export after filling request defaults from configuration.
func (a *App) Export(ctx context.Context, req export.ExportRequest) (*export.ExportFile, error) {
	return a.Exporter.Export(ctx, a.Config.Export.Defaults(req))
}

// Cleanup drops expired stored files and prunes history older than the
// configured window. It returns the number of removed files.
func (a *App) Cleanup(ctx context.Context) (int, error) {
	removed, err := a.Store.Cleanup(ctx)
	if err != nil {
		return removed, err
	}
	if a.History != nil && a.Config.History.Keep > 0 {
		pruned, err := a.History.Prune(ctx, a.now().Add(-a.Config.History.Keep))
		if err != nil {
			return removed, err
		}
		a.Logger.Debugf("app: pruned %d history entries", pruned)
	}
	return removed, nil
}

// HTTPConfig returns the transport controller configuration.
func (a *App) HTTPConfig() exportapi.Config {
	cfg := exportapi.Config{
		Exporter:     a,
		Store:        a.Store,
		BasePath:     a.Config.Server.BasePath,
		Logger:       a.Logger,
		MaxBodyBytes: a.Config.Export.MaxBodyBytes,
	}
	if a.History != nil {
		cfg.History = a.History
	}
	return cfg
}

// Close releases the history database and flushes the logger.
func (a *App) Close() error {
	var errs []error
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.Logger != nil {
		// stdout/stderr sync fails on some platforms; ignore it.
		_ = a.Logger.Sync()
	}
	return errors.Join(errs...)
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
