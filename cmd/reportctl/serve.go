package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/goliatone/go-report/app"
	"github.com/goliatone/go-report/config"
	"github.com/goliatone/go-report/logging"
	"github.com/spf13/cobra"
)

var serveFlags struct {
	listen string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the export HTTP API",
	Long: `Serve the export HTTP API, /healthz and the Prometheus /metrics endpoint.

Expired stored reports and old history entries are cleaned up periodically.
Editing the config file is picked up and logged; restart to apply it.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVarP(&serveFlags.listen, "listen", "l", "", "override listen address (host:port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader := config.NewLoader(cfgFile)
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	logger, err := logging.New(cfg.Log, "reportctl")
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	loader.Watch(func(next config.Config, err error) {
		if err != nil {
			logger.Warnw("config reload rejected", "error", err)
			return
		}
		logger.Infow("config file changed; restart to apply", "path", cfgFile)
	})

	addr := serveFlags.listen
	if addr == "" {
		addr = fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	}

	srv := a.Server()
	errCh := make(chan error, 1)
	go func() {
		logger.Infow("serving export API", "addr", addr, "base_path", cfg.Server.BasePath)
		errCh <- srv.Serve(addr)
	}()

	go runCleanup(ctx, a, cleanupInterval(cfg))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func cleanupInterval(cfg config.Config) time.Duration {
	interval := cfg.Store.TTL / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	return interval
}

func runCleanup(ctx context.Context, a *app.App, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := a.Cleanup(ctx)
			if err != nil {
				a.Logger.Warnw("cleanup failed", "error", err)
				continue
			}
			if removed > 0 {
				a.Logger.Infow("removed expired reports", "count", removed)
			}
		}
	}
}
