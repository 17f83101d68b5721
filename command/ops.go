package command

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	gcmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-report/export"
)

// BatchRequest describes one report of a batch run.
type BatchRequest struct {
	// Output overrides the file name used by file sinks.
	Output  string               `json:"output,omitempty"`
	Request export.ExportRequest `json:"request"`
}

// BatchLoader loads batch requests from a source.
type BatchLoader func(ctx context.Context) ([]BatchRequest, error)

// BatchSink receives every produced file.
type BatchSink func(ctx context.Context, item BatchRequest, file *export.ExportFile) error

// BatchCommand wires CLI/Cron execution for batch report exports.
type BatchCommand struct {
	exporter   Exporter
	loader     BatchLoader
	sink       BatchSink
	logger     export.Logger
	cliConfig  gcmd.CLIConfig
	cronConfig gcmd.HandlerConfig
	limits     BatchLimits
	sleep      func(time.Duration)
}

// BatchOption customizes batch commands.
type BatchOption func(*BatchCommand)

// BatchLimits bounds batch execution throughput.
type BatchLimits struct {
	MaxRequests int
	MinInterval time.Duration
}

// WithBatchCLIConfig overrides CLI configuration.
func WithBatchCLIConfig(cfg gcmd.CLIConfig) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.cliConfig = cfg
	}
}

// WithBatchCronConfig overrides cron configuration.
func WithBatchCronConfig(cfg gcmd.HandlerConfig) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.cronConfig = cfg
	}
}

// WithBatchLimits overrides batch execution limits.
func WithBatchLimits(limits BatchLimits) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.limits = limits
	}
}

// WithBatchSink sets where produced files go.
func WithBatchSink(sink BatchSink) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.sink = sink
	}
}

// WithBatchLogger sets the logger used for skipped reports.
func WithBatchLogger(logger export.Logger) BatchOption {
	return func(cmd *BatchCommand) {
		cmd.logger = logger
	}
}

// NewBatchExportCommand creates a batch export CLI/Cron command.
func NewBatchExportCommand(exporter Exporter, loader BatchLoader, opts ...BatchOption) *BatchCommand {
	cmd := &BatchCommand{
		exporter: exporter,
		loader:   loader,
		logger:   export.NopLogger{},
		cliConfig: gcmd.CLIConfig{
			Path:        []string{"reports-batch"},
			Description: "Run batch report exports",
			Group:       "reports",
		},
		cronConfig: gcmd.HandlerConfig{Expression: "0 * * * *"},
		sleep:      time.Sleep,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cmd)
		}
	}
	return cmd
}

// CronHandler executes scheduled batch exports.
func (c *BatchCommand) CronHandler() func() error {
	return func() error {
		_, err := c.run(context.Background(), "")
		return err
	}
}

// CronOptions returns cron configuration.
func (c *BatchCommand) CronOptions() gcmd.HandlerConfig {
	if c == nil {
		return gcmd.HandlerConfig{}
	}
	return c.cronConfig
}

// CLIHandler exposes the CLI handler.
func (c *BatchCommand) CLIHandler() any {
	return &batchCLI{cmd: c}
}

// CLIOptions returns CLI configuration.
func (c *BatchCommand) CLIOptions() gcmd.CLIConfig {
	if c == nil {
		return gcmd.CLIConfig{}
	}
	return c.cliConfig
}

// Run exports every batch request, reading them from the JSON file at from
// when set and from the loader otherwise. It returns how many files reached
// the sink.
func (c *BatchCommand) Run(ctx context.Context, from string) (int, error) {
	return c.run(ctx, from)
}

func (c *BatchCommand) run(ctx context.Context, from string) (int, error) {
	if c == nil {
		return 0, errors.New("batch command is nil", errors.CategoryInternal).
			WithTextCode("BATCH_CMD_NIL")
	}
	if c.exporter == nil {
		return 0, errors.New("exporter is required", errors.CategoryValidation).
			WithTextCode("EXPORTER_REQUIRED")
	}

	requests, err := c.loadRequests(ctx, from)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, item := range requests {
		if c.limits.MaxRequests > 0 && count >= c.limits.MaxRequests {
			break
		}
		if err := ctx.Err(); err != nil {
			return count, err
		}
		file, err := c.exporter.Export(ctx, item.Request)
		if err != nil {
			return count, err
		}
		if file == nil {
			c.logger.Warnf("batch: report %q produced no file", item.Request.Title)
			continue
		}
		if c.sink != nil {
			if err := c.sink(ctx, item, file); err != nil {
				return count, err
			}
		}
		count++
		if c.limits.MinInterval > 0 && c.sleep != nil {
			c.sleep(c.limits.MinInterval)
		}
	}
	return count, nil
}

func (c *BatchCommand) loadRequests(ctx context.Context, from string) ([]BatchRequest, error) {
	if strings.TrimSpace(from) != "" {
		return loadBatchRequestsFromFile(from)
	}
	if c.loader == nil {
		return nil, errors.New("batch loader not configured", errors.CategoryValidation).
			WithTextCode("LOADER_REQUIRED")
	}
	return c.loader(ctx)
}

type batchCLI struct {
	cmd  *BatchCommand
	From string `kong:"name='from',help='Path to JSON batch report requests'"`
}

func (c *batchCLI) Run() error {
	if c == nil || c.cmd == nil {
		return errors.New("batch command is required", errors.CategoryInternal).
			WithTextCode("BATCH_CMD_NIL")
	}
	_, err := c.cmd.run(context.Background(), c.From)
	return err
}

func loadBatchRequestsFromFile(path string) ([]BatchRequest, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "read batch file failed").
			WithTextCode("BATCH_FILE_READ")
	}

	var requests []BatchRequest
	if err := json.Unmarshal(content, &requests); err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "batch file invalid JSON").
			WithTextCode("BATCH_FILE_INVALID")
	}
	return requests, nil
}

// DirectorySink writes produced files into dir, using the batch item's Output
// name when set and the export filename otherwise.
func DirectorySink(dir string) BatchSink {
	return func(ctx context.Context, item BatchRequest, file *export.ExportFile) error {
		_ = ctx
		name := strings.TrimSpace(item.Output)
		if name == "" {
			name = file.Filename
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, errors.CategoryExternal, "create output directory failed").
				WithTextCode("OUTPUT_DIR")
		}
		target := filepath.Join(dir, filepath.Base(name))
		if err := os.WriteFile(target, file.Data, 0o644); err != nil {
			return errors.Wrap(err, errors.CategoryExternal, "write report file failed").
				WithTextCode("OUTPUT_WRITE")
		}
		return nil
	}
}

// StoreSink puts produced files into a FileStore.
func StoreSink(store export.FileStore) BatchSink {
	return func(ctx context.Context, item BatchRequest, file *export.ExportFile) error {
		_ = item
		return store.Put(ctx, file)
	}
}
