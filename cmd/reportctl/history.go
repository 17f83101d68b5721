package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goliatone/go-report/export"
	"github.com/spf13/cobra"
)

var historyFlags struct {
	format string
	event  string
	since  time.Duration
	limit  int
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded exports",
	Long: `List export history recorded by the history tracker, newest first.
History must be enabled in configuration (history.enabled).`,
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().StringVarP(&historyFlags.format, "format", "f", "", "filter by format")
	historyCmd.Flags().StringVar(&historyFlags.event, "event", "", "filter by event (export.completed, export.failed, export.skipped)")
	historyCmd.Flags().DurationVar(&historyFlags.since, "since", 0, "only entries newer than this duration, e.g. 24h")
	historyCmd.Flags().IntVarP(&historyFlags.limit, "limit", "n", 20, "maximum entries")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if cmd != nil {
		ctx = cmd.Context()
	}

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.History == nil {
		return fmt.Errorf("history is disabled; set history.enabled or REPORT_HISTORY_ENABLED")
	}

	filter := export.HistoryFilter{
		Format: export.Format(historyFlags.format),
		Event:  historyFlags.event,
		Limit:  historyFlags.limit,
	}
	if historyFlags.since > 0 {
		filter.Since = time.Now().Add(-historyFlags.since)
	}
	entries, err := a.History.List(ctx, filter)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tEXPORT\tEVENT\tFORMAT\tROWS\tSIZE\tERROR")
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			humanize.Time(entry.CreatedAt),
			entry.ExportID,
			entry.Event,
			entry.Format,
			entry.Rows,
			humanize.Bytes(uint64(entry.Bytes)),
			entry.ErrorKind,
		)
	}
	return w.Flush()
}
