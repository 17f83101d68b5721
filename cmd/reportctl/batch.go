package main

import (
	"context"
	"fmt"

	"github.com/goliatone/go-report/command"
	"github.com/spf13/cobra"
)

var batchFlags struct {
	file string
	out  string
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run a file of export requests",
	Long: `Run every export request listed in a JSON batch file and write the
reports to a directory. Each item is {"output": "name.pdf", "request": {...}};
"output" is optional and defaults to the report filename.`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&batchFlags.file, "file", "", "batch file (.json)")
	batchCmd.Flags().StringVarP(&batchFlags.out, "out", "o", ".", "output directory")
	_ = batchCmd.MarkFlagRequired("file")
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	if cmd != nil {
		ctx = cmd.Context()
	}
	if batchFlags.file == "" {
		return fmt.Errorf("--file is required")
	}

	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	batch := command.NewBatchExportCommand(a, nil,
		command.WithBatchSink(command.DirectorySink(batchFlags.out)),
		command.WithBatchLogger(a.Logger),
	)
	count, err := batch.Run(ctx, batchFlags.file)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Wrote %d reports to %s\n", count, batchFlags.out)
	return nil
}
