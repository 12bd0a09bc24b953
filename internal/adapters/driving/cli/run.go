package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tabula/internal/adapters/driving/tui"
	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driving"
)

// ErrCollectionsFailed is returned when at least one collection of a run failed.
var ErrCollectionsFailed = errors.New("collections failed")

// progressInterval is how often plain-text progress is polled.
var progressInterval = 500 * time.Millisecond

var (
	runLimit     int
	runBatchSize int
	runWorkers   int
	runMonitor   bool
)

var runCmd = &cobra.Command{
	Use:   "run [collection...]",
	Short: "Convert collections into flat string tables",
	Long: `Runs the pipeline over the named collections, or over every collection
in the source when none are given. Each collection is detected, flattened,
denormalized and written to the configured sink.

A failing collection never stops the others. The command exits non-zero
when any collection failed; partial collections are reported but succeed.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().IntVar(&runLimit, "limit", 0, "process only the first N collections")
	runCmd.Flags().IntVar(&runBatchSize, "batch-size", 0, "documents per batch (default from settings)")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "collections processed in parallel (default from settings)")
	runCmd.Flags().BoolVar(&runMonitor, "tui", false, "show a live progress monitor")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	pipeline, release, err := connectPipeline(ctx)
	if err != nil {
		return err
	}
	defer release()

	opts := driving.RunOptions{
		Limit:             runLimit,
		BatchSize:         runBatchSize,
		CollectionWorkers: runWorkers,
	}
	run := func(ctx context.Context) (*domain.RunReport, error) {
		if len(args) > 0 {
			return pipeline.Run(ctx, args, opts)
		}
		return pipeline.RunAll(ctx, opts)
	}

	var report *domain.RunReport
	if runMonitor {
		report, err = runWithMonitor(ctx, pipeline, run)
	} else {
		report, err = runWithProgress(ctx, cmd, pipeline, run)
	}
	if report == nil {
		if err == nil {
			err = errors.New("no report returned")
		}
		return fmt.Errorf("run failed: %w", err)
	}

	printRunSummary(cmd, report)

	if err != nil {
		return fmt.Errorf("run interrupted: %w", err)
	}
	if failed := report.Failed(); len(failed) > 0 {
		return fmt.Errorf("%d %w: %s", len(failed), ErrCollectionsFailed, strings.Join(failed, ", "))
	}
	return nil
}

// runWithProgress runs the pipeline while printing each collection as it finishes.
func runWithProgress(
	ctx context.Context,
	cmd *cobra.Command,
	pipeline driving.PipelineService,
	run tui.RunFunc,
) (*domain.RunReport, error) {
	type result struct {
		report *domain.RunReport
		err    error
	}
	resultCh := make(chan result, 1)
	go func() {
		report, err := run(ctx)
		resultCh <- result{report, err}
	}()

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	printed := make(map[string]bool)
	printDone := func() {
		statuses := pipeline.Statuses(ctx)
		for _, s := range statuses {
			if s.Stage != driving.StageDone || printed[s.Collection] {
				continue
			}
			printed[s.Collection] = true
			cmd.Printf("[%d/%d] %s: %s (%d documents, %d rows)\n",
				len(printed), len(statuses), s.Collection, s.Result, s.DocumentsProcessed, s.RowsWritten)
		}
	}

	for {
		select {
		case r := <-resultCh:
			printDone()
			return r.report, r.err
		case <-ticker.C:
			printDone()
		}
	}
}

// runWithMonitor runs the pipeline under the TUI progress monitor.
func runWithMonitor(ctx context.Context, pipeline driving.PipelineService, run tui.RunFunc) (report *domain.RunReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in TUI: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
			err = fmt.Errorf("TUI panic: %v", r)
		}
	}()

	app, err := tui.NewApp(&tui.Ports{Pipeline: pipeline, Run: run})
	if err != nil {
		return nil, fmt.Errorf("failed to create TUI: %w", err)
	}
	app.WithContext(ctx)

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return app.Report(), fmt.Errorf("TUI error: %w", err)
	}
	return app.Report(), app.Err()
}
