package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

var reportLimit int

var reportCmd = &cobra.Command{
	Use:   "report [run-id|latest]",
	Short: "Show the history of pipeline runs",
	Long: `Without arguments, lists recent runs newest first. With a run ID, or
"latest", prints the per-collection report of that run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().IntVarP(&reportLimit, "limit", "n", 10, "number of runs to list")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportService == nil {
		return errors.New("report service not configured")
	}
	ctx := commandContext(cmd)

	if len(args) == 1 {
		var (
			run *domain.RunReport
			err error
		)
		if args[0] == "latest" {
			run, err = reportService.Latest(ctx)
		} else {
			run, err = reportService.Get(ctx, args[0])
		}
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("run %s not found", args[0])
		}
		if err != nil {
			return fmt.Errorf("failed to load run: %w", err)
		}
		printRunSummary(cmd, run)
		return nil
	}

	runs, err := reportService.List(ctx, reportLimit)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No runs recorded yet.")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RUN", "STARTED", "DURATION", "SOURCE", "SINK", "COLLECTIONS", "OK", "PARTIAL", "FAILED")
	for _, run := range runs {
		t.Row(
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String(),
			run.Source,
			run.Sink,
			fmt.Sprintf("%d", len(run.Collections)),
			fmt.Sprintf("%d", run.Count(domain.StatusSuccess)),
			fmt.Sprintf("%d", run.Count(domain.StatusPartial)),
			fmt.Sprintf("%d", run.Count(domain.StatusFailed)),
		)
	}
	cmd.Println(t.String())
	return nil
}
