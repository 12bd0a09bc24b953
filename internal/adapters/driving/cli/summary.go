package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

// collectionTable renders one line per collection report.
func collectionTable(reports []domain.CollectionReport) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("COLLECTION", "STATUS", "TYPE", "DOCS", "ROWS", "COLUMNS", "SKIPPED", "DURATION")
	for _, c := range reports {
		t.Row(
			c.Collection,
			string(c.Status),
			orDash(string(c.Classification)),
			fmt.Sprintf("%d", c.DocumentsIn),
			fmt.Sprintf("%d", c.RowsOut),
			fmt.Sprintf("%d -> %d", c.ColumnsBefore, c.ColumnsAfter),
			fmt.Sprintf("%d", c.Skipped),
			c.Duration.Round(time.Millisecond).String(),
		)
	}
	return t.String()
}

// printRunSummary prints the per-collection table and the run totals.
func printRunSummary(cmd *cobra.Command, run *domain.RunReport) {
	cmd.Printf("\nRun %s (%s -> %s)\n", run.ID, run.Source, run.Sink)
	cmd.Println(collectionTable(run.Collections))

	docs, rows := run.Totals()
	cmd.Printf("Total: %d  Successful: %d  Partial: %d  Failed: %d\n",
		len(run.Collections),
		run.Count(domain.StatusSuccess),
		run.Count(domain.StatusPartial),
		run.Count(domain.StatusFailed))
	cmd.Printf("Success rate: %.1f%%\n", run.SuccessRate()*100)
	cmd.Printf("Documents: %d  Rows: %d\n", docs, rows)

	var problems []string
	for _, c := range run.Collections {
		if c.Error != "" {
			problems = append(problems, fmt.Sprintf("  %s [%s]: %s", c.Collection, c.Status, c.Error))
		}
	}
	if len(problems) > 0 {
		cmd.Println("Problems:")
		cmd.Println(strings.Join(problems, "\n"))
	}
	if failed := run.Failed(); len(failed) > 0 {
		cmd.Printf("Failed collections: %s\n", strings.Join(failed, ", "))
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
