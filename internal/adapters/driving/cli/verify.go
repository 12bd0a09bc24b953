package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tabula/internal/adapters/driven/sink/parquet"
	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/services"
)

// ErrVerifyFailed is returned when an output file breaks the string-table contract.
var ErrVerifyFailed = errors.New("verification failed")

var verifySample int

var verifyCmd = &cobra.Command{
	Use:   "verify [file.parquet...]",
	Short: "Check written Parquet files are flat string tables",
	Long: `Opens each Parquet file, or every file in the configured sink directory
when none are given, and checks that every column is a string column.
Reports the shape of each file and any columns that still carry a list
index in their name.`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().IntVar(&verifySample, "sample", 0, "print the first N rows of each file")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	paths := args
	if len(paths) == 0 {
		if settingsService == nil {
			return errors.New("settings service not configured")
		}
		settings, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("failed to get settings: %w", err)
		}
		if settings.Sink.Kind != domain.SinkParquet {
			return fmt.Errorf("%w: verify reads parquet output, sink is %s", domain.ErrUnsupportedType, settings.Sink.Kind)
		}
		paths, err = filepath.Glob(filepath.Join(settings.Sink.Directory, "*.parquet"))
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", settings.Sink.Directory, err)
		}
		if len(paths) == 0 {
			cmd.Printf("No parquet files in %s\n", settings.Sink.Directory)
			return nil
		}
	}

	var failed []string
	for _, path := range paths {
		ok, err := verifyFile(cmd, path)
		if err != nil {
			cmd.Printf("%s: %v\n", path, err)
		}
		if !ok || err != nil {
			failed = append(failed, path)
		}
	}

	cmd.Printf("\n%d files checked, %d failed\n", len(paths), len(failed))
	if len(failed) > 0 {
		return fmt.Errorf("%w: %s", ErrVerifyFailed, strings.Join(failed, ", "))
	}
	return nil
}

func verifyFile(cmd *cobra.Command, path string) (bool, error) {
	summary, err := parquet.Inspect(path)
	if err != nil {
		return false, err
	}

	cmd.Printf("%s: %d rows x %d columns in %d row groups\n",
		path, summary.Rows, len(summary.Columns), summary.RowGroups)

	ok := len(summary.NonString) == 0
	if ok {
		cmd.Println("  all columns are strings")
	} else {
		cmd.Printf("  NON-STRING columns: %s\n", strings.Join(summary.NonString, ", "))
	}

	if numbered := numberedColumns(summary.Columns); len(numbered) > 0 {
		cmd.Printf("  %d numbered columns remain: %s\n", len(numbered), strings.Join(numbered, ", "))
	}

	if verifySample > 0 && summary.Rows > 0 {
		tbl, err := parquet.ReadTable(path)
		if err != nil {
			return ok, err
		}
		rows := tbl.Rows
		if len(rows) > verifySample {
			rows = rows[:verifySample]
		}
		cmd.Println(table.New().
			Border(lipgloss.NormalBorder()).
			Headers(tbl.Columns...).
			Rows(rows...).
			String())
	}
	return ok, nil
}

// numberedColumns returns column names that still contain a list index token.
func numberedColumns(columns []string) []string {
	var out []string
	for _, c := range columns {
		if _, _, _, ok := services.ParseFlatKey(c); ok {
			out = append(out, c)
		}
	}
	return out
}
