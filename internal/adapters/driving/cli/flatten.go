package cli

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tabula/internal/adapters/driven/source/bsonconv"
)

var flattenCmd = &cobra.Command{
	Use:   "flatten [file]",
	Short: "Flatten one Extended JSON document and show the resulting rows",
	Long: `Reads a single MongoDB Extended JSON document from a file, or from stdin
when no file is given, and prints its flat keys followed by the
denormalized table the pipeline would write for it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFlatten,
}

func init() {
	rootCmd.AddCommand(flattenCmd)
}

func runFlatten(cmd *cobra.Command, args []string) error {
	if transformService == nil {
		return errors.New("transform service not configured")
	}

	var (
		data []byte
		err  error
	)
	if len(args) == 1 && args[0] != "-" {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(cmd.InOrStdin())
	}
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	doc, err := bsonconv.ParseExtJSON(data)
	if err != nil {
		return err
	}

	preview, err := transformService.Preview(doc)
	if err != nil {
		return fmt.Errorf("failed to flatten: %w", err)
	}

	cmd.Printf("Flat keys (%d)\n", preview.Flat.Len())
	for _, key := range preview.Flat.Keys() {
		value, _ := preview.Flat.Get(key)
		cmd.Printf("  %s = %s\n", key, value)
	}
	cmd.Println()

	cmd.Printf("Table (%d columns, %d rows)\n", len(preview.Table.Columns), preview.Table.NumRows())
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(preview.Table.Columns...).
		Rows(preview.Table.Rows...)
	cmd.Println(t.String())
	return nil
}
