package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

var collectionsDetect bool

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List collections in the source",
	Long: `Lists the collections available in the configured source.
With --detect, each collection is sampled and classified as flat or nested.`,
	Args: cobra.NoArgs,
	RunE: runCollections,
}

var detectCmd = &cobra.Command{
	Use:   "detect <collection>",
	Short: "Classify a collection from a sample of its documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runDetect,
}

func init() {
	collectionsCmd.Flags().BoolVar(&collectionsDetect, "detect", false, "sample and classify each collection")
	rootCmd.AddCommand(collectionsCmd)
	rootCmd.AddCommand(detectCmd)
}

func runCollections(cmd *cobra.Command, _ []string) error {
	ctx := commandContext(cmd)

	pipeline, release, err := connectPipeline(ctx)
	if err != nil {
		return err
	}
	defer release()

	names, err := pipeline.Collections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	if len(names) == 0 {
		cmd.Println("No collections found.")
		return nil
	}

	if !collectionsDetect {
		for _, name := range names {
			cmd.Println(name)
		}
		cmd.Printf("\n%d collections\n", len(names))
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("COLLECTION", "TYPE", "SAMPLED", "NESTED", "FIELDS", "DEPTH", "LISTS")
	counts := map[domain.Classification]int{}
	for _, name := range names {
		profile, err := pipeline.Detect(ctx, name)
		if err != nil {
			t.Row(name, "error: "+err.Error(), "", "", "", "", "")
			continue
		}
		counts[profile.Classification]++
		t.Row(name,
			string(profile.Classification),
			fmt.Sprintf("%d", profile.SampledDocuments),
			fmt.Sprintf("%d", profile.NestedDocuments),
			fmt.Sprintf("%d", profile.FieldCount),
			fmt.Sprintf("%d", profile.MaxDepth),
			yesNo(profile.HasLists),
		)
	}
	cmd.Println(t.String())
	cmd.Printf("%d collections: %d flat, %d nested\n",
		len(names), counts[domain.ClassificationFlat], counts[domain.ClassificationNested])
	return nil
}

func runDetect(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	pipeline, release, err := connectPipeline(ctx)
	if err != nil {
		return err
	}
	defer release()

	profile, err := pipeline.Detect(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to detect %s: %w", args[0], err)
	}

	cmd.Printf("Collection: %s\n", args[0])
	cmd.Printf("  Classification: %s\n", profile.Classification)
	cmd.Printf("  Sampled documents: %d\n", profile.SampledDocuments)
	cmd.Printf("  Nested documents: %d (%.0f%%)\n", profile.NestedDocuments, profile.NestedRatio()*100)
	cmd.Printf("  Top-level fields: %d\n", profile.FieldCount)
	cmd.Printf("  Max depth: %d\n", profile.MaxDepth)
	cmd.Printf("  Has lists: %s\n", yesNo(profile.HasLists))
	if len(profile.LeafKinds) > 0 {
		cmd.Printf("  Value kinds: %s\n", formatKinds(profile.LeafKinds))
	}
	if n := profile.LeafKinds[domain.KindUnknown]; n > 0 {
		cmd.Printf("  Warning: %d values have no string form; their documents will be skipped\n", n)
	}
	return nil
}

func formatKinds(kinds map[domain.ScalarKind]int) string {
	parts := make([]string, 0, len(kinds))
	for kind, n := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", kind, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
