package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the source, sink, pipeline and metrics settings.

Settings are stored in config.toml under the tabula home directory.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a single setting",
	Long: `Set a single setting using its dot-notation key, for example:

  tabula settings set source.kind jsonl
  tabula settings set pipeline.batch_size 1000`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsWizardCmd = &cobra.Command{
	Use:   "wizard",
	Short: "Interactive setup wizard",
	Long:  `Run an interactive wizard to configure the source and sink step by step.`,
	RunE:  runSettingsWizard,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsWizardCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Source]")
	cmd.Printf("  Kind: %s\n", settings.Source.Kind)
	switch settings.Source.Kind {
	case domain.SourceMongoDB:
		cmd.Printf("  URI: %s\n", maskURI(settings.Source.MongoURI))
		cmd.Printf("  Database: %s\n", orNotSet(settings.Source.MongoDatabase))
	case domain.SourceJSONL:
		cmd.Printf("  Directory: %s\n", settings.Source.JSONLDirectory)
	}
	if settings.Source.RateLimit > 0 {
		cmd.Printf("  Rate limit: %g batches/s\n", settings.Source.RateLimit)
	} else {
		cmd.Printf("  Rate limit: off\n")
	}
	cmd.Println()

	cmd.Println("[Sink]")
	cmd.Printf("  Kind: %s\n", settings.Sink.Kind)
	switch settings.Sink.Kind {
	case domain.SinkParquet:
		cmd.Printf("  Directory: %s\n", settings.Sink.Directory)
		cmd.Printf("  Compression: %s\n", settings.Sink.Compression)
	case domain.SinkSQLite:
		cmd.Printf("  Database: %s\n", settings.Sink.SQLitePath)
	}
	cmd.Println()

	p := settings.Pipeline
	cmd.Println("[Pipeline]")
	cmd.Printf("  Batch size: %d\n", p.BatchSize)
	cmd.Printf("  Sample size: %d\n", p.SampleSize)
	cmd.Printf("  Max depth: %d\n", p.MaxDepth)
	cmd.Printf("  Collection workers: %d\n", p.CollectionWorkers)
	cmd.Printf("  Flatten workers: %d\n", p.FlattenWorkers)
	cmd.Println()

	cmd.Println("[Metrics]")
	if settings.Metrics.PushgatewayURL != "" {
		cmd.Printf("  Pushgateway: %s (job %s)\n", settings.Metrics.PushgatewayURL, settings.Metrics.Job)
	} else {
		cmd.Printf("  Pushgateway: off\n")
	}
	cmd.Printf("  Log file: %s\n", orNotSet(settings.LogFile))
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'tabula settings wizard' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) && strings.Contains(err.Error(), "unknown setting") {
			cmd.Println("Available keys:")
			for _, k := range settingsService.Keys() {
				cmd.Printf("  %s\n", k)
			}
		}
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	cmd.Printf("Set %s = %s\n", key, value)
	return nil
}

func runSettingsWizard(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Tabula Settings Wizard")
	cmd.Println("======================")
	cmd.Println()

	reader := bufio.NewReader(cmd.InOrStdin())

	// Step 1: Source
	cmd.Println("Step 1: Select Source")
	cmd.Println("---------------------")
	sources := []domain.SourceKind{domain.SourceMongoDB, domain.SourceJSONL}
	for i, kind := range sources {
		cmd.Printf("  %d. %s\n", i+1, kind)
	}
	cmd.Printf("\nEnter choice [%d]: ", indexOf(sources, settings.Source.Kind))
	settings.Source.Kind = sources[parseChoice(readLine(reader), len(sources), indexOf(sources, settings.Source.Kind))-1]

	switch settings.Source.Kind {
	case domain.SourceMongoDB:
		settings.Source.MongoURI = prompt(cmd, reader, "Connection URI (use <password> as a placeholder)", settings.Source.MongoURI)
		settings.Source.MongoDatabase = prompt(cmd, reader, "Database", settings.Source.MongoDatabase)
	case domain.SourceJSONL:
		settings.Source.JSONLDirectory = prompt(cmd, reader, "Directory of <collection>.jsonl files", settings.Source.JSONLDirectory)
	}
	cmd.Println()

	// Step 2: Sink
	cmd.Println("Step 2: Select Sink")
	cmd.Println("-------------------")
	sinks := []domain.SinkKind{domain.SinkParquet, domain.SinkSQLite}
	for i, kind := range sinks {
		cmd.Printf("  %d. %s\n", i+1, kind)
	}
	cmd.Printf("\nEnter choice [%d]: ", indexOf(sinks, settings.Sink.Kind))
	settings.Sink.Kind = sinks[parseChoice(readLine(reader), len(sinks), indexOf(sinks, settings.Sink.Kind))-1]

	switch settings.Sink.Kind {
	case domain.SinkParquet:
		settings.Sink.Directory = prompt(cmd, reader, "Output directory", settings.Sink.Directory)
	case domain.SinkSQLite:
		settings.Sink.SQLitePath = prompt(cmd, reader, "SQLite database file", settings.Sink.SQLitePath)
	}
	cmd.Println()

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	cmd.Println("Configuration Complete!")
	cmd.Println("=======================")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
	} else {
		cmd.Println("All settings are valid and saved.")
	}
	return nil
}

// Helper functions.

func prompt(cmd *cobra.Command, reader *bufio.Reader, label, current string) string {
	cmd.Printf("%s [%s]: ", label, current)
	if input := readLine(reader); input != "" {
		return input
	}
	return current
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// indexOf returns the one-based position of v, or 1 when absent.
func indexOf[T comparable](values []T, v T) int {
	for i, x := range values {
		if x == v {
			return i + 1
		}
	}
	return 1
}

// maskURI hides a literal password in a connection string.
// Placeholders such as <password> are shown as is.
func maskURI(uri string) string {
	scheme := strings.Index(uri, "://")
	if scheme < 0 {
		return uri
	}
	rest := uri[scheme+3:]
	hostEnd := strings.IndexAny(rest, "/?")
	if hostEnd < 0 {
		hostEnd = len(rest)
	}
	at := strings.LastIndex(rest[:hostEnd], "@")
	if at < 0 {
		return uri
	}
	user, password, ok := strings.Cut(rest[:at], ":")
	if !ok || password == "" || strings.HasPrefix(password, "<") {
		return uri
	}
	return uri[:scheme+3] + user + ":****" + rest[at:]
}

func orNotSet(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}

// PromptPassword asks for a password on the terminal without echo.
// Falls back to a plain line read when stdin is not a terminal.
//
//nolint:errcheck // CLI helper, error ignored for UX
func PromptPassword(out io.Writer, label string) string {
	fmt.Fprintf(out, "%s: ", label)
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(out)
		if err == nil {
			return string(password)
		}
	}
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

// StdinIsTerminal reports whether a password can be prompted for.
func StdinIsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}
