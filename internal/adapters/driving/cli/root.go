// Package cli implements the tabula command line interface.
// It is a driving adapter: commands call the core through driving ports
// configured by the entry point.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/tabula/internal/core/ports/driving"
	"github.com/custodia-labs/tabula/internal/logger"
)

// PipelineOpener connects the configured source and sink and returns a
// pipeline plus a function releasing both.
type PipelineOpener func(ctx context.Context) (driving.PipelineService, func(), error)

// Services holds the driving ports used by commands.
type Services struct {
	Settings  driving.SettingsService
	Reports   driving.ReportService
	Transform driving.TransformService
	Pipeline  PipelineOpener
}

var (
	version = "dev"
	verbose bool

	settingsService  driving.SettingsService
	reportService    driving.ReportService
	transformService driving.TransformService
	openPipeline     PipelineOpener
)

var rootCmd = &cobra.Command{
	Use:   "tabula",
	Short: "Flatten document collections into string tables",
	Long: `tabula reads collections of nested documents, flattens every document
into single-level keys, folds numbered list keys back into rows and writes
one string-only table per collection.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print progress and debug logs")
}

// Configure sets the services used by commands.
func Configure(s Services) {
	settingsService = s.Settings
	reportService = s.Reports
	transformService = s.Transform
	openPipeline = s.Pipeline
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx available to commands.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func connectPipeline(ctx context.Context) (driving.PipelineService, func(), error) {
	if openPipeline == nil {
		return nil, nil, errors.New("pipeline service not configured")
	}
	return openPipeline(ctx)
}
