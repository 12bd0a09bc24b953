// Command tabula converts document collections into flat string tables.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/tabula/internal/adapters/driven/config/file"
	"github.com/custodia-labs/tabula/internal/adapters/driven/metrics/logging"
	"github.com/custodia-labs/tabula/internal/adapters/driven/metrics/prompush"
	"github.com/custodia-labs/tabula/internal/adapters/driven/sink"
	"github.com/custodia-labs/tabula/internal/adapters/driven/source"
	"github.com/custodia-labs/tabula/internal/adapters/driven/source/mongodb"
	"github.com/custodia-labs/tabula/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/tabula/internal/adapters/driving/cli"
	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driven"
	"github.com/custodia-labs/tabula/internal/core/ports/driving"
	"github.com/custodia-labs/tabula/internal/core/services"
	"github.com/custodia-labs/tabula/internal/logger"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Environment variables.
const (
	envHome          = "TABULA_HOME"
	envMongoPassword = "TABULA_MONGODB_PASSWORD"
)

func main() {
	if err := run(); err != nil {
		// cobra has already printed command errors
		os.Exit(1)
	}
}

func run() error {
	home := os.Getenv(envHome)

	configStore, err := file.NewConfigStore(home)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: loading config: %v\n", err)
		return err
	}
	settingsService := services.NewSettingsService(configStore)

	settings, err := settingsService.Get()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: reading settings: %v\n", err)
		return err
	}

	if settings.LogFile != "" {
		closeLog, err := teeLog(settings.LogFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: opening log file: %v\n", err)
			return err
		}
		defer closeLog()
	}

	dataDir := ""
	if home != "" {
		dataDir = filepath.Join(home, "data")
	}
	store, err := sqlite.NewStore(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: opening run history: %v\n", err)
		return err
	}
	defer store.Close()

	sources := source.NewRegistry()
	source.RegisterDefaults(sources)
	sinks := sink.NewRegistry()
	sink.RegisterDefaults(sinks)

	opener := func(ctx context.Context) (driving.PipelineService, func(), error) {
		return openPipeline(ctx, settingsService, sources, sinks, store.RunStore())
	}

	cli.Configure(cli.Services{
		Settings:  settingsService,
		Reports:   services.NewReportService(store.RunStore()),
		Transform: services.NewTransformService(settings.Pipeline.MaxDepth),
		Pipeline:  opener,
	})
	cli.SetVersion(version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return cli.ExecuteContext(ctx)
}

// openPipeline connects the configured source and sink and builds the pipeline.
func openPipeline(
	ctx context.Context,
	settingsService driving.SettingsService,
	sources *source.Registry,
	sinks *sink.Registry,
	runStore driven.RunStore,
) (driving.PipelineService, func(), error) {
	settings, err := settingsService.Get()
	if err != nil {
		return nil, nil, fmt.Errorf("reading settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid settings (see 'tabula settings'): %w", err)
	}

	password, err := mongoPassword(settings.Source)
	if err != nil {
		return nil, nil, err
	}

	src, err := sources.Build(ctx, settings.Source, password)
	if err != nil {
		return nil, nil, err
	}

	snk, err := sinks.Build(settings.Sink)
	if err != nil {
		if cerr := src.Close(context.WithoutCancel(ctx)); cerr != nil {
			logger.Warn("Closing source: %v", cerr)
		}
		return nil, nil, err
	}

	reporters := []driven.Reporter{logging.NewReporter()}
	if settings.Metrics.PushgatewayURL != "" {
		pusher, err := prompush.NewReporter(settings.Metrics.Job, settings.Metrics.PushgatewayURL)
		if err != nil {
			logger.Warn("Metrics disabled: %v", err)
		} else {
			reporters = append(reporters, pusher)
		}
	}

	pipeline := services.NewPipeline(src, snk, runStore, settings.Pipeline, reporters...)
	release := func() {
		if err := snk.Close(); err != nil {
			logger.Warn("Closing sink: %v", err)
		}
		if err := src.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("Closing source: %v", err)
		}
	}
	return pipeline, release, nil
}

// mongoPassword resolves the password for a placeholder in the MongoDB URI.
func mongoPassword(cfg domain.SourceSettings) (string, error) {
	if cfg.Kind != domain.SourceMongoDB || !mongodb.NeedsPassword(cfg.MongoURI) {
		return "", nil
	}
	if pw := os.Getenv(envMongoPassword); pw != "" {
		return pw, nil
	}
	if cli.StdinIsTerminal() {
		if pw := cli.PromptPassword(os.Stderr, "MongoDB password"); pw != "" {
			return pw, nil
		}
	}
	return "", fmt.Errorf("%w: the MongoDB URI has a password placeholder; set %s",
		domain.ErrInvalidInput, envMongoPassword)
}

// teeLog copies log output to path in addition to stderr.
func teeLog(path string) (func(), error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(io.MultiWriter(os.Stderr, f))
	return func() {
		logger.SetOutput(os.Stderr)
		if err := f.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			fmt.Fprintf(os.Stderr, "closing log file: %v\n", err)
		}
	}, nil
}
