package domain

import (
	"fmt"
	"runtime"
)

// SourceKind identifies a document source adapter.
type SourceKind string

// Available source kinds.
const (
	// SourceMongoDB reads collections from a MongoDB database.
	SourceMongoDB SourceKind = "mongodb"

	// SourceJSONL reads <collection>.jsonl files of Extended JSON from a directory.
	SourceJSONL SourceKind = "jsonl"
)

// IsValid returns true if the source kind is recognised.
func (k SourceKind) IsValid() bool {
	return k == SourceMongoDB || k == SourceJSONL
}

// String returns the string representation.
func (k SourceKind) String() string {
	return string(k)
}

// SinkKind identifies a table sink adapter.
type SinkKind string

// Available sink kinds.
const (
	// SinkParquet writes one Parquet file per collection.
	SinkParquet SinkKind = "parquet"

	// SinkSQLite writes one table per collection into a SQLite database.
	SinkSQLite SinkKind = "sqlite"
)

// IsValid returns true if the sink kind is recognised.
func (k SinkKind) IsValid() bool {
	return k == SinkParquet || k == SinkSQLite
}

// String returns the string representation.
func (k SinkKind) String() string {
	return string(k)
}

// SourceSettings configures where documents are read from.
type SourceSettings struct {
	Kind SourceKind

	// MongoURI may contain a <password> placeholder filled at startup.
	MongoURI      string
	MongoDatabase string

	// JSONLDirectory holds <collection>.jsonl files.
	JSONLDirectory string

	// RateLimit caps batch reads per second. Zero disables throttling.
	RateLimit float64
}

// SinkSettings configures where tables are written.
type SinkSettings struct {
	Kind SinkKind

	// Directory receives Parquet files.
	Directory string

	// SQLitePath is the database file for the SQLite sink.
	SQLitePath string

	// Compression is the Parquet codec: snappy, gzip, zstd or none.
	Compression string
}

// PipelineSettings controls batching, sampling and parallelism.
type PipelineSettings struct {
	BatchSize         int
	SampleSize        int
	MaxDepth          int
	CollectionWorkers int
	FlattenWorkers    int
}

// MetricsSettings configures the Pushgateway reporter.
// An empty PushgatewayURL disables it.
type MetricsSettings struct {
	PushgatewayURL string
	Job            string
}

// Settings is the complete application configuration.
type Settings struct {
	Source   SourceSettings
	Sink     SinkSettings
	Pipeline PipelineSettings
	Metrics  MetricsSettings

	// LogFile receives a copy of log output when set.
	LogFile string
}

// Default values.
const (
	DefaultBatchSize         = 5000
	DefaultSampleSize        = 100
	DefaultMaxDepth          = 100
	DefaultCollectionWorkers = 2
	DefaultCompression       = "snappy"
	DefaultMetricsJob        = "tabula"
)

// DefaultPipelineSettings returns the default pipeline settings.
func DefaultPipelineSettings() PipelineSettings {
	return PipelineSettings{
		BatchSize:         DefaultBatchSize,
		SampleSize:        DefaultSampleSize,
		MaxDepth:          DefaultMaxDepth,
		CollectionWorkers: DefaultCollectionWorkers,
		FlattenWorkers:    runtime.NumCPU(),
	}
}

// DefaultSettings returns the default application settings.
func DefaultSettings() Settings {
	return Settings{
		Source: SourceSettings{
			Kind:           SourceMongoDB,
			MongoURI:       "mongodb://localhost:27017",
			JSONLDirectory: "data",
		},
		Sink: SinkSettings{
			Kind:        SinkParquet,
			Directory:   "exports",
			SQLitePath:  "exports/tabula.db",
			Compression: DefaultCompression,
		},
		Pipeline: DefaultPipelineSettings(),
		Metrics: MetricsSettings{
			Job: DefaultMetricsJob,
		},
	}
}

// Validate checks the pipeline settings are usable.
func (p PipelineSettings) Validate() error {
	if p.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be positive, got %d", ErrInvalidInput, p.BatchSize)
	}
	if p.SampleSize < 1 {
		return fmt.Errorf("%w: sample size must be positive, got %d", ErrInvalidInput, p.SampleSize)
	}
	if p.MaxDepth < 1 {
		return fmt.Errorf("%w: max depth must be positive, got %d", ErrInvalidInput, p.MaxDepth)
	}
	if p.CollectionWorkers < 1 {
		return fmt.Errorf("%w: collection workers must be positive, got %d", ErrInvalidInput, p.CollectionWorkers)
	}
	if p.FlattenWorkers < 1 {
		return fmt.Errorf("%w: flatten workers must be positive, got %d", ErrInvalidInput, p.FlattenWorkers)
	}
	return nil
}

// Validate checks the complete settings are usable.
func (s Settings) Validate() error {
	if !s.Source.Kind.IsValid() {
		return fmt.Errorf("%w: source kind %q", ErrUnsupportedType, s.Source.Kind)
	}
	if !s.Sink.Kind.IsValid() {
		return fmt.Errorf("%w: sink kind %q", ErrUnsupportedType, s.Sink.Kind)
	}
	if s.Source.Kind == SourceMongoDB && s.Source.MongoDatabase == "" {
		return fmt.Errorf("%w: source.mongodb.database is required", ErrInvalidInput)
	}
	if s.Source.RateLimit < 0 {
		return fmt.Errorf("%w: rate limit must not be negative", ErrInvalidInput)
	}
	return s.Pipeline.Validate()
}
