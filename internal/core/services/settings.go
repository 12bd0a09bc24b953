package services

import (
	"fmt"
	"strconv"

	"github.com/custodia-labs/tabula/internal/core/domain"
	"github.com/custodia-labs/tabula/internal/core/ports/driven"
	"github.com/custodia-labs/tabula/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keySourceKind        = "source.kind"
	keyMongoURI          = "source.mongodb.uri"
	keyMongoDatabase     = "source.mongodb.database"
	keyJSONLDirectory    = "source.jsonl.directory"
	keyRateLimit         = "source.rate_limit"
	keyBatchSize         = "pipeline.batch_size"
	keySampleSize        = "pipeline.sample_size"
	keyMaxDepth          = "pipeline.max_depth"
	keyCollectionWorkers = "pipeline.collection_workers"
	keyFlattenWorkers    = "pipeline.flatten_workers"
	keySinkKind          = "sink.kind"
	keySinkDirectory     = "sink.directory"
	keySQLitePath        = "sink.sqlite.path"
	keyCompression       = "sink.parquet.compression"
	keyPushgatewayURL    = "metrics.pushgateway_url"
	keyMetricsJob        = "metrics.job"
	keyLogFile           = "logging.file"
)

type keyType int

const (
	typeString keyType = iota
	typeInt
	typeFloat
)

// settingKeys lists every supported key in display order.
var settingKeys = []struct {
	key string
	typ keyType
}{
	{keySourceKind, typeString},
	{keyMongoURI, typeString},
	{keyMongoDatabase, typeString},
	{keyJSONLDirectory, typeString},
	{keyRateLimit, typeFloat},
	{keyBatchSize, typeInt},
	{keySampleSize, typeInt},
	{keyMaxDepth, typeInt},
	{keyCollectionWorkers, typeInt},
	{keyFlattenWorkers, typeInt},
	{keySinkKind, typeString},
	{keySinkDirectory, typeString},
	{keySQLitePath, typeString},
	{keyCompression, typeString},
	{keyPushgatewayURL, typeString},
	{keyMetricsJob, typeString},
	{keyLogFile, typeString},
}

var compressions = map[string]bool{"snappy": true, "gzip": true, "zstd": true, "none": true}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.Settings, error) {
	defaults := domain.DefaultSettings()

	settings := &domain.Settings{
		Source: domain.SourceSettings{
			Kind:           s.getSourceKind(defaults.Source.Kind),
			MongoURI:       s.getString(keyMongoURI, defaults.Source.MongoURI),
			MongoDatabase:  s.configStore.GetString(keyMongoDatabase),
			JSONLDirectory: s.getString(keyJSONLDirectory, defaults.Source.JSONLDirectory),
			RateLimit:      s.getFloat(keyRateLimit, defaults.Source.RateLimit),
		},
		Sink: domain.SinkSettings{
			Kind:        s.getSinkKind(defaults.Sink.Kind),
			Directory:   s.getString(keySinkDirectory, defaults.Sink.Directory),
			SQLitePath:  s.getString(keySQLitePath, defaults.Sink.SQLitePath),
			Compression: s.getCompression(defaults.Sink.Compression),
		},
		Pipeline: domain.PipelineSettings{
			BatchSize:         s.getInt(keyBatchSize, defaults.Pipeline.BatchSize),
			SampleSize:        s.getInt(keySampleSize, defaults.Pipeline.SampleSize),
			MaxDepth:          s.getInt(keyMaxDepth, defaults.Pipeline.MaxDepth),
			CollectionWorkers: s.getInt(keyCollectionWorkers, defaults.Pipeline.CollectionWorkers),
			FlattenWorkers:    s.getInt(keyFlattenWorkers, defaults.Pipeline.FlattenWorkers),
		},
		Metrics: domain.MetricsSettings{
			PushgatewayURL: s.configStore.GetString(keyPushgatewayURL), // No default - empty disables push
			Job:            s.getString(keyMetricsJob, defaults.Metrics.Job),
		},
		LogFile: s.configStore.GetString(keyLogFile),
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.Settings) error {
	values := []struct {
		key   string
		value any
	}{
		{keySourceKind, settings.Source.Kind.String()},
		{keyMongoURI, settings.Source.MongoURI},
		{keyMongoDatabase, settings.Source.MongoDatabase},
		{keyJSONLDirectory, settings.Source.JSONLDirectory},
		{keyRateLimit, settings.Source.RateLimit},
		{keyBatchSize, settings.Pipeline.BatchSize},
		{keySampleSize, settings.Pipeline.SampleSize},
		{keyMaxDepth, settings.Pipeline.MaxDepth},
		{keyCollectionWorkers, settings.Pipeline.CollectionWorkers},
		{keyFlattenWorkers, settings.Pipeline.FlattenWorkers},
		{keySinkKind, settings.Sink.Kind.String()},
		{keySinkDirectory, settings.Sink.Directory},
		{keySQLitePath, settings.Sink.SQLitePath},
		{keyCompression, settings.Sink.Compression},
		{keyPushgatewayURL, settings.Metrics.PushgatewayURL},
		{keyMetricsJob, settings.Metrics.Job},
		{keyLogFile, settings.LogFile},
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// Set parses value according to the key's type and stores it.
func (s *SettingsService) Set(key, value string) error {
	for _, k := range settingKeys {
		if k.key != key {
			continue
		}

		var parsed any
		switch k.typ {
		case typeInt:
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return fmt.Errorf("%w: %s must be a positive integer", domain.ErrInvalidInput, key)
			}
			parsed = n
		case typeFloat:
			f, err := strconv.ParseFloat(value, 64)
			if err != nil || f < 0 {
				return fmt.Errorf("%w: %s must be a non-negative number", domain.ErrInvalidInput, key)
			}
			parsed = f
		default:
			if err := validateString(key, value); err != nil {
				return err
			}
			parsed = value
		}

		if err := s.configStore.Set(key, parsed); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
}

// Keys returns the supported configuration keys in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingKeys))
	for i, k := range settingKeys {
		keys[i] = k.key
	}
	return keys
}

// Validate checks the current settings are usable for a run.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return settings.Validate()
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

func validateString(key, value string) error {
	switch key {
	case keySourceKind:
		if !domain.SourceKind(value).IsValid() {
			return fmt.Errorf("%w: source kind %q", domain.ErrUnsupportedType, value)
		}
	case keySinkKind:
		if !domain.SinkKind(value).IsValid() {
			return fmt.Errorf("%w: sink kind %q", domain.ErrUnsupportedType, value)
		}
	case keyCompression:
		if !compressions[value] {
			return fmt.Errorf("%w: compression %q", domain.ErrUnsupportedType, value)
		}
	}
	return nil
}

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val, ok := s.configStore.Get(key)
	if !ok {
		return defaultVal
	}
	// TOML decodes whole numbers as int64
	switch v := val.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return defaultVal
	}
}

func (s *SettingsService) getSourceKind(defaultVal domain.SourceKind) domain.SourceKind {
	kind := domain.SourceKind(s.configStore.GetString(keySourceKind))
	if !kind.IsValid() {
		return defaultVal
	}
	return kind
}

func (s *SettingsService) getSinkKind(defaultVal domain.SinkKind) domain.SinkKind {
	kind := domain.SinkKind(s.configStore.GetString(keySinkKind))
	if !kind.IsValid() {
		return defaultVal
	}
	return kind
}

func (s *SettingsService) getCompression(defaultVal string) string {
	val := s.configStore.GetString(keyCompression)
	if !compressions[val] {
		return defaultVal
	}
	return val
}
