package driving

import "github.com/custodia-labs/tabula/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, filling defaults for unset keys.
	Get() (*domain.Settings, error)

	// Save persists application settings.
	Save(settings *domain.Settings) error

	// Set parses and stores a single dot-notation key.
	Set(key, value string) error

	// Keys returns the supported configuration keys in display order.
	Keys() []string

	// Validate checks the current settings are usable for a run.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings
}
