// Package config defines the Algora service configuration: structure,
// defaults, YAML loading with environment interpolation, and validation.
package config

import (
	"time"

	"github.com/mossland/Algora-sub004/internal/orchestrator"
	"github.com/mossland/Algora-sub004/internal/specialist"
)

// Config is the full service configuration.
type Config struct {
	Logging      LoggingConfig       `mapstructure:"logging"`
	Database     DatabaseConfig      `mapstructure:"database"`
	Orchestrator orchestrator.Config `mapstructure:"orchestrator"`
	Specialist   SpecialistConfig    `mapstructure:"specialist"`
	KPI          KPIConfig           `mapstructure:"kpi"`
	Metrics      MetricsConfig       `mapstructure:"metrics"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`

	// Format is "json" or "text".
	Format string `mapstructure:"format"`
}

// DatabaseConfig controls the SQLite store.
type DatabaseConfig struct {
	// Path is the database file path. ":memory:" runs without persistence.
	Path string `mapstructure:"path"`

	// BusyTimeout bounds waiting on a locked database.
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`
}

// SpecialistConfig groups specialist dispatch and provider settings.
type SpecialistConfig struct {
	Dispatch specialist.Config         `mapstructure:"dispatch"`
	Provider specialist.ProviderConfig `mapstructure:"provider"`
}

// KPIConfig controls the KPI collector.
type KPIConfig struct {
	// WindowCapacity bounds each metric's rolling window.
	WindowCapacity int `mapstructure:"window_capacity"`

	// AlertCapacity bounds the in-memory alert log.
	AlertCapacity int `mapstructure:"alert_capacity"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}
