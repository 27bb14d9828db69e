package config

import (
	"time"

	"github.com/mossland/Algora-sub004/internal/kpi"
	"github.com/mossland/Algora-sub004/internal/orchestrator"
	"github.com/mossland/Algora-sub004/internal/specialist"
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Database: DatabaseConfig{
			Path:        "algora.db",
			BusyTimeout: 5 * time.Second,
		},
		Orchestrator: orchestrator.DefaultConfig(),
		Specialist: SpecialistConfig{
			Dispatch: specialist.DefaultConfig(),
			Provider: specialist.ProviderConfig{
				Kind: "openai",
				Models: map[string]string{
					"basic":    "gpt-4o-mini",
					"standard": "gpt-4o-mini",
					"advanced": "gpt-4o",
					"expert":   "gpt-4o",
				},
			},
		},
		KPI: KPIConfig{
			WindowCapacity: kpi.DefaultWindowCapacity,
			AlertCapacity:  256,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  "127.0.0.1:9464",
		},
	}
}
