package config

import (
	"fmt"

	"github.com/mossland/Algora-sub004/internal/types"
)

var validLogLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true,
}

var validLogFormats = map[string]bool{
	"json": true, "text": true,
}

var validProviderKinds = map[string]bool{
	"openai": true, "anthropic": true, "ollama": true,
}

// Validate checks the configuration for values that would fail at runtime.
// The service refuses to start on a broken configuration rather than limp
// through a workflow.
func Validate(cfg *Config) error {
	var problems []string

	if !validLogLevels[cfg.Logging.Level] {
		problems = append(problems, fmt.Sprintf("logging.level %q is not one of debug/info/warn/error", cfg.Logging.Level))
	}
	if !validLogFormats[cfg.Logging.Format] {
		problems = append(problems, fmt.Sprintf("logging.format %q is not json or text", cfg.Logging.Format))
	}

	if cfg.Database.Path == "" {
		problems = append(problems, "database.path cannot be empty")
	}
	if cfg.Database.BusyTimeout < 0 {
		problems = append(problems, "database.busy_timeout cannot be negative")
	}

	if cfg.Orchestrator.MaxConcurrentWorkflows < 1 {
		problems = append(problems, "orchestrator.max_concurrent_workflows must be >= 1")
	}
	if cfg.Orchestrator.StageTimeout <= 0 {
		problems = append(problems, "orchestrator.stage_timeout must be positive")
	}

	if cfg.Specialist.Dispatch.MaxAttempts < 1 {
		problems = append(problems, "specialist.dispatch.max_attempts must be >= 1")
	}
	if !validProviderKinds[cfg.Specialist.Provider.Kind] {
		problems = append(problems, fmt.Sprintf("specialist.provider.kind %q is not one of openai/anthropic/ollama", cfg.Specialist.Provider.Kind))
	}
	if len(cfg.Specialist.Provider.Models) == 0 {
		problems = append(problems, "specialist.provider.models must declare at least a basic tier")
	}

	if cfg.KPI.WindowCapacity < 1 {
		problems = append(problems, "kpi.window_capacity must be >= 1")
	}
	if cfg.KPI.AlertCapacity < 1 {
		problems = append(problems, "kpi.alert_capacity must be >= 1")
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		problems = append(problems, "metrics.listen cannot be empty when metrics are enabled")
	}

	if len(problems) > 0 {
		return types.NewError(types.CONFIG_VALIDATION_FAILED,
			"invalid configuration: "+joinProblems(problems))
	}
	return nil
}

func joinProblems(problems []string) string {
	out := problems[0]
	for _, p := range problems[1:] {
		out += "; " + p
	}
	return out
}
