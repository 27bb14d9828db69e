package kpi

import "fmt"

// Category groups metrics into the three KPI families.
type Category string

const (
	CategoryDecisionQuality Category = "decision_quality"
	CategoryExecutionSpeed  Category = "execution_speed"
	CategorySystemHealth    Category = "system_health"
)

// Direction states which side of the target is healthy.
type Direction string

const (
	// AtLeast means the rolling mean should be >= the target.
	AtLeast Direction = "at_least"
	// AtMost means the rolling mean should be <= the target.
	AtMost Direction = "at_most"
)

// Decision-quality metric names.
const (
	MetricCompleteness          = "completeness"
	MetricOptionDiversity       = "option_diversity"
	MetricRedTeamCoverage       = "red_team_coverage"
	MetricEvidenceDepth         = "evidence_depth"
	MetricConfidenceCalibration = "confidence_calibration"
)

// Execution-speed metric names. Stage timings follow the
// stage_<stage>_seconds pattern; end-to-end has its own name.
const (
	MetricEndToEndSeconds = "end_to_end_seconds"
	stageMetricPrefix     = "stage_"
	stageMetricSuffix     = "_seconds"
)

// System-health metric names.
const (
	MetricUptimePercent       = "uptime_percent"
	MetricHeartbeatGapSeconds = "heartbeat_gap_seconds"
	MetricLLMAvailability     = "llm_availability"
	MetricQueueDepth          = "queue_depth"
	MetricErrorRate           = "error_rate"
)

// Target is a fixed threshold for one metric's rolling mean.
type Target struct {
	Metric    string    `json:"metric"`
	Category  Category  `json:"category"`
	Value     float64   `json:"value"`
	Direction Direction `json:"direction"`
}

// Breached reports whether the aggregated value violates the target.
func (t Target) Breached(value float64) bool {
	switch t.Direction {
	case AtLeast:
		return value < t.Value
	case AtMost:
		return value > t.Value
	}
	return false
}

// Deviation returns |value - target| / target, the relative distance from
// the target. A zero target makes any nonzero value a full deviation.
func (t Target) Deviation(value float64) float64 {
	if t.Value == 0 {
		if value == 0 {
			return 0
		}
		return 1
	}
	diff := value - t.Value
	if diff < 0 {
		diff = -diff
	}
	return diff / t.Value
}

// StageMetric returns the execution-speed metric name for a workflow stage.
func StageMetric(stage string) string {
	return stageMetricPrefix + stage + stageMetricSuffix
}

// stageSecondsTargets caps the mean wall-clock seconds per workflow stage.
var stageSecondsTargets = map[string]float64{
	"intake":    60,
	"research":  600,
	"analysis":  600,
	"debate":    1800,
	"drafting":  900,
	"red_team":  900,
	"review":    600,
	"voting":    3600,
	"approval":  1800,
	"execution": 900,
}

// targets is the fixed target table, validated at startup. It is data, not
// control flow.
var targets = buildTargets()

func buildTargets() map[string]Target {
	out := map[string]Target{
		MetricCompleteness:          {Metric: MetricCompleteness, Category: CategoryDecisionQuality, Value: 90, Direction: AtLeast},
		MetricOptionDiversity:       {Metric: MetricOptionDiversity, Category: CategoryDecisionQuality, Value: 3, Direction: AtLeast},
		MetricRedTeamCoverage:       {Metric: MetricRedTeamCoverage, Category: CategoryDecisionQuality, Value: 100, Direction: AtLeast},
		MetricEvidenceDepth:         {Metric: MetricEvidenceDepth, Category: CategoryDecisionQuality, Value: 5, Direction: AtLeast},
		MetricConfidenceCalibration: {Metric: MetricConfidenceCalibration, Category: CategoryDecisionQuality, Value: 80, Direction: AtLeast},

		MetricEndToEndSeconds: {Metric: MetricEndToEndSeconds, Category: CategoryExecutionSpeed, Value: 7200, Direction: AtMost},

		MetricUptimePercent:       {Metric: MetricUptimePercent, Category: CategorySystemHealth, Value: 99, Direction: AtLeast},
		MetricHeartbeatGapSeconds: {Metric: MetricHeartbeatGapSeconds, Category: CategorySystemHealth, Value: 120, Direction: AtMost},
		MetricLLMAvailability:     {Metric: MetricLLMAvailability, Category: CategorySystemHealth, Value: 95, Direction: AtLeast},
		MetricQueueDepth:          {Metric: MetricQueueDepth, Category: CategorySystemHealth, Value: 50, Direction: AtMost},
		MetricErrorRate:           {Metric: MetricErrorRate, Category: CategorySystemHealth, Value: 5, Direction: AtMost},
	}
	for stage, seconds := range stageSecondsTargets {
		name := StageMetric(stage)
		out[name] = Target{Metric: name, Category: CategoryExecutionSpeed, Value: seconds, Direction: AtMost}
	}
	return out
}

// TargetFor returns the fixed target for a metric, if one is defined.
// Metrics without a target are collected but never alerted on.
func TargetFor(metric string) (Target, bool) {
	t, ok := targets[metric]
	return t, ok
}

// Targets returns a copy of the full target table for dashboards.
func Targets() map[string]Target {
	out := make(map[string]Target, len(targets))
	for k, v := range targets {
		out[k] = v
	}
	return out
}

// ValidateTargets checks the static target table at startup: every target
// names its own metric, belongs to a known category, and has a direction.
func ValidateTargets() error {
	for name, t := range targets {
		if t.Metric != name {
			return fmt.Errorf("target %s names metric %s", name, t.Metric)
		}
		switch t.Category {
		case CategoryDecisionQuality, CategoryExecutionSpeed, CategorySystemHealth:
		default:
			return fmt.Errorf("target %s has unknown category %q", name, t.Category)
		}
		switch t.Direction {
		case AtLeast, AtMost:
		default:
			return fmt.Errorf("target %s has unknown direction %q", name, t.Direction)
		}
	}
	return nil
}
