package kpi

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mossland/Algora-sub004/internal/events"
	"github.com/mossland/Algora-sub004/internal/types"
)

// Severity classifies a KPI alert.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// criticalDeviation is the relative deviation above which a breach is
// critical rather than a warning.
const criticalDeviation = 0.5

// defaultAlertLogCapacity bounds the in-memory alert log.
const defaultAlertLogCapacity = 256

// Alert records one target breach. Advisory only.
type Alert struct {
	Metric    string    `json:"metric"`
	Category  Category  `json:"category"`
	Severity  Severity  `json:"severity"`
	Value     float64   `json:"value"`
	Target    float64   `json:"target"`
	Timestamp time.Time `json:"timestamp"`
}

// MetricSummary is one metric's dashboard row.
type MetricSummary struct {
	Mean      float64   `json:"mean"`
	Count     int       `json:"count"`
	Target    float64   `json:"target,omitempty"`
	Direction Direction `json:"direction,omitempty"`
	Breached  bool      `json:"breached"`
}

// Dashboard is a point-in-time snapshot of every collected metric.
type Dashboard struct {
	GeneratedAt   time.Time                `json:"generated_at"`
	UptimeSeconds float64                  `json:"uptime_seconds"`
	Metrics       map[string]MetricSummary `json:"metrics"`
	AlertCount    int                      `json:"alert_count"`
}

// DecisionPacket carries the quality attributes of one produced decision
// packet for KPI sampling.
type DecisionPacket struct {
	WorkflowID            types.ID        `json:"workflow_id"`
	Completeness          float64         `json:"completeness"`
	OptionCount           int             `json:"option_count"`
	EvidenceCount         int             `json:"evidence_count"`
	ConfidenceCalibration float64         `json:"confidence_calibration"`
	RiskLevel             types.RiskLevel `json:"risk_level"`
	HasRedTeamAnalysis    bool            `json:"has_red_team_analysis"`
}

// Collector maintains the rolling windows, evaluates targets on every
// sample, and publishes kpi:* events. Explicitly constructed and passed, not
// a process-global.
type Collector struct {
	mu            sync.Mutex
	windows       map[string]*Window
	alerts        []Alert
	alertCapacity int
	windowCap     int

	bus       events.EventBus
	logger    *slog.Logger
	startedAt time.Time
	lastBeat  time.Time
	clock     func() time.Time
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector)

// WithWindowCapacity overrides the per-metric rolling window capacity.
func WithWindowCapacity(capacity int) CollectorOption {
	return func(c *Collector) {
		if capacity > 0 {
			c.windowCap = capacity
		}
	}
}

// WithAlertCapacity overrides the bounded alert log size.
func WithAlertCapacity(capacity int) CollectorOption {
	return func(c *Collector) {
		if capacity > 0 {
			c.alertCapacity = capacity
		}
	}
}

// withClock injects a fake clock for tests.
func withClock(clock func() time.Time) CollectorOption {
	return func(c *Collector) {
		c.clock = clock
	}
}

// NewCollector creates a collector publishing through bus. A nil bus is
// allowed; the collector then only accumulates state for the dashboard.
func NewCollector(bus events.EventBus, logger *slog.Logger, opts ...CollectorOption) (*Collector, error) {
	if err := ValidateTargets(); err != nil {
		return nil, fmt.Errorf("kpi target table validation failed: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Collector{
		windows:       make(map[string]*Window),
		alertCapacity: defaultAlertLogCapacity,
		windowCap:     DefaultWindowCapacity,
		bus:           bus,
		logger:        logger,
		clock:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.startedAt = c.clock()
	return c, nil
}

// RecordSample adds a sample to the metric's rolling window and re-evaluates
// its target. Breaches append to the alert log and publish kpi:alert and
// kpi:threshold_breach; every sample publishes kpi:updated.
func (c *Collector) RecordSample(metric string, value float64) {
	now := c.clock()

	c.mu.Lock()
	w, ok := c.windows[metric]
	if !ok {
		w = NewWindow(c.windowCap)
		c.windows[metric] = w
	}
	w.Add(value, now)
	mean := w.Mean()

	var alert *Alert
	if target, ok := TargetFor(metric); ok && target.Breached(mean) {
		severity := SeverityWarning
		if target.Deviation(mean) > criticalDeviation {
			severity = SeverityCritical
		}
		a := Alert{
			Metric:    metric,
			Category:  target.Category,
			Severity:  severity,
			Value:     mean,
			Target:    target.Value,
			Timestamp: now,
		}
		c.appendAlertLocked(a)
		alert = &a
	}
	dashboard := c.dashboardLocked(now)
	c.mu.Unlock()

	if alert != nil {
		c.logger.Warn("kpi target breached",
			"metric", alert.Metric, "severity", alert.Severity,
			"value", alert.Value, "target", alert.Target)
		c.publish(events.Event{
			Type:      events.EventKPIAlert,
			Timestamp: now,
			Payload:   *alert,
		})
		c.publish(events.Event{
			Type:      events.EventKPIThresholdBreach,
			Timestamp: now,
			Payload: events.ThresholdBreachPayload{
				Metric:    alert.Metric,
				Value:     alert.Value,
				Threshold: alert.Target,
			},
		})
	}
	c.publish(events.Event{
		Type:      events.EventKPIUpdated,
		Timestamp: now,
		Payload:   dashboard,
	})
}

// appendAlertLocked adds an alert to the bounded log, evicting the oldest.
func (c *Collector) appendAlertLocked(a Alert) {
	c.alerts = append(c.alerts, a)
	if len(c.alerts) > c.alertCapacity {
		c.alerts = c.alerts[len(c.alerts)-c.alertCapacity:]
	}
}

// RecordHeartbeat notes that the process is alive and samples the gap since
// the previous heartbeat.
func (c *Collector) RecordHeartbeat() {
	now := c.clock()

	c.mu.Lock()
	last := c.lastBeat
	c.lastBeat = now
	c.mu.Unlock()

	if !last.IsZero() {
		c.RecordSample(MetricHeartbeatGapSeconds, now.Sub(last).Seconds())
	}
	c.RecordSample(MetricUptimePercent, 100)
}

// RecordOperation samples one orchestration operation outcome into the error
// rate. Each sample is 0 (success) or 100 (failure); the window mean is the
// error percentage.
func (c *Collector) RecordOperation(success bool) {
	value := 0.0
	if !success {
		value = 100
	}
	c.RecordSample(MetricErrorRate, value)
}

// RecordLLMCall samples one provider invocation outcome into the
// llm_availability metric.
func (c *Collector) RecordLLMCall(success bool) {
	value := 100.0
	if !success {
		value = 0
	}
	c.RecordSample(MetricLLMAvailability, value)
}

// RecordQueueDepth samples the task queue depth.
func (c *Collector) RecordQueueDepth(depth int) {
	c.RecordSample(MetricQueueDepth, float64(depth))
}

// RecordDecisionPacket samples the decision-quality metrics for one packet.
// Red-team coverage is sampled for HIGH-risk packets only: 100 when the
// packet carries a red-team analysis, 0 when it does not. Lower-risk packets
// leave the coverage window untouched.
func (c *Collector) RecordDecisionPacket(packet DecisionPacket) {
	c.RecordSample(MetricCompleteness, packet.Completeness)
	c.RecordSample(MetricOptionDiversity, float64(packet.OptionCount))
	c.RecordSample(MetricEvidenceDepth, float64(packet.EvidenceCount))
	c.RecordSample(MetricConfidenceCalibration, packet.ConfidenceCalibration)

	if packet.RiskLevel == types.RiskHigh {
		coverage := 0.0
		if packet.HasRedTeamAnalysis {
			coverage = 100
		}
		c.RecordSample(MetricRedTeamCoverage, coverage)
	}
}

// RecordExecutionTiming samples a stage's wall-clock duration. Stage
// "end_to_end" is the whole-pipeline timing.
func (c *Collector) RecordExecutionTiming(stage string, duration time.Duration) {
	metric := StageMetric(stage)
	if stage == "end_to_end" {
		metric = MetricEndToEndSeconds
	}
	c.RecordSample(metric, duration.Seconds())
}

// Dashboard returns a snapshot of every collected metric.
func (c *Collector) Dashboard() Dashboard {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dashboardLocked(c.clock())
}

func (c *Collector) dashboardLocked(now time.Time) Dashboard {
	metrics := make(map[string]MetricSummary, len(c.windows))
	for name, w := range c.windows {
		summary := MetricSummary{Mean: w.Mean(), Count: w.Count()}
		if target, ok := TargetFor(name); ok {
			summary.Target = target.Value
			summary.Direction = target.Direction
			summary.Breached = target.Breached(summary.Mean)
		}
		metrics[name] = summary
	}
	return Dashboard{
		GeneratedAt:   now,
		UptimeSeconds: now.Sub(c.startedAt).Seconds(),
		Metrics:       metrics,
		AlertCount:    len(c.alerts),
	}
}

// Alerts returns the most recent alerts, newest last, capped at limit.
// A non-positive limit returns the whole bounded log.
func (c *Collector) Alerts(limit int) []Alert {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.alerts)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Alert, n)
	copy(out, c.alerts[len(c.alerts)-n:])
	return out
}

// ExportMetrics returns a flat namespaced metric map suitable for a scraper:
// every window's mean under an algora_ key, plus uptime and the alert total.
func (c *Collector) ExportMetrics() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]float64, len(c.windows)+2)
	for name, w := range c.windows {
		out["algora_"+name] = w.Mean()
	}
	out["algora_uptime_seconds"] = c.clock().Sub(c.startedAt).Seconds()
	out["algora_alerts_total"] = float64(len(c.alerts))
	return out
}

// publish sends a kpi event best-effort; a closed or absent bus only logs.
func (c *Collector) publish(event events.Event) {
	if c.bus == nil {
		return
	}
	if err := c.bus.Publish(context.Background(), event); err != nil {
		c.logger.Debug("kpi event not published", "type", event.Type, "error", err)
	}
}
