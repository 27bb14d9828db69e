// Package kpi collects operational samples from the orchestration core into
// bounded rolling windows, compares aggregates against fixed targets, and
// raises advisory alerts on breach. Alerts never block the pipeline.
package kpi

import "time"

// DefaultWindowCapacity bounds every metric's rolling window.
const DefaultWindowCapacity = 1000

// Sample is one recorded measurement.
type Sample struct {
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Window is a bounded rolling window of samples. When full, adding a sample
// evicts the oldest. Not safe for concurrent use; the Collector serializes
// access.
type Window struct {
	samples  []Sample
	capacity int
	head     int
	count    int
	sum      float64
}

// NewWindow creates a window with the given capacity. Non-positive capacities
// fall back to DefaultWindowCapacity.
func NewWindow(capacity int) *Window {
	if capacity <= 0 {
		capacity = DefaultWindowCapacity
	}
	return &Window{
		samples:  make([]Sample, capacity),
		capacity: capacity,
	}
}

// Add records a sample, evicting the oldest when the window is full.
func (w *Window) Add(value float64, at time.Time) {
	idx := (w.head + w.count) % w.capacity
	if w.count == w.capacity {
		w.sum -= w.samples[w.head].Value
		w.head = (w.head + 1) % w.capacity
		idx = (w.head + w.count - 1) % w.capacity
	} else {
		w.count++
	}
	w.samples[idx] = Sample{Value: value, Timestamp: at}
	w.sum += value
}

// Count returns the number of samples currently held.
func (w *Window) Count() int {
	return w.count
}

// Mean returns the arithmetic mean over the current window, or 0 when empty.
func (w *Window) Mean() float64 {
	if w.count == 0 {
		return 0
	}
	return w.sum / float64(w.count)
}

// Last returns the most recent sample and whether one exists.
func (w *Window) Last() (Sample, bool) {
	if w.count == 0 {
		return Sample{}, false
	}
	return w.samples[(w.head+w.count-1)%w.capacity], true
}
