package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics aggregates counters for the advisory pipeline.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64

	// Counts per pipeline outcome (answered, escalated, faq_hit, ignored, relayed, failed).
	outcomeCounts map[string]*atomic.Int64

	// Recent request durations, bounded FIFO.
	durations    []time.Duration
	maxDurations int
}

// NewMetrics creates a new metrics collector.
func NewMetrics(maxDurations int) *Metrics {
	if maxDurations <= 0 {
		maxDurations = 1000
	}
	return &Metrics{
		outcomeCounts: make(map[string]*atomic.Int64),
		durations:     make([]time.Duration, 0, maxDurations),
		maxDurations:  maxDurations,
	}
}

// Global metrics instance.
var globalMetrics = NewMetrics(1000)

// GlobalMetrics returns the global metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// RecordRequest records a handled message with its outcome.
func (m *Metrics) RecordRequest(outcome string) {
	m.requestTotal.Add(1)
	m.getOutcome(outcome).Add(1)
}

// RecordFailure records a failed request.
func (m *Metrics) RecordFailure() {
	m.requestFailed.Add(1)
}

// RecordDuration records a request duration.
func (m *Metrics) RecordDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.durations) >= m.maxDurations {
		m.durations = m.durations[1:]
	}
	m.durations = append(m.durations, d)
}

// Snapshot returns current counter values.
func (m *Metrics) Snapshot() map[string]int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := map[string]int64{
		"request_total":  m.requestTotal.Load(),
		"request_failed": m.requestFailed.Load(),
	}
	for outcome, c := range m.outcomeCounts {
		snap["outcome_"+outcome] = c.Load()
	}

	var total time.Duration
	for _, d := range m.durations {
		total += d
	}
	if n := len(m.durations); n > 0 {
		snap["avg_duration_ms"] = (total / time.Duration(n)).Milliseconds()
	}
	return snap
}

func (m *Metrics) getOutcome(outcome string) *atomic.Int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.outcomeCounts[outcome]
	if !ok {
		c = &atomic.Int64{}
		m.outcomeCounts[outcome] = c
	}
	return c
}
