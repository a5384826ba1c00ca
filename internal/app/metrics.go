package app

import (
	"sync/atomic"
	"time"
)

// Metrics tracks tick loop performance.
type Metrics struct {
	// Tick timing
	tickCount   atomic.Uint64
	tickTotalNs atomic.Int64
	tickMinNs   atomic.Int64
	tickMaxNs   atomic.Int64
	lastTickNs  atomic.Int64
	overruns    atomic.Uint64

	// Work done per tick
	refreshed atomic.Uint64
	autosaves atomic.Uint64

	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{startTime: time.Now()}
	// Initialize min to max int64 so the first tick will be smaller
	m.tickMinNs.Store(1<<63 - 1)
	return m
}

// RecordTick records the duration of one tick and the number of nodes it
// re-indexed. A tick longer than budget counts as an overrun.
func (m *Metrics) RecordTick(duration, budget time.Duration, refreshed int) {
	ns := duration.Nanoseconds()

	m.tickCount.Add(1)
	m.tickTotalNs.Add(ns)
	m.lastTickNs.Store(ns)
	m.refreshed.Add(uint64(refreshed))
	if budget > 0 && duration > budget {
		m.overruns.Add(1)
	}

	for {
		old := m.tickMinNs.Load()
		if ns >= old || m.tickMinNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.tickMaxNs.Load()
		if ns <= old || m.tickMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordAutosave records a started background save.
func (m *Metrics) RecordAutosave() {
	m.autosaves.Add(1)
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	count := m.tickCount.Load()
	var avg int64
	if count > 0 {
		avg = m.tickTotalNs.Load() / int64(count)
	}
	minNs := m.tickMinNs.Load()
	if minNs == 1<<63-1 {
		minNs = 0
	}
	return MetricsSnapshot{
		Uptime:         time.Since(m.startTime),
		TickCount:      count,
		AvgTickNs:      avg,
		MinTickNs:      minNs,
		MaxTickNs:      m.tickMaxNs.Load(),
		LastTickNs:     m.lastTickNs.Load(),
		Overruns:       m.overruns.Load(),
		NodesRefreshed: m.refreshed.Load(),
		Autosaves:      m.autosaves.Load(),
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.tickCount.Store(0)
	m.tickTotalNs.Store(0)
	m.tickMinNs.Store(1<<63 - 1)
	m.tickMaxNs.Store(0)
	m.lastTickNs.Store(0)
	m.overruns.Store(0)
	m.refreshed.Store(0)
	m.autosaves.Store(0)
	m.startTime = time.Now()
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime         time.Duration
	TickCount      uint64
	AvgTickNs      int64
	MinTickNs      int64
	MaxTickNs      int64
	LastTickNs     int64
	Overruns       uint64
	NodesRefreshed uint64
	Autosaves      uint64
}

// OverrunRate returns the percentage of ticks that exceeded their budget.
func (s MetricsSnapshot) OverrunRate() float64 {
	if s.TickCount == 0 {
		return 0
	}
	return float64(s.Overruns) / float64(s.TickCount) * 100
}

// AvgTick returns the average tick duration.
func (s MetricsSnapshot) AvgTick() time.Duration {
	return time.Duration(s.AvgTickNs)
}
