package agent

import (
	"sync/atomic"
	"time"
)

// LatencyBuckets defines the latency histogram buckets in nanoseconds,
// covering from 1us to 10s with logarithmic spacing.
var LatencyBuckets = []uint64{
	1_000,          // 1us
	10_000,         // 10us
	100_000,        // 100us
	1_000_000,      // 1ms
	10_000_000,     // 10ms
	100_000_000,    // 100ms
	1_000_000_000,  // 1s
	10_000_000_000, // 10s
}

const numLatencyBuckets = 8

// Metrics tracks dispatcher and completion-synchronizer statistics for one
// server instance.
type Metrics struct {
	// Command counters
	CommandsTotal  atomic.Uint64 // every dispatched request, regardless of outcome
	CommandErrors  atomic.Uint64 // requests that returned ok:false
	CoreCalls      atomic.Uint64 // requests that reached the core entrypoint

	// Completion synchronizer counters
	CompletionWaits    atomic.Uint64 // waits entered (save/load/screenshot)
	CompletionTimeouts atomic.Uint64 // waits that exceeded the budget
	FrameAdvances      atomic.Uint64 // single-frame advances issued while paused-stepping

	// Latency tracking (command handling, end to end)
	TotalLatencyNs atomic.Uint64
	OpCount        atomic.Uint64

	// Latency histogram buckets (cumulative counts); bucket[i] holds the
	// count of commands with latency <= LatencyBuckets[i].
	LatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64 // server start timestamp (UnixNano)
	StopTime  atomic.Int64 // server stop timestamp (UnixNano)
}

// NewMetrics creates a new metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// RecordCommand records one dispatched request and its outcome.
func (m *Metrics) RecordCommand(latencyNs uint64, reachedCore bool, success bool) {
	m.CommandsTotal.Add(1)
	if reachedCore {
		m.CoreCalls.Add(1)
	}
	if !success {
		m.CommandErrors.Add(1)
	}
	m.recordLatency(latencyNs)
}

// RecordCompletionWait records the outcome of a completion-event wait.
func (m *Metrics) RecordCompletionWait(timedOut bool) {
	m.CompletionWaits.Add(1)
	if timedOut {
		m.CompletionTimeouts.Add(1)
	}
}

// RecordFrameAdvance records a single-frame advance issued by paused-stepping.
func (m *Metrics) RecordFrameAdvance() {
	m.FrameAdvances.Add(1)
}

func (m *Metrics) recordLatency(latencyNs uint64) {
	m.TotalLatencyNs.Add(latencyNs)
	m.OpCount.Add(1)

	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.LatencyBuckets[i].Add(1)
		}
	}
}

// Stop marks the server as stopped.
func (m *Metrics) Stop() {
	m.StopTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time copy of Metrics, safe to read without
// racing further updates.
type MetricsSnapshot struct {
	CommandsTotal  uint64
	CommandErrors  uint64
	CoreCalls      uint64

	CompletionWaits    uint64
	CompletionTimeouts uint64
	FrameAdvances      uint64

	AvgLatencyNs uint64
	UptimeNs     uint64

	LatencyP50Ns  uint64
	LatencyP99Ns  uint64
	LatencyP999Ns uint64

	LatencyHistogram [numLatencyBuckets]uint64

	CommandsPerSecond float64
	ErrorRate         float64 // percentage of requests that returned ok:false
}

// Snapshot creates a point-in-time snapshot of metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		CommandsTotal:      m.CommandsTotal.Load(),
		CommandErrors:      m.CommandErrors.Load(),
		CoreCalls:          m.CoreCalls.Load(),
		CompletionWaits:    m.CompletionWaits.Load(),
		CompletionTimeouts: m.CompletionTimeouts.Load(),
		FrameAdvances:      m.FrameAdvances.Load(),
	}

	totalLatencyNs := m.TotalLatencyNs.Load()
	opCount := m.OpCount.Load()
	if opCount > 0 {
		snap.AvgLatencyNs = totalLatencyNs / opCount
	}

	startTime := m.StartTime.Load()
	stopTime := m.StopTime.Load()
	if stopTime > 0 {
		snap.UptimeNs = uint64(stopTime - startTime)
	} else {
		snap.UptimeNs = uint64(time.Now().UnixNano() - startTime)
	}

	if snap.UptimeNs > 0 {
		uptimeSeconds := float64(snap.UptimeNs) / 1e9
		snap.CommandsPerSecond = float64(snap.CommandsTotal) / uptimeSeconds
	}

	if snap.CommandsTotal > 0 {
		snap.ErrorRate = float64(snap.CommandErrors) / float64(snap.CommandsTotal) * 100.0
	}

	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.LatencyBuckets[i].Load()
	}

	if opCount > 0 {
		snap.LatencyP50Ns = m.calculatePercentile(0.50)
		snap.LatencyP99Ns = m.calculatePercentile(0.99)
		snap.LatencyP999Ns = m.calculatePercentile(0.999)
	}

	return snap
}

// calculatePercentile estimates the latency at the given percentile (0.0-1.0)
// using linear interpolation between histogram buckets.
func (m *Metrics) calculatePercentile(percentile float64) uint64 {
	totalOps := m.OpCount.Load()
	if totalOps == 0 {
		return 0
	}

	targetCount := uint64(float64(totalOps) * percentile)

	prevBucket := uint64(0)
	for i, bucket := range LatencyBuckets {
		bucketCount := m.LatencyBuckets[i].Load()
		if bucketCount >= targetCount {
			prevCount := uint64(0)
			if i > 0 {
				prevCount = m.LatencyBuckets[i-1].Load()
			}
			if bucketCount == prevCount {
				return bucket
			}
			fraction := float64(targetCount-prevCount) / float64(bucketCount-prevCount)
			return prevBucket + uint64(fraction*float64(bucket-prevBucket))
		}
		prevBucket = bucket
	}

	return LatencyBuckets[numLatencyBuckets-1]
}

// Reset zeroes all counters and restarts the uptime clock. Intended for
// tests.
func (m *Metrics) Reset() {
	m.CommandsTotal.Store(0)
	m.CommandErrors.Store(0)
	m.CoreCalls.Store(0)
	m.CompletionWaits.Store(0)
	m.CompletionTimeouts.Store(0)
	m.FrameAdvances.Store(0)
	m.TotalLatencyNs.Store(0)
	m.OpCount.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.LatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
	m.StopTime.Store(0)
}

// Observer allows pluggable metrics collection by the dispatcher and
// completion synchronizer.
type Observer interface {
	// ObserveCommand is called once per dispatched request.
	ObserveCommand(cmd string, latencyNs uint64, reachedCore bool, success bool)

	// ObserveCompletionWait is called once per completion-event wait.
	ObserveCompletionWait(class string, timedOut bool)

	// ObserveFrameAdvance is called once per paused-stepping frame advance.
	ObserveFrameAdvance()
}

// NoOpObserver discards all observations.
type NoOpObserver struct{}

func (NoOpObserver) ObserveCommand(string, uint64, bool, bool) {}
func (NoOpObserver) ObserveCompletionWait(string, bool)        {}
func (NoOpObserver) ObserveFrameAdvance()                      {}

// MetricsObserver implements Observer using the built-in Metrics.
type MetricsObserver struct {
	metrics *Metrics
}

// NewMetricsObserver creates an observer that records to the given metrics.
func NewMetricsObserver(m *Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveCommand(cmd string, latencyNs uint64, reachedCore bool, success bool) {
	o.metrics.RecordCommand(latencyNs, reachedCore, success)
}

func (o *MetricsObserver) ObserveCompletionWait(class string, timedOut bool) {
	o.metrics.RecordCompletionWait(timedOut)
}

func (o *MetricsObserver) ObserveFrameAdvance() {
	o.metrics.RecordFrameAdvance()
}

var _ Observer = (*MetricsObserver)(nil)
var _ Observer = (*NoOpObserver)(nil)
