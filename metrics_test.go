package agent

import (
	"testing"
)

func TestMetricsCommandCounters(t *testing.T) {
	m := NewMetrics()

	snap := m.Snapshot()
	if snap.CommandsTotal != 0 {
		t.Errorf("expected 0 initial commands, got %d", snap.CommandsTotal)
	}

	m.RecordCommand(1_000_000, true, true)   // status, 1ms, ok
	m.RecordCommand(2_000_000, true, true)   // pause, 2ms, ok
	m.RecordCommand(500_000, false, false)   // bad arg, 0.5ms, failed before core

	snap = m.Snapshot()
	if snap.CommandsTotal != 3 {
		t.Errorf("expected 3 commands, got %d", snap.CommandsTotal)
	}
	if snap.CoreCalls != 2 {
		t.Errorf("expected 2 core calls, got %d", snap.CoreCalls)
	}
	if snap.CommandErrors != 1 {
		t.Errorf("expected 1 command error, got %d", snap.CommandErrors)
	}

	expectedErrorRate := float64(1) / float64(3) * 100.0
	if snap.ErrorRate < expectedErrorRate-0.1 || snap.ErrorRate > expectedErrorRate+0.1 {
		t.Errorf("expected error rate ~%.1f%%, got %.1f%%", expectedErrorRate, snap.ErrorRate)
	}
}

func TestMetricsCompletionWaits(t *testing.T) {
	m := NewMetrics()

	m.RecordCompletionWait(false) // save_state succeeded
	m.RecordCompletionWait(true)  // load_state timed out

	snap := m.Snapshot()
	if snap.CompletionWaits != 2 {
		t.Errorf("expected 2 completion waits, got %d", snap.CompletionWaits)
	}
	if snap.CompletionTimeouts != 1 {
		t.Errorf("expected 1 completion timeout, got %d", snap.CompletionTimeouts)
	}
}

func TestMetricsFrameAdvances(t *testing.T) {
	m := NewMetrics()
	m.RecordFrameAdvance()
	m.RecordFrameAdvance()
	m.RecordFrameAdvance()

	if got := m.Snapshot().FrameAdvances; got != 3 {
		t.Errorf("expected 3 frame advances, got %d", got)
	}
}

func TestMetricsLatencyHistogram(t *testing.T) {
	m := NewMetrics()

	m.RecordCommand(500, true, true)        // falls in every bucket >= 1us
	m.RecordCommand(50_000_000, true, true) // 50ms, falls in buckets >= 100ms

	snap := m.Snapshot()
	if snap.LatencyHistogram[0] != 1 {
		t.Errorf("expected 1 sample in the 1us bucket, got %d", snap.LatencyHistogram[0])
	}
	if snap.LatencyHistogram[numLatencyBuckets-1] != 2 {
		t.Errorf("expected both samples under the 10s bucket, got %d", snap.LatencyHistogram[numLatencyBuckets-1])
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.RecordCommand(1000, true, true)
	m.RecordCompletionWait(true)
	m.RecordFrameAdvance()

	m.Reset()

	snap := m.Snapshot()
	if snap.CommandsTotal != 0 || snap.CompletionWaits != 0 || snap.FrameAdvances != 0 {
		t.Errorf("expected all counters zeroed after Reset, got %+v", snap)
	}
}

func TestMetricsStop(t *testing.T) {
	m := NewMetrics()
	m.Stop()

	if m.StopTime.Load() == 0 {
		t.Error("expected StopTime to be set after Stop")
	}

	snap := m.Snapshot()
	if snap.UptimeNs == 0 {
		t.Error("expected non-zero uptime even for an immediately stopped server")
	}
}

func TestNoOpObserver(t *testing.T) {
	var o Observer = NoOpObserver{}
	// Must not panic; there is nothing to assert beyond that.
	o.ObserveCommand("status", 1000, true, true)
	o.ObserveCompletionWait("save_state", false)
	o.ObserveFrameAdvance()
}

func TestMetricsObserver(t *testing.T) {
	m := NewMetrics()
	o := NewMetricsObserver(m)

	o.ObserveCommand("status", 1000, true, true)
	o.ObserveCompletionWait("screenshot", true)
	o.ObserveFrameAdvance()

	snap := m.Snapshot()
	if snap.CommandsTotal != 1 {
		t.Errorf("expected observer to record command, got %d", snap.CommandsTotal)
	}
	if snap.CompletionTimeouts != 1 {
		t.Errorf("expected observer to record completion timeout, got %d", snap.CompletionTimeouts)
	}
	if snap.FrameAdvances != 1 {
		t.Errorf("expected observer to record frame advance, got %d", snap.FrameAdvances)
	}
}
