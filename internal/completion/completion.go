// Package completion implements the completion-event synchronizer: sequence
// counters and last-result cells updated from the core's state-change
// callback, and the blocking waiters that cooperate with the emulator's
// pause/step protocol (paused-stepping) so a completion wait can never
// deadlock against a paused core.
package completion

import (
	"sync/atomic"
	"time"
)

// Cell tracks one completion event class (state-load, state-save, or
// screenshot): a monotone sequence counter and the core-reported value of
// the most recent completion.
type Cell struct {
	seq        atomic.Uint64
	lastResult atomic.Int32
}

// Snapshot returns the current seq, for recording before issuing the
// triggering command.
func (c *Cell) Snapshot() uint64 {
	return c.seq.Load()
}

// LastResult returns the most recently published result.
func (c *Cell) LastResult() int32 {
	return c.lastResult.Load()
}

// Publish is called from the core's callback thread: it stores the result
// first, then increments seq, matching spec.md §4.4's ordering ("last_result
// is atomically set and seq is atomically incremented, in that order").
func (c *Cell) Publish(result int32) {
	c.lastResult.Store(result)
	c.seq.Add(1)
}

// FrameCounter is the last-frame counter published by the core's frame
// callback.
type FrameCounter struct {
	frame atomic.Uint32
}

// Snapshot returns the current frame index.
func (f *FrameCounter) Snapshot() uint32 {
	return f.frame.Load()
}

// Publish stores the latest frame index.
func (f *FrameCounter) Publish(frame uint32) {
	f.frame.Store(frame)
}

// EmuStateQuery and AdvanceFrame are the two core operations the
// paused-stepping waiter needs; supplied by the caller so this package does
// not depend on the root Core interface (avoiding an import cycle) —
// grounded on the teacher's practice of keeping internal packages decoupled
// from the top-level API type.
type EmuStateQuery func() (paused bool, err error)
type AdvanceFrame func() error

// Synchronizer owns the three tracked completion cells and the frame
// counter, plus a stop flag waiters cooperate with.
type Synchronizer struct {
	StateLoad  Cell
	StateSave  Cell
	Screenshot Cell
	Frame      FrameCounter

	stop atomic.Bool
}

// NewSynchronizer returns a zero-valued Synchronizer.
func NewSynchronizer() *Synchronizer {
	return &Synchronizer{}
}

// Stop sets the stop flag; in-flight and future waits return failure.
func (s *Synchronizer) Stop() {
	s.stop.Store(true)
}

// Stopped reports whether Stop has been called.
func (s *Synchronizer) Stopped() bool {
	return s.stop.Load()
}

// WaitForFrameAdvance samples the frame counter, then polls with a short
// idle delay until it strictly exceeds the sampled value or the time budget
// expires. Grounded on the original source's AgentWaitForFrameAdvance.
//
// Callers that must issue the triggering advance command between the
// snapshot and the wait (so no callback arriving in that window is missed)
// should snapshot via Frame.Snapshot() themselves and call
// WaitForFrameAdvanceFrom instead.
func (s *Synchronizer) WaitForFrameAdvance(budget time.Duration, idleDelay time.Duration) bool {
	return s.WaitForFrameAdvanceFrom(s.Frame.Snapshot(), budget, idleDelay)
}

// WaitForFrameAdvanceFrom polls until the frame counter strictly exceeds
// initial or the time budget expires.
func (s *Synchronizer) WaitForFrameAdvanceFrom(initial uint32, budget time.Duration, idleDelay time.Duration) bool {
	deadline := time.Now().Add(budget)

	for time.Now().Before(deadline) {
		if s.Frame.Snapshot() > initial {
			return true
		}
		if s.Stopped() {
			return false
		}
		time.Sleep(idleDelay)
	}
	return false
}

// WaitOptions configures WaitForSeqChange.
type WaitOptions struct {
	Timeout               time.Duration
	FrameAdvanceIdleDelay time.Duration
	PausedPollIdleDelay   time.Duration
	// OnFrameAdvanceIssued is called once per single-frame advance the
	// waiter issues while paused-stepping (used for metrics).
	OnFrameAdvanceIssued func()
}

// WaitForSeqChange implements the completion wait protocol of spec.md §4.4:
// block up to Timeout for cell's seq to move past previous. While the
// emulator is paused (queried via isPaused), the waiter issues a single
// frame advance and waits for the frame counter to move before re-checking
// seq, so a completion that only fires on frame advance never deadlocks
// against a paused emulator. Grounded on the original source's
// AgentWaitForEventSeqWithPausedStepping.
func (s *Synchronizer) WaitForSeqChange(cell *Cell, previous uint64, isPaused EmuStateQuery, advance AdvanceFrame, opts WaitOptions) bool {
	deadline := time.Now().Add(opts.Timeout)

	for time.Now().Before(deadline) {
		if cell.Snapshot() != previous {
			return true
		}
		if s.Stopped() {
			return false
		}

		paused, err := isPaused()
		if err != nil {
			return false
		}
		if !paused {
			time.Sleep(opts.PausedPollIdleDelay)
			continue
		}

		initial := s.Frame.Snapshot()
		if err := advance(); err != nil {
			return false
		}
		if opts.OnFrameAdvanceIssued != nil {
			opts.OnFrameAdvanceIssued()
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			remaining = time.Millisecond
		}
		if !s.WaitForFrameAdvanceFrom(initial, remaining, opts.FrameAdvanceIdleDelay) {
			return false
		}
	}
	return false
}
