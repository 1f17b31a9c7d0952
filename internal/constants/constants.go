// Package constants holds the fixed timing and sizing values the agent
// control server is built around.
package constants

import "time"

// Wire protocol limits
const (
	// MaxLineBytes is the maximum length of a single request line. Bytes
	// received past this cap are discarded but the next newline still
	// terminates the line (see the Open Question in SPEC_FULL.md Section 9).
	MaxLineBytes = 4096

	// ListenBacklog is the socket listen backlog. The server serves one
	// client at a time; a backlog of 1 is enough to hold a second
	// connection attempt while the first session is torn down.
	ListenBacklog = 1
)

// Completion and stepping timing
const (
	// CompletionTimeout bounds how long a dispatcher handler waits for a
	// completion event (state-load, state-save, screenshot) before
	// reporting "<op> timed out".
	CompletionTimeout = 5 * time.Second

	// FrameAdvanceIdleDelay is the poll interval used while waiting for the
	// frame counter to move after issuing a single-frame advance.
	FrameAdvanceIdleDelay = time.Millisecond

	// PausedPollIdleDelay is the poll interval between completion checks
	// during a completion wait while the emulator is not paused (so no
	// frame advance is issued).
	PausedPollIdleDelay = time.Millisecond

	// AcceptRetryDelay is how long the session loop sleeps before retrying
	// accept() after a non-interrupt failure.
	AcceptRetryDelay = 10 * time.Millisecond
)

// Input and port limits
const (
	// NumControllerPorts is the number of controller shadows the server
	// tracks (ports 0..3, also addressable as 1..4).
	NumControllerPorts = 4

	// MinStepFrames and MaxStepFrames bound the `count` argument of
	// step_frames.
	MinStepFrames = 1
	MaxStepFrames = 10000
)

// PerMille is the denominator framebuffer presets and crop math express
// coordinates in (x/1000 of the video width or height).
const PerMille = 1000
