// Package inputshadow implements the per-controller input shadow: a
// process-wide table of four 32-bit controller states, and the
// transformations between named buttons/sticks and the raw bitfield the
// core expects.
package inputshadow

import (
	"strings"
	"sync/atomic"

	"github.com/mupen64plus/agent-control-server/internal/constants"
)

// Button bitmasks in the low 16 bits of a shadow state, matching the N64
// controller's native bit layout.
const (
	BtnDpadRight uint32 = 0x0001
	BtnDpadLeft  uint32 = 0x0002
	BtnDpadDown  uint32 = 0x0004
	BtnDpadUp    uint32 = 0x0008
	BtnStart     uint32 = 0x0010
	BtnZ         uint32 = 0x0020
	BtnB         uint32 = 0x0040
	BtnA         uint32 = 0x0080
	BtnCRight    uint32 = 0x0100
	BtnCLeft     uint32 = 0x0200
	BtnCDown     uint32 = 0x0400
	BtnCUp       uint32 = 0x0800
	BtnR         uint32 = 0x1000
	BtnL         uint32 = 0x2000
)

// ButtonMaskFromName resolves a case-insensitive button name to its mask,
// grounded on the original source's AgentButtonMaskFromName table. Returns
// 0, false for an unrecognized name.
func ButtonMaskFromName(name string) (uint32, bool) {
	switch strings.ToLower(name) {
	case "a":
		return BtnA, true
	case "b":
		return BtnB, true
	case "z":
		return BtnZ, true
	case "start":
		return BtnStart, true
	case "l":
		return BtnL, true
	case "r":
		return BtnR, true
	case "dpad_up", "du":
		return BtnDpadUp, true
	case "dpad_down", "dd":
		return BtnDpadDown, true
	case "dpad_left", "dl":
		return BtnDpadLeft, true
	case "dpad_right", "dr":
		return BtnDpadRight, true
	case "c_up", "cu":
		return BtnCUp, true
	case "c_down", "cd":
		return BtnCDown, true
	case "c_left", "cl":
		return BtnCLeft, true
	case "c_right", "cr":
		return BtnCRight, true
	default:
		return 0, false
	}
}

// WithStick rewrites the stick portion of state (bits 16..31) from signed
// bytes x, y, preserving the low 16 bits unchanged.
func WithStick(state uint32, x, y int8) uint32 {
	state &= 0x0000ffff
	state |= uint32(uint8(x)) << 16
	state |= uint32(uint8(y)) << 24
	return state
}

// ClampStick clamps v into the signed-byte range [-128, 127].
func ClampStick(v int) int8 {
	if v < -128 {
		v = -128
	}
	if v > 127 {
		v = 127
	}
	return int8(v)
}

// NormalizePort accepts both 1-based (1..4) and 0-based (0..3) port numbers
// and returns the 0-based controller index. ok is false for any other
// value.
func NormalizePort(port int) (int, bool) {
	if port >= 1 && port <= constants.NumControllerPorts {
		return port - 1, true
	}
	if port >= 0 && port <= constants.NumControllerPorts-1 {
		return port, true
	}
	return 0, false
}

// Table holds the last 32-bit state committed to the core for each of the
// four controller ports. Each cell is an independent atomic, so a single
// port's 32-bit value is never torn; a read that spans several ports
// (Snapshot) loads them one at a time and may mix values from before and
// after a concurrent update.
type Table struct {
	ports [constants.NumControllerPorts]atomic.Uint32
}

// NewTable returns a zero-initialized shadow table.
func NewTable() *Table {
	return &Table{}
}

// Get returns the current state of port (0-based).
func (t *Table) Get(port int) uint32 {
	return t.ports[port].Load()
}

// Set overwrites port's state.
func (t *Table) Set(port int, state uint32) {
	t.ports[port].Store(state)
}

// Press ORs mask into port's state (idempotent when pressed repeatedly).
func (t *Table) Press(port int, mask uint32) uint32 {
	for {
		old := t.ports[port].Load()
		next := old | mask
		if t.ports[port].CompareAndSwap(old, next) {
			return next
		}
	}
}

// Release ANDs the complement of mask out of port's state.
func (t *Table) Release(port int, mask uint32) uint32 {
	for {
		old := t.ports[port].Load()
		next := old &^ mask
		if t.ports[port].CompareAndSwap(old, next) {
			return next
		}
	}
}

// SetStick rewrites the stick portion of port's state.
func (t *Table) SetStick(port int, x, y int8) uint32 {
	for {
		old := t.ports[port].Load()
		next := WithStick(old, x, y)
		if t.ports[port].CompareAndSwap(old, next) {
			return next
		}
	}
}

// Clear zeroes port's state.
func (t *Table) Clear(port int) {
	t.ports[port].Store(0)
}

// ClearAll zeroes every port's state.
func (t *Table) ClearAll() {
	for i := range t.ports {
		t.ports[i].Store(0)
	}
}

// Snapshot returns all four ports' states, for the `status` command.
func (t *Table) Snapshot() [constants.NumControllerPorts]uint32 {
	var out [constants.NumControllerPorts]uint32
	for i := range t.ports {
		out[i] = t.ports[i].Load()
	}
	return out
}
