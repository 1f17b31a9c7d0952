package main

import (
	"sync"
	"sync/atomic"
	"time"

	agent "github.com/mupen64plus/agent-control-server"
)

// tickInterval is the simulated frame rate of the demo core's render loop.
const tickInterval = 16 * time.Millisecond

// completionDelay is how long the demo core takes to "complete" an
// asynchronous save/load/screenshot, simulating the original core's
// callback firing on a later frame rather than inline, which is what
// exercises the real paused-stepping wait loop (internal/completion) rather
// than the synchronous shortcut MockCore uses for unit tests.
const completionDelay = 30 * time.Millisecond

// demoCore is a runnable stand-in for the out-of-scope emulation core: a
// ticking frame/render loop over an in-memory framebuffer, simulated
// asynchronous save/load/screenshot completion, and a tiny debugger memory
// space. Grounded on the teacher's MockBackend-adjacent testing.go for
// shape, with the framebuffer storage itself adapted from backend/mem.go's
// sharded Memory (see framestore.go).
type demoCore struct {
	width, height int

	emuState    atomic.Int32
	speedFactor atomic.Int32
	limiterOn   atomic.Bool
	saveSlot    atomic.Int32
	frame       atomic.Uint32
	caps        agent.Capability

	rgb   *frameStore
	depth *frameStore

	memMu sync.Mutex
	mem   map[uint32]uint64

	cbMu    sync.Mutex
	stateCb func(param agent.StateParam, value int32)
	frameCb func(frame uint32)

	stop chan struct{}
}

func newDemoCore(width, height int) *demoCore {
	c := &demoCore{
		width:  width,
		height: height,
		caps:   agent.CapDebugger | agent.CapDepthBuffer,
		rgb:    newFrameStore(width * height * 3),
		depth:  newFrameStore(width * height * 2),
		mem:    make(map[uint32]uint64),
		stop:   make(chan struct{}),
	}
	c.speedFactor.Store(100)
	c.paintFrame(0)
	go c.renderLoop()
	return c
}

func (c *demoCore) Close() {
	close(c.stop)
}

// renderLoop advances the frame counter and repaints the simulated
// framebuffer at tickInterval while the emulator is in the running state,
// invoking the registered frame callback exactly like the real core would
// from its video-output thread.
func (c *demoCore) renderLoop() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			if agent.EmuState(c.emuState.Load()) != agent.EmuRunning {
				continue
			}
			frame := c.frame.Add(1)
			c.paintFrame(frame)
			c.invokeFrameCb(frame)
		}
	}
}

// paintFrame renders a deterministic, visibly-animated pattern: a
// diagonally scrolling gradient in the color buffer and a radial falloff in
// the depth buffer, so screenshot/framebuffer_dump/depth_dump output
// changes from frame to frame without needing real game content.
func (c *demoCore) paintFrame(frame uint32) {
	rgbRow := make([]byte, c.width*3)
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			rgbRow[x*3+0] = byte((x + int(frame)) % 256)
			rgbRow[x*3+1] = byte((y + int(frame)/2) % 256)
			rgbRow[x*3+2] = byte((x + y + int(frame)) % 256)
		}
		c.rgb.WriteAt(rgbRow, y*c.width*3)
	}

	depthRow := make([]byte, c.width*2)
	cx, cy := c.width/2, c.height/2
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			dx, dy := x-cx, y-cy
			v := uint16((dx*dx+dy*dy)%65536) + uint16(frame%4096)
			depthRow[x*2+0] = byte(v)
			depthRow[x*2+1] = byte(v >> 8)
		}
		c.depth.WriteAt(depthRow, y*c.width*2)
	}
}

func (c *demoCore) invokeFrameCb(frame uint32) {
	c.cbMu.Lock()
	fn := c.frameCb
	c.cbMu.Unlock()
	if fn != nil {
		fn(frame)
	}
}

func (c *demoCore) invokeStateCb(param agent.StateParam, value int32) {
	c.cbMu.Lock()
	fn := c.stateCb
	c.cbMu.Unlock()
	if fn != nil {
		fn(param, value)
	}
}

// completeAsync fires the state callback after completionDelay on its own
// goroutine, simulating the original core's worker-thread completion
// instead of MockCore's inline, synchronous callback.
func (c *demoCore) completeAsync(param agent.StateParam) {
	go func() {
		time.Sleep(completionDelay)
		c.invokeStateCb(param, 1)
	}()
}

func (c *demoCore) Do(cmd agent.Command, param int32, data any) (int32, error) {
	switch cmd {
	case agent.CmdPause:
		c.emuState.Store(int32(agent.EmuPaused))
	case agent.CmdResume:
		c.emuState.Store(int32(agent.EmuRunning))
	case agent.CmdStop:
		c.emuState.Store(int32(agent.EmuStopped))
	case agent.CmdAdvanceFrame:
		frame := c.frame.Add(1)
		c.paintFrame(frame)
		c.invokeFrameCb(frame)
	case agent.CmdCoreStateSet:
		switch agent.StateParam(param) {
		case agent.StateSpeedFactor:
			if v, ok := data.(int32); ok {
				c.speedFactor.Store(v)
			}
		case agent.StateSpeedLimiter:
			if v, ok := data.(int32); ok {
				c.limiterOn.Store(v != 0)
			}
		case agent.StateSaveSlot:
			if v, ok := data.(int32); ok {
				c.saveSlot.Store(v)
			}
		}
	case agent.CmdCoreStateQuery:
		switch agent.StateParam(param) {
		case agent.StateEmuState:
			if p, ok := data.(*int32); ok {
				*p = c.emuState.Load()
			}
		case agent.StateSpeedFactor:
			if p, ok := data.(*int32); ok {
				*p = c.speedFactor.Load()
			}
		case agent.StateSpeedLimiter:
			if p, ok := data.(*int32); ok {
				if c.limiterOn.Load() {
					*p = 1
				} else {
					*p = 0
				}
			}
		case agent.StateSaveSlot:
			if p, ok := data.(*int32); ok {
				*p = c.saveSlot.Load()
			}
		case agent.StateVideoSize:
			if p, ok := data.(*[2]int32); ok {
				p[0] = int32(c.width)
				p[1] = int32(c.height)
			}
		}
	case agent.CmdStateSave:
		c.completeAsync(agent.StateSaveComplete)
	case agent.CmdStateLoad:
		c.completeAsync(agent.StateLoadComplete)
	case agent.CmdTakeScreenshot:
		c.completeAsync(agent.StateScreenshotCaptured)
	case agent.CmdInputSetState, agent.CmdInputQueueState, agent.CmdInputClear:
		// The demo core has no gameplay to drive; accept and acknowledge.
	}
	return 0, nil
}

func (c *demoCore) Capabilities() agent.Capability {
	return c.caps
}

func (c *demoCore) ReadMem(bits int, addr uint32) (uint64, bool) {
	c.memMu.Lock()
	defer c.memMu.Unlock()
	mask := memMask(bits)
	if mask == 0 {
		return 0, false
	}
	return c.mem[addr] & mask, true
}

func (c *demoCore) WriteMem(bits int, addr uint32, value uint64) bool {
	c.memMu.Lock()
	defer c.memMu.Unlock()
	mask := memMask(bits)
	if mask == 0 {
		return false
	}
	c.mem[addr] = value & mask
	return true
}

func memMask(bits int) uint64 {
	switch bits {
	case 8:
		return 0xFF
	case 16:
		return 0xFFFF
	case 32:
		return 0xFFFFFFFF
	case 64:
		return ^uint64(0)
	default:
		return 0
	}
}

func (c *demoCore) SetStateCallback(fn func(param agent.StateParam, value int32)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.stateCb = fn
}

func (c *demoCore) SetFrameCallback(fn func(frame uint32)) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	c.frameCb = fn
}

func (c *demoCore) ReadScreen(front bool) ([]byte, int, int, error) {
	_ = front
	return c.rgb.Snapshot(), c.width, c.height, nil
}

func (c *demoCore) ReadScreenDepth() ([]uint16, int, int, bool) {
	raw := c.depth.Snapshot()
	out := make([]uint16, c.width*c.height)
	for i := range out {
		out[i] = uint16(raw[i*2]) | uint16(raw[i*2+1])<<8
	}
	return out, c.width, c.height, true
}

var _ agent.Core = (*demoCore)(nil)
