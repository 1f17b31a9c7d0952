package agent

import "sync"

// MockCore is a Core implementation for tests, grounded on the teacher's
// MockBackend: a tiny in-memory stand-in with call-count tracking so tests
// can drive the dispatcher and completion synchronizer without a real
// emulation core.
type MockCore struct {
	mu sync.Mutex

	emuState         EmuState
	videoW           int
	videoH           int
	speedFactor      int32
	limiterOn        bool
	saveSlot         int32
	frame            uint32
	caps             Capability
	mem              map[uint32]uint64
	screen           []byte
	depth            []uint16
	depthOK          bool
	doResult         int32
	doErr            error
	completionResult int32
	readScreenErr    error

	stateCb func(param StateParam, value int32)
	frameCb func(frame uint32)

	doCalls         int
	readMemCalls    int
	writeMemCalls   int
	readScreenCalls int
	readDepthCalls  int
	lastCommand     Command
	lastParam       int32
	lastData        any
}

// NewMockCore creates a mock core of the given video size, initially
// stopped with no capabilities.
func NewMockCore(width, height int) *MockCore {
	return &MockCore{
		emuState:         EmuStopped,
		videoW:           width,
		videoH:           height,
		mem:              make(map[uint32]uint64),
		screen:           make([]byte, width*height*3),
		depth:            make([]uint16, width*height),
		depthOK:          true,
		completionResult: 1,
	}
}

// SetCompletionResult overrides the result value the mock's state callback
// reports for save/load/screenshot completions (default 1, meaning success).
func (m *MockCore) SetCompletionResult(v int32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completionResult = v
}

// SetCapabilities overrides the reported capability bitmask.
func (m *MockCore) SetCapabilities(c Capability) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.caps = c
}

// SetEmuState overrides the reported emulation state (used to simulate
// pause/resume/stop transitions in tests that don't exercise Do directly).
func (m *MockCore) SetEmuState(s EmuState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emuState = s
}

// SetDepthSupported toggles whether ReadScreenDepth reports ok.
func (m *MockCore) SetDepthSupported(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.depthOK = ok
}

// SetDoResult forces the numeric status Do returns for every subsequent call.
func (m *MockCore) SetDoResult(status int32, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doResult = status
	m.doErr = err
}

// SetReadScreenError forces ReadScreen to fail with err, simulating a
// M64CMD_READ_SCREEN failure from the core.
func (m *MockCore) SetReadScreenError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readScreenErr = err
}

// Do implements Core. It updates the small bit of state the dispatcher
// actually reads back (emu state, speed, slot, frame) and fires the
// registered callbacks synchronously, inside Do, for commands the real core
// completes asynchronously; a completion wait started after Do returns
// therefore already sees the new seq and never steps a frame.
func (m *MockCore) Do(cmd Command, param int32, data any) (int32, error) {
	m.mu.Lock()
	m.doCalls++
	m.lastCommand = cmd
	m.lastParam = param
	m.lastData = data
	stateCb := m.stateCb
	frameCb := m.frameCb

	switch cmd {
	case CmdPause:
		m.emuState = EmuPaused
	case CmdResume:
		m.emuState = EmuRunning
	case CmdStop:
		m.emuState = EmuStopped
	case CmdAdvanceFrame:
		m.frame++
		frame := m.frame
		m.mu.Unlock()
		if frameCb != nil {
			frameCb(frame)
		}
		m.mu.Lock()
	case CmdCoreStateSet:
		switch StateParam(param) {
		case StateSpeedFactor:
			if v, ok := data.(int32); ok {
				m.speedFactor = v
			}
		case StateSpeedLimiter:
			if v, ok := data.(int32); ok {
				m.limiterOn = v != 0
			}
		case StateSaveSlot:
			if v, ok := data.(int32); ok {
				m.saveSlot = v
			}
		}
	case CmdCoreStateQuery:
		switch StateParam(param) {
		case StateEmuState:
			if p, ok := data.(*int32); ok {
				*p = int32(m.emuState)
			}
		case StateSpeedFactor:
			if p, ok := data.(*int32); ok {
				*p = m.speedFactor
			}
		case StateSpeedLimiter:
			if p, ok := data.(*int32); ok {
				if m.limiterOn {
					*p = 1
				} else {
					*p = 0
				}
			}
		case StateSaveSlot:
			if p, ok := data.(*int32); ok {
				*p = m.saveSlot
			}
		case StateVideoSize:
			if p, ok := data.(*[2]int32); ok {
				p[0] = int32(m.videoW)
				p[1] = int32(m.videoH)
			}
		}
	case CmdStateSave:
		result := m.completionResult
		m.mu.Unlock()
		if stateCb != nil {
			stateCb(StateSaveComplete, result)
		}
		m.mu.Lock()
	case CmdStateLoad:
		result := m.completionResult
		m.mu.Unlock()
		if stateCb != nil {
			stateCb(StateLoadComplete, result)
		}
		m.mu.Lock()
	case CmdTakeScreenshot:
		result := m.completionResult
		m.mu.Unlock()
		if stateCb != nil {
			stateCb(StateScreenshotCaptured, result)
		}
		m.mu.Lock()
	}

	status := m.doResult
	err := m.doErr
	m.mu.Unlock()
	return status, err
}

// Capabilities implements Core.
func (m *MockCore) Capabilities() Capability {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.caps
}

// ReadMem implements Core.
func (m *MockCore) ReadMem(bits int, addr uint32) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readMemCalls++
	v := m.mem[addr] // zero-initialized address space reads as 0
	return v, true
}

// WriteMem implements Core.
func (m *MockCore) WriteMem(bits int, addr uint32, value uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeMemCalls++
	m.mem[addr] = value
	return true
}

// SetStateCallback implements Core.
func (m *MockCore) SetStateCallback(fn func(param StateParam, value int32)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stateCb = fn
}

// SetFrameCallback implements Core.
func (m *MockCore) SetFrameCallback(fn func(frame uint32)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.frameCb = fn
}

// ReadScreen implements Core.
func (m *MockCore) ReadScreen(front bool) ([]byte, int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readScreenCalls++
	if m.readScreenErr != nil {
		return nil, 0, 0, m.readScreenErr
	}
	out := make([]byte, len(m.screen))
	copy(out, m.screen)
	return out, m.videoW, m.videoH, nil
}

// ReadScreenDepth implements Core.
func (m *MockCore) ReadScreenDepth() ([]uint16, int, int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readDepthCalls++
	if !m.depthOK {
		return nil, 0, 0, false
	}
	out := make([]uint16, len(m.depth))
	copy(out, m.depth)
	return out, m.videoW, m.videoH, true
}

// CallCounts returns the number of times each Core method has been called,
// keyed by method name.
func (m *MockCore) CallCounts() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]int{
		"do":          m.doCalls,
		"read_mem":    m.readMemCalls,
		"write_mem":   m.writeMemCalls,
		"read_screen": m.readScreenCalls,
		"read_depth":  m.readDepthCalls,
	}
}

// LastCommand returns the most recent command passed to Do, for assertions.
func (m *MockCore) LastCommand() (Command, int32, any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastCommand, m.lastParam, m.lastData
}

// EmuState returns the current simulated emulation state.
func (m *MockCore) EmuState() EmuState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.emuState
}

// Frame returns the current simulated frame counter.
func (m *MockCore) Frame() uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frame
}

// Compile-time interface check.
var _ Core = (*MockCore)(nil)
