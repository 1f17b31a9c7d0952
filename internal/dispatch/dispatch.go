// Package dispatch implements the command dispatcher: one handler per
// command named in the protocol, each performing strict argument
// validation before ever touching the core, grounded on the original
// source's AgentHandleCommand for the exact argument and response
// contracts and on the teacher's internal/ctrl/control.go for the shape
// (one method per command, structured logging around the core call,
// wrapping the result code).
package dispatch

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mupen64plus/agent-control-server/internal/codec"
	"github.com/mupen64plus/agent-control-server/internal/completion"
	"github.com/mupen64plus/agent-control-server/internal/constants"
	"github.com/mupen64plus/agent-control-server/internal/framebuffer"
	"github.com/mupen64plus/agent-control-server/internal/inputshadow"
	"github.com/mupen64plus/agent-control-server/internal/logging"

	agent "github.com/mupen64plus/agent-control-server"
)

// QueueArgs is the argument payload handed to Core.Do for
// CmdInputQueueState: an absolute controller state effective for the
// inclusive frame window [StartFrame, EndFrame].
type QueueArgs struct {
	State      uint32
	StartFrame uint32
	EndFrame   uint32
}

// SaveLoadArgs is the argument payload handed to Core.Do for CmdStateSave
// and CmdStateLoad.
type SaveLoadArgs struct {
	Path   string
	Format string
}

// Options configures a Dispatcher.
type Options struct {
	Core     agent.Core
	Shadow   *inputshadow.Table
	Sync     *completion.Synchronizer
	Observer agent.Observer
	Logger   *logging.Logger
}

// Dispatcher routes request lines to per-command handlers and renders their
// result (or error) into a response line.
type Dispatcher struct {
	core     agent.Core
	shadow   *inputshadow.Table
	sync     *completion.Synchronizer
	observer agent.Observer
	logger   *logging.Logger
}

// New builds a Dispatcher from opts, defaulting Observer to a no-op and
// Logger to the package default logger.
func New(opts Options) *Dispatcher {
	obs := opts.Observer
	if obs == nil {
		obs = agent.NoOpObserver{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		core:     opts.Core,
		shadow:   opts.Shadow,
		sync:     opts.Sync,
		observer: obs,
		logger:   logger,
	}
}

// result is a handler's outcome before it is rendered onto the wire.
type result struct {
	payload     string // pre-built JSON fragment for "result", or "" for none
	err         error
	reachedCore bool
	terminate   bool
}

// Handle decodes one request line, dispatches it, and returns the response
// line to write back plus whether the session should terminate after it.
func (d *Dispatcher) Handle(line string) (response string, terminate bool) {
	start := time.Now()

	id, ok := codec.Int(line, "id")
	if !ok {
		id = 0
	}
	cmd, ok := codec.String(line, "cmd")
	if !ok {
		return codec.Err(id, "missing cmd"), false
	}

	r := d.dispatch(cmd, line)

	latencyNs := uint64(time.Since(start).Nanoseconds())
	success := r.err == nil
	d.observer.ObserveCommand(cmd, latencyNs, r.reachedCore, success)
	if !success {
		d.logger.Debug("command failed", "cmd", cmd, "error", r.err.Error())
	}

	return d.respond(id, r.payload, r.err), r.terminate
}

func (d *Dispatcher) respond(id int, payload string, err error) string {
	if err != nil {
		return codec.Err(id, err.Error())
	}
	return codec.OK(id, payload)
}

func (d *Dispatcher) dispatch(cmd, line string) result {
	switch cmd {
	case "status":
		return d.cmdStatus()
	case "framebuffer_presets":
		return d.cmdFramebufferPresets()
	case "pause":
		return d.cmdSimpleTransition(cmd, agent.CmdPause)
	case "resume":
		return d.cmdSimpleTransition(cmd, agent.CmdResume)
	case "stop":
		return d.cmdSimpleTransition(cmd, agent.CmdStop)
	case "step_frames":
		return d.cmdStepFrames(cmd, line)
	case "set_speed_limiter":
		return d.cmdSetSpeedLimiter(cmd, line)
	case "set_speed_factor":
		return d.cmdSetSpeedFactor(cmd, line)
	case "set_state_slot":
		return d.cmdSetStateSlot(cmd, line)
	case "save_state":
		return d.cmdSaveState(cmd, line)
	case "load_state":
		return d.cmdLoadState(cmd, line)
	case "screenshot":
		return d.cmdScreenshot(cmd)
	case "framebuffer_dump":
		return d.cmdFramebufferDump(cmd, line, false)
	case "framebuffer_dump_preset":
		return d.cmdFramebufferDump(cmd, line, true)
	case "depth_dump":
		return d.cmdDepthDump(cmd, line)
	case "input_set":
		return d.cmdInputSet(cmd, line)
	case "input_queue":
		return d.cmdInputQueue(cmd, line)
	case "input_press":
		return d.cmdInputPressRelease(cmd, line, true)
	case "input_release":
		return d.cmdInputPressRelease(cmd, line, false)
	case "input_stick":
		return d.cmdInputStick(cmd, line)
	case "input_tap":
		return d.cmdInputTapHold(cmd, line)
	case "input_hold":
		return d.cmdInputTapHold(cmd, line)
	case "input_get":
		return d.cmdInputGet(cmd, line)
	case "input_clear":
		return d.cmdInputClear(cmd, line)
	case "mem_read":
		return d.cmdMemRead(cmd, line)
	case "mem_write":
		return d.cmdMemWrite(cmd, line)
	case "shutdown":
		return d.cmdShutdown(cmd)
	default:
		return result{err: agent.UnknownCommandError()}
	}
}

// --- core state helpers -----------------------------------------------

func (d *Dispatcher) queryState(op string, param agent.StateParam) (int32, error) {
	var v int32
	status, err := d.core.Do(agent.CmdCoreStateQuery, int32(param), &v)
	if err != nil {
		return 0, agent.IOError(op, "failed to query core state", err)
	}
	if status != 0 {
		return 0, agent.CoreError(op, int(status))
	}
	return v, nil
}

func (d *Dispatcher) queryVideoSize(op string) (int32, int32, error) {
	var vs [2]int32
	status, err := d.core.Do(agent.CmdCoreStateQuery, int32(agent.StateVideoSize), &vs)
	if err != nil {
		return 0, 0, agent.IOError(op, "failed to query core state", err)
	}
	if status != 0 {
		return 0, 0, agent.CoreError(op, int(status))
	}
	return vs[0], vs[1], nil
}

func (d *Dispatcher) isPaused() (bool, error) {
	v, err := d.queryState("", agent.StateEmuState)
	if err != nil {
		return false, err
	}
	return agent.EmuState(v) == agent.EmuPaused, nil
}

func (d *Dispatcher) advanceFrame() error {
	status, err := d.core.Do(agent.CmdAdvanceFrame, 0, nil)
	if err != nil {
		return err
	}
	if status != 0 {
		return fmt.Errorf("advance frame failed (%d)", status)
	}
	return nil
}

// awaitCompletion blocks for cell's seq to move past prev (recorded by the
// caller before issuing the triggering command), stepping the emulator one
// frame per iteration while it is paused.
func (d *Dispatcher) awaitCompletion(op string, cell *completion.Cell, prev uint64) error {
	opts := completion.WaitOptions{
		Timeout:               constants.CompletionTimeout,
		FrameAdvanceIdleDelay: constants.FrameAdvanceIdleDelay,
		PausedPollIdleDelay:   constants.PausedPollIdleDelay,
		OnFrameAdvanceIssued:  d.observer.ObserveFrameAdvance,
	}
	ok := d.sync.WaitForSeqChange(cell, prev, d.isPaused, d.advanceFrame, opts)
	d.observer.ObserveCompletionWait(op, !ok)
	if !ok {
		return agent.TimeoutError(op)
	}
	if cell.LastResult() == 0 {
		return agent.CompletionFailedError(op)
	}
	return nil
}

// --- status / presets --------------------------------------------------

func (d *Dispatcher) cmdStatus() result {
	const op = "status"
	emuState, err := d.queryState(op, agent.StateEmuState)
	if err != nil {
		return result{err: err, reachedCore: true}
	}
	speedFactor, err := d.queryState(op, agent.StateSpeedFactor)
	if err != nil {
		return result{err: err, reachedCore: true}
	}
	limiter, err := d.queryState(op, agent.StateSpeedLimiter)
	if err != nil {
		return result{err: err, reachedCore: true}
	}
	slot, err := d.queryState(op, agent.StateSaveSlot)
	if err != nil {
		return result{err: err, reachedCore: true}
	}
	width, height, err := d.queryVideoSize(op)
	if err != nil {
		return result{err: err, reachedCore: true}
	}

	shadow := d.shadow.Snapshot()
	b := codec.NewBuilder().
		Int("emu_state", int(emuState)).
		Uint32("frame", d.sync.Frame.Snapshot()).
		Int("speed_factor", int(speedFactor)).
		Bool("speed_limiter", limiter != 0).
		Int("state_slot", int(slot)).
		Int("video_width", int(width)).
		Int("video_height", int(height)).
		RawUint32Array("input_shadow", shadow[:]).
		Int("last_save_result", int(d.sync.StateSave.LastResult())).
		Int("last_load_result", int(d.sync.StateLoad.LastResult())).
		Int("last_screenshot_result", int(d.sync.Screenshot.LastResult()))

	return result{payload: b.String(), reachedCore: true}
}

func (d *Dispatcher) cmdFramebufferPresets() result {
	var list strings.Builder
	list.WriteByte('[')
	for i, p := range framebuffer.Presets {
		if i > 0 {
			list.WriteByte(',')
		}
		list.WriteString(codec.NewBuilder().
			Str("name", p.Name).
			Str("description", p.Description).
			Int("x_milli", p.XMilli).
			Int("y_milli", p.YMilli).
			Int("w_milli", p.WMilli).
			Int("h_milli", p.HMilli).
			String())
	}
	list.WriteByte(']')

	b := codec.NewBuilder().Raw("presets", list.String())
	return result{payload: b.String()}
}

// --- state transitions ---------------------------------------------------

func (d *Dispatcher) cmdSimpleTransition(op string, cmd agent.Command) result {
	status, err := d.core.Do(cmd, 0, nil)
	if err != nil {
		return result{err: agent.IOError(op, "failed to communicate with core", err), reachedCore: true}
	}
	if status != 0 {
		return result{err: agent.CoreError(op, int(status)), reachedCore: true}
	}
	return result{reachedCore: true}
}

func (d *Dispatcher) cmdStepFrames(op, line string) result {
	paused, err := d.isPaused()
	if err != nil {
		return result{err: err, reachedCore: true}
	}
	if !paused {
		return result{err: agent.StateError(op, "step_frames requires paused state; call pause first")}
	}

	count, ok := codec.Int(line, "count")
	if !ok {
		count = 1
	}
	if count < constants.MinStepFrames {
		count = constants.MinStepFrames
	}
	if count > constants.MaxStepFrames {
		count = constants.MaxStepFrames
	}

	advanced := 0
	for i := 0; i < count; i++ {
		if d.sync.Stopped() {
			return result{err: agent.TimeoutError(op), reachedCore: true}
		}
		initial := d.sync.Frame.Snapshot()
		if err := d.advanceFrame(); err != nil {
			return result{err: agent.CoreError(op, 1), reachedCore: true}
		}
		if !d.sync.WaitForFrameAdvanceFrom(initial, constants.CompletionTimeout, constants.FrameAdvanceIdleDelay) {
			return result{err: agent.TimeoutError(op), reachedCore: true}
		}
		advanced++
	}

	frame := d.sync.Frame.Snapshot()
	b := codec.NewBuilder().Int("advanced", advanced).Uint32("frame", frame)
	return result{payload: b.String(), reachedCore: true}
}

func (d *Dispatcher) cmdSetSpeedLimiter(op, line string) result {
	enabled, ok := codec.Bool(line, "enabled")
	if !ok {
		return result{err: agent.MissingField(op, "enabled")}
	}
	var v int32
	if enabled {
		v = 1
	}
	status, err := d.core.Do(agent.CmdCoreStateSet, int32(agent.StateSpeedLimiter), v)
	if err != nil {
		return result{err: agent.IOError(op, "failed to communicate with core", err), reachedCore: true}
	}
	if status != 0 {
		return result{err: agent.CoreError(op, int(status)), reachedCore: true}
	}
	return result{reachedCore: true}
}

func (d *Dispatcher) cmdSetSpeedFactor(op, line string) result {
	value, ok := codec.Int(line, "value")
	if !ok {
		return result{err: agent.MissingField(op, "value")}
	}
	status, err := d.core.Do(agent.CmdCoreStateSet, int32(agent.StateSpeedFactor), int32(value))
	if err != nil {
		return result{err: agent.IOError(op, "failed to communicate with core", err), reachedCore: true}
	}
	if status != 0 {
		return result{err: agent.CoreError(op, int(status)), reachedCore: true}
	}
	return result{reachedCore: true}
}

func (d *Dispatcher) cmdSetStateSlot(op, line string) result {
	slot, ok := codec.Int(line, "slot")
	if !ok {
		return result{err: agent.MissingField(op, "slot")}
	}
	status, err := d.core.Do(agent.CmdCoreStateSet, int32(agent.StateSaveSlot), int32(slot))
	if err != nil {
		return result{err: agent.IOError(op, "failed to communicate with core", err), reachedCore: true}
	}
	if status != 0 {
		return result{err: agent.CoreError(op, int(status)), reachedCore: true}
	}
	return result{reachedCore: true}
}

// --- save/load/screenshot -------------------------------------------------

func (d *Dispatcher) cmdSaveState(op, line string) result {
	path, _ := codec.String(line, "path")
	format, _ := codec.String(line, "format")

	prev := d.sync.StateSave.Snapshot()
	status, err := d.core.Do(agent.CmdStateSave, 0, SaveLoadArgs{Path: path, Format: format})
	if err != nil {
		return result{err: agent.IOError(op, "failed to communicate with core", err), reachedCore: true}
	}
	if status != 0 {
		return result{err: agent.CoreError(op, int(status)), reachedCore: true}
	}
	if werr := d.awaitCompletion(op, &d.sync.StateSave, prev); werr != nil {
		return result{err: werr, reachedCore: true}
	}
	return result{reachedCore: true}
}

func (d *Dispatcher) cmdLoadState(op, line string) result {
	path, _ := codec.String(line, "path")

	prev := d.sync.StateLoad.Snapshot()
	status, err := d.core.Do(agent.CmdStateLoad, 0, SaveLoadArgs{Path: path})
	if err != nil {
		return result{err: agent.IOError(op, "failed to communicate with core", err), reachedCore: true}
	}
	if status != 0 {
		return result{err: agent.CoreError(op, int(status)), reachedCore: true}
	}
	if werr := d.awaitCompletion(op, &d.sync.StateLoad, prev); werr != nil {
		return result{err: werr, reachedCore: true}
	}
	return result{reachedCore: true}
}

func (d *Dispatcher) cmdScreenshot(op string) result {
	prev := d.sync.Screenshot.Snapshot()
	status, err := d.core.Do(agent.CmdTakeScreenshot, 0, nil)
	if err != nil {
		return result{err: agent.IOError(op, "failed to communicate with core", err), reachedCore: true}
	}
	if status != 0 {
		return result{err: agent.CoreError(op, int(status)), reachedCore: true}
	}
	if werr := d.awaitCompletion(op, &d.sync.Screenshot, prev); werr != nil {
		return result{err: werr, reachedCore: true}
	}
	return result{reachedCore: true}
}

// --- framebuffer / depth capture ------------------------------------------

func (d *Dispatcher) resolveCropAndScale(line string, frameW, frameH int, preset bool) (framebuffer.Region, int, string, error) {
	scaleDiv, ok := codec.Int(line, "scale_div")
	if !ok || scaleDiv < 1 {
		scaleDiv = 1
	}

	if preset {
		name, ok := codec.String(line, "preset")
		if !ok {
			return framebuffer.Region{}, 0, "", agent.MissingField("framebuffer_dump_preset", "preset")
		}
		p, ok := framebuffer.FindPreset(name)
		if !ok {
			return framebuffer.Region{}, 0, "", agent.ArgError("framebuffer_dump_preset", "unknown preset")
		}
		return framebuffer.ApplyPreset(p, frameW, frameH), scaleDiv, p.Name, nil
	}

	var x, y, w, h *int
	if v, ok := codec.Int(line, "crop_x"); ok {
		x = &v
	}
	if v, ok := codec.Int(line, "crop_y"); ok {
		y = &v
	}
	if v, ok := codec.Int(line, "crop_w"); ok {
		w = &v
	}
	if v, ok := codec.Int(line, "crop_h"); ok {
		h = &v
	}
	return framebuffer.ExplicitRegion(x, y, w, h, frameW, frameH), scaleDiv, "", nil
}

// ioErrorForWrite turns a framebuffer writer's error into the catalog string
// for a failed write, unless the writer failed to open the output file in
// the first place, in which case it reports the open-failure string instead
// (the original distinguishes fopen failure from fwrite failure).
func ioErrorForWrite(op, writeMsg string, err error) *agent.Error {
	var openErr *framebuffer.OpenError
	if errors.As(err, &openErr) {
		return agent.IOError(op, "failed to open output path", err)
	}
	return agent.IOError(op, writeMsg, err)
}

func (d *Dispatcher) cmdFramebufferDump(op, line string, preset bool) result {
	path, ok := codec.String(line, "path")
	if !ok {
		return result{err: agent.MissingField(op, "path")}
	}
	front, _ := codec.Bool(line, "front")
	if preset {
		name, ok := codec.String(line, "preset")
		if !ok {
			return result{err: agent.MissingField(op, "preset")}
		}
		if _, ok := framebuffer.FindPreset(name); !ok {
			return result{err: agent.ArgError(op, "unknown preset")}
		}
	}

	pixels, w, h, err := d.core.ReadScreen(front)
	if err != nil {
		return result{err: agent.CoreReadFailedError(op, "read_screen", err), reachedCore: true}
	}

	crop, scaleDiv, presetName, aerr := d.resolveCropAndScale(line, w, h, preset)
	if aerr != nil {
		return result{err: aerr, reachedCore: true}
	}

	outW, outH, werr := framebuffer.WritePPM(path, pixels, w, h, crop, scaleDiv)
	if werr != nil {
		return result{err: ioErrorForWrite(op, "failed to write framebuffer", werr), reachedCore: true}
	}

	b := codec.NewBuilder().
		Str("path", path).
		Int("source_width", w).
		Int("source_height", h).
		Int("crop_x", crop.X).
		Int("crop_y", crop.Y).
		Int("crop_w", crop.W).
		Int("crop_h", crop.H).
		Int("output_width", outW).
		Int("output_height", outH)
	if presetName != "" {
		b = b.Str("preset", presetName)
	}
	return result{payload: b.String(), reachedCore: true}
}

func (d *Dispatcher) cmdDepthDump(op, line string) result {
	path, ok := codec.String(line, "path")
	if !ok {
		return result{err: agent.MissingField(op, "path")}
	}
	rotate180, _ := codec.Bool(line, "rotate180")

	depth, w, h, supported := d.core.ReadScreenDepth()
	if !supported {
		return result{err: agent.CapabilityError(op, "depth read is not supported by this video plugin")}
	}

	crop, scaleDiv, _, aerr := d.resolveCropAndScale(line, w, h, false)
	if aerr != nil {
		return result{err: aerr, reachedCore: true}
	}

	outW, outH, werr := framebuffer.WriteDepth(path, depth, w, h, crop, scaleDiv, rotate180)
	if werr != nil {
		return result{err: ioErrorForWrite(op, "failed to write depth buffer", werr), reachedCore: true}
	}

	rotateFlag := 0
	if rotate180 {
		rotateFlag = 1
	}
	b := codec.NewBuilder().
		Str("path", path).
		Int("source_width", w).
		Int("source_height", h).
		Int("crop_x", crop.X).
		Int("crop_y", crop.Y).
		Int("crop_w", crop.W).
		Int("crop_h", crop.H).
		Int("output_width", outW).
		Int("output_height", outH).
		Str("format", "u16le").
		Int("rotate180", rotateFlag)
	return result{payload: b.String(), reachedCore: true}
}

// --- input ------------------------------------------------------------

func requirePort(op, line string) (int, result, bool) {
	raw, ok := codec.Int(line, "port")
	if !ok {
		return 0, result{err: agent.MissingField(op, "port")}, false
	}
	port, ok := inputshadow.NormalizePort(raw)
	if !ok {
		return 0, result{err: agent.ArgError(op, "invalid port (use 1-4)")}, false
	}
	return port, result{}, true
}

func (d *Dispatcher) pushInputState(op string, port int, state uint32) *result {
	status, err := d.core.Do(agent.CmdInputSetState, int32(port), state)
	if err != nil {
		return &result{err: agent.IOError(op, "failed to communicate with core", err), reachedCore: true}
	}
	if status != 0 {
		return &result{err: agent.CoreError(op, int(status)), reachedCore: true}
	}
	return nil
}

func (d *Dispatcher) cmdInputSet(op, line string) result {
	port, errResult, ok := requirePort(op, line)
	if !ok {
		return errResult
	}
	state, ok := codec.Uint32(line, "input")
	if !ok {
		return result{err: agent.MissingField(op, "input")}
	}
	d.shadow.Set(port, state)
	if r := d.pushInputState(op, port, state); r != nil {
		return *r
	}
	return result{reachedCore: true}
}

func (d *Dispatcher) cmdInputQueue(op, line string) result {
	port, errResult, ok := requirePort(op, line)
	if !ok {
		return errResult
	}
	state, ok := codec.Uint32(line, "input")
	if !ok {
		return result{err: agent.MissingField(op, "input")}
	}
	startFrame, ok := codec.Uint32(line, "start_frame")
	if !ok {
		return result{err: agent.MissingField(op, "start_frame")}
	}
	endFrame, ok := codec.Uint32(line, "end_frame")
	if !ok {
		return result{err: agent.MissingField(op, "end_frame")}
	}

	status, err := d.core.Do(agent.CmdInputQueueState, int32(port), QueueArgs{State: state, StartFrame: startFrame, EndFrame: endFrame})
	if err != nil {
		return result{err: agent.IOError(op, "failed to communicate with core", err), reachedCore: true}
	}
	if status != 0 {
		return result{err: agent.CoreError(op, int(status)), reachedCore: true}
	}
	return result{reachedCore: true}
}

func (d *Dispatcher) cmdInputPressRelease(op, line string, press bool) result {
	port, errResult, ok := requirePort(op, line)
	if !ok {
		return errResult
	}
	button, ok := codec.String(line, "button")
	if !ok {
		return result{err: agent.MissingField(op, "button")}
	}
	mask, ok := inputshadow.ButtonMaskFromName(button)
	if !ok {
		return result{err: agent.ArgError(op, "unknown button")}
	}

	var state uint32
	if press {
		state = d.shadow.Press(port, mask)
	} else {
		state = d.shadow.Release(port, mask)
	}
	if r := d.pushInputState(op, port, state); r != nil {
		return *r
	}
	return result{reachedCore: true}
}

func (d *Dispatcher) cmdInputStick(op, line string) result {
	port, errResult, ok := requirePort(op, line)
	if !ok {
		return errResult
	}
	x, ok := codec.Int(line, "x")
	if !ok {
		return result{err: agent.MissingField(op, "x")}
	}
	y, ok := codec.Int(line, "y")
	if !ok {
		return result{err: agent.MissingField(op, "y")}
	}

	state := d.shadow.SetStick(port, inputshadow.ClampStick(x), inputshadow.ClampStick(y))
	if r := d.pushInputState(op, port, state); r != nil {
		return *r
	}
	return result{reachedCore: true}
}

// cmdInputTapHold implements input_tap and input_hold, which share a
// contract: queue a hold window and a following one-frame release window
// without touching the shadow, per spec.md §9 (the shadow is a mirror of
// committed state, not queued state).
func (d *Dispatcher) cmdInputTapHold(op, line string) result {
	port, errResult, ok := requirePort(op, line)
	if !ok {
		return errResult
	}
	button, ok := codec.String(line, "button")
	if !ok {
		return result{err: agent.MissingField(op, "button")}
	}
	mask, ok := inputshadow.ButtonMaskFromName(button)
	if !ok {
		return result{err: agent.ArgError(op, "unknown button")}
	}
	frames, ok := codec.Int(line, "frames")
	if !ok || frames < 1 {
		frames = 1
	}

	frameNow := d.sync.Frame.Snapshot()
	holdStart := frameNow + 1
	holdEnd := frameNow + uint32(frames)
	releaseFrame := holdEnd + 1

	status, err := d.core.Do(agent.CmdInputQueueState, int32(port), QueueArgs{State: mask, StartFrame: holdStart, EndFrame: holdEnd})
	if err != nil {
		return result{err: agent.IOError(op, "failed to communicate with core", err), reachedCore: true}
	}
	if status != 0 {
		return result{err: agent.CoreError(op, int(status)), reachedCore: true}
	}

	status, err = d.core.Do(agent.CmdInputQueueState, int32(port), QueueArgs{State: 0, StartFrame: releaseFrame, EndFrame: releaseFrame})
	if err != nil {
		return result{err: agent.IOError(op, "failed to communicate with core", err), reachedCore: true}
	}
	if status != 0 {
		return result{err: agent.CoreError(op, int(status)), reachedCore: true}
	}
	return result{reachedCore: true}
}

func (d *Dispatcher) cmdInputGet(op, line string) result {
	rawPort, ok := codec.Int(line, "port")
	if !ok {
		return result{err: agent.MissingField(op, "port")}
	}
	port, ok := inputshadow.NormalizePort(rawPort)
	if !ok {
		return result{err: agent.ArgError(op, "invalid port (use 1-4)")}
	}
	value := d.shadow.Get(port)
	b := codec.NewBuilder().Int("port", port+1).Uint32("input", value)
	return result{payload: b.String()}
}

func (d *Dispatcher) cmdInputClear(op, line string) result {
	rawPort, hasPort := codec.Int(line, "port")
	if !hasPort {
		d.shadow.ClearAll()
		status, err := d.core.Do(agent.CmdInputClear, -1, nil)
		if err != nil {
			return result{err: agent.IOError(op, "failed to communicate with core", err), reachedCore: true}
		}
		if status != 0 {
			return result{err: agent.CoreError(op, int(status)), reachedCore: true}
		}
		return result{reachedCore: true}
	}

	port, ok := inputshadow.NormalizePort(rawPort)
	if !ok {
		return result{err: agent.ArgError(op, "invalid port (use 1-4)")}
	}
	d.shadow.Clear(port)
	status, err := d.core.Do(agent.CmdInputClear, int32(port), nil)
	if err != nil {
		return result{err: agent.IOError(op, "failed to communicate with core", err), reachedCore: true}
	}
	if status != 0 {
		return result{err: agent.CoreError(op, int(status)), reachedCore: true}
	}
	return result{reachedCore: true}
}

// --- memory -------------------------------------------------------------

func validBits(bits int) bool {
	return bits == 8 || bits == 16 || bits == 32 || bits == 64
}

func (d *Dispatcher) cmdMemRead(op, line string) result {
	if !d.core.Capabilities().Has(agent.CapDebugger) {
		return result{err: agent.CapabilityError(op, "debugger capability is required for mem_read")}
	}

	addr, ok := codec.Uint32(line, "addr")
	if !ok {
		return result{err: agent.MissingField(op, "addr")}
	}
	bits, ok := codec.Int(line, "bits")
	if !ok {
		bits = 32
	}
	if !validBits(bits) {
		return result{err: agent.ArgError(op, "unsupported bits value (use 8,16,32,64)")}
	}

	paused, err := d.isPaused()
	if err != nil {
		return result{err: err, reachedCore: true}
	}
	if !paused {
		return result{err: agent.StateError(op, "mem_read requires paused state")}
	}

	value, mok := d.core.ReadMem(bits, addr)
	if !mok {
		return result{err: agent.CoreError(op, 1), reachedCore: true}
	}

	b := codec.NewBuilder().Uint32("addr", addr).Int("bits", bits).Uint64("value", value)
	return result{payload: b.String(), reachedCore: true}
}

func (d *Dispatcher) cmdMemWrite(op, line string) result {
	if !d.core.Capabilities().Has(agent.CapDebugger) {
		return result{err: agent.CapabilityError(op, "debugger capability is required for mem_write")}
	}

	addr, ok := codec.Uint32(line, "addr")
	if !ok {
		return result{err: agent.MissingField(op, "addr")}
	}
	value, ok := codec.Uint64(line, "value")
	if !ok {
		return result{err: agent.MissingField(op, "value")}
	}
	bits, ok := codec.Int(line, "bits")
	if !ok {
		bits = 32
	}
	if !validBits(bits) {
		return result{err: agent.ArgError(op, "unsupported bits value (use 8,16,32,64)")}
	}

	paused, err := d.isPaused()
	if err != nil {
		return result{err: err, reachedCore: true}
	}
	if !paused {
		return result{err: agent.StateError(op, "mem_write requires paused state")}
	}

	if !d.core.WriteMem(bits, addr, value) {
		return result{err: agent.CoreError(op, 1), reachedCore: true}
	}
	return result{reachedCore: true}
}

// --- shutdown -------------------------------------------------------------

func (d *Dispatcher) cmdShutdown(op string) result {
	status, err := d.core.Do(agent.CmdStop, 0, nil)
	d.sync.Stop()
	if err != nil {
		return result{err: agent.IOError(op, "failed to communicate with core", err), reachedCore: true, terminate: true}
	}
	if status != 0 {
		return result{err: agent.CoreError(op, int(status)), reachedCore: true, terminate: true}
	}
	return result{reachedCore: true, terminate: true}
}
