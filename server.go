package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/mupen64plus/agent-control-server/internal/dispatch"
	"github.com/mupen64plus/agent-control-server/internal/inputshadow"
	"github.com/mupen64plus/agent-control-server/internal/logging"
	"github.com/mupen64plus/agent-control-server/internal/session"

	"github.com/mupen64plus/agent-control-server/internal/completion"
)

// Options configures a Server. Grounded on the teacher's root Options
// (Context/Logger/Observer), generalized with the Core and Endpoint this
// domain needs in place of a storage Backend.
type Options struct {
	// Endpoint is the listen address handed to internal/session, e.g.
	// "unix:/tmp/mupen-agent.sock".
	Endpoint string

	// Core is the emulation core the server drives. Required.
	Core Core

	// Context, if non-nil, is used instead of context.Background() as the
	// parent for the server's lifetime.
	Context context.Context

	// Logger, if nil, defaults to logging.Default().
	Logger *logging.Logger

	// Observer, if nil, defaults to a MetricsObserver over a fresh Metrics.
	Observer Observer
}

// Server is the Agent Control Server's public handle: the running listener,
// its dispatcher, and the shared completion synchronizer, wired together per
// spec.md §4. Grounded on the teacher's root Device type (ID/state/metrics
// handle returned by CreateAndServe).
type Server struct {
	core    Core
	sync    *completion.Synchronizer
	metrics *Metrics
	logger  *logging.Logger

	listener *session.Listener

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds and binds a Server: creates the input shadow table and
// completion synchronizer, wires the core's state/frame callbacks into the
// synchronizer, builds the dispatcher, and binds (but does not yet serve)
// the listen socket. Call Serve to start accepting connections.
func New(opts Options) (*Server, error) {
	if opts.Core == nil {
		return nil, fmt.Errorf("agent: Options.Core is required")
	}

	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	metrics := NewMetrics()
	observer := opts.Observer
	if observer == nil {
		observer = NewMetricsObserver(metrics)
	}

	sync := completion.NewSynchronizer()
	opts.Core.SetFrameCallback(sync.Frame.Publish)
	opts.Core.SetStateCallback(func(param StateParam, value int32) {
		switch param {
		case StateSaveComplete:
			sync.StateSave.Publish(value)
		case StateLoadComplete:
			sync.StateLoad.Publish(value)
		case StateScreenshotCaptured:
			sync.Screenshot.Publish(value)
		}
	})

	d := dispatch.New(dispatch.Options{
		Core:     opts.Core,
		Shadow:   inputshadow.NewTable(),
		Sync:     sync,
		Observer: observer,
		Logger:   logger,
	})

	listener, err := session.New(session.Options{
		Endpoint:   opts.Endpoint,
		Dispatcher: d,
		Sync:       sync,
		Logger:     logger,
	})
	if err != nil {
		return nil, err
	}

	sctx, cancel := context.WithCancel(ctx)
	return &Server{
		core:     opts.Core,
		sync:     sync,
		metrics:  metrics,
		logger:   logger,
		listener: listener,
		ctx:      sctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}, nil
}

// Serve runs the accept loop until Shutdown is called or the context passed
// to New is cancelled. It blocks; call it from its own goroutine to run the
// server in the background (see ListenAndServe).
func (s *Server) Serve() {
	defer close(s.done)
	go func() {
		<-s.ctx.Done()
		s.sync.Stop()
	}()
	s.listener.Serve()
}

// ListenAndServe builds a Server per opts and starts Serve in a background
// goroutine, returning once the socket is bound and listening. Mirrors the
// teacher's CreateAndServe: callers get back a handle to an already-running
// server.
func ListenAndServe(opts Options) (*Server, error) {
	s, err := New(opts)
	if err != nil {
		return nil, err
	}
	go s.Serve()
	return s, nil
}

// Shutdown stops the core, sets the shared stop flag, and closes the
// listener's descriptors so a blocked accept()/read() unblocks with an
// error — setting the stop flag alone cannot interrupt a pending blocking
// syscall, matching the original StopAgentServer, which closes the fds
// for exactly this reason. It then waits (bounded by ctx, and a 5-second
// backstop) for Serve to return.
func (s *Server) Shutdown(ctx context.Context) error {
	s.core.Do(CmdStop, 0, nil)
	s.sync.Stop()
	s.cancel()
	s.metrics.Stop()
	s.listener.Close()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Second):
		return fmt.Errorf("agent: shutdown timed out waiting for session loop")
	}
}

// Metrics returns the server's metrics instance.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// MetricsSnapshot returns a point-in-time snapshot of the server's metrics.
func (s *Server) MetricsSnapshot() MetricsSnapshot {
	return s.metrics.Snapshot()
}
