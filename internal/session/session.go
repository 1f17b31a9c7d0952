// Package session implements the listener/session loop: a local stream
// socket that serves one client at a time, reading lines and handing each to
// a dispatcher. Grounded on the original source's AgentServerLoop for the
// accept/serve state machine and AgentSetFd/AgentGetFd/AgentTakeFd for the
// mutex-protected descriptor slots, and on the teacher's raw-syscall style
// (internal/ctrl/control.go, internal/queue/runner.go) applied to socket
// syscalls via golang.org/x/sys/unix instead of /dev char-device syscalls.
package session

import (
	"bufio"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/mupen64plus/agent-control-server/internal/codec"
	"github.com/mupen64plus/agent-control-server/internal/completion"
	"github.com/mupen64plus/agent-control-server/internal/constants"
	"github.com/mupen64plus/agent-control-server/internal/logging"
)

// Dispatcher is the subset of internal/dispatch.Dispatcher's surface the
// session loop needs, kept as an interface so this package does not import
// internal/dispatch directly (avoiding the corresponding import cycle risk
// and keeping the loop testable against a stub).
type Dispatcher interface {
	Handle(line string) (response string, terminate bool)
}

// fdSlot is a mutex-protected file descriptor cell, grounded on
// AgentSetFd/AgentGetFd/AgentTakeFd: at most one fd lives in a slot at a
// time, and Take atomically reads-and-clears it so a close can never race a
// concurrent reader of the same slot.
type fdSlot struct {
	mu sync.Mutex
	fd int
}

func newFdSlot() *fdSlot {
	return &fdSlot{fd: -1}
}

func (s *fdSlot) Set(fd int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fd = fd
}

func (s *fdSlot) Get() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fd
}

func (s *fdSlot) Take() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	fd := s.fd
	s.fd = -1
	return fd
}

// Listener owns the socket path, the listen descriptor, and the single
// in-flight client descriptor, matching spec.md §4.6's Listener type: "At
// most one client handle is non-null at any time; client handle is always
// cleared before listener handle is closed."
type Listener struct {
	path       string
	listenFd   *fdSlot
	clientFd   *fdSlot
	sync       *completion.Synchronizer
	dispatcher Dispatcher
	logger     *logging.Logger
}

// Options configures a Listener.
type Options struct {
	// Endpoint is the listen address. A "unix:" prefix is stripped; a
	// "tcp:" prefix is rejected (spec.md §4.6: "tcp: endpoints are not
	// implemented yet").
	Endpoint   string
	Dispatcher Dispatcher
	Sync       *completion.Synchronizer
	Logger     *logging.Logger
}

// ResolveUnixPath strips a "unix:" prefix from endpoint and rejects a
// "tcp:" prefix, per the original AgentInitUnixSocketPath.
func ResolveUnixPath(endpoint string) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("empty --agent-server endpoint")
	}
	if strings.HasPrefix(endpoint, "tcp:") {
		return "", fmt.Errorf("tcp: endpoints are not implemented yet in --agent-server")
	}
	path := strings.TrimPrefix(endpoint, "unix:")
	if path == "" {
		return "", fmt.Errorf("invalid unix socket path for --agent-server")
	}
	return path, nil
}

// New builds a Listener bound to and listening on opts.Endpoint's resolved
// unix socket path. The socket is created, any stale path unlinked, bound,
// and put into listen mode with constants.ListenBacklog before New returns.
func New(opts Options) (*Listener, error) {
	path, err := ResolveUnixPath(opts.Endpoint)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}

	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent socket: %w", err)
	}

	unix.Unlink(path) // best-effort; a missing path is not an error

	addr := &unix.SockaddrUnix{Name: path}
	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to bind agent socket %q: %w", path, err)
	}
	if err := unix.Listen(fd, constants.ListenBacklog); err != nil {
		unix.Close(fd)
		unix.Unlink(path)
		return nil, fmt.Errorf("failed to listen on agent socket %q: %w", path, err)
	}

	l := &Listener{
		path:       path,
		listenFd:   newFdSlot(),
		clientFd:   newFdSlot(),
		sync:       opts.Sync,
		dispatcher: opts.Dispatcher,
		logger:     logger,
	}
	l.listenFd.Set(fd)
	l.logger.Info("agent server listening", "path", path)
	return l, nil
}

// Serve runs the accept loop until the shared stop flag is set. It accepts
// one client at a time; each connection is served to completion by serveOne
// before the next accept call, matching spec.md §4.6's "awaiting client ↔
// serving client" two-state machine.
func (l *Listener) Serve() {
	for !l.sync.Stopped() {
		listenFd := l.listenFd.Get()
		if listenFd < 0 {
			return
		}

		clientFd, _, err := unix.Accept(listenFd)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if !l.sync.Stopped() {
				time.Sleep(constants.AcceptRetryDelay)
			}
			continue
		}

		l.clientFd.Set(clientFd)
		l.logger.Info("agent client connected")
		l.serveOne(clientFd)

		fd := l.clientFd.Take()
		if fd >= 0 {
			unix.Close(fd)
		}
		l.logger.Info("agent client disconnected")
	}
}

// serveOne reads one line at a time from fd, dispatching each to the
// Dispatcher, until EOF, a read error, the stop flag, or a dispatcher
// request to terminate the session.
func (l *Listener) serveOne(fd int) {
	r := bufio.NewReader(&fdReader{fd: fd})
	w := &fdWriter{fd: fd}

	for !l.sync.Stopped() {
		line, err := codec.ReadLine(r)
		if err != nil {
			return
		}
		if line == "" {
			continue
		}

		response, terminate := l.dispatcher.Handle(line)
		if werr := w.WriteAll(response); werr != nil {
			return
		}
		if terminate {
			return
		}
	}
}

// Close tears down the listener: closes the client socket if one is
// in-flight, closes the listen socket, and unlinks the socket path, matching
// the original StopAgentServer/AgentServerLoop teardown order.
func (l *Listener) Close() {
	if fd := l.clientFd.Take(); fd >= 0 {
		unix.Close(fd)
	}
	if fd := l.listenFd.Take(); fd >= 0 {
		unix.Close(fd)
	}
	unix.Unlink(l.path)
}

// fdReader adapts a raw socket descriptor to io.Reader via unix.Read,
// retrying on EINTR, in the teacher's raw-syscall idiom.
type fdReader struct {
	fd int
}

func (r *fdReader) Read(p []byte) (int, error) {
	for {
		n, err := unix.Read(r.fd, p)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return 0, err
		}
		if n == 0 {
			return 0, errEOF
		}
		return n, nil
	}
}

// fdWriter adapts a raw socket descriptor to a send-all writer, grounded on
// the original AgentSendAll's retry-on-EINTR, write-until-exhausted loop.
type fdWriter struct {
	fd int
}

func (w *fdWriter) WriteAll(s string) error {
	buf := []byte(s)
	for len(buf) > 0 {
		n, err := unix.Write(w.fd, buf)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return err
		}
		buf = buf[n:]
	}
	return nil
}

var errEOF = fmt.Errorf("fdReader: connection closed")
