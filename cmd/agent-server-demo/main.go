package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	agent "github.com/mupen64plus/agent-control-server"
	"github.com/mupen64plus/agent-control-server/internal/logging"
)

// exitAgentServerFailed mirrors the host's exit code for "agent server
// failed to start after successful core bootstrap".
const exitAgentServerFailed = 15

func main() {
	var (
		endpoint = flag.String("agent-server", "unix:/tmp/mupen-agent.sock", "Agent control server endpoint (unix:<path> or a bare path)")
		profile  = flag.String("agent-profile", "", "Agent profile: watch or train")
		video    = flag.String("video", "640x480", "Simulated video size WxH")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	width, height, err := parseVideoSize(*video)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -video %q: %v\n", *video, err)
		os.Exit(1)
	}

	logConfig := logging.DefaultConfig()
	if *verbose {
		logConfig.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logConfig)
	logging.SetDefault(logger)

	core := newDemoCore(width, height)
	defer core.Close()

	applyAgentProfile(core, *profile, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv, err := agent.ListenAndServe(agent.Options{
		Endpoint: *endpoint,
		Core:     core,
		Context:  ctx,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("agent server failed to start", "endpoint", *endpoint, "error", err)
		os.Exit(exitAgentServerFailed)
	}
	logger.Info("agent server listening", "endpoint", *endpoint, "video_width", width, "video_height", height)

	stackDumpCh := make(chan os.Signal, 1)
	signal.Notify(stackDumpCh, syscall.SIGUSR1)
	go func() {
		for range stackDumpCh {
			buf := make([]byte, 1<<20)
			n := runtime.Stack(buf, true)
			fmt.Fprintf(os.Stderr, "=== GOROUTINE STACK DUMP ===\n%s\n", buf[:n])
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during shutdown", "error", err)
	} else {
		logger.Info("agent server stopped")
	}
}

// applyAgentProfile mirrors ApplyAgentProfile from the original source:
// "watch" enables the speed limiter, "train" disables it. On-screen display
// has no demo-visible surface here, so only the speed limiter is toggled.
// Unknown values produce a warning and no change.
func applyAgentProfile(core *demoCore, profile string, logger *logging.Logger) {
	switch profile {
	case "":
		return
	case "watch":
		core.Do(agent.CmdCoreStateSet, int32(agent.StateSpeedLimiter), int32(1))
		logger.Info("agent profile applied", "profile", profile, "speed_limiter", true)
	case "train":
		core.Do(agent.CmdCoreStateSet, int32(agent.StateSpeedLimiter), int32(0))
		logger.Info("agent profile applied", "profile", profile, "speed_limiter", false)
	default:
		logger.Warn("unknown agent profile, ignoring", "profile", profile)
	}
}

// parseVideoSize parses a "WxH" string such as "640x480".
func parseVideoSize(s string) (int, int, error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected WxH")
	}
	w, err := strconv.Atoi(parts[0])
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("invalid width %q", parts[0])
	}
	h, err := strconv.Atoi(parts[1])
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("invalid height %q", parts[1])
	}
	return w, h, nil
}
