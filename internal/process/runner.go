package process

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"syscall"
	"time"
)

// OutputHandler receives output lines from the subprocess.
// Implementations can forward output to tests, metrics, etc.
type OutputHandler interface {
	HandleLine(source, line string)
}

// LogParser parses a log line and returns the log level and message.
// Used to extract structured log info from process output (streamlink,
// yt-dlp, ffmpeg, etc.)
type LogParser func(line string) (level, msg string)

// Profile describes how a backend command signals readiness and failure,
// and how long the supervisor waits for either.
type Profile struct {
	// ReadyMarkers are substrings (case-insensitive) whose appearance on
	// stdout/stderr means the process is ready to serve. When empty, the
	// backend has no structured readiness signaling and the supervisor
	// assumes success after FallbackDelay with no failure marker seen.
	ReadyMarkers []string

	// FailMarkers identify fatal startup output ("no playable stream",
	// "unable to open url").
	FailMarkers []string

	// PortBusyMarkers identify bind failures; these surface as the
	// recoverable PORT_BUSY error so callers retry with the next port.
	PortBusyMarkers []string

	// FallbackDelay is the assume-ready delay used when ReadyMarkers is
	// empty. This heuristic is deliberately imperfect: a slow failure can
	// slip past it, and that is accepted.
	FallbackDelay time.Duration

	// StartupTimeout bounds the whole start attempt.
	StartupTimeout time.Duration

	// GraceTimeout is how long Stop waits after SIGINT before SIGKILL.
	GraceTimeout time.Duration

	// KillTimeout bounds the wait after SIGKILL before giving up.
	KillTimeout time.Duration
}

// withDefaults fills zero fields with the stock timings.
func (p Profile) withDefaults() Profile {
	if p.FallbackDelay <= 0 {
		p.FallbackDelay = 3 * time.Second
	}
	if p.StartupTimeout <= 0 {
		p.StartupTimeout = 30 * time.Second
	}
	if p.GraceTimeout <= 0 {
		p.GraceTimeout = 5 * time.Second
	}
	if p.KillTimeout <= 0 {
		p.KillTimeout = 5 * time.Second
	}
	if p.PortBusyMarkers == nil {
		p.PortBusyMarkers = []string{"address already in use", "could not bind"}
	}
	return p
}

// Runner spawns one supervised subprocess and resolves its startup.
// Readiness, failure, and timeout are mutually exclusive resolutions of
// the same pending start: the first signal wins.
type Runner struct {
	key           string
	command       string
	profile       Profile
	logger        *slog.Logger
	processLogger *slog.Logger // logger for process output (nil = use logger)
	logParser     LogParser    // parses process output for log level (nil = no parsing)
	outputHandler OutputHandler
}

// NewRunner creates a runner for one start attempt.
func NewRunner(key, command string, profile Profile, logger *slog.Logger) *Runner {
	return &Runner{
		key:     key,
		command: command,
		profile: profile.withDefaults(),
		logger:  logger,
	}
}

// SetLogParser sets a custom logger and log parser for process output.
func (r *Runner) SetLogParser(logger *slog.Logger, parser LogParser) {
	r.processLogger = logger
	r.logParser = parser
}

// SetOutputHandler registers a hook receiving every output line.
func (r *Runner) SetOutputHandler(handler OutputHandler) {
	r.outputHandler = handler
}

// marker scan signals, in precedence order within a single line.
const (
	signalReady    = "ready"
	signalFailure  = "failure"
	signalPortBusy = "port_busy"
)

type startSignal struct {
	code string
	line string
}

// Start spawns the command and blocks until the start resolves. On
// success the returned Handle is live; on any failure the process has
// been told to die and a typed *StartError describes why. There is no
// mid-flight cancellation beyond ctx: a pending start resolves, times
// out, or is superseded by process exit.
func (r *Runner) Start(ctx context.Context) (*Handle, error) {
	args, err := parseCommand(r.command)
	if err != nil {
		return nil, NewStartError(ErrCodeSpawnFailed, "invalid command", err)
	}
	if len(args) == 0 {
		return nil, NewStartError(ErrCodeSpawnFailed, "empty command", nil)
	}

	cmd := newCommand(args)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, NewStartError(ErrCodeSpawnFailed, "stdout pipe", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, NewStartError(ErrCodeSpawnFailed, "stderr pipe", err)
	}

	if err := cmd.Start(); err != nil {
		r.logger.Error("Failed to start process", "key", r.key, "error", err)
		return nil, NewStartError(ErrCodeSpawnFailed, "start process", err)
	}

	r.logger.Info("Process started", "key", r.key, "pid", cmd.Process.Pid, "command", r.command)

	h := &Handle{
		cmd:          cmd,
		logger:       r.logger,
		done:         make(chan struct{}),
		graceTimeout: r.profile.GraceTimeout,
		killTimeout:  r.profile.KillTimeout,
	}

	markerCh := make(chan startSignal, 4)
	outputDone := make(chan struct{}, 2)
	go func() {
		r.streamOutput(stdout, "stdout", markerCh)
		outputDone <- struct{}{}
	}()
	go func() {
		r.streamOutput(stderr, "stderr", markerCh)
		outputDone <- struct{}{}
	}()

	// Reap exactly once: wait for both output streams, then the process.
	go func() {
		<-outputDone
		<-outputDone
		h.finish(exitCodeFromError(cmd.Wait()))
	}()

	var fallback <-chan time.Time
	if len(r.profile.ReadyMarkers) == 0 {
		fallback = time.After(r.profile.FallbackDelay)
	}
	timeout := time.After(r.profile.StartupTimeout)

	select {
	case sig := <-markerCh:
		switch sig.code {
		case signalReady:
			r.logger.Info("Process ready", "key", r.key, "marker", sig.line)
			return h, nil
		case signalPortBusy:
			r.logger.Warn("Port conflict during startup", "key", r.key, "line", sig.line)
			h.Stop()
			return nil, NewStartError(ErrCodePortBusy, sig.line, nil)
		default:
			r.logger.Warn("Startup failure marker", "key", r.key, "line", sig.line)
			h.Stop()
			return nil, NewStartError(ErrCodeSourceUnavailable, sig.line, nil)
		}

	case <-h.Done():
		return nil, NewStartError(ErrCodeProcessExited,
			fmt.Sprintf("process exited with code %d before readiness", h.ExitCode()), nil)

	case <-fallback:
		r.logger.Info("No failure seen within fallback delay, assuming ready", "key", r.key)
		return h, nil

	case <-timeout:
		r.logger.Warn("Startup timeout", "key", r.key, "timeout", r.profile.StartupTimeout)
		h.Stop()
		return nil, NewStartError(ErrCodeStartupTimeout,
			fmt.Sprintf("no readiness signal within %s", r.profile.StartupTimeout), nil)

	case <-ctx.Done():
		h.Stop()
		return nil, NewStartError(ErrCodeStartupTimeout, "start cancelled", ctx.Err())
	}
}

// streamOutput scans subprocess output line by line, logging each line
// and emitting the first matching start signal.
func (r *Runner) streamOutput(reader io.Reader, source string, markerCh chan<- startSignal) {
	scanner := bufio.NewScanner(reader)

	logger := r.processLogger
	if logger == nil {
		logger = r.logger
	}

	for scanner.Scan() {
		line := scanner.Text()

		if r.outputHandler != nil {
			r.outputHandler.HandleLine(source, line)
		}

		if sig, ok := r.matchMarkers(line); ok {
			select {
			case markerCh <- sig:
			default:
				// Start already resolved; later markers are just output.
			}
		}

		level, msg := "info", line
		if r.logParser != nil {
			level, msg = r.logParser(line)
		}
		switch level {
		case "fatal", "error":
			logger.Error(msg)
		case "warning":
			logger.Warn(msg)
		case "debug", "trace":
			logger.Debug(msg)
		default:
			logger.Info(msg)
		}
	}

	if err := scanner.Err(); err != nil {
		r.logger.Warn("Error reading output", "source", source, "error", err)
	}
}

// matchMarkers classifies one output line against the profile vocabulary.
func (r *Runner) matchMarkers(line string) (startSignal, bool) {
	lower := strings.ToLower(line)
	for _, m := range r.profile.PortBusyMarkers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return startSignal{code: signalPortBusy, line: line}, true
		}
	}
	for _, m := range r.profile.FailMarkers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return startSignal{code: signalFailure, line: line}, true
		}
	}
	for _, m := range r.profile.ReadyMarkers {
		if m != "" && strings.Contains(lower, strings.ToLower(m)) {
			return startSignal{code: signalReady, line: line}, true
		}
	}
	return startSignal{}, false
}

// ExpandTemplate substitutes {name} placeholders in a command template.
func ExpandTemplate(template string, vars map[string]string) string {
	out := template
	for name, value := range vars {
		out = strings.ReplaceAll(out, "{"+name+"}", value)
	}
	return out
}
