package process

import (
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

// newCommand builds the exec.Cmd for a parsed argument vector.
func newCommand(args []string) *exec.Cmd {
	return exec.Command(args[0], args[1:]...)
}

// Handle is a live supervised subprocess. Done is closed once the process
// has exited and its output streams are drained; ExitCode is valid from
// that point on.
type Handle struct {
	cmd    *exec.Cmd
	logger *slog.Logger

	done     chan struct{}
	exitCode int

	stopOnce     sync.Once
	graceTimeout time.Duration
	killTimeout  time.Duration
}

// Done returns a channel closed when the process has fully exited.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// ExitCode returns the process exit code. Only meaningful after Done is
// closed; before that it returns 0.
func (h *Handle) ExitCode() int {
	select {
	case <-h.done:
		return h.exitCode
	default:
		return 0
	}
}

// PID returns the subprocess pid.
func (h *Handle) PID() int {
	if h.cmd.Process == nil {
		return 0
	}
	return h.cmd.Process.Pid
}

// Stop requests termination: SIGINT now, SIGKILL after the grace window
// if the process is still running. Fire-and-forget; the escalation runs
// on its own timer. Idempotent: a second call never sends a second
// signal.
func (h *Handle) Stop() {
	h.stopOnce.Do(func() {
		if h.cmd.Process == nil {
			return
		}

		h.logger.Info("Sending SIGINT to process", "pid", h.cmd.Process.Pid)
		if err := h.cmd.Process.Signal(syscall.SIGINT); err != nil {
			if !errors.Is(err, os.ErrProcessDone) {
				h.logger.Warn("Failed to send SIGINT", "error", err)
			}
		}

		go func() {
			select {
			case <-h.done:
			case <-time.After(h.graceTimeout):
				h.logger.Warn("Graceful shutdown timeout, forcing kill", "timeout", h.graceTimeout)
				if err := h.cmd.Process.Kill(); err != nil {
					// "os: process already finished" is OK - the process
					// exited between timeout and kill
					if !errors.Is(err, os.ErrProcessDone) {
						h.logger.Error("Failed to kill process", "error", err)
					}
				}
				select {
				case <-h.done:
				case <-time.After(h.killTimeout):
					h.logger.Error("Process did not exit after kill signal")
				}
			}
		}()
	})
}

// finish records the exit code and releases Done waiters.
func (h *Handle) finish(exitCode int) {
	h.exitCode = exitCode
	close(h.done)
	h.logger.Info("Process exited", "pid", h.PID(), "exit_code", exitCode)
}

// exitCodeFromError extracts exit code from process error.
// Returns 0 for nil error, the exit code for ExitError, or 1 for other errors.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
