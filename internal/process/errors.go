package process

import "fmt"

// StartError is a typed failure from Runner.Start.
type StartError struct {
	Code    string
	Message string
	Cause   error
}

func (e *StartError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StartError) Unwrap() error {
	return e.Cause
}

// Error codes. PortBusy is the only recoverable one: callers retry the
// spawn with the next port from the pool.
const (
	ErrCodeStartupTimeout    = "STARTUP_TIMEOUT"
	ErrCodeSourceUnavailable = "SOURCE_UNAVAILABLE"
	ErrCodeProcessExited     = "PROCESS_EXITED"
	ErrCodePortBusy          = "PORT_BUSY"
	ErrCodeSpawnFailed       = "SPAWN_FAILED"
)

// NewStartError creates a new start error.
func NewStartError(code, message string, cause error) *StartError {
	return &StartError{Code: code, Message: message, Cause: cause}
}

// IsCode reports whether err is a StartError with the given code.
func IsCode(err error, code string) bool {
	se, ok := err.(*StartError)
	return ok && se.Code == code
}

// IsPortBusy reports whether err is the recoverable port-conflict failure.
func IsPortBusy(err error) bool {
	return IsCode(err, ErrCodePortBusy)
}
