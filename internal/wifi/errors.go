package wifi

import (
	"fmt"
	"time"
)

// UnavailableError indicates the backing management tool is not installed or
// not on PATH (e.g. nmcli on a supplicant-only image). The mode controller
// treats this the same as any other backend failure: assume disconnected.
type UnavailableError struct {
	// Tool is the executable that could not be found
	Tool string
	// Underlying error from exec
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("wifi backend unavailable: %s not found: %v", e.Tool, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// TimeoutError indicates an external command exceeded its bounded timeout.
// Timed-out queries are treated as "assume disconnected" rather than retried
// in place, so the polling loop can never hang on a wedged tool.
type TimeoutError struct {
	// Command is the command line that timed out
	Command string
	// Timeout is the bound that was exceeded
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command %q timed out after %s", e.Command, e.Timeout)
}

// CommandError indicates an external command ran but exited nonzero.
// The raw output is preserved for logging; callers never see bare exit codes.
type CommandError struct {
	// Command is the command line that failed
	Command string
	// ExitCode is the process exit code
	ExitCode int
	// Output is the combined stdout/stderr of the failed command
	Output string
}

func (e *CommandError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("command %q failed (exit code %d)", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("command %q failed (exit code %d): %s", e.Command, e.ExitCode, e.Output)
}
