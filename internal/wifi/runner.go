package wifi

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifiguard/internal/logging"
)

// Bounded timeouts for external commands. Queries must return quickly so the
// polling loop stays live; mutations (service control, profile changes) get
// more headroom. A command that exceeds its bound is treated as failed, not
// retried in place.
const (
	// QueryTimeout bounds read-only queries (link state, profile listing).
	QueryTimeout = 5 * time.Second

	// MutateTimeout bounds state-changing operations (connect, disconnect,
	// profile modification, service start/stop).
	MutateTimeout = 15 * time.Second

	// ScanTimeout bounds operator-facing network scans, which can take
	// longer than a plain query on busy radios.
	ScanTimeout = 15 * time.Second

	// ProbeTimeout bounds the in-loop known-network probe used while the
	// access point is active. Kept short so a driver that cannot scan in
	// AP mode fails fast instead of stalling the tick.
	ProbeTimeout = 5 * time.Second
)

// Result holds the outcome of an external command that ran to completion.
// A nonzero ExitCode is not an error at this layer; callers decide whether
// a nonzero exit is a failure or a signal (e.g. "systemctl is-active").
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Output returns the combined stdout and stderr, trimmed.
func (r Result) Output() string {
	return strings.TrimSpace(strings.TrimSpace(r.Stdout) + "\n" + strings.TrimSpace(r.Stderr))
}

// Runner executes external commands with a bounded timeout.
// The single implementation shells out via os/exec; tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, timeout time.Duration, name string, args ...string) (Result, error)
}

// ExecRunner runs commands via os/exec with context-based timeouts.
type ExecRunner struct {
	logger *zap.Logger
}

// NewExecRunner creates a runner that logs each invocation at debug level.
func NewExecRunner(logger *zap.Logger) *ExecRunner {
	return &ExecRunner{logger: logger}
}

// Run executes the command and waits for it to complete.
//
// Errors are typed at this boundary:
//   - missing executable: *UnavailableError
//   - exceeded timeout:   *TimeoutError
//   - nonzero exit:       returned in Result (ExitCode), not as an error
func (r *ExecRunner) Run(ctx context.Context, timeout time.Duration, name string, args ...string) (Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmdline := name + " " + strings.Join(args, " ")
	start := time.Now()

	cmd := exec.CommandContext(runCtx, name, args...)
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	duration := time.Since(start)

	result := Result{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}

	if err != nil {
		// Timeout takes precedence: a killed process also reports an
		// exit error, but the cause is the deadline.
		if runCtx.Err() == context.DeadlineExceeded {
			r.logger.Warn("external command timed out",
				zap.String("command", cmdline),
				zap.Duration("timeout", timeout),
			)
			return result, &TimeoutError{Command: cmdline, Timeout: timeout}
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			r.logger.Debug("external command exited nonzero",
				zap.String("command", cmdline),
				zap.Int("exit_code", result.ExitCode),
				zap.Duration("duration", duration),
				zap.String("output", result.Output()),
			)
			return result, nil
		}

		return result, &UnavailableError{Tool: name, Err: err}
	}

	logging.LogCommand(cmdline, 0, duration.String())
	return result, nil
}

// commandError builds a CommandError for a command that exited nonzero.
func commandError(name string, args []string, res Result) *CommandError {
	return &CommandError{
		Command:  name + " " + strings.Join(args, " "),
		ExitCode: res.ExitCode,
		Output:   res.Output(),
	}
}
