package tactile

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultWaitDelay bounds how long Wait keeps draining output pipes after the
// process itself has exited (grandchildren may hold them open).
const DefaultWaitDelay = time.Second

// DirectExecutor starts commands directly on the host using os/exec.
type DirectExecutor struct {
	mu     sync.RWMutex
	stdout io.Writer
	stderr io.Writer

	waitDelay time.Duration
	logger    *zap.Logger
}

// NewDirectExecutor creates an executor that streams child output to the
// parent's stdout and stderr.
func NewDirectExecutor(logger *zap.Logger) *DirectExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectExecutor{
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		waitDelay: DefaultWaitDelay,
		logger:    logger,
	}
}

// WithOutput redirects child output. Nil writers discard.
func (e *DirectExecutor) WithOutput(stdout, stderr io.Writer) *DirectExecutor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stdout = stdout
	e.stderr = stderr
	return e
}

// Validate checks if a command can be started.
func (e *DirectExecutor) Validate(cmd Command) error {
	if strings.TrimSpace(cmd.Binary) == "" {
		return errors.New("binary is required")
	}
	return nil
}

// Start launches cmd and returns immediately. The returned handle's Done
// channel closes once the process has exited and been reaped.
func (e *DirectExecutor) Start(cmd Command) (*RunHandle, error) {
	if err := e.Validate(cmd); err != nil {
		return nil, &SpawnError{Binary: cmd.Binary, Err: err}
	}

	e.mu.RLock()
	stdout, stderr := e.stdout, e.stderr
	e.mu.RUnlock()

	execCmd := exec.Command(cmd.Binary, cmd.Arguments...)
	execCmd.Dir = cmd.WorkingDirectory
	execCmd.Env = buildEnvironment(cmd.Environment)
	execCmd.Stdout = stdout
	execCmd.Stderr = stderr
	execCmd.WaitDelay = e.waitDelay
	setupProcessGroup(execCmd)

	e.logger.Debug("starting process",
		zap.String("command", cmd.CommandString()),
		zap.String("dir", cmd.WorkingDirectory))

	startedAt := time.Now()
	if err := execCmd.Start(); err != nil {
		e.logger.Warn("process failed to start", zap.String("binary", cmd.Binary), zap.Error(err))
		return nil, &SpawnError{Binary: cmd.Binary, Err: err}
	}

	handle := newRunHandle(cmd, execCmd, startedAt, e.logger)
	go handle.wait()

	return handle, nil
}

// buildEnvironment layers the command's variables over the parent environment.
// Later entries win when exec resolves duplicates.
func buildEnvironment(cmdEnv []string) []string {
	env := os.Environ()
	return append(env, cmdEnv...)
}
