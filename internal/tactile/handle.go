package tactile

import (
	"errors"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Kill reasons recorded on ExecutionResult.
const (
	KillReasonTerminated = "terminated"
	KillReasonForced     = "killed after grace period"
)

const (
	groupPollInterval = 20 * time.Millisecond
	// groupKillWait bounds the wait for killed group members to be reaped.
	groupKillWait = time.Second
)

// RunHandle is one live child process.
type RunHandle struct {
	// ID is a short random identifier for logs and reporting.
	ID      string
	Command Command

	cmd       *exec.Cmd
	startedAt time.Time
	logger    *zap.Logger

	done   chan struct{}
	result *ExecutionResult

	stopOnce sync.Once
	mu       sync.Mutex
	stopping bool
	forced   bool
	deadline time.Time
	killer   *time.Timer
}

func newRunHandle(cmd Command, execCmd *exec.Cmd, startedAt time.Time, logger *zap.Logger) *RunHandle {
	id := uuid.NewString()[:8]
	return &RunHandle{
		ID:        id,
		Command:   cmd,
		cmd:       execCmd,
		startedAt: startedAt,
		logger:    logger.With(zap.String("run_id", id), zap.Int("pid", execCmd.Process.Pid)),
		done:      make(chan struct{}),
	}
}

// Pid returns the process id of the child.
func (h *RunHandle) Pid() int {
	return h.cmd.Process.Pid
}

// Done is closed once the process has exited and its result is available.
func (h *RunHandle) Done() <-chan struct{} {
	return h.done
}

// Result returns the execution result, or nil while the process is running.
func (h *RunHandle) Result() *ExecutionResult {
	select {
	case <-h.done:
		return h.result
	default:
		return nil
	}
}

// Stop asks the process group to exit and schedules a forced kill after
// grace. It does not wait; watch Done for the exit. Repeated calls are no-ops.
func (h *RunHandle) Stop(grace time.Duration) {
	h.stopOnce.Do(func() {
		select {
		case <-h.done:
			return
		default:
		}

		h.mu.Lock()
		h.stopping = true
		h.deadline = time.Now().Add(grace)
		h.killer = time.AfterFunc(grace, h.forceKill)
		h.mu.Unlock()

		h.logger.Debug("terminating process", zap.Duration("grace", grace))
		if err := terminateProcessGroup(h.cmd); err != nil {
			h.logger.Debug("terminate signal failed", zap.Error(err))
		}
	})
}

func (h *RunHandle) forceKill() {
	select {
	case <-h.done:
		return
	default:
	}
	h.mu.Lock()
	h.forced = true
	h.mu.Unlock()

	h.logger.Warn("process ignored termination, killing")
	if err := killProcessGroup(h.cmd); err != nil {
		h.logger.Debug("kill failed", zap.Error(err))
	}
}

// Terminate stops the process and blocks until it has exited.
func (h *RunHandle) Terminate(grace time.Duration) *ExecutionResult {
	h.Stop(grace)
	<-h.done
	return h.result
}

// drainGroup waits for the rest of a stopped process group to exit and kills
// whatever is left at deadline.
func (h *RunHandle) drainGroup(deadline time.Time) {
	for processGroupAlive(h.cmd) {
		if !time.Now().Before(deadline) {
			h.mu.Lock()
			h.forced = true
			h.mu.Unlock()

			h.logger.Warn("process group outlived its leader, killing")
			if err := killProcessGroup(h.cmd); err != nil {
				h.logger.Debug("kill failed", zap.Error(err))
			}
			waitGroupGone(h.cmd, groupKillWait)
			return
		}
		time.Sleep(groupPollInterval)
	}
}

func waitGroupGone(cmd *exec.Cmd, limit time.Duration) {
	stop := time.Now().Add(limit)
	for processGroupAlive(cmd) && time.Now().Before(stop) {
		time.Sleep(groupPollInterval)
	}
}

func (h *RunHandle) wait() {
	err := h.cmd.Wait()

	h.mu.Lock()
	stopping, deadline := h.stopping, h.deadline
	h.mu.Unlock()

	// The leader can exit on SIGTERM while group members ignore it; the
	// grace deadline still applies to them.
	if stopping {
		h.drainGroup(deadline)
	}
	finishedAt := time.Now()

	h.mu.Lock()
	forced, killer := h.forced, h.killer
	h.mu.Unlock()
	if killer != nil {
		killer.Stop()
	}

	result := &ExecutionResult{
		ExitCode:      0,
		StartedAt:     h.startedAt,
		FinishedAt:    finishedAt,
		Duration:      finishedAt.Sub(h.startedAt),
		ResourceUsage: getProcessResourceUsage(h.cmd),
	}

	if err != nil {
		var exitErr *exec.ExitError
		switch {
		case errors.As(err, &exitErr):
			result.ExitCode = exitErr.ExitCode()
		case errors.Is(err, exec.ErrWaitDelay):
			// Exited fine; a grandchild held the output pipes past the wait delay.
			result.ExitCode = h.cmd.ProcessState.ExitCode()
		default:
			result.ExitCode = -1
			result.Error = err.Error()
		}
	}

	if stopping {
		result.Killed = true
		result.KillReason = KillReasonTerminated
		if forced {
			result.KillReason = KillReasonForced
		}
	}

	h.logger.Debug("process exited",
		zap.Int("exit_code", result.ExitCode),
		zap.Duration("duration", result.Duration),
		zap.Bool("killed", result.Killed))

	h.result = result
	close(h.done)
}
