// Package tactile is the process boundary of ruffdev: it starts the commands
// being watched and takes them down again when they are superseded.
//
// Children run in their own process group so that termination reaches the
// whole tree (cargo spawns rustc, rustc spawns linkers). Termination is a
// signal first and a forced kill once the grace period runs out.
package tactile

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrSpawnFailed is matched by every error returned from Starter.Start.
var ErrSpawnFailed = errors.New("spawn failed")

// SpawnError reports a command that could not be started.
type SpawnError struct {
	Binary string
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Binary, e.Err)
}

func (e *SpawnError) Unwrap() []error {
	return []error{ErrSpawnFailed, e.Err}
}

// Command represents a command to be executed.
type Command struct {
	// Binary is the executable to run (e.g., "cargo", "python").
	Binary string `json:"binary"`

	// Arguments are the command-line arguments.
	Arguments []string `json:"arguments"`

	// WorkingDirectory is the directory to execute in.
	WorkingDirectory string `json:"working_directory,omitempty"`

	// Environment variables to add (in KEY=VALUE format).
	// These are appended to the parent environment.
	Environment []string `json:"environment,omitempty"`
}

// CommandString returns the full command as a string (for display/logging).
func (c Command) CommandString() string {
	if len(c.Arguments) == 0 {
		return c.Binary
	}
	return c.Binary + " " + strings.Join(c.Arguments, " ")
}

// ExecutionResult describes how a started command ended.
type ExecutionResult struct {
	// ExitCode is the command's exit code (-1 if it was killed by a signal).
	ExitCode int `json:"exit_code"`

	// Duration is how long the command ran.
	Duration time.Duration `json:"duration"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Killed indicates the command was terminated by us.
	Killed bool `json:"killed"`

	// KillReason explains why the command was killed.
	KillReason string `json:"kill_reason,omitempty"`

	// ResourceUsage contains resource consumption metrics (if available).
	ResourceUsage *ResourceUsage `json:"resource_usage,omitempty"`

	// Error contains a wait failure unrelated to the exit status.
	Error string `json:"error,omitempty"`
}

// IsError returns true if waiting on the process failed.
func (r *ExecutionResult) IsError() bool {
	return r.Error != ""
}

// IsNonZeroExit returns true if the command ran to completion but failed.
func (r *ExecutionResult) IsNonZeroExit() bool {
	return !r.Killed && r.Error == "" && r.ExitCode != 0
}

// Succeeded returns true for a clean zero exit.
func (r *ExecutionResult) Succeeded() bool {
	return !r.Killed && r.Error == "" && r.ExitCode == 0
}

// ResourceUsage contains metrics about resource consumption.
type ResourceUsage struct {
	// UserTimeMs is user-mode CPU time in milliseconds.
	UserTimeMs int64 `json:"user_time_ms"`

	// SystemTimeMs is kernel-mode CPU time in milliseconds.
	SystemTimeMs int64 `json:"system_time_ms"`

	// MaxRSSBytes is peak resident set size in bytes.
	MaxRSSBytes int64 `json:"max_rss_bytes"`

	VoluntaryContextSwitches   int64 `json:"voluntary_context_switches"`
	InvoluntaryContextSwitches int64 `json:"involuntary_context_switches"`
}

// TotalCPUTimeMs returns total CPU time (user + system).
func (r *ResourceUsage) TotalCPUTimeMs() int64 {
	return r.UserTimeMs + r.SystemTimeMs
}

// Starter starts commands and hands back a handle to the live process.
type Starter interface {
	Start(cmd Command) (*RunHandle, error)
}
