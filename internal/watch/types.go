// Package watch reruns a command whenever the files it depends on change.
//
// A Supervisor subscribes to a WatchSet, coalesces bursts of filesystem events
// into triggers and keeps at most one child process alive: a trigger that
// arrives while a run is in flight terminates that run first and starts the
// next one only after it has exited.
package watch

import (
	"errors"
	"fmt"
	"time"

	"ruffdev/internal/tactile"
)

// ErrAlreadyRunning is returned by Run when called a second time.
var ErrAlreadyRunning = errors.New("supervisor already running")

// State is the supervisor's lifecycle state.
type State int

const (
	StateInit State = iota
	StateWatching
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateWatching:
		return "watching"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Trigger is one debounced batch of changes, or the initial run.
type Trigger struct {
	Seq uint64
	// Paths changed in this batch, sorted and unique. Empty for the initial run.
	Paths   []string
	At      time.Time
	Initial bool
}

// RunOutcome describes how one run ended.
type RunOutcome struct {
	RunID   string
	Trigger Trigger
	// Result is nil when the command could not be started.
	Result *tactile.ExecutionResult
	// SpawnErr is set when the command could not be started.
	SpawnErr error
	// Superseded is true when a newer trigger caused the termination.
	Superseded bool
}

// Failed reports whether the run did not exit cleanly on its own.
func (o RunOutcome) Failed() bool {
	if o.SpawnErr != nil {
		return true
	}
	return o.Result != nil && !o.Result.Succeeded() && !o.Superseded
}

// EventKind identifies an Event.
type EventKind int

const (
	EventWatching EventKind = iota + 1
	EventRunStarted
	EventRunFinished
	EventSuperseding
	EventWarning
	EventStopped
)

func (k EventKind) String() string {
	switch k {
	case EventWatching:
		return "watching"
	case EventRunStarted:
		return "run_started"
	case EventRunFinished:
		return "run_finished"
	case EventSuperseding:
		return "superseding"
	case EventWarning:
		return "warning"
	case EventStopped:
		return "stopped"
	default:
		return fmt.Sprintf("event(%d)", int(k))
	}
}

// Event is what the supervisor reports to whoever renders it.
type Event struct {
	Kind  EventKind
	State State
	// RunID of the run this event concerns, if any.
	RunID   string
	Trigger Trigger
	// Outcome is set on EventRunFinished.
	Outcome *RunOutcome
	// Message carries warning text and the watched path count on EventWatching.
	Message string
	At      time.Time
}

// Stats tracks supervisor activity.
type Stats struct {
	Triggers      int
	Runs          int
	Superseded    int
	SpawnFailures int
	Errors        int
	DroppedEvents int
	WatchedDirs   int
	LastEventTime time.Time
	LastEventPath string
}
