package ui

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruffdev/internal/tactile"
	"ruffdev/internal/watch"
)

func newTestReporter() *Reporter {
	return NewReporter(&bytes.Buffer{}, PlainStyles(), "cargo build --bin=ruff", filepath.FromSlash("/repo"))
}

func TestRender_RunLifecycle(t *testing.T) {
	r := newTestReporter()

	assert.Contains(t, r.Render(watch.Event{Kind: watch.EventWatching, Message: "3"}), "Watching 3 path(s)")

	initial := r.Render(watch.Event{Kind: watch.EventRunStarted, Trigger: watch.Trigger{Initial: true}})
	assert.Equal(t, "$ cargo build --bin=ruff", initial)

	changed := r.Render(watch.Event{Kind: watch.EventRunStarted, Trigger: watch.Trigger{
		Seq:   2,
		Paths: []string{filepath.FromSlash("/repo/crates/ruff_linter/src/lib.rs"), filepath.FromSlash("/repo/x.rs")},
	}})
	assert.Contains(t, changed, "Changed: "+filepath.FromSlash("crates/ruff_linter/src/lib.rs")+" (+1 more)")
	assert.True(t, strings.HasSuffix(changed, "$ cargo build --bin=ruff"))

	assert.Contains(t, r.Render(watch.Event{Kind: watch.EventSuperseding}), "restarting")
	assert.Contains(t, r.Render(watch.Event{Kind: watch.EventWarning, Message: "not watching /x"}), "not watching /x")
	assert.Contains(t, r.Render(watch.Event{Kind: watch.EventStopped}), "Stopped watching")
}

func TestRender_Outcomes(t *testing.T) {
	r := newTestReporter()
	finished := func(o watch.RunOutcome) string {
		return r.Render(watch.Event{Kind: watch.EventRunFinished, Outcome: &o})
	}

	assert.Contains(t, finished(watch.RunOutcome{Result: &tactile.ExecutionResult{Duration: 1500 * time.Millisecond}}),
		"✓ finished in 1.5s")
	assert.Contains(t, finished(watch.RunOutcome{Result: &tactile.ExecutionResult{ExitCode: 1, Duration: 20 * time.Millisecond}}),
		"✗ exited with code 1 after 20ms")
	withUsage := &tactile.ExecutionResult{
		Duration:      3 * time.Second,
		ResourceUsage: &tactile.ResourceUsage{UserTimeMs: 2000, SystemTimeMs: 500},
	}
	assert.Equal(t, "✓ finished in 3s (cpu 2.5s)", finished(watch.RunOutcome{Result: withUsage}))
	assert.Contains(t, finished(watch.RunOutcome{Result: &tactile.ExecutionResult{ExitCode: -1, Error: "wait: broken pipe"}}),
		"✗ wait: broken pipe after")
	assert.Contains(t, finished(watch.RunOutcome{Superseded: true, Result: &tactile.ExecutionResult{ExitCode: -1, Killed: true}}),
		"superseded")
	assert.Contains(t, finished(watch.RunOutcome{Result: &tactile.ExecutionResult{ExitCode: -1, Killed: true}}),
		"stopped after")

	spawn := finished(watch.RunOutcome{SpawnErr: &tactile.SpawnError{Binary: "cargo", Err: errors.New("not found")}})
	assert.Contains(t, spawn, "failed to start cargo: not found")
	assert.Contains(t, spawn, "Waiting for changes")

	assert.Empty(t, r.Render(watch.Event{Kind: watch.EventRunFinished}))
}

func TestConsume(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(&out, PlainStyles(), "true", "")

	events := make(chan watch.Event, 3)
	events <- watch.Event{Kind: watch.EventRunStarted, Trigger: watch.Trigger{Initial: true}}
	events <- watch.Event{Kind: watch.EventKind(99)}
	events <- watch.Event{Kind: watch.EventStopped}
	close(events)

	require.NoError(t, r.Consume(events))
	assert.Equal(t, "$ true\nStopped watching.\n", out.String())
}

func TestNewStylesNonTerminalIsPlain(t *testing.T) {
	styles := NewStyles(&bytes.Buffer{})
	assert.Equal(t, "plain", styles.Error.Render("plain"))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", formatDuration(250*time.Millisecond+300*time.Microsecond))
	assert.Equal(t, "2.35s", formatDuration(2345*time.Millisecond))
	assert.Equal(t, "1m30s", formatDuration(90*time.Second+400*time.Millisecond))
}
