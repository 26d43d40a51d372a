package ui

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"ruffdev/internal/tactile"
	"ruffdev/internal/watch"
)

// Reporter turns supervisor events into status lines.
type Reporter struct {
	out     io.Writer
	styles  Styles
	command string
	// base shortens changed paths for display.
	base string
}

// NewReporter creates a reporter writing to out. command is the display form
// of the watched command; base is the directory changed paths are shown relative to.
func NewReporter(out io.Writer, styles Styles, command, base string) *Reporter {
	return &Reporter{out: out, styles: styles, command: command, base: base}
}

// Consume prints every event until the channel is closed.
func (r *Reporter) Consume(events <-chan watch.Event) error {
	for ev := range events {
		if line := r.Render(ev); line != "" {
			if _, err := fmt.Fprintln(r.out, line); err != nil {
				return err
			}
		}
	}
	return nil
}

// Render formats one event. Events with nothing to show render as "".
func (r *Reporter) Render(ev watch.Event) string {
	switch ev.Kind {
	case watch.EventWatching:
		return r.styles.Info.Render(fmt.Sprintf("Watching %s path(s) for changes. Press Ctrl+C to stop.", ev.Message))

	case watch.EventRunStarted:
		line := r.styles.Muted.Render("$ " + r.command)
		if !ev.Trigger.Initial && len(ev.Trigger.Paths) > 0 {
			line = r.styles.Muted.Render(r.describeChange(ev.Trigger)) + "\n" + line
		}
		return line

	case watch.EventSuperseding:
		return r.styles.Warning.Render("Change detected, restarting...")

	case watch.EventRunFinished:
		return r.renderOutcome(ev.Outcome)

	case watch.EventWarning:
		return r.styles.Warning.Render(ev.Message)

	case watch.EventStopped:
		return r.styles.Muted.Render("Stopped watching.")
	}
	return ""
}

func (r *Reporter) renderOutcome(o *watch.RunOutcome) string {
	if o == nil {
		return ""
	}
	if o.SpawnErr != nil {
		return r.styles.Error.Render(fmt.Sprintf("✗ %v", o.SpawnErr)) + "\n" +
			r.styles.Muted.Render("Waiting for changes...")
	}
	res := o.Result
	if res == nil {
		return ""
	}

	took := formatDuration(res.Duration)
	switch {
	case o.Superseded:
		return r.styles.Muted.Render(fmt.Sprintf("↻ superseded after %s", took))
	case res.Killed:
		return r.styles.Muted.Render(fmt.Sprintf("■ stopped after %s", took))
	case res.IsError():
		return r.styles.Error.Render(fmt.Sprintf("✗ %s after %s", res.Error, took)) + r.cpu(res)
	case res.IsNonZeroExit():
		return r.styles.Error.Render(fmt.Sprintf("✗ exited with code %d after %s", res.ExitCode, took)) + r.cpu(res)
	default:
		return r.styles.Success.Render(fmt.Sprintf("✓ finished in %s", took)) + r.cpu(res)
	}
}

// cpu renders the child's CPU time when the platform reports it.
func (r *Reporter) cpu(res *tactile.ExecutionResult) string {
	if res.ResourceUsage == nil {
		return ""
	}
	ms := res.ResourceUsage.TotalCPUTimeMs()
	return r.styles.Muted.Render(fmt.Sprintf(" (cpu %s)", formatDuration(time.Duration(ms)*time.Millisecond)))
}

func (r *Reporter) describeChange(tr watch.Trigger) string {
	first := tr.Paths[0]
	if r.base != "" {
		if rel, err := filepath.Rel(r.base, first); err == nil && !filepath.IsAbs(rel) && rel != "" && rel[0] != '.' {
			first = rel
		}
	}
	if len(tr.Paths) == 1 {
		return "Changed: " + first
	}
	return fmt.Sprintf("Changed: %s (+%d more)", first, len(tr.Paths)-1)
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	case d < time.Minute:
		return d.Round(10 * time.Millisecond).String()
	default:
		return d.Round(time.Second).String()
	}
}
