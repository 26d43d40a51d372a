package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ruffdev/cmd/ruffdev/ui"
	"ruffdev/internal/command"
	"ruffdev/internal/logging"
	"ruffdev/internal/tactile"
	"ruffdev/internal/watch"
)

// watchPlan is everything a sub-command decides before the loop starts.
type watchPlan struct {
	spec      command.RunSpec
	set       watch.WatchSet
	beforeRun func(watch.Trigger)
}

// watchPaths makes target roots absolute against the workspace.
func (a *app) watchPaths(roots []string) watch.WatchSet {
	return watch.NewWatchSet(a.workspace, roots...)
}

// runWatch prints the banner and runs the supervisor until ctx is cancelled
// or the process receives SIGINT/SIGTERM.
func (a *app) runWatch(ctx context.Context, plan *watchPlan) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.printBanner(plan)

	log := a.log.Get(logging.CategoryWatch)
	log.Info("starting watch",
		zap.String("command", plan.spec.String()),
		zap.Int("paths", plan.set.Len()),
		zap.Stringer("shape", plan.spec.Shape))

	executor := tactile.NewDirectExecutor(a.log.Get(logging.CategoryTactile)).WithOutput(a.stdout, a.stderr)
	sup := watch.New(plan.set, plan.spec, executor, watch.Options{
		Debounce:    a.cfg.GetDebounce(),
		GracePeriod: a.cfg.GetGracePeriod(),
		IgnoreDirs:  a.cfg.Watch.IgnoreDirs,
		BeforeRun:   plan.beforeRun,
		Logger:      log,
	})
	reporter := ui.NewReporter(a.stderr, a.styles, plan.spec.String(), a.workspace)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sup.Run(gctx)
	})
	g.Go(func() error {
		return reporter.Consume(sup.Events())
	})
	err := g.Wait()

	stats := sup.Stats()
	log.Info("watch stopped",
		zap.Int("triggers", stats.Triggers),
		zap.Int("runs", stats.Runs),
		zap.Int("superseded", stats.Superseded),
		zap.Int("spawn_failures", stats.SpawnFailures),
		zap.Int("dropped_events", stats.DroppedEvents))
	return err
}

func (a *app) printBanner(plan *watchPlan) {
	lines := []string{
		fmt.Sprintf("Starting watch for '%s'...", plan.spec.String()),
		"Watching the following paths for changes:",
	}
	for _, p := range plan.set.Paths() {
		if rel, err := filepath.Rel(a.workspace, p); err == nil && !strings.HasPrefix(rel, "..") {
			p = rel
		}
		lines = append(lines, "  * "+p)
	}
	fmt.Fprintln(a.stderr, a.styles.Info.Render(strings.Join(lines, "\n")))
}
