package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"ruffdev/internal/command"
	"ruffdev/internal/tactile"
)

const (
	DefaultDebounce    = 300 * time.Millisecond
	DefaultGracePeriod = 2 * time.Second

	defaultEventBuffer = 256
)

// Options tunes a Supervisor. Zero values take the defaults.
type Options struct {
	// Debounce is the coalescing window, timed from the first event of a batch.
	Debounce time.Duration
	// GracePeriod is how long a terminated run may take before it is killed.
	GracePeriod time.Duration
	// IgnoreDirs are directory names skipped anywhere below a watched tree.
	IgnoreDirs []string
	// BeforeRun is called on the supervisor goroutine before every start.
	BeforeRun   func(Trigger)
	EventBuffer int
	Logger      *zap.Logger
}

// Supervisor owns the watch subscription and the single run slot.
type Supervisor struct {
	set     WatchSet
	spec    command.RunSpec
	starter tactile.Starter
	opts    Options
	logger  *zap.Logger

	events chan Event

	mu      sync.RWMutex
	state   State
	stats   Stats
	started bool
}

// New creates a supervisor that runs spec through starter on every change to set.
func New(set WatchSet, spec command.RunSpec, starter tactile.Starter, opts Options) *Supervisor {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = defaultEventBuffer
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		set:     set,
		spec:    spec,
		starter: starter,
		opts:    opts,
		logger:  logger,
		events:  make(chan Event, opts.EventBuffer),
		state:   StateInit,
	}
}

// Events streams supervisor events. The channel is closed when Run returns.
// Events are dropped (and counted) if the consumer falls behind.
func (s *Supervisor) Events() <-chan Event {
	return s.events
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Stats returns a snapshot of the counters.
func (s *Supervisor) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// Run subscribes, runs the command once, then reruns it on every debounced
// change until ctx is cancelled. Cancellation is a normal stop and returns nil.
func (s *Supervisor) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.started = true
	s.mu.Unlock()
	defer close(s.events)

	if err := s.spec.Validate(); err != nil {
		s.setState(StateStopped)
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		s.setState(StateStopped)
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	sub := newSubscription(watcher, s.opts.IgnoreDirs, s.logger)
	for _, w := range sub.addAll(s.set) {
		s.warn(w)
	}

	s.mu.Lock()
	s.stats.WatchedDirs = sub.dirCount()
	s.mu.Unlock()

	changes := make(chan string, 64)
	quit := make(chan struct{})
	readerDone := make(chan struct{})
	go s.forward(sub, changes, quit, readerDone)

	s.setState(StateWatching)
	s.emit(Event{Kind: EventWatching, Message: strconv.Itoa(s.set.Len())})
	s.logger.Info("watching",
		zap.Int("entries", s.set.Len()),
		zap.Int("dirs", sub.dirCount()),
		zap.String("command", s.spec.String()))

	s.loop(ctx, changes)

	close(quit)
	if err := watcher.Close(); err != nil {
		s.logger.Warn("error closing watcher", zap.Error(err))
	}
	<-readerDone

	s.setState(StateStopped)
	s.emit(Event{Kind: EventStopped})
	s.logger.Info("stopped")
	return nil
}

// loop is the only goroutine touching the run slot and the debounce timer.
func (s *Supervisor) loop(ctx context.Context, changes <-chan string) {
	var (
		current    *tactile.RunHandle
		currentTr  Trigger
		pending    *Trigger
		batch      = make(map[string]struct{})
		debounce   *time.Timer
		debounceC  <-chan time.Time
		seq        uint64
		superseded bool
	)

	start := func(tr Trigger) {
		current, currentTr, superseded = s.start(tr), tr, false
	}

	seq++
	start(Trigger{Seq: seq, At: time.Now(), Initial: true})

	for {
		var doneC <-chan struct{}
		if current != nil {
			doneC = current.Done()
		}

		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			if current != nil {
				result := current.Terminate(s.opts.GracePeriod)
				s.finish(current, currentTr, result, superseded)
			}
			return

		case path := <-changes:
			batch[path] = struct{}{}
			if debounce == nil {
				debounce = time.NewTimer(s.opts.Debounce)
				debounceC = debounce.C
			}

		case <-debounceC:
			debounce, debounceC = nil, nil
			seq++
			tr := Trigger{Seq: seq, Paths: sortedKeys(batch), At: time.Now()}
			batch = make(map[string]struct{})

			s.mu.Lock()
			s.stats.Triggers++
			s.mu.Unlock()
			s.logger.Debug("trigger", zap.Uint64("seq", tr.Seq), zap.Strings("paths", tr.Paths))

			switch {
			case current == nil:
				start(tr)
			case pending != nil:
				// Already terminating; fold this batch into the queued trigger.
				merged := mergeTriggers(*pending, tr)
				pending = &merged
			default:
				pending = &tr
				superseded = true
				s.mu.Lock()
				s.stats.Superseded++
				s.mu.Unlock()
				s.emit(Event{Kind: EventSuperseding, RunID: current.ID, Trigger: tr})
				current.Stop(s.opts.GracePeriod)
			}

		case <-doneC:
			s.finish(current, currentTr, current.Result(), superseded)
			current = nil
			if pending != nil {
				next := *pending
				pending = nil
				start(next)
			} else {
				s.setState(StateWatching)
			}
		}
	}
}

// start launches one run. A spawn failure is reported as a finished run and
// leaves the supervisor watching.
func (s *Supervisor) start(tr Trigger) *tactile.RunHandle {
	if s.opts.BeforeRun != nil {
		s.opts.BeforeRun(tr)
	}

	handle, err := s.starter.Start(tactile.Command{
		Binary:           s.spec.Program,
		Arguments:        s.spec.Args,
		WorkingDirectory: s.spec.Dir,
		Environment:      s.spec.Env,
	})
	if err != nil {
		s.mu.Lock()
		s.stats.SpawnFailures++
		s.mu.Unlock()
		s.logger.Warn("run failed to start", zap.Uint64("seq", tr.Seq), zap.Error(err))

		s.setState(StateWatching)
		s.emit(Event{
			Kind:    EventRunFinished,
			Trigger: tr,
			Outcome: &RunOutcome{Trigger: tr, SpawnErr: err},
		})
		return nil
	}

	s.mu.Lock()
	s.stats.Runs++
	s.mu.Unlock()
	s.setState(StateRunning)
	s.logger.Debug("run started", zap.String("run_id", handle.ID), zap.Uint64("seq", tr.Seq))
	s.emit(Event{Kind: EventRunStarted, RunID: handle.ID, Trigger: tr})
	return handle
}

func (s *Supervisor) finish(h *tactile.RunHandle, tr Trigger, result *tactile.ExecutionResult, superseded bool) {
	outcome := &RunOutcome{
		RunID:      h.ID,
		Trigger:    tr,
		Result:     result,
		Superseded: superseded,
	}
	fields := []zap.Field{zap.String("run_id", h.ID), zap.Bool("superseded", superseded)}
	if result != nil {
		fields = append(fields, zap.Int("exit_code", result.ExitCode), zap.Duration("duration", result.Duration))
		if result.KillReason != "" {
			fields = append(fields, zap.String("kill_reason", result.KillReason))
		}
		if usage := result.ResourceUsage; usage != nil {
			fields = append(fields,
				zap.Int64("cpu_ms", usage.TotalCPUTimeMs()),
				zap.Int64("max_rss", usage.MaxRSSBytes))
		}
	}
	s.logger.Debug("run finished", fields...)
	s.emit(Event{Kind: EventRunFinished, RunID: h.ID, Trigger: tr, Outcome: outcome})
}

// forward relays relevant fsnotify events until the watcher is closed.
// It never waits on process state.
func (s *Supervisor) forward(sub *subscription, changes chan<- string, quit <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	for {
		select {
		case ev, ok := <-sub.watcher.Events:
			if !ok {
				return
			}
			for _, w := range sub.followCreate(ev) {
				s.warn(w)
			}
			if !sub.relevant(ev) {
				continue
			}

			path := filepath.Clean(ev.Name)
			s.mu.Lock()
			s.stats.LastEventTime = time.Now()
			s.stats.LastEventPath = path
			s.stats.WatchedDirs = sub.dirCount()
			s.mu.Unlock()

			select {
			case changes <- path:
			case <-quit:
				return
			}

		case err, ok := <-sub.watcher.Errors:
			if !ok {
				return
			}
			s.mu.Lock()
			s.stats.Errors++
			s.mu.Unlock()
			s.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Supervisor) warn(msg string) {
	s.logger.Warn(msg)
	s.emit(Event{Kind: EventWarning, Message: msg})
}

func (s *Supervisor) emit(ev Event) {
	ev.State = s.State()
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case s.events <- ev:
	default:
		s.mu.Lock()
		s.stats.DroppedEvents++
		s.mu.Unlock()
	}
}

func mergeTriggers(a, b Trigger) Trigger {
	set := make(map[string]struct{}, len(a.Paths)+len(b.Paths))
	for _, p := range a.Paths {
		set[p] = struct{}{}
	}
	for _, p := range b.Paths {
		set[p] = struct{}{}
	}
	return Trigger{Seq: b.Seq, Paths: sortedKeys(set), At: b.At}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
