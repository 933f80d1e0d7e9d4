package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/ch-sander/zotero-rdf-server/events"
)

// Scheduler drives the refresh cycle: a startup load, per-library interval
// ticks, and on-demand triggers. Libraries refresh concurrently with each
// other but sequentially within themselves; triggers arriving during a run
// coalesce into it, relying on the next tick for anything newer.
type Scheduler struct {
	clock   Clock
	logger  *slog.Logger
	bus     *events.Bus
	metrics *Metrics
	timeout time.Duration
	delay   time.Duration

	mu   sync.Mutex
	libs map[string]*libRunner
	wg   sync.WaitGroup
}

type libRunner struct {
	pipeline *Pipeline
	interval time.Duration
	// trigger is buffered with size one; a send into a full channel is
	// dropped, and runOnce drains the buffer on completion, so triggers
	// during a run coalesce into it instead of queueing a follow-up.
	trigger chan struct{}

	mu     sync.Mutex
	status Status
}

// Options configures a scheduler.
type Options struct {
	// Clock defaults to the wall clock.
	Clock Clock
	// Timeout bounds one refresh run; zero means no bound.
	Timeout time.Duration
	// StartupDelay postpones the initial load.
	StartupDelay time.Duration
	// Bus receives refresh outcome events; nil disables announcements.
	Bus *events.Bus
	// Metrics receives instrumentation; nil disables it.
	Metrics *Metrics
	Logger  *slog.Logger
}

// NewScheduler creates an empty scheduler.
func NewScheduler(opts Options) *Scheduler {
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Scheduler{
		clock:   opts.Clock,
		logger:  opts.Logger,
		bus:     opts.Bus,
		metrics: opts.Metrics,
		timeout: opts.Timeout,
		delay:   opts.StartupDelay,
		libs:    make(map[string]*libRunner),
	}
}

// Register adds a library pipeline. interval zero disables periodic
// refresh for that library; it still refreshes at startup and on trigger.
func (s *Scheduler) Register(p *Pipeline, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := p.Library()
	if _, ok := s.libs[name]; ok {
		return fmt.Errorf("library %q already registered", name)
	}
	s.libs[name] = &libRunner{
		pipeline: p,
		interval: interval,
		trigger:  make(chan struct{}, 1),
		status: Status{
			Library: name,
			Graph:   string(p.Graph()),
			State:   StateIdle,
		},
	}
	return nil
}

// Start launches one goroutine per registered library and returns. Run
// loops stop when ctx is cancelled; Wait blocks until they have drained.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, lr := range s.libs {
		s.wg.Add(1)
		go func(lr *libRunner) {
			defer s.wg.Done()
			s.runLoop(ctx, lr)
		}(lr)
	}
}

// Wait blocks until all refresh loops have stopped.
func (s *Scheduler) Wait() { s.wg.Wait() }

// Trigger requests an on-demand refresh. An empty name triggers every
// library. Unknown names are reported.
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if name == "" {
		for _, lr := range s.libs {
			lr.requestRun()
		}
		return nil
	}
	lr, ok := s.libs[name]
	if !ok {
		return fmt.Errorf("unknown library %q", name)
	}
	lr.requestRun()
	return nil
}

// Statuses returns a snapshot of every library's status, sorted by name.
func (s *Scheduler) Statuses() []Status {
	s.mu.Lock()
	runners := make([]*libRunner, 0, len(s.libs))
	for _, lr := range s.libs {
		runners = append(runners, lr)
	}
	s.mu.Unlock()

	statuses := make([]Status, 0, len(runners))
	for _, lr := range runners {
		lr.mu.Lock()
		statuses = append(statuses, lr.status)
		lr.mu.Unlock()
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Library < statuses[j].Library })
	return statuses
}

func (lr *libRunner) requestRun() {
	select {
	case lr.trigger <- struct{}{}:
	default:
		// A run is already pending; the new request rides along.
	}
}

func (lr *libRunner) setState(st State) {
	lr.mu.Lock()
	lr.status.State = st
	lr.mu.Unlock()
}

func (s *Scheduler) runLoop(ctx context.Context, lr *libRunner) {
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(s.delay):
		}
	}

	// Startup load.
	s.runOnce(ctx, lr)

	for {
		select {
		case <-ctx.Done():
			return
		case <-lr.trigger:
			s.runOnce(ctx, lr)
		case <-s.clock.After(lr.interval):
			s.runOnce(ctx, lr)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, lr *libRunner) {
	if ctx.Err() != nil {
		return
	}
	runCtx := ctx
	cancel := context.CancelFunc(func() {})
	if s.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, s.timeout)
	}
	defer cancel()

	name := lr.pipeline.Library()
	started := s.clock.Now()
	s.logger.Info("refresh started", "library", name)

	result, err := lr.pipeline.Run(runCtx, lr.setState)
	// Requests that arrived while this run was in flight are already
	// satisfied by it; drop them instead of queueing a duplicate run.
	select {
	case <-lr.trigger:
	default:
	}
	elapsed := s.clock.Now().Sub(started)
	s.metrics.observe(name, elapsed, err)

	lr.mu.Lock()
	lr.status.LastRun = started
	if err != nil {
		lr.status.State = StateFailed
		lr.status.LastError = err.Error()
	} else {
		lr.status.State = StateIdle
		lr.status.LastError = ""
		lr.status.LastTriples = result.Triples
	}
	lr.mu.Unlock()

	ev := events.RefreshEvent{
		Library:   name,
		Graph:     string(lr.pipeline.Graph()),
		Triples:   result.Triples,
		Duration:  elapsed.String(),
		Timestamp: started,
	}
	if err != nil {
		ev.Error = err.Error()
		s.logger.Error("refresh failed", "library", name, "error", err, "elapsed", elapsed)
	} else {
		s.metrics.setGraphSize(string(lr.pipeline.Graph()), result.Triples)
		s.logger.Info("refresh completed",
			"library", name, "triples", result.Triples, "graphs", len(result.Graphs), "elapsed", elapsed)
	}
	s.bus.PublishRefresh(ev)
}
