package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetsim/internal/fleethub/core"
	"github.com/autopeer-io/fleetsim/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetsim/internal/fleethub/registry"
	"github.com/autopeer-io/fleetsim/internal/pkg/metrics"
	"github.com/autopeer-io/fleetsim/pkg/log"
)

const (
	DefaultInterval     = 3 * time.Minute
	DefaultInitialDelay = 5 * time.Second

	// notifyTimeout bounds the external notifier per tick.
	notifyTimeout = 10 * time.Second
)

// ErrAlreadyStarted is returned by a second Start.
var ErrAlreadyStarted = errors.New("scheduler already started")

// Advancer produces the next fleet state.
type Advancer interface {
	Advance() model.FleetSnapshot
}

// Broadcaster fans a snapshot out to subscribers.
type Broadcaster interface {
	Broadcast(snapshot model.FleetSnapshot) registry.DeliveryReport
}

// Scheduler drives the simulation: one tick after the initial delay, then one
// every interval. Ticks run on a single goroutine, so they never overlap.
type Scheduler struct {
	source Advancer
	sink   Broadcaster

	interval     time.Duration
	initialDelay time.Duration
	devInterval  time.Duration

	clock    clock.WithTicker
	notifier core.SnapshotNotifier
	metrics  *metrics.Metrics
	logger   log.Logger

	mu       sync.Mutex
	started  bool
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the period between ticks.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithInitialDelay sets the wait before the one-off first tick.
func WithInitialDelay(d time.Duration) Option {
	return func(s *Scheduler) { s.initialDelay = d }
}

// WithDevInterval adds a second, usually faster, periodic tick source.
// Zero disables it.
func WithDevInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.devInterval = d }
}

// WithClock sets the time source for timers and tick durations.
func WithClock(c clock.WithTicker) Option {
	return func(s *Scheduler) { s.clock = c }
}

// WithNotifier forwards every snapshot to n after the broadcast.
func WithNotifier(n core.SnapshotNotifier) Option {
	return func(s *Scheduler) { s.notifier = n }
}

// WithMetrics records tick counts, durations and fleet composition.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// New creates a stopped scheduler.
func New(source Advancer, sink Broadcaster, opts ...Option) *Scheduler {
	s := &Scheduler{
		source:       source,
		sink:         sink,
		interval:     DefaultInterval,
		initialDelay: DefaultInitialDelay,
		clock:        clock.RealClock{},
		logger:       log.WithName("scheduler"),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start arms the timers and launches the tick loop. The loop runs until ctx
// is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true

	ctx, s.cancel = context.WithCancel(ctx)

	// Armed here, not in the goroutine, so the schedule is anchored at Start.
	first := s.clock.NewTimer(s.initialDelay)
	ticker := s.clock.NewTicker(s.interval)
	var dev clock.Ticker
	if s.devInterval > 0 {
		dev = s.clock.NewTicker(s.devInterval)
	}

	s.logger.Info("Scheduler started", "interval", s.interval, "initialDelay", s.initialDelay, "devInterval", s.devInterval)
	go s.loop(ctx, first, ticker, dev)
	return nil
}

// Stop cancels all pending and future ticks and returns once the loop has
// exited. A tick in progress is allowed to finish. Safe to call more than
// once, and before Start.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		started, cancel := s.started, s.cancel
		s.started = true // a Start after Stop must not run
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		if !started {
			close(s.done)
			return
		}
		<-s.done
		s.logger.Info("Scheduler stopped")
	})
}

// Done is closed once the loop has exited.
func (s *Scheduler) Done() <-chan struct{} { return s.done }

func (s *Scheduler) loop(ctx context.Context, first clock.Timer, ticker, dev clock.Ticker) {
	defer close(s.done)
	defer first.Stop()
	defer ticker.Stop()

	var devC <-chan time.Time
	if dev != nil {
		defer dev.Stop()
		devC = dev.C()
	}

	firstC := first.C()
	for {
		select {
		case <-ctx.Done():
			return
		case <-firstC:
			firstC = nil
			s.tick(ctx, "initial")
		case <-ticker.C():
			s.tick(ctx, "interval")
		case <-devC:
			s.tick(ctx, "dev")
		}

		// A tick that raced with cancellation must not be followed by another.
		if ctx.Err() != nil {
			return
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, source string) {
	start := s.clock.Now()

	snapshot := s.source.Advance()
	report := s.sink.Broadcast(snapshot)

	elapsed := s.clock.Since(start)
	for _, st := range model.Statuses() {
		s.metrics.SetVehicles(st.String(), snapshot.Count(st))
	}
	s.metrics.ObserveTick(elapsed)

	s.logger.Info("Tick complete",
		"tick", snapshot.Tick,
		"source", source,
		"vehicles", snapshot.Len(),
		"delivered", report.Delivered,
		"dropped", report.Dropped,
	)

	if s.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(nctx, snapshot); err != nil {
		s.logger.Error(err, "Failed to notify snapshot", "tick", snapshot.Tick)
	}
}
