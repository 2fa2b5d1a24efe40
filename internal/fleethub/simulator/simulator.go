package simulator

import (
	"math/rand/v2"
	"sync"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetsim/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetsim/pkg/log"
)

// DefaultFleetSize is the number of vehicles generated when no size is given.
const DefaultFleetSize = 25

// Simulator owns the canonical, mutable fleet. It is safe for concurrent use:
// Advance is serialized by a write lock and every reader gets deep copies, so
// nobody observes a vehicle halfway through a tick.
type Simulator struct {
	mu       sync.RWMutex
	vehicles []model.Vehicle
	tick     uint64
	takenAt  model.Timestamp

	rules  Rules
	rng    *rand.Rand
	clock  clock.PassiveClock
	logger log.Logger

	size    int
	initial model.Status
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithFleetSize sets the number of generated vehicles.
func WithFleetSize(n int) Option {
	return func(s *Simulator) { s.size = n }
}

// WithSeed makes the simulation reproducible. Zero keeps a random seed.
func WithSeed(seed uint64) Option {
	return func(s *Simulator) {
		if seed != 0 {
			s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
		}
	}
}

// WithRules overrides the random walk parameters.
func WithRules(r Rules) Option {
	return func(s *Simulator) { s.rules = r }
}

// WithClock sets the time source used for timestamps and arrival estimates.
func WithClock(c clock.PassiveClock) Option {
	return func(s *Simulator) { s.clock = c }
}

// WithInitialStatus generates every vehicle in the given status instead of a
// random one.
func WithInitialStatus(st model.Status) Option {
	return func(s *Simulator) { s.initial = st }
}

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// New generates a fleet and returns the simulator owning it.
func New(opts ...Option) *Simulator {
	s := &Simulator{
		rules:  DefaultRules(),
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		clock:  clock.RealClock{},
		logger: log.WithName("simulator"),
		size:   DefaultFleetSize,
	}
	for _, opt := range opts {
		opt(s)
	}

	now := s.clock.Now()
	s.vehicles = s.generate(s.size, s.initial, now)
	s.takenAt = model.NewTimestamp(now)

	s.logger.Info("Fleet generated", "vehicles", len(s.vehicles))
	return s
}

// Advance applies one tick to every vehicle and returns the resulting snapshot.
func (s *Simulator) Advance() model.FleetSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for i := range s.vehicles {
		v := &s.vehicles[i]
		s.transition(v, now)
		s.move(v)
		v.LastUpdated = model.NewTimestamp(now)
		s.drain(v)
	}
	s.tick++
	s.takenAt = model.NewTimestamp(now)

	s.logger.Debug("Fleet advanced", "tick", s.tick)
	return s.snapshotLocked()
}

// Snapshot returns the current state without advancing it.
func (s *Simulator) Snapshot() model.FleetSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Vehicle returns a copy of the vehicle with the given id.
func (s *Simulator) Vehicle(id string) (model.Vehicle, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.vehicles {
		if s.vehicles[i].ID == id {
			return s.vehicles[i].Clone(), true
		}
	}
	return model.Vehicle{}, false
}

// Size returns the fleet size, which never changes.
func (s *Simulator) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vehicles)
}

func (s *Simulator) snapshotLocked() model.FleetSnapshot {
	out := make([]model.Vehicle, len(s.vehicles))
	for i := range s.vehicles {
		out[i] = s.vehicles[i].Clone()
	}
	return model.FleetSnapshot{Tick: s.tick, TakenAt: s.takenAt.Time, Vehicles: out}
}
