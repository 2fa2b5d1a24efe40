package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/autopeer-io/fleetsim/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetsim/internal/pkg/metrics"
	"github.com/autopeer-io/fleetsim/pkg/log"
)

// DeliveryReport summarises one broadcast.
type DeliveryReport struct {
	Delivered int
	Dropped   int
}

// Registry tracks the live subscribers and fans snapshots out to them.
type Registry struct {
	mu   sync.RWMutex
	subs map[*Subscriber]struct{}

	logger  log.Logger
	metrics *metrics.Metrics
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(l log.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithMetrics reports subscriber counts and delivery outcomes to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

// New returns an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		subs:   make(map[*Subscriber]struct{}),
		logger: log.WithName("registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds sub to the broadcast set.
func (r *Registry) Register(sub *Subscriber) {
	_ = r.RegisterFunc(sub, nil)
}

// RegisterFunc runs prime and, if it succeeds, adds sub to the broadcast set.
// prime runs under the registry lock, so whatever it queues precedes every
// broadcast the subscriber will see.
func (r *Registry) RegisterFunc(sub *Subscriber, prime func(*Subscriber) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prime != nil {
		if err := prime(sub); err != nil {
			return fmt.Errorf("prime subscriber %s: %w", sub.ID(), err)
		}
	}
	r.subs[sub] = struct{}{}
	r.metrics.SetSubscribers(len(r.subs))

	r.logger.Info("Subscriber registered", "subscriber", sub.ID(), "total", len(r.subs))
	return nil
}

// Unregister removes sub and reports whether it was registered.
// Removing an absent subscriber is a no-op.
func (r *Registry) Unregister(sub *Subscriber) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subs[sub]; !ok {
		return false
	}
	delete(r.subs, sub)
	r.metrics.SetSubscribers(len(r.subs))

	r.logger.Info("Subscriber unregistered", "subscriber", sub.ID(), "total", len(r.subs))
	return true
}

// Len returns the number of registered subscribers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// contains reports whether sub is registered.
func (r *Registry) contains(sub *Subscriber) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.subs[sub]
	return ok
}

// Broadcast offers snapshot as a vehicle_update to every registered
// subscriber without blocking. Subscribers that cannot take it are
// unregistered and closed. An empty registry returns before encoding.
func (r *Registry) Broadcast(snapshot model.FleetSnapshot) DeliveryReport {
	targets := r.targets()
	if len(targets) == 0 {
		return DeliveryReport{}
	}

	payload, err := json.Marshal(model.NewVehicleUpdate(snapshot))
	if err != nil {
		r.logger.Error(err, "Failed to encode vehicle update", "tick", snapshot.Tick)
		return DeliveryReport{}
	}

	var report DeliveryReport
	for _, sub := range targets {
		if err := sub.Send(payload); err != nil {
			report.Dropped++
			r.Unregister(sub)
			sub.Close()
			r.logger.Warn("Dropped subscriber", "subscriber", sub.ID(), "reason", err.Error())
			continue
		}
		report.Delivered++
	}

	r.metrics.ObserveBroadcast(report.Delivered, report.Dropped)
	r.logger.Info("Broadcast complete", "tick", snapshot.Tick, "delivered", report.Delivered, "dropped", report.Dropped)
	return report
}

// targets copies the subscriber set so delivery never iterates the live map.
func (r *Registry) targets() []*Subscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.subs) == 0 {
		return nil
	}
	out := make([]*Subscriber, 0, len(r.subs))
	for sub := range r.subs {
		out = append(out, sub)
	}
	return out
}
