package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/fleetsim/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetsim/internal/fleethub/registry"
	"github.com/autopeer-io/fleetsim/internal/pkg/metrics"
)

const (
	waitFor = 2 * time.Second
	poll    = 5 * time.Millisecond
)

type fakeFleet struct {
	mu    sync.Mutex
	ticks uint64

	// active counts concurrent Advance calls; maxActive must stay 1.
	active    int
	maxActive int
}

func (f *fakeFleet) Advance() model.FleetSnapshot {
	f.mu.Lock()
	f.active++
	if f.active > f.maxActive {
		f.maxActive = f.active
	}
	f.ticks++
	tick := f.ticks
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.active--
		f.mu.Unlock()
	}()
	return model.FleetSnapshot{
		Tick: tick,
		Vehicles: []model.Vehicle{
			{ID: "a", Status: model.StatusIdle},
			{ID: "b", Status: model.StatusEnRoute, Speed: 30},
		},
	}
}

func (f *fakeFleet) count() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ticks
}

type fakeSink struct {
	mu    sync.Mutex
	ticks []uint64
}

func (f *fakeSink) Broadcast(s model.FleetSnapshot) registry.DeliveryReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ticks = append(f.ticks, s.Tick)
	return registry.DeliveryReport{Delivered: 1}
}

func (f *fakeSink) seen() []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]uint64(nil), f.ticks...)
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeNotifier) Notify(_ context.Context, _ model.FleetSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.err
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestScheduler(t *testing.T, opts ...Option) (*Scheduler, *fakeFleet, *fakeSink, *clocktesting.FakeClock) {
	t.Helper()
	fc := clocktesting.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	fleet, sink := &fakeFleet{}, &fakeSink{}
	s := New(fleet, sink, append([]Option{WithClock(fc)}, opts...)...)
	t.Cleanup(s.Stop)
	return s, fleet, sink, fc
}

func ticksReach(f *fakeFleet, n uint64) func() bool {
	return func() bool { return f.count() == n }
}

func TestInitialTickThenInterval(t *testing.T) {
	s, fleet, sink, fc := newTestScheduler(t)
	require.NoError(t, s.Start(context.Background()))

	fc.Step(4 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, fleet.count())

	fc.Step(time.Second)
	require.Eventually(t, ticksReach(fleet, 1), waitFor, poll)

	fc.Step(DefaultInterval - DefaultInitialDelay - time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.EqualValues(t, 1, fleet.count())

	fc.Step(time.Second)
	require.Eventually(t, ticksReach(fleet, 2), waitFor, poll)

	fc.Step(DefaultInterval)
	require.Eventually(t, ticksReach(fleet, 3), waitFor, poll)

	assert.Equal(t, []uint64{1, 2, 3}, sink.seen())
}

func TestStopCancelsFutureTicks(t *testing.T) {
	s, fleet, _, fc := newTestScheduler(t)
	require.NoError(t, s.Start(context.Background()))

	s.Stop()
	select {
	case <-s.Done():
	default:
		t.Fatal("loop still running after Stop")
	}

	fc.Step(time.Hour)
	time.Sleep(20 * time.Millisecond)
	assert.Zero(t, fleet.count())

	s.Stop()
}

func TestStartTwice(t *testing.T) {
	s, _, _, _ := newTestScheduler(t)
	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)
}

func TestStopBeforeStart(t *testing.T) {
	s, _, _, _ := newTestScheduler(t)
	s.Stop()
	<-s.Done()
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)
}

func TestContextCancellationEndsLoop(t *testing.T) {
	s, _, _, _ := newTestScheduler(t)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	cancel()
	select {
	case <-s.Done():
	case <-time.After(waitFor):
		t.Fatal("loop did not exit on context cancellation")
	}
}

func TestDevInterval(t *testing.T) {
	s, fleet, _, fc := newTestScheduler(t, WithDevInterval(30*time.Second))
	require.NoError(t, s.Start(context.Background()))

	fc.Step(DefaultInitialDelay)
	require.Eventually(t, ticksReach(fleet, 1), waitFor, poll)

	fc.Step(25 * time.Second)
	require.Eventually(t, ticksReach(fleet, 2), waitFor, poll)

	fc.Step(30 * time.Second)
	require.Eventually(t, ticksReach(fleet, 3), waitFor, poll)
}

func TestTicksNeverOverlap(t *testing.T) {
	s, fleet, _, fc := newTestScheduler(t, WithInterval(time.Second), WithInitialDelay(time.Second), WithDevInterval(time.Second))
	require.NoError(t, s.Start(context.Background()))

	for i := range 20 {
		fc.Step(time.Second)
		require.Eventually(t, func() bool { return fleet.count() >= uint64(i+1) }, waitFor, poll)
	}

	fleet.mu.Lock()
	defer fleet.mu.Unlock()
	assert.Equal(t, 1, fleet.maxActive)
}

func TestNotifierFailureIsNotFatal(t *testing.T) {
	n := &fakeNotifier{err: errors.New("broker down")}
	s, fleet, _, fc := newTestScheduler(t, WithNotifier(n), WithInitialDelay(time.Second), WithInterval(time.Minute))
	require.NoError(t, s.Start(context.Background()))

	fc.Step(time.Second)
	require.Eventually(t, ticksReach(fleet, 1), waitFor, poll)
	fc.Step(time.Minute - time.Second)
	require.Eventually(t, ticksReach(fleet, 2), waitFor, poll)

	require.Eventually(t, func() bool { return n.count() == 2 }, waitFor, poll)
}

func TestTickMetrics(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	s, fleet, _, fc := newTestScheduler(t, WithMetrics(m))
	require.NoError(t, s.Start(context.Background()))

	fc.Step(DefaultInitialDelay)
	require.Eventually(t, ticksReach(fleet, 1), waitFor, poll)
	require.Eventually(t, func() bool { return testutil.ToFloat64(m.TicksTotal) == 1 }, waitFor, poll)

	assert.InDelta(t, 1, testutil.ToFloat64(m.Vehicles.WithLabelValues("en_route")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Vehicles.WithLabelValues("idle")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(m.Vehicles.WithLabelValues("delivered")), 0)
}
