package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/fleetsim/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetsim/internal/pkg/metrics"
)

func snapshot(n int) model.FleetSnapshot {
	s := model.FleetSnapshot{Tick: 1, TakenAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	for i := range n {
		s.Vehicles = append(s.Vehicles, model.Vehicle{ID: fmt.Sprintf("v%d", i), Status: model.StatusIdle})
	}
	return s
}

func TestSubscriberSend(t *testing.T) {
	sub := NewSubscriber("a", 1)
	require.NoError(t, sub.Send([]byte("1")))
	assert.ErrorIs(t, sub.Send([]byte("2")), ErrQueueFull)

	assert.Equal(t, []byte("1"), <-sub.Outbound())

	sub.Close()
	sub.Close()
	assert.False(t, sub.IsOpen())
	assert.ErrorIs(t, sub.Send([]byte("3")), ErrSubscriberClosed)

	select {
	case <-sub.Done():
	default:
		t.Fatal("done not closed")
	}
}

func TestNewSubscriberDefaultsQueueSize(t *testing.T) {
	sub := NewSubscriber("a", 0)
	assert.Equal(t, DefaultQueueSize, cap(sub.out))
}

func TestRegisterUnregisterRoundTrip(t *testing.T) {
	r := New()
	existing := NewSubscriber("existing", 4)
	r.Register(existing)

	sub := NewSubscriber("a", 4)
	r.Register(sub)
	assert.Equal(t, 2, r.Len())
	assert.True(t, r.contains(sub))

	assert.True(t, r.Unregister(sub))
	assert.False(t, r.Unregister(sub))
	assert.Equal(t, 1, r.Len())
	assert.True(t, r.contains(existing))

	report := r.Broadcast(snapshot(2))
	assert.Equal(t, DeliveryReport{Delivered: 1}, report)
	assert.Empty(t, sub.Outbound())
}

func TestBroadcastEmptyRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	r := New(WithMetrics(m))

	assert.Equal(t, DeliveryReport{}, r.Broadcast(snapshot(3)))
	// Short-circuited before any per-subscriber work was recorded.
	assert.Equal(t, 0, testutil.CollectAndCount(m.BroadcastTotal))
}

func TestBroadcastPayload(t *testing.T) {
	r := New()
	sub := NewSubscriber("a", 4)
	r.Register(sub)

	report := r.Broadcast(snapshot(3))
	require.Equal(t, DeliveryReport{Delivered: 1}, report)

	var msg model.Message
	require.NoError(t, json.Unmarshal(<-sub.Outbound(), &msg))
	assert.Equal(t, model.MessageVehicleUpdate, msg.Type)
	assert.Len(t, msg.Data, 3)
	assert.Equal(t, "Vehicle positions updated automatically", msg.Message)
}

func TestBroadcastDropsFullAndClosedSubscribers(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	r := New(WithMetrics(m))

	healthy := NewSubscriber("healthy", 4)
	full := NewSubscriber("full", 1)
	closed := NewSubscriber("closed", 4)
	require.NoError(t, full.Send([]byte("backlog")))
	closed.Close()

	for _, s := range []*Subscriber{healthy, full, closed} {
		r.Register(s)
	}

	report := r.Broadcast(snapshot(1))
	assert.Equal(t, DeliveryReport{Delivered: 1, Dropped: 2}, report)
	assert.Equal(t, 1, r.Len())
	assert.False(t, r.contains(full))
	assert.False(t, full.IsOpen())
	assert.InDelta(t, 1, testutil.ToFloat64(m.ActiveSubscribers), 0)

	// Drained, but already gone: nothing further arrives.
	<-full.Outbound()
	r.Broadcast(snapshot(1))
	assert.Empty(t, full.Outbound())
	assert.Len(t, healthy.Outbound(), 2)
}

func TestRegisterFuncOrdersPrimeFirst(t *testing.T) {
	r := New()
	sub := NewSubscriber("a", 4)

	err := r.RegisterFunc(sub, func(s *Subscriber) error {
		return s.Send([]byte("initial"))
	})
	require.NoError(t, err)
	r.Broadcast(snapshot(1))

	assert.Equal(t, []byte("initial"), <-sub.Outbound())
	var msg model.Message
	require.NoError(t, json.Unmarshal(<-sub.Outbound(), &msg))
	assert.Equal(t, model.MessageVehicleUpdate, msg.Type)
}

func TestRegisterFuncPrimeFailure(t *testing.T) {
	r := New()
	sub := NewSubscriber("a", 4)
	boom := errors.New("boom")

	err := r.RegisterFunc(sub, func(*Subscriber) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, r.Len())
}

func TestConcurrentRegisterAndBroadcast(t *testing.T) {
	r := New()
	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := NewSubscriber(fmt.Sprintf("s%d", i), 2)
			r.Register(sub)
			r.Unregister(sub)
		}()
	}
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Broadcast(snapshot(2))
		}()
	}
	wg.Wait()
	assert.Zero(t, r.Len())
}
