package watch

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/autopeer-io/fleetsim/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetsim/internal/fleethub/registry"
	grpcserver "github.com/autopeer-io/fleetsim/internal/fleethub/server/grpc"
	"github.com/autopeer-io/fleetsim/internal/fleethub/server/ws"
	"github.com/autopeer-io/fleetsim/internal/fleethub/simulator"
	pkgmqtt "github.com/autopeer-io/fleetsim/pkg/mqtt"
	"github.com/autopeer-io/fleetsim/pkg/options"
)

const waitFor = 2 * time.Second

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type server struct {
	sim     *simulator.Simulator
	reg     *registry.Registry
	handler *ws.Handler
	url     string
}

func newServer(t *testing.T) *server {
	t.Helper()
	s := &server{
		sim: simulator.New(simulator.WithFleetSize(3), simulator.WithSeed(9)),
		reg: registry.New(),
	}
	s.handler = ws.NewHandler(s.sim, s.reg, options.NewWebSocketOptions())
	srv := httptest.NewServer(s.handler)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), waitFor)
		defer cancel()
		_ = s.handler.Shutdown(ctx)
		srv.Close()
	})
	s.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return s
}

func newWatcher(t *testing.T, cfg *Config) (*Watcher, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	cfg.Out = out
	if cfg.Source == "" {
		cfg.Source = SourceWebSocket
	}
	w, err := cfg.NewWatcher()
	require.NoError(t, err)
	return w, out
}

func runAsync(ctx context.Context, w *Watcher) <-chan error {
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	return done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(waitFor):
		t.Fatal("watcher did not return")
		return nil
	}
}

func TestWatchStopsAfterCount(t *testing.T) {
	s := newServer(t)
	w, out := newWatcher(t, &Config{URL: s.url, Count: 1})

	require.NoError(t, w.Run(context.Background()))
	assert.Contains(t, out.String(), "initial_data  3 vehicles")
	assert.Contains(t, out.String(), "FL-001")
	assert.Contains(t, out.String(), "Updates every 3 minutes")
}

func TestWatchPingAndUpdate(t *testing.T) {
	s := newServer(t)
	w, out := newWatcher(t, &Config{URL: s.url, Count: 2, PingDelay: time.Millisecond})

	done := runAsync(context.Background(), w)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "pong") }, waitFor, 5*time.Millisecond)

	s.reg.Broadcast(s.sim.Advance())
	require.NoError(t, wait(t, done))
	assert.Contains(t, out.String(), "vehicle_update  3 vehicles")
}

func TestWatchStopsOnCancel(t *testing.T) {
	s := newServer(t)
	w, out := newWatcher(t, &Config{URL: s.url})

	ctx, cancel := context.WithCancel(context.Background())
	done := runAsync(ctx, w)
	require.Eventually(t, func() bool { return strings.Contains(out.String(), "initial_data") }, waitFor, 5*time.Millisecond)

	cancel()
	assert.NoError(t, wait(t, done))
}

func TestWatchReportsServerClose(t *testing.T) {
	s := newServer(t)
	w, out := newWatcher(t, &Config{URL: s.url})

	done := runAsync(context.Background(), w)
	require.Eventually(t, func() bool { return s.reg.Len() == 1 }, waitFor, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, s.handler.Shutdown(ctx))

	assert.NoError(t, wait(t, done))
	assert.Contains(t, out.String(), "Connection closed by server: 1001")
}

func TestWatchDialFailure(t *testing.T) {
	w, _ := newWatcher(t, &Config{URL: "ws://127.0.0.1:1"})
	assert.Error(t, w.Run(context.Background()))
}

func TestNewWatcherRejectsUnknownSource(t *testing.T) {
	_, err := (&Config{Source: "carrier-pigeon"}).NewWatcher()
	assert.Error(t, err)
}

func TestHandleIgnoresNoise(t *testing.T) {
	w, out := newWatcher(t, &Config{Count: 1})

	assert.False(t, w.handle([]byte("not json")))
	assert.False(t, w.handle([]byte(`{"type":"something_else"}`)))
	assert.Empty(t, out.String())
}

type fakeMQTT struct {
	deliveries [][2]string
	subscribed string
}

func (c *fakeMQTT) Start(ctx context.Context) error { return nil }
func (c *fakeMQTT) Disconnect(ctx context.Context)  {}
func (c *fakeMQTT) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	return nil
}
func (c *fakeMQTT) Unsubscribe(ctx context.Context, topic string) error { return nil }
func (c *fakeMQTT) AwaitConnection(ctx context.Context) error           { return nil }
func (c *fakeMQTT) IsConnected() bool                                   { return true }

func (c *fakeMQTT) Subscribe(ctx context.Context, topic string, qos int, handler pkgmqtt.MessageHandler) error {
	c.subscribed = topic
	for _, d := range c.deliveries {
		handler(ctx, d[0], []byte(d[1]))
	}
	return nil
}

func TestWatchMQTT(t *testing.T) {
	snap := model.FleetSnapshot{
		TakenAt:  time.Date(2025, 5, 4, 10, 30, 0, 0, time.UTC),
		Vehicles: []model.Vehicle{{ID: "a", VehicleNumber: "FL-042", Status: model.StatusEnRoute, Speed: 44}},
	}
	update, err := json.Marshal(model.NewVehicleUpdate(snap))
	require.NoError(t, err)
	stats, err := json.Marshal(model.ComputeStatistics(snap, snap.TakenAt))
	require.NoError(t, err)

	fake := &fakeMQTT{deliveries: [][2]string{
		{"fleetsim/v1/fleet/status", `{"online":true}`},
		{"fleetsim/v1/fleet/statistics", string(stats)},
		{"fleetsim/v1/fleet/vehicles", string(update)},
	}}

	w, out := newWatcher(t, &Config{Source: SourceMQTT, Count: 1, MqttOptions: options.NewMqttOptions()})
	w.newMQTTClient = func(cfg *pkgmqtt.ClientConfig) (pkgmqtt.Client, error) {
		assert.True(t, strings.HasPrefix(cfg.ClientID, "fleetsim-watch-"))
		return fake, nil
	}

	require.NoError(t, w.Run(context.Background()))
	assert.Equal(t, "fleetsim/v1/fleet/#", fake.subscribed)
	assert.Contains(t, out.String(), `publisher status: {"online":true}`)
	assert.Contains(t, out.String(), "AVG SPEED")
	assert.Contains(t, out.String(), "44 km/h")
	assert.Contains(t, out.String(), "FL-042")
}

func startHealth(t *testing.T, status healthpb.HealthCheckResponse_ServingStatus) string {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := grpc.NewServer()
	hs := health.NewServer()
	hs.SetServingStatus(grpcserver.ServiceName, status)
	healthpb.RegisterHealthServer(s, hs)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)
	return lis.Addr().String()
}

func TestHealthPreflight(t *testing.T) {
	addr := startHealth(t, healthpb.HealthCheckResponse_SERVING)
	w, out := newWatcher(t, &Config{HealthAddr: addr, HealthTimeout: time.Second})
	require.NoError(t, w.checkHealth(context.Background()))
	assert.Contains(t, out.String(), "is serving")

	addr = startHealth(t, healthpb.HealthCheckResponse_NOT_SERVING)
	w, _ = newWatcher(t, &Config{HealthAddr: addr, HealthTimeout: time.Second})
	assert.ErrorContains(t, w.checkHealth(context.Background()), "NOT_SERVING")
}
