package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/fleetsim/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetsim/internal/pkg/metrics"
	pkgmqtt "github.com/autopeer-io/fleetsim/pkg/mqtt"
	"github.com/autopeer-io/fleetsim/pkg/mqtt/topic"
	"github.com/autopeer-io/fleetsim/pkg/options"
)

var t0 = time.Date(2025, 5, 4, 10, 30, 0, 0, time.UTC)

type published struct {
	topic   string
	qos     int
	retain  bool
	payload []byte
}

type fakeClient struct {
	mu           sync.Mutex
	connected    bool
	failOn       string
	messages     []published
	disconnected bool
}

var _ pkgmqtt.Client = (*fakeClient)(nil)

func (c *fakeClient) Start(ctx context.Context) error { return nil }

func (c *fakeClient) Disconnect(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnected = true
	c.connected = false
}

func (c *fakeClient) Publish(ctx context.Context, topic string, qos int, retain bool, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if topic == c.failOn {
		return errors.New("broker unavailable")
	}
	c.messages = append(c.messages, published{topic, qos, retain, payload})
	return nil
}

func (c *fakeClient) Subscribe(ctx context.Context, topic string, qos int, handler pkgmqtt.MessageHandler) error {
	return nil
}

func (c *fakeClient) Unsubscribe(ctx context.Context, topic string) error { return nil }

func (c *fakeClient) AwaitConnection(ctx context.Context) error { return nil }

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) sent() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.messages...)
}

func newTestNotifier(c *fakeClient) (*MQTTNotifier, *metrics.Metrics) {
	m := metrics.New(metrics.NewRegistry())
	return newMQTTNotifier(c, topic.NewTopicBuilder("fleetsim/v1"), 1, m, clocktesting.NewFakePassiveClock(t0)), m
}

func snapshot() model.FleetSnapshot {
	return model.FleetSnapshot{
		Tick:    3,
		TakenAt: t0,
		Vehicles: []model.Vehicle{
			{ID: "a", Status: model.StatusEnRoute, Speed: 50},
			{ID: "b", Status: model.StatusIdle},
		},
	}
}

func TestNotifyPublishesUpdateAndStatistics(t *testing.T) {
	c := &fakeClient{connected: true}
	n, m := newTestNotifier(c)

	require.NoError(t, n.Notify(context.Background(), snapshot()))

	sent := c.sent()
	require.Len(t, sent, 2)

	assert.Equal(t, "fleetsim/v1/fleet/vehicles", sent[0].topic)
	assert.False(t, sent[0].retain)
	assert.Equal(t, 1, sent[0].qos)
	var msg model.Message
	require.NoError(t, json.Unmarshal(sent[0].payload, &msg))
	assert.Equal(t, model.MessageVehicleUpdate, msg.Type)
	assert.Len(t, msg.Data, 2)

	assert.Equal(t, "fleetsim/v1/fleet/statistics", sent[1].topic)
	assert.True(t, sent[1].retain)
	var stats model.Statistics
	require.NoError(t, json.Unmarshal(sent[1].payload, &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 25, stats.AverageSpeed)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.MQTTConnectivityStatus))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MQTTPublishTotal.WithLabelValues("fleetsim/v1/fleet/vehicles", "success")))
}

func TestNotifyReportsPartialFailure(t *testing.T) {
	c := &fakeClient{connected: true, failOn: "fleetsim/v1/fleet/vehicles"}
	n, m := newTestNotifier(c)

	err := n.Notify(context.Background(), snapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fleetsim/v1/fleet/vehicles")

	sent := c.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "fleetsim/v1/fleet/statistics", sent[0].topic)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MQTTPublishTotal.WithLabelValues("fleetsim/v1/fleet/vehicles", "failed")))
}

func TestStartPublishesPresence(t *testing.T) {
	c := &fakeClient{connected: true}
	n, m := newTestNotifier(c)

	require.NoError(t, n.Start(context.Background()))
	require.Eventually(t, func() bool { return len(c.sent()) == 1 }, time.Second, 5*time.Millisecond)

	msg := c.sent()[0]
	assert.Equal(t, "fleetsim/v1/fleet/status", msg.topic)
	assert.True(t, msg.retain)
	assert.JSONEq(t, `{"online":true,"timestamp":"2025-05-04T10:30:00.000Z"}`, string(msg.payload))
	assert.Eventually(t, func() bool { return testutil.ToFloat64(m.MQTTConnectivityStatus) == 1 }, time.Second, 5*time.Millisecond)
}

func TestCloseMarksOffline(t *testing.T) {
	c := &fakeClient{connected: true}
	n, m := newTestNotifier(c)

	n.Close(context.Background())

	sent := c.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "fleetsim/v1/fleet/status", sent[0].topic)
	assert.JSONEq(t, `{"online":false}`, string(sent[0].payload))
	assert.True(t, c.disconnected)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.MQTTConnectivityStatus))
}

func TestNewMQTTNotifierValidatesBroker(t *testing.T) {
	opts := options.NewMqttOptions()
	opts.Broker = "not a url"
	_, err := NewMQTTNotifier(opts, nil)
	assert.Error(t, err)

	n, err := NewMQTTNotifier(options.NewMqttOptions(), nil)
	require.NoError(t, err)
	assert.Equal(t, "fleetsim/v1/fleet/vehicles", n.topics.Vehicles())
}
