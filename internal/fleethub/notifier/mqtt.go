package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetsim/internal/fleethub/core"
	"github.com/autopeer-io/fleetsim/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetsim/internal/pkg/metrics"
	"github.com/autopeer-io/fleetsim/pkg/log"
	pkgmqtt "github.com/autopeer-io/fleetsim/pkg/mqtt"
	"github.com/autopeer-io/fleetsim/pkg/mqtt/topic"
	"github.com/autopeer-io/fleetsim/pkg/options"
)

var _ core.SnapshotNotifier = (*MQTTNotifier)(nil)

// offlinePayload is both the will and the payload published on clean shutdown.
var offlinePayload = []byte(`{"online":false}`)

type presence struct {
	Online    bool            `json:"online"`
	Timestamp model.Timestamp `json:"timestamp"`
}

// MQTTNotifier mirrors every broadcast snapshot onto the broker.
type MQTTNotifier struct {
	client  pkgmqtt.Client
	topics  *topic.TopicBuilder
	qos     int
	clock   clock.PassiveClock
	metrics *metrics.Metrics
	logger  log.Logger
}

func NewMQTTNotifier(opts *options.MqttOptions, m *metrics.Metrics) (*MQTTNotifier, error) {
	topics := topic.NewTopicBuilder(opts.TopicRoot)

	cfg := opts.ToClientConfig()
	if cfg.ClientID == "" {
		cfg.ClientID = "fleetsim-" + uuid.NewString()[:8]
	}
	cfg.WillTopic = topics.Status()
	cfg.WillPayload = offlinePayload
	cfg.WillQoS = 1
	cfg.WillRetain = true

	client, err := pkgmqtt.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	return newMQTTNotifier(client, topics, opts.QoS, m, clock.RealClock{}), nil
}

func newMQTTNotifier(client pkgmqtt.Client, topics *topic.TopicBuilder, qos int, m *metrics.Metrics, c clock.PassiveClock) *MQTTNotifier {
	return &MQTTNotifier{
		client:  client,
		topics:  topics,
		qos:     qos,
		clock:   c,
		metrics: m,
		logger:  log.WithName("notifier"),
	}
}

// Start connects in the background. Once the broker accepts the session a
// retained online marker is published on the status topic.
func (n *MQTTNotifier) Start(ctx context.Context) error {
	if err := n.client.Start(ctx); err != nil {
		return err
	}

	go func() {
		if err := n.client.AwaitConnection(ctx); err != nil {
			return
		}
		n.metrics.SetMQTTConnected(true)
		if err := n.publishPresence(ctx, true); err != nil {
			n.logger.Error(err, "Failed to publish presence")
		}
	}()
	return nil
}

// Notify publishes the vehicle_update message and the statistics of s.
func (n *MQTTNotifier) Notify(ctx context.Context, s model.FleetSnapshot) error {
	n.metrics.SetMQTTConnected(n.client.IsConnected())

	update, err := json.Marshal(model.NewVehicleUpdate(s))
	if err != nil {
		return err
	}
	stats, err := json.Marshal(model.ComputeStatistics(s, s.TakenAt))
	if err != nil {
		return err
	}

	return errors.Join(
		n.publish(ctx, n.topics.Vehicles(), false, update),
		n.publish(ctx, n.topics.Statistics(), true, stats),
	)
}

// Close marks the publisher offline and disconnects.
func (n *MQTTNotifier) Close(ctx context.Context) {
	if n.client.IsConnected() {
		if err := n.client.Publish(ctx, n.topics.Status(), 1, true, offlinePayload); err != nil {
			n.logger.Error(err, "Failed to publish offline marker")
		}
	}
	n.client.Disconnect(ctx)
	n.metrics.SetMQTTConnected(false)
}

func (n *MQTTNotifier) publishPresence(ctx context.Context, online bool) error {
	payload, err := json.Marshal(presence{Online: online, Timestamp: model.NewTimestamp(n.clock.Now())})
	if err != nil {
		return err
	}
	return n.publish(ctx, n.topics.Status(), true, payload)
}

func (n *MQTTNotifier) publish(ctx context.Context, name string, retain bool, payload []byte) error {
	start := time.Now()
	err := n.client.Publish(ctx, name, n.qos, retain, payload)
	n.metrics.ObservePublish(name, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("publish %s: %w", name, err)
	}
	n.logger.Debug("Published", "topic", name, "bytes", len(payload))
	return nil
}
