package watch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/autopeer-io/fleetsim/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetsim/pkg/mqtt/topic"
)

type delivery struct {
	topic   string
	payload []byte
}

func (w *Watcher) runMQTT(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := w.cfg.MqttOptions
	cfg := opts.ToClientConfig()
	if cfg.ClientID == "" {
		cfg.ClientID = "fleetsim-watch-" + uuid.NewString()[:8]
	}

	client, err := w.newMQTTClient(cfg)
	if err != nil {
		return err
	}
	if err := client.Start(ctx); err != nil {
		return err
	}
	defer client.Disconnect(context.Background())

	if err := client.AwaitConnection(ctx); err != nil {
		return fmt.Errorf("connect to %s: %w", cfg.BrokerURL, err)
	}

	topics := topic.NewTopicBuilder(opts.TopicRoot)
	deliveries := make(chan delivery, 16)
	err = client.Subscribe(ctx, topics.FleetWildcard(), opts.QoS, func(_ context.Context, name string, payload []byte) {
		select {
		case deliveries <- delivery{topic: name, payload: payload}:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w.out, "Subscribed to %s on %s\n", topics.FleetWildcard(), cfg.BrokerURL)

	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-deliveries:
			switch d.topic {
			case topics.Vehicles():
				if w.handle(d.payload) {
					return nil
				}
			case topics.Statistics():
				var stats model.Statistics
				if err := json.Unmarshal(d.payload, &stats); err != nil {
					w.logger.Warn("Dropping undecodable statistics", "err", err.Error())
					continue
				}
				renderStatistics(w.out, stats)
			case topics.Status():
				fmt.Fprintf(w.out, "publisher status: %s\n", d.payload)
			}
		}
	}
}
