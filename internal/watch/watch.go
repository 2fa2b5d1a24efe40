package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetsim/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetsim/pkg/log"
	pkgmqtt "github.com/autopeer-io/fleetsim/pkg/mqtt"
	"github.com/autopeer-io/fleetsim/pkg/options"
)

// Sources a watcher can follow.
const (
	SourceWebSocket = "ws"
	SourceMQTT      = "mqtt"
)

type Config struct {
	// URL of the fleetsim WebSocket endpoint.
	URL string

	// PingDelay is the wait before the single application ping. Zero skips it.
	PingDelay time.Duration

	// Count stops the watcher after this many fleet messages. Zero runs until cancelled.
	Count int

	// Source is SourceWebSocket or SourceMQTT.
	Source string

	// HealthAddr, when set, is checked over gRPC before watching.
	HealthAddr    string
	HealthTimeout time.Duration

	MqttOptions *options.MqttOptions

	Out io.Writer
}

// Watcher prints the fleet as the server pushes it.
type Watcher struct {
	cfg    *Config
	out    io.Writer
	clock  clock.PassiveClock
	logger log.Logger

	newMQTTClient func(*pkgmqtt.ClientConfig) (pkgmqtt.Client, error)

	received int
}

func (cfg *Config) NewWatcher() (*Watcher, error) {
	switch cfg.Source {
	case SourceWebSocket, SourceMQTT:
	default:
		return nil, fmt.Errorf("unknown source %q, must be %q or %q", cfg.Source, SourceWebSocket, SourceMQTT)
	}

	out := cfg.Out
	if out == nil {
		out = os.Stdout
	}
	return &Watcher{
		cfg:           cfg,
		out:           out,
		clock:         clock.RealClock{},
		logger:        log.WithName("watch"),
		newMQTTClient: pkgmqtt.NewClient,
	}, nil
}

// Run watches until ctx is cancelled, the server goes away or Count
// messages arrived.
func (w *Watcher) Run(ctx context.Context) error {
	if w.cfg.HealthAddr != "" {
		if err := w.checkHealth(ctx); err != nil {
			return err
		}
	}

	if w.cfg.Source == SourceMQTT {
		return w.runMQTT(ctx)
	}
	return w.runWebSocket(ctx)
}

// handle prints one fleet message and reports whether Count was reached.
func (w *Watcher) handle(data []byte) bool {
	var msg model.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		w.logger.Warn("Dropping undecodable message", "err", err.Error(), "bytes", len(data))
		return false
	}

	switch msg.Type {
	case model.MessageInitialData, model.MessageVehicleUpdate:
		fmt.Fprintf(w.out, "\n%s  %s  %d vehicles\n", msg.Timestamp, msg.Type, len(msg.Data))
		if msg.Message != "" {
			fmt.Fprintf(w.out, "%s\n", msg.Message)
		}
		renderVehicles(w.out, msg.Data)
	case model.MessagePong:
		fmt.Fprintf(w.out, "%s  pong, connection is healthy\n", msg.Timestamp)
		return false
	default:
		w.logger.Debug("Ignoring message", "type", msg.Type)
		return false
	}

	w.received++
	return w.cfg.Count > 0 && w.received >= w.cfg.Count
}
