package fleethub

import (
	"fmt"

	"github.com/autopeer-io/fleetsim/internal/fleethub/notifier"
	"github.com/autopeer-io/fleetsim/internal/fleethub/registry"
	"github.com/autopeer-io/fleetsim/internal/fleethub/scheduler"
	"github.com/autopeer-io/fleetsim/internal/fleethub/server"
	grpcserver "github.com/autopeer-io/fleetsim/internal/fleethub/server/grpc"
	httpserver "github.com/autopeer-io/fleetsim/internal/fleethub/server/http"
	"github.com/autopeer-io/fleetsim/internal/fleethub/server/ws"
	"github.com/autopeer-io/fleetsim/internal/fleethub/simulator"
	"github.com/autopeer-io/fleetsim/internal/pkg/metrics"
	"github.com/autopeer-io/fleetsim/pkg/log"
	"github.com/autopeer-io/fleetsim/pkg/options"
)

type Config struct {
	HttpOptions      *options.HttpOptions
	GrpcOptions      *options.GrpcOptions
	MqttOptions      *options.MqttOptions
	SimulatorOptions *options.SimulatorOptions
	WebSocketOptions *options.WebSocketOptions
}

func (cfg *Config) NewFleetHub() (*FleetHub, error) {
	// 1. Observability: a private registry served on /metrics
	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	// 2. Core domain: the simulated fleet and its subscribers
	simOpts := cfg.SimulatorOptions
	sim := simulator.New(
		simulator.WithFleetSize(simOpts.FleetSize),
		simulator.WithSeed(simOpts.Seed),
		simulator.WithLogger(log.WithName("simulator")),
	)
	subs := registry.New(
		registry.WithMetrics(m),
		registry.WithLogger(log.WithName("registry")),
	)

	// 3. Infrastructure: Notifier (Secondary Adapter), only when enabled
	schedOpts := []scheduler.Option{
		scheduler.WithInterval(simOpts.Interval),
		scheduler.WithInitialDelay(simOpts.InitialDelay),
		scheduler.WithDevInterval(simOpts.DevInterval),
		scheduler.WithMetrics(m),
		scheduler.WithLogger(log.WithName("scheduler")),
	}
	var mqttNotifier *notifier.MQTTNotifier
	if cfg.MqttOptions.Enabled {
		n, err := notifier.NewMQTTNotifier(cfg.MqttOptions, m)
		if err != nil {
			return nil, fmt.Errorf("failed to init notifier: %w", err)
		}
		mqttNotifier = n
		schedOpts = append(schedOpts, scheduler.WithNotifier(n))
	}

	// 4. The tick driver
	sched := scheduler.New(sim, subs, schedOpts...)

	// 5. Ingress Servers (Primary Adapters)
	stream := ws.NewHandler(sim, subs, cfg.WebSocketOptions,
		ws.WithUpdateInterval(simOpts.Interval),
		ws.WithLogger(log.WithName("ws")),
	)
	httpSrv := httpserver.NewServer(cfg.HttpOptions, httpserver.Deps{
		Fleet:          sim,
		Stream:         stream,
		Metrics:        m,
		Gatherer:       reg,
		UpdateInterval: simOpts.Interval,
		Logger:         log.WithName("http"),
	})

	servers := []server.Server{httpSrv}
	var grpcSrv *grpcserver.Server
	if cfg.GrpcOptions.Addr != "" {
		grpcSrv = grpcserver.NewServer(cfg.GrpcOptions)
		servers = append(servers, grpcSrv)
	}

	return &FleetHub{
		scheduler: sched,
		manager:   server.NewManager(servers...),
		notifier:  mqttNotifier,
		health:    grpcSrv,
	}, nil
}
