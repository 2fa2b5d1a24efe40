package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/fleetsim/cmd/fleetsim-server/app/options"
	"github.com/autopeer-io/fleetsim/pkg/app"
)

const (
	commandName = "fleetsim-server"
	commandDesc = `The fleetsim server simulates a fleet of delivery vehicles around San Francisco
and streams their positions to WebSocket subscribers. A REST API answers
point-in-time queries, and every update can be mirrored to an MQTT broker.`
)

func NewApp() *app.App {
	opts := options.NewServerOptions()
	application := app.NewApp(
		commandName,
		"Launch a fleetsim telemetry server",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithEnvPrefix("FLEETSIM"),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.ServerOptions) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()

		cfg, err := opts.Config()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		hub, err := cfg.NewFleetHub()
		if err != nil {
			return fmt.Errorf("failed to create fleet hub: %w", err)
		}

		return hub.Run(ctx)
	}
}
