package app

import (
	"fmt"

	genericapiserver "k8s.io/apiserver/pkg/server"

	"github.com/autopeer-io/fleetsim/cmd/fleetsim-watch/app/options"
	"github.com/autopeer-io/fleetsim/pkg/app"
)

const (
	commandName = "fleetsim-watch"
	commandDesc = `fleetsim-watch connects to a running fleetsim server and prints every fleet
update as a table. It follows the WebSocket stream by default, or the MQTT
mirror with --source=mqtt. A ping is sent shortly after connecting to check
the round trip.`
)

func NewApp() *app.App {
	opts := options.NewWatchOptions()
	application := app.NewApp(
		commandName,
		"Follow live fleet updates from a fleetsim server",
		app.WithDescription(commandDesc),
		app.WithOptions(opts),
		app.WithEnvPrefix("FLEETSIM_WATCH"),
		app.WithDefaultValidArgs(),
		app.WithRunFunc(run(opts)),
	)
	return application
}

func run(opts *options.WatchOptions) app.RunFunc {
	return func() error {
		ctx := genericapiserver.SetupSignalContext()

		watcher, err := opts.Config().NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}

		return watcher.Run(ctx)
	}
}
