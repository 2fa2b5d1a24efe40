package fleethub

import (
	"context"
	"time"

	"github.com/autopeer-io/fleetsim/internal/fleethub/notifier"
	"github.com/autopeer-io/fleetsim/internal/fleethub/scheduler"
	"github.com/autopeer-io/fleetsim/internal/fleethub/server"
	grpcserver "github.com/autopeer-io/fleetsim/internal/fleethub/server/grpc"
	"github.com/autopeer-io/fleetsim/pkg/log"
)

// closeTimeout bounds the offline marker publish on exit.
const closeTimeout = 3 * time.Second

// FleetHub owns the simulation loop and every server exposing it.
type FleetHub struct {
	scheduler *scheduler.Scheduler
	manager   *server.Manager
	notifier  *notifier.MQTTNotifier
	health    *grpcserver.Server
}

// Run starts the simulation and serves until ctx is cancelled or a server
// fails. Scheduled ticks stop before the servers drain.
func (h *FleetHub) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if h.notifier != nil {
		if err := h.notifier.Start(ctx); err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
			defer cancel()
			h.notifier.Close(closeCtx)
		}()
	}

	if err := h.scheduler.Start(ctx); err != nil {
		return err
	}
	defer h.scheduler.Stop()

	if h.health != nil {
		go func() {
			<-h.scheduler.Done()
			h.health.SetServing(false)
		}()
	}

	log.Info("Fleet hub running")
	err := h.manager.Start(ctx)
	log.Info("Fleet hub stopped")
	return err
}
