package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetsim/internal/fleethub/core/model"
	"github.com/autopeer-io/fleetsim/internal/fleethub/scheduler"
	"github.com/autopeer-io/fleetsim/internal/pkg/metrics"
	"github.com/autopeer-io/fleetsim/pkg/log"
	"github.com/autopeer-io/fleetsim/pkg/options"
)

// FleetReader is the read side of the simulator used by the query routes.
type FleetReader interface {
	Snapshot() model.FleetSnapshot
	Vehicle(id string) (model.Vehicle, bool)
}

// StreamHandler serves WebSocket subscribers and drains them on shutdown.
type StreamHandler interface {
	http.Handler
	Shutdown(ctx context.Context) error
}

// Deps collects what the HTTP server serves.
type Deps struct {
	Fleet          FleetReader
	Stream         StreamHandler
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	Clock          clock.PassiveClock
	UpdateInterval time.Duration
	Logger         log.Logger
}

type Server struct {
	server  *http.Server
	options *options.HttpOptions

	fleet          FleetReader
	stream         StreamHandler
	metrics        *metrics.Metrics
	gatherer       prometheus.Gatherer
	clock          clock.PassiveClock
	updateInterval time.Duration
	logger         log.Logger

	ready atomic.Bool
}

func NewServer(opts *options.HttpOptions, deps Deps) *Server {
	s := &Server{
		options:        opts,
		fleet:          deps.Fleet,
		stream:         deps.Stream,
		metrics:        deps.Metrics,
		gatherer:       deps.Gatherer,
		clock:          deps.Clock,
		updateInterval: deps.UpdateInterval,
		logger:         deps.Logger,
	}
	if s.clock == nil {
		s.clock = clock.RealClock{}
	}
	if s.updateInterval <= 0 {
		s.updateInterval = scheduler.DefaultInterval
	}
	if s.logger == nil {
		s.logger = log.WithName("http")
	}

	s.server = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: opts.Timeout,
	}
	return s
}

// Start serves until ctx is cancelled, then closes subscribers with a
// going-away frame and drains in-flight requests within ShutdownTimeout.
func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen(s.options.Network, s.options.Addr)
	if err != nil {
		return err
	}

	s.logger.Info("Starting HTTP Server", "addr", lis.Addr().String())
	s.ready.Store(true)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.ready.Store(false)
		return err
	case <-ctx.Done():
		return s.shutdown()
	}
}

func (s *Server) shutdown() error {
	s.ready.Store(false)
	s.logger.Info("Shutting down HTTP Server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
	defer cancel()

	var errs []error
	if s.stream != nil {
		if err := s.stream.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
