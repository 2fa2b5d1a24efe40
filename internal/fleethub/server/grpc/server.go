package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/autopeer-io/fleetsim/pkg/log"
	"github.com/autopeer-io/fleetsim/pkg/options"
)

// ServiceName is the health service key reported alongside the overall ("") status.
const ServiceName = "fleetsim.FleetHub"

type Server struct {
	server  *grpc.Server
	health  *health.Server
	options *options.GrpcOptions
	logger  log.Logger
}

func NewServer(opts *options.GrpcOptions) *Server {
	s := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s) // Enable grpc_cli support

	srv := &Server{
		server:  s,
		health:  hs,
		options: opts,
		logger:  log.WithName("grpc"),
	}
	srv.SetServing(false)
	return srv
}

// SetServing flips both the overall and the fleetsim service status.
func (s *Server) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

func (s *Server) Start(ctx context.Context) error {
	lis, err := net.Listen(s.options.Network, s.options.Addr)
	if err != nil {
		return err
	}

	s.logger.Info("Starting gRPC Server", "addr", lis.Addr().String())
	return s.serve(ctx, lis)
}

func (s *Server) serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(lis); err != nil {
			errCh <- err
		}
	}()
	s.SetServing(true)

	select {
	case err := <-errCh:
		s.SetServing(false)
		return err
	case <-ctx.Done():
		// Shutdown marks every service NOT_SERVING so watchers see the drain.
		s.health.Shutdown()
		s.server.GracefulStop()
		return nil
	}
}
