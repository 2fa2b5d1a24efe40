package watch

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	grpcserver "github.com/autopeer-io/fleetsim/internal/fleethub/server/grpc"
	grpcmw "github.com/autopeer-io/fleetsim/internal/pkg/middleware/grpc"
)

// checkHealth fails unless the server reports SERVING.
func (w *Watcher) checkHealth(ctx context.Context) error {
	conn, err := grpc.NewClient(w.cfg.HealthAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(grpcmw.WithTimeout(w.cfg.HealthTimeout)),
	)
	if err != nil {
		return fmt.Errorf("health client: %w", err)
	}
	defer conn.Close()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: grpcserver.ServiceName})
	if err != nil {
		return fmt.Errorf("health check %s: %w", w.cfg.HealthAddr, err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("server at %s is %s", w.cfg.HealthAddr, resp.GetStatus())
	}

	fmt.Fprintf(w.out, "Server at %s is serving\n", w.cfg.HealthAddr)
	return nil
}
