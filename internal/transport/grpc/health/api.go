package healthapi

import (
	grpctr "github.com/10Narratives/opwait/internal/transport/grpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

const OperationsService = "google.longrunning.Operations"

// NewRegistration reports every named service as serving. The returned
// server lets the caller flip statuses during shutdown.
func NewRegistration(services ...string) (grpctr.ServiceRegistration, *health.Server) {
	healthServer := health.NewServer()
	for _, svc := range services {
		healthServer.SetServingStatus(svc, grpc_health_v1.HealthCheckResponse_SERVING)
	}

	return func(s *grpc.Server) {
		grpc_health_v1.RegisterHealthServer(s, healthServer)
	}, healthServer
}
