package grpctr_test

import (
	"context"
	"net"
	"testing"
	"time"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	grpctr "github.com/10Narratives/opwait/internal/transport/grpc"
	opapi "github.com/10Narratives/opwait/internal/transport/grpc/api/operations"
	opapimocks "github.com/10Narratives/opwait/internal/transport/grpc/api/operations/mocks"
	healthapi "github.com/10Narratives/opwait/internal/transport/grpc/health"
	"github.com/10Narratives/opwait/internal/transport/grpc/interceptors/logging"
	"github.com/10Narratives/opwait/internal/transport/grpc/interceptors/recovery"
	"github.com/10Narratives/opwait/internal/transport/grpc/interceptors/validator"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func startComponent(t *testing.T, svc opapi.OperationService) *grpc.ClientConn {
	t.Helper()

	log := zap.NewNop()
	lis := bufconn.Listen(1 << 20)
	health, _ := healthapi.NewRegistration(healthapi.OperationsService)

	c := grpctr.NewComponent("bufconn",
		grpctr.WithListener(lis),
		grpctr.WithLogger(log),
		grpctr.WithServerOptions(
			grpc.ChainUnaryInterceptor(
				recovery.NewUnaryServerInterceptor(log),
				logging.NewUnaryServerInterceptor(log),
				validator.NewUnaryServerInterceptor(),
			),
		),
		grpctr.WithServiceRegistration(health, opapi.NewRegistration(svc)),
		grpctr.WithReflection(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Startup(ctx) }()

	conn, err := grpc.NewClient("passthrough:///bufconn",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		require.NoError(t, c.Shutdown(shutdownCtx))
		cancel()
		require.NoError(t, <-done)
	})

	return conn
}

func TestComponent_ServesOperationsAndHealth(t *testing.T) {
	svc := opapimocks.NewOperationService(t)
	conn := startComponent(t, svc)
	ctx := context.Background()

	hc, err := grpc_health_v1.NewHealthClient(conn).Check(ctx, &grpc_health_v1.HealthCheckRequest{
		Service: healthapi.OperationsService,
	})
	require.NoError(t, err)
	require.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, hc.GetStatus())

	svc.EXPECT().
		GetOperation(mock.Anything, &opdomain.GetOperationArgs{Name: "operations/1"}).
		Return(&opdomain.GetOperationResult{Operation: &longrunningpb.Operation{Name: "operations/1", Done: true}}, nil).
		Once()

	op, err := longrunningpb.NewOperationsClient(conn).GetOperation(ctx, &longrunningpb.GetOperationRequest{Name: "operations/1"})
	require.NoError(t, err)
	require.True(t, op.GetDone())
}

func TestComponent_RecoversFromPanics(t *testing.T) {
	svc := opapimocks.NewOperationService(t)
	conn := startComponent(t, svc)

	svc.EXPECT().
		GetOperation(mock.Anything, mock.Anything).
		Panic("boom").
		Once()

	_, err := longrunningpb.NewOperationsClient(conn).GetOperation(context.Background(), &longrunningpb.GetOperationRequest{Name: "operations/1"})
	require.Equal(t, codes.Internal, status.Code(err))
}
