package opclient_test

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	opclient "github.com/10Narratives/opwait/internal/clients/operations"
	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	"github.com/stretchr/testify/require"
	rpcstatus "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

type reply struct {
	op  *longrunningpb.Operation
	err error
}

// fakeOperations replays GetOperation replies and repeats the last one.
type fakeOperations struct {
	longrunningpb.UnimplementedOperationsServer

	mu      sync.Mutex
	replies []reply
	gets    int
	waitReq *longrunningpb.WaitOperationRequest
}

func (f *fakeOperations) GetOperation(_ context.Context, req *longrunningpb.GetOperationRequest) (*longrunningpb.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.replies) == 0 {
		return nil, status.Errorf(codes.NotFound, "operation %s not found", req.GetName())
	}
	r := f.replies[min(f.gets, len(f.replies)-1)]
	f.gets++
	return r.op, r.err
}

func (f *fakeOperations) CancelOperation(_ context.Context, req *longrunningpb.CancelOperationRequest) (*emptypb.Empty, error) {
	return nil, status.Errorf(codes.FailedPrecondition, "operation %s already done", req.GetName())
}

func (f *fakeOperations) WaitOperation(_ context.Context, req *longrunningpb.WaitOperationRequest) (*longrunningpb.Operation, error) {
	f.mu.Lock()
	f.waitReq = req
	f.mu.Unlock()
	return &longrunningpb.Operation{Name: req.GetName()}, nil
}

func (f *fakeOperations) getCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gets
}

func newClient(t *testing.T, srv *fakeOperations) *opclient.Client {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	longrunningpb.RegisterOperationsServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	c, err := opclient.Dial(context.Background(), opclient.DialConfig{Address: "passthrough:///bufnet"},
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func fastPolicy() *opdomain.WaitPolicy {
	return &opdomain.WaitPolicy{
		Timeout:                  5 * time.Second,
		InitialInterval:          time.Millisecond,
		MaxInterval:              5 * time.Millisecond,
		Multiplier:               2,
		TransientRetries:         2,
		TransientInitialInterval: time.Millisecond,
		TransientMaxInterval:     2 * time.Millisecond,
	}
}

func TestDial(t *testing.T) {
	t.Run("error: empty address", func(t *testing.T) {
		_, err := opclient.Dial(context.Background(), opclient.DialConfig{})
		require.Error(t, err)
	})

	t.Run("error: missing ca file", func(t *testing.T) {
		_, err := opclient.Dial(context.Background(), opclient.DialConfig{
			Address: "localhost:1",
			TLS:     true,
			CAFile:  "/nonexistent/ca.pem",
		})
		require.ErrorContains(t, err, "load tls ca")
	})
}

func TestClient_PollerRidesOutTransientErrors(t *testing.T) {
	resp, err := anypb.New(wrapperspb.String("instances/i"))
	require.NoError(t, err)

	srv := &fakeOperations{replies: []reply{
		{err: status.Error(codes.Unavailable, "gateway restarting")},
		{op: &longrunningpb.Operation{Name: "operations/1"}},
		{op: &longrunningpb.Operation{
			Name:   "operations/1",
			Done:   true,
			Result: &longrunningpb.Operation_Response{Response: resp},
		}},
	}}
	c := newClient(t, srv)

	p, err := c.NewPoller()
	require.NoError(t, err)

	got, err := p.Wait(context.Background(), "operations/1", fastPolicy(), "")
	require.NoError(t, err)

	var name wrapperspb.StringValue
	require.NoError(t, got.UnmarshalTo(&name))
	require.Equal(t, "instances/i", name.GetValue())
	require.Equal(t, 3, srv.getCount())
}

func TestClient_PollerReportsFailure(t *testing.T) {
	srv := &fakeOperations{replies: []reply{
		{op: &longrunningpb.Operation{
			Name:   "operations/1",
			Done:   true,
			Result: &longrunningpb.Operation_Error{Error: &rpcstatus.Status{Code: 9, Message: "quota exceeded"}},
		}},
	}}
	c := newClient(t, srv)

	p, err := c.NewPoller()
	require.NoError(t, err)

	_, err = p.Wait(context.Background(), "operations/1", fastPolicy(), "")
	var failed *opdomain.OperationFailedError
	require.ErrorAs(t, err, &failed)
	require.Equal(t, codes.Code(9), failed.Code)
	require.Equal(t, "quota exceeded", failed.Message)
	require.Equal(t, 1, srv.getCount())
}

func TestClient_DomainErrors(t *testing.T) {
	c := newClient(t, &fakeOperations{})
	ctx := context.Background()

	_, err := c.GetOperation(ctx, &opdomain.GetOperationArgs{Name: "operations/404"})
	require.ErrorIs(t, err, opdomain.ErrOperationNotFound)
	require.Equal(t, codes.NotFound, status.Code(err))

	err = c.CancelOperation(ctx, &opdomain.CancelOperationArgs{Name: "operations/1"})
	require.ErrorIs(t, err, opdomain.ErrOperationAlreadyDone)
}

func TestClient_WaitOperationSendsTimeout(t *testing.T) {
	srv := &fakeOperations{}
	c := newClient(t, srv)

	res, err := c.WaitOperation(context.Background(), &opdomain.WaitOperationArgs{Name: "operations/1", Timeout: 3 * time.Second})
	require.NoError(t, err)
	require.False(t, res.Operation.GetDone())

	srv.mu.Lock()
	defer srv.mu.Unlock()
	require.Equal(t, 3*time.Second, srv.waitReq.GetTimeout().AsDuration())
}
