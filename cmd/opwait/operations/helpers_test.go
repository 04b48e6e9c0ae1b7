package opcmd_test

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	opcmd "github.com/10Narratives/opwait/cmd/opwait/operations"
	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	pollsrv "github.com/10Narratives/opwait/internal/services/poller"
	"github.com/stretchr/testify/require"
	rpcstatus "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) recordedSleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// fakeClient replays a script of states per operation and repeats the last
// one. Unknown names are reported as not found.
type fakeClient struct {
	mu        sync.Mutex
	scripts   map[string][]*longrunningpb.Operation
	reads     map[string]int
	onCancel  func(name string)
	getErr    error
	listArgs  *opdomain.ListOperationsArgs
	cancelled []string
	deleted   []string
	closed    bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		scripts: map[string][]*longrunningpb.Operation{},
		reads:   map[string]int{},
	}
}

func (c *fakeClient) script(name string, states ...*longrunningpb.Operation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range states {
		s.Name = name
	}
	c.scripts[name] = states
	c.reads[name] = 0
}

func (c *fakeClient) read(name string) (*longrunningpb.Operation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	states, ok := c.scripts[name]
	if !ok {
		return nil, false
	}
	op := states[min(c.reads[name], len(states)-1)]
	c.reads[name]++
	return proto.Clone(op).(*longrunningpb.Operation), true
}

func (c *fakeClient) readCount(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads[name]
}

func (c *fakeClient) GetOperation(_ context.Context, args *opdomain.GetOperationArgs) (*opdomain.GetOperationResult, error) {
	if c.getErr != nil {
		return nil, c.getErr
	}
	op, ok := c.read(string(args.Name))
	if !ok {
		return nil, opdomain.ErrOperationNotFound
	}
	return &opdomain.GetOperationResult{Operation: op}, nil
}

func (c *fakeClient) ListOperations(_ context.Context, args *opdomain.ListOperationsArgs) (*opdomain.ListOperationsResult, error) {
	c.mu.Lock()
	c.listArgs = args
	c.mu.Unlock()

	return &opdomain.ListOperationsResult{
		Operations: []*longrunningpb.Operation{
			{Name: "operations/a", Done: true},
			{Name: "operations/b"},
		},
		NextPageToken: "operations/b",
	}, nil
}

func (c *fakeClient) CancelOperation(_ context.Context, args *opdomain.CancelOperationArgs) error {
	c.mu.Lock()
	_, ok := c.scripts[string(args.Name)]
	c.cancelled = append(c.cancelled, string(args.Name))
	onCancel := c.onCancel
	c.mu.Unlock()

	if !ok {
		return opdomain.ErrOperationNotFound
	}
	if onCancel != nil {
		onCancel(string(args.Name))
	}
	return nil
}

func (c *fakeClient) DeleteOperation(_ context.Context, args *opdomain.DeleteOperationArgs) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.scripts[string(args.Name)]; !ok {
		return opdomain.ErrOperationNotFound
	}
	delete(c.scripts, string(args.Name))
	c.deleted = append(c.deleted, string(args.Name))
	return nil
}

func (c *fakeClient) Getter() pollsrv.GetFunc[*longrunningpb.Operation] {
	return func(_ context.Context, name opdomain.OperationName) (*longrunningpb.Operation, error) {
		op, ok := c.read(string(name))
		if !ok {
			return nil, status.Errorf(codes.NotFound, "operation %s not found", name)
		}
		return op, nil
	}
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func pendingOp() *longrunningpb.Operation {
	return &longrunningpb.Operation{}
}

func doneOp(t *testing.T, resp proto.Message) *longrunningpb.Operation {
	t.Helper()
	a, err := anypb.New(resp)
	require.NoError(t, err)
	return &longrunningpb.Operation{Done: true, Result: &longrunningpb.Operation_Response{Response: a}}
}

func failedOp(code codes.Code, message string) *longrunningpb.Operation {
	return &longrunningpb.Operation{
		Done:   true,
		Result: &longrunningpb.Operation_Error{Error: &rpcstatus.Status{Code: int32(code), Message: message}},
	}
}

func testSettings() *opcmd.Settings {
	return &opcmd.Settings{
		Gateway:   "127.0.0.1:55055",
		Format:    opcmd.FormatYAML,
		Verbosity: "none",
		Wait: opcmd.WaitSettings{
			Timeout:          30 * time.Minute,
			PollInterval:     time.Second,
			MaxPollInterval:  10 * time.Second,
			Multiplier:       1.5,
			TransientRetries: 3,
		},
	}
}

type result struct {
	stdout   string
	stderr   string
	err      error
	connects int
}

func execute(ctx context.Context, client *fakeClient, clock *fakeClock, args ...string) result {
	var res result

	rt := opcmd.NewRuntime(testSettings())
	rt.Clock = clock
	rt.Connect = func(context.Context, *opcmd.Settings) (opcmd.Client, error) {
		res.connects++
		return client, nil
	}

	var stdout, stderr bytes.Buffer
	cmd := opcmd.NewRootCmd(rt)
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	res.err = cmd.ExecuteContext(ctx)
	res.stdout = stdout.String()
	res.stderr = stderr.String()

	return res
}
