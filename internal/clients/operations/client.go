package opclient

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	pollsrv "github.com/10Narratives/opwait/internal/services/poller"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"
)

type DialConfig struct {
	Address string
	TLS     bool
	// CAFile is a PEM bundle; empty means system roots.
	CAFile string
}

// Client adapts the google.longrunning Operations API to the domain
// interfaces. It is safe for concurrent use.
type Client struct {
	ops  longrunningpb.OperationsClient
	conn *grpc.ClientConn
}

func Dial(ctx context.Context, cfg DialConfig, opts ...grpc.DialOption) (*Client, error) {
	if cfg.Address == "" {
		return nil, errors.New("gateway address is empty")
	}

	creds := insecure.NewCredentials()
	if cfg.TLS {
		if cfg.CAFile != "" {
			var err error
			creds, err = credentials.NewClientTLSFromFile(cfg.CAFile, "")
			if err != nil {
				return nil, fmt.Errorf("load tls ca %s: %w", cfg.CAFile, err)
			}
		} else {
			creds = credentials.NewClientTLSFromCert(nil, "")
		}
	}

	dialOpts := append([]grpc.DialOption{grpc.WithTransportCredentials(creds)}, opts...)

	conn, err := grpc.NewClient(cfg.Address, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("dial gateway %s: %w", cfg.Address, err)
	}
	if err := ctx.Err(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &Client{ops: longrunningpb.NewOperationsClient(conn), conn: conn}, nil
}

func NewClient(ops longrunningpb.OperationsClient) *Client {
	return &Client{ops: ops}
}

func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Getter reads raw operation status for the poller.
func (c *Client) Getter() pollsrv.GetFunc[*longrunningpb.Operation] {
	return func(ctx context.Context, name opdomain.OperationName) (*longrunningpb.Operation, error) {
		return c.ops.GetOperation(ctx, &longrunningpb.GetOperationRequest{Name: string(name)})
	}
}

// NewPoller returns a poller that resolves operations to their packed
// response, nil for empty responses.
func (c *Client) NewPoller(opts ...pollsrv.Option) (*pollsrv.Poller[*longrunningpb.Operation, *anypb.Any], error) {
	return pollsrv.NewPoller[*longrunningpb.Operation, *anypb.Any](c.Getter(), pollsrv.OperationClassifier, opts...)
}

func (c *Client) GetOperation(ctx context.Context, args *opdomain.GetOperationArgs) (*opdomain.GetOperationResult, error) {
	if args == nil {
		return nil, opdomain.ErrInvalidOperationName
	}

	op, err := c.ops.GetOperation(ctx, &longrunningpb.GetOperationRequest{Name: string(args.Name)})
	if err != nil {
		return nil, fromStatusErr(err)
	}

	return &opdomain.GetOperationResult{Operation: op}, nil
}

func (c *Client) ListOperations(ctx context.Context, args *opdomain.ListOperationsArgs) (*opdomain.ListOperationsResult, error) {
	if args == nil {
		args = &opdomain.ListOperationsArgs{}
	}

	resp, err := c.ops.ListOperations(ctx, &longrunningpb.ListOperationsRequest{
		Name:                 args.Name,
		Filter:               args.Filter,
		PageSize:             args.PageSize,
		PageToken:            args.PageToken,
		ReturnPartialSuccess: args.ReturnPartialSuccess,
	})
	if err != nil {
		return nil, fromStatusErr(err)
	}

	return &opdomain.ListOperationsResult{
		Operations:    resp.GetOperations(),
		NextPageToken: resp.GetNextPageToken(),
		Unreachable:   resp.GetUnreachable(),
	}, nil
}

func (c *Client) CancelOperation(ctx context.Context, args *opdomain.CancelOperationArgs) error {
	if args == nil {
		return opdomain.ErrInvalidOperationName
	}

	_, err := c.ops.CancelOperation(ctx, &longrunningpb.CancelOperationRequest{Name: string(args.Name)})
	return fromStatusErr(err)
}

func (c *Client) DeleteOperation(ctx context.Context, args *opdomain.DeleteOperationArgs) error {
	if args == nil {
		return opdomain.ErrInvalidOperationName
	}

	_, err := c.ops.DeleteOperation(ctx, &longrunningpb.DeleteOperationRequest{Name: string(args.Name)})
	return fromStatusErr(err)
}

// WaitOperation delegates the wait to the server. The returned operation
// may still be pending when the server-side timeout elapses.
func (c *Client) WaitOperation(ctx context.Context, args *opdomain.WaitOperationArgs) (*opdomain.WaitOperationResult, error) {
	if args == nil {
		return nil, opdomain.ErrInvalidOperationName
	}

	req := &longrunningpb.WaitOperationRequest{Name: string(args.Name)}
	if args.Timeout > 0 {
		req.Timeout = durationpb.New(args.Timeout)
	}

	op, err := c.ops.WaitOperation(ctx, req)
	if err != nil {
		return nil, fromStatusErr(err)
	}

	return &opdomain.WaitOperationResult{Operation: op}, nil
}

// fromStatusErr maps gateway status codes back onto domain sentinels while
// keeping the original status reachable through errors.As.
func fromStatusErr(err error) error {
	if err == nil {
		return nil
	}

	var sentinel error
	switch status.Code(err) {
	case codes.NotFound:
		sentinel = opdomain.ErrOperationNotFound
	case codes.AlreadyExists:
		sentinel = opdomain.ErrOperationAlreadyExists
	case codes.FailedPrecondition:
		sentinel = opdomain.ErrOperationAlreadyDone
	case codes.InvalidArgument:
		sentinel = opdomain.ErrInvalidArgument
	default:
		return err
	}

	return fmt.Errorf("%w: %w", sentinel, err)
}
