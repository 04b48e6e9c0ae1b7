package opapi

import (
	"context"
	"time"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	grpctr "github.com/10Narratives/opwait/internal/transport/grpc"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
)

//go:generate mockery --name OperationService --output ./mocks --outpkg mocks --with-expecter --filename operation_service.go
type OperationService interface {
	opdomain.OperationGetter
	opdomain.OperationLister
	opdomain.OperationWaiter
	opdomain.OperationCanceler
	opdomain.OperationDeleter
}

// Server exposes the operation store as google.longrunning.Operations.
type Server struct {
	longrunningpb.UnimplementedOperationsServer
	operations OperationService
}

func NewServer(operations OperationService) *Server {
	return &Server{operations: operations}
}

func NewRegistration(operations OperationService) grpctr.ServiceRegistration {
	return func(s *grpc.Server) {
		longrunningpb.RegisterOperationsServer(s, NewServer(operations))
	}
}

func (s *Server) ListOperations(ctx context.Context, req *longrunningpb.ListOperationsRequest) (*longrunningpb.ListOperationsResponse, error) {
	if req == nil {
		return nil, errNilRequest
	}

	res, err := s.operations.ListOperations(ctx, &opdomain.ListOperationsArgs{
		Name:                 req.GetName(),
		Filter:               req.GetFilter(),
		PageSize:             req.GetPageSize(),
		PageToken:            req.GetPageToken(),
		ReturnPartialSuccess: req.GetReturnPartialSuccess(),
	})
	if err != nil {
		return nil, toStatusErr(err, req.GetName())
	}
	if res == nil {
		return nil, errMissingResult
	}

	return &longrunningpb.ListOperationsResponse{
		Operations:    res.Operations,
		NextPageToken: res.NextPageToken,
		Unreachable:   res.Unreachable,
	}, nil
}

func (s *Server) GetOperation(ctx context.Context, req *longrunningpb.GetOperationRequest) (*longrunningpb.Operation, error) {
	name, err := requestName(req)
	if err != nil {
		return nil, err
	}

	res, err := s.operations.GetOperation(ctx, &opdomain.GetOperationArgs{Name: name})
	if err != nil {
		return nil, toStatusErr(err, string(name))
	}
	if res == nil || res.Operation == nil {
		return nil, errMissingOperation
	}
	return res.Operation, nil
}

func (s *Server) DeleteOperation(ctx context.Context, req *longrunningpb.DeleteOperationRequest) (*emptypb.Empty, error) {
	name, err := requestName(req)
	if err != nil {
		return nil, err
	}

	if err := s.operations.DeleteOperation(ctx, &opdomain.DeleteOperationArgs{Name: name}); err != nil {
		return nil, toStatusErr(err, string(name))
	}
	return &emptypb.Empty{}, nil
}

// CancelOperation finishes a pending operation with code CANCELLED.
// Operations already done report FAILED_PRECONDITION.
func (s *Server) CancelOperation(ctx context.Context, req *longrunningpb.CancelOperationRequest) (*emptypb.Empty, error) {
	name, err := requestName(req)
	if err != nil {
		return nil, err
	}

	if err := s.operations.CancelOperation(ctx, &opdomain.CancelOperationArgs{Name: name}); err != nil {
		return nil, toStatusErr(err, string(name))
	}
	return &emptypb.Empty{}, nil
}

// WaitOperation returns the latest state when the server-side timeout
// elapses first; callers must inspect Done.
func (s *Server) WaitOperation(ctx context.Context, req *longrunningpb.WaitOperationRequest) (*longrunningpb.Operation, error) {
	name, err := requestName(req)
	if err != nil {
		return nil, err
	}

	timeout, err := waitTimeout(req.GetTimeout())
	if err != nil {
		return nil, err
	}

	res, err := s.operations.WaitOperation(ctx, &opdomain.WaitOperationArgs{Name: name, Timeout: timeout})
	if err != nil {
		return nil, toStatusErr(err, string(name))
	}
	if res == nil || res.Operation == nil {
		return nil, errMissingOperation
	}
	return res.Operation, nil
}

type namedRequest interface {
	GetName() string
}

// requestName parses the operation name of req. Nil requests have an empty
// name and are rejected with it.
func requestName(req namedRequest) (opdomain.OperationName, error) {
	name, err := opdomain.ParseOperationName(req.GetName())
	if err != nil {
		return "", badRequest("name", err)
	}
	return name, nil
}

// zero means the server default
func waitTimeout(d *durationpb.Duration) (time.Duration, error) {
	if d == nil {
		return 0, nil
	}
	if err := d.CheckValid(); err != nil {
		return 0, badRequest("timeout", err)
	}
	return d.AsDuration(), nil
}
