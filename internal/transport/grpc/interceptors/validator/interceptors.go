package validator

import (
	"context"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	v "github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/validator"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NewUnaryServerInterceptor rejects operation requests with malformed names
// before any handler runs, then applies the Validate methods of messages
// that define one.
func NewUnaryServerInterceptor(opts ...v.Option) grpc.UnaryServerInterceptor {
	validate := v.UnaryServerInterceptor(opts...)

	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if err := validateOperationName(req); err != nil {
			return nil, err
		}
		return validate(ctx, req, info, handler)
	}
}

func NewStreamServerInterceptor(opts ...v.Option) grpc.StreamServerInterceptor {
	return v.StreamServerInterceptor(opts...)
}

func validateOperationName(req any) error {
	var name string
	switch r := req.(type) {
	case *longrunningpb.GetOperationRequest:
		name = r.GetName()
	case *longrunningpb.DeleteOperationRequest:
		name = r.GetName()
	case *longrunningpb.CancelOperationRequest:
		name = r.GetName()
	case *longrunningpb.WaitOperationRequest:
		name = r.GetName()
	default:
		return nil
	}

	if _, err := opdomain.ParseOperationName(name); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}
