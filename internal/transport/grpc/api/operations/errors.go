package opapi

import (
	"context"
	"errors"

	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/protoadapt"
)

const (
	ErrorDomain           = "opwait.dev"
	OperationResourceType = "google.longrunning.Operation"
)

var (
	errNilRequest       = status.Error(codes.InvalidArgument, "request cannot be nil")
	errMissingResult    = status.Error(codes.Internal, "missing result")
	errMissingOperation = status.Error(codes.Internal, "missing operation in result")
)

type statusRule struct {
	target error
	code   codes.Code
	reason string
}

// First match wins.
var statusRules = []statusRule{
	{opdomain.ErrOperationNotFound, codes.NotFound, "OPERATION_NOT_FOUND"},
	{opdomain.ErrOperationAlreadyExists, codes.AlreadyExists, "OPERATION_ALREADY_EXISTS"},
	{opdomain.ErrOperationAlreadyDone, codes.FailedPrecondition, "OPERATION_ALREADY_DONE"},
	{opdomain.ErrOperationConflict, codes.Aborted, "OPERATION_CONFLICT"},
	{opdomain.ErrInvalidOperationName, codes.InvalidArgument, "INVALID_OPERATION_NAME"},
	{opdomain.ErrInvalidPageToken, codes.InvalidArgument, "INVALID_PAGE_TOKEN"},
	{opdomain.ErrInvalidArgument, codes.InvalidArgument, "INVALID_ARGUMENT"},
}

// toStatusErr maps service errors to gRPC statuses. Mapped domain errors
// carry an ErrorInfo reason and, for lookups, the resource they concern.
func toStatusErr(err error, resource string) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request canceled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "deadline exceeded")
	}

	var failed *opdomain.OperationFailedError
	if errors.As(err, &failed) {
		return failed.GRPCStatus().Err()
	}

	for _, rule := range statusRules {
		if !errors.Is(err, rule.target) {
			continue
		}

		details := []protoadapt.MessageV1{errorInfo(rule.reason, resource)}
		if resource != "" && (rule.code == codes.NotFound || rule.code == codes.AlreadyExists) {
			details = append(details, &errdetails.ResourceInfo{
				ResourceType: OperationResourceType,
				ResourceName: resource,
			})
		}
		return withDetails(status.New(rule.code, err.Error()), details...)
	}

	return status.Error(codes.Internal, err.Error())
}

func badRequest(field string, err error) error {
	return withDetails(status.New(codes.InvalidArgument, err.Error()), &errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{{
			Field:       field,
			Description: err.Error(),
		}},
	})
}

func errorInfo(reason, resource string) *errdetails.ErrorInfo {
	info := &errdetails.ErrorInfo{Reason: reason, Domain: ErrorDomain}
	if resource != "" {
		info.Metadata = map[string]string{"resource": resource}
	}
	return info
}

func withDetails(st *status.Status, details ...protoadapt.MessageV1) error {
	detailed, err := st.WithDetails(details...)
	if err != nil {
		return st.Err()
	}
	return detailed.Err()
}
