package pollsrv

import (
	"errors"
	"fmt"
	"slices"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/emptypb"
)

var errNilOperation = errors.New("operation is nil")

// OperationClassifier classifies google.longrunning.Operation by its done
// flag and result oneof. An empty or google.protobuf.Empty response is a
// result without resource.
func OperationClassifier(op *longrunningpb.Operation) (opdomain.PollResult[*anypb.Any], error) {
	if op == nil {
		return opdomain.PollResult[*anypb.Any]{}, errNilOperation
	}
	if !op.GetDone() {
		return opdomain.Pending[*anypb.Any](op.GetMetadata()), nil
	}

	switch r := op.GetResult().(type) {
	case *longrunningpb.Operation_Error:
		return opdomain.Failed[*anypb.Any](opdomain.NewOperationFailedError(opdomain.OperationName(op.GetName()), r.Error)), nil
	case *longrunningpb.Operation_Response:
		if r.Response == nil || r.Response.MessageIs(&emptypb.Empty{}) {
			return opdomain.DoneEmpty[*anypb.Any](), nil
		}
		return opdomain.Done(r.Response), nil
	default:
		return opdomain.DoneEmpty[*anypb.Any](), nil
	}
}

// TypedOperationClassifier is OperationClassifier with the response unpacked
// into M. A response of another type is a classification error.
func TypedOperationClassifier[M proto.Message]() Classifier[*longrunningpb.Operation, M] {
	return func(op *longrunningpb.Operation) (opdomain.PollResult[M], error) {
		res, err := OperationClassifier(op)
		if err != nil {
			return opdomain.PollResult[M]{}, err
		}

		switch res.State {
		case opdomain.PollStatePending:
			return opdomain.Pending[M](res.Metadata), nil
		case opdomain.PollStateFailed:
			return opdomain.Failed[M](res.Err), nil
		}

		if !res.HasResource() {
			return opdomain.DoneEmpty[M](), nil
		}

		msg, err := res.Resource.UnmarshalNew()
		if err != nil {
			return opdomain.PollResult[M]{}, fmt.Errorf("unpack response of %s: %w", op.GetName(), err)
		}
		typed, ok := msg.(M)
		if !ok {
			return opdomain.PollResult[M]{}, fmt.Errorf("unexpected response type %s in %s", res.Resource.GetTypeUrl(), op.GetName())
		}
		return opdomain.Done(typed), nil
	}
}

// StateRules describe resources that report progress through an enum-like
// state field instead of a done flag.
type StateRules[S any, R any, E comparable] struct {
	State     func(S) E
	Succeeded []E
	Failed    []E

	// Resource extracts the payload of a succeeded status; nil means none.
	Resource func(S) R
	// Failure describes a failed status; nil yields a generic failure.
	Failure func(S) *opdomain.OperationFailedError
	// Metadata is reported with pending statuses.
	Metadata func(S) any
}

// StateClassifier builds a Classifier from rules. States listed in neither
// Succeeded nor Failed are pending.
func StateClassifier[S any, R any, E comparable](rules StateRules[S, R, E]) Classifier[S, R] {
	return func(raw S) (opdomain.PollResult[R], error) {
		if rules.State == nil {
			return opdomain.PollResult[R]{}, errors.New("state extractor is required")
		}

		state := rules.State(raw)
		switch {
		case slices.Contains(rules.Succeeded, state):
			if rules.Resource == nil {
				return opdomain.DoneEmpty[R](), nil
			}
			return opdomain.Done(rules.Resource(raw)), nil
		case slices.Contains(rules.Failed, state):
			if rules.Failure == nil {
				return opdomain.Failed[R](&opdomain.OperationFailedError{
					Code:    codes.Unknown,
					Message: fmt.Sprintf("resource reached state %v", state),
				}), nil
			}
			return opdomain.Failed[R](rules.Failure(raw)), nil
		default:
			var metadata any
			if rules.Metadata != nil {
				metadata = rules.Metadata(raw)
			}
			return opdomain.Pending[R](metadata), nil
		}
	}
}
