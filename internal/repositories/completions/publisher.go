package complrepo

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	"github.com/nats-io/nats.go/jetstream"
	"google.golang.org/protobuf/proto"
)

const (
	SubjectComplete = "operations.complete"
	StreamName      = "OPERATIONS"
)

type Stream interface {
	jetstream.JetStream
}

// Publisher reports terminal operation states as completion events. The
// gateway applies them asynchronously.
type Publisher struct {
	js Stream
}

// NewPublisher makes sure the completion stream exists. Publishing does not
// look it up again; a stream removed later surfaces as a publish error.
func NewPublisher(ctx context.Context, js jetstream.JetStream) (*Publisher, error) {
	if _, err := EnsureStream(ctx, js); err != nil {
		return nil, err
	}
	return &Publisher{js: js}, nil
}

// EnsureStream returns the completion stream, creating it when missing.
func EnsureStream(ctx context.Context, js jetstream.JetStream) (jetstream.Stream, error) {
	stream, err := js.Stream(ctx, StreamName)
	if err == nil {
		return stream, nil
	}
	if !errors.Is(err, jetstream.ErrStreamNotFound) {
		return nil, fmt.Errorf("get stream %s: %w", StreamName, err)
	}

	stream, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Description: "operation completion events",
		Subjects:    []string{SubjectComplete},
	})
	if err != nil {
		return nil, fmt.Errorf("create stream %s: %w", StreamName, err)
	}
	return stream, nil
}

// CompleteOperation publishes the terminal state of args.Name. The returned
// operation is the published event, not the stored record.
func (p *Publisher) CompleteOperation(ctx context.Context, args *opdomain.CompleteOperationArgs) (*opdomain.CompleteOperationResult, error) {
	op, err := completionEvent(args)
	if err != nil {
		return nil, err
	}

	b, err := proto.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("marshal completion: %w", err)
	}

	if _, err := p.js.Publish(ctx, SubjectComplete, b, jetstream.WithMsgID(op.GetName())); err != nil {
		return nil, fmt.Errorf("jetstream publish completion: %w", err)
	}

	return &opdomain.CompleteOperationResult{Operation: op}, nil
}

// DecodeCompletion parses an event payload back into completion args.
func DecodeCompletion(data []byte) (*opdomain.CompleteOperationArgs, error) {
	var op longrunningpb.Operation
	if err := proto.Unmarshal(data, &op); err != nil {
		return nil, fmt.Errorf("%w: unmarshal completion: %v", opdomain.ErrInvalidArgument, err)
	}
	if !op.GetDone() {
		return nil, fmt.Errorf("%w: completion of %q is not done", opdomain.ErrInvalidArgument, op.GetName())
	}

	name, err := opdomain.ParseOperationName(op.GetName())
	if err != nil {
		return nil, err
	}

	args := &opdomain.CompleteOperationArgs{
		Name:     name,
		Response: op.GetResponse(),
		Error:    op.GetError(),
	}
	if (args.Response == nil) == (args.Error == nil) {
		return nil, fmt.Errorf("%w: completion of %q needs exactly one of response or error", opdomain.ErrInvalidArgument, name)
	}

	return args, nil
}

func completionEvent(args *opdomain.CompleteOperationArgs) (*longrunningpb.Operation, error) {
	if args == nil {
		return nil, opdomain.ErrInvalidArgument
	}
	if _, err := opdomain.ParseOperationName(string(args.Name)); err != nil {
		return nil, err
	}

	op := &longrunningpb.Operation{Name: string(args.Name), Done: true}
	switch {
	case args.Response != nil && args.Error == nil:
		op.Result = &longrunningpb.Operation_Response{Response: args.Response}
	case args.Error != nil && args.Response == nil:
		op.Result = &longrunningpb.Operation_Error{Error: args.Error}
	default:
		return nil, fmt.Errorf("%w: exactly one of response or error is required", opdomain.ErrInvalidArgument)
	}

	return op, nil
}
