package opsrv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/longrunning/autogen/longrunningpb"
	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	pollsrv "github.com/10Narratives/opwait/internal/services/poller"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 1000

	DefaultWaitTimeout = time.Minute
	MaxWaitTimeout     = 10 * time.Minute
)

//go:generate mockery --name OperationRepository --output ./mocks --outpkg mocks --with-expecter --filename operation_repository.go
type OperationRepository interface {
	opdomain.OperationCreator
	opdomain.OperationGetter
	opdomain.OperationLister
	opdomain.OperationCanceler
	opdomain.OperationDeleter
	opdomain.OperationCompleter
}

type Service struct {
	repo   OperationRepository
	log    *zap.Logger
	poller *pollsrv.Poller[*longrunningpb.Operation, *longrunningpb.Operation]

	defaultWait time.Duration
	maxWait     time.Duration
	policy      opdomain.WaitPolicy
}

func NewService(repo OperationRepository, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("operation repository is required")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	s := &Service{
		repo:        repo,
		log:         o.log,
		defaultWait: o.defaultWait,
		maxWait:     o.maxWait,
		policy: opdomain.WaitPolicy{
			InitialInterval: o.pollInterval,
			MaxInterval:     o.maxPollInterval,
			Multiplier:      opdomain.DefaultPollMultiplier,
		},
	}

	pollerOpts := append([]pollsrv.Option{pollsrv.WithLogger(o.log)}, o.pollerOpts...)
	poller, err := pollsrv.NewPoller[*longrunningpb.Operation, *longrunningpb.Operation](s.getOperation, classifyStored, pollerOpts...)
	if err != nil {
		return nil, fmt.Errorf("create poller: %w", err)
	}
	s.poller = poller

	return s, nil
}

func (s *Service) CreateOperation(ctx context.Context, args *opdomain.CreateOperationArgs) (*opdomain.CreateOperationResult, error) {
	if args == nil {
		args = &opdomain.CreateOperationArgs{}
	}

	if args.Name == "" {
		uid, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("cannot generate id for new operation: %w", err)
		}
		args.Name = opdomain.OperationName("operations/" + uid.String())
	}

	return s.repo.CreateOperation(ctx, args)
}

func (s *Service) GetOperation(ctx context.Context, args *opdomain.GetOperationArgs) (*opdomain.GetOperationResult, error) {
	if args == nil || args.Name == "" {
		return nil, fmt.Errorf("%w: operation name is required", opdomain.ErrInvalidOperationName)
	}
	if _, err := opdomain.ParseOperationName(string(args.Name)); err != nil {
		return nil, err
	}

	return s.repo.GetOperation(ctx, args)
}

func (s *Service) ListOperations(ctx context.Context, args *opdomain.ListOperationsArgs) (*opdomain.ListOperationsResult, error) {
	if args == nil {
		args = &opdomain.ListOperationsArgs{}
	}
	if args.PageSize < 0 {
		return nil, fmt.Errorf("%w: page size must not be negative", opdomain.ErrInvalidArgument)
	}

	if args.PageSize == 0 {
		args.PageSize = DefaultPageSize
	}
	args.PageSize = min(args.PageSize, MaxPageSize)

	return s.repo.ListOperations(ctx, args)
}

func (s *Service) DeleteOperation(ctx context.Context, args *opdomain.DeleteOperationArgs) error {
	if args == nil || args.Name == "" {
		return fmt.Errorf("%w: operation name is required", opdomain.ErrInvalidOperationName)
	}
	if _, err := opdomain.ParseOperationName(string(args.Name)); err != nil {
		return err
	}

	return s.repo.DeleteOperation(ctx, args)
}

func (s *Service) CancelOperation(ctx context.Context, args *opdomain.CancelOperationArgs) error {
	if args == nil || args.Name == "" {
		return fmt.Errorf("%w: operation name is required", opdomain.ErrInvalidOperationName)
	}
	if _, err := opdomain.ParseOperationName(string(args.Name)); err != nil {
		return err
	}

	if err := s.repo.CancelOperation(ctx, args); err != nil {
		return err
	}

	s.log.Info("operation cancelled", zap.String("operation", string(args.Name)))
	return nil
}

func (s *Service) CompleteOperation(ctx context.Context, args *opdomain.CompleteOperationArgs) (*opdomain.CompleteOperationResult, error) {
	if args == nil || args.Name == "" {
		return nil, fmt.Errorf("%w: operation name is required", opdomain.ErrInvalidOperationName)
	}
	if (args.Response == nil) == (args.Error == nil) {
		return nil, fmt.Errorf("%w: exactly one of response or error is required", opdomain.ErrInvalidArgument)
	}

	return s.repo.CompleteOperation(ctx, args)
}

// WaitOperation blocks until the operation is done or the wait timeout
// elapses. On timeout the latest state is returned without an error, so
// callers must check Done themselves.
func (s *Service) WaitOperation(ctx context.Context, args *opdomain.WaitOperationArgs) (*opdomain.WaitOperationResult, error) {
	if args == nil || args.Name == "" {
		return nil, fmt.Errorf("%w: operation name is required", opdomain.ErrInvalidOperationName)
	}
	if _, err := opdomain.ParseOperationName(string(args.Name)); err != nil {
		return nil, err
	}
	if args.Timeout < 0 {
		return nil, fmt.Errorf("%w: timeout must not be negative", opdomain.ErrInvalidArgument)
	}

	timeout := args.Timeout
	if timeout == 0 {
		timeout = s.defaultWait
	}
	timeout = min(timeout, s.maxWait)

	policy := s.policy
	policy.Timeout = timeout

	op, err := s.poller.Wait(ctx, args.Name, &policy, "")
	switch {
	case err == nil:
		return &opdomain.WaitOperationResult{Operation: op}, nil
	case errors.Is(err, opdomain.ErrWaitTimeout):
		s.log.Debug("wait timed out, returning latest state",
			zap.String("operation", string(args.Name)),
			zap.Duration("timeout", timeout),
		)

		res, err := s.repo.GetOperation(ctx, &opdomain.GetOperationArgs{Name: args.Name})
		if err != nil {
			return nil, err
		}
		return &opdomain.WaitOperationResult{Operation: res.Operation}, nil
	default:
		return nil, err
	}
}

func (s *Service) getOperation(ctx context.Context, name opdomain.OperationName) (*longrunningpb.Operation, error) {
	res, err := s.repo.GetOperation(ctx, &opdomain.GetOperationArgs{Name: name})
	if err != nil {
		return nil, err
	}
	if res == nil || res.Operation == nil {
		return nil, opdomain.ErrOperationNotFound
	}
	return res.Operation, nil
}

// classifyStored treats any done operation as terminal, failed ones
// included: the caller receives the operation and reads its error itself.
func classifyStored(op *longrunningpb.Operation) (opdomain.PollResult[*longrunningpb.Operation], error) {
	if op == nil {
		return opdomain.PollResult[*longrunningpb.Operation]{}, errors.New("operation is nil")
	}
	if !op.GetDone() {
		return opdomain.Pending[*longrunningpb.Operation](op.GetMetadata()), nil
	}
	return opdomain.Done(op), nil
}
