package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	pollsrv "github.com/10Narratives/opwait/internal/services/poller"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	rpcstatus "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/structpb"
)

type producerConfig struct {
	Count        int
	Parent       string
	MinTime      time.Duration
	MaxTime      time.Duration
	Wait         time.Duration
	FailFraction float64
}

func (c producerConfig) validate() error {
	switch {
	case c.MinTime < 0 || c.MaxTime < c.MinTime:
		return fmt.Errorf("min-time (%v) must be in [0, max-time (%v)]", c.MinTime, c.MaxTime)
	case c.FailFraction < 0 || c.FailFraction > 1:
		return fmt.Errorf("fail-fraction (%g) must be in [0, 1]", c.FailFraction)
	case c.Wait < 0:
		return fmt.Errorf("wait (%v) must not be negative", c.Wait)
	}
	return nil
}

// producer creates pending operations and finishes each one after a random
// duration in the background.
type producer struct {
	cfg       producerConfig
	creator   opdomain.OperationCreator
	completer opdomain.OperationCompleter
	clock     pollsrv.Clock
	log       *zap.Logger
	rand      *rand.Rand
}

func newProducer(
	cfg producerConfig,
	creator opdomain.OperationCreator,
	completer opdomain.OperationCompleter,
	clock pollsrv.Clock,
	log *zap.Logger,
	seed uint64,
) (*producer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &producer{
		cfg:       cfg,
		creator:   creator,
		completer: completer,
		clock:     clock,
		log:       log,
		rand:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}, nil
}

// Run produces until Count operations exist (forever when Count is 0) or
// ctx is done, then waits for every pending completion.
func (p *producer) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	for sent := 0; p.cfg.Count == 0 || sent < p.cfg.Count; sent++ {
		if gctx.Err() != nil {
			break
		}

		name, err := p.create(gctx, sent)
		if err != nil {
			p.log.Warn("create operation failed", zap.Error(err))
		} else {
			execTime := p.executionTime()
			fail := p.rand.Float64() < p.cfg.FailFraction

			p.log.Info("operation created",
				zap.Stringer("operation", name),
				zap.Duration("execution_time", execTime),
				zap.Bool("fail", fail),
			)

			g.Go(func() error {
				return p.complete(gctx, name, execTime, fail)
			})
		}

		if err := p.clock.Sleep(gctx, p.cfg.Wait); err != nil {
			break
		}
	}

	err := g.Wait()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (p *producer) create(ctx context.Context, seq int) (opdomain.OperationName, error) {
	name := opdomain.OperationName(fmt.Sprintf("operations/gen-%d-%d", p.clock.Now().UnixNano(), seq))
	if p.cfg.Parent != "" {
		name = opdomain.OperationName(p.cfg.Parent + "/" + string(name))
	}

	meta, err := anypb.New(&structpb.Struct{Fields: map[string]*structpb.Value{
		"sequence": structpb.NewNumberValue(float64(seq)),
		"producer": structpb.NewStringValue("opwait-generator"),
	}})
	if err != nil {
		return "", err
	}

	if _, err := p.creator.CreateOperation(ctx, &opdomain.CreateOperationArgs{Name: name, Metadata: meta}); err != nil {
		return "", err
	}
	return name, nil
}

func (p *producer) complete(ctx context.Context, name opdomain.OperationName, execTime time.Duration, fail bool) error {
	if err := p.clock.Sleep(ctx, execTime); err != nil {
		return nil
	}

	args, err := completion(name, execTime, fail)
	if err != nil {
		return err
	}

	if _, err := p.completer.CompleteOperation(ctx, args); err != nil {
		// cancelled or deleted by a client meanwhile
		p.log.Info("operation not completed", zap.Stringer("operation", name), zap.Error(err))
		return nil
	}

	p.log.Info("operation completed", zap.Stringer("operation", name), zap.Bool("failed", fail))
	return nil
}

func (p *producer) executionTime() time.Duration {
	spread := p.cfg.MaxTime - p.cfg.MinTime
	if spread <= 0 {
		return p.cfg.MinTime
	}
	return (p.cfg.MinTime + time.Duration(p.rand.Int64N(int64(spread)))).Round(time.Millisecond)
}

// completion builds the terminal state: a struct response on success or
// RESOURCE_EXHAUSTED with QuotaFailure details on failure.
func completion(name opdomain.OperationName, execTime time.Duration, fail bool) (*opdomain.CompleteOperationArgs, error) {
	if fail {
		details, err := anypb.New(&errdetails.QuotaFailure{
			Violations: []*errdetails.QuotaFailure_Violation{{
				Subject:     string(name),
				Description: "synthetic executor quota exhausted",
			}},
		})
		if err != nil {
			return nil, err
		}

		return &opdomain.CompleteOperationArgs{
			Name: name,
			Error: &rpcstatus.Status{
				Code:    int32(codes.ResourceExhausted),
				Message: "quota exceeded",
				Details: []*anypb.Any{details},
			},
		}, nil
	}

	resp, err := anypb.New(&structpb.Struct{Fields: map[string]*structpb.Value{
		"operation":      structpb.NewStringValue(string(name)),
		"execution_time": structpb.NewStringValue(execTime.String()),
	}})
	if err != nil {
		return nil, err
	}

	return &opdomain.CompleteOperationArgs{Name: name, Response: resp}, nil
}
