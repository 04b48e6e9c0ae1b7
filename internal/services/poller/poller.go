package pollsrv

import (
	"context"
	"errors"
	"fmt"
	"time"

	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
)

// GetFunc reads the raw status of an operation. It must be safe for
// concurrent use since independent waits may share it.
type GetFunc[S any] func(ctx context.Context, name opdomain.OperationName) (S, error)

// Classifier turns a raw status into a PollResult. An error means the
// status could not be interpreted at all.
type Classifier[S any, R any] func(raw S) (opdomain.PollResult[R], error)

// Poller waits for long-running operations. It keeps no per-wait state, so
// one Poller may serve any number of concurrent waits.
type Poller[S any, R any] struct {
	getter   GetFunc[S]
	classify Classifier[S, R]

	clock   Clock
	log     *zap.Logger
	tracker ProgressTracker
}

func NewPoller[S any, R any](getter GetFunc[S], classify Classifier[S, R], opts ...Option) (*Poller[S, R], error) {
	if getter == nil {
		return nil, errors.New("operation getter is required")
	}
	if classify == nil {
		return nil, errors.New("operation classifier is required")
	}

	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Poller[S, R]{
		getter:   getter,
		classify: classify,
		clock:    options.clock,
		log:      options.log,
		tracker:  options.tracker,
	}, nil
}

// Wait polls name until it is done, failed, the policy ceiling is reached or
// ctx is canceled. A nil policy means opdomain.DefaultWaitPolicy. The
// message is only shown to the progress tracker.
//
// Errors are *opdomain.OperationFailedError, *opdomain.WaitTimeoutError or
// *opdomain.PollerAbortedError; an invalid policy yields an error wrapping
// opdomain.ErrInvalidWaitPolicy before any poll.
func (p *Poller[S, R]) Wait(ctx context.Context, name opdomain.OperationName, policy *opdomain.WaitPolicy, message string) (R, error) {
	var zero R

	pol := opdomain.DefaultWaitPolicy()
	if policy != nil {
		pol = policy.WithDefaults()
	}
	if err := pol.Validate(); err != nil {
		waitsTotal.WithLabelValues(waitOutcomeRejected).Inc()
		return zero, err
	}

	if message == "" {
		message = fmt.Sprintf("Waiting for operation [%s] to complete", name)
	}

	start := p.clock.Now()
	p.tracker.Start(message)

	res, err := p.loop(ctx, name, pol, start)

	p.tracker.Stop(message, err)

	outcome := waitOutcome(err)
	waitsTotal.WithLabelValues(outcome).Inc()
	waitDuration.WithLabelValues(outcome).Observe(p.clock.Now().Sub(start).Seconds())

	return res, err
}

func (p *Poller[S, R]) loop(ctx context.Context, name opdomain.OperationName, policy opdomain.WaitPolicy, start time.Time) (R, error) {
	var zero R

	var deadline time.Time
	if policy.Timeout > 0 {
		deadline = start.Add(policy.Timeout)
	}

	sched := newSchedule(policy, p.clock)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, &opdomain.PollerAbortedError{Name: name, Attempts: attempt - 1, Cause: err}
		}

		raw, err := p.get(ctx, name, policy, deadline, attempt)
		if err != nil {
			return zero, err
		}

		result, err := p.classify(raw)
		if err != nil {
			return zero, &opdomain.PollerAbortedError{
				Name:     name,
				Attempts: attempt,
				Cause:    fmt.Errorf("cannot classify operation status: %w", err),
			}
		}

		switch result.State {
		case opdomain.PollStateDone:
			p.log.Debug("operation done", zap.Stringer("operation", name), zap.Int("attempts", attempt))
			return result.Resource, nil
		case opdomain.PollStateFailed:
			p.log.Debug("operation failed", zap.Stringer("operation", name), zap.Int("attempts", attempt))
			return zero, failure(name, result.Err)
		case opdomain.PollStatePending:
			p.tracker.Tick(attempt, result.Metadata)
		default:
			return zero, &opdomain.PollerAbortedError{
				Name:     name,
				Attempts: attempt,
				Cause:    fmt.Errorf("unexpected poll state %s", result.State),
			}
		}

		interval := sched.next()

		if !deadline.IsZero() {
			now := p.clock.Now()
			if now.Add(interval).After(deadline) {
				return zero, &opdomain.WaitTimeoutError{
					Name:    name,
					Timeout: policy.Timeout,
					Elapsed: now.Sub(start),
				}
			}
		}

		p.log.Debug("operation pending",
			zap.Stringer("operation", name),
			zap.Int("attempt", attempt),
			zap.Duration("next_poll_in", interval),
		)

		if err := p.clock.Sleep(ctx, interval); err != nil {
			return zero, &opdomain.PollerAbortedError{Name: name, Attempts: attempt, Cause: err}
		}
	}
}

func failure(name opdomain.OperationName, err *opdomain.OperationFailedError) *opdomain.OperationFailedError {
	if err == nil {
		return &opdomain.OperationFailedError{
			Name:    name,
			Code:    codes.Unknown,
			Message: "operation failed without error details",
		}
	}

	out := *err
	if out.Name == "" {
		out.Name = name
	}
	return &out
}

func waitOutcome(err error) string {
	switch {
	case err == nil:
		return waitOutcomeDone
	case errors.Is(err, opdomain.ErrOperationFailed):
		return waitOutcomeFailed
	case errors.Is(err, opdomain.ErrWaitTimeout):
		return waitOutcomeTimeout
	default:
		return waitOutcomeAborted
	}
}
