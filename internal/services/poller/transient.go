package pollsrv

import (
	"context"
	"errors"
	"fmt"
	"syscall"
	"time"

	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// IsTransient reports whether a failed status read may succeed if repeated.
// Context cancellation is never transient.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var tte *opdomain.TransientTransportError
	if errors.As(err, &tte) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	if temp, ok := err.(interface{ Temporary() bool }); ok && temp.Temporary() {
		return true
	}

	s, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch s.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted,
		codes.Aborted, codes.Internal, codes.Unknown:
		return true
	default:
		return false
	}
}

// get reads the raw status, retrying transient failures within the policy's
// budget. Pauses never run past deadline when one is set.
func (p *Poller[S, R]) get(ctx context.Context, name opdomain.OperationName, policy opdomain.WaitPolicy, deadline time.Time, attempt int) (S, error) {
	var zero S

	bo := gax.Backoff{
		Initial:    policy.TransientInitialInterval,
		Max:        policy.TransientMaxInterval,
		Multiplier: 2,
	}

	for retry := 0; ; retry++ {
		raw, err := p.getter(ctx, name)
		if err == nil {
			pollsTotal.WithLabelValues(pollOutcomeOK).Inc()
			return raw, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			pollsTotal.WithLabelValues(pollOutcomeCanceled).Inc()
			return zero, &opdomain.PollerAbortedError{Name: name, Attempts: attempt, Cause: ctxErr}
		}

		if !IsTransient(err) {
			pollsTotal.WithLabelValues(pollOutcomeError).Inc()
			return zero, &opdomain.PollerAbortedError{Name: name, Attempts: attempt, Cause: err}
		}

		pollsTotal.WithLabelValues(pollOutcomeTransient).Inc()

		if retry >= policy.TransientRetries {
			return zero, &opdomain.PollerAbortedError{
				Name:     name,
				Attempts: attempt,
				Cause:    fmt.Errorf("retry budget exhausted (%d attempts): %w", retry+1, err),
			}
		}

		pause := bo.Pause()
		if !deadline.IsZero() {
			pause = min(pause, max(deadline.Sub(p.clock.Now()), 0))
		}

		p.log.Debug("transient error while reading operation status, retrying",
			zap.Stringer("operation", name),
			zap.Int("retry", retry+1),
			zap.Duration("pause", pause),
			zap.Error(err),
		)

		if err := p.clock.Sleep(ctx, pause); err != nil {
			return zero, &opdomain.PollerAbortedError{Name: name, Attempts: attempt, Cause: err}
		}
	}
}
