package pollsrv

import (
	"time"

	opdomain "github.com/10Narratives/opwait/internal/domains/operations"
	"github.com/cenkalti/backoff/v4"
)

// schedule yields the sleep between two polls of one wait.
type schedule struct {
	b   *backoff.ExponentialBackOff
	max time.Duration
}

func newSchedule(policy opdomain.WaitPolicy, clock Clock) *schedule {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     policy.InitialInterval,
		RandomizationFactor: policy.RandomizationFactor,
		Multiplier:          policy.Multiplier,
		MaxInterval:         policy.MaxInterval,
		// The ceiling is enforced by the poll loop itself.
		MaxElapsedTime: 0,
		Stop:           backoff.Stop,
		Clock:          clock,
	}

	b.Reset()

	return &schedule{b: b, max: policy.MaxInterval}
}

func (s *schedule) next() time.Duration {
	d := s.b.NextBackOff()
	if d == backoff.Stop || d > s.max {
		// jitter is applied around the capped interval and may overshoot it
		d = s.max
	}
	if d < 0 {
		d = 0
	}
	return d
}
