package opdomain

import (
	"fmt"
	"time"
)

const (
	DefaultWaitTimeout              = 30 * time.Minute
	DefaultPollInterval             = time.Second
	DefaultMaxPollInterval          = 10 * time.Second
	DefaultPollMultiplier           = 1.5
	DefaultTransientRetries         = 3
	DefaultTransientInitialInterval = 200 * time.Millisecond
	DefaultTransientMaxInterval     = 2 * time.Second
)

// WaitPolicy bounds a single wait. A zero Timeout means the wait is
// open-ended; the other zero durations and Multiplier fall back to defaults.
type WaitPolicy struct {
	Timeout         time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	// RandomizationFactor spreads each interval over
	// [interval*(1-f), interval*(1+f)], still capped by MaxInterval.
	RandomizationFactor float64

	TransientRetries         int
	TransientInitialInterval time.Duration
	TransientMaxInterval     time.Duration
}

func DefaultWaitPolicy() WaitPolicy {
	return WaitPolicy{
		Timeout:                  DefaultWaitTimeout,
		InitialInterval:          DefaultPollInterval,
		MaxInterval:              DefaultMaxPollInterval,
		Multiplier:               DefaultPollMultiplier,
		TransientRetries:         DefaultTransientRetries,
		TransientInitialInterval: DefaultTransientInitialInterval,
		TransientMaxInterval:     DefaultTransientMaxInterval,
	}
}

// WithDefaults returns a copy with unset intervals and multiplier filled in.
func (p WaitPolicy) WithDefaults() WaitPolicy {
	if p.InitialInterval == 0 {
		p.InitialInterval = DefaultPollInterval
	}
	if p.MaxInterval == 0 {
		p.MaxInterval = max(DefaultMaxPollInterval, p.InitialInterval)
	}
	if p.Multiplier == 0 {
		p.Multiplier = DefaultPollMultiplier
	}
	if p.TransientInitialInterval == 0 {
		p.TransientInitialInterval = DefaultTransientInitialInterval
	}
	if p.TransientMaxInterval == 0 {
		p.TransientMaxInterval = max(DefaultTransientMaxInterval, p.TransientInitialInterval)
	}
	return p
}

func (p WaitPolicy) Validate() error {
	switch {
	case p.Timeout < 0:
		return fmt.Errorf("%w: timeout must not be negative", ErrInvalidWaitPolicy)
	case p.InitialInterval < 0 || p.MaxInterval < 0:
		return fmt.Errorf("%w: poll intervals must not be negative", ErrInvalidWaitPolicy)
	case p.MaxInterval < p.InitialInterval:
		return fmt.Errorf("%w: max interval %s is less than initial interval %s", ErrInvalidWaitPolicy, p.MaxInterval, p.InitialInterval)
	case p.Multiplier < 1:
		return fmt.Errorf("%w: multiplier must be at least 1, got %g", ErrInvalidWaitPolicy, p.Multiplier)
	case p.RandomizationFactor < 0 || p.RandomizationFactor >= 1:
		return fmt.Errorf("%w: randomization factor must be in [0, 1), got %g", ErrInvalidWaitPolicy, p.RandomizationFactor)
	case p.TransientRetries < 0:
		return fmt.Errorf("%w: transient retries must not be negative", ErrInvalidWaitPolicy)
	case p.TransientInitialInterval < 0 || p.TransientMaxInterval < p.TransientInitialInterval:
		return fmt.Errorf("%w: invalid transient retry intervals", ErrInvalidWaitPolicy)
	}
	return nil
}
