package opsrv

import (
	"time"

	pollsrv "github.com/10Narratives/opwait/internal/services/poller"
	"go.uber.org/zap"
)

type options struct {
	log             *zap.Logger
	defaultWait     time.Duration
	maxWait         time.Duration
	pollInterval    time.Duration
	maxPollInterval time.Duration
	pollerOpts      []pollsrv.Option
}

type Option func(o *options)

func defaultOptions() *options {
	return &options{
		log:             zap.NewNop(),
		defaultWait:     DefaultWaitTimeout,
		maxWait:         MaxWaitTimeout,
		pollInterval:    250 * time.Millisecond,
		maxPollInterval: 2 * time.Second,
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithWaitLimits sets the timeout used when a caller does not pass one and
// the upper bound applied to every WaitOperation call.
func WithWaitLimits(defaultTimeout, maxTimeout time.Duration) Option {
	return func(o *options) {
		if defaultTimeout > 0 {
			o.defaultWait = defaultTimeout
		}
		if maxTimeout > 0 {
			o.maxWait = maxTimeout
		}
		o.defaultWait = min(o.defaultWait, o.maxWait)
	}
}

func WithPollIntervals(initial, maximum time.Duration) Option {
	return func(o *options) {
		if initial > 0 {
			o.pollInterval = initial
		}
		if maximum > 0 {
			o.maxPollInterval = maximum
		}
		o.maxPollInterval = max(o.maxPollInterval, o.pollInterval)
	}
}

func WithPollerOptions(opts ...pollsrv.Option) Option {
	return func(o *options) {
		o.pollerOpts = append(o.pollerOpts, opts...)
	}
}
