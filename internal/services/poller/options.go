package pollsrv

import "go.uber.org/zap"

type options struct {
	clock   Clock
	log     *zap.Logger
	tracker ProgressTracker
}

type Option func(o *options)

func defaultOptions() *options {
	return &options{
		clock:   SystemClock(),
		log:     zap.NewNop(),
		tracker: NopTracker{},
	}
}

func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

func WithProgressTracker(tracker ProgressTracker) Option {
	return func(o *options) {
		if tracker != nil {
			o.tracker = tracker
		}
	}
}
