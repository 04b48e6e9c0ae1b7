package pollsrv

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	pollOutcomeOK        = "ok"
	pollOutcomeTransient = "transient_error"
	pollOutcomeError     = "error"
	pollOutcomeCanceled  = "canceled"

	waitOutcomeDone     = "done"
	waitOutcomeFailed   = "failed"
	waitOutcomeTimeout  = "timeout"
	waitOutcomeAborted  = "aborted"
	waitOutcomeRejected = "rejected"
)

var (
	pollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opwait",
		Subsystem: "poller",
		Name:      "polls_total",
		Help:      "Total number of operation status reads",
	}, []string{"outcome"})

	waitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "opwait",
		Subsystem: "poller",
		Name:      "waits_total",
		Help:      "Total number of finished waits by outcome",
	}, []string{"outcome"})

	waitDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "opwait",
		Subsystem: "poller",
		Name:      "wait_duration_seconds",
		Help:      "Wall-clock duration of finished waits",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 16),
	}, []string{"outcome"})
)
