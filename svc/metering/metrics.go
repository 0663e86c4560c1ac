package metering

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "talktime"

// Metrics holds the engine counters. No per-user labels.
type Metrics struct {
	SessionsStarted  *prometheus.CounterVec
	SessionsRejected *prometheus.CounterVec
	SessionsEnded    *prometheus.CounterVec
	SecondsRecorded  *prometheus.CounterVec
	TrialActivations *prometheus.CounterVec
	CountRecords     *prometheus.CounterVec
	StoreErrors      *prometheus.CounterVec
}

// NewMetrics registers the counters with reg. A nil reg yields unregistered
// counters.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SessionsStarted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sessions",
				Name:      "started_total",
				Help:      "Sessions authorized, by activity and whether they ran on the onboarding allowance",
			},
			[]string{"activity", "onboarding"},
		),
		SessionsRejected: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sessions",
				Name:      "rejected_total",
				Help:      "Session starts refused, by reason",
			},
			[]string{"activity", "reason"},
		),
		SessionsEnded: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sessions",
				Name:      "ended_total",
				Help:      "Sessions ended and recorded",
			},
			[]string{"activity", "onboarding"},
		),
		SecondsRecorded: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "usage",
				Name:      "seconds_recorded_total",
				Help:      "Seconds written to the usage ledgers",
			},
			[]string{"activity", "onboarding"},
		),
		TrialActivations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "trial",
				Name:      "activations_total",
				Help:      "Free trial activation attempts, by result",
			},
			[]string{"result"},
		),
		CountRecords: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "limits",
				Name:      "records_total",
				Help:      "Scenario creations and role-play section sessions, by kind and result",
			},
			[]string{"kind", "result"},
		),
		StoreErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "store",
				Name:      "errors_total",
				Help:      "Operations that failed on an unavailable store",
			},
			[]string{"operation"},
		),
	}
}
