// Package metrics exposes Prometheus collectors for goal mutations.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/spigell/goal-tracker/internal/goals"
)

// Metrics records the outcome and latency of every goal mutation.
type Metrics struct {
	mutations *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

var _ goals.Observer = (*Metrics)(nil)

// MustNew registers the collectors with reg and panics on conflicting
// registrations. Already registered collectors are reused.
func MustNew(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	mutations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "goal_tracker",
			Name:      "mutations_total",
			Help:      "Goal mutations by operation and result kind.",
		},
		[]string{"operation", "result"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "goal_tracker",
			Name:      "mutation_duration_seconds",
			Help:      "Time spent applying goal mutations.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	if err := reg.Register(mutations); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			panic(err)
		}
		mutations = already.ExistingCollector.(*prometheus.CounterVec)
	}
	if err := reg.Register(duration); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			panic(err)
		}
		duration = already.ExistingCollector.(*prometheus.HistogramVec)
	}

	return &Metrics{mutations: mutations, duration: duration}
}

// ObserveMutation counts the mutation under its error kind and records its latency.
func (m *Metrics) ObserveMutation(op string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op, goals.ErrorKind(err)).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}
