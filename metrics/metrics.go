// Package metrics exports the activity of a di.Injector as Prometheus
// metrics.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/deep-rent/wiring/di"
)

const (
	namespace = "wiring"
	subsystem = "injector"
)

// Observer implements di.Observer by recording compilations, plan cache
// hits and component invocations.
type Observer struct {
	compilations *prometheus.HistogramVec
	hits         *prometheus.CounterVec
	steps        *prometheus.HistogramVec
}

// New creates an Observer. Its collectors still need to be registered, see
// MustRegister.
func New() *Observer {
	return &Observer{
		compilations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "compilation_duration_seconds",
				Help:      "Plan compilation time in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 12),
			},
			[]string{"result"},
		),
		hits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "plan_cache_hits_total",
				Help:      "Number of plans served from the plan cache.",
			},
			[]string{"target"},
		),
		steps: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "step_duration_seconds",
				Help:      "Component resolution time in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"component", "result"},
		),
	}
}

// MustRegister registers the metrics with the given registry.
func (o *Observer) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(o.compilations, o.hits, o.steps)
}

// Compiled implements di.Observer.
func (o *Observer) Compiled(_ di.Target, _ *di.Plan, err error, elapsed time.Duration) {
	o.compilations.WithLabelValues(result(err)).Observe(elapsed.Seconds())
}

// PlanHit implements di.Observer.
func (o *Observer) PlanHit(t di.Target) {
	o.hits.WithLabelValues(t.Name).Inc()
}

// StepStarted implements di.Observer.
func (o *Observer) StepStarted(ctx context.Context, s *di.Step) (context.Context, func(error)) {
	start := time.Now()
	name := di.Name(s.Component)
	return ctx, func(err error) {
		o.steps.WithLabelValues(name, result(err)).Observe(time.Since(start).Seconds())
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

var _ di.Observer = (*Observer)(nil)
