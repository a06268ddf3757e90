package client

import (
	stderrors "errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wrap_client"

// Invocation outcomes.
const (
	outcomeOK           = "ok"
	outcomeInvalidInput = "invalid_input"
	outcomeNotFound     = "not_found"
	outcomeResolveError = "resolve_error"
	outcomeInvokeError  = "invoke_error"
)

// Resolution outcomes.
const (
	resolveFound    = "found"
	resolveNotFound = "not_found"
	resolveError    = "error"
)

type metrics struct {
	invocations *prometheus.CounterVec
	duration    prometheus.Histogram
	resolutions *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invocations_total",
			Help:      "Invocations by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "invoke_duration_seconds",
			Help:      "Time from resolution start to invocation result.",
			Buckets:   prometheus.DefBuckets,
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Resolutions by outcome.",
		}, []string{"outcome"}),
	}
	if reg == nil {
		return m, nil
	}

	var err error
	m.invocations, err = register(reg, m.invocations)
	if err != nil {
		return nil, err
	}
	m.duration, err = register(reg, m.duration)
	if err != nil {
		return nil, err
	}
	m.resolutions, err = register(reg, m.resolutions)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// register reuses an already registered collector so several clients can
// share one registry.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if stderrors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (m *metrics) invoked(outcome string, start time.Time) {
	m.invocations.WithLabelValues(outcome).Inc()
	m.duration.Observe(time.Since(start).Seconds())
}

func (m *metrics) resolved(outcome string) {
	m.resolutions.WithLabelValues(outcome).Inc()
}
