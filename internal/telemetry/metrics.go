package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/pool"
	"github.com/iliamunaev/Event-Pipeline-Goroutine-Orchestration/internal/service/tracker"
)

// Metrics holds the Prometheus collectors of the pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry           *prometheus.Registry
	gatewayCalls       *prometheus.CounterVec
	gatewayDuration    *prometheus.HistogramVec
	submissions        *prometheus.CounterVec
	submissionDuration prometheus.Histogram
}

// NewMetrics registers the pipeline collectors on a fresh registry.
// The call gauges read tr and limiter on every scrape; either may be nil.
func NewMetrics(tr *tracker.Tracker, limiter *pool.Pool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		gatewayCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_calls_total",
				Help: "Total number of remote resource calls",
			},
			[]string{"resource", "op", "outcome"},
		),
		gatewayDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_call_duration_seconds",
				Help:    "Remote resource call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"resource", "op"},
		),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "event_submissions_total",
				Help: "Total number of event submissions by final state",
			},
			[]string{"state", "kind"},
		),
		submissionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "event_submission_duration_seconds",
				Help:    "End-to-end event submission duration in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),
	}

	m.registry.MustRegister(m.gatewayCalls, m.gatewayDuration, m.submissions, m.submissionDuration)
	if tr != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "gateway_calls_in_flight",
				Help: "Remote resource calls currently in flight",
			},
			func() float64 { return float64(tr.Running()) },
		))
		m.registry.MustRegister(prometheus.NewCounterFunc(
			prometheus.CounterOpts{
				Name: "gateway_calls_started_total",
				Help: "Remote resource calls started, including those still in flight",
			},
			func() float64 { return float64(tr.Total()) },
		))
	}
	if limiter != nil {
		m.registry.MustRegister(
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "gateway_limiter_slots",
					Help: "Maximum number of concurrent remote resource calls",
				},
				func() float64 { return float64(limiter.Size()) },
			),
			prometheus.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "gateway_limiter_slots_in_use",
					Help: "Limiter slots currently held",
				},
				func() float64 { return float64(limiter.InUse()) },
			),
		)
	}
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCall records one gateway call.
func (m *Metrics) ObserveCall(resource, op, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.gatewayCalls.WithLabelValues(resource, op, outcome).Inc()
	m.gatewayDuration.WithLabelValues(resource, op).Observe(d.Seconds())
}

// ObserveSubmission records the final state of one submission run.
func (m *Metrics) ObserveSubmission(state, kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(state, kind).Inc()
	m.submissionDuration.Observe(d.Seconds())
}
