package resolve

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes Prometheus counters for resolution outcomes.
type Metrics struct {
	resolutions        *prometheus.CounterVec
	reviewQueued       prometheus.Counter
	corroborations     prometheus.Counter
	inferenceFailures  prometheus.Counter
	verifierFailures   *prometheus.CounterVec
}

// NewMetrics creates and registers resolution metrics with the given
// registerer. Pass prometheus.DefaultRegisterer for the process registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		resolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nameplate",
			Name:      "resolutions_total",
			Help:      "Resolution attempts by producing source.",
		}, []string{"source"}),
		reviewQueued: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "nameplate",
			Name:      "review_queued_total",
			Help:      "Resolutions that required human review.",
		}),
		corroborations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "nameplate",
			Name:      "corroborations_total",
			Help:      "Successful verification corroborations applied as boosts.",
		}),
		inferenceFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "nameplate",
			Name:      "inference_failures_total",
			Help:      "Generative inference calls that failed or declined.",
		}),
		verifierFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "nameplate",
			Name:      "verifier_failures_total",
			Help:      "Verification calls that errored and were treated as not consulted.",
		}, []string{"verifier"}),
	}
}

func (m *Metrics) observeResult(res *Result) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(string(res.Source)).Inc()
	if res.RequiresReview {
		m.reviewQueued.Inc()
	}
	if n := len(res.CorroboratedBy); n > 0 {
		m.corroborations.Add(float64(n))
	}
}

func (m *Metrics) observeInferenceFailure() {
	if m == nil {
		return
	}
	m.inferenceFailures.Inc()
}

func (m *Metrics) observeVerifierFailure(name string) {
	if m == nil {
		return
	}
	m.verifierFailures.WithLabelValues(name).Inc()
}
