package billing

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "billingsync"

// Metrics holds the collectors for provisioning and webhook outcomes. A nil
// *Metrics records nothing.
type Metrics struct {
	resolutions     *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	webhookDuration *prometheus.HistogramVec
}

// NewMetrics registers the billing collectors with reg. It panics if they are
// already registered there.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		resolutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "customer_resolutions_total",
			Help:      "Customer resolutions by outcome (existing, created, failed).",
		}, []string{"outcome"}),
		webhookEvents: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "webhook_events_total",
			Help:      "Webhook events dispatched by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		webhookDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "webhook_duration_seconds",
			Help:      "Time spent applying a webhook event.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event_type"}),
	}
}

func (m *Metrics) customerResolved(outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) webhookHandled(eventType string, outcome Outcome, d time.Duration) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType, string(outcome)).Inc()
	if outcome != OutcomeMalformed {
		m.webhookDuration.WithLabelValues(eventType).Observe(d.Seconds())
	}
}
