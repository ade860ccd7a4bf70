package billing

import "github.com/prometheus/client_golang/prometheus"

func (m *Metrics) Resolutions() *prometheus.CounterVec       { return m.resolutions }
func (m *Metrics) WebhookEvents() *prometheus.CounterVec     { return m.webhookEvents }
func (m *Metrics) WebhookDuration() *prometheus.HistogramVec { return m.webhookDuration }
