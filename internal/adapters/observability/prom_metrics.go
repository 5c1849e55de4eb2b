package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PromMetrics implements ports.Metrics with Prometheus counters
type PromMetrics struct {
	samplesIngested  prometheus.Counter
	ingestFailures   prometheus.Counter
	setpointUpdates  prometheus.Counter
	setpointFailures prometheus.Counter
	alertsSent       prometheus.Counter
	alertFailures    prometheus.Counter
	throttled        prometheus.Counter
}

// NewPromMetrics creates the counters and registers them on reg
func NewPromMetrics(reg prometheus.Registerer) *PromMetrics {
	m := &PromMetrics{
		samplesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fermpi_samples_ingested_total",
			Help: "Temperature samples stored from controller telemetry.",
		}),
		ingestFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fermpi_ingest_failures_total",
			Help: "Telemetry pushes that were acknowledged but not stored.",
		}),
		setpointUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fermpi_setpoint_updates_total",
			Help: "Setpoint updates committed by the operator.",
		}),
		setpointFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fermpi_setpoint_update_failures_total",
			Help: "Setpoint updates rejected or not committed.",
		}),
		alertsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fermpi_alerts_sent_total",
			Help: "Failure alerts handed to the mail relay.",
		}),
		alertFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fermpi_alert_delivery_failures_total",
			Help: "Failure alerts the mail relay did not accept.",
		}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fermpi_requests_throttled_total",
			Help: "Requests rejected by the per-client rate limit.",
		}),
	}

	reg.MustRegister(
		m.samplesIngested,
		m.ingestFailures,
		m.setpointUpdates,
		m.setpointFailures,
		m.alertsSent,
		m.alertFailures,
		m.throttled,
	)
	return m
}

func (m *PromMetrics) SampleIngested()       { m.samplesIngested.Inc() }
func (m *PromMetrics) IngestFailed()         { m.ingestFailures.Inc() }
func (m *PromMetrics) SetpointUpdated()      { m.setpointUpdates.Inc() }
func (m *PromMetrics) SetpointUpdateFailed() { m.setpointFailures.Inc() }
func (m *PromMetrics) AlertSent()            { m.alertsSent.Inc() }
func (m *PromMetrics) AlertDeliveryFailed()  { m.alertFailures.Inc() }
func (m *PromMetrics) RequestThrottled()     { m.throttled.Inc() }
