package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Latency: полная обработка запроса агента (включая модель)
	InspectDuration *prometheus.HistogramVec

	// Traffic: запросы агентов по хостам и итоговым действиям
	InspectTotal *prometheus.CounterVec

	// Errors: классификация отказов
	ErrorTotal *prometheus.CounterVec

	// Saturation: состояние Circuit Breaker сайдкара (0 - ок, 1 - выбило)
	BreakerState prometheus.Gauge

	// Audit: заполненность буфера записи (backpressure)
	AuditBufferFill prometheus.Gauge

	// Detections: найденные сущности по меткам
	EntitiesTotal *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern: без регистратора метрики остаются локальными
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		InspectDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sentinel_inspect_duration_seconds",
			Help:    "Histogram of inspection latencies.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"host", "action"}),

		InspectTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_inspect_requests_total",
			Help: "Total number of processed agent requests.",
		}, []string{"host", "action"}),

		ErrorTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_errors_total",
			Help: "Total number of errors by type.",
		}, []string{"type"}), // типы: sidecar, storage, attachment, overflow

		BreakerState: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_sidecar_breaker_state",
			Help: "Current state of the sidecar circuit breaker (0=closed, 1=open).",
		}),

		AuditBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "sentinel_audit_buffer_utilization",
			Help: "Current number of records in the audit buffer.",
		}),

		EntitiesTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_entities_detected_total",
			Help: "Detected sensitive entities by label.",
		}, []string{"label"}),
	}
}
