package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	processTotal       *prometheus.CounterVec
	processDuration    *prometheus.HistogramVec
	processInFlight    prometheus.Gauge
	queueLag           *prometheus.HistogramVec
	verdictTotal       *prometheus.CounterVec
	correctionAttempts *prometheus.HistogramVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	processTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lp",
			Subsystem: "worker",
			Name:      "document_process_total",
			Help:      "Total processed documents by status.",
		},
		[]string{"service", "status"},
	)
	processDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lp",
			Subsystem: "worker",
			Name:      "document_process_duration_seconds",
			Help:      "Document processing duration in seconds by status.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "status"},
	)
	processInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lp",
			Subsystem: "worker",
			Name:      "document_process_in_flight",
			Help:      "Number of in-flight document processing tasks.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lp",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between document creation and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	verdictTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lp",
			Subsystem: "pipeline",
			Name:      "verdict_total",
			Help:      "Terminal pipeline verdicts by document type.",
		},
		[]string{"service", "document_type", "verdict"},
	)
	correctionAttempts := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lp",
			Subsystem: "pipeline",
			Name:      "correction_attempts",
			Help:      "Self-correction attempts consumed per document.",
			Buckets:   []float64{0, 1, 2, 3},
		},
		[]string{"service"},
	)

	registry.MustRegister(processTotal, processDuration, processInFlight, queueLag, verdictTotal, correctionAttempts)

	return &WorkerMetrics{
		registry:           registry,
		processTotal:       processTotal,
		processDuration:    processDuration,
		processInFlight:    processInFlight,
		queueLag:           queueLag,
		verdictTotal:       verdictTotal,
		correctionAttempts: correctionAttempts,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartDocument() {
	m.processInFlight.Inc()
}

func (m *WorkerMetrics) FinishDocument(service string, duration time.Duration, err error) {
	m.processInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.processTotal.WithLabelValues(service, status).Inc()
	m.processDuration.WithLabelValues(service, status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(service string, lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.WithLabelValues(service).Observe(lag.Seconds())
}

func (m *WorkerMetrics) RecordVerdict(service, documentType, verdict string) {
	if documentType == "" {
		documentType = "UNKNOWN"
	}
	m.verdictTotal.WithLabelValues(service, documentType, verdict).Inc()
}

func (m *WorkerMetrics) ObserveCorrectionAttempts(service string, attempts int) {
	m.correctionAttempts.WithLabelValues(service).Observe(float64(attempts))
}

// PipelineObserver narrows WorkerMetrics to the pipeline's observer
// contract with the service label bound once.
type PipelineObserver struct {
	metrics *WorkerMetrics
	service string
}

func NewPipelineObserver(metrics *WorkerMetrics, service string) *PipelineObserver {
	return &PipelineObserver{metrics: metrics, service: service}
}

func (o *PipelineObserver) RecordVerdict(documentType, verdict string) {
	o.metrics.RecordVerdict(o.service, documentType, verdict)
}

func (o *PipelineObserver) ObserveCorrectionAttempts(attempts int) {
	o.metrics.ObserveCorrectionAttempts(o.service, attempts)
}
