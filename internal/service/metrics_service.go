package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the assignment engine counters.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	assignmentsTotal   *prometheus.CounterVec
	responsesTotal     *prometheus.CounterVec
	swapsTotal         prometheus.Counter
	cancellationsTotal prometheus.Counter
	exclusionsTotal    *prometheus.CounterVec
	shortfallTotal     prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	assignmentsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proctor_assignments_total",
		Help: "Proctoring assignments created, by mode",
	}, []string{"mode"})

	responsesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proctor_responses_total",
		Help: "Assignment responses recorded, by decision",
	}, []string{"decision"})

	swapsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "proctor_swaps_total",
		Help: "Proctor swaps performed",
	})

	cancellationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "proctor_cancellations_total",
		Help: "Assignments cancelled through the exam cascade",
	})

	exclusionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "proctor_exclusions_total",
		Help: "Candidates excluded during eligibility evaluation, by reason",
	}, []string{"reason"})

	shortfallTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "proctor_shortfall_total",
		Help: "Requested proctor slots left unfilled",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, assignmentsTotal, responsesTotal,
		swapsTotal, cancellationsTotal, exclusionsTotal, shortfallTotal, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		assignmentsTotal:   assignmentsTotal,
		responsesTotal:     responsesTotal,
		swapsTotal:         swapsTotal,
		cancellationsTotal: cancellationsTotal,
		exclusionsTotal:    exclusionsTotal,
		shortfallTotal:     shortfallTotal,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordAssignments counts created assignments for one mode, "manual" or "auto".
func (m *MetricsService) RecordAssignments(mode string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.assignmentsTotal.WithLabelValues(mode).Add(float64(count))
}

// RecordResponse counts one accept or reject decision.
func (m *MetricsService) RecordResponse(decision string) {
	if m == nil {
		return
	}
	m.responsesTotal.WithLabelValues(decision).Inc()
}

// RecordSwap counts one completed swap.
func (m *MetricsService) RecordSwap() {
	if m == nil {
		return
	}
	m.swapsTotal.Inc()
}

// RecordCancellations counts assignments removed by an exam cancellation.
func (m *MetricsService) RecordCancellations(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.cancellationsTotal.Add(float64(count))
}

// RecordExclusions counts excluded candidates for one reason.
func (m *MetricsService) RecordExclusions(reason string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.exclusionsTotal.WithLabelValues(reason).Add(float64(count))
}

// RecordShortfall counts unfilled proctor slots.
func (m *MetricsService) RecordShortfall(count int) {
	if m == nil || count <= 0 {
		return
	}
	m.shortfallTotal.Add(float64(count))
}
