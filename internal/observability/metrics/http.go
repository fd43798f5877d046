package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	extractionTotal      *prometheus.CounterVec
	extractionConfidence *prometheus.HistogramVec
	extractionDuration   *prometheus.HistogramVec
	extractedFields      *prometheus.HistogramVec
	trainingEventsTotal  *prometheus.CounterVec
	zeroShotCallsTotal   *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chemdoc",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chemdoc",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chemdoc",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	extractionTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chemdoc",
			Subsystem: "extraction",
			Name:      "documents_total",
			Help:      "Total processed documents by detected type.",
		},
		[]string{"service", "doc_type"},
	)
	extractionConfidence := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chemdoc",
			Subsystem: "extraction",
			Name:      "classification_confidence",
			Help:      "Distribution of classification confidence per processed document.",
			Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1},
		},
		[]string{"service", "doc_type"},
	)
	extractionDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chemdoc",
			Subsystem: "extraction",
			Name:      "duration_seconds",
			Help:      "Extraction pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	extractedFields := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chemdoc",
			Subsystem: "extraction",
			Name:      "fields_per_document",
			Help:      "Distribution of extracted entity fields per document.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21, 34},
		},
		[]string{"service", "doc_type"},
	)
	trainingEventsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chemdoc",
			Subsystem: "training",
			Name:      "events_total",
			Help:      "Total training events by action and outcome.",
		},
		[]string{"service", "action", "status"},
	)
	zeroShotCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chemdoc",
			Subsystem: "zeroshot",
			Name:      "calls_total",
			Help:      "Total zero-shot fallback calls by outcome.",
		},
		[]string{"service", "outcome"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		extractionTotal,
		extractionConfidence,
		extractionDuration,
		extractedFields,
		trainingEventsTotal,
		zeroShotCallsTotal,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		extractionTotal:      extractionTotal,
		extractionConfidence: extractionConfidence,
		extractionDuration:   extractionDuration,
		extractedFields:      extractedFields,
		trainingEventsTotal:  trainingEventsTotal,
		zeroShotCallsTotal:   zeroShotCallsTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/documents/"):
		return "/v1/documents/{document_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordExtraction(service, endpoint, docType string, confidence float64, fieldCount int, duration time.Duration) {
	if docType == "" {
		docType = "unknown"
	}
	m.extractionTotal.WithLabelValues(service, docType).Inc()
	m.extractionConfidence.WithLabelValues(service, docType).Observe(confidence)
	m.extractionDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())
	m.extractedFields.WithLabelValues(service, docType).Observe(float64(fieldCount))
}

func (m *HTTPServerMetrics) RecordTrainingEvent(service, action, status string) {
	if action == "" {
		action = "unknown"
	}
	if status == "" {
		status = "unknown"
	}
	m.trainingEventsTotal.WithLabelValues(service, action, status).Inc()
}

func (m *HTTPServerMetrics) RecordZeroShotCall(service string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.zeroShotCallsTotal.WithLabelValues(service, outcome).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
