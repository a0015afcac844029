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

	chatRequestsTotal     *prometheus.CounterVec
	chatCacheTotal        *prometheus.CounterVec
	chatNoContextTotal    *prometheus.CounterVec
	chatRetrievedSections *prometheus.HistogramVec
	chatDuration          *prometheus.HistogramVec
	providerInFlight      *prometheus.GaugeVec
	uploadBytes           *prometheus.HistogramVec
	uploadSections        *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cdc",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cdc",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cdc",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	chatRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cdc",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total successful chat requests.",
		},
		[]string{"service"},
	)
	chatCacheTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cdc",
			Subsystem: "chat",
			Name:      "cache_total",
			Help:      "Chat responses by cache outcome.",
		},
		[]string{"service", "outcome"},
	)
	chatNoContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cdc",
			Subsystem: "chat",
			Name:      "no_context_total",
			Help:      "Total chat requests answered without retrieved sections.",
		},
		[]string{"service"},
	)
	chatRetrievedSections := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cdc",
			Subsystem: "chat",
			Name:      "retrieved_sections",
			Help:      "Distribution of cited sections per successful chat request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13},
		},
		[]string{"service"},
	)
	chatDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cdc",
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "Chat pipeline duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	providerInFlight := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "cdc",
			Subsystem: "provider",
			Name:      "in_flight_calls",
			Help:      "Currently held slots on the shared provider gate.",
		},
		[]string{"service"},
	)
	uploadBytes := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cdc",
			Subsystem: "ingest",
			Name:      "upload_bytes",
			Help:      "Distribution of uploaded document sizes in bytes.",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		},
		[]string{"service"},
	)
	uploadSections := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cdc",
			Subsystem: "ingest",
			Name:      "extracted_sections",
			Help:      "Distribution of extracted sections per uploaded document.",
			Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 34, 55},
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		chatRequestsTotal,
		chatCacheTotal,
		chatNoContextTotal,
		chatRetrievedSections,
		chatDuration,
		providerInFlight,
		uploadBytes,
		uploadSections,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		chatRequestsTotal:     chatRequestsTotal,
		chatCacheTotal:        chatCacheTotal,
		chatNoContextTotal:    chatNoContextTotal,
		chatRetrievedSections: chatRetrievedSections,
		chatDuration:          chatDuration,
		providerInFlight:      providerInFlight,
		uploadBytes:           uploadBytes,
		uploadSections:        uploadSections,
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

func (m *HTTPServerMetrics) RecordChatObservation(service string, citationCount int, cacheHit bool, duration time.Duration) {
	m.chatRequestsTotal.WithLabelValues(service).Inc()
	m.chatRetrievedSections.WithLabelValues(service).Observe(float64(citationCount))
	m.chatDuration.WithLabelValues(service).Observe(duration.Seconds())

	outcome := "miss"
	if cacheHit {
		outcome = "hit"
	}
	m.chatCacheTotal.WithLabelValues(service, outcome).Inc()

	if citationCount == 0 {
		m.chatNoContextTotal.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) SetProviderInFlight(service string, n int) {
	m.providerInFlight.WithLabelValues(service).Set(float64(n))
}

func (m *HTTPServerMetrics) RecordUpload(service string, byteSize int64, sectionCount int) {
	m.uploadBytes.WithLabelValues(service).Observe(float64(byteSize))
	m.uploadSections.WithLabelValues(service).Observe(float64(sectionCount))
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
