package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	checkoutSessionsTotal *prometheus.CounterVec
	verificationsTotal    *prometheus.CounterVec
	queriesTotal          *prometheus.CounterVec
	contractBytes         prometheus.Histogram
	llmTokensTotal        *prometheus.CounterVec
	llmDuration           *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cqa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cqa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cqa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	checkoutSessionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cqa",
			Subsystem: "checkout",
			Name:      "sessions_created_total",
			Help:      "Checkout session creation attempts by result.",
		},
		[]string{"service", "result"},
	)
	verificationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cqa",
			Subsystem: "checkout",
			Name:      "verifications_total",
			Help:      "Checkout session verifications by result.",
		},
		[]string{"service", "result"},
	)
	queriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cqa",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Contract queries by outcome.",
		},
		[]string{"service", "outcome"},
	)
	contractBytes := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "cqa",
			Subsystem:   "query",
			Name:        "contract_text_bytes",
			Help:        "Size of extracted contract text sent to the completion provider.",
			Buckets:     prometheus.ExponentialBuckets(1024, 4, 8),
			ConstLabels: prometheus.Labels{"service": service},
		},
	)
	llmTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cqa",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Token usage reported by the completion provider.",
		},
		[]string{"service", "direction", "model"},
	)
	llmDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cqa",
			Subsystem: "llm",
			Name:      "completion_duration_seconds",
			Help:      "Completion call duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "model"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		checkoutSessionsTotal,
		verificationsTotal,
		queriesTotal,
		contractBytes,
		llmTokensTotal,
		llmDuration,
	)

	return &HTTPServerMetrics{
		registry:              registry,
		service:               service,
		requestTotal:          requestTotal,
		requestDuration:       requestDuration,
		requestInFlight:       requestInFlight,
		checkoutSessionsTotal: checkoutSessionsTotal,
		verificationsTotal:    verificationsTotal,
		queriesTotal:          queriesTotal,
		contractBytes:         contractBytes,
		llmTokensTotal:        llmTokensTotal,
		llmDuration:           llmDuration,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterPaidSessionsGauge exposes the size of the paid-session registry.
func (m *HTTPServerMetrics) RegisterPaidSessionsGauge(size func() int) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace:   "cqa",
			Subsystem:   "checkout",
			Name:        "paid_sessions",
			Help:        "Checkout sessions currently remembered as paid.",
			ConstLabels: prometheus.Labels{"service": m.service},
		},
		func() float64 { return float64(size()) },
	))
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
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
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// normalizePath folds static asset paths into one label value.
func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/"), path == "/healthz", path == "/metrics", path == "/openapi.yaml":
		return path
	default:
		return "/static"
	}
}

func (m *HTTPServerMetrics) RecordCheckoutSession(err error) {
	m.checkoutSessionsTotal.WithLabelValues(m.service, resultLabel(err)).Inc()
}

func (m *HTTPServerMetrics) RecordVerification(paid bool, err error) {
	result := "unpaid"
	switch {
	case err != nil:
		result = "error"
	case paid:
		result = "paid"
	}
	m.verificationsTotal.WithLabelValues(m.service, result).Inc()
}

// RecordQuery counts a finished contract query by its HTTP status.
func (m *HTTPServerMetrics) RecordQuery(status int) {
	outcome := "answered"
	switch {
	case status == http.StatusPaymentRequired:
		outcome = "payment_required"
	case status >= 500:
		outcome = "failed"
	case status >= 400:
		outcome = "invalid"
	}
	m.queriesTotal.WithLabelValues(m.service, outcome).Inc()
}

func (m *HTTPServerMetrics) RecordContractText(size int) {
	m.contractBytes.Observe(float64(size))
}

func (m *HTTPServerMetrics) RecordCompletion(model string, promptTokens, completionTokens int, duration time.Duration) {
	if model == "" {
		model = "unknown"
	}
	if promptTokens > 0 {
		m.llmTokensTotal.WithLabelValues(m.service, "in", model).Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		m.llmTokensTotal.WithLabelValues(m.service, "out", model).Add(float64(completionTokens))
	}
	m.llmDuration.WithLabelValues(m.service, model).Observe(duration.Seconds())
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
