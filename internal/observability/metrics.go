package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing, so packages can take one optionally.
type Metrics struct {
	registry *prometheus.Registry

	documentsTotal    *prometheus.CounterVec
	estimatesTotal    *prometheus.CounterVec
	estimateDuration  *prometheus.HistogramVec
	collaboratorCalls *prometheus.CounterVec
	collaboratorTime  *prometheus.HistogramVec
	grpcRequestsTotal *prometheus.CounterVec
	grpcDuration      *prometheus.HistogramVec
	httpRequestsTotal *prometheus.CounterVec
	queueDepth        prometheus.Gauge
}

// NewMetrics registers every collector on a fresh registry, plus the Go and
// process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		documentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecoscore_documents_processed_total",
			Help: "Documents processed by kind and outcome.",
		}, []string{"kind", "outcome"}),
		estimatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecoscore_carbon_estimates_total",
			Help: "Carbon estimates by resolved strategy and outcome.",
		}, []string{"strategy", "outcome"}),
		estimateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecoscore_carbon_estimate_duration_seconds",
			Help:    "Histogram of single-item estimate durations by strategy.",
			Buckets: prometheus.DefBuckets,
		}, []string{"strategy"}),
		collaboratorCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecoscore_collaborator_calls_total",
			Help: "Calls to external collaborators (ocr, llm, search) by result.",
		}, []string{"collaborator", "result"}),
		collaboratorTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecoscore_collaborator_duration_seconds",
			Help:    "Histogram of external collaborator call durations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"collaborator"}),
		grpcRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecoscore_grpc_requests_total",
			Help: "gRPC requests by method and status code.",
		}, []string{"method", "code"}),
		grpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ecoscore_grpc_request_duration_seconds",
			Help:    "Histogram of gRPC request durations by method.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ecoscore_admin_http_requests_total",
			Help: "Admin HTTP requests by route and status.",
		}, []string{"route", "status"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ecoscore_queue_depth",
			Help: "Jobs waiting in the processing queue.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.documentsTotal,
		m.estimatesTotal,
		m.estimateDuration,
		m.collaboratorCalls,
		m.collaboratorTime,
		m.grpcRequestsTotal,
		m.grpcDuration,
		m.httpRequestsTotal,
		m.queueDepth,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) DocumentProcessed(kind, outcome string) {
	if m == nil {
		return
	}
	m.documentsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) EstimateDone(strategy, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.estimatesTotal.WithLabelValues(strategy, outcome).Inc()
	m.estimateDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

func (m *Metrics) CollaboratorCall(name string, d time.Duration, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.collaboratorCalls.WithLabelValues(name, result).Inc()
	m.collaboratorTime.WithLabelValues(name).Observe(d.Seconds())
}

func (m *Metrics) GRPCRequest(method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.grpcRequestsTotal.WithLabelValues(method, code).Inc()
	m.grpcDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts requests served by next under route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		}
	})
}
