package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the application's Prometheus metrics.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	journalsPosted  *prometheus.CounterVec
	pairsCompleted  prometheus.Counter
	matchHits       *prometheus.CounterVec
}

// NewMetrics initialises the registry with the base HTTP metrics plus the
// accounting counters.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crossbooks_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "crossbooks_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	journals := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crossbooks_journal_entries_posted_total",
		Help: "Journal entries posted, by source type.",
	}, []string{"source_type"})
	pairs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "crossbooks_intercompany_pairs_completed_total",
		Help: "Intercompany transactions that reached COMPLETED.",
	})
	matches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "crossbooks_intercompany_match_hits_total",
		Help: "Transaction correlation hits by winning strategy.",
	}, []string{"strategy"})
	registry.MustRegister(requests, duration, journals, pairs, matches)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		journalsPosted:  journals,
		pairsCompleted:  pairs,
		matchHits:       matches,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// JournalPosted counts a posted journal entry.
func (m *Metrics) JournalPosted(sourceType string) {
	if m == nil {
		return
	}
	if sourceType == "" {
		sourceType = "manual"
	}
	m.journalsPosted.WithLabelValues(sourceType).Inc()
}

// PairCompleted counts a completed intercompany pairing.
func (m *Metrics) PairCompleted() {
	if m == nil {
		return
	}
	m.pairsCompleted.Inc()
}

// MatchHit counts a correlation hit for the named strategy.
func (m *Metrics) MatchHit(strategy string) {
	if m == nil {
		return
	}
	m.matchHits.WithLabelValues(strategy).Inc()
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
