// Package metrics provides Prometheus metrics for the FitAI service.
//
// All Record and Set methods are safe to call on a nil *Metrics, so
// components can be constructed without metrics in tests.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "fitai"

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	ChatTurnsTotal     *prometheus.CounterVec
	ChatRepliesTotal   *prometheus.CounterVec
	ChatRejectedTotal  *prometheus.CounterVec
	SessionsActive     prometheus.Gauge
	SessionsStarted    prometheus.Counter
	SessionsEvicted    prometheus.Counter
	BookingLinksSent   *prometheus.CounterVec
	QualificationsDone prometheus.Counter

	LLMCallsTotal       *prometheus.CounterVec
	LLMCallDuration     *prometheus.HistogramVec
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
	GenerationLimited   *prometheus.CounterVec

	LeadsCapturedTotal *prometheus.CounterVec
	LeadNotifyFailures prometheus.Counter

	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	RateLimitHitsTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers collectors with the default registry.
func NewMetrics() *Metrics {
	m := build(prometheus.DefaultRegisterer)
	m.gatherer = prometheus.DefaultGatherer
	return m
}

// NewMetricsWithRegistry registers collectors with reg. Tests use a fresh
// registry per case.
func NewMetricsWithRegistry(reg *prometheus.Registry) *Metrics {
	m := build(reg)
	m.gatherer = reg
	return m
}

func build(registerer prometheus.Registerer) *Metrics {
	f := promauto.With(registerer)

	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "path"}),
		HTTPRequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),

		ChatTurnsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_turns_total",
			Help:      "Widget turns handled, by phase before the turn.",
		}, []string{"phase"}),
		ChatRepliesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_replies_total",
			Help:      "Replies produced, by source (model, alternate, fallback, default, flow).",
		}, []string{"source"}),
		ChatRejectedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_rejected_total",
			Help:      "Chat messages rejected before processing, by reason.",
		}, []string{"reason"}),
		SessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Live widget sessions.",
		}),
		SessionsStarted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Widget sessions started.",
		}),
		SessionsEvicted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_evicted_total",
			Help:      "Widget sessions evicted after expiring.",
		}),
		BookingLinksSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_links_sent_total",
			Help:      "Scheduling links sent, by trigger (reply, button).",
		}, []string{"trigger"}),
		QualificationsDone: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "qualifications_completed_total",
			Help:      "Widget conversations that answered every qualification question.",
		}),

		LLMCallsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "Generative model calls by model and status.",
		}, []string{"model", "status"}),
		LLMCallDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_duration_seconds",
			Help:      "Generative model call duration.",
			Buckets:   []float64{.25, .5, 1, 2, 5, 10, 20},
		}, []string{"model"}),
		CircuitBreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"service"}),
		CircuitBreakerTrips: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_trips_total",
			Help:      "Times a circuit breaker opened.",
		}, []string{"service"}),
		GenerationLimited: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_limited_total",
			Help:      "Model calls skipped by the spend limiter, by window.",
		}, []string{"window"}),

		LeadsCapturedTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_captured_total",
			Help:      "Leads saved, by source (form, chat) and whether they were new.",
		}, []string{"source", "result"}),
		LeadNotifyFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lead_notify_failures_total",
			Help:      "New-lead notifications that could not be delivered.",
		}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Lead store query duration.",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_query_errors_total",
			Help:      "Lead store query errors.",
		}, []string{"operation"}),

		RateLimitHitsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Requests rejected by the per-client rate limiter.",
		}, []string{"limiter"}),
	}
}

// Handler returns the scrape handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.HTTPRequestsInFlight.Inc()
		defer m.HTTPRequestsInFlight.Dec()

		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		path := normalizePath(r.URL.Path)
		m.HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.written = true
	return rw.ResponseWriter.Write(b)
}

// normalizePath collapses session IDs so route labels stay bounded.
func normalizePath(path string) string {
	const sessions = "/api/widget/sessions/"
	if strings.HasPrefix(path, sessions) && len(path) > len(sessions) {
		rest := path[len(sessions):]
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			return sessions + ":id" + rest[i:]
		}
		return sessions + ":id"
	}
	if strings.HasPrefix(path, "/static/") {
		return "/static/*"
	}
	return path
}

// RecordChatTurn counts a widget turn taken in phase.
func (m *Metrics) RecordChatTurn(phase string) {
	if m == nil {
		return
	}
	m.ChatTurnsTotal.WithLabelValues(phase).Inc()
}

// RecordReply counts a reply by where its text came from.
func (m *Metrics) RecordReply(source string) {
	if m == nil {
		return
	}
	m.ChatRepliesTotal.WithLabelValues(source).Inc()
}

// RecordChatRejected counts a message rejected by validation or locking.
func (m *Metrics) RecordChatRejected(reason string) {
	if m == nil {
		return
	}
	m.ChatRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordSessionStarted counts a new widget session.
func (m *Metrics) RecordSessionStarted() {
	if m == nil {
		return
	}
	m.SessionsStarted.Inc()
}

// RecordSessionsEvicted counts n expired sessions.
func (m *Metrics) RecordSessionsEvicted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SessionsEvicted.Add(float64(n))
}

// SetActiveSessions sets the live session gauge.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}

// RecordBookingLink counts a scheduling link sent by trigger.
func (m *Metrics) RecordBookingLink(trigger string) {
	if m == nil {
		return
	}
	m.BookingLinksSent.WithLabelValues(trigger).Inc()
}

// RecordQualificationCompleted counts a finished qualification.
func (m *Metrics) RecordQualificationCompleted() {
	if m == nil {
		return
	}
	m.QualificationsDone.Inc()
}

// RecordLLMCall records one model call.
func (m *Metrics) RecordLLMCall(model, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.LLMCallsTotal.WithLabelValues(model, status).Inc()
	m.LLMCallDuration.WithLabelValues(model).Observe(d.Seconds())
}

// SetCircuitBreakerState sets the breaker gauge (0=closed, 1=half-open, 2=open).
func (m *Metrics) SetCircuitBreakerState(service string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordCircuitTrip counts a breaker opening.
func (m *Metrics) RecordCircuitTrip(service string) {
	if m == nil {
		return
	}
	m.CircuitBreakerTrips.WithLabelValues(service).Inc()
}

// RecordGenerationLimited counts a model call skipped by the spend limiter.
func (m *Metrics) RecordGenerationLimited(window string) {
	if m == nil {
		return
	}
	m.GenerationLimited.WithLabelValues(window).Inc()
}

// RecordLeadCaptured counts a saved lead.
func (m *Metrics) RecordLeadCaptured(source string, created bool) {
	if m == nil {
		return
	}
	result := "updated"
	if created {
		result = "created"
	}
	m.LeadsCapturedTotal.WithLabelValues(source, result).Inc()
}

// RecordLeadNotifyFailure counts an undelivered lead notification.
func (m *Metrics) RecordLeadNotifyFailure() {
	if m == nil {
		return
	}
	m.LeadNotifyFailures.Inc()
}

// RecordDBQuery records a lead store query.
func (m *Metrics) RecordDBQuery(operation string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(operation).Observe(d.Seconds())
	if err != nil {
		m.DBQueryErrors.WithLabelValues(operation).Inc()
	}
}

// RecordRateLimitHit counts a rate-limited request.
func (m *Metrics) RecordRateLimitHit(limiter string) {
	if m == nil {
		return
	}
	m.RateLimitHitsTotal.WithLabelValues(limiter).Inc()
}
