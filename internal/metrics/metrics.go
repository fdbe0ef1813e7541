// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "contactd"

// Submission outcomes recorded by ObserveSubmission.
const (
	OutcomeDelivered          = "delivered"
	OutcomeStoredNotNotified  = "stored_not_notified"
	OutcomeSpam               = "spam"
	OutcomeInvalid            = "invalid"
	OutcomePersistenceFailure = "persistence_failed"
)

// Metrics groups every collector the service updates.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	SubmissionsTotal    *prometheus.CounterVec
	RateLimitedTotal    prometheus.Counter
	RateLimitErrors     prometheus.Counter
	MailSendDuration    *prometheus.HistogramVec
	MailBreakerState    prometheus.Gauge
	SentimentScore      prometheus.Histogram
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "code"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		SubmissionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "submissions_total",
				Help:      "Contact submissions by outcome",
			},
			[]string{"outcome"},
		),
		RateLimitedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limited_total",
				Help:      "Contact requests rejected by the rate limiter",
			},
		),
		RateLimitErrors: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_store_errors_total",
				Help:      "Rate limit store failures (request allowed)",
			},
		),
		MailSendDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "mail_send_duration_seconds",
				Help:      "Mail send latency by message kind and result",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"kind", "result"},
		),
		MailBreakerState: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "mail_circuit_breaker_state",
				Help:      "Mail circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
		),
		SentimentScore: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sentiment_score",
				Help:      "Sentiment score of stored submissions",
				Buckets:   []float64{-10, -5, -2, -1, 0, 1, 2, 5, 10},
			},
		),
	}
}

// Handler exposes reg in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}

func (m *Metrics) ObserveRateLimitError() {
	if m == nil {
		return
	}
	m.RateLimitErrors.Inc()
}

// ObserveMailSend records one send. kind is "owner" or "acknowledgement".
func (m *Metrics) ObserveMailSend(kind string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.MailSendDuration.WithLabelValues(kind, result).Observe(d.Seconds())
}

// SetMailBreakerState maps a breaker state name to the gauge value.
func (m *Metrics) SetMailBreakerState(state string) {
	if m == nil {
		return
	}
	switch state {
	case "half-open":
		m.MailBreakerState.Set(1)
	case "open":
		m.MailBreakerState.Set(2)
	default:
		m.MailBreakerState.Set(0)
	}
}

func (m *Metrics) ObserveSentiment(score int) {
	if m == nil {
		return
	}
	m.SentimentScore.Observe(float64(score))
}
