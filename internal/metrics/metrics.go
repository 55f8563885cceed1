// Package metrics exposes relief activity as Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"relief/internal/core"
)

const namespace = "relief"

// Metrics owns a private registry so tests and multiple servers never
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	donations     prometheus.Counter
	donatedCents  prometheus.Counter
	votes         *prometheus.CounterVec
	votesRejected *prometheus.CounterVec
	storeFailures *prometheus.CounterVec
	exports       *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	rateLimited   prometheus.Counter
	suspicious    prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		donations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "donations_total",
			Help:      "Donations recorded and persisted.",
		}),
		donatedCents: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "donated_cents_total",
			Help:      "Sum of persisted donation amounts in cents.",
		}),
		votes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Votes cast and persisted, by proposal.",
		}, []string{"proposal_id"}),
		votesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_rejected_total",
			Help:      "Vote attempts rejected, by reason.",
		}, []string{"reason"}),
		storeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_failures_total",
			Help:      "Failed key-value store operations.",
		}, []string{"op", "key"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Spreadsheet export attempts, by kind and outcome.",
		}, []string{"kind", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		suspicious: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "suspicious_requests_total",
			Help:      "Requests matching known attack patterns.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.donations, m.donatedCents, m.votes, m.votesRejected, m.storeFailures,
		m.exports, m.httpRequests, m.httpDuration, m.rateLimited, m.suspicious,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) DonationRecorded(amount core.Money) {
	m.donations.Inc()
	m.donatedCents.Add(float64(amount.Cents))
}

func (m *Metrics) VoteCast(proposalID int64) {
	m.votes.WithLabelValues(strconv.FormatInt(proposalID, 10)).Inc()
}

func (m *Metrics) VoteRejected(reason string) {
	m.votesRejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) StoreFailure(op, key string) {
	m.storeFailures.WithLabelValues(op, key).Inc()
}

// ExportRecorded counts one export attempt of kind ("donation" or "tally").
func (m *Metrics) ExportRecorded(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.exports.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) RateLimited() { m.rateLimited.Inc() }

func (m *Metrics) SuspiciousRequest() { m.suspicious.Inc() }
