// Package metrics holds the Prometheus collectors shared by the server, the
// submission pipeline and the offline worker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sefra"

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	LeadsReceived  prometheus.Counter
	Submissions    *prometheus.CounterVec
	SubmitDuration prometheus.Histogram
	Events         *prometheus.CounterVec
	CacheRequests  *prometheus.CounterVec
	SyncResults    *prometheus.CounterVec
	PendingQueue   prometheus.Gauge
	HTTPRequests   *prometheus.CounterVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		LeadsReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "leads_received_total",
			Help:      "Total number of leads accepted by the lead endpoint",
		}),
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lead_submissions_total",
			Help:      "Lead submissions attempted by the pipeline, by result",
		}, []string{"result"}),
		SubmitDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lead_submission_duration_seconds",
			Help:      "Duration of lead transport calls",
			Buckets:   prometheus.DefBuckets,
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Analytics events recorded, by event name",
		}, []string{"event"}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offline_cache_requests_total",
			Help:      "Requests seen by the offline worker, by outcome",
		}, []string{"outcome"}),
		SyncResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offline_sync_submissions_total",
			Help:      "Pending submissions retried by background sync, by result",
		}, []string{"result"}),
		PendingQueue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "offline_pending_submissions",
			Help:      "Submissions waiting in the retry queue after the last sync",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status class",
		}, []string{"route", "code"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.LeadsReceived, m.Submissions, m.SubmitDuration, m.Events,
			m.CacheRequests, m.SyncResults, m.PendingQueue, m.HTTPRequests,
		)
	}
	return m
}

// ObserveSubmission records a pipeline attempt.
func (m *Metrics) ObserveSubmission(result string, seconds float64) {
	if m == nil {
		return
	}
	m.Submissions.WithLabelValues(result).Inc()
	m.SubmitDuration.Observe(seconds)
}

// ObserveCache records an offline worker fetch outcome.
func (m *Metrics) ObserveCache(outcome string) {
	if m == nil {
		return
	}
	m.CacheRequests.WithLabelValues(outcome).Inc()
}

// ObserveSync records a retried submission and the queue size left behind.
func (m *Metrics) ObserveSync(result string) {
	if m == nil {
		return
	}
	m.SyncResults.WithLabelValues(result).Inc()
}

// SetPending updates the pending queue gauge.
func (m *Metrics) SetPending(n int) {
	if m == nil {
		return
	}
	m.PendingQueue.Set(float64(n))
}

// LeadReceived counts a lead accepted by the endpoint.
func (m *Metrics) LeadReceived() {
	if m == nil {
		return
	}
	m.LeadsReceived.Inc()
}

// ObserveHTTP counts a served request.
func (m *Metrics) ObserveHTTP(route, code string) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, code).Inc()
}
