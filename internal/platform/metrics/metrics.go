package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	IdentitiesRegistered prometheus.Counter
	SessionsEstablished  prometheus.Counter
	EvidenceSubmitted    prometheus.Counter
	EvidenceReviewed     *prometheus.CounterVec
	PolicyDenials        *prometheus.CounterVec
	UpstreamFailures     *prometheus.CounterVec
	RequestLatency       *prometheus.HistogramVec
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		IdentitiesRegistered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_identities_registered_total",
			Help: "Total number of identities registered",
		}),
		SessionsEstablished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_sessions_established_total",
			Help: "Total number of sessions established",
		}),
		EvidenceSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "custodia_evidence_submitted_total",
			Help: "Total number of evidence records created",
		}),
		EvidenceReviewed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_evidence_reviewed_total",
			Help: "Total number of evidence review decisions by outcome",
		}, []string{"decision"}),
		PolicyDenials: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_policy_denials_total",
			Help: "Total number of actions denied by the access policy",
		}, []string{"action"}),
		UpstreamFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "custodia_upstream_failures_total",
			Help: "Total number of collaborator call failures",
		}, []string{"collaborator"}),
		RequestLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "custodia_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "status"}),
	}
}

// IncrementIdentitiesRegistered increments the registration counter by 1.
func (m *Metrics) IncrementIdentitiesRegistered() {
	if m != nil {
		m.IdentitiesRegistered.Inc()
	}
}

// IncrementSessionsEstablished increments the session counter by 1.
func (m *Metrics) IncrementSessionsEstablished() {
	if m != nil {
		m.SessionsEstablished.Inc()
	}
}

// IncrementEvidenceSubmitted increments the submission counter by 1.
func (m *Metrics) IncrementEvidenceSubmitted() {
	if m != nil {
		m.EvidenceSubmitted.Inc()
	}
}

// IncrementEvidenceReviewed increments the review counter for a decision.
func (m *Metrics) IncrementEvidenceReviewed(decision string) {
	if m != nil {
		m.EvidenceReviewed.WithLabelValues(decision).Inc()
	}
}

// IncrementPolicyDenial increments the denial counter for an action.
func (m *Metrics) IncrementPolicyDenial(action string) {
	if m != nil {
		m.PolicyDenials.WithLabelValues(action).Inc()
	}
}

// IncrementUpstreamFailure increments the failure counter for a collaborator.
func (m *Metrics) IncrementUpstreamFailure(collaborator string) {
	if m != nil {
		m.UpstreamFailures.WithLabelValues(collaborator).Inc()
	}
}
