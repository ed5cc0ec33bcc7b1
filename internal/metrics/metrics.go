// Package metrics holds Prometheus instruments used across the service.
// All collectors are registered with the global registry, so importing this
// package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActiveBuilderSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "formstep_builder_sessions",
			Help: "Number of builder sessions currently held in memory.",
		})

	FormsPublishedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formstep_forms_published_total",
			Help: "Cumulative number of successful publish actions.",
		})

	PublishRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formstep_publish_rejected_total",
			Help: "Publish attempts rejected by a precondition.",
		})

	ResponsesSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formstep_responses_submitted_total",
			Help: "Cumulative number of stored responses.",
		})

	SubmissionsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formstep_submissions_rejected_total",
			Help: "Public submissions refused, by reason.",
		}, []string{"reason"})

	ShortenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formstep_shorten_total",
			Help: "Link-shortening attempts, by outcome (ok, error, stale).",
		}, []string{"outcome"})

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "formstep_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"})
)

func init() {
	prometheus.MustRegister(
		ActiveBuilderSessions,
		FormsPublishedTotal,
		PublishRejectedTotal,
		ResponsesSubmittedTotal,
		SubmissionsRejectedTotal,
		ShortenTotal,
		HTTPRequestDuration,
	)
}
