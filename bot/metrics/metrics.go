// Package metrics registers the bot's Prometheus collectors. They are served
// by the HTTP intake API on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpdatesTotal counts handled inbound events by kind (message, callback).
	UpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contactbot_updates_total",
		Help: "Inbound events handled by the dispatch engine.",
	}, []string{"kind"})

	// DeliveriesTotal counts primary delivery attempts by outcome.
	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contactbot_deliveries_total",
		Help: "Primary outbound deliveries by outcome (ok, fail, media_fallback, empty).",
	}, []string{"outcome"})

	// FollowUpsTotal counts delayed follow-up lifecycle events.
	FollowUpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contactbot_follow_ups_total",
		Help: "Delayed follow-up sends by lifecycle event (scheduled, sent, failed, cancelled).",
	}, []string{"event"})

	// SubmissionsTotal counts rows accepted through the HTTP intake endpoint.
	SubmissionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "contactbot_submissions_total",
		Help: "Contact rows accepted via POST /submit.",
	})
)
