package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsReceived counts stream events received per pipeline kind.
	EventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integration_events_received_total",
		Help: "The total number of stream events received",
	}, []string{"kind"})

	// EventsSent counts attempts accepted by the target system per pipeline kind.
	EventsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integration_events_sent_total",
		Help: "The total number of events accepted by the target system",
	}, []string{"kind"})

	// EventsSkipped counts events skipped as out of scope or duplicate.
	EventsSkipped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integration_events_skipped_total",
		Help: "The total number of events skipped as out of scope or duplicate",
	}, []string{"kind"})

	// EventsFailed counts attempts that ended in FAILED state.
	EventsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "integration_events_failed_total",
		Help: "The total number of events that failed processing",
	}, []string{"kind"})

	// AlertsPublished counts operator alerts published to SNS.
	AlertsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "integration_alerts_published_total",
		Help: "The total number of operator alerts published",
	})

	// RetriesPromoted counts failed attempts automatically promoted back to READY.
	RetriesPromoted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "integration_retries_promoted_total",
		Help: "The total number of failed attempts promoted for retry",
	})
)
