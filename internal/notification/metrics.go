package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_created_total",
		Help: "Total number of notifications created, by event tag.",
	}, []string{"event"})

	DuplicateEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_duplicate_events_total",
		Help: "Total number of emits suppressed by event-key deduplication.",
	})

	DeliveryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_delivery_attempts_total",
		Help: "Total number of delivery attempts, by outcome.",
	}, []string{"outcome"}) // delivered, deferred, failed

	RetriesExhausted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notifications_retries_exhausted_total",
		Help: "Total number of notifications left permanently failed.",
	})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notifications_active_sessions",
		Help: "Current number of open WebSocket sessions.",
	})

	RetryBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "notifications_retry_backlog",
		Help: "Number of failed notifications picked up in the last retry batch.",
	})
)
