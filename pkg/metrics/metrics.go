package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessagesPosted counts persisted messages by type (text|announcement).
	MessagesPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "athlos_messages_posted_total",
			Help: "Total number of messages persisted",
		},
		[]string{"type"},
	)

	// NotificationsFanned counts notification rows written by fan-out, by outcome.
	NotificationsFanned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "athlos_notifications_fanout_total",
			Help: "Total number of notification rows attempted by fan-out",
		},
		[]string{"result"},
	)

	// ParticipantAutoJoins counts lazy participant materialisations.
	ParticipantAutoJoins = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "athlos_participant_auto_joins_total",
			Help: "Total number of participants auto-joined on first access",
		},
	)

	// ConversationsCreated counts conversations created by kind.
	ConversationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "athlos_conversations_created_total",
			Help: "Total number of conversations created",
		},
		[]string{"kind"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "athlos_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
