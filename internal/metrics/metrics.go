package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gateway metrics exposed on /metrics.
var (
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "interviewhub_active_connections",
			Help: "Number of authenticated websocket connections",
		},
	)

	ActiveRooms = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "interviewhub_active_rooms",
			Help: "Number of interview rooms with at least one member",
		},
	)

	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interviewhub_messages_total",
			Help: "Persisted chat messages by sender",
		},
		[]string{"sender"},
	)

	RejectedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interviewhub_rejected_events_total",
			Help: "Inbound events rejected, by error code",
		},
		[]string{"code"},
	)

	AITurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "interviewhub_ai_turns_total",
			Help: "AI response turns by outcome",
		},
		[]string{"outcome"}, // outcome: done/failed
	)

	AIGenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "interviewhub_ai_generation_duration_seconds",
			Help:    "Generation call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1min
		},
	)

	AnalysisFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "interviewhub_analysis_failures_total",
			Help: "Downstream analysis failures (logged and swallowed)",
		},
	)
)
