package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modchat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "modchat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Chat metrics
	SessionsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "modchat_sessions_connected",
			Help: "Currently connected sessions",
		},
	)

	MessagesAccepted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modchat_messages_accepted_total",
			Help: "Chat messages accepted and broadcast",
		},
	)

	// reason: banned, muted, banned_word, invalid, rate_limited, unidentified, store_error
	MessagesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modchat_messages_rejected_total",
			Help: "Inbound messages rejected before broadcast",
		},
		[]string{"reason"},
	)

	// outcome: ok, unknown, denied, usage, failed
	CommandsExecuted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modchat_commands_total",
			Help: "Slash commands dispatched",
		},
		[]string{"verb", "outcome"},
	)

	RoomsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "modchat_rooms_open",
			Help: "Rooms sessions can join, configured and created",
		},
	)

	AutoModBans = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "modchat_automod_bans_total",
			Help: "Bans issued by the banned-word filter",
		},
	)

	StoreWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "modchat_store_write_failures_total",
			Help: "Failed durable writes, by document",
		},
		[]string{"document"},
	)
)
