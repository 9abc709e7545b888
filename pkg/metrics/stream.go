package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StreamFrames tracks the total number of NDJSON frames by outcome (decoded, malformed, unknown_type)
	StreamFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radar_stream_frames_total",
			Help: "Total number of NDJSON frames by outcome",
		},
		[]string{"outcome"},
	)

	// StreamEvents tracks the total number of dispatched feed events by type
	StreamEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radar_stream_events_total",
			Help: "Total number of dispatched feed events by type",
		},
		[]string{"type"},
	)

	// StreamReconnects tracks the total number of reconnect attempts
	StreamReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "radar_stream_reconnects_total",
			Help: "Total number of reconnect attempts",
		},
	)

	// ConnectionState tracks the current connection state as a numeric code
	ConnectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "radar_stream_connection_state",
			Help: "Current connection state (0 idle, 1 connecting, 2 connected, 3 disconnected, 4 error, 5 disabled)",
		},
	)

	// BufferSize tracks the number of events currently held in the rolling buffer
	BufferSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "radar_stream_buffer_size",
			Help: "Number of events currently held in the rolling buffer",
		},
	)

	// MirrorPublishes tracks snapshot mirror publishes by status (ok, error, open_breaker)
	MirrorPublishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radar_stream_mirror_publishes_total",
			Help: "Total number of snapshot mirror publishes by status",
		},
		[]string{"status"},
	)
)
