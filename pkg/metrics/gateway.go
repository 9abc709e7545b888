package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GatewayRequestDuration tracks the duration of forwarded requests by route class and status
	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "radar_gateway_request_duration_seconds",
			Help:    "Time spent forwarding requests by route class and upstream status",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"class", "status"},
	)

	// GatewayRejections tracks requests rejected before forwarding by error code
	GatewayRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radar_gateway_rejections_total",
			Help: "Total number of requests rejected before forwarding by error code",
		},
		[]string{"code"},
	)

	// GatewayUpstreamTimeouts tracks forwarded requests that exceeded the execution bound
	GatewayUpstreamTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "radar_gateway_upstream_timeouts_total",
			Help: "Total number of forwarded requests that exceeded the execution bound",
		},
	)

	// GatewayActiveRequests tracks the number of requests currently being forwarded
	GatewayActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "radar_gateway_active_requests",
			Help: "Number of requests currently being forwarded",
		},
	)

	// TokenErrors tracks feed credential minting and validation errors
	TokenErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radar_gateway_token_errors_total",
			Help: "Total number of feed credential errors by type",
		},
		[]string{"error_type"},
	)
)
