// Package metrics exposes the Prometheus instrumentation shared by the
// radar services. Collectors are registered on the default registry via
// promauto; Handler serves them for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the scrape handler for the default registry. Mount it on
// the ops listener of each service.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StateCode is the gauge encoding of a connection state name. Unknown names
// map to -1 so a bad caller shows up on the dashboard instead of aliasing a
// real state.
func StateCode(state string) float64 {
	switch state {
	case "idle":
		return 0
	case "connecting":
		return 1
	case "connected":
		return 2
	case "disconnected":
		return 3
	case "error":
		return 4
	case "disabled":
		return 5
	default:
		return -1
	}
}
