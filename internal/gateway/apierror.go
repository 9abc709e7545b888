package gateway

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/json"
	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/metrics"
)

// Stable machine-readable error codes returned to callers.
const (
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeUnverified          = "UNVERIFIED"
	CodePlanUpgradeRequired = "PLAN_UPGRADE_REQUIRED"
	CodeForbidden           = "FORBIDDEN"
	CodeUpstreamTimeout     = "UPSTREAM_TIMEOUT"
	CodeUpstreamError       = "UPSTREAM_ERROR"
)

// APIError is the body of every gateway-originated error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RequiredPlan string `json:"requiredPlan,omitempty"`
}

type errorEnvelope struct {
	Error APIError `json:"error"`
}

// WriteError writes the error envelope, logs the rejection and records it.
func WriteError(w http.ResponseWriter, log *zap.Logger, status int, apiErr APIError) {
	metrics.GatewayRejections.WithLabelValues(apiErr.Code).Inc()
	log.Warn("request rejected",
		zap.String("code", apiErr.Code),
		zap.Int("status", status),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorEnvelope{Error: apiErr}); err != nil {
		log.Error("failed to write error envelope", zap.Error(err))
	}
}
