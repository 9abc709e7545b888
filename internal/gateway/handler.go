package gateway

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	radarerrors "github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/errors"
	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/logger"
	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/metrics"
)

// AdminSecretHeader carries the shared secret for admin-classified routes.
const AdminSecretHeader = "X-Radar-Admin-Secret"

// RouteSource yields the route table a request is classified against.
// Implemented by StaticRoutes and RouteWatcher.
type RouteSource interface {
	Current() *RouteTable
}

// StaticRoutes serves one fixed table.
type StaticRoutes struct {
	table *RouteTable
}

// NewStaticRoutes wraps a fixed route table.
func NewStaticRoutes(table *RouteTable) *StaticRoutes {
	return &StaticRoutes{table: table}
}

// Current returns the fixed table.
func (s *StaticRoutes) Current() *RouteTable { return s.table }

// Handler classifies, authorizes and forwards every inbound request. All
// state is injected at construction; handling a request is a pure function
// of the request, the current table and the resolved principal.
type Handler struct {
	routes      RouteSource
	resolver    Resolver
	minter      *Minter
	forwarder   *Forwarder
	adminSecret []byte
	log         *zap.Logger
}

// HandlerConfig wires a Handler.
type HandlerConfig struct {
	Routes      RouteSource
	Resolver    Resolver
	Minter      *Minter
	Forwarder   *Forwarder
	AdminSecret string
	Log         *zap.Logger
}

// NewHandler builds the gateway's request handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		routes:      cfg.Routes,
		resolver:    cfg.Resolver,
		minter:      cfg.Minter,
		forwarder:   cfg.Forwarder,
		adminSecret: []byte(cfg.AdminSecret),
		log:         cfg.Log,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route := h.routes.Current().Classify(r.URL.Path)
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	start := time.Now()
	defer func() {
		metrics.GatewayRequestDuration.
			WithLabelValues(route.Class.String(), strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	}()

	switch route.Class {
	case ClassAdmin:
		h.serveAdmin(rec, r, route)
	case ClassPublic:
		h.forwarder.Forward(rec, r, "", route.CacheMaxAge)
	default:
		h.serveTiered(rec, r, route)
	}
}

// serveAdmin gates on the shared secret in constant time. The identity
// service is never consulted and the secret header passes through to the
// upstream. A mismatch reveals nothing about which admin routes exist.
func (h *Handler) serveAdmin(w http.ResponseWriter, r *http.Request, route Route) {
	log := logger.FromContext(r.Context(), h.log)
	presented := []byte(r.Header.Get(AdminSecretHeader))
	if len(h.adminSecret) == 0 || subtle.ConstantTimeCompare(presented, h.adminSecret) != 1 {
		WriteError(w, log, http.StatusForbidden, APIError{
			Code:    CodeForbidden,
			Message: "forbidden",
		})
		return
	}
	h.forwarder.Forward(w, r, "", route.CacheMaxAge)
}

func (h *Handler) serveTiered(w http.ResponseWriter, r *http.Request, route Route) {
	log := logger.FromContext(r.Context(), h.log)
	principal, err := h.resolver.Resolve(r.Context(), r)
	switch {
	case errors.Is(err, radarerrors.ErrUnauthenticated):
		WriteError(w, log, http.StatusUnauthorized, APIError{
			Code:    CodeUnauthenticated,
			Message: "authentication required",
		})
		return
	case errors.Is(err, radarerrors.ErrUnverified):
		WriteError(w, log, http.StatusUnauthorized, APIError{
			Code:    CodeUnverified,
			Message: "account verification required",
		})
		return
	case err != nil:
		log.Error("principal resolution failed", zap.Error(err))
		WriteError(w, log, http.StatusBadGateway, APIError{
			Code:    CodeUpstreamError,
			Message: "identity service unavailable",
		})
		return
	}

	if !PlanAtLeast(principal.Plan, route.RequiredPlan) {
		WriteError(w, log, http.StatusForbidden, APIError{
			Code:         CodePlanUpgradeRequired,
			Message:      "plan does not include this route",
			RequiredPlan: route.RequiredPlan,
		})
		return
	}

	token, err := h.minter.Mint(principal)
	if err != nil {
		log.Error("credential minting failed", zap.Error(err))
		WriteError(w, log, http.StatusInternalServerError, APIError{
			Code:    CodeUpstreamError,
			Message: "unable to mint downstream credential",
		})
		return
	}
	h.forwarder.Forward(w, r, "Bearer "+token, route.CacheMaxAge)
}
