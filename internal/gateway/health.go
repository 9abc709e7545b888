package gateway

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// probeTimeout bounds a single readiness check.
const probeTimeout = 5 * time.Second

// Health serves the gateway's own liveness and readiness endpoints. These
// are answered locally, never forwarded.
type Health struct {
	log   *zap.Logger
	ready atomic.Bool
}

// NewHealth builds a Health that starts not ready.
func NewHealth(log *zap.Logger) *Health {
	return &Health{log: log}
}

// SetReady flips the readiness flag.
func (h *Health) SetReady(ok bool) {
	h.ready.Store(ok)
}

// Register mounts /healthz and /readyz on mux.
func (h *Health) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		h.write(w, http.StatusOK, "ok")
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !h.ready.Load() {
			h.write(w, http.StatusServiceUnavailable, "not ready")
			return
		}
		h.write(w, http.StatusOK, "ready")
	})
}

// Watch keeps the readiness flag in sync with check until ctx is done. The
// first probe runs immediately so the gateway does not report not-ready for
// a full interval after a clean start.
func (h *Health) Watch(ctx context.Context, interval time.Duration, check func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		h.SetReady(h.probe(ctx, check))
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *Health) probe(ctx context.Context, check func(context.Context) error) bool {
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := check(probeCtx); err != nil {
		h.log.Warn("readiness check failed", zap.Error(err))
		return false
	}
	return true
}

func (h *Health) write(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		h.log.Debug("health response write failed", zap.Error(err))
	}
}
