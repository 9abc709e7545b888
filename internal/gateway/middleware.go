package gateway

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/logger"
	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/metrics"
)

// requestIDHeader is echoed back so callers can correlate retries and logs.
const requestIDHeader = "X-Request-Id"

// statusRecorder captures the status code written downstream.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogger tags every request with an id, logs start and completion and
// tracks the in-flight gauge.
func RequestLogger(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := logger.WithRequestID(r.Context(), requestID)
		w.Header().Set(requestIDHeader, requestID)

		ctx, span := otel.Tracer("gateway").Start(ctx, r.Method+" "+r.URL.Path,
			trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		metrics.GatewayActiveRequests.Inc()
		defer metrics.GatewayActiveRequests.Dec()

		reqLog := log.With(
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		reqLog.Info("received request")

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r.WithContext(ctx))

		reqLog.Info("request completed",
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
