package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/metrics"
)

// SnapshotStore is where the mirror publishes. *redis.Cache satisfies it;
// tests substitute their own.
type SnapshotStore interface {
	Set(ctx context.Context, entity, attribute string, value interface{}, ttl time.Duration) error
}

// SnapshotPayload is the mirrored view other processes read from Redis.
type SnapshotPayload struct {
	Events        []LiveEvent `json:"events"`
	LastHeartbeat time.Time   `json:"lastHeartbeat"`
	PublishedAt   time.Time   `json:"publishedAt"`
}

// Mirror periodically publishes the buffer and the feed liveness stamp to a
// snapshot store so dashboards and sibling processes can read the radar
// without holding a feed connection. A circuit breaker keeps a dead store
// from slowing the publish loop; mirror failures never disturb the stream.
type Mirror struct {
	store      SnapshotStore
	buffer     *EventBuffer
	dispatcher *Dispatcher
	breaker    *gobreaker.CircuitBreaker
	interval   time.Duration
	log        *zap.Logger
	cron       *cron.Cron
}

func NewMirror(store SnapshotStore, buffer *EventBuffer, dispatcher *Dispatcher, interval time.Duration, log *zap.Logger) *Mirror {
	log = log.With(zap.String("module", "mirror"))
	settings := gobreaker.Settings{
		Name:        "RadarSnapshotMirror",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("Circuit breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}
	return &Mirror{
		store:      store,
		buffer:     buffer,
		dispatcher: dispatcher,
		breaker:    gobreaker.NewCircuitBreaker(settings),
		interval:   interval,
		log:        log,
	}
}

// Publish writes one snapshot and the liveness stamp through the breaker.
// Keys expire after two missed publishes so consumers never read a radar
// that stopped mirroring.
func (m *Mirror) Publish(ctx context.Context) error {
	_, err := m.breaker.Execute(func() (interface{}, error) {
		payload := SnapshotPayload{
			Events:        m.buffer.Snapshot(),
			LastHeartbeat: m.dispatcher.LastHeartbeat(),
			PublishedAt:   time.Now(),
		}
		ttl := 2 * m.interval
		if err := m.store.Set(ctx, "snapshot", "latest", payload, ttl); err != nil {
			return nil, err
		}
		if err := m.store.Set(ctx, "heartbeat", "", payload.LastHeartbeat, ttl); err != nil {
			return nil, err
		}
		return nil, nil
	})

	switch {
	case err == nil:
		metrics.MirrorPublishes.WithLabelValues("ok").Inc()
		return nil
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.MirrorPublishes.WithLabelValues("open_breaker").Inc()
		m.log.Debug("snapshot publish skipped, breaker open")
		return err
	default:
		metrics.MirrorPublishes.WithLabelValues("error").Inc()
		m.log.Warn("snapshot publish failed", zap.Error(err))
		return err
	}
}

// Start schedules periodic publishes and blocks the scheduler's shutdown on
// ctx. Returns an error only if the schedule itself cannot be registered.
func (m *Mirror) Start(ctx context.Context) error {
	m.cron = cron.New()
	spec := fmt.Sprintf("@every %s", m.interval)
	if _, err := m.cron.AddFunc(spec, func() {
		// Publish logs its own failures; the schedule keeps running.
		_ = m.Publish(ctx)
	}); err != nil {
		return fmt.Errorf("register mirror schedule: %w", err)
	}
	m.cron.Start()
	m.log.Info("snapshot mirror started", zap.Duration("interval", m.interval))

	go func() {
		<-ctx.Done()
		stopCtx := m.cron.Stop()
		<-stopCtx.Done()
		m.log.Info("snapshot mirror stopped")
	}()
	return nil
}
