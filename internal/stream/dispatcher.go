package stream

import (
	"errors"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/metrics"
)

// Dispatcher routes decoded frames to the buffer. One malformed or unknown
// frame is dropped without disturbing the stream; heartbeats only stamp the
// liveness clock and never influence reconnection.
type Dispatcher struct {
	buffer        *EventBuffer
	log           *zap.Logger
	lastHeartbeat atomic.Int64
	onEvent       func(LiveEvent)
}

func NewDispatcher(buffer *EventBuffer, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		buffer: buffer,
		log:    log.With(zap.String("module", "dispatcher")),
	}
}

// SetOnEvent registers a hook invoked for every event actually inserted
// into the buffer. Set it before the connection starts; it is read from the
// dispatch path without locking.
func (d *Dispatcher) SetOnEvent(fn func(LiveEvent)) {
	d.onEvent = fn
}

// Dispatch decodes one frame and applies it. Never returns an error: every
// failure mode here is a local drop by design of the protocol.
func (d *Dispatcher) Dispatch(frame []byte) {
	msg, err := DecodeMessage(frame)
	if err != nil {
		var unknown *ErrUnknownType
		if errors.As(err, &unknown) {
			metrics.StreamFrames.WithLabelValues("unknown_type").Inc()
			d.log.Debug("dropping frame with unknown type", zap.String("type", unknown.Type))
			return
		}
		metrics.StreamFrames.WithLabelValues("malformed").Inc()
		d.log.Warn("dropping malformed frame", zap.Error(err))
		return
	}
	metrics.StreamFrames.WithLabelValues("decoded").Inc()
	metrics.StreamEvents.WithLabelValues(msg.Type).Inc()

	switch msg.Type {
	case TypeEventNew:
		ev := LiveEvent{
			ID:          msg.EventNew.ID,
			Ticker:      msg.EventNew.Ticker,
			Headline:    msg.EventNew.Headline,
			EventType:   msg.EventNew.EventType,
			PublishedAt: msg.EventNew.PublishedAt,
			SourceURL:   msg.EventNew.SourceURL,
			ImpactScore: msg.EventNew.ImpactScore,
			Direction:   msg.EventNew.Direction,
			Confidence:  msg.EventNew.Confidence,
			ReceivedAt:  time.Now(),
		}
		if d.buffer.Insert(ev) && d.onEvent != nil {
			d.onEvent(ev)
		}
	case TypeEventScored:
		d.buffer.ApplyScore(msg.EventScored.EventID, ScorePatch{
			Score:      msg.EventScored.Score,
			Confidence: msg.EventScored.Confidence,
			Direction:  msg.EventScored.Direction,
			ComputedAt: msg.EventScored.ComputedAt,
		})
	case TypeHeartbeat:
		d.lastHeartbeat.Store(msg.Heartbeat.Timestamp.UnixNano())
	}
}

// LastHeartbeat returns the most recent heartbeat timestamp in UTC, or the
// zero time if none has been seen. Safe from any goroutine.
func (d *Dispatcher) LastHeartbeat() time.Time {
	nanos := d.lastHeartbeat.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos).UTC()
}
