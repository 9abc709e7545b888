package stream

import (
	"fmt"
	"time"

	"github.com/Dizzy2Dizzy/ImpactRadarV2-sub000/pkg/json"
)

// Wire discriminators carried in the "type" field of every frame.
const (
	TypeEventNew    = "event.new"
	TypeEventScored = "event.scored"
	TypeHeartbeat   = "heartbeat"
)

// ErrUnknownType marks a frame whose discriminator is not one of the
// recognized variants. Callers drop such frames; new variants must never
// break an old client.
type ErrUnknownType struct {
	Type string
}

func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown message type %q", e.Type)
}

// EventNew announces a freshly published market event.
type EventNew struct {
	ID          string    `json:"id"`
	Ticker      string    `json:"ticker"`
	Headline    string    `json:"headline"`
	EventType   string    `json:"eventType"`
	PublishedAt time.Time `json:"publishedAt"`
	SourceURL   string    `json:"sourceUrl,omitempty"`
	ImpactScore float64   `json:"impactScore"`
	Direction   string    `json:"direction,omitempty"`
	Confidence  float64   `json:"confidence"`
}

// EventScored carries a model re-score for an already announced event.
type EventScored struct {
	EventID    string     `json:"eventId"`
	Score      float64    `json:"score"`
	Confidence float64    `json:"confidence"`
	Direction  string     `json:"direction,omitempty"`
	ComputedAt *time.Time `json:"computedAt,omitempty"`
}

// Heartbeat is the feed liveness signal.
type Heartbeat struct {
	Timestamp time.Time `json:"timestamp"`
}

// Message is the decoded form of one frame. Exactly one variant field is
// set, matching Type.
type Message struct {
	Type        string
	EventNew    *EventNew
	EventScored *EventScored
	Heartbeat   *Heartbeat
}

type envelope struct {
	Type string `json:"type"`
}

// DecodeMessage decodes a single complete frame into a typed message. The
// discriminator is peeked first so unknown variants are cheap to reject.
func DecodeMessage(frame []byte) (*Message, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	msg := &Message{Type: env.Type}
	switch env.Type {
	case TypeEventNew:
		var ev EventNew
		if err := json.Unmarshal(frame, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", TypeEventNew, err)
		}
		msg.EventNew = &ev
	case TypeEventScored:
		var ev EventScored
		if err := json.Unmarshal(frame, &ev); err != nil {
			return nil, fmt.Errorf("decode %s: %w", TypeEventScored, err)
		}
		msg.EventScored = &ev
	case TypeHeartbeat:
		var hb Heartbeat
		if err := json.Unmarshal(frame, &hb); err != nil {
			return nil, fmt.Errorf("decode %s: %w", TypeHeartbeat, err)
		}
		msg.Heartbeat = &hb
	default:
		return nil, &ErrUnknownType{Type: env.Type}
	}

	return msg, nil
}
