package stream

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEventNew(t *testing.T) {
	frame := []byte(`{
		"type": "event.new",
		"id": "ev-42",
		"ticker": "AAPL",
		"headline": "Apple announces buyback",
		"eventType": "corporate_action",
		"publishedAt": "2026-08-21T14:03:00Z",
		"sourceUrl": "https://news.example.com/a",
		"impactScore": 71.5,
		"direction": "bullish",
		"confidence": 0.83
	}`)

	msg, err := DecodeMessage(frame)
	require.NoError(t, err)
	require.Equal(t, TypeEventNew, msg.Type)
	require.NotNil(t, msg.EventNew)

	ev := msg.EventNew
	assert.Equal(t, "ev-42", ev.ID)
	assert.Equal(t, "AAPL", ev.Ticker)
	assert.Equal(t, "corporate_action", ev.EventType)
	assert.Equal(t, 71.5, ev.ImpactScore)
	assert.Equal(t, "bullish", ev.Direction)
	assert.Equal(t, 0.83, ev.Confidence)
	assert.Equal(t, time.Date(2026, 8, 21, 14, 3, 0, 0, time.UTC), ev.PublishedAt)
	assert.Nil(t, msg.EventScored)
	assert.Nil(t, msg.Heartbeat)
}

func TestDecodeEventScored(t *testing.T) {
	frame := []byte(`{
		"type": "event.scored",
		"eventId": "ev-42",
		"score": 88,
		"confidence": 0.91,
		"direction": "bearish",
		"computedAt": "2026-08-21T14:05:00Z"
	}`)

	msg, err := DecodeMessage(frame)
	require.NoError(t, err)
	require.Equal(t, TypeEventScored, msg.Type)
	require.NotNil(t, msg.EventScored)

	ev := msg.EventScored
	assert.Equal(t, "ev-42", ev.EventID)
	assert.Equal(t, 88.0, ev.Score)
	assert.Equal(t, 0.91, ev.Confidence)
	assert.Equal(t, "bearish", ev.Direction)
	require.NotNil(t, ev.ComputedAt)
	assert.Equal(t, time.Date(2026, 8, 21, 14, 5, 0, 0, time.UTC), *ev.ComputedAt)
}

func TestDecodeEventScoredOptionalFieldsAbsent(t *testing.T) {
	frame := []byte(`{"type":"event.scored","eventId":"ev-1","score":10,"confidence":0.2}`)

	msg, err := DecodeMessage(frame)
	require.NoError(t, err)
	assert.Empty(t, msg.EventScored.Direction)
	assert.Nil(t, msg.EventScored.ComputedAt)
}

func TestDecodeHeartbeat(t *testing.T) {
	frame := []byte(`{"type":"heartbeat","timestamp":"2026-08-21T14:00:30Z"}`)

	msg, err := DecodeMessage(frame)
	require.NoError(t, err)
	require.Equal(t, TypeHeartbeat, msg.Type)
	require.NotNil(t, msg.Heartbeat)
	assert.Equal(t, time.Date(2026, 8, 21, 14, 0, 30, 0, time.UTC), msg.Heartbeat.Timestamp)
}

func TestDecodeUnknownType(t *testing.T) {
	frame := []byte(`{"type":"event.retracted","id":"ev-9"}`)

	msg, err := DecodeMessage(frame)
	require.Error(t, err)
	assert.Nil(t, msg)

	var unknown *ErrUnknownType
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "event.retracted", unknown.Type)
}

func TestDecodeMalformedFrame(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"type":"event.new","id":`))
	require.Error(t, err)
	assert.Nil(t, msg)

	var unknown *ErrUnknownType
	assert.False(t, errors.As(err, &unknown), "malformed JSON is not an unknown-type error")
}
