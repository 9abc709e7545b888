package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *EventBuffer) {
	t.Helper()
	buf := NewEventBuffer(10)
	return NewDispatcher(buf, zap.NewNop()), buf
}

func TestDispatchEventNew(t *testing.T) {
	d, buf := newTestDispatcher(t)

	d.Dispatch([]byte(`{"type":"event.new","id":"ev-1","ticker":"AAPL","headline":"h","eventType":"news","publishedAt":"2026-08-21T10:00:00Z","impactScore":55,"confidence":0.7}`))

	snap := buf.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "ev-1", snap[0].ID)
	assert.Equal(t, 55.0, snap[0].ImpactScore)
	assert.False(t, snap[0].ReceivedAt.IsZero(), "ingestion clock is stamped locally")
}

func TestDispatchEventScored(t *testing.T) {
	d, buf := newTestDispatcher(t)

	d.Dispatch([]byte(`{"type":"event.new","id":"ev-1","ticker":"AAPL","headline":"h","eventType":"news","publishedAt":"2026-08-21T10:00:00Z","impactScore":55,"confidence":0.7}`))
	d.Dispatch([]byte(`{"type":"event.scored","eventId":"ev-1","score":90,"confidence":0.95,"direction":"bullish"}`))

	snap := buf.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 90.0, snap[0].ImpactScore)
	assert.Equal(t, "bullish", snap[0].Direction)
}

func TestDispatchScoreForUnknownEventIsSilent(t *testing.T) {
	d, buf := newTestDispatcher(t)

	d.Dispatch([]byte(`{"type":"event.scored","eventId":"ghost","score":90,"confidence":0.95}`))

	assert.Equal(t, 0, buf.Len())
}

func TestDispatchHeartbeat(t *testing.T) {
	d, _ := newTestDispatcher(t)
	assert.True(t, d.LastHeartbeat().IsZero())

	d.Dispatch([]byte(`{"type":"heartbeat","timestamp":"2026-08-21T10:30:00Z"}`))

	assert.Equal(t, time.Date(2026, 8, 21, 10, 30, 0, 0, time.UTC), d.LastHeartbeat())
}

func TestDispatchMalformedFrameIsDropped(t *testing.T) {
	d, buf := newTestDispatcher(t)

	d.Dispatch([]byte(`{"type":"event.new","id":`))
	d.Dispatch([]byte(`not json at all`))

	assert.Equal(t, 0, buf.Len())
}

func TestDispatchUnknownTypeIsDropped(t *testing.T) {
	d, buf := newTestDispatcher(t)

	d.Dispatch([]byte(`{"type":"event.retracted","id":"ev-1"}`))

	assert.Equal(t, 0, buf.Len())
}

func TestDispatchPausedBufferSkipsInsert(t *testing.T) {
	d, buf := newTestDispatcher(t)
	buf.SetPaused(true)

	d.Dispatch([]byte(`{"type":"event.new","id":"ev-1","ticker":"AAPL","headline":"h","eventType":"news","publishedAt":"2026-08-21T10:00:00Z","impactScore":55,"confidence":0.7}`))

	assert.Equal(t, 0, buf.Len())
}

func TestOnEventHookFiresOnlyOnInsert(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var seen []string
	d.SetOnEvent(func(ev LiveEvent) {
		seen = append(seen, ev.ID)
	})

	frame := []byte(`{"type":"event.new","id":"ev-1","ticker":"AAPL","headline":"h","eventType":"news","publishedAt":"2026-08-21T10:00:00Z","impactScore":55,"confidence":0.7}`)
	d.Dispatch(frame)
	d.Dispatch(frame) // redelivery: deduped, hook must not fire again

	assert.Equal(t, []string{"ev-1"}, seen)
}
