package stream

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeEvent(id string, score float64) LiveEvent {
	return LiveEvent{
		ID:          id,
		Ticker:      "TSLA",
		Headline:    "headline " + id,
		EventType:   "news",
		PublishedAt: time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC),
		ImpactScore: score,
		Confidence:  0.5,
		ReceivedAt:  time.Now(),
	}
}

func TestBufferInsertNewestFirst(t *testing.T) {
	b := NewEventBuffer(10)

	require.True(t, b.Insert(makeEvent("a", 10)))
	require.True(t, b.Insert(makeEvent("b", 20)))
	require.True(t, b.Insert(makeEvent("c", 30)))

	snap := b.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "c", snap[0].ID)
	assert.Equal(t, "b", snap[1].ID)
	assert.Equal(t, "a", snap[2].ID)
}

func TestBufferDuplicateInsertIsNoOp(t *testing.T) {
	b := NewEventBuffer(10)

	require.True(t, b.Insert(makeEvent("a", 10)))
	before := b.Snapshot()

	dup := makeEvent("a", 99)
	dup.Headline = "changed"
	assert.False(t, b.Insert(dup))

	after := b.Snapshot()
	assert.Equal(t, before, after, "duplicate insert must leave the buffer unchanged")
	assert.Equal(t, 1, b.Len())
}

func TestBufferCapacityEvictsOldest(t *testing.T) {
	b := NewEventBuffer(DefaultBufferCapacity)

	for i := 0; i < DefaultBufferCapacity; i++ {
		require.True(t, b.Insert(makeEvent(fmt.Sprintf("ev-%03d", i), float64(i))))
	}
	require.Equal(t, DefaultBufferCapacity, b.Len())

	require.True(t, b.Insert(makeEvent("ev-overflow", 1)))
	assert.Equal(t, DefaultBufferCapacity, b.Len(), "size never exceeds capacity")

	snap := b.Snapshot()
	assert.Equal(t, "ev-overflow", snap[0].ID)
	assert.Equal(t, "ev-001", snap[len(snap)-1].ID, "exactly the oldest entry is evicted")
	for _, ev := range snap {
		assert.NotEqual(t, "ev-000", ev.ID)
	}

	// The evicted id may be inserted again; it is no longer a duplicate.
	assert.True(t, b.Insert(makeEvent("ev-000", 0)))
}

func TestBufferApplyScore(t *testing.T) {
	b := NewEventBuffer(10)
	require.True(t, b.Insert(makeEvent("a", 10)))

	at := time.Date(2026, 8, 21, 15, 0, 0, 0, time.UTC)
	ok := b.ApplyScore("a", ScorePatch{Score: 77, Confidence: 0.9, Direction: "bearish", ComputedAt: &at})
	require.True(t, ok)

	snap := b.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, 77.0, snap[0].ImpactScore)
	require.NotNil(t, snap[0].Score)
	assert.Equal(t, 77.0, *snap[0].Score)
	assert.Equal(t, 0.9, snap[0].Confidence)
	assert.Equal(t, "bearish", snap[0].Direction)
	require.NotNil(t, snap[0].ComputedAt)
	assert.Equal(t, at, *snap[0].ComputedAt)
}

func TestBufferApplyScoreSkipsEmptyPatchFields(t *testing.T) {
	b := NewEventBuffer(10)
	ev := makeEvent("a", 10)
	ev.Direction = "bullish"
	require.True(t, b.Insert(ev))

	require.True(t, b.ApplyScore("a", ScorePatch{Score: 50, Confidence: 0.6}))

	snap := b.Snapshot()
	assert.Equal(t, "bullish", snap[0].Direction, "empty direction leaves the old value")
	assert.Nil(t, snap[0].ComputedAt)
}

func TestBufferApplyScoreAbsentIDIsNoOp(t *testing.T) {
	b := NewEventBuffer(10)
	require.True(t, b.Insert(makeEvent("a", 10)))
	before := b.Snapshot()

	assert.False(t, b.ApplyScore("never-seen", ScorePatch{Score: 99, Confidence: 1}))

	assert.Equal(t, before, b.Snapshot(), "buffer contents must be unchanged")
}

func TestBufferPauseSuppressesInsertion(t *testing.T) {
	b := NewEventBuffer(10)
	require.True(t, b.Insert(makeEvent("a", 10)))

	paused := b.TogglePause()
	require.True(t, paused)
	assert.True(t, b.Paused())

	assert.False(t, b.Insert(makeEvent("b", 20)), "insert while paused is a no-op")
	assert.Equal(t, 1, b.Len(), "already buffered events are unaffected")

	// Score updates still apply while paused.
	assert.True(t, b.ApplyScore("a", ScorePatch{Score: 42, Confidence: 0.4}))

	require.False(t, b.TogglePause())
	assert.True(t, b.Insert(makeEvent("b", 20)))
}

func TestBufferClear(t *testing.T) {
	b := NewEventBuffer(10)
	require.True(t, b.Insert(makeEvent("a", 10)))
	require.True(t, b.Insert(makeEvent("b", 20)))

	b.Clear()
	assert.Equal(t, 0, b.Len())

	// Cleared ids are insertable again.
	assert.True(t, b.Insert(makeEvent("a", 10)))
}

func TestSnapshotIsIsolatedFromBuffer(t *testing.T) {
	b := NewEventBuffer(10)
	require.True(t, b.Insert(makeEvent("a", 10)))
	require.True(t, b.ApplyScore("a", ScorePatch{Score: 30, Confidence: 0.3}))

	snap := b.Snapshot()
	snap[0].Headline = "mutated"
	*snap[0].Score = 999

	fresh := b.Snapshot()
	assert.Equal(t, "headline a", fresh[0].Headline)
	assert.Equal(t, 30.0, *fresh[0].Score)
}
