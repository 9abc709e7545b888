package stream

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectFrames(f *Framer, chunks ...[]byte) [][]byte {
	var out [][]byte
	for _, c := range chunks {
		for _, frame := range f.Feed(c) {
			copied := append([]byte(nil), frame...)
			out = append(out, copied)
		}
	}
	return out
}

func TestFramerSingleChunk(t *testing.T) {
	f := NewFramer()
	frames := f.Feed([]byte("one\ntwo\nthree\n"))
	require.Len(t, frames, 3)
	assert.Equal(t, "one", string(frames[0]))
	assert.Equal(t, "two", string(frames[1]))
	assert.Equal(t, "three", string(frames[2]))
}

func TestFramerRetainsPartial(t *testing.T) {
	f := NewFramer()

	frames := f.Feed([]byte(`{"type":"heart`))
	assert.Empty(t, frames)

	frames = f.Feed([]byte("beat\"}\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, `{"type":"heartbeat"}`, string(frames[0]))
}

func TestFramerDiscardsBlankLines(t *testing.T) {
	f := NewFramer()
	frames := f.Feed([]byte("\n\none\n\r\ntwo\n\n"))
	require.Len(t, frames, 2)
	assert.Equal(t, "one", string(frames[0]))
	assert.Equal(t, "two", string(frames[1]))
}

func TestFramerReset(t *testing.T) {
	f := NewFramer()
	f.Feed([]byte("half a fra"))
	f.Reset()

	frames := f.Feed([]byte("me\n"))
	require.Len(t, frames, 1)
	assert.Equal(t, "me", string(frames[0]))
}

// Reassembly must be invariant under chunk boundaries: every way of cutting
// a three-frame stream into three chunks yields the same frames.
func TestFramerChunkBoundaryInvariance(t *testing.T) {
	want := [][]byte{
		[]byte(`{"type":"event.new","id":"ev-1"}`),
		[]byte(`{"type":"event.scored","eventId":"ev-1"}`),
		[]byte(`{"type":"heartbeat"}`),
	}
	stream := bytes.Join(want, []byte("\n"))
	stream = append(stream, '\n')

	for i := 0; i <= len(stream); i++ {
		for j := i; j <= len(stream); j++ {
			f := NewFramer()
			got := collectFrames(f, stream[:i], stream[i:j], stream[j:])
			require.Lenf(t, got, len(want), "split at %d,%d", i, j)
			for k := range want {
				assert.Equalf(t, string(want[k]), string(got[k]), "split at %d,%d frame %d", i, j, k)
			}
		}
	}
}

func TestFramerRandomChunkings(t *testing.T) {
	var want [][]byte
	var stream []byte
	for i := 0; i < 40; i++ {
		frame := []byte(`{"type":"heartbeat","seq":` + string(rune('0'+i%10)) + `}`)
		want = append(want, frame)
		stream = append(stream, frame...)
		stream = append(stream, '\n')
	}

	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 25; trial++ {
		f := NewFramer()
		var got [][]byte
		rest := stream
		for len(rest) > 0 {
			n := 1 + rng.Intn(len(rest))
			got = append(got, collectFrames(f, rest[:n])...)
			rest = rest[n:]
		}
		require.Lenf(t, got, len(want), "trial %d", trial)
		for k := range want {
			assert.Equal(t, string(want[k]), string(got[k]))
		}
	}
}

func TestFramerNoFrameYieldedTwice(t *testing.T) {
	f := NewFramer()
	first := f.Feed([]byte("a\nb"))
	second := f.Feed([]byte("\nc\n"))

	require.Len(t, first, 1)
	require.Len(t, second, 2)
	assert.Equal(t, "a", string(first[0]))
	assert.Equal(t, "b", string(second[0]))
	assert.Equal(t, "c", string(second[1]))
}
