package stream

import "bytes"

const frameDelimiter = '\n'

// Framer reassembles newline-delimited frames from an arbitrarily chunked
// byte stream. A chunk may contain zero, one, or many complete frames plus
// at most one partial trailing frame; the partial is retained until the
// next chunk completes it. Not safe for concurrent use; each connection
// owns its own Framer.
type Framer struct {
	partial []byte
}

func NewFramer() *Framer {
	return &Framer{}
}

// Feed appends chunk to the retained partial fragment and returns every
// complete frame now available, in order. Blank lines are discarded. The
// returned slices are valid until the next call to Feed.
func (f *Framer) Feed(chunk []byte) [][]byte {
	if len(chunk) == 0 {
		return nil
	}

	buf := append(f.partial, chunk...)
	segments := bytes.Split(buf, []byte{frameDelimiter})

	// The final segment is an incomplete frame (possibly empty). Copy it
	// out so the yielded frames keep sole ownership of the old array.
	last := segments[len(segments)-1]
	f.partial = append(make([]byte, 0, len(last)), last...)

	frames := make([][]byte, 0, len(segments)-1)
	for _, seg := range segments[:len(segments)-1] {
		seg = bytes.TrimSpace(seg)
		if len(seg) == 0 {
			continue
		}
		frames = append(frames, seg)
	}
	return frames
}

// Reset drops any retained partial fragment. Called when a connection is
// (re)established so a stale half-frame never prefixes fresh data.
func (f *Framer) Reset() {
	f.partial = nil
}
