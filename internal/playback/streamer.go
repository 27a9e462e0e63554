package playback

import (
	"fmt"

	"voxnest/internal/audio"
)

// bufferStreamer plays a decoded buffer as a beep.StreamSeeker. Mono audio
// goes to both speaker channels.
type bufferStreamer struct {
	buf *audio.Buffer
	pos int
}

func newBufferStreamer(buf *audio.Buffer) *bufferStreamer {
	return &bufferStreamer{buf: buf}
}

func (s *bufferStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	frames := s.buf.Frames()
	if s.pos >= frames {
		return 0, false
	}
	left := s.buf.Data[0]
	right := left
	if s.buf.NumChannels() > 1 {
		right = s.buf.Data[1]
	}
	for n < len(samples) && s.pos < frames {
		samples[n][0] = float64(left[s.pos])
		samples[n][1] = float64(right[s.pos])
		n++
		s.pos++
	}
	return n, true
}

func (s *bufferStreamer) Err() error { return nil }

func (s *bufferStreamer) Len() int { return s.buf.Frames() }

func (s *bufferStreamer) Position() int { return s.pos }

func (s *bufferStreamer) Seek(p int) error {
	if p < 0 || p > s.buf.Frames() {
		return fmt.Errorf("seek position %d out of range [0, %d]", p, s.buf.Frames())
	}
	s.pos = p
	return nil
}
