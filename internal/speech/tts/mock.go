package tts

import (
	"context"
	"encoding/binary"
	"math"
	"strings"
	"time"

	"voxnest/internal/audio"
)

// MockEngine renders each chunk as a short tone: no network, no credential.
// Length follows the word count and rate; frequency follows pitch.
type MockEngine struct {
	// Latency simulates a slow remote call; cancellation interrupts it.
	Latency time.Duration
}

func NewMockEngine() *MockEngine {
	return &MockEngine{}
}

func (m *MockEngine) Synthesize(ctx context.Context, req ChunkRequest) (string, error) {
	if m.Latency > 0 {
		timer := time.NewTimer(m.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return audio.EncodeFragment(tone(req)), nil
}

func (m *MockEngine) Voices(ctx context.Context) ([]VoiceInfo, error) {
	return []VoiceInfo{{Name: "mock-voice", LanguageCode: "en-US", Description: "sine tone"}}, nil
}

func (m *MockEngine) Close() error {
	return nil
}

// tone returns mono 16-bit PCM: 80 ms per word at rate 1, at least 200 ms.
func tone(req ChunkRequest) []byte {
	rate := req.Rate
	if rate <= 0 {
		rate = 1
	}
	words := len(strings.Fields(req.Text))
	d := time.Duration(float64(words) * float64(80*time.Millisecond) / rate)
	if d < 200*time.Millisecond {
		d = 200 * time.Millisecond
	}

	freq := 220 * math.Pow(2, req.Pitch/12)
	frames := int(d.Seconds() * audio.SampleRate)
	pcm := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		s := 0.3 * math.Sin(2*math.Pi*freq*float64(i)/audio.SampleRate)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(s*math.MaxInt16)))
	}
	return pcm
}
