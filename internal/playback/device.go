package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
)

// Device is an audio output that mixes the streamers it is given.
// Lock and Unlock guard streamer state against the output goroutine.
type Device interface {
	Play(s beep.Streamer)
	Lock()
	Unlock()
	Close() error
}

// DeviceFactory opens a device for the given sample rate.
type DeviceFactory func(sampleRate int) (Device, error)

var (
	speakerOnce sync.Once
	speakerErr  error
)

// OpenSpeaker returns the system speaker. The speaker is initialized once per
// process at the first sample rate requested.
func OpenSpeaker(sampleRate int) (Device, error) {
	speakerOnce.Do(func() {
		sr := beep.SampleRate(sampleRate)
		speakerErr = speaker.Init(sr, sr.N(time.Second/10))
	})
	if speakerErr != nil {
		return nil, fmt.Errorf("failed to initialize speaker: %w", speakerErr)
	}
	return speakerDevice{}, nil
}

type speakerDevice struct{}

func (speakerDevice) Play(s beep.Streamer) { speaker.Play(s) }
func (speakerDevice) Lock()                { speaker.Lock() }
func (speakerDevice) Unlock()              { speaker.Unlock() }

// Close silences everything still queued on the speaker.
func (speakerDevice) Close() error {
	speaker.Clear()
	return nil
}
