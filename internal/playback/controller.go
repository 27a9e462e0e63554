// Package playback owns the single live audio output of a session and the
// WAV asset that goes with it.
package playback

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"voxnest/internal/audio"

	"github.com/faiface/beep"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

type State string

const (
	StateIdle     State = "idle"
	StateLoading  State = "loading"
	StatePlaying  State = "playing"
	StatePaused   State = "paused"
	StateFinished State = "finished"
	StateDisposed State = "disposed"
)

// DefaultFileName is used when an export is given a blank name.
const DefaultFileName = "voxnest"

// resampleQuality is the beep resampler quality used for rate changes.
const resampleQuality = 4

var (
	ErrDisposed = errors.New("playback controller disposed")
	ErrNoAudio  = errors.New("no audio loaded")
)

// Controller plays one decoded asset at a time. Loading a new asset tears
// the previous device down first.
type Controller struct {
	mu         sync.Mutex
	openDevice DeviceFactory

	state  State
	rate   float64
	device Device
	buffer *audio.Buffer
	wav    []byte

	ctrl      *beep.Ctrl
	resampler *beep.Resampler
	source    *bufferStreamer
	// sourceID identifies the current source; end-of-stream callbacks from
	// older sources are ignored.
	sourceID uint64

	subscribers []func(State)
	pending     []State
}

func NewController(openDevice DeviceFactory) *Controller {
	return &Controller{
		openDevice: openDevice,
		state:      StateIdle,
		rate:       1.0,
	}
}

// Subscribe registers fn for every state change. Notifications are delivered
// outside the controller lock, so fn may call back into the controller.
func (c *Controller) Subscribe(fn func(State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Load decodes fragments and starts playing them from the beginning.
func (c *Controller) Load(fragments []string) error {
	var err error
	c.update(func() {
		if c.state == StateDisposed {
			err = ErrDisposed
			return
		}
		c.teardown()
		c.setState(StateLoading)

		var buf *audio.Buffer
		var wav []byte
		buf, wav, err = decode(fragments)
		if err != nil {
			logrus.WithError(err).Warn("Failed to decode audio fragments")
			c.setState(StateIdle)
			return
		}

		device, derr := c.openDevice(buf.SampleRate)
		if derr != nil {
			err = derr
			c.setState(StateIdle)
			return
		}

		c.device = device
		c.buffer = buf
		c.wav = wav
		c.start()
	})
	return err
}

func decode(fragments []string) (*audio.Buffer, []byte, error) {
	chunks, err := audio.DecodeFragments(fragments)
	if err != nil {
		return nil, nil, err
	}
	buf, err := audio.DecodeChunks(chunks, audio.SampleRate, audio.Channels)
	if err != nil {
		return nil, nil, err
	}
	return buf, audio.PCMToWAV(audio.ConcatBytes(chunks), audio.SampleRate, audio.Channels, audio.BitsPerSample), nil
}

// Toggle pauses or resumes playback. A finished asset is replayed.
func (c *Controller) Toggle() {
	c.update(func() {
		switch c.state {
		case StatePlaying:
			c.setPaused(true)
			c.setState(StatePaused)
		case StatePaused:
			c.setPaused(false)
			c.setState(StatePlaying)
		case StateFinished:
			c.start()
		}
	})
}

// Replay restarts the loaded asset from its first frame without decoding it
// again.
func (c *Controller) Replay() {
	c.update(func() {
		switch c.state {
		case StatePlaying, StatePaused, StateFinished:
			c.start()
		}
	})
}

// SetRate changes the playback speed of the current source and of every
// source started later.
func (c *Controller) SetRate(rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("playback rate must be positive, got %v", rate)
	}
	c.update(func() {
		c.rate = rate
		if c.resampler != nil {
			c.device.Lock()
			c.resampler.SetRatio(rate)
			c.device.Unlock()
		}
	})
	return nil
}

func (c *Controller) Rate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

// Dispose releases the device and drops the WAV asset. The controller
// cannot be used afterwards.
func (c *Controller) Dispose() {
	c.update(func() {
		if c.state == StateDisposed {
			return
		}
		c.teardown()
		c.setState(StateDisposed)
	})
}

// WAV returns the loaded asset, or nil when nothing is loaded.
func (c *Controller) WAV() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wav
}

// Duration is the length of the loaded asset at normal speed.
func (c *Controller) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.buffer == nil {
		return 0
	}
	return c.buffer.Duration()
}

// Position is how far into the asset the current source has played.
func (c *Controller) Position() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.source == nil || c.buffer == nil || c.buffer.SampleRate <= 0 {
		return 0
	}
	c.device.Lock()
	pos := c.source.Position()
	c.device.Unlock()
	return time.Duration(pos) * time.Second / time.Duration(c.buffer.SampleRate)
}

// Export writes the loaded asset to dir as name plus ".wav" and returns the
// written path.
func (c *Controller) Export(fs afero.Fs, dir, name string) (string, error) {
	wav := c.WAV()
	if wav == nil {
		return "", ErrNoAudio
	}
	return WriteWAV(fs, dir, name, wav)
}

// WriteWAV stores wav under dir with a ".wav" suffix. A blank name falls
// back to DefaultFileName.
func WriteWAV(fs afero.Fs, dir, name string, wav []byte) (string, error) {
	name = strings.TrimSpace(name)
	name = strings.TrimSuffix(name, ".wav")
	if name == "" {
		name = DefaultFileName
	}
	path := filepath.Join(dir, name+".wav")

	if dir != "" {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create export directory: %w", err)
		}
	}
	if err := afero.WriteFile(fs, path, wav, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	logrus.WithFields(logrus.Fields{"file": path, "bytes": len(wav)}).Info("Audio exported")
	return path, nil
}

// start plays the buffer from frame 0 as a new source. The caller holds mu.
func (c *Controller) start() {
	c.stopSource()

	c.sourceID++
	id := c.sourceID
	c.source = newBufferStreamer(c.buffer)
	c.resampler = beep.ResampleRatio(resampleQuality, c.rate, c.source)
	c.ctrl = &beep.Ctrl{Streamer: c.resampler}

	// The callback runs on the output goroutine with the device locked;
	// finishing on a new goroutine keeps the lock order mu -> device.
	c.device.Play(beep.Seq(c.ctrl, beep.Callback(func() {
		go c.finish(id)
	})))
	c.setState(StatePlaying)
}

func (c *Controller) finish(id uint64) {
	c.update(func() {
		if id != c.sourceID || c.state != StatePlaying {
			return
		}
		c.setState(StateFinished)
	})
}

func (c *Controller) setPaused(paused bool) {
	if c.ctrl == nil {
		return
	}
	c.device.Lock()
	c.ctrl.Paused = paused
	c.device.Unlock()
}

// stopSource silences the current source; its callback then fires as stale.
func (c *Controller) stopSource() {
	if c.ctrl == nil {
		return
	}
	c.device.Lock()
	c.ctrl.Streamer = nil
	c.device.Unlock()
	c.ctrl = nil
	c.resampler = nil
	c.source = nil
}

// teardown stops playback, closes the device and forgets the asset.
func (c *Controller) teardown() {
	c.stopSource()
	if c.device != nil {
		if err := c.device.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close audio device")
		}
		c.device = nil
	}
	c.buffer = nil
	c.wav = nil
}

func (c *Controller) setState(s State) {
	if c.state == s {
		return
	}
	c.state = s
	c.pending = append(c.pending, s)
}

// update runs fn under mu and then notifies subscribers of the states fn
// passed through.
func (c *Controller) update(fn func()) {
	c.mu.Lock()
	fn()
	pending := c.pending
	c.pending = nil
	subscribers := append([]func(State){}, c.subscribers...)
	c.mu.Unlock()

	for _, s := range pending {
		for _, sub := range subscribers {
			sub(s)
		}
	}
}
