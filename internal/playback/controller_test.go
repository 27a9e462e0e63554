package playback

import (
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"voxnest/internal/audio"
	"voxnest/internal/domain/speech"

	"github.com/faiface/beep"
	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
)

// fakeDevice mixes its streamers only when pump is called.
type fakeDevice struct {
	mu        sync.Mutex
	streamers []beep.Streamer
	closed    bool
}

func (d *fakeDevice) Play(s beep.Streamer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.streamers = append(d.streamers, s)
}

func (d *fakeDevice) Lock()   { d.mu.Lock() }
func (d *fakeDevice) Unlock() { d.mu.Unlock() }

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.streamers = nil
	return nil
}

// pump streams up to frames frames from every live streamer and returns the
// number of frames the busiest streamer produced. A negative frames value
// streams until everything has ended.
func (d *fakeDevice) pump(frames int) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	produced := 0
	buf := make([][2]float64, 256)
	for frames < 0 || produced < frames {
		if len(d.streamers) == 0 {
			break
		}
		size := len(buf)
		if frames >= 0 && frames-produced < size {
			size = frames - produced
		}
		most := 0
		live := d.streamers[:0]
		for _, s := range d.streamers {
			n, ok := s.Stream(buf[:size])
			if n > most {
				most = n
			}
			if ok {
				live = append(live, s)
			}
		}
		d.streamers = live
		produced += most
		if most == 0 && len(live) == 0 {
			break
		}
	}
	return produced
}

type deviceLog struct {
	mu      sync.Mutex
	devices []*fakeDevice
}

func (l *deviceLog) open(sampleRate int) (Device, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	d := &fakeDevice{}
	l.devices = append(l.devices, d)
	return d, nil
}

func (l *deviceLog) last() *fakeDevice {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.devices[len(l.devices)-1]
}

type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) record(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s)
}

func (l *stateLog) snapshot() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State{}, l.states...)
}

// fragment returns one base64 fragment of frames mono samples.
func fragment(frames int) string {
	pcm := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(1000)))
	}
	return audio.EncodeFragment(pcm)
}

func waitForState(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("expected state %s, got %s", want, c.State())
}

func TestController_Load(t *testing.T) {
	var devices deviceLog
	var states stateLog
	c := NewController(devices.open)
	c.Subscribe(states.record)

	if err := c.Load([]string{fragment(2400), fragment(2400)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.State() != StatePlaying {
		t.Errorf("expected state %s, got %s", StatePlaying, c.State())
	}
	if got := len(c.WAV()); got != 44+4800*2 {
		t.Errorf("expected WAV of %d bytes, got %d", 44+4800*2, got)
	}
	if c.Duration() != 200*time.Millisecond {
		t.Errorf("expected 200ms, got %v", c.Duration())
	}
	if diff := cmp.Diff([]State{StateLoading, StatePlaying}, states.snapshot()); diff != "" {
		t.Errorf("unexpected transitions (-want +got):\n%s", diff)
	}
}

func TestController_LoadDecodeFailure(t *testing.T) {
	var devices deviceLog
	var states stateLog
	c := NewController(devices.open)
	c.Subscribe(states.record)

	err := c.Load([]string{"not base64!"})
	var de *speech.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if c.State() != StateIdle {
		t.Errorf("expected state %s, got %s", StateIdle, c.State())
	}
	if len(devices.devices) != 0 {
		t.Errorf("expected no device to be opened, got %d", len(devices.devices))
	}
	if diff := cmp.Diff([]State{StateLoading, StateIdle}, states.snapshot()); diff != "" {
		t.Errorf("unexpected transitions (-want +got):\n%s", diff)
	}
}

func TestController_LoadOddFraming(t *testing.T) {
	var devices deviceLog
	c := NewController(devices.open)

	err := c.Load([]string{audio.EncodeFragment([]byte{1, 2, 3})})
	var de *speech.DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestController_LoadReleasesPreviousDevice(t *testing.T) {
	var devices deviceLog
	c := NewController(devices.open)

	if err := c.Load([]string{fragment(100)}); err != nil {
		t.Fatal(err)
	}
	first := devices.last()
	if err := c.Load([]string{fragment(100)}); err != nil {
		t.Fatal(err)
	}
	if !first.closed {
		t.Error("expected the first device to be closed")
	}
	if devices.last() == first || devices.last().closed {
		t.Error("expected a fresh open device")
	}
}

func TestController_TogglePauseResume(t *testing.T) {
	var devices deviceLog
	c := NewController(devices.open)
	if err := c.Load([]string{fragment(4800)}); err != nil {
		t.Fatal(err)
	}
	dev := devices.last()

	dev.pump(1000)
	c.Toggle()
	if c.State() != StatePaused {
		t.Fatalf("expected state %s, got %s", StatePaused, c.State())
	}
	pos := c.Position()
	dev.pump(1000)
	if c.Position() != pos {
		t.Errorf("expected position to hold at %v while paused, got %v", pos, c.Position())
	}

	c.Toggle()
	if c.State() != StatePlaying {
		t.Fatalf("expected state %s, got %s", StatePlaying, c.State())
	}
	dev.pump(1000)
	if c.Position() <= pos {
		t.Errorf("expected position to advance past %v, got %v", pos, c.Position())
	}
}

func TestController_EndOfStream(t *testing.T) {
	var devices deviceLog
	c := NewController(devices.open)
	if err := c.Load([]string{fragment(1200)}); err != nil {
		t.Fatal(err)
	}

	devices.last().pump(-1)
	waitForState(t, c, StateFinished)

	c.Toggle()
	if c.State() != StatePlaying {
		t.Errorf("expected toggle on finished to replay, got %s", c.State())
	}
	if c.Position() != 0 {
		t.Errorf("expected replay from 0, got %v", c.Position())
	}
}

func TestController_StaleCallbackIgnored(t *testing.T) {
	var devices deviceLog
	c := NewController(devices.open)
	if err := c.Load([]string{fragment(4800)}); err != nil {
		t.Fatal(err)
	}
	dev := devices.last()
	dev.pump(500)

	// the first source ends here and fires its callback
	c.Replay()
	dev.pump(500)
	time.Sleep(20 * time.Millisecond)

	if c.State() != StatePlaying {
		t.Errorf("expected stale end-of-stream to be ignored, got %s", c.State())
	}
}

func TestController_SetRate(t *testing.T) {
	var devices deviceLog
	c := NewController(devices.open)
	if err := c.Load([]string{fragment(4800)}); err != nil {
		t.Fatal(err)
	}
	if err := c.SetRate(2); err != nil {
		t.Fatal(err)
	}

	played := devices.last().pump(-1)
	if played < 2300 || played > 2500 {
		t.Errorf("expected about 2400 frames at double speed, got %d", played)
	}
	if c.Rate() != 2 {
		t.Errorf("expected rate 2, got %v", c.Rate())
	}

	if err := c.SetRate(0); err == nil {
		t.Error("expected error for zero rate")
	}
}

func TestController_Dispose(t *testing.T) {
	var devices deviceLog
	c := NewController(devices.open)
	if err := c.Load([]string{fragment(100)}); err != nil {
		t.Fatal(err)
	}

	c.Dispose()
	if c.State() != StateDisposed {
		t.Errorf("expected state %s, got %s", StateDisposed, c.State())
	}
	if c.WAV() != nil {
		t.Error("expected WAV to be dropped")
	}
	if !devices.last().closed {
		t.Error("expected device to be closed")
	}
	if err := c.Load([]string{fragment(100)}); !errors.Is(err, ErrDisposed) {
		t.Errorf("expected ErrDisposed, got %v", err)
	}
	c.Dispose()
}

func TestController_Export(t *testing.T) {
	var devices deviceLog
	c := NewController(devices.open)
	fs := afero.NewMemMapFs()

	if _, err := c.Export(fs, "/out", "x"); !errors.Is(err, ErrNoAudio) {
		t.Errorf("expected ErrNoAudio, got %v", err)
	}

	if err := c.Load([]string{fragment(10)}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		want string
	}{
		{"story", "/out/story.wav"},
		{"story.wav", "/out/story.wav"},
		{"  ", "/out/voxnest.wav"},
	}
	for _, tt := range tests {
		path, err := c.Export(fs, "/out", tt.name)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if path != tt.want {
			t.Errorf("expected %s, got %s", tt.want, path)
		}
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(data) != 44+20 {
			t.Errorf("expected %d bytes, got %d", 44+20, len(data))
		}
	}
}
