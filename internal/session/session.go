// Package session is the application state behind the CLI: the current
// generation, its progress and errors, the playback asset and the history.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"voxnest/internal/audio"
	"voxnest/internal/credential"
	"voxnest/internal/domain/history"
	"voxnest/internal/domain/speech"
	"voxnest/internal/playback"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// FilePrefix starts every default download name.
const FilePrefix = "voxnest"

// Generator produces the fragments for one request.
type Generator interface {
	Generate(ctx context.Context, req speech.Request, onProgress speech.ProgressFunc) (*speech.Result, error)
}

// Player plays one set of fragments at a time.
type Player interface {
	Load(fragments []string) error
	Dispose()
}

// HistoryStore persists finished generations, newest first.
type HistoryStore interface {
	List() ([]history.Entry, error)
	Get(id string) (history.Entry, error)
	Add(e history.Entry) error
}

// Params is what the user picked for one generation. A zero Rate means the
// tone preset's rate, or 1.
type Params struct {
	Text  string
	Voice string
	Rate  float64
	Pitch float64
	Tone  string

	// SkipPlayback keeps the result out of the player.
	SkipPlayback bool
}

// Snapshot is a copy of the session state handed to subscribers.
type Snapshot struct {
	Error          string
	Progress       *speech.Progress
	Loading        bool
	Result         *speech.Result
	FileName       string
	GenerationTime time.Duration
	History        []history.Entry
	KeySaved       bool
}

type Session struct {
	mu sync.Mutex

	gen     Generator
	player  Player
	keys    credential.Store
	history HistoryStore
	fs      afero.Fs

	state   Snapshot
	cancel  context.CancelFunc
	runID   uint64
	counter int

	keyOptional bool

	subscribers []func(Snapshot)
}

type Option func(*Session)

// KeyOptional lets generations run without a saved key, for offline engines.
func KeyOptional() Option {
	return func(s *Session) { s.keyOptional = true }
}

func New(gen Generator, player Player, keys credential.Store, store HistoryStore, fs afero.Fs, opts ...Option) *Session {
	s := &Session{gen: gen, player: player, keys: keys, history: store, fs: fs}
	for _, opt := range opts {
		opt(s)
	}

	entries, err := store.List()
	if err != nil {
		logrus.WithError(err).Warn("Failed to load history")
	}
	s.state.History = entries
	// continue numbering after the stored generations
	s.counter = len(entries)

	key, err := keys.Get()
	if err != nil {
		logrus.WithError(err).Warn("Failed to read API key")
	}
	s.state.KeySaved = key != ""
	return s
}

// Subscribe registers fn for every state change.
func (s *Session) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyState()
}

// Generate runs one generation to completion and starts playing it. A
// generation still in flight is cancelled first. The returned error has
// already been turned into the snapshot's Error message.
func (s *Session) Generate(ctx context.Context, p Params) (*speech.Result, error) {
	req, err := s.request(p)
	if err != nil {
		s.update(func() { s.state.Error = speech.UserMessage(err) })
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var id uint64
	s.update(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.cancel = cancel
		s.runID++
		id = s.runID

		s.state.Error = ""
		s.state.Loading = true
		s.state.Result = nil
		s.state.Progress = nil
		s.state.GenerationTime = 0
	})

	start := time.Now()
	result, err := s.gen.Generate(runCtx, req, func(current, total int) {
		s.update(func() {
			if id == s.runID {
				s.state.Progress = &speech.Progress{Current: current, Total: total}
			}
		})
	})
	elapsed := time.Since(start)

	var entry history.Entry
	superseded := false
	s.update(func() {
		if id != s.runID {
			superseded = true
			return
		}
		s.cancel = nil
		s.state.Loading = false
		s.state.Progress = nil

		if err != nil {
			s.fail(err)
			return
		}

		s.counter++
		fileName := fmt.Sprintf("%s-%d", FilePrefix, s.counter)
		entry = history.NewEntry(p.Text, voiceName(req.Voice), result.Fragments, fileName)

		s.state.Result = result
		s.state.FileName = fileName
		s.state.GenerationTime = elapsed
		s.state.History = append([]history.Entry{entry}, s.state.History...)
	})
	if superseded {
		return nil, speech.ErrCancelled
	}
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"chunks":   len(result.Fragments),
		"duration": elapsed.Round(time.Millisecond),
		"file":     entry.FileName,
	}).Info("Generation finished")

	if err := s.history.Add(entry); err != nil {
		logrus.WithError(err).Warn("Failed to save history entry")
	}
	if p.SkipPlayback {
		return result, nil
	}
	if err := s.play(result.Fragments); err != nil {
		return result, err
	}
	return result, nil
}

// request checks the credential and text and resolves the tone preset.
func (s *Session) request(p Params) (speech.Request, error) {
	key, err := s.keys.Get()
	if err != nil {
		return speech.Request{}, err
	}
	if key == "" && s.keyOptional {
		key = speech.OfflineKey
	}

	tone := speech.ResolveTone(p.Tone)
	rate := p.Rate
	if rate == 0 {
		rate = tone.DefaultRate
	}
	if rate == 0 {
		rate = 1
	}
	voice := p.Voice
	if strings.TrimSpace(voice) == "" {
		voice = speech.DefaultVoice()
	}

	req := speech.Request{
		APIKey: key,
		Text:   p.Text,
		Voice:  voice,
		Rate:   rate,
		Pitch:  p.Pitch,
		Tone:   tone.Value,
	}
	return req, req.Validate()
}

// fail records err for the user. The caller holds mu.
func (s *Session) fail(err error) {
	msg := speech.UserMessage(err)
	if msg == "" {
		msg = speech.UnknownMessage()
	}
	s.state.Error = msg

	var ce *speech.CredentialError
	if errors.As(err, &ce) {
		if cerr := s.keys.Clear(); cerr != nil {
			logrus.WithError(cerr).Warn("Failed to clear rejected API key")
		}
		s.state.KeySaved = false
	}
}

// Stop cancels the generation in flight, if any.
func (s *Session) Stop() {
	s.update(func() {
		if s.cancel == nil {
			return
		}
		s.cancel()
		s.cancel = nil
		s.runID++
		s.state.Loading = false
		s.state.Progress = nil
		s.state.Error = speech.UserMessage(speech.ErrCancelled)
	})
}

// PlayHistory loads a stored generation into the player.
func (s *Session) PlayHistory(id string) (history.Entry, error) {
	entry, err := s.history.Get(id)
	if err != nil {
		return history.Entry{}, err
	}
	s.update(func() {
		s.state.Error = ""
		s.state.Result = &speech.Result{Fragments: entry.Fragments}
		s.state.FileName = entry.FileName
	})
	return entry, s.play(entry.Fragments)
}

// ExportHistory writes a stored generation to dir as a WAV file.
func (s *Session) ExportHistory(id, dir string) (string, error) {
	entry, err := s.history.Get(id)
	if err != nil {
		return "", err
	}
	wav, err := audio.FragmentsToWAV(entry.Fragments)
	if err != nil {
		s.update(func() { s.state.Error = speech.UserMessage(err) })
		return "", err
	}
	return playback.WriteWAV(s.fs, dir, entry.FileName, wav)
}

// Export writes the current result to dir as a WAV file. A blank name uses
// the result's default download name.
func (s *Session) Export(dir, name string) (string, error) {
	snap := s.Snapshot()
	if snap.Result == nil {
		return "", playback.ErrNoAudio
	}
	if strings.TrimSpace(name) == "" {
		name = snap.FileName
	}
	wav, err := audio.FragmentsToWAV(snap.Result.Fragments)
	if err != nil {
		s.update(func() { s.state.Error = speech.UserMessage(err) })
		return "", err
	}
	return playback.WriteWAV(s.fs, dir, name, wav)
}

func (s *Session) play(fragments []string) error {
	if err := s.player.Load(fragments); err != nil {
		s.update(func() { s.state.Error = speech.UserMessage(err) })
		return err
	}
	return nil
}

func (s *Session) SaveKey(key string) error {
	if err := s.keys.Set(key); err != nil {
		return err
	}
	s.update(func() {
		s.state.KeySaved = true
		s.state.Error = ""
	})
	return nil
}

func (s *Session) ClearKey() error {
	if err := s.keys.Clear(); err != nil {
		return err
	}
	s.update(func() { s.state.KeySaved = false })
	return nil
}

func (s *Session) KeySaved() bool {
	return s.Snapshot().KeySaved
}

// Close cancels any generation and releases the player.
func (s *Session) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	s.player.Dispose()
}

// voiceName returns the catalog spelling of voice when it is a known voice.
func voiceName(voice string) string {
	if o, ok := speech.FindVoice(voice); ok {
		return o.Value
	}
	return voice
}

func (s *Session) copyState() Snapshot {
	snap := s.state
	if s.state.Progress != nil {
		p := *s.state.Progress
		snap.Progress = &p
	}
	snap.History = append([]history.Entry(nil), s.state.History...)
	return snap
}

func (s *Session) update(fn func()) {
	s.mu.Lock()
	fn()
	snap := s.copyState()
	subscribers := append([]func(Snapshot){}, s.subscribers...)
	s.mu.Unlock()

	for _, sub := range subscribers {
		sub(snap)
	}
}
