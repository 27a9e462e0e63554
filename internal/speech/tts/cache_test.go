package tts

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"voxnest/internal/audio"

	"github.com/spf13/afero"
)

type countingSynth struct {
	calls atomic.Int32
	err   error
}

func (c *countingSynth) Synthesize(ctx context.Context, req ChunkRequest) (string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return "", c.err
	}
	return audio.EncodeFragment([]byte(req.Text)), nil
}

func (c *countingSynth) Close() error { return nil }

func TestCachedSynthesizer_ServesRepeats(t *testing.T) {
	fs := afero.NewMemMapFs()
	next := &countingSynth{}
	c := NewCachedSynthesizer(next, fs, "/cache", "gemini")
	req := ChunkRequest{Text: "ab", Voice: "Kore", Rate: 1}

	first, err := c.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.Synthesize(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("expected identical fragments, got %q and %q", first, second)
	}
	if n := next.calls.Load(); n != 1 {
		t.Errorf("expected 1 remote call, got %d", n)
	}

	req.Voice = "Puck"
	if _, err := c.Synthesize(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := next.calls.Load(); n != 2 {
		t.Errorf("expected a new call for different settings, got %d calls", n)
	}

	stats, err := GetCacheStats(fs, "/cache")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Files != 2 {
		t.Errorf("expected 2 cached files, got %d", stats.Files)
	}

	if err := ClearCache(fs, "/cache"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats, _ := GetCacheStats(fs, "/cache"); stats.Files != 0 {
		t.Errorf("expected empty cache after clear, got %d files", stats.Files)
	}
}

func TestCachedSynthesizer_DoesNotCacheFailures(t *testing.T) {
	fs := afero.NewMemMapFs()
	boom := errors.New("boom")
	next := &countingSynth{err: boom}
	c := NewCachedSynthesizer(next, fs, "/cache", "gemini")

	for i := 0; i < 2; i++ {
		if _, err := c.Synthesize(context.Background(), ChunkRequest{Text: "x"}); !errors.Is(err, boom) {
			t.Fatalf("expected boom, got %v", err)
		}
	}
	if n := next.calls.Load(); n != 2 {
		t.Errorf("expected every failure to reach the engine, got %d calls", n)
	}
}

func TestNewCachedOpener(t *testing.T) {
	fs := afero.NewMemMapFs()
	open := NewCachedOpener(Config{Type: "mock"}, fs, "/cache")

	s, err := open(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cached, ok := s.(*CachedSynthesizer)
	if !ok {
		t.Fatalf("expected *CachedSynthesizer, got %T", s)
	}
	if cached.engine != "mock" {
		t.Errorf("expected mock cache namespace, got %s", cached.engine)
	}
	if _, err := s.Synthesize(context.Background(), ChunkRequest{Text: "hello there", Rate: 1}); err != nil {
		t.Fatal(err)
	}
	if stats, _ := GetCacheStats(fs, "/cache"); stats.Files != 1 {
		t.Errorf("expected 1 cached chunk, got %d", stats.Files)
	}
}
