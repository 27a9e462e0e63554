package generator

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"voxnest/internal/audio"
	"voxnest/internal/domain/speech"
	"voxnest/internal/speech/tts"

	"github.com/google/go-cmp/cmp"
)

// fakeEngine echoes each chunk's text back as its fragment.
type fakeEngine struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	latency  func(i int) time.Duration
	fail     map[int]error
	onCall   func(i int)
}

func (f *fakeEngine) Synthesize(ctx context.Context, req tts.ChunkRequest) (string, error) {
	f.calls.Add(1)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		m := f.maxSeen.Load()
		if n <= m || f.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	if f.onCall != nil {
		f.onCall(req.Index)
	}
	if f.latency != nil {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.latency(req.Index)):
		}
	}
	if err, ok := f.fail[req.Index]; ok {
		return "", err
	}
	return audio.EncodeFragment([]byte(req.Text)), nil
}

func (f *fakeEngine) Close() error { return nil }

func opener(f *fakeEngine) tts.Opener {
	return func(ctx context.Context, apiKey string) (tts.Synthesizer, error) {
		return f, nil
	}
}

type progressLog struct {
	mu      sync.Mutex
	reports []speech.Progress
}

func (p *progressLog) record(current, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reports = append(p.reports, speech.Progress{Current: current, Total: total})
}

func request(text string) speech.Request {
	return speech.Request{APIKey: "key", Text: text, Voice: "Kore", Rate: 1}
}

func decode(t *testing.T, fragments []string) []string {
	t.Helper()
	out := make([]string, len(fragments))
	for i, f := range fragments {
		b, err := audio.DecodeBase64(f)
		if err != nil {
			t.Fatalf("fragment %d: %v", i, err)
		}
		out[i] = strings.TrimSpace(string(b))
	}
	return out
}

func TestGenerate_OrderUnderRandomLatency(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	delays := make([]time.Duration, 10)
	for i := range delays {
		delays[i] = time.Duration(rng.Intn(20)) * time.Millisecond
	}
	engine := &fakeEngine{latency: func(i int) time.Duration { return delays[i] }}

	words := []string{"zero", "one", "two", "three", "four", "five", "six", "seven", "eight", "nine"}
	g := New(opener(engine), Options{Concurrency: 3, ChunkSize: 6})
	var progress progressLog

	result, err := g.Generate(context.Background(), request(strings.Join(words, "\n")), progress.record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if diff := cmp.Diff(words, decode(t, result.Fragments)); diff != "" {
		t.Errorf("fragments out of order (-want +got):\n%s", diff)
	}
	if n := engine.maxSeen.Load(); n > 3 {
		t.Errorf("expected at most 3 concurrent calls, got %d", n)
	}

	if len(progress.reports) != 11 {
		t.Fatalf("expected 11 progress reports, got %d", len(progress.reports))
	}
	if first := progress.reports[0]; first != (speech.Progress{Current: 0, Total: 10}) {
		t.Errorf("expected first report (0,10), got %+v", first)
	}
	for i := 1; i < len(progress.reports); i++ {
		if progress.reports[i].Current < progress.reports[i-1].Current {
			t.Errorf("progress went backwards: %+v", progress.reports)
			break
		}
	}
	if last := progress.reports[10]; last != (speech.Progress{Current: 10, Total: 10}) {
		t.Errorf("expected final report (10,10), got %+v", last)
	}
}

func TestGenerate_SingleWorker(t *testing.T) {
	engine := &fakeEngine{}
	g := New(opener(engine), Options{Concurrency: 1, ChunkSize: 600})

	result, err := g.Generate(context.Background(), request("Hello world."), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Fragments) != 1 || engine.calls.Load() != 1 {
		t.Errorf("expected one fragment from one call, got %d fragments, %d calls", len(result.Fragments), engine.calls.Load())
	}
}

func TestGenerate_ValidationBeforeCalls(t *testing.T) {
	engine := &fakeEngine{}
	g := New(opener(engine), DefaultOptions())

	tests := []struct {
		name  string
		req   speech.Request
		field string
	}{
		{"blank key", speech.Request{APIKey: "  ", Text: "hello"}, "api key"},
		{"blank text", speech.Request{APIKey: "key", Text: " \n "}, "text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.Generate(context.Background(), tt.req, nil)
			var ve *speech.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, ve.Field)
			}
		})
	}
	if n := engine.calls.Load(); n != 0 {
		t.Errorf("expected no engine calls, got %d", n)
	}
}

func TestGenerate_PreCancelled(t *testing.T) {
	engine := &fakeEngine{}
	g := New(opener(engine), DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := g.Generate(ctx, request("some text"), nil)
	if !errors.Is(err, speech.ErrCancelled) {
		t.Errorf("expected ErrCancelled, got %v", err)
	}
	if n := engine.calls.Load(); n != 0 {
		t.Errorf("expected no engine calls, got %d", n)
	}
}

func TestGenerate_CancelMidway(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	engine := &fakeEngine{
		latency: func(int) time.Duration { return 50 * time.Millisecond },
		onCall: func(i int) {
			if i == 1 {
				cancel()
			}
		},
	}
	g := New(opener(engine), Options{Concurrency: 1, ChunkSize: 3})

	result, err := g.Generate(ctx, request("aa\nbb\ncc\ndd"), nil)
	if !errors.Is(err, speech.ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if result != nil {
		t.Errorf("expected no partial result, got %+v", result)
	}
	if n := engine.calls.Load(); n != 2 {
		t.Errorf("expected claiming to stop after cancel, got %d calls", n)
	}
}

func TestGenerate_FailureAborts(t *testing.T) {
	boom := &speech.RemoteProtocolError{FinishReason: "OTHER"}
	engine := &fakeEngine{fail: map[int]error{1: boom}}
	g := New(opener(engine), Options{Concurrency: 1, ChunkSize: 3})
	var progress progressLog

	result, err := g.Generate(context.Background(), request("aa\nbb\ncc"), progress.record)
	var pe *speech.RemoteProtocolError
	if !errors.As(err, &pe) || pe.FinishReason != "OTHER" {
		t.Fatalf("expected RemoteProtocolError, got %v", err)
	}
	if result != nil {
		t.Errorf("expected no result, got %+v", result)
	}
	if n := engine.calls.Load(); n != 2 {
		t.Errorf("expected chunk 3 never to be requested, got %d calls", n)
	}
	want := []speech.Progress{{Current: 0, Total: 3}, {Current: 1, Total: 3}}
	if diff := cmp.Diff(want, progress.reports); diff != "" {
		t.Errorf("unexpected progress (-want +got):\n%s", diff)
	}
}

func TestGenerate_OpenerError(t *testing.T) {
	g := New(func(ctx context.Context, apiKey string) (tts.Synthesizer, error) {
		return nil, &speech.CredentialError{Err: errors.New("rejected")}
	}, DefaultOptions())

	_, err := g.Generate(context.Background(), request("hello"), nil)
	var ce *speech.CredentialError
	if !errors.As(err, &ce) {
		t.Errorf("expected CredentialError, got %v", err)
	}
}

func TestGenerate_Pacing(t *testing.T) {
	engine := &fakeEngine{}
	// one call per 50ms with a burst of one
	g := New(opener(engine), Options{Concurrency: 3, ChunkSize: 3, RequestsPerMinute: 1200})

	start := time.Now()
	if _, err := g.Generate(context.Background(), request("aa\nbb\ncc"), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 90*time.Millisecond {
		t.Errorf("expected paced calls to take at least 90ms, took %v", elapsed)
	}
}

func TestGenerate_PacingPastDeadlineFails(t *testing.T) {
	engine := &fakeEngine{}
	// one call per minute cannot fit three chunks into five seconds
	g := New(opener(engine), Options{Concurrency: 1, ChunkSize: 3, RequestsPerMinute: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := g.Generate(ctx, request("aa\nbb\ncc"), nil)
	if err == nil {
		t.Fatalf("expected pacing error, got result %v", result)
	}
	if result != nil {
		t.Errorf("expected no partial result, got %v", result)
	}
	if speech.IsCancelled(err) {
		t.Errorf("expected a pacing failure, not cancellation: %v", err)
	}
	if !strings.Contains(err.Error(), "pacing") {
		t.Errorf("expected pacing error, got %v", err)
	}
	if got := engine.calls.Load(); got != 1 {
		t.Errorf("expected 1 engine call, got %d", got)
	}
}
