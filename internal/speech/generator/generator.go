// Package generator fans the chunks of one request out to a speech engine
// and collects the returned fragments in chunk order.
package generator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"voxnest/internal/domain/speech"
	"voxnest/internal/speech/tts"
	"voxnest/internal/text/chunker"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const DefaultConcurrency = 3

type Options struct {
	// Concurrency caps the number of in-flight engine calls.
	Concurrency int
	// ChunkSize is the chunk length in runes.
	ChunkSize int
	// RequestsPerMinute paces engine calls; zero disables pacing.
	RequestsPerMinute int
}

func DefaultOptions() Options {
	return Options{
		Concurrency: DefaultConcurrency,
		ChunkSize:   chunker.DefaultMaxLength,
	}
}

type Generator struct {
	open tts.Opener
	opts Options
}

func New(open tts.Opener, opts Options) *Generator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Generator{open: open, opts: opts}
}

// Generate synthesizes req chunk by chunk. Cancelling ctx stops the run and
// yields speech.ErrCancelled; the first engine failure aborts the others.
// onProgress may be nil.
func (g *Generator) Generate(ctx context.Context, req speech.Request, onProgress speech.ProgressFunc) (*speech.Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, speech.ErrCancelled
	}

	var mu sync.Mutex
	report := func(current, total int) {
		if onProgress != nil {
			onProgress(current, total)
		}
	}

	chunks := chunker.Split(req.Text, g.opts.ChunkSize)
	total := len(chunks)
	if total == 0 {
		report(0, 0)
		return &speech.Result{Fragments: []string{}}, nil
	}

	synth, err := g.open(ctx, req.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to open speech engine: %w", err)
	}
	defer synth.Close()

	var limiter *rate.Limiter
	if g.opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(g.opts.RequestsPerMinute)), 1)
	}

	logrus.WithFields(logrus.Fields{
		"chunks":      total,
		"concurrency": g.opts.Concurrency,
		"chars":       len([]rune(req.Text)),
	}).Debug("Starting generation")
	report(0, total)

	fragments := make([]string, total)
	var cursor atomic.Int64
	completed := 0

	eg, gctx := errgroup.WithContext(ctx)
	for w := 0; w < min(g.opts.Concurrency, total); w++ {
		eg.Go(func() error {
			for {
				if gctx.Err() != nil {
					return nil
				}
				i := int(cursor.Add(1) - 1)
				if i >= total {
					return nil
				}
				if limiter != nil {
					if err := limiter.Wait(gctx); err != nil {
						if gctx.Err() != nil {
							return nil
						}
						// the wait would outlast ctx's deadline
						return fmt.Errorf("chunk %d of %d: pacing: %w", i+1, total, err)
					}
				}

				logrus.WithFields(logrus.Fields{
					"chunk": i + 1,
					"total": total,
					"chars": len([]rune(chunks[i])),
				}).Debug("Dispatching chunk")

				fragment, err := synth.Synthesize(gctx, tts.ChunkRequest{
					Index: i,
					Text:  chunks[i],
					Voice: req.Voice,
					Rate:  req.Rate,
					Pitch: req.Pitch,
					Tone:  req.Tone,
				})
				// a failure elsewhere or a user stop makes this result irrelevant
				if gctx.Err() != nil {
					return nil
				}
				if err != nil {
					logrus.WithError(err).WithField("chunk", i+1).Warn("Chunk generation failed")
					return fmt.Errorf("chunk %d of %d: %w", i+1, total, err)
				}

				fragments[i] = fragment

				mu.Lock()
				completed++
				report(completed, total)
				mu.Unlock()
			}
		})
	}

	err = eg.Wait()
	if ctx.Err() != nil {
		logrus.Debug("Generation cancelled")
		return nil, speech.ErrCancelled
	}
	if err != nil {
		return nil, err
	}

	return &speech.Result{Fragments: fragments}, nil
}
