package tts

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"voxnest/internal/audio"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// CachedSynthesizer stores every synthesized chunk as raw PCM on disk and
// serves repeats of the same text and settings without a remote call.
type CachedSynthesizer struct {
	next   Synthesizer
	fs     afero.Fs
	dir    string
	engine string
}

// NewCachedSynthesizer wraps next; engine names the cache subdirectory.
func NewCachedSynthesizer(next Synthesizer, fs afero.Fs, dir, engine string) *CachedSynthesizer {
	return &CachedSynthesizer{next: next, fs: fs, dir: dir, engine: engine}
}

// cachePath returns the file for one chunk/settings combination.
func (c *CachedSynthesizer) cachePath(req ChunkRequest) string {
	key := fmt.Sprintf("%s|%s|%.2f|%.2f|%s|%s", c.engine, req.Voice, req.Rate, req.Pitch, req.Tone, req.Text)
	return filepath.Join(c.dir, c.engine, md5Sum(key)[:16]+".pcm")
}

func (c *CachedSynthesizer) Synthesize(ctx context.Context, req ChunkRequest) (string, error) {
	path := c.cachePath(req)

	if pcm, err := afero.ReadFile(c.fs, path); err == nil {
		logrus.WithFields(logrus.Fields{"chunk": req.Index, "file": path}).Debug("Using cached chunk audio")
		return audio.EncodeFragment(pcm), nil
	}

	fragment, err := c.next.Synthesize(ctx, req)
	if err != nil {
		return "", err
	}

	pcm, err := audio.DecodeBase64(fragment)
	if err != nil {
		return fragment, nil
	}
	if err := c.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logrus.WithError(err).Warn("Failed to create chunk cache directory")
		return fragment, nil
	}
	if err := afero.WriteFile(c.fs, path, pcm, 0644); err != nil {
		logrus.WithError(err).WithField("file", path).Warn("Failed to cache chunk audio")
	}
	return fragment, nil
}

// NewCachedOpener is NewOpener with every synthesizer wrapped in a
// CachedSynthesizer keyed by the engine actually selected.
func NewCachedOpener(config Config, fs afero.Fs, dir string) Opener {
	return func(ctx context.Context, apiKey string) (Synthesizer, error) {
		c := config
		c.APIKey = apiKey
		if c.Type == EngineTypeAuto.String() || c.Type == "" {
			c.Type = bestEngineFor(c).String()
		}
		s, err := NewSynthesizer(ctx, c)
		if err != nil {
			return nil, err
		}
		return NewCachedSynthesizer(s, fs, dir, c.Type), nil
	}
}

func (c *CachedSynthesizer) Close() error {
	return c.next.Close()
}

// CacheStats summarizes the chunk cache.
type CacheStats struct {
	Directory string
	Files     int64
	SizeMB    float64
}

// GetCacheStats walks dir and counts cached chunk files.
func GetCacheStats(fs afero.Fs, dir string) (CacheStats, error) {
	stats := CacheStats{Directory: dir}
	var totalSize int64

	err := afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Continue walking despite errors
		}
		if !info.IsDir() && strings.HasSuffix(strings.ToLower(info.Name()), ".pcm") {
			stats.Files++
			totalSize += info.Size()
		}
		return nil
	})
	stats.SizeMB = float64(totalSize) / (1024 * 1024)
	return stats, err
}

// ClearCache removes all cached chunk audio.
func ClearCache(fs afero.Fs, dir string) error {
	return fs.RemoveAll(dir)
}

func md5Sum(s string) string {
	h := md5.New()
	io.WriteString(h, s)
	return fmt.Sprintf("%x", h.Sum(nil))
}
