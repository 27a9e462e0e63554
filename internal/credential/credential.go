// Package credential keeps the user's API key between runs.
package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// EnvKey is consulted when no key has been saved.
const EnvKey = "GEMINI_API_KEY"

// FileName is the key file inside the data directory.
const FileName = "api_key"

// Store persists a single credential. Get returns "" when nothing is stored.
type Store interface {
	Get() (string, error)
	Set(key string) error
	Clear() error
}

var ErrBlankKey = errors.New("api key is blank")

// FileStore keeps the key in a file readable only by the owner.
type FileStore struct {
	fs   afero.Fs
	path string
}

func NewFileStore(fs afero.Fs, dir string) *FileStore {
	return &FileStore{fs: fs, path: filepath.Join(dir, FileName)}
}

func (s *FileStore) Get() (string, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read api key: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *FileStore) Set(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrBlankKey
	}
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.path, []byte(key), 0600); err != nil {
		return fmt.Errorf("failed to save api key: %w", err)
	}
	logrus.WithField("file", s.path).Debug("API key saved")
	return nil
}

func (s *FileStore) Clear() error {
	if err := s.fs.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear api key: %w", err)
	}
	return nil
}

// MemoryStore holds the key for the lifetime of the process.
type MemoryStore struct {
	mu  sync.RWMutex
	key string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key, nil
}

func (s *MemoryStore) Set(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrBlankKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = key
	return nil
}

func (s *MemoryStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = ""
	return nil
}

// EnvFallback reads an environment variable when the wrapped store is empty.
// Set and Clear only touch the wrapped store.
type EnvFallback struct {
	Store
	lookup func(string) string
	name   string
}

func WithEnvFallback(store Store, name string) *EnvFallback {
	return &EnvFallback{Store: store, lookup: os.Getenv, name: name}
}

func (s *EnvFallback) Get() (string, error) {
	key, err := s.Store.Get()
	if err != nil || key != "" {
		return key, err
	}
	return strings.TrimSpace(s.lookup(s.name)), nil
}
