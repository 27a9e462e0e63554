// Package history keeps the list of past generations so they can be played
// or exported again without another remote call.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// PreviewLength is the number of runes of text kept in an entry's preview.
const PreviewLength = 100

const fileName = "history.json"

var ErrNotFound = errors.New("history entry not found")

// Entry is one successful generation. Entries are never modified once added.
type Entry struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	TextPreview string    `json:"text_preview"`
	Voice       string    `json:"voice"`
	Fragments   []string  `json:"fragments"`
	FileName    string    `json:"file_name"`
}

// NewEntry builds an entry with a fresh ID and a truncated preview of text.
func NewEntry(text, voice string, fragments []string, fileName string) Entry {
	return Entry{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now(),
		TextPreview: Preview(text),
		Voice:       voice,
		Fragments:   fragments,
		FileName:    fileName,
	}
}

// Preview cuts text to PreviewLength runes, marking the cut with "...".
func Preview(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= PreviewLength {
		return text
	}
	return string(runes[:PreviewLength]) + "..."
}

// storedHistory is the on-disk layout of the history file.
type storedHistory struct {
	Entries     []Entry   `json:"entries"`
	LastUpdated time.Time `json:"last_updated"`
	Total       int       `json:"total"`
}

// Store is a JSON file of entries, newest first.
type Store struct {
	mu   sync.Mutex
	fs   afero.Fs
	file string
}

func NewStore(fs afero.Fs, dir string) *Store {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		logrus.WithError(err).Warn("Failed to create history directory")
	}
	return &Store{fs: fs, file: filepath.Join(dir, fileName)}
}

// List returns all entries, newest first.
func (s *Store) List() ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Get returns the entry with the given ID. A unique ID prefix is accepted
// so the CLI can take the short form it prints.
func (s *Store) Get(id string) (Entry, error) {
	entries, err := s.List()
	if err != nil {
		return Entry{}, err
	}

	var match *Entry
	for i := range entries {
		if entries[i].ID == id {
			return entries[i], nil
		}
		if id != "" && strings.HasPrefix(entries[i].ID, id) {
			if match != nil {
				return Entry{}, fmt.Errorf("history id %q is ambiguous", id)
			}
			match = &entries[i]
		}
	}
	if match == nil {
		return Entry{}, ErrNotFound
	}
	return *match, nil
}

// Add prepends e to the history.
func (s *Store) Add(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	return s.save(append([]Entry{e}, entries...))
}

// Clear removes the history file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fs.Remove(s.file); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	logrus.Info("Cleared generation history")
	return nil
}

func (s *Store) load() ([]Entry, error) {
	file, err := s.fs.Open(s.file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open history file: %w", err)
	}
	defer file.Close()

	var stored storedHistory
	if err := json.NewDecoder(file).Decode(&stored); err != nil {
		return nil, fmt.Errorf("failed to decode history file: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"entries":      len(stored.Entries),
		"last_updated": stored.LastUpdated.Format(time.RFC3339),
	}).Debug("Loaded generation history")

	return stored.Entries, nil
}

func (s *Store) save(entries []Entry) error {
	stored := storedHistory{
		Entries:     entries,
		LastUpdated: time.Now(),
		Total:       len(entries),
	}

	file, err := s.fs.OpenFile(s.file, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to create history file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(stored); err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"entries": len(entries),
		"file":    s.file,
	}).Debug("Saved generation history")

	return nil
}
