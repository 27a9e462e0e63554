// Package importer reads the text of a document chosen by the user.
package importer

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// MaxSize is the largest file accepted, in bytes.
const MaxSize = 5 * 1024 * 1024

// Extensions lists the accepted file extensions.
var Extensions = []string{".txt", ".md", ".rtf"}

// Error is an import failure with a message meant for the user.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) UserMessage() string { return e.Message }

var (
	msgUnsupported = fmt.Sprintf("Unsupported file format. Please choose a %s file.", strings.Join(Extensions, ", "))
	msgTooLarge    = "The file is too large. Please choose a file smaller than 5MB."
	msgRead        = "An error occurred while reading the file."
)

// Supported reports whether path has an accepted extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ReadFile returns the text of path. UTF-8 is assumed unless a byte order
// mark says UTF-16; a UTF-8 BOM is dropped.
func ReadFile(fs afero.Fs, path string) (string, error) {
	if !Supported(path) {
		return "", &Error{Message: msgUnsupported}
	}

	info, err := fs.Stat(path)
	if err != nil {
		return "", &Error{Message: msgRead, Err: err}
	}
	if info.Size() > MaxSize {
		return "", &Error{Message: msgTooLarge}
	}

	f, err := fs.Open(path)
	if err != nil {
		return "", &Error{Message: msgRead, Err: err}
	}
	defer f.Close()

	return ReadText(f)
}

// ReadText decodes text from r like ReadFile does, failing once r yields
// more than MaxSize bytes.
func ReadText(r io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return "", &Error{Message: msgRead, Err: err}
	}
	if len(raw) > MaxSize {
		return "", &Error{Message: msgTooLarge}
	}

	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	data, _, err := transform.Bytes(decoder, raw)
	if err != nil {
		return "", &Error{Message: msgRead, Err: err}
	}
	return string(data), nil
}
