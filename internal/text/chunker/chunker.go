// Package chunker splits long text into pieces small enough for one
// speech-generation request.
package chunker

import (
	"strings"
	"unicode"
)

// DefaultMaxLength keeps a single request well under the engine's time limit.
const DefaultMaxLength = 600

// sentenceEndings are tried in order; the first marker found in the window wins.
var sentenceEndings = []rune{'\n', '.', '?', '!'}

// Split cuts text into chunks of at most maxLength runes. It prefers to cut
// after a newline or sentence ending, then before the last space, and only
// cuts mid-word when the window holds neither. Chunks that are blank after
// trimming are dropped. A non-positive maxLength disables splitting.
func Split(text string, maxLength int) []string {
	var chunks []string
	remaining := []rune(text)

	for len(remaining) > 0 {
		if maxLength <= 0 || len(remaining) <= maxLength {
			chunks = append(chunks, string(remaining))
			break
		}

		split := splitPoint(remaining[:maxLength])
		chunks = append(chunks, string(remaining[:split]))
		remaining = trimLeftSpace(remaining[split:])
	}

	return dropBlank(chunks)
}

// splitPoint returns the number of runes of window that form the next chunk.
func splitPoint(window []rune) int {
	for _, ending := range sentenceEndings {
		if i := lastIndex(window, ending); i != -1 {
			return i + 1
		}
	}
	if i := lastIndex(window, ' '); i != -1 {
		return i
	}
	return len(window)
}

func lastIndex(rs []rune, r rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == r {
			return i
		}
	}
	return -1
}

func trimLeftSpace(rs []rune) []rune {
	i := 0
	for i < len(rs) && unicode.IsSpace(rs[i]) {
		i++
	}
	return rs[i:]
}

func dropBlank(chunks []string) []string {
	out := chunks[:0]
	for _, c := range chunks {
		if strings.TrimSpace(c) != "" {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
