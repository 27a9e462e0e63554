// Package display renders generation progress and durations on the terminal.
package display

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"voxnest/internal/cli/scheme/colours"

	"github.com/mattn/go-isatty"
)

const barWidth = 24

// Progress prints chunk progress. On a terminal the line is redrawn in
// place; elsewhere each change gets its own line.
type Progress struct {
	mu      sync.Mutex
	w       io.Writer
	tty     bool
	last    int
	started bool
}

func NewProgress(w io.Writer) *Progress {
	tty := false
	if f, ok := w.(*os.File); ok {
		tty = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return &Progress{w: w, tty: tty, last: -1}
}

func (p *Progress) Update(current, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if current == p.last {
		return
	}
	p.last = current
	p.started = true

	line := Line(current, total)
	if p.tty {
		fmt.Fprint(p.w, "\r"+colours.Progress.Sprint(line))
		return
	}
	fmt.Fprintln(p.w, line)
}

// Done ends the progress line.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tty && p.started {
		fmt.Fprintln(p.w)
	}
	p.last = -1
	p.started = false
}

// Line is the progress text for current of total chunks.
func Line(current, total int) string {
	if total <= 0 {
		return "Preparing..."
	}
	filled := current * barWidth / total
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	return fmt.Sprintf("🎙️  %s %d/%d chunks (%d%%)", bar, current, total, current*100/total)
}

// Duration formats d as m:ss.
func Duration(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
