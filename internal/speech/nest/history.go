package nest

import (
	"errors"
	"fmt"
	"time"

	"voxnest/internal/cli/scheme/colours"
	"voxnest/internal/domain/history"

	"github.com/spf13/cobra"
)

const shortIDLength = 8

func (vn *VoxNest) ListHistory(cmd *cobra.Command, args []string) error {
	entries, err := vn.history.List()
	if err != nil {
		return err
	}

	fmt.Fprintln(vn.out)
	colours.Title.Fprintln(vn.out, "🕘 Generation History 🕘")
	fmt.Fprintln(vn.out)

	if len(entries) == 0 {
		colours.Warning.Fprintln(vn.out, "🔍 Nothing generated yet. Try: voxnest generate \"Hello!\"")
		return nil
	}

	for i, e := range entries {
		fmt.Fprintf(vn.out, "  %d. ", i+1)
		colours.Info.Fprintf(vn.out, "[%s]", shortID(e.ID))
		fmt.Fprintf(vn.out, " %s | ", elapsedSince(e.CreatedAt))
		colours.Voice.Fprintf(vn.out, "%s", e.Voice)
		fmt.Fprintf(vn.out, " | %d chunks\n", len(e.Fragments))
		fmt.Fprintf(vn.out, "     💬 %s\n", e.TextPreview)
		colours.Muted.Fprintf(vn.out, "     📁 %s.wav\n", e.FileName)
		fmt.Fprintln(vn.out)
	}

	colours.Success.Fprintf(vn.out, "✨ %d generations. Replay with 'voxnest history play <id>'\n", len(entries))
	return nil
}

func (vn *VoxNest) PlayHistory(cmd *cobra.Command, args []string) error {
	entry, err := vn.Session.PlayHistory(args[0])
	if err != nil {
		return historyError(args[0], err)
	}

	fmt.Fprintln(vn.out)
	colours.Title.Fprintf(vn.out, "🎧 %s\n", entry.FileName)
	fmt.Fprintf(vn.out, "💬 %s\n", entry.TextPreview)
	vn.waitForUserInput(vn.in)
	return nil
}

func (vn *VoxNest) ExportHistory(cmd *cobra.Command, args []string) error {
	outDir, _ := cmd.Flags().GetString("out")
	if outDir == "" {
		outDir = "."
	}

	path, err := vn.Session.ExportHistory(args[0], outDir)
	if err != nil {
		return historyError(args[0], err)
	}
	colours.Success.Fprintf(vn.out, "💾 Saved to %s\n", path)
	return nil
}

func (vn *VoxNest) ClearHistory(cmd *cobra.Command, args []string) error {
	if err := vn.history.Clear(); err != nil {
		return err
	}
	colours.Success.Fprintln(vn.out, "🧹 History cleared")
	return nil
}

func historyError(id string, err error) error {
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("no generation with id '%s' (see 'voxnest history list')", id)
	}
	return err
}

func shortID(id string) string {
	if len(id) > shortIDLength {
		return id[:shortIDLength]
	}
	return id
}

func elapsedSince(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return t.Format("2006-01-02 15:04")
}
