package nest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"voxnest/internal/audio"
	"voxnest/internal/cli/display"
	"voxnest/internal/cli/scheme/colours"
	"voxnest/internal/domain/speech"
	"voxnest/internal/playback"
	"voxnest/internal/session"
	"voxnest/internal/text/importer"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	rateStep = 0.25
	minRate  = 0.5
	maxRate  = 2.0
)

func (vn *VoxNest) Generate(cmd *cobra.Command, args []string) error {
	text, err := vn.readText(cmd, args)
	if err != nil {
		return errors.New(speech.UserMessage(err))
	}

	noPlay, _ := cmd.Flags().GetBool("no-play")
	outDir, _ := cmd.Flags().GetString("out")
	name, _ := cmd.Flags().GetString("name")

	params := session.Params{
		Text:         text,
		Voice:        viper.GetString("tts.voice"),
		Rate:         viper.GetFloat64("tts.rate"),
		Pitch:        viper.GetFloat64("tts.pitch"),
		Tone:         viper.GetString("tts.tone"),
		SkipPlayback: noPlay,
	}
	if _, ok := speech.FindVoice(params.Voice); !ok && params.Voice != "" {
		colours.Warning.Fprintf(vn.out, "⚠️  '%s' is not in the voice catalog, sending it as is\n", params.Voice)
	}

	progress := display.NewProgress(vn.out)
	vn.Session.Subscribe(func(s session.Snapshot) {
		if s.Progress != nil {
			progress.Update(s.Progress.Current, s.Progress.Total)
		}
	})

	fmt.Fprintln(vn.out)
	colours.Info.Fprintf(vn.out, "🎙️  Generating speech (%d characters)... press Ctrl+C to stop\n", len([]rune(text)))

	result, err := vn.Session.Generate(vn.ctx, params)
	progress.Done()
	snap := vn.Session.Snapshot()

	if err != nil && result == nil {
		if speech.IsCancelled(err) {
			colours.Warning.Fprintln(vn.out, "⏹️  "+snap.Error)
			return nil
		}
		logrus.WithError(err).Debug("Generation failed")
		return errors.New(snap.Error)
	}

	vn.printSummary(snap)

	if outDir != "" || noPlay {
		if outDir == "" {
			outDir = "."
		}
		path, err := vn.Session.Export(outDir, name)
		if err != nil {
			return fmt.Errorf("failed to save audio: %w", err)
		}
		colours.Success.Fprintf(vn.out, "💾 Saved to %s\n", path)
	}

	if err != nil {
		// generated but could not be played
		return errors.New(snap.Error)
	}
	if !noPlay {
		vn.waitForUserInput(vn.in)
	}
	return nil
}

// readText takes the text from --file, the arguments, or piped stdin, in
// that order.
func (vn *VoxNest) readText(cmd *cobra.Command, args []string) (string, error) {
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		text, err := importer.ReadFile(vn.fs, file)
		if err != nil {
			return "", err
		}
		colours.Muted.Fprintf(vn.out, "📄 Loaded %s\n", file)
		return text, nil
	}
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if f, ok := vn.in.(*os.File); ok && !isatty.IsTerminal(f.Fd()) {
		return importer.ReadText(f)
	}
	return "", nil
}

func (vn *VoxNest) printSummary(snap session.Snapshot) {
	fmt.Fprintln(vn.out)
	colours.Success.Fprintf(vn.out, "✅ Generated in %.1fs", snap.GenerationTime.Seconds())
	if snap.Result != nil {
		if d, err := audio.FragmentsDuration(snap.Result.Fragments); err == nil {
			fmt.Fprintf(vn.out, " | 🔊 %s of audio", display.Duration(d))
		}
	}
	fmt.Fprintf(vn.out, " | 📁 %s.wav\n", snap.FileName)
}

// waitForUserInput drives playback from stdin until the user stops it, or
// until playback ends when stdin has nothing more to say.
func (vn *VoxNest) waitForUserInput(r io.Reader) {
	finished := make(chan struct{}, 1)
	vn.Player.Subscribe(func(s playback.State) {
		if s == playback.StateFinished {
			select {
			case finished <- struct{}{}:
			default:
			}
		}
	})

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	inputClosed := false
	vn.printTransportHelp()
	for {
		select {
		case <-vn.ctx.Done():
			return
		case <-finished:
			if inputClosed {
				return
			}
			colours.Success.Fprintln(vn.out, "\n✅ Playback finished. Press 'p' to replay or 's' to quit.")
		case line, ok := <-lines:
			if !ok {
				lines = nil
				inputClosed = true
				if vn.Player.State() != playback.StatePlaying {
					return
				}
				continue
			}
			if vn.handleInput(line) {
				return
			}
		}
	}
}

func (vn *VoxNest) printTransportHelp() {
	fmt.Fprint(vn.out, "\n⏯️  'p' pause/resume, '+'/'-' speed, 'r' replay, 'w' save, 's' stop: ")
}

// handleInput applies one transport command and reports whether to quit.
func (vn *VoxNest) handleInput(input string) bool {
	input = strings.TrimSpace(strings.ToLower(input))

	switch input {
	case "p", "pause", "play":
		vn.Player.Toggle()
		if vn.Player.State() == playback.StatePaused {
			colours.Warning.Fprintln(vn.out, "⏸️  Paused")
		} else {
			colours.Success.Fprintln(vn.out, "▶️  Playing")
		}
	case "+", "faster":
		vn.stepRate(rateStep)
	case "-", "slower":
		vn.stepRate(-rateStep)
	case "r", "replay":
		vn.Player.Replay()
		colours.Success.Fprintln(vn.out, "🔁 Replaying")
	case "w", "save":
		path, err := vn.Player.Export(vn.fs, ".", vn.Session.Snapshot().FileName)
		if err != nil {
			colours.Error.Fprintf(vn.out, "❌ %v\n", err)
			break
		}
		colours.Success.Fprintf(vn.out, "💾 Saved to %s\n", path)
	case "s", "stop", "q", "quit":
		vn.Player.Dispose()
		colours.Warning.Fprintln(vn.out, "⏹️  Stopped")
		return true
	case "":
	default:
		colours.Info.Fprintln(vn.out, "ℹ️  Use 'p' to pause/resume, '+'/'-' to change speed, 's' to stop")
	}
	return false
}

func (vn *VoxNest) stepRate(delta float64) {
	rate := vn.Player.Rate() + delta
	rate = max(minRate, min(maxRate, rate))
	if err := vn.Player.SetRate(rate); err != nil {
		colours.Error.Fprintf(vn.out, "❌ %v\n", err)
		return
	}
	colours.Info.Fprintf(vn.out, "⏩ Speed %.2fx\n", rate)
}
