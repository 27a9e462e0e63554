package nest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"voxnest/internal/cli/scheme/colours"
	"voxnest/internal/credential"
	"voxnest/internal/domain/speech"
	"voxnest/internal/speech/tts"

	"github.com/spf13/cobra"
)

func (vn *VoxNest) SetKey(cmd *cobra.Command, args []string) error {
	var key string
	if len(args) > 0 {
		key = args[0]
	} else {
		colours.Prompt.Fprint(vn.out, "🔑 Paste your Gemini API key: ")
		reader := bufio.NewReader(vn.in)
		input, _ := reader.ReadString('\n')
		key = strings.TrimSpace(input)
	}

	if err := vn.Session.SaveKey(key); err != nil {
		if errors.Is(err, credential.ErrBlankKey) {
			return errors.New("no key given")
		}
		return err
	}
	colours.Success.Fprintln(vn.out, "✅ API key saved.")
	return nil
}

func (vn *VoxNest) ClearKey(cmd *cobra.Command, args []string) error {
	if err := vn.Session.ClearKey(); err != nil {
		return err
	}
	colours.Success.Fprintln(vn.out, "🧹 API key removed.")
	return nil
}

func (vn *VoxNest) KeyStatus(cmd *cobra.Command, args []string) error {
	key, err := vn.keys.Get()
	if err != nil {
		return err
	}
	if key == "" {
		colours.Warning.Fprintln(vn.out, "🔑 No API key saved. Run 'voxnest key set'.")
		return nil
	}
	colours.Success.Fprintf(vn.out, "🔑 API key saved (%s)\n", maskKey(key))
	return nil
}

// maskKey shows only the last four characters of key.
func maskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("•", len(key))
	}
	return strings.Repeat("•", 8) + key[len(key)-4:]
}

func (vn *VoxNest) ListVoices(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(vn.out)
	colours.Title.Fprintln(vn.out, "🗣️  Voices 🗣️")

	for _, category := range speech.Voices {
		fmt.Fprintln(vn.out)
		colours.Info.Fprintf(vn.out, "%s:\n", category.Label)
		for _, o := range category.Options {
			fmt.Fprint(vn.out, "  • ")
			colours.Voice.Fprintf(vn.out, "%-8s", o.Value)
			fmt.Fprintf(vn.out, " %s\n", o.Label)
		}
	}

	if engineVoices, _ := cmd.Flags().GetBool("remote"); engineVoices {
		return vn.listEngineVoices()
	}
	fmt.Fprintln(vn.out)
	colours.Muted.Fprintf(vn.out, "Default: %s. Pick one with --voice.\n", speech.DefaultVoice())
	return nil
}

// listEngineVoices asks the configured engine for its own voice list.
func (vn *VoxNest) listEngineVoices() error {
	ctx, cancel := context.WithTimeout(vn.ctx, 30*time.Second)
	defer cancel()

	key, err := vn.keys.Get()
	if err != nil {
		return err
	}
	synth, err := tts.NewSynthesizer(ctx, tts.Config{
		Type:        vn.cfg.TTS.Engine,
		APIKey:      key,
		Model:       vn.cfg.TTS.Model,
		Language:    vn.cfg.TTS.Language,
		ESpeakVoice: vn.cfg.TTS.ESpeakVoice,
	})
	if err != nil {
		return err
	}
	defer synth.Close()

	lister, ok := synth.(tts.VoiceLister)
	if !ok {
		colours.Warning.Fprintln(vn.out, "\nThis engine only offers the voices above.")
		return nil
	}
	voices, err := lister.Voices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list engine voices: %w", err)
	}

	fmt.Fprintln(vn.out)
	colours.Info.Fprintf(vn.out, "Engine voices (%d):\n", len(voices))
	for _, v := range voices {
		fmt.Fprintf(vn.out, "  • %-28s %-8s %s\n", v.Name, v.LanguageCode, v.Gender)
	}
	return nil
}

func (vn *VoxNest) ListTones(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(vn.out)
	colours.Title.Fprintln(vn.out, "🎭 Tone presets 🎭")
	fmt.Fprintln(vn.out)

	for _, t := range speech.Tones {
		fmt.Fprint(vn.out, "  • ")
		colours.Voice.Fprintf(vn.out, "%-13s", t.Key)
		fmt.Fprintf(vn.out, " %s", t.Label)
		if t.DefaultRate > 0 {
			colours.Muted.Fprintf(vn.out, " (speed %.2fx)", t.DefaultRate)
		}
		fmt.Fprintln(vn.out)
	}
	fmt.Fprintln(vn.out)
	colours.Muted.Fprintln(vn.out, "Any other --tone text is sent as a custom style, e.g. --tone \"whispering, mysterious\"")
	return nil
}

func (vn *VoxNest) ListEngines(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(vn.out)
	colours.Title.Fprintln(vn.out, "⚙️  Speech engines ⚙️")
	fmt.Fprintln(vn.out)

	for _, e := range tts.GetAvailableEngines() {
		marker := " "
		if e.String() == vn.cfg.TTS.Engine {
			marker = "*"
		}
		key := "no key needed"
		if tts.RequiresKey(e.String()) {
			key = "needs API key"
		}
		fmt.Fprintf(vn.out, " %s %-8s %s\n", marker, e, key)
	}
	fmt.Fprintln(vn.out)
	colours.Muted.Fprintf(vn.out, "Configured: %s. Change with --engine or tts.engine.\n", vn.cfg.TTS.Engine)
	return nil
}

func (vn *VoxNest) CacheStatus(cmd *cobra.Command, args []string) error {
	stats, err := tts.GetCacheStats(vn.fs, vn.cfg.Cache.Dir)
	if err != nil {
		return err
	}
	state := "enabled"
	if !vn.cfg.Cache.Enabled {
		state = "disabled"
	}
	colours.Info.Fprintf(vn.out, "🗄️  Chunk cache (%s)\n", state)
	fmt.Fprintf(vn.out, "   Directory: %s\n", stats.Directory)
	fmt.Fprintf(vn.out, "   Chunks:    %d\n", stats.Files)
	fmt.Fprintf(vn.out, "   Size:      %.2f MB\n", stats.SizeMB)
	return nil
}

func (vn *VoxNest) ClearCache(cmd *cobra.Command, args []string) error {
	if err := tts.ClearCache(vn.fs, vn.cfg.Cache.Dir); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	colours.Success.Fprintln(vn.out, "🧹 Chunk cache cleared")
	return nil
}
