package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"voxnest/internal/cli/scheme/colours"
	"voxnest/internal/config"
	"voxnest/internal/speech/nest"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	config.Init()

	app := nest.NewVoxNest()

	// Ctrl+C stops a running generation first, a second one quits
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig == syscall.SIGINT && app.Interrupt() {
				continue
			}
			app.Close()
			fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye!"))
			os.Exit(0)
		}
	}()

	rootCmd := &cobra.Command{
		Use:   "voxnest",
		Short: "🎙️ Turn text into natural speech",
		Long: `
┌─────────────────────────────────────┐
│  🎙️  Welcome to VoxNest!           │
│  Text in, natural speech out        │
└─────────────────────────────────────┘

VoxNest reads your text aloud with Gemini voices, or offline with eSpeak.
Long texts are split and generated in parallel, then played back in order.
		`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			config.SetupLogging(cfg.LogLevel)
			return app.Init(cfg)
		},
		Run: func(cmd *cobra.Command, args []string) {
			app.ShowWelcome()
		},
	}
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("engine", "", "Speech engine: auto, gemini, cloud, espeak or mock")
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("tts.engine", rootCmd.PersistentFlags().Lookup("engine"))

	// Generate command
	generateCmd := &cobra.Command{
		Use:   "generate [text...]",
		Short: "🗣️ Turn text into speech",
		Long:  "Generate speech from the arguments, a text file (--file) or piped stdin, then play it",
		RunE:  app.Generate,
	}
	generateCmd.Flags().StringP("file", "f", "", "Read text from a .txt, .md or .rtf file")
	generateCmd.Flags().StringP("voice", "v", "", "Voice to use. See 'voxnest voices'")
	generateCmd.Flags().Float64P("rate", "r", 0, "Speaking rate, 0 follows the tone preset")
	generateCmd.Flags().Float64("pitch", 0, "Pitch shift in semitones")
	generateCmd.Flags().StringP("tone", "t", "", "Tone preset or a custom style. See 'voxnest tones'")
	generateCmd.Flags().StringP("out", "o", "", "Save the audio as WAV into this directory")
	generateCmd.Flags().String("name", "", "File name for the saved audio")
	generateCmd.Flags().Bool("no-play", false, "Only save the audio, do not play it")
	viper.BindPFlag("tts.voice", generateCmd.Flags().Lookup("voice"))
	viper.BindPFlag("tts.rate", generateCmd.Flags().Lookup("rate"))
	viper.BindPFlag("tts.pitch", generateCmd.Flags().Lookup("pitch"))
	viper.BindPFlag("tts.tone", generateCmd.Flags().Lookup("tone"))

	// History commands
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "🕘 Replay or export past generations",
		RunE:  app.ListHistory,
	}
	historyListCmd := &cobra.Command{
		Use:   "list",
		Short: "📋 List past generations",
		RunE:  app.ListHistory,
	}
	historyPlayCmd := &cobra.Command{
		Use:   "play [id]",
		Short: "🎧 Play a past generation",
		Args:  cobra.ExactArgs(1),
		RunE:  app.PlayHistory,
	}
	historyExportCmd := &cobra.Command{
		Use:   "export [id]",
		Short: "💾 Save a past generation as WAV",
		Args:  cobra.ExactArgs(1),
		RunE:  app.ExportHistory,
	}
	historyExportCmd.Flags().StringP("out", "o", "", "Directory to save into")
	historyClearCmd := &cobra.Command{
		Use:   "clear",
		Short: "🧹 Forget all past generations",
		RunE:  app.ClearHistory,
	}
	historyCmd.AddCommand(historyListCmd, historyPlayCmd, historyExportCmd, historyClearCmd)

	// Key commands
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "🔑 Manage your Gemini API key",
		RunE:  app.KeyStatus,
	}
	keyCmd.AddCommand(
		&cobra.Command{
			Use:   "set [key]",
			Short: "Save an API key, prompting when none is given",
			Args:  cobra.MaximumNArgs(1),
			RunE:  app.SetKey,
		},
		&cobra.Command{
			Use:   "clear",
			Short: "Remove the saved API key",
			RunE:  app.ClearKey,
		},
		&cobra.Command{
			Use:   "status",
			Short: "Show whether a key is saved",
			RunE:  app.KeyStatus,
		},
	)

	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "🗣️ List available voices",
		RunE:  app.ListVoices,
	}
	voicesCmd.Flags().Bool("remote", false, "Also ask the configured engine for its voices")

	tonesCmd := &cobra.Command{
		Use:   "tones",
		Short: "🎭 List tone presets",
		RunE:  app.ListTones,
	}

	enginesCmd := &cobra.Command{
		Use:   "engines",
		Short: "⚙️ List speech engines",
		RunE:  app.ListEngines,
	}

	// Cache commands
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "🗄️ Inspect or clear the chunk cache",
		RunE:  app.CacheStatus,
	}
	cacheCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all cached chunks",
		RunE:  app.ClearCache,
	})

	rootCmd.AddCommand(generateCmd, historyCmd, keyCmd, voicesCmd, tonesCmd, enginesCmd, cacheCmd)

	err := rootCmd.Execute()
	app.Close()
	if err != nil {
		logrus.WithError(err).Debug("Command failed")
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}
