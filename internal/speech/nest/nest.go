package nest

import (
	"context"
	"fmt"
	"io"
	"os"

	"voxnest/internal/cli/scheme/colours"
	"voxnest/internal/config"
	"voxnest/internal/credential"
	"voxnest/internal/domain/history"
	"voxnest/internal/playback"
	"voxnest/internal/session"
	"voxnest/internal/speech/generator"
	"voxnest/internal/speech/tts"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

// VoxNest main application structure
type VoxNest struct {
	cfg     config.Config
	fs      afero.Fs
	keys    credential.Store
	history *history.Store

	Player     *playback.Controller
	Session    *session.Session
	openDevice playback.DeviceFactory

	in     io.Reader
	out    io.Writer
	ctx    context.Context
	Cancel context.CancelFunc
}

func NewVoxNest() *VoxNest {
	ctx, cancel := context.WithCancel(context.Background())
	return &VoxNest{
		fs:         afero.NewOsFs(),
		openDevice: playback.OpenSpeaker,
		in:         os.Stdin,
		out:        os.Stdout,
		ctx:        ctx,
		Cancel:     cancel,
	}
}

// Init builds the engine, player and session from cfg. It runs once flags
// have been parsed so they can override the config file.
func (vn *VoxNest) Init(cfg config.Config) error {
	vn.cfg = cfg

	// without a data directory the key and history last for this run only
	var keys credential.Store = credential.NewFileStore(vn.fs, cfg.DataDir)
	dataFs := vn.fs
	if err := vn.fs.MkdirAll(cfg.DataDir, 0700); err != nil {
		logrus.WithError(err).WithField("data_dir", cfg.DataDir).Warn("Data directory unavailable, keeping key and history in memory")
		keys = credential.NewMemoryStore()
		dataFs = afero.NewMemMapFs()
	}

	vn.keys = credential.WithEnvFallback(keys, credential.EnvKey)
	vn.history = history.NewStore(dataFs, cfg.DataDir)

	ttsConfig := tts.Config{
		Type:        cfg.TTS.Engine,
		Model:       cfg.TTS.Model,
		Language:    cfg.TTS.Language,
		ESpeakVoice: cfg.TTS.ESpeakVoice,
	}
	opener := tts.NewOpener(ttsConfig)
	if cfg.Cache.Enabled {
		opener = tts.NewCachedOpener(ttsConfig, vn.fs, cfg.Cache.Dir)
	}

	gen := generator.New(opener, generator.Options{
		Concurrency:       cfg.Generation.Concurrency,
		ChunkSize:         cfg.Generation.ChunkSize,
		RequestsPerMinute: cfg.Generation.RequestsPerMinute,
	})

	vn.Player = playback.NewController(vn.openDevice)
	if cfg.Playback.Rate > 0 {
		if err := vn.Player.SetRate(cfg.Playback.Rate); err != nil {
			logrus.WithError(err).Warn("Ignoring playback rate")
		}
	}

	var opts []session.Option
	if !tts.RequiresKey(cfg.TTS.Engine) {
		opts = append(opts, session.KeyOptional())
	}
	vn.Session = session.New(gen, vn.Player, vn.keys, vn.history, vn.fs, opts...)

	logrus.WithFields(logrus.Fields{
		"engine":   cfg.TTS.Engine,
		"data_dir": cfg.DataDir,
		"cache":    cfg.Cache.Enabled,
	}).Debug("VoxNest initialized")
	return nil
}

// Interrupt handles Ctrl+C. A running generation is stopped and the command
// carries on; otherwise it reports false and the caller exits.
func (vn *VoxNest) Interrupt() bool {
	if vn.Session != nil && vn.Session.Snapshot().Loading {
		vn.Session.Stop()
		return true
	}
	return false
}

// Close stops everything and releases the audio device.
func (vn *VoxNest) Close() {
	vn.Cancel()
	if vn.Session != nil {
		vn.Session.Close()
	}
}

func (vn *VoxNest) ShowWelcome() {
	fmt.Fprintln(vn.out)
	colours.Title.Fprintln(vn.out, "🎙️  Welcome to VoxNest! 🎙️")
	fmt.Fprintln(vn.out)
	colours.Info.Fprintln(vn.out, "📚 Available commands:")
	fmt.Fprintln(vn.out, "  • voxnest generate  - Turn text into speech")
	fmt.Fprintln(vn.out, "  • voxnest history   - Replay or export past generations")
	fmt.Fprintln(vn.out, "  • voxnest key       - Save or clear your Gemini API key")
	fmt.Fprintln(vn.out, "  • voxnest voices    - List available voices")
	fmt.Fprintln(vn.out, "  • voxnest tones     - List tone presets")
	fmt.Fprintln(vn.out, "  • voxnest engines   - List speech engines")
	fmt.Fprintln(vn.out, "  • voxnest cache     - Inspect or clear the chunk cache")
	fmt.Fprintln(vn.out)

	if vn.Session != nil && !vn.Session.KeySaved() && tts.RequiresKey(vn.cfg.TTS.Engine) {
		colours.Warning.Fprintln(vn.out, "🔑 No API key saved yet. Run 'voxnest key set' to add one.")
		colours.Muted.Fprintln(vn.out, "   Get a key at https://aistudio.google.com/app/apikey")
		return
	}
	colours.Prompt.Fprintln(vn.out, "✨ Ready when you are: voxnest generate \"Hello there!\"")
}
