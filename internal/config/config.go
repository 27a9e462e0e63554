package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	appName   = "voxnest"
	envPrefix = "VOXNEST"
)

type Config struct {
	TTS        TTSConfig
	Generation GenerationConfig
	Playback   PlaybackConfig
	Cache      CacheConfig
	DataDir    string
	LogLevel   string
}

type TTSConfig struct {
	Engine      string
	Model       string
	Voice       string
	Rate        float64
	Pitch       float64
	Tone        string
	Language    string
	ESpeakVoice string
}

type GenerationConfig struct {
	Concurrency       int
	ChunkSize         int
	RequestsPerMinute int
}

type PlaybackConfig struct {
	Rate float64
}

type CacheConfig struct {
	Enabled bool
	Dir     string
}

func SetDefaults() {
	viper.SetDefault("tts.engine", "auto") // gemini with a key, espeak without
	viper.SetDefault("tts.model", "gemini-2.5-flash-preview-tts")
	viper.SetDefault("tts.voice", "Kore")
	viper.SetDefault("tts.rate", 0.0) // 0 follows the tone preset, else 1.0
	viper.SetDefault("tts.pitch", 0.0)
	viper.SetDefault("tts.tone", "")
	viper.SetDefault("tts.language", "en-US")
	viper.SetDefault("tts.espeak_voice", "en")

	viper.SetDefault("generation.concurrency", 3)
	viper.SetDefault("generation.chunk_size", 600)
	viper.SetDefault("generation.requests_per_minute", 0)

	viper.SetDefault("playback.rate", 1.0)

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.dir", "")

	viper.SetDefault("paths.data_dir", DefaultDataDir())
	viper.SetDefault("log.level", "warn")
}

// Init wires viper to the config file, the environment and a .env file in
// the working directory.
func Init() {
	// a missing .env is fine
	_ = godotenv.Load()

	viper.SetConfigName(appName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/." + appName)
	viper.AddConfigPath(".")

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	SetDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			logrus.WithError(err).Warn("Failed to read config file")
		}
	}
}

// Load returns the current settings.
func Load() Config {
	dataDir := viper.GetString("paths.data_dir")
	cacheDir := viper.GetString("cache.dir")
	if cacheDir == "" {
		cacheDir = filepath.Join(dataDir, "cache")
	}

	return Config{
		TTS: TTSConfig{
			Engine:      viper.GetString("tts.engine"),
			Model:       viper.GetString("tts.model"),
			Voice:       viper.GetString("tts.voice"),
			Rate:        viper.GetFloat64("tts.rate"),
			Pitch:       viper.GetFloat64("tts.pitch"),
			Tone:        viper.GetString("tts.tone"),
			Language:    viper.GetString("tts.language"),
			ESpeakVoice: viper.GetString("tts.espeak_voice"),
		},
		Generation: GenerationConfig{
			Concurrency:       viper.GetInt("generation.concurrency"),
			ChunkSize:         viper.GetInt("generation.chunk_size"),
			RequestsPerMinute: viper.GetInt("generation.requests_per_minute"),
		},
		Playback: PlaybackConfig{
			Rate: viper.GetFloat64("playback.rate"),
		},
		Cache: CacheConfig{
			Enabled: viper.GetBool("cache.enabled"),
			Dir:     cacheDir,
		},
		DataDir:  dataDir,
		LogLevel: viper.GetString("log.level"),
	}
}

// DefaultDataDir is where the key, history and chunk cache live.
func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appName)
	}
	return "." + appName
}

// SetupLogging applies level to the global logger. Unknown levels fall back
// to warn.
func SetupLogging(level string) {
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithField("level", level).Warn("Unknown log level, using warn")
		lvl = logrus.WarnLevel
	}
	logrus.SetLevel(lvl)
}
