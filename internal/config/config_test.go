package config

import (
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("paths.data_dir", "/data")

	cfg := Load()
	if cfg.TTS.Engine != "auto" || cfg.TTS.Voice != "Kore" || cfg.TTS.Rate != 0 {
		t.Errorf("unexpected tts defaults %+v", cfg.TTS)
	}
	if cfg.Generation.Concurrency != 3 || cfg.Generation.ChunkSize != 600 || cfg.Generation.RequestsPerMinute != 0 {
		t.Errorf("unexpected generation defaults %+v", cfg.Generation)
	}
	if cfg.Playback.Rate != 1.0 {
		t.Errorf("expected playback rate 1.0, got %v", cfg.Playback.Rate)
	}
	if want := filepath.Join("/data", "cache"); cfg.Cache.Dir != want || !cfg.Cache.Enabled {
		t.Errorf("expected enabled cache in %s, got %+v", want, cfg.Cache)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.LogLevel)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("VOXNEST_TTS_VOICE", "Puck")
	t.Setenv("VOXNEST_GENERATION_CONCURRENCY", "5")

	Init()
	cfg := Load()
	if cfg.TTS.Voice != "Puck" {
		t.Errorf("expected voice from env, got %s", cfg.TTS.Voice)
	}
	if cfg.Generation.Concurrency != 5 {
		t.Errorf("expected concurrency from env, got %d", cfg.Generation.Concurrency)
	}
}

func TestSetupLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	SetupLogging("debug")
	if logrus.GetLevel() != logrus.DebugLevel {
		t.Errorf("expected debug, got %s", logrus.GetLevel())
	}
	SetupLogging("nonsense")
	if logrus.GetLevel() != logrus.WarnLevel {
		t.Errorf("expected warn fallback, got %s", logrus.GetLevel())
	}
}
