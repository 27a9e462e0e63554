package tts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"voxnest/internal/domain/speech"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type EngineType string

const (
	EngineTypeMock        EngineType = "mock"
	EngineTypeGemini      EngineType = "gemini"
	EngineTypeGoogleCloud EngineType = "cloud"
	EngineTypeESpeak      EngineType = "espeak"
	EngineTypeAuto        EngineType = "auto" // gemini when a key is available, espeak otherwise
)

func (e EngineType) String() string {
	return string(e)
}

// DefaultModel is the Gemini speech model.
const DefaultModel = "gemini-2.5-flash-preview-tts"

// NewSynthesizer creates a synthesizer based on the provided config.
func NewSynthesizer(ctx context.Context, config Config) (Synthesizer, error) {
	if config.Type == EngineTypeAuto.String() || config.Type == "" {
		config.Type = bestEngineFor(config).String()
	}

	logrus.WithField("engine", config.Type).Debug("Creating speech engine")

	switch config.Type {
	case EngineTypeMock.String():
		return NewMockEngine(), nil

	case EngineTypeGemini.String():
		return newGeminiEngine(ctx, config)

	case EngineTypeGoogleCloud.String():
		return newGoogleCloudEngine(ctx, config)

	case EngineTypeESpeak.String():
		return newESpeakEngine(config)

	default:
		return nil, fmt.Errorf("unsupported TTS engine type: %s", config.Type)
	}
}

// NewOpener returns an Opener that builds config's engine for each key.
func NewOpener(config Config) Opener {
	return func(ctx context.Context, apiKey string) (Synthesizer, error) {
		c := config
		c.APIKey = apiKey
		return NewSynthesizer(ctx, c)
	}
}

// RequiresKey reports whether the engine type needs a credential. Auto
// needs one only when no offline engine is installed.
func RequiresKey(engine string) bool {
	switch EngineType(engine) {
	case EngineTypeMock, EngineTypeESpeak:
		return false
	case EngineTypeAuto, "":
		_, err := findESpeakExecutable()
		return err != nil
	}
	return true
}

func bestEngineFor(config Config) EngineType {
	if key := strings.TrimSpace(config.APIKey); key != "" && key != speech.OfflineKey {
		return EngineTypeGemini
	}
	if _, err := findESpeakExecutable(); err == nil {
		return EngineTypeESpeak
	}
	return EngineTypeGemini
}

// GetAvailableEngines returns engines usable on this machine.
func GetAvailableEngines() []EngineType {
	engines := []EngineType{EngineTypeGemini, EngineTypeGoogleCloud, EngineTypeMock}
	if _, err := findESpeakExecutable(); err == nil {
		engines = append(engines, EngineTypeESpeak)
	}
	return engines
}

// classifyError turns an engine error that rejects the credential into a
// CredentialError and leaves everything else alone.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "API key not valid") || strings.Contains(msg, "API_KEY_INVALID") {
		return &speech.CredentialError{Err: err}
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && (apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden) {
		return &speech.CredentialError{Err: err}
	}
	switch status.Code(err) {
	case codes.Unauthenticated, codes.PermissionDenied:
		return &speech.CredentialError{Err: err}
	}
	return err
}
