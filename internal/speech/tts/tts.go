// Package tts wraps the remote and local speech engines behind one
// chunk-at-a-time interface.
package tts

import "context"

type Config struct {
	Type     string
	APIKey   string
	Model    string
	Language string

	// ESpeakVoice is the espeak-ng voice; Gemini voice names mean nothing to it.
	ESpeakVoice string
}

// ChunkRequest is one chunk of text plus the generation's voice settings.
type ChunkRequest struct {
	Index int
	Text  string
	Voice string
	Rate  float64
	Pitch float64
	Tone  string
}

// Synthesizer turns one chunk into a base64-encoded 16-bit mono 24 kHz PCM
// fragment.
type Synthesizer interface {
	Synthesize(ctx context.Context, req ChunkRequest) (string, error)
	Close() error
}

// Opener creates a synthesizer bound to one credential.
type Opener func(ctx context.Context, apiKey string) (Synthesizer, error)

// VoiceInfo provides detailed information about available voices
type VoiceInfo struct {
	Name         string `json:"name"`
	LanguageCode string `json:"language_code"`
	Gender       string `json:"gender"`
	Natural      bool   `json:"natural"`
	Description  string `json:"description"`
}

// VoiceLister is implemented by engines that can enumerate their voices.
type VoiceLister interface {
	Voices(ctx context.Context) ([]VoiceInfo, error)
}
