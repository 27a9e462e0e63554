package tts

import (
	"context"
	"fmt"
	"strings"

	"voxnest/internal/audio"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"
)

// GoogleCloudEngine speaks through Cloud Text-to-Speech. Gemini voice names
// map onto the Chirp 3 HD voices of the same name.
type GoogleCloudEngine struct {
	client   *texttospeech.Client
	language string
}

func newGoogleCloudEngine(ctx context.Context, config Config) (*GoogleCloudEngine, error) {
	var opts []option.ClientOption
	if config.APIKey != "" {
		opts = append(opts, option.WithAPIKey(config.APIKey))
	}

	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}

	language := config.Language
	if language == "" {
		language = "en-US"
	}

	return &GoogleCloudEngine{client: client, language: language}, nil
}

// voiceName expands a bare Gemini voice name ("Kore") to a Cloud voice name.
func (g *GoogleCloudEngine) voiceName(voice string) string {
	if voice == "" || strings.Contains(voice, "-") {
		return voice
	}
	return fmt.Sprintf("%s-Chirp3-HD-%s", g.language, voice)
}

func (g *GoogleCloudEngine) Synthesize(ctx context.Context, req ChunkRequest) (string, error) {
	name := g.voiceName(req.Voice)

	audioCfg := &texttospeechpb.AudioConfig{
		AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
		SampleRateHertz: audio.SampleRate,
	}
	if req.Rate > 0 {
		audioCfg.SpeakingRate = req.Rate
	}
	// Chirp voices reject pitch adjustments
	if !strings.Contains(strings.ToLower(name), "chirp") {
		audioCfg.Pitch = req.Pitch
	}
	if strings.TrimSpace(req.Tone) != "" {
		logrus.WithField("tone", req.Tone).Debug("Cloud engine ignores tone")
	}

	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: req.Text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.language,
			Name:         name,
		},
		AudioConfig: audioCfg,
	})
	if err != nil {
		return "", fmt.Errorf("failed to synthesize chunk %d: %w", req.Index, classifyError(err))
	}

	return linear16Fragment(resp.AudioContent)
}

// linear16Fragment strips the WAV header Cloud TTS puts on LINEAR16 audio
// and normalizes the payload to mono 24 kHz.
func linear16Fragment(content []byte) (string, error) {
	pcm, format, err := audio.ParseWAV(content)
	if err != nil {
		// headerless payload: already raw PCM at the requested rate
		return audio.EncodeFragment(content), nil
	}
	pcm = audio.ToMono(pcm, format.Channels)
	pcm, err = audio.ResamplePCM(pcm, format.SampleRate, audio.SampleRate)
	if err != nil {
		return "", err
	}
	return audio.EncodeFragment(pcm), nil
}

func (g *GoogleCloudEngine) Voices(ctx context.Context) ([]VoiceInfo, error) {
	resp, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{LanguageCode: g.language})
	if err != nil {
		return nil, classifyError(err)
	}
	voices := make([]VoiceInfo, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		info := VoiceInfo{
			Name:    v.Name,
			Gender:  v.SsmlGender.String(),
			Natural: strings.Contains(v.Name, "Chirp") || strings.Contains(v.Name, "Neural"),
		}
		if len(v.LanguageCodes) > 0 {
			info.LanguageCode = v.LanguageCodes[0]
		}
		voices = append(voices, info)
	}
	return voices, nil
}

func (g *GoogleCloudEngine) Close() error {
	return g.client.Close()
}
