package tts

import (
	"context"
	"fmt"

	"voxnest/internal/audio"
	"voxnest/internal/domain/speech"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"
)

const finishReasonStop = "STOP"

// GeminiEngine generates speech with a Gemini TTS model.
type GeminiEngine struct {
	client *genai.Client
	model  string
}

func newGeminiEngine(ctx context.Context, config Config) (*GeminiEngine, error) {
	if config.APIKey == "" {
		return nil, &speech.ValidationError{Field: "api key", Message: "An API key is required. Please provide your API key."}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := config.Model
	if model == "" {
		model = DefaultModel
	}

	return &GeminiEngine{client: client, model: model}, nil
}

func (g *GeminiEngine) Synthesize(ctx context.Context, req ChunkRequest) (string, error) {
	prompt := BuildPrompt(req.Text, req.Rate, req.Pitch, req.Tone)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: req.Voice,
				},
			},
		},
	})
	if err != nil {
		return "", classifyError(err)
	}

	r := replyFromResponse(resp)
	fragment, err := interpret(r)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"chunk":         req.Index,
			"block_reason":  r.blockReason,
			"finish_reason": r.finishReason,
		}).Warn("Gemini response carried no audio")
	}
	return fragment, err
}

func (g *GeminiEngine) Close() error {
	return nil
}

// reply is the part of a generation response that decides success.
type reply struct {
	audio        []byte
	blockReason  string
	finishReason string
}

func replyFromResponse(resp *genai.GenerateContentResponse) reply {
	var r reply
	if resp == nil {
		return r
	}
	if resp.PromptFeedback != nil {
		r.blockReason = string(resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return r
	}
	candidate := resp.Candidates[0]
	r.finishReason = string(candidate.FinishReason)
	if candidate.Content != nil && len(candidate.Content.Parts) > 0 {
		if part := candidate.Content.Parts[0]; part != nil && part.InlineData != nil {
			r.audio = part.InlineData.Data
		}
	}
	return r
}

// interpret returns the audio as a base64 fragment, or explains its absence.
func interpret(r reply) (string, error) {
	if len(r.audio) > 0 {
		return audio.EncodeFragment(r.audio), nil
	}

	if r.blockReason != "" {
		return "", &speech.RemoteSafetyError{Scope: speech.ScopePrompt, Reason: r.blockReason}
	}

	if r.finishReason != "" && r.finishReason != finishReasonStop {
		if r.finishReason == "SAFETY" {
			return "", &speech.RemoteSafetyError{Scope: speech.ScopeChunk, Reason: r.finishReason}
		}
		return "", &speech.RemoteProtocolError{FinishReason: r.finishReason}
	}

	return "", &speech.RemoteProtocolError{}
}
