// Cross-platform eSpeak implementation
package tts

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"voxnest/internal/audio"
)

// ESpeakEngine synthesizes offline with eSpeak/eSpeak-NG, capturing its WAV
// output instead of letting it play.
type ESpeakEngine struct {
	path  string
	voice string
}

func newESpeakEngine(config Config) (*ESpeakEngine, error) {
	espeakPath, err := findESpeakExecutable()
	if err != nil {
		return nil, fmt.Errorf("eSpeak not found: %w", err)
	}

	voice := config.ESpeakVoice
	if voice == "" {
		voice = "en"
	}
	return &ESpeakEngine{path: espeakPath, voice: voice}, nil
}

func findESpeakExecutable() (string, error) {
	candidates := []string{"espeak-ng", "espeak"}

	for _, candidate := range candidates {
		if path, err := exec.LookPath(candidate); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("eSpeak executable not found in PATH")
}

// espeakArgs maps the generation settings onto espeak flags: words per
// minute (default 175) and pitch 0-99 (default 50).
func espeakArgs(voice string, req ChunkRequest) []string {
	rate := req.Rate
	if rate <= 0 {
		rate = 1
	}
	pitch := 50 + int(math.Round(req.Pitch*5))
	if pitch < 0 {
		pitch = 0
	} else if pitch > 99 {
		pitch = 99
	}

	return []string{
		"--stdout",
		"-v", voice,
		"-s", strconv.Itoa(int(math.Round(175 * rate))),
		"-p", strconv.Itoa(pitch),
		req.Text,
	}
}

func (e *ESpeakEngine) Synthesize(ctx context.Context, req ChunkRequest) (string, error) {
	cmd := exec.CommandContext(ctx, e.path, espeakArgs(e.voice, req)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("espeak failed on chunk %d: %w: %s", req.Index, err, strings.TrimSpace(stderr.String()))
	}

	pcm, format, err := audio.ParseWAV(out)
	if err != nil {
		return "", fmt.Errorf("espeak output for chunk %d: %w", req.Index, err)
	}
	pcm = audio.ToMono(pcm, format.Channels)
	pcm, err = audio.ResamplePCM(pcm, format.SampleRate, audio.SampleRate)
	if err != nil {
		return "", err
	}
	return audio.EncodeFragment(pcm), nil
}

func (e *ESpeakEngine) Voices(ctx context.Context) ([]VoiceInfo, error) {
	output, err := exec.CommandContext(ctx, e.path, "--voices").Output()
	if err != nil {
		return nil, err
	}
	return parseESpeakVoices(string(output)), nil
}

func parseESpeakVoices(output string) []VoiceInfo {
	lines := strings.Split(output, "\n")
	voices := make([]VoiceInfo, 0)

	for i, line := range lines {
		// Skip header line
		if i == 0 || strings.TrimSpace(line) == "" {
			continue
		}

		// Pty Language Age/Gender VoiceName File Other Languages
		fields := strings.Fields(line)
		if len(fields) >= 4 {
			gender := fields[2]
			if idx := strings.Index(gender, "/"); idx != -1 {
				gender = gender[idx+1:]
			}
			voices = append(voices, VoiceInfo{
				Name:         fields[3],
				LanguageCode: fields[1],
				Gender:       gender,
			})
		}
	}

	return voices
}

func (e *ESpeakEngine) Close() error {
	return nil
}
