package tts

import (
	"testing"

	"voxnest/internal/audio"
)

func TestLinear16Fragment_StripsHeader(t *testing.T) {
	pcm := []byte{1, 0, 2, 0, 3, 0, 4, 0}
	fragment, err := linear16Fragment(audio.PCMToWAV(pcm, audio.SampleRate, 1, 16))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := audio.EncodeFragment(pcm); fragment != want {
		t.Errorf("expected %q, got %q", want, fragment)
	}
}

func TestLinear16Fragment_Headerless(t *testing.T) {
	pcm := []byte{9, 0, 8, 0}
	fragment, err := linear16Fragment(pcm)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := audio.EncodeFragment(pcm); fragment != want {
		t.Errorf("expected %q, got %q", want, fragment)
	}
}

func TestGoogleCloudEngine_VoiceName(t *testing.T) {
	g := &GoogleCloudEngine{language: "en-GB"}
	if got := g.voiceName("Kore"); got != "en-GB-Chirp3-HD-Kore" {
		t.Errorf("expected Chirp name, got %q", got)
	}
	if got := g.voiceName("en-US-Standard-A"); got != "en-US-Standard-A" {
		t.Errorf("expected full names untouched, got %q", got)
	}
}
