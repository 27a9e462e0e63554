// Package audio converts the raw PCM fragments returned by speech engines
// into WAV files and planar sample buffers.
package audio

import (
	"encoding/base64"
	"fmt"
	"time"

	"voxnest/internal/domain/speech"
)

// Engine output format: 16-bit little-endian mono at 24 kHz.
const (
	SampleRate    = 24000
	Channels      = 1
	BitsPerSample = 16
)

// DecodeBase64 decodes one standard base64 fragment.
func DecodeBase64(s string) ([]byte, error) {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, &speech.DecodeError{Op: "decode base64 fragment", Err: err}
	}
	return b, nil
}

// EncodeFragment is the inverse of DecodeBase64, used by engines that
// receive raw bytes.
func EncodeFragment(pcm []byte) string {
	return base64.StdEncoding.EncodeToString(pcm)
}

// ConcatBytes joins byte slices in order.
func ConcatBytes(parts [][]byte) []byte {
	total := 0
	for _, p := range parts {
		total += len(p)
	}
	out := make([]byte, 0, total)
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// DecodeFragments decodes every fragment, keeping one PCM slice per chunk.
func DecodeFragments(fragments []string) ([][]byte, error) {
	chunks := make([][]byte, len(fragments))
	for i, f := range fragments {
		b, err := DecodeBase64(f)
		if err != nil {
			return nil, err
		}
		chunks[i] = b
	}
	return chunks, nil
}

// FragmentsToPCM decodes and joins fragments into one PCM stream.
func FragmentsToPCM(fragments []string) ([]byte, error) {
	chunks, err := DecodeFragments(fragments)
	if err != nil {
		return nil, err
	}
	return ConcatBytes(chunks), nil
}

// FragmentsToWAV is the export pipeline: fragments to a 24 kHz mono WAV file.
// Every fragment must hold whole frames, as it must for playback.
func FragmentsToWAV(fragments []string) ([]byte, error) {
	chunks, err := DecodeFragments(fragments)
	if err != nil {
		return nil, err
	}
	frameSize := Channels * BitsPerSample / 8
	for i, c := range chunks {
		if len(c)%frameSize != 0 {
			return nil, &speech.DecodeError{
				Op:  "encode wav",
				Err: fmt.Errorf("chunk %d: %d bytes is not a whole number of %d-byte frames", i, len(c), frameSize),
			}
		}
	}
	return PCMToWAV(ConcatBytes(chunks), SampleRate, Channels, BitsPerSample), nil
}

// FragmentsDuration is the play time of fragments at normal speed.
func FragmentsDuration(fragments []string) (time.Duration, error) {
	pcm, err := FragmentsToPCM(fragments)
	if err != nil {
		return 0, err
	}
	frames := len(pcm) / (Channels * BitsPerSample / 8)
	return time.Duration(frames) * time.Second / SampleRate, nil
}
