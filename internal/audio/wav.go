package audio

import (
	"encoding/binary"
	"errors"
	"fmt"

	"voxnest/internal/domain/speech"
)

const wavHeaderSize = 44

// Format describes PCM framing.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// PCMToWAV prefixes pcm with a canonical 44-byte RIFF/WAVE header. The
// payload is copied unmodified.
func PCMToWAV(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	blockAlign := channels * bitsPerSample / 8
	byteRate := sampleRate * blockAlign
	dataSize := len(pcm)

	out := make([]byte, wavHeaderSize+dataSize)
	le := binary.LittleEndian

	copy(out[0:4], "RIFF")
	le.PutUint32(out[4:8], uint32(36+dataSize))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	le.PutUint32(out[16:20], 16)
	le.PutUint16(out[20:22], 1)
	le.PutUint16(out[22:24], uint16(channels))
	le.PutUint32(out[24:28], uint32(sampleRate))
	le.PutUint32(out[28:32], uint32(byteRate))
	le.PutUint16(out[32:34], uint16(blockAlign))
	le.PutUint16(out[34:36], uint16(bitsPerSample))
	copy(out[36:40], "data")
	le.PutUint32(out[40:44], uint32(dataSize))
	copy(out[wavHeaderSize:], pcm)

	return out
}

// ParseWAV walks the RIFF chunks of a PCM WAV file and returns its data
// payload. A data size larger than the file (as written by streaming
// encoders) is clamped to what is present.
func ParseWAV(data []byte) ([]byte, Format, error) {
	var format Format
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, format, &speech.DecodeError{Op: "parse wav", Err: errors.New("not a RIFF/WAVE file")}
	}

	le := binary.LittleEndian
	haveFmt := false
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(le.Uint32(data[off+4 : off+8]))
		body := off + 8
		end := body + size
		if size < 0 || end > len(data) {
			end = len(data)
		}

		switch id {
		case "fmt ":
			if end-body < 16 {
				return nil, format, &speech.DecodeError{Op: "parse wav", Err: errors.New("short fmt chunk")}
			}
			if tag := le.Uint16(data[body : body+2]); tag != 1 {
				return nil, format, &speech.DecodeError{Op: "parse wav", Err: fmt.Errorf("unsupported format tag %d", tag)}
			}
			format.Channels = int(le.Uint16(data[body+2 : body+4]))
			format.SampleRate = int(le.Uint32(data[body+4 : body+8]))
			format.BitsPerSample = int(le.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			if !haveFmt {
				return nil, format, &speech.DecodeError{Op: "parse wav", Err: errors.New("data chunk before fmt chunk")}
			}
			return data[body:end], format, nil
		}

		off = end + (end-body)%2
	}

	return nil, format, &speech.DecodeError{Op: "parse wav", Err: errors.New("no data chunk")}
}
