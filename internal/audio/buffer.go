package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"voxnest/internal/domain/speech"
)

// Buffer holds decoded audio as one float32 slice per channel, each sample
// in [-1, 1].
type Buffer struct {
	SampleRate int
	Data       [][]float32
}

func (b *Buffer) NumChannels() int {
	return len(b.Data)
}

// Frames is the number of samples per channel.
func (b *Buffer) Frames() int {
	if len(b.Data) == 0 {
		return 0
	}
	return len(b.Data[0])
}

func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.SampleRate)
}

// PCM interleaves the buffer back into 16-bit little-endian samples.
func (b *Buffer) PCM() []byte {
	channels := b.NumChannels()
	frames := b.Frames()
	out := make([]byte, frames*channels*2)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			v := math.Round(float64(b.Data[ch][i]) * 32768)
			if v > math.MaxInt16 {
				v = math.MaxInt16
			} else if v < math.MinInt16 {
				v = math.MinInt16
			}
			binary.LittleEndian.PutUint16(out[(i*channels+ch)*2:], uint16(int16(v)))
		}
	}
	return out
}

// DecodePCM reads 16-bit little-endian interleaved samples into a planar
// buffer.
func DecodePCM(pcm []byte, sampleRate, channels int) (*Buffer, error) {
	if channels <= 0 {
		return nil, &speech.DecodeError{Op: "decode pcm", Err: fmt.Errorf("invalid channel count %d", channels)}
	}
	if len(pcm)%(channels*2) != 0 {
		return nil, &speech.DecodeError{
			Op:  "decode pcm",
			Err: fmt.Errorf("%d bytes is not a whole number of %d-channel frames", len(pcm), channels),
		}
	}

	frames := len(pcm) / (channels * 2)
	buf := &Buffer{SampleRate: sampleRate, Data: make([][]float32, channels)}
	for ch := range buf.Data {
		buf.Data[ch] = make([]float32, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			s := int16(binary.LittleEndian.Uint16(pcm[(i*channels+ch)*2:]))
			buf.Data[ch][i] = float32(s) / 32768.0
		}
	}
	return buf, nil
}

// ConcatBuffers appends buffers in order. All inputs must share channel
// count and sample rate. No input yields one silent mono frame.
func ConcatBuffers(buffers []*Buffer) *Buffer {
	if len(buffers) == 0 {
		return &Buffer{SampleRate: SampleRate, Data: [][]float32{make([]float32, 1)}}
	}

	channels := buffers[0].NumChannels()
	total := 0
	for _, b := range buffers {
		total += b.Frames()
	}

	out := &Buffer{SampleRate: buffers[0].SampleRate, Data: make([][]float32, channels)}
	for ch := 0; ch < channels; ch++ {
		data := make([]float32, 0, total)
		for _, b := range buffers {
			data = append(data, b.Data[ch]...)
		}
		out.Data[ch] = data
	}
	return out
}

// DecodeChunks decodes each PCM chunk and joins the results.
func DecodeChunks(chunks [][]byte, sampleRate, channels int) (*Buffer, error) {
	buffers := make([]*Buffer, 0, len(chunks))
	for i, c := range chunks {
		b, err := DecodePCM(c, sampleRate, channels)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
		buffers = append(buffers, b)
	}
	return ConcatBuffers(buffers), nil
}
