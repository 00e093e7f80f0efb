package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	mp3 "github.com/hajimehoshi/go-mp3"
)

// ErrUnsupportedFormat indicates an audio payload whose container could not
// be identified.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Decode turns an encoded audio payload into float samples. It sniffs the
// container, decodes it, and returns interleaved samples in [-1.0, 1.0]
// together with the channel count and sample rate.
func Decode(data []byte) ([]float64, int, int, error) {
	switch f := DetectFormat(data); f {
	case FormatWAV:
		return decodeWAV(data)
	case FormatMP3:
		return decodeMP3(data)
	default:
		return nil, 0, 0, fmt.Errorf("cannot identify audio container in %d bytes: %w", len(data), ErrUnsupportedFormat)
	}
}

func decodeWAV(data []byte) ([]float64, int, int, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, 0, 0, fmt.Errorf("malformed WAV payload")
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode WAV payload: %w", err)
	}

	if buf.Format == nil || buf.Format.SampleRate <= 0 || buf.Format.NumChannels < 1 {
		return nil, 0, 0, fmt.Errorf("WAV payload missing format information")
	}

	bits := buf.SourceBitDepth
	if bits == 0 {
		bits = int(decoder.BitDepth)
	}
	if bits == 0 {
		bits = 16
	}

	scale := float64(int64(1) << (bits - 1))
	samples := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = float64(v) / scale
	}

	return samples, buf.Format.NumChannels, buf.Format.SampleRate, nil
}

func decodeMP3(data []byte) ([]float64, int, int, error) {
	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to open MP3 payload: %w", err)
	}

	raw, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to decode MP3 payload: %w", err)
	}

	// The decoder always emits 16-bit little-endian stereo frames.
	frames := len(raw) / 4
	samples := make([]float64, frames*2)
	for i := 0; i < frames*2; i++ {
		v := int16(binary.LittleEndian.Uint16(raw[i*2:]))
		samples[i] = float64(v) / 32768.0
	}

	return samples, 2, decoder.SampleRate(), nil
}
