package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

// TargetSampleRate is the output rate the ESP32 I2S playback path expects.
const TargetSampleRate = 16000

// ErrInvalidAudioInput indicates audio that cannot be resampled, such as a
// non-positive sample rate or channel count.
var ErrInvalidAudioInput = errors.New("invalid audio input")

// Downmix collapses interleaved multi-channel samples to mono by averaging
// the channel values of each frame. Single-channel input is returned as-is.
// Trailing samples that do not form a complete frame are dropped.
func Downmix(samples []float64, channels int) []float64 {
	if channels <= 1 {
		return samples
	}

	frames := len(samples) / channels
	mono := make([]float64, frames)
	for f := 0; f < frames; f++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += samples[f*channels+ch]
		}
		mono[f] = sum / float64(channels)
	}

	return mono
}

// Resample converts mono samples from srcRate to dstRate by piecewise-linear
// interpolation. Both rates map onto uniform grids over [0, 1): the source
// grid has len(samples) points, the target grid round(len(samples)*dstRate/srcRate)
// points, and each target point is interpolated between its two nearest
// source neighbours. Target points past the last source point take the last
// sample's value. Equal rates return a copy; empty input returns an empty
// slice.
func Resample(samples []float64, srcRate, dstRate int) ([]float64, error) {
	if srcRate <= 0 {
		return nil, fmt.Errorf("source rate must be positive, got %d: %w", srcRate, ErrInvalidAudioInput)
	}

	if dstRate <= 0 {
		return nil, fmt.Errorf("target rate must be positive, got %d: %w", dstRate, ErrInvalidAudioInput)
	}

	if len(samples) == 0 {
		return []float64{}, nil
	}

	if srcRate == dstRate {
		out := make([]float64, len(samples))
		copy(out, samples)
		return out, nil
	}

	srcCount := len(samples)
	dstCount := int(math.Round(float64(srcCount) * float64(dstRate) / float64(srcRate)))

	out := make([]float64, dstCount)
	for j := 0; j < dstCount; j++ {
		// Position of target grid point j/dstCount on the source grid.
		pos := float64(j) * float64(srcCount) / float64(dstCount)
		i := int(pos)

		if i >= srcCount-1 {
			out[j] = samples[srcCount-1]
			continue
		}

		frac := pos - float64(i)
		out[j] = samples[i] + (samples[i+1]-samples[i])*frac
	}

	return out, nil
}

// EncodePCM16LE converts float samples (notionally in [-1.0, 1.0]) to 16-bit
// signed little-endian PCM bytes. Each sample is scaled by 32767 and rounded;
// values beyond the int16 range clamp to the range limits rather than
// wrapping.
func EncodePCM16LE(samples []float64) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := math.Round(s * 32767)
		if v > math.MaxInt16 {
			v = math.MaxInt16
		}
		if v < math.MinInt16 {
			v = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(v)))
	}

	return out
}

// ToTargetPCM runs the full output conversion: downmix to mono, resample to
// TargetSampleRate, and encode as 16-bit little-endian PCM.
func ToTargetPCM(samples []float64, channels, srcRate int) ([]byte, error) {
	if channels < 1 {
		return nil, fmt.Errorf("channel count must be positive, got %d: %w", channels, ErrInvalidAudioInput)
	}

	mono := Downmix(samples, channels)

	resampled, err := Resample(mono, srcRate, TargetSampleRate)
	if err != nil {
		return nil, err
	}

	return EncodePCM16LE(resampled), nil
}

// PCMDuration returns the playback duration of raw 16-bit mono PCM bytes at
// the given sample rate.
func PCMDuration(pcm []byte, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}

	frames := len(pcm) / 2
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}
