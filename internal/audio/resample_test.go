package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"
)

func TestResampleLength(t *testing.T) {
	tests := []struct {
		name     string
		srcLen   int
		srcRate  int
		dstRate  int
		expected int
	}{
		{"44.1kHz one second", 44100, 44100, 16000, 16000},
		{"22.05kHz half second", 11025, 22050, 16000, 8000},
		{"8kHz upsample", 800, 8000, 16000, 1600},
		{"48kHz downsample", 4800, 48000, 16000, 1600},
		{"24kHz downsample", 1200, 24000, 16000, 800},
		{"non-integral ratio", 1000, 44100, 16000, 363},
		{"single sample rounds away", 1, 48000, 16000, 0},
		{"single sample extends", 1, 8000, 16000, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := make([]float64, tt.srcLen)
			for i := range samples {
				samples[i] = math.Sin(2 * math.Pi * 440 * float64(i) / float64(tt.srcRate))
			}

			out, err := Resample(samples, tt.srcRate, tt.dstRate)
			if err != nil {
				t.Fatalf("Resample failed: %v", err)
			}

			expected := int(math.Round(float64(tt.srcLen) * float64(tt.dstRate) / float64(tt.srcRate)))
			if expected != tt.expected {
				t.Fatalf("Test case inconsistent: computed %d, listed %d", expected, tt.expected)
			}

			if len(out) != tt.expected {
				t.Errorf("Expected %d output samples, got %d", tt.expected, len(out))
			}
		})
	}
}

func TestResampleIdentity(t *testing.T) {
	samples := []float64{0.0, 0.5, -0.5, 1.0, -1.0, 0.25}

	out, err := Resample(samples, 16000, 16000)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}

	if len(out) != len(samples) {
		t.Fatalf("Expected %d samples, got %d", len(samples), len(out))
	}

	for i, v := range samples {
		if out[i] != v {
			t.Errorf("Sample %d: expected %f, got %f", i, v, out[i])
		}
	}
}

func TestResampleEmpty(t *testing.T) {
	out, err := Resample([]float64{}, 44100, 16000)
	if err != nil {
		t.Fatalf("Expected no error for empty input, got: %v", err)
	}

	if len(out) != 0 {
		t.Errorf("Expected empty output, got %d samples", len(out))
	}
}

func TestResampleInvalidRate(t *testing.T) {
	tests := []struct {
		name    string
		srcRate int
		dstRate int
	}{
		{"zero source rate", 0, 16000},
		{"negative source rate", -8000, 16000},
		{"zero target rate", 44100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resample([]float64{0.1, 0.2}, tt.srcRate, tt.dstRate)
			if err == nil {
				t.Fatal("Expected error but got none")
			}
			if !errors.Is(err, ErrInvalidAudioInput) {
				t.Errorf("Expected ErrInvalidAudioInput, got: %v", err)
			}
		})
	}
}

func TestResampleKnownValues(t *testing.T) {
	t.Run("upsample by two", func(t *testing.T) {
		out, err := Resample([]float64{0.0, 1.0}, 8000, 16000)
		if err != nil {
			t.Fatalf("Resample failed: %v", err)
		}

		// Target grid points 0, 0.25, 0.5, 0.75 against source points 0, 0.5;
		// the last two sit at and past the final source point.
		expected := []float64{0.0, 0.5, 1.0, 1.0}
		if len(out) != len(expected) {
			t.Fatalf("Expected %d samples, got %d", len(expected), len(out))
		}

		for i, v := range expected {
			if math.Abs(out[i]-v) > 1e-9 {
				t.Errorf("Sample %d: expected %f, got %f", i, v, out[i])
			}
		}
	})

	t.Run("downsample by two", func(t *testing.T) {
		out, err := Resample([]float64{0.0, 0.25, 0.5, 0.75}, 16000, 8000)
		if err != nil {
			t.Fatalf("Resample failed: %v", err)
		}

		expected := []float64{0.0, 0.5}
		if len(out) != len(expected) {
			t.Fatalf("Expected %d samples, got %d", len(expected), len(out))
		}

		for i, v := range expected {
			if math.Abs(out[i]-v) > 1e-9 {
				t.Errorf("Sample %d: expected %f, got %f", i, v, out[i])
			}
		}
	})
}

func TestResampleConstantSignal(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		srcRate int
	}{
		{"positive constant upsampled", 0.5, 8000},
		{"positive constant downsampled", 0.5, 44100},
		{"negative constant", -0.25, 22050},
		{"full scale", 1.0, 24000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := make([]float64, 500)
			for i := range samples {
				samples[i] = tt.value
			}

			pcm, err := ToTargetPCM(samples, 1, tt.srcRate)
			if err != nil {
				t.Fatalf("ToTargetPCM failed: %v", err)
			}

			if len(pcm) == 0 {
				t.Fatal("Expected non-empty PCM output")
			}

			expected := int16(math.Round(tt.value * 32767))
			for i := 0; i < len(pcm); i += 2 {
				got := int16(binary.LittleEndian.Uint16(pcm[i:]))
				if got != expected {
					t.Fatalf("Sample %d: expected %d, got %d", i/2, expected, got)
				}
			}
		})
	}
}

func TestEncodePCM16LE(t *testing.T) {
	tests := []struct {
		name     string
		sample   float64
		expected int16
	}{
		{"zero", 0.0, 0},
		{"half scale", 0.5, 16384},
		{"full scale", 1.0, 32767},
		{"negative full scale", -1.0, -32767},
		{"clamped above", 1.5, 32767},
		{"clamped below", -2.0, -32768},
		{"small positive", 0.00005, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pcm := EncodePCM16LE([]float64{tt.sample})
			if len(pcm) != 2 {
				t.Fatalf("Expected 2 bytes, got %d", len(pcm))
			}

			got := int16(binary.LittleEndian.Uint16(pcm))
			if got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestDownmix(t *testing.T) {
	t.Run("stereo average", func(t *testing.T) {
		interleaved := []float64{0.5, 1.0, -0.5, 0.5}
		mono := Downmix(interleaved, 2)

		expected := []float64{0.75, 0.0}
		if len(mono) != len(expected) {
			t.Fatalf("Expected %d frames, got %d", len(expected), len(mono))
		}

		for i, v := range expected {
			if math.Abs(mono[i]-v) > 1e-9 {
				t.Errorf("Frame %d: expected %f, got %f", i, v, mono[i])
			}
		}
	})

	t.Run("mono passthrough", func(t *testing.T) {
		samples := []float64{0.1, 0.2, 0.3}
		mono := Downmix(samples, 1)

		if len(mono) != 3 {
			t.Fatalf("Expected 3 samples, got %d", len(mono))
		}
	})

	t.Run("incomplete trailing frame dropped", func(t *testing.T) {
		samples := []float64{0.1, 0.2, 0.3, 0.4, 0.5}
		mono := Downmix(samples, 2)

		if len(mono) != 2 {
			t.Errorf("Expected 2 frames, got %d", len(mono))
		}
	})
}

func TestToTargetPCM(t *testing.T) {
	t.Run("stereo to 16kHz mono", func(t *testing.T) {
		// 400 stereo frames at 8kHz becomes 800 mono samples at 16kHz
		interleaved := make([]float64, 800)
		for i := range interleaved {
			interleaved[i] = 0.5
		}

		pcm, err := ToTargetPCM(interleaved, 2, 8000)
		if err != nil {
			t.Fatalf("ToTargetPCM failed: %v", err)
		}

		if len(pcm) != 1600 {
			t.Errorf("Expected 1600 bytes, got %d", len(pcm))
		}
	})

	t.Run("invalid channel count", func(t *testing.T) {
		_, err := ToTargetPCM([]float64{0.1}, 0, 8000)
		if err == nil {
			t.Fatal("Expected error but got none")
		}
		if !errors.Is(err, ErrInvalidAudioInput) {
			t.Errorf("Expected ErrInvalidAudioInput, got: %v", err)
		}
	})
}

func TestPCMDuration(t *testing.T) {
	pcm := make([]byte, 32000) // one second of 16-bit samples at 16kHz
	if d := PCMDuration(pcm, 16000); d != time.Second {
		t.Errorf("Expected 1s, got %v", d)
	}

	if d := PCMDuration(pcm, 0); d != 0 {
		t.Errorf("Expected 0 for invalid rate, got %v", d)
	}
}
