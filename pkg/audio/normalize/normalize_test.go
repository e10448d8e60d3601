// ABOUTME: Unit tests for the mono normalizer
// ABOUTME: Tests float32 and int16 downmix, silence fallback and errors
package normalize

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/hearnow/loopcap/pkg/audio"
)

var (
	stereoFloat = audio.Format{Channels: 2, SampleRate: 48000, BitsPerSample: 32, Encoding: audio.EncodingFloat}
	stereoPCM16 = audio.Format{Channels: 2, SampleRate: 44100, BitsPerSample: 16, Encoding: audio.EncodingPCM}
)

func floatBytes(samples ...float32) []byte {
	b := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(s))
	}
	return b
}

func int16Bytes(samples ...int16) []byte {
	b := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(s))
	}
	return b
}

func TestToMonoFloatOppositeChannels(t *testing.T) {
	mono, err := ToMono(stereoFloat, floatBytes(1.0, -1.0), 1)
	if err != nil {
		t.Fatalf("ToMono() failed: %v", err)
	}
	if len(mono) != 1 {
		t.Fatalf("len = %d, want 1", len(mono))
	}
	if mono[0] != 0.0 {
		t.Errorf("mono[0] = %v, want 0.0", mono[0])
	}
}

func TestToMonoFloatAverages(t *testing.T) {
	raw := floatBytes(
		0.5, 0.25,
		-1.0, -0.5,
		0.0, 1.0,
	)

	mono, err := ToMono(stereoFloat, raw, 3)
	if err != nil {
		t.Fatalf("ToMono() failed: %v", err)
	}

	expected := []float32{0.375, -0.75, 0.5}
	for i, want := range expected {
		if math.Abs(float64(mono[i]-want)) > 1e-6 {
			t.Errorf("mono[%d] = %v, want %v", i, mono[i], want)
		}
	}
}

func TestToMonoInt16(t *testing.T) {
	raw := int16Bytes(
		16384, 16384, // 0.5
		-32768, -32768, // -1.0
		32767, -32767, // 0
	)

	mono, err := ToMono(stereoPCM16, raw, 3)
	if err != nil {
		t.Fatalf("ToMono() failed: %v", err)
	}

	expected := []float32{0.5, -1.0, 0}
	for i, want := range expected {
		if math.Abs(float64(mono[i]-want)) > 1e-6 {
			t.Errorf("mono[%d] = %v, want %v", i, mono[i], want)
		}
	}
}

func TestToMonoMultichannel(t *testing.T) {
	f := audio.Format{Channels: 6, SampleRate: 48000, BitsPerSample: 32, Encoding: audio.EncodingFloat}
	raw := floatBytes(0.6, 0.6, 0.6, 0.6, 0.6, 0.6)

	mono, err := ToMono(f, raw, 1)
	if err != nil {
		t.Fatalf("ToMono() failed: %v", err)
	}
	if math.Abs(float64(mono[0]-0.6)) > 1e-6 {
		t.Errorf("mono[0] = %v, want 0.6", mono[0])
	}
}

func TestToMonoUnsupportedIsSilence(t *testing.T) {
	tests := []struct {
		name   string
		format audio.Format
	}{
		{"pcm24", audio.Format{Channels: 2, SampleRate: 48000, BitsPerSample: 24, Encoding: audio.EncodingPCM}},
		{"pcm32", audio.Format{Channels: 2, SampleRate: 48000, BitsPerSample: 32, Encoding: audio.EncodingPCM}},
		{"unknown", audio.Format{Channels: 2, SampleRate: 48000, BitsPerSample: 16, Encoding: audio.EncodingUnknown}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Raw content is irrelevant, and may even be short
			raw := []byte{0xFF, 0x7F, 0x01}

			mono, err := ToMono(tt.format, raw, 480)
			if err != nil {
				t.Fatalf("ToMono() unexpected error = %v", err)
			}
			if len(mono) != 480 {
				t.Fatalf("len = %d, want 480", len(mono))
			}
			for i, s := range mono {
				if s != 0 {
					t.Fatalf("mono[%d] = %v, want silence", i, s)
				}
			}
		})
	}
}

func TestToMonoLengthMatchesFrames(t *testing.T) {
	for _, frames := range []int{1, 2, 7, 441, 480, 1024} {
		raw := make([]byte, frames*stereoFloat.BlockAlign())
		mono, err := ToMono(stereoFloat, raw, frames)
		if err != nil {
			t.Fatalf("frames=%d: ToMono() failed: %v", frames, err)
		}
		if len(mono) != frames {
			t.Errorf("frames=%d: len = %d", frames, len(mono))
		}

		raw = make([]byte, frames*stereoPCM16.BlockAlign())
		mono, err = ToMono(stereoPCM16, raw, frames)
		if err != nil {
			t.Fatalf("frames=%d: ToMono() failed: %v", frames, err)
		}
		if len(mono) != frames {
			t.Errorf("frames=%d: len = %d", frames, len(mono))
		}
	}
}

func TestToMonoErrors(t *testing.T) {
	noChannels := audio.Format{Channels: 0, SampleRate: 48000, BitsPerSample: 32, Encoding: audio.EncodingFloat}
	mono, err := ToMono(noChannels, floatBytes(1, 1), 1)
	if !errors.Is(err, ErrNoChannels) {
		t.Errorf("expected ErrNoChannels, got %v", err)
	}
	if mono != nil {
		t.Errorf("expected no output, got %v", mono)
	}

	_, err = ToMono(stereoFloat, floatBytes(1.0), 1)
	if !errors.Is(err, ErrShortBuffer) {
		t.Errorf("expected ErrShortBuffer, got %v", err)
	}
}

func TestToMonoZeroFrames(t *testing.T) {
	mono, err := ToMono(stereoFloat, nil, 0)
	if err != nil {
		t.Fatalf("ToMono() failed: %v", err)
	}
	if len(mono) != 0 {
		t.Errorf("len = %d, want 0", len(mono))
	}
}
