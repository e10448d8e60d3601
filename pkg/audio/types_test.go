// ABOUTME: Tests for audio types
// ABOUTME: Tests format kinds, validation and wave format resolution
package audio

import (
	"testing"

	"github.com/google/uuid"
)

func TestFormatKind(t *testing.T) {
	tests := []struct {
		name     string
		format   Format
		expected SampleKind
	}{
		{"float32", Format{Channels: 2, SampleRate: 48000, BitsPerSample: 32, Encoding: EncodingFloat}, KindFloat32},
		{"float64", Format{Channels: 2, SampleRate: 48000, BitsPerSample: 64, Encoding: EncodingFloat}, KindUnsupported},
		{"pcm16", Format{Channels: 2, SampleRate: 44100, BitsPerSample: 16, Encoding: EncodingPCM}, KindInt16},
		{"pcm24", Format{Channels: 2, SampleRate: 48000, BitsPerSample: 24, Encoding: EncodingPCM}, KindUnsupported},
		{"unknown", Format{Channels: 2, SampleRate: 48000, BitsPerSample: 16, Encoding: EncodingUnknown}, KindUnsupported},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.format.Kind(); got != tt.expected {
				t.Errorf("Kind() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestFormatBlockAlign(t *testing.T) {
	f := Format{Channels: 2, SampleRate: 48000, BitsPerSample: 32, Encoding: EncodingFloat}
	if got := f.BlockAlign(); got != 8 {
		t.Errorf("BlockAlign() = %d, want 8", got)
	}

	f = Format{Channels: 6, SampleRate: 48000, BitsPerSample: 24, Encoding: EncodingPCM}
	if got := f.BlockAlign(); got != 18 {
		t.Errorf("BlockAlign() = %d, want 18", got)
	}
}

func TestFormatValidate(t *testing.T) {
	if err := (Format{Channels: 0, SampleRate: 48000}).Validate(); err != ErrNoChannels {
		t.Errorf("expected ErrNoChannels, got %v", err)
	}
	if err := (Format{Channels: 2, SampleRate: 0}).Validate(); err != ErrNoSampleRate {
		t.Errorf("expected ErrNoSampleRate, got %v", err)
	}
	if err := OutputFormat.Validate(); err != nil {
		t.Errorf("OutputFormat should be valid, got %v", err)
	}
}

func TestOutputFormat(t *testing.T) {
	if OutputFormat.Kind() != KindInt16 {
		t.Errorf("output kind = %v, want s16le", OutputFormat.Kind())
	}
	if OutputBytesPerSecond != 32000 {
		t.Errorf("OutputBytesPerSecond = %d, want 32000", OutputBytesPerSecond)
	}
	if got := BytesToMillis(1280); got != 40 {
		t.Errorf("BytesToMillis(1280) = %d, want 40", got)
	}
}

func TestWaveFormatResolution(t *testing.T) {
	tests := []struct {
		name     string
		wf       WaveFormat
		encoding Encoding
		kind     SampleKind
	}{
		{
			name:     "plain pcm16",
			wf:       WaveFormat{Tag: TagPCM, Channels: 2, SampleRate: 44100, BitsPerSample: 16},
			encoding: EncodingPCM,
			kind:     KindInt16,
		},
		{
			name:     "plain float",
			wf:       WaveFormat{Tag: TagIEEEFloat, Channels: 2, SampleRate: 48000, BitsPerSample: 32},
			encoding: EncodingFloat,
			kind:     KindFloat32,
		},
		{
			name:     "extensible float",
			wf:       WaveFormat{Tag: TagExtensible, Channels: 2, SampleRate: 48000, BitsPerSample: 32, SubFormat: SubFormatIEEEFloat},
			encoding: EncodingFloat,
			kind:     KindFloat32,
		},
		{
			name:     "extensible pcm16",
			wf:       WaveFormat{Tag: TagExtensible, Channels: 8, SampleRate: 48000, BitsPerSample: 16, SubFormat: SubFormatPCM},
			encoding: EncodingPCM,
			kind:     KindInt16,
		},
		{
			name:     "extensible unknown subformat",
			wf:       WaveFormat{Tag: TagExtensible, Channels: 2, SampleRate: 48000, BitsPerSample: 32, SubFormat: uuid.New()},
			encoding: EncodingUnknown,
			kind:     KindUnsupported,
		},
		{
			name:     "alaw tag",
			wf:       WaveFormat{Tag: 0x0006, Channels: 1, SampleRate: 8000, BitsPerSample: 8},
			encoding: EncodingUnknown,
			kind:     KindUnsupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.wf.Format()
			if f.Encoding != tt.encoding {
				t.Errorf("Encoding = %v, want %v", f.Encoding, tt.encoding)
			}
			if f.Kind() != tt.kind {
				t.Errorf("Kind = %v, want %v", f.Kind(), tt.kind)
			}
			if f.Channels != tt.wf.Channels || f.SampleRate != tt.wf.SampleRate {
				t.Errorf("format %v lost channel/rate from %+v", f, tt.wf)
			}
		})
	}
}

func TestParseWaveFormatExtensible(t *testing.T) {
	// Typical shared-mode mix format: 2ch 48kHz float, extensible
	in := WaveFormat{
		Tag:                TagExtensible,
		Channels:           2,
		SampleRate:         48000,
		AvgBytesPerSec:     384000,
		BlockAlign:         8,
		BitsPerSample:      32,
		ValidBitsPerSample: 32,
		ChannelMask:        0x3,
		SubFormat:          SubFormatIEEEFloat,
	}

	raw := in.Bytes()
	if len(raw) != 40 {
		t.Fatalf("extensible header size = %d, want 40", len(raw))
	}

	// Data1 of the float sub-format is stored little-endian on the wire
	if raw[24] != 0x03 || raw[25] != 0x00 {
		t.Errorf("sub-format Data1 not little-endian: % x", raw[24:28])
	}

	out, err := ParseWaveFormat(raw)
	if err != nil {
		t.Fatalf("ParseWaveFormat() failed: %v", err)
	}
	if out != in {
		t.Errorf("ParseWaveFormat() = %+v, want %+v", out, in)
	}
	if out.Format().Kind() != KindFloat32 {
		t.Errorf("resolved kind = %v, want f32le", out.Format().Kind())
	}
}

func TestParseWaveFormatErrors(t *testing.T) {
	if _, err := ParseWaveFormat(make([]byte, 10)); err == nil {
		t.Error("expected error for short header")
	}

	// Extensible tag without the extension bytes
	short := WaveFormat{Tag: TagPCM, Channels: 2, SampleRate: 48000, BitsPerSample: 16}.Bytes()
	short[0], short[1] = 0xFE, 0xFF
	if _, err := ParseWaveFormat(short); err == nil {
		t.Error("expected error for truncated extensible header")
	}
}

func TestParseWaveFormatPlain(t *testing.T) {
	raw := WaveFormat{Tag: TagPCM, Channels: 1, SampleRate: 16000, AvgBytesPerSec: 32000, BlockAlign: 2, BitsPerSample: 16}.Bytes()

	// PCMWAVEFORMAT from a RIFF fmt chunk has no cbSize field
	wf, err := ParseWaveFormat(raw[:16])
	if err != nil {
		t.Fatalf("ParseWaveFormat() failed: %v", err)
	}
	if wf.Format() != OutputFormat {
		t.Errorf("Format() = %v, want %v", wf.Format(), OutputFormat)
	}
}
