// ABOUTME: Audio type definitions
// ABOUTME: Defines the device sample format descriptor and the fixed output format
package audio

import (
	"errors"
	"fmt"
)

const (
	// OutputSampleRate is the fixed rate of captured output audio
	OutputSampleRate = 16000
	// OutputChannels is the fixed channel count of captured output audio
	OutputChannels = 1
	// OutputBitDepth is the fixed bit depth of captured output audio
	OutputBitDepth = 16
	// OutputBytesPerSecond is the byte rate of the output stream (32000)
	OutputBytesPerSecond = OutputSampleRate * OutputChannels * (OutputBitDepth / 8)
)

// Encoding is the sample encoding reported by a capture endpoint
type Encoding int

const (
	EncodingUnknown Encoding = iota
	EncodingPCM              // signed integer PCM
	EncodingFloat            // IEEE floating point
)

func (e Encoding) String() string {
	switch e {
	case EncodingPCM:
		return "pcm"
	case EncodingFloat:
		return "float"
	case EncodingUnknown:
		return "unknown"
	}
	return fmt.Sprintf("Encoding(%d)", int(e))
}

// SampleKind is a concrete interleaved sample layout the pipeline can decode
type SampleKind int

const (
	KindUnsupported SampleKind = iota
	KindInt16
	KindFloat32
)

func (k SampleKind) String() string {
	switch k {
	case KindInt16:
		return "s16le"
	case KindFloat32:
		return "f32le"
	case KindUnsupported:
		return "unsupported"
	}
	return fmt.Sprintf("SampleKind(%d)", int(k))
}

// Format describes the raw format delivered by a capture endpoint
type Format struct {
	Channels      int
	SampleRate    int
	BitsPerSample int
	Encoding      Encoding
}

// OutputFormat is the format of every byte handed to callers
var OutputFormat = Format{
	Channels:      OutputChannels,
	SampleRate:    OutputSampleRate,
	BitsPerSample: OutputBitDepth,
	Encoding:      EncodingPCM,
}

var (
	ErrNoChannels   = errors.New("format has no channels")
	ErrNoSampleRate = errors.New("format has no sample rate")
)

// Kind resolves the encoding and bit depth to a decodable sample layout
func (f Format) Kind() SampleKind {
	switch f.Encoding {
	case EncodingFloat:
		if f.BitsPerSample == 32 {
			return KindFloat32
		}
	case EncodingPCM:
		if f.BitsPerSample == 16 {
			return KindInt16
		}
	case EncodingUnknown:
	}
	return KindUnsupported
}

// BlockAlign returns the number of bytes in one interleaved frame
func (f Format) BlockAlign() int {
	return f.Channels * ((f.BitsPerSample + 7) / 8)
}

// Validate reports whether the format can drive the conversion pipeline
func (f Format) Validate() error {
	if f.Channels < 1 {
		return ErrNoChannels
	}
	if f.SampleRate < 1 {
		return ErrNoSampleRate
	}
	return nil
}

func (f Format) String() string {
	return fmt.Sprintf("%dch %dHz %d-bit %s", f.Channels, f.SampleRate, f.BitsPerSample, f.Encoding)
}

// BytesToMillis converts a byte count of output audio to milliseconds
func BytesToMillis(n int) int {
	return n * 1000 / OutputBytesPerSecond
}
