// ABOUTME: PCM audio encoder
// ABOUTME: Converts float samples to 16-bit little-endian PCM bytes
package encode

import (
	"encoding/binary"
	"fmt"
	"math"
)

// FloatToInt16 maps one float sample to a signed 16-bit value.
// NaN maps to 0; values outside [-1, 1] saturate.
func FloatToInt16(s float32) int16 {
	if math.IsNaN(float64(s)) {
		return 0
	}
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}

	v := float64(s) * math.MaxInt16
	if v > math.MaxInt16 {
		v = math.MaxInt16
	} else if v < math.MinInt16 {
		v = math.MinInt16
	}
	return int16(v)
}

// PCM16 encodes mono float samples to s16le, 2 bytes per sample
func PCM16(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(FloatToInt16(s)))
	}
	return out
}

// PCMEncoder passes s16le bytes through unchanged
type PCMEncoder struct{}

// NewPCM creates a new PCM encoder
func NewPCM() *PCMEncoder {
	return &PCMEncoder{}
}

// Encode copies the input so callers may reuse their buffer
func (e *PCMEncoder) Encode(pcm []byte) ([]byte, error) {
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("pcm input has odd length %d", len(pcm))
	}
	out := make([]byte, len(pcm))
	copy(out, pcm)
	return out, nil
}

func (e *PCMEncoder) Codec() string   { return CodecPCM }
func (e *PCMEncoder) FrameBytes() int { return 0 }

// Close releases resources
func (e *PCMEncoder) Close() error {
	return nil
}
