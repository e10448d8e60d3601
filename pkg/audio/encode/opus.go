// ABOUTME: Opus audio encoder
// ABOUTME: Encodes 20ms frames of 16 kHz mono PCM to Opus packets
package encode

import (
	"encoding/binary"
	"fmt"

	"github.com/hearnow/loopcap/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

const (
	// OpusFrameSamples is one 20ms frame at the output rate
	OpusFrameSamples = audio.OutputSampleRate / 50
	// OpusFrameBytes is one 20ms frame of s16le mono
	OpusFrameBytes = OpusFrameSamples * 2

	maxOpusPacket = 4000
)

// OpusEncoder encodes Opus audio
type OpusEncoder struct {
	encoder *opus.Encoder
	pcm     []int16
	data    []byte
}

// NewOpus creates an Opus encoder for the output format.
// A bitrate of 0 keeps the libopus default.
func NewOpus(bitrate int) (*OpusEncoder, error) {
	enc, err := opus.NewEncoder(audio.OutputSampleRate, audio.OutputChannels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}

	if bitrate > 0 {
		if err := enc.SetBitrate(bitrate); err != nil {
			return nil, fmt.Errorf("failed to set opus bitrate %d: %w", bitrate, err)
		}
	}

	return &OpusEncoder{
		encoder: enc,
		pcm:     make([]int16, OpusFrameSamples),
		data:    make([]byte, maxOpusPacket),
	}, nil
}

// Encode converts exactly one 20ms frame to an Opus packet
func (e *OpusEncoder) Encode(frame []byte) ([]byte, error) {
	if len(frame) != OpusFrameBytes {
		return nil, fmt.Errorf("opus frame must be %d bytes, got %d", OpusFrameBytes, len(frame))
	}

	for i := range e.pcm {
		e.pcm[i] = int16(binary.LittleEndian.Uint16(frame[i*2:]))
	}

	n, err := e.encoder.Encode(e.pcm, e.data)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}

	out := make([]byte, n)
	copy(out, e.data[:n])
	return out, nil
}

func (e *OpusEncoder) Codec() string   { return CodecOpus }
func (e *OpusEncoder) FrameBytes() int { return OpusFrameBytes }

// Close releases resources
func (e *OpusEncoder) Close() error {
	return nil
}
