// ABOUTME: Opus audio decoder
// ABOUTME: Decodes Opus packets to 16 kHz mono PCM bytes
package decode

import (
	"encoding/binary"
	"fmt"

	"github.com/hearnow/loopcap/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// 120ms at 16kHz, the largest frame Opus can carry
const maxFrameSamples = audio.OutputSampleRate * 120 / 1000

// OpusDecoder decodes Opus audio
type OpusDecoder struct {
	decoder *opus.Decoder
	pcm     []int16
}

// NewOpus creates a new Opus decoder for the output format
func NewOpus() (*OpusDecoder, error) {
	dec, err := opus.NewDecoder(audio.OutputSampleRate, audio.OutputChannels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder: dec,
		pcm:     make([]int16, maxFrameSamples*audio.OutputChannels),
	}, nil
}

// Decode converts one Opus packet to s16le bytes
func (d *OpusDecoder) Decode(data []byte) ([]byte, error) {
	n, err := d.decoder.Decode(data, d.pcm)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}

	samples := n * audio.OutputChannels
	out := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(d.pcm[i]))
	}
	return out, nil
}

// Close releases decoder resources
func (d *OpusDecoder) Close() error {
	return nil
}
