// ABOUTME: Encoder interface definition
// ABOUTME: Common interface and codec factory for wire encoders
package encode

import "fmt"

const (
	CodecPCM  = "pcm"
	CodecOpus = "opus"
)

// Encoder encodes s16le mono output audio to a wire format
type Encoder interface {
	// Encode converts PCM bytes to encoded audio data
	Encode(pcm []byte) ([]byte, error)

	// Codec returns the wire codec name
	Codec() string

	// FrameBytes is the exact input size Encode expects, 0 for any even size
	FrameBytes() int

	// Close releases encoder resources
	Close() error
}

// New creates an encoder for the named codec
func New(codec string, bitrate int) (Encoder, error) {
	switch codec {
	case CodecPCM:
		return NewPCM(), nil
	case CodecOpus:
		return NewOpus(bitrate)
	default:
		return nil, fmt.Errorf("unsupported codec: %s", codec)
	}
}

// Codecs lists the supported wire codecs
func Codecs() []string {
	return []string{CodecPCM, CodecOpus}
}
