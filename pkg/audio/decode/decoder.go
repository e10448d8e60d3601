// ABOUTME: Decoder interface definition
// ABOUTME: Common interface and codec factory for wire decoders
package decode

import "fmt"

// Decoder decodes wire payloads to s16le mono PCM bytes
type Decoder interface {
	// Decode converts encoded audio data to PCM bytes
	Decode(data []byte) ([]byte, error)

	// Close releases decoder resources
	Close() error
}

// New creates a decoder for the named codec
func New(codec string) (Decoder, error) {
	switch codec {
	case "pcm":
		return NewPCM(), nil
	case "opus":
		return NewOpus()
	default:
		return nil, fmt.Errorf("unsupported codec: %s", codec)
	}
}
