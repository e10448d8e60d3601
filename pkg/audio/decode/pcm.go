// ABOUTME: PCM audio decoder
// ABOUTME: Validates and copies 16-bit PCM payloads
package decode

import "fmt"

// PCMDecoder decodes PCM audio
type PCMDecoder struct{}

// NewPCM creates a new PCM decoder
func NewPCM() *PCMDecoder {
	return &PCMDecoder{}
}

// Decode returns a copy of the payload
func (d *PCMDecoder) Decode(data []byte) ([]byte, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("pcm payload has odd length %d", len(data))
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Close releases resources
func (d *PCMDecoder) Close() error {
	return nil
}
