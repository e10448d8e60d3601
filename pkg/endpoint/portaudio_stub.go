//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Registers the backend so it is listed but fails to construct
package endpoint

import (
	"fmt"

	"github.com/rs/zerolog"
)

func init() {
	register(BackendPortAudio, func(Config, zerolog.Logger) (Endpoint, error) {
		return nil, fmt.Errorf("%w: PortAudio support not enabled (build with -tags portaudio)", ErrUnavailable)
	})
}
