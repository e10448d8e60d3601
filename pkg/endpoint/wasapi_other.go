//go:build !windows || !(amd64 || arm64)

// ABOUTME: WASAPI stub for platforms without native WASAPI support
// ABOUTME: Registers the backend so it is listed but fails to construct
package endpoint

import (
	"fmt"
	"runtime"

	"github.com/rs/zerolog"
)

func init() {
	register(BackendWASAPI, func(Config, zerolog.Logger) (Endpoint, error) {
		return nil, fmt.Errorf("%w: WASAPI requires 64-bit Windows (running %s/%s)", ErrUnavailable, runtime.GOOS, runtime.GOARCH)
	})
}
