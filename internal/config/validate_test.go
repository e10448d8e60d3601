// ABOUTME: Tests for config validation
// ABOUTME: Checks that dangerous values are clamped and reported
package config

import (
	"strings"
	"testing"
	"time"

	"github.com/hearnow/loopcap/pkg/loopback"
)

func TestValidateDefaultsAreClean(t *testing.T) {
	cfg := Default()
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("default config should validate cleanly, got %v", errs)
	}
}

func TestValidateBufferBytes(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero", 0, loopback.DefaultBufferBytes},
		{"one", 1, loopback.DefaultBufferBytes},
		{"minimum", 2, 2},
		{"odd", 6401, 6400},
		{"huge", 1 << 30, maxBufferBytes},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Capture.BufferBytes = tt.in
			cfg.Validate()
			if cfg.Capture.BufferBytes != tt.want {
				t.Fatalf("BufferBytes = %d, want %d", cfg.Capture.BufferBytes, tt.want)
			}
			if cfg.Capture.BufferBytes%2 != 0 {
				t.Fatalf("BufferBytes %d should be even", cfg.Capture.BufferBytes)
			}
		})
	}
}

func TestValidateWaitTimeoutClamped(t *testing.T) {
	cfg := Default()
	cfg.Capture.WaitTimeout = time.Millisecond
	errs := cfg.Validate()
	if len(errs) == 0 {
		t.Fatal("expected error for short wait timeout")
	}
	if cfg.Capture.WaitTimeout != 100*time.Millisecond {
		t.Fatalf("WaitTimeout = %s, want 100ms", cfg.Capture.WaitTimeout)
	}

	cfg = Default()
	cfg.Capture.WaitTimeout = 5 * time.Minute
	cfg.Validate()
	if cfg.Capture.WaitTimeout != 60*time.Second {
		t.Fatalf("WaitTimeout = %s, want 60s", cfg.Capture.WaitTimeout)
	}
}

func TestValidateChunkBytes(t *testing.T) {
	cfg := Default()
	cfg.Stream.ChunkBytes = 0
	cfg.Validate()
	if cfg.Stream.ChunkBytes != loopback.DefaultChunkBytes {
		t.Fatalf("ChunkBytes = %d, want %d", cfg.Stream.ChunkBytes, loopback.DefaultChunkBytes)
	}

	cfg = Default()
	cfg.Stream.ChunkBytes = 641
	cfg.Validate()
	if cfg.Stream.ChunkBytes != 642 {
		t.Fatalf("ChunkBytes = %d, want 642", cfg.Stream.ChunkBytes)
	}
}

func TestValidateUnknownCodec(t *testing.T) {
	cfg := Default()
	cfg.Stream.Codec = "flac"
	errs := cfg.Validate()
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %d: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0].Error(), "stream.codec") {
		t.Fatalf("unexpected error: %v", errs[0])
	}
	if cfg.Stream.Codec != "pcm" {
		t.Fatalf("Codec = %q, want pcm", cfg.Stream.Codec)
	}
}

func TestValidateCodecCaseInsensitive(t *testing.T) {
	cfg := Default()
	cfg.Stream.Codec = "OPUS"
	if errs := cfg.Validate(); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if cfg.Stream.Codec != "opus" {
		t.Fatalf("Codec = %q, want opus", cfg.Stream.Codec)
	}
}

func TestValidateUnknownBackend(t *testing.T) {
	cfg := Default()
	cfg.Endpoint.Backend = "coreaudio"
	errs := cfg.Validate()
	if len(errs) == 0 {
		t.Fatal("expected error for unknown backend")
	}
	if cfg.Endpoint.Backend != "auto" {
		t.Fatalf("Backend = %q, want auto", cfg.Endpoint.Backend)
	}
}

func TestValidateReplayNeedsPath(t *testing.T) {
	cfg := Default()
	cfg.Endpoint.Backend = "replay"
	errs := cfg.Validate()
	if len(errs) != 1 {
		t.Fatalf("expected 1 error, got %v", errs)
	}
}

func TestValidateMultipleErrors(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 0
	cfg.Server.Path = "loopcap"
	cfg.Endpoint.QueuePackets = 1
	cfg.Endpoint.Tone.Amplitude = 3
	cfg.Stream.Interval = 0
	cfg.Stream.OpusBitrate = 100
	cfg.Log.Level = "verbose"

	errs := cfg.Validate()
	if len(errs) != 7 {
		t.Fatalf("expected 7 errors, got %d: %v", len(errs), errs)
	}
	if cfg.Server.Port != 8927 || cfg.Server.Path != "/loopcap" {
		t.Fatalf("server not reset: %+v", cfg.Server)
	}
	if cfg.Endpoint.QueuePackets != minQueuePackets {
		t.Fatalf("QueuePackets = %d, want %d", cfg.Endpoint.QueuePackets, minQueuePackets)
	}
	if cfg.Endpoint.Tone.Amplitude != 1 {
		t.Fatalf("Amplitude = %g, want 1", cfg.Endpoint.Tone.Amplitude)
	}
	if cfg.Stream.Interval != minInterval {
		t.Fatalf("Interval = %s, want %s", cfg.Stream.Interval, minInterval)
	}
	if cfg.Stream.OpusBitrate != 0 {
		t.Fatalf("OpusBitrate = %d, want 0", cfg.Stream.OpusBitrate)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("Level = %q, want info", cfg.Log.Level)
	}
}
