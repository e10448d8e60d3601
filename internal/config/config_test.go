// ABOUTME: Tests for config loading and saving
// ABOUTME: Covers YAML files and LOOPCAP_ env overrides
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loopcap.yaml")
	data := []byte(`server:
  port: 9100
  tui: false
capture:
  buffer_bytes: 32000
  wait_timeout: 2s
endpoint:
  backend: tone
  tone:
    frequency: 1000
    channels: 1
stream:
  codec: opus
  interval: 20ms
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Server.TUI {
		t.Error("TUI should be disabled")
	}
	if cfg.Server.Path != "/loopcap" {
		t.Errorf("Path = %q, want default /loopcap", cfg.Server.Path)
	}
	if cfg.Capture.BufferBytes != 32000 {
		t.Errorf("BufferBytes = %d, want 32000", cfg.Capture.BufferBytes)
	}
	if cfg.Capture.WaitTimeout != 2*time.Second {
		t.Errorf("WaitTimeout = %s, want 2s", cfg.Capture.WaitTimeout)
	}
	if cfg.Endpoint.Backend != "tone" {
		t.Errorf("Backend = %q, want tone", cfg.Endpoint.Backend)
	}
	if cfg.Endpoint.Tone.Frequency != 1000 || cfg.Endpoint.Tone.Channels != 1 {
		t.Errorf("Tone = %+v", cfg.Endpoint.Tone)
	}
	if cfg.Endpoint.Tone.SampleRate != 48000 {
		t.Errorf("Tone.SampleRate = %d, want default 48000", cfg.Endpoint.Tone.SampleRate)
	}
	if cfg.Stream.Codec != "opus" {
		t.Errorf("Codec = %q, want opus", cfg.Stream.Codec)
	}
	if cfg.Stream.Interval != 20*time.Millisecond {
		t.Errorf("Interval = %s, want 20ms", cfg.Stream.Interval)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loopcap.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9100\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LOOPCAP_SERVER_PORT", "9200")
	t.Setenv("LOOPCAP_ENDPOINT_BACKEND", "replay")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9200 {
		t.Errorf("Port = %d, want 9200 from env", cfg.Server.Port)
	}
	if cfg.Endpoint.Backend != "replay" {
		t.Errorf("Backend = %q, want replay from env", cfg.Endpoint.Backend)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "loopcap.yaml")

	cfg := Default()
	cfg.Server.Name = "studio"
	cfg.Capture.WaitTimeout = 750 * time.Millisecond
	cfg.Endpoint.Replay.Path = "/tmp/take.wav"
	cfg.Stream.OpusBitrate = 32000

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Server.Name != "studio" {
		t.Errorf("Name = %q, want studio", got.Server.Name)
	}
	if got.Capture.WaitTimeout != 750*time.Millisecond {
		t.Errorf("WaitTimeout = %s, want 750ms", got.Capture.WaitTimeout)
	}
	if got.Endpoint.Replay.Path != "/tmp/take.wav" {
		t.Errorf("Replay.Path = %q", got.Endpoint.Replay.Path)
	}
	if got.Stream.OpusBitrate != 32000 {
		t.Errorf("OpusBitrate = %d, want 32000", got.Stream.OpusBitrate)
	}
}

func TestEndpointConfigConversion(t *testing.T) {
	cfg := Default()
	cfg.Endpoint.Backend = "tone"
	cfg.Endpoint.Tone.Amplitude = 0.25
	cfg.Endpoint.PortAudio.Device = "Monitor"

	ec := cfg.EndpointConfig()
	if ec.Backend != "tone" || ec.Tone.Amplitude != 0.25 || ec.PortAudio.Device != "Monitor" {
		t.Fatalf("unexpected endpoint config: %+v", ec)
	}
	if ec.QueuePackets != cfg.Endpoint.QueuePackets {
		t.Fatalf("QueuePackets = %d, want %d", ec.QueuePackets, cfg.Endpoint.QueuePackets)
	}
	if len(cfg.SessionOptions()) != 2 {
		t.Fatal("expected two session options")
	}
}
