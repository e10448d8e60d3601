// ABOUTME: Capture endpoint package for the default output device
// ABOUTME: Defines the Endpoint contract and registers the capture backends
// Package endpoint abstracts the device layer the capture session drives.
//
// An Endpoint reports its native mix format, starts and stops its stream,
// signals when packets are ready, and hands out raw packets that must be
// released after use.
//
// Backends:
//   - wasapi: native WASAPI shared-mode loopback (Windows)
//   - malgo: miniaudio loopback device
//   - portaudio: monitor or "Stereo Mix" input (build with -tags portaudio)
//   - tone: synthetic sine wave
//   - replay: renders an MP3, FLAC or WAV file in real time
//
// Example:
//
//	ep, err := endpoint.New(endpoint.Config{Backend: "auto"}, log)
//	format, err := ep.Open()
package endpoint
