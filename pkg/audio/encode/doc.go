// ABOUTME: Audio encoder package for the fixed 16 kHz mono output stream
// ABOUTME: Provides float-to-PCM16 conversion and wire encoders for PCM, Opus
// Package encode turns mono float samples into 16-bit PCM and wraps the
// PCM stream in a wire codec.
//
// PCM16 is the final stage of the capture pipeline: every sample is
// clamped to [-1, 1], scaled by 32767 and written little-endian.
//
// The Encoder implementations take s16le mono 16 kHz bytes (the capture
// output format) and produce wire payloads.
//
// Example:
//
//	enc, err := encode.New(encode.CodecOpus, 24000)
//	packet, err := enc.Encode(frame)
package encode
