// ABOUTME: Format normalization package
// ABOUTME: Converts interleaved endpoint audio to mono float samples
// Package normalize converts raw interleaved endpoint buffers into a single
// channel of float32 samples in [-1, 1].
//
// Supported layouts are 32-bit float and 16-bit signed integer. Any other
// layout normalizes to silence of the requested length.
//
// Example:
//
//	mono, err := normalize.ToMono(format, packet.Data, packet.Frames)
package normalize
