// ABOUTME: Audio decoder package for wire payloads received by clients
// ABOUTME: Provides Decoder interface and implementations for PCM, Opus
// Package decode turns wire payloads back into s16le mono 16 kHz bytes.
//
// Supports: PCM, Opus
//
// Example:
//
//	decoder, err := decode.New("opus")
//	pcm, err := decoder.Decode(packet)
package decode
