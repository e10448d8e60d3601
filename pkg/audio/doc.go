// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, Encoding and WaveFormat descriptors
// Package audio provides the sample format descriptors used by the capture pipeline.
//
// This package defines:
//   - Format: channel count, sample rate, bit depth and encoding of raw endpoint audio
//   - WaveFormat: a WAVEFORMATEX(TENSIBLE) header, resolved to a Format
//   - OutputFormat: the fixed mono 16 kHz s16le format delivered to callers
//
// Example:
//
//	wf, err := audio.ParseWaveFormat(mixFormat)
//	format := wf.Format()
//	if format.Kind() == audio.KindFloat32 {
//	    // interleaved float32 samples
//	}
package audio
