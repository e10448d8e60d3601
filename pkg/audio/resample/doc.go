// ABOUTME: Audio resampling package using linear interpolation
// ABOUTME: Converts mono audio between different sample rates
// Package resample provides audio sample rate conversion.
//
// Uses linear interpolation between the two nearest input samples. There is
// no anti-aliasing filter, which is adequate for voice mixing but not for
// high-fidelity audio.
//
// Example:
//
//	r := resample.New(48000, 16000)
//	out := r.Resample(mono)
package resample
