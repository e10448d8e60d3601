// ABOUTME: Level and spectrum meter for captured output audio
// ABOUTME: RMS/peak via gonum floats, log-spaced spectrum bands via a windowed real FFT
package meter

import (
	"encoding/binary"
	"math"

	"github.com/hearnow/loopcap/pkg/audio"
	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

const (
	// DefaultBands is the number of spectrum bands shown by the TUI
	DefaultBands = 24
	maxBands     = 128
	// fftSize covers 64 ms of 16 kHz audio
	fftSize = 1024

	minDecibels = -90.0
	maxDecibels = -20.0
	floorDBFS   = -96.0
	minBandHz   = 50.0
	smoothing   = 0.6
)

// Reading is one meter measurement
type Reading struct {
	RMS  float64
	Peak float64
	// DBFS is the RMS level in dB relative to full scale, floored at -96
	DBFS float64
	// Bands holds per-band magnitudes scaled to [0, 1]
	Bands []float64
}

// Meter measures s16le mono chunks. It keeps a short sample history so that
// small chunks still produce a full FFT window, and smooths bands over time.
// A Meter is not safe for concurrent use.
type Meter struct {
	edges   []int
	window  []float64
	history []float64
	last    []float64
}

// New creates a meter with the given number of spectrum bands
func New(bands int) *Meter {
	if bands < 1 {
		bands = DefaultBands
	}
	bands = min(bands, maxBands)
	return &Meter{
		edges:   bandEdges(bands, fftSize, audio.OutputSampleRate),
		window:  blackmanWindow(fftSize),
		history: make([]float64, fftSize),
		last:    make([]float64, bands),
	}
}

// Measure updates the meter with a chunk of output audio
func (m *Meter) Measure(pcm []byte) Reading {
	samples := Samples(pcm)
	r := Level(samples)
	m.push(samples)
	r.Bands = m.spectrum()
	return r
}

// Level computes RMS and peak of normalized samples
func Level(samples []float64) Reading {
	if len(samples) == 0 {
		return Reading{DBFS: floorDBFS}
	}

	rms := math.Sqrt(floats.Dot(samples, samples) / float64(len(samples)))
	peak := math.Max(math.Abs(floats.Max(samples)), math.Abs(floats.Min(samples)))

	db := floorDBFS
	if rms > 0 {
		db = math.Max(20*math.Log10(rms), floorDBFS)
	}
	return Reading{RMS: rms, Peak: peak, DBFS: db}
}

// Samples decodes s16le bytes to samples in [-1, 1)
func Samples(pcm []byte) []float64 {
	out := make([]float64, len(pcm)/2)
	for i := range out {
		out[i] = float64(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768
	}
	return out
}

func (m *Meter) push(samples []float64) {
	if len(samples) >= fftSize {
		copy(m.history, samples[len(samples)-fftSize:])
		return
	}
	copy(m.history, m.history[len(samples):])
	copy(m.history[fftSize-len(samples):], samples)
}

func (m *Meter) spectrum() []float64 {
	windowed := make([]float64, fftSize)
	floats.MulTo(windowed, m.history, m.window)

	bins := fft.FFTReal(windowed)

	bands := make([]float64, len(m.last))
	for b := range bands {
		lo, hi := m.edges[b], m.edges[b+1]
		var peak float64
		for i := lo; i < hi; i++ {
			re, im := real(bins[i]), imag(bins[i])
			peak = math.Max(peak, math.Sqrt(re*re+im*im)*(2.0/fftSize))
		}

		db := 20 * math.Log10(peak+1e-9)
		m.last[b] = smoothing*m.last[b] + (1-smoothing)*scale(db)
		bands[b] = m.last[b]
	}
	return bands
}

// scale maps decibels to [0, 1]
func scale(db float64) float64 {
	switch {
	case db <= minDecibels:
		return 0
	case db >= maxDecibels:
		return 1
	}
	return (db - minDecibels) / (maxDecibels - minDecibels)
}

// bandEdges splits the FFT bins from minBandHz to Nyquist into log-spaced
// bands; every band holds at least one bin
func bandEdges(bands, size, rate int) []int {
	nyquistBin := size / 2
	binHz := float64(rate) / float64(size)
	first := max(1, int(minBandHz/binHz))

	edges := make([]int, bands+1)
	ratio := math.Pow(float64(nyquistBin)/float64(first), 1/float64(bands))
	edge := float64(first)
	edges[0] = first
	for b := 1; b <= bands; b++ {
		edge *= ratio
		edges[b] = max(int(math.Round(edge)), edges[b-1]+1)
	}
	edges[bands] = max(edges[bands], edges[bands-1]+1)
	if edges[bands] > nyquistBin+1 {
		edges[bands] = nyquistBin + 1
	}
	return edges
}

// blackmanWindow generates a Blackman window of the given size
func blackmanWindow(size int) []float64 {
	window := make([]float64, size)
	a0, a1, a2 := 0.42, 0.5, 0.08
	inv := 1.0 / float64(size-1)
	for i := range window {
		t := float64(i) * inv
		window[i] = a0 - a1*math.Cos(2*math.Pi*t) + a2*math.Cos(4*math.Pi*t)
	}
	return window
}
