// ABOUTME: Tests for the level and spectrum meter
// ABOUTME: Checks levels and band placement of a pure tone
package meter

import (
	"math"
	"testing"

	"github.com/hearnow/loopcap/pkg/audio/encode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq, amp float64, n int) []byte {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/16000))
	}
	return encode.PCM16(samples)
}

func TestLevelSilence(t *testing.T) {
	r := New(DefaultBands).Measure(make([]byte, 1280))

	assert.Zero(t, r.RMS)
	assert.Zero(t, r.Peak)
	assert.Equal(t, floorDBFS, r.DBFS)
	require.Len(t, r.Bands, DefaultBands)
	for i, b := range r.Bands {
		assert.Zero(t, b, "band %d", i)
	}
}

func TestLevelEmpty(t *testing.T) {
	r := Level(nil)
	assert.Zero(t, r.RMS)
	assert.Equal(t, floorDBFS, r.DBFS)
}

func TestLevelSine(t *testing.T) {
	r := New(DefaultBands).Measure(sine(1000, 0.5, 1600))

	assert.InDelta(t, 0.5/math.Sqrt2, r.RMS, 0.01)
	assert.InDelta(t, 0.5, r.Peak, 0.01)
	assert.InDelta(t, 20*math.Log10(0.5/math.Sqrt2), r.DBFS, 0.2)
}

func TestLevelFullScaleNegative(t *testing.T) {
	r := Level([]float64{-1, 0, 0.25})
	assert.Equal(t, 1.0, r.Peak)
}

func TestSpectrumPeaksAtToneBand(t *testing.T) {
	m := New(DefaultBands)
	r := m.Measure(sine(1000, 0.05, 2048))

	// 1 kHz lands in FFT bin 64
	var want int
	for b := range DefaultBands {
		if m.edges[b] <= 64 && 64 < m.edges[b+1] {
			want = b
		}
	}

	var best int
	for b, v := range r.Bands {
		if v > r.Bands[best] {
			best = b
		}
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
	assert.Equal(t, want, best)
}

func TestSpectrumSmoothsTowardsSilence(t *testing.T) {
	m := New(8)
	loud := m.Measure(sine(440, 0.8, 1024))
	quiet := m.Measure(make([]byte, 2048))

	var loudSum, quietSum float64
	for i := range loud.Bands {
		loudSum += loud.Bands[i]
		quietSum += quiet.Bands[i]
	}
	assert.Greater(t, loudSum, 0.0)
	assert.Less(t, quietSum, loudSum)
	assert.Greater(t, quietSum, 0.0, "smoothing keeps some energy for one frame")
}

func TestSmallChunksFillHistory(t *testing.T) {
	m := New(DefaultBands)
	chunk := sine(2000, 0.5, 160)
	var r Reading
	for range 10 {
		r = m.Measure(chunk)
	}
	assert.InDelta(t, 0.5, r.Peak, 0.01)
}

func TestBandEdgesMonotonic(t *testing.T) {
	for _, bands := range []int{1, 8, 24, 64, 128} {
		edges := bandEdges(bands, fftSize, 16000)
		require.Len(t, edges, bands+1)
		for i := 1; i < len(edges); i++ {
			assert.Greater(t, edges[i], edges[i-1], "bands=%d edge %d", bands, i)
		}
		assert.LessOrEqual(t, edges[bands], fftSize/2+1)
	}
}

func TestNewClampsBands(t *testing.T) {
	assert.Len(t, New(0).last, DefaultBands)
	assert.Len(t, New(1000).last, maxBands)
}

func TestSamples(t *testing.T) {
	got := Samples([]byte{0x00, 0x80, 0xFF, 0x7F, 0x00, 0x00, 0x01})
	require.Len(t, got, 3)
	assert.Equal(t, -1.0, got[0])
	assert.InDelta(t, 1.0, got[1], 1e-4)
	assert.Zero(t, got[2])
}
