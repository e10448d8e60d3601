// ABOUTME: Tests for the WAV sink
// ABOUTME: Writes samples and reads them back with the go-audio decoder
package main

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWAVSinkRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	sink, err := newWAVSink(path, 16000, 1)
	require.NoError(t, err)

	samples := []int16{0, 1000, -1000, 32767, -32768}
	pcm := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(s))
	}

	require.NoError(t, sink.Write(pcm))
	require.NoError(t, sink.Write(nil))
	require.NoError(t, sink.Write(pcm[:3]), "odd tail is dropped")
	assert.Equal(t, 6, sink.Frames())
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	assert.Equal(t, uint32(16000), dec.SampleRate)
	assert.Equal(t, uint16(1), dec.NumChans)
	assert.Equal(t, uint16(16), dec.BitDepth)
	require.Len(t, buf.Data, 6)
	assert.Equal(t, []int{0, 1000, -1000, 32767, -32768, 0}, buf.Data)
}
