// ABOUTME: WAV sink for pulled audio
// ABOUTME: Appends s16le chunks to a 16-bit PCM WAV file via go-audio/wav
package main

import (
	"encoding/binary"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

type wavSink struct {
	f      *os.File
	enc    *wav.Encoder
	format *goaudio.Format
	frames int
}

func newWAVSink(path string, sampleRate, channels int) (*wavSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return &wavSink{
		f:      f,
		enc:    wav.NewEncoder(f, sampleRate, 16, channels, 1),
		format: &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
	}, nil
}

// Write appends little-endian 16-bit samples; a trailing odd byte is ignored
func (w *wavSink) Write(pcm []byte) error {
	n := len(pcm) / 2
	if n == 0 {
		return nil
	}
	data := make([]int, n)
	for i := range n {
		data[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}
	buf := &goaudio.IntBuffer{Data: data, Format: w.format, SourceBitDepth: 16}
	if err := w.enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	w.frames += n / w.format.NumChannels
	return nil
}

// Frames returns the number of frames written so far
func (w *wavSink) Frames() int {
	return w.frames
}

// Close finalizes the header and closes the file
func (w *wavSink) Close() error {
	encErr := w.enc.Close()
	fileErr := w.f.Close()
	if encErr != nil {
		return fmt.Errorf("finalize wav: %w", encErr)
	}
	return fileErr
}
