// ABOUTME: File decoders feeding the replay endpoint
// ABOUTME: Reads MP3, FLAC and WAV files as interleaved 16-bit samples
package endpoint

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/mewkiz/flac"
)

// fileSource yields interleaved int16 samples from a decoded file
type fileSource interface {
	// Read fills samples and returns how many were written; io.EOF at end
	Read(samples []int16) (int, error)
	SampleRate() int
	Channels() int
	// Rewind restarts decoding from the beginning
	Rewind() error
	Close() error
}

// openFileSource picks a decoder by file extension
func openFileSource(path string) (fileSource, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("replay file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".mp3":
		return newMP3Source(path)
	case ".flac":
		return newFLACSource(path)
	case ".wav":
		return newWAVSource(path)
	default:
		return nil, fmt.Errorf("unsupported replay format: %s (supported: .mp3, .flac, .wav)", ext)
	}
}

// toInt16 rescales a signed sample of the given bit depth
func toInt16(v int32, bits int) int16 {
	switch {
	case bits == 16:
		return int16(v)
	case bits > 16:
		return int16(v >> (bits - 16))
	default:
		return int16(v << (16 - bits))
	}
}

// mp3Source reads from an MP3 file; go-mp3 always decodes to stereo s16le
type mp3Source struct {
	file    *os.File
	decoder *mp3.Decoder
	buf     []byte
}

func newMP3Source(path string) (*mp3Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	return &mp3Source{file: f, decoder: decoder}, nil
}

func (s *mp3Source) Read(samples []int16) (int, error) {
	if cap(s.buf) < len(samples)*2 {
		s.buf = make([]byte, len(samples)*2)
	}
	buf := s.buf[:len(samples)*2]

	n, err := io.ReadFull(s.decoder, buf)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}

	count := n / 2
	for i := 0; i < count; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(buf[i*2:]))
	}
	return count, err
}

func (s *mp3Source) SampleRate() int { return s.decoder.SampleRate() }
func (s *mp3Source) Channels() int   { return 2 }

func (s *mp3Source) Rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	decoder, err := mp3.NewDecoder(s.file)
	if err != nil {
		return fmt.Errorf("failed to create new decoder: %w", err)
	}
	s.decoder = decoder
	return nil
}

func (s *mp3Source) Close() error {
	return s.file.Close()
}

// flacSource reads from a FLAC file frame by frame
type flacSource struct {
	file     *os.File
	stream   *flac.Stream
	channels int
	rate     int
	bits     int
	pending  []int16
}

func newFLACSource(path string) (*flacSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	return &flacSource{
		file:     f,
		stream:   stream,
		channels: int(stream.Info.NChannels),
		rate:     int(stream.Info.SampleRate),
		bits:     int(stream.Info.BitsPerSample),
	}, nil
}

func (s *flacSource) Read(samples []int16) (int, error) {
	n := 0
	for n < len(samples) {
		if len(s.pending) == 0 {
			frame, err := s.stream.ParseNext()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return n, io.EOF
				}
				return n, fmt.Errorf("flac frame: %w", err)
			}

			block := int(frame.BlockSize)
			for i := 0; i < block; i++ {
				for ch := 0; ch < s.channels; ch++ {
					s.pending = append(s.pending, toInt16(frame.Subframes[ch].Samples[i], s.bits))
				}
			}
		}

		c := copy(samples[n:], s.pending)
		s.pending = s.pending[c:]
		n += c
	}
	return n, nil
}

func (s *flacSource) SampleRate() int { return s.rate }
func (s *flacSource) Channels() int   { return s.channels }

func (s *flacSource) Rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	stream, err := flac.New(s.file)
	if err != nil {
		return fmt.Errorf("failed to create new stream: %w", err)
	}
	s.stream = stream
	s.pending = nil
	return nil
}

func (s *flacSource) Close() error {
	return s.file.Close()
}

// wavSource reads PCM from a WAV file through go-audio
type wavSource struct {
	file    *os.File
	decoder *wav.Decoder
	format  *goaudio.Format
	bits    int
	intBuf  *goaudio.IntBuffer
}

func newWAVSource(path string) (*wavSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	decoder := wav.NewDecoder(f)
	if !decoder.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("invalid WAV file: %s", path)
	}
	format := decoder.Format()
	return &wavSource{
		file:    f,
		decoder: decoder,
		format:  format,
		bits:    int(decoder.BitDepth),
	}, nil
}

func (s *wavSource) Read(samples []int16) (int, error) {
	if s.intBuf == nil || len(s.intBuf.Data) != len(samples) {
		s.intBuf = &goaudio.IntBuffer{
			Data:   make([]int, len(samples)),
			Format: s.format,
		}
	}

	n, err := s.decoder.PCMBuffer(s.intBuf)
	if err != nil {
		return 0, fmt.Errorf("wav read: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}

	for i := 0; i < n; i++ {
		v := s.intBuf.Data[i]
		if s.bits == 8 {
			// 8-bit WAV is unsigned
			v -= 128
		}
		samples[i] = toInt16(int32(v), s.bits)
	}
	return n, nil
}

func (s *wavSource) SampleRate() int { return s.format.SampleRate }
func (s *wavSource) Channels() int   { return s.format.NumChannels }

func (s *wavSource) Rewind() error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	s.decoder = wav.NewDecoder(s.file)
	return nil
}

func (s *wavSource) Close() error {
	return s.file.Close()
}
