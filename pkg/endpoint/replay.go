// ABOUTME: File replay endpoint for development without a sound card
// ABOUTME: Renders an MP3, FLAC or WAV file in real time, optionally looping
package endpoint

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/hearnow/loopcap/pkg/audio"
	"github.com/rs/zerolog"
)

func init() {
	register(BackendReplay, func(cfg Config, log zerolog.Logger) (Endpoint, error) {
		if cfg.Replay.Path == "" {
			return nil, errors.New("replay backend requires endpoint.replay.path")
		}
		return NewReplay(cfg.Replay, cfg.QueuePackets, log), nil
	})
}

// Replay plays a decoded file into the packet queue at its native rate
type Replay struct {
	*packetQueue

	cfg ReplayConfig
	log zerolog.Logger

	mu       sync.Mutex
	source   fileSource
	format   audio.Format
	frames   int
	samples  []int16
	scratch  []byte
	runner   *pacer
	finished bool
}

// NewReplay creates a replay endpoint
func NewReplay(cfg ReplayConfig, queuePackets int, log zerolog.Logger) *Replay {
	return &Replay{
		packetQueue: newPacketQueue(queuePackets),
		cfg:         cfg,
		log:         log,
	}
}

func (r *Replay) Name() string { return BackendReplay }

// Open decodes the file header and reports its format as s16le
func (r *Replay) Open() (audio.Format, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.source != nil {
		return r.format, nil
	}

	src, err := openFileSource(r.cfg.Path)
	if err != nil {
		return audio.Format{}, err
	}

	r.source = src
	r.format = audio.Format{
		Channels:      src.Channels(),
		SampleRate:    src.SampleRate(),
		BitsPerSample: 16,
		Encoding:      audio.EncodingPCM,
	}
	r.frames = r.format.SampleRate * int(packetPeriod/time.Millisecond) / 1000
	r.samples = make([]int16, r.frames*r.format.Channels)
	r.scratch = make([]byte, len(r.samples)*2)
	r.finished = false

	r.log.Info().
		Str("path", r.cfg.Path).
		Bool("loop", r.cfg.Loop).
		Str("format", r.format.String()).
		Msg("Replay endpoint opened")

	return r.format, nil
}

func (r *Replay) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.source == nil {
		return ErrNotOpen
	}
	if r.runner != nil {
		return nil
	}
	r.runner = startPacer(packetPeriod, r.tick)
	return nil
}

func (r *Replay) Stop() error {
	r.mu.Lock()
	runner := r.runner
	r.runner = nil
	r.mu.Unlock()

	if runner != nil {
		runner.halt()
	}
	return nil
}

func (r *Replay) Close() error {
	if err := r.Stop(); err != nil {
		return err
	}
	r.flush()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.source == nil {
		return nil
	}
	err := r.source.Close()
	r.source = nil
	return err
}

// Finished reports whether a non-looping replay reached the end of its file
func (r *Replay) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

func (r *Replay) tick() bool {
	r.mu.Lock()
	n, err := r.fill()
	data := r.scratch[:n*2]
	r.mu.Unlock()

	if n > 0 {
		r.push(data, n/r.format.Channels, 0)
	}
	if err != nil {
		if !errors.Is(err, io.EOF) {
			r.log.Error().Err(err).Msg("Replay decode failed")
		} else {
			r.log.Info().Msg("Replay reached end of file")
		}
		r.mu.Lock()
		r.finished = true
		r.mu.Unlock()
		return false
	}
	return true
}

// fill reads one packet worth of samples, rewinding when looping
// (caller holds r.mu)
func (r *Replay) fill() (int, error) {
	n := 0
	rewound := false
	for n < len(r.samples) {
		c, err := r.source.Read(r.samples[n:])
		n += c
		if c > 0 {
			rewound = false
		}
		if err == nil {
			continue
		}
		if !errors.Is(err, io.EOF) {
			return r.encode(n), err
		}
		// A file with no audio hits EOF again right after rewinding
		if !r.cfg.Loop || rewound {
			return r.encode(n), io.EOF
		}
		if rerr := r.source.Rewind(); rerr != nil {
			return r.encode(n), fmt.Errorf("replay loop: %w", rerr)
		}
		rewound = true
	}
	return r.encode(n), nil
}

func (r *Replay) encode(n int) int {
	// Whole frames only
	n -= n % r.format.Channels
	for i := 0; i < n; i++ {
		binary.LittleEndian.PutUint16(r.scratch[i*2:], uint16(r.samples[i]))
	}
	return n
}
