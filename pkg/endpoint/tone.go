// ABOUTME: Synthetic sine-wave endpoint for development and tests
// ABOUTME: Emits 10ms packets in a configurable float32 or int16 format
package endpoint

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/hearnow/loopcap/pkg/audio"
	"github.com/rs/zerolog"
)

func init() {
	register(BackendTone, func(cfg Config, log zerolog.Logger) (Endpoint, error) {
		return NewTone(cfg.Tone, cfg.QueuePackets, log), nil
	})
}

// Tone generates a sine wave as if it were playing on the output device.
// A zero amplitude produces silent-flagged packets.
type Tone struct {
	*packetQueue

	cfg    ToneConfig
	log    zerolog.Logger
	format audio.Format
	frames int

	mu      sync.Mutex
	opened  bool
	runner  *pacer
	phase   float64
	scratch []byte
}

// NewTone creates a tone endpoint
func NewTone(cfg ToneConfig, queuePackets int, log zerolog.Logger) *Tone {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 48000
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 2
	}
	if cfg.Frequency <= 0 {
		cfg.Frequency = 440
	}
	cfg.Amplitude = math.Max(0, math.Min(1, cfg.Amplitude))

	return &Tone{
		packetQueue: newPacketQueue(queuePackets),
		cfg:         cfg,
		log:         log,
	}
}

func (t *Tone) Name() string { return BackendTone }

// Open fixes the mix format
func (t *Tone) Open() (audio.Format, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.format = audio.Format{
		Channels:      t.cfg.Channels,
		SampleRate:    t.cfg.SampleRate,
		BitsPerSample: 16,
		Encoding:      audio.EncodingPCM,
	}
	if t.cfg.Float {
		t.format.BitsPerSample = 32
		t.format.Encoding = audio.EncodingFloat
	}

	t.frames = t.cfg.SampleRate * int(packetPeriod/time.Millisecond) / 1000
	t.scratch = make([]byte, t.frames*t.format.BlockAlign())
	t.opened = true

	t.log.Info().
		Float64("frequency", t.cfg.Frequency).
		Float64("amplitude", t.cfg.Amplitude).
		Str("format", t.format.String()).
		Msg("Tone endpoint opened")

	return t.format, nil
}

func (t *Tone) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.opened {
		return ErrNotOpen
	}
	if t.runner != nil {
		return nil
	}
	t.runner = startPacer(packetPeriod, t.tick)
	return nil
}

func (t *Tone) Stop() error {
	t.mu.Lock()
	runner := t.runner
	t.runner = nil
	t.mu.Unlock()

	if runner != nil {
		runner.halt()
	}
	return nil
}

func (t *Tone) Close() error {
	if err := t.Stop(); err != nil {
		return err
	}
	t.flush()

	t.mu.Lock()
	t.opened = false
	t.mu.Unlock()
	return nil
}

func (t *Tone) tick() bool {
	t.mu.Lock()
	data, flags := t.render()
	t.mu.Unlock()

	t.push(data, t.frames, flags)
	return true
}

// render fills one packet of the sine wave (caller holds t.mu)
func (t *Tone) render() ([]byte, Flags) {
	if t.cfg.Amplitude == 0 {
		clear(t.scratch)
		t.phase = math.Mod(t.phase+2*math.Pi*t.cfg.Frequency*float64(t.frames)/float64(t.cfg.SampleRate), 2*math.Pi)
		return t.scratch, FlagSilent
	}

	step := 2 * math.Pi * t.cfg.Frequency / float64(t.cfg.SampleRate)
	width := t.format.BitsPerSample / 8

	for i := 0; i < t.frames; i++ {
		v := t.cfg.Amplitude * math.Sin(t.phase)
		t.phase += step
		if t.phase >= 2*math.Pi {
			t.phase -= 2 * math.Pi
		}

		for ch := 0; ch < t.cfg.Channels; ch++ {
			off := (i*t.cfg.Channels + ch) * width
			if t.cfg.Float {
				binary.LittleEndian.PutUint32(t.scratch[off:], math.Float32bits(float32(v)))
			} else {
				binary.LittleEndian.PutUint16(t.scratch[off:], uint16(int16(v*32767)))
			}
		}
	}

	return t.scratch, 0
}

func (t *Tone) String() string {
	return fmt.Sprintf("tone %.0fHz @ %s", t.cfg.Frequency, t.format)
}
