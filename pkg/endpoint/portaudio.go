//go:build portaudio

// ABOUTME: PortAudio monitor-source endpoint
// ABOUTME: Captures the monitor or "Stereo Mix" input of the default output
package endpoint

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/hearnow/loopcap/pkg/audio"
	"github.com/rs/zerolog"
)

func init() {
	register(BackendPortAudio, func(cfg Config, log zerolog.Logger) (Endpoint, error) {
		return NewPortAudio(cfg.PortAudio, cfg.QueuePackets, log), nil
	})
}

// Input device names that expose what the output device is playing
var monitorHints = []string{"monitor", "stereo mix", "loopback", "what u hear", "blackhole"}

// PortAudio captures from an input device that mirrors the output device
type PortAudio struct {
	*packetQueue

	cfg PortAudioConfig
	log zerolog.Logger

	mu      sync.Mutex
	stream  *portaudio.Stream
	format  audio.Format
	started bool
	buf     []byte
}

// NewPortAudio creates a portaudio endpoint
func NewPortAudio(cfg PortAudioConfig, queuePackets int, log zerolog.Logger) *PortAudio {
	return &PortAudio{
		packetQueue: newPacketQueue(queuePackets),
		cfg:         cfg,
		log:         log,
	}
}

func (p *PortAudio) Name() string { return BackendPortAudio }

// Open initializes PortAudio and opens a float32 stream on the monitor device
func (p *PortAudio) Open() (format audio.Format, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream != nil {
		return p.format, nil
	}

	if err := portaudio.Initialize(); err != nil {
		return audio.Format{}, fmt.Errorf("failed to initialize portaudio: %w", err)
	}
	defer func() {
		if err != nil {
			portaudio.Terminate()
		}
	}()

	dev, err := p.findDevice()
	if err != nil {
		return audio.Format{}, err
	}

	channels := dev.MaxInputChannels
	if channels > 2 {
		channels = 2
	}
	params := portaudio.LowLatencyParameters(dev, nil)
	params.Input.Channels = channels
	params.SampleRate = dev.DefaultSampleRate

	stream, err := portaudio.OpenStream(params, func(in []float32) {
		p.onData(in, channels)
	})
	if err != nil {
		return audio.Format{}, fmt.Errorf("failed to open stream: %w", err)
	}

	p.stream = stream
	p.format = audio.Format{
		Channels:      channels,
		SampleRate:    int(dev.DefaultSampleRate),
		BitsPerSample: 32,
		Encoding:      audio.EncodingFloat,
	}

	p.log.Info().
		Str("device", dev.Name).
		Str("format", p.format.String()).
		Msg("PortAudio monitor device opened")

	return p.format, nil
}

func (p *PortAudio) findDevice() (*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	for _, d := range devices {
		if d.MaxInputChannels < 1 {
			continue
		}
		name := strings.ToLower(d.Name)
		if p.cfg.Device != "" {
			if strings.Contains(name, strings.ToLower(p.cfg.Device)) {
				return d, nil
			}
			continue
		}
		for _, hint := range monitorHints {
			if strings.Contains(name, hint) {
				return d, nil
			}
		}
	}

	if p.cfg.Device != "" {
		return nil, fmt.Errorf("no input device matching %q", p.cfg.Device)
	}
	return nil, fmt.Errorf("no monitor input device found")
}

// onData runs on the PortAudio callback thread
func (p *PortAudio) onData(in []float32, channels int) {
	if len(in) == 0 {
		return
	}
	if cap(p.buf) < len(in)*4 {
		p.buf = make([]byte, len(in)*4)
	}
	buf := p.buf[:len(in)*4]
	for i, s := range in {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	p.push(buf, len(in)/channels, 0)
}

func (p *PortAudio) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return ErrNotOpen
	}
	if p.started {
		return nil
	}
	if err := p.stream.Start(); err != nil {
		return fmt.Errorf("failed to start stream: %w", err)
	}
	p.started = true
	return nil
}

func (p *PortAudio) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil || !p.started {
		return nil
	}
	p.started = false
	return p.stream.Stop()
}

// Close releases resources
func (p *PortAudio) Close() error {
	if err := p.Stop(); err != nil {
		p.log.Warn().Err(err).Msg("Stream stop error")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stream == nil {
		return nil
	}
	if err := p.stream.Close(); err != nil {
		return err
	}
	p.stream = nil
	p.flush()
	return portaudio.Terminate()
}
