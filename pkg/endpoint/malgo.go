// ABOUTME: miniaudio loopback endpoint via malgo
// ABOUTME: Copies device callback data into the packet queue
package endpoint

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/hearnow/loopcap/pkg/audio"
	"github.com/rs/zerolog"
)

func init() {
	register(BackendMalgo, func(cfg Config, log zerolog.Logger) (Endpoint, error) {
		return NewMalgo(cfg.QueuePackets, log), nil
	})
}

// Malgo captures the default playback device through a miniaudio loopback
// device. Miniaudio only implements loopback on its WASAPI backend; other
// platforms fail in Open.
type Malgo struct {
	*packetQueue

	log zerolog.Logger

	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	format   audio.Format
	started  bool
}

// NewMalgo creates a malgo endpoint
func NewMalgo(queuePackets int, log zerolog.Logger) *Malgo {
	return &Malgo{
		packetQueue: newPacketQueue(queuePackets),
		log:         log,
	}
}

func (m *Malgo) Name() string { return BackendMalgo }

// Open initializes the context and loopback device at the native rate and
// channel count, with float32 samples
func (m *Malgo) Open() (format audio.Format, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return m.format, nil
	}

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		m.log.Debug().Str("source", "miniaudio").Msg(message)
	})
	if err != nil {
		return audio.Format{}, fmt.Errorf("failed to initialize malgo context: %w", err)
	}
	defer func() {
		if err != nil {
			_ = ctx.Uninit()
			ctx.Free()
		}
	}()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Loopback)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 0 // native
	deviceConfig.SampleRate = 0       // native
	deviceConfig.Alsa.NoMMap = 1

	callbacks := malgo.DeviceCallbacks{
		Data: func(_, pInputSamples []byte, frameCount uint32) {
			m.onData(pInputSamples, frameCount)
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		return audio.Format{}, fmt.Errorf("failed to initialize loopback device: %w", err)
	}

	format, err = formatFromMalgo(device.CaptureFormat(), int(device.CaptureChannels()), int(device.SampleRate()))
	if err != nil {
		device.Uninit()
		return audio.Format{}, err
	}

	m.malgoCtx = ctx
	m.device = device
	m.format = format

	m.log.Info().
		Int("channels", format.Channels).
		Int("sample_rate", format.SampleRate).
		Int("bits", format.BitsPerSample).
		Msg("Loopback mix format")

	return format, nil
}

func (m *Malgo) onData(input []byte, frameCount uint32) {
	if frameCount == 0 || len(input) == 0 {
		return
	}
	m.push(input, int(frameCount), 0)
}

func (m *Malgo) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return ErrNotOpen
	}
	if m.started {
		return nil
	}
	if err := m.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	m.started = true
	return nil
}

func (m *Malgo) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil || !m.started {
		return nil
	}
	m.started = false
	if err := m.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop device: %w", err)
	}
	return nil
}

// Close stops and uninitializes the device and context
func (m *Malgo) Close() error {
	if err := m.Stop(); err != nil {
		m.log.Warn().Err(err).Msg("Device stop error")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		m.device.Uninit()
		m.device = nil
	}
	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			m.log.Warn().Err(err).Msg("malgo context uninit error")
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	m.flush()
	return nil
}

// formatFromMalgo maps a miniaudio sample format to a Format
func formatFromMalgo(f malgo.FormatType, channels, rate int) (audio.Format, error) {
	format := audio.Format{Channels: channels, SampleRate: rate}

	switch f {
	case malgo.FormatF32:
		format.BitsPerSample = 32
		format.Encoding = audio.EncodingFloat
	case malgo.FormatS16:
		format.BitsPerSample = 16
		format.Encoding = audio.EncodingPCM
	case malgo.FormatS24:
		format.BitsPerSample = 24
		format.Encoding = audio.EncodingPCM
	case malgo.FormatS32:
		format.BitsPerSample = 32
		format.Encoding = audio.EncodingPCM
	case malgo.FormatU8:
		format.BitsPerSample = 8
		format.Encoding = audio.EncodingUnknown
	default:
		return audio.Format{}, fmt.Errorf("unsupported device format: %d", f)
	}

	return format, nil
}
