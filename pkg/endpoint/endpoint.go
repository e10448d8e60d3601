// ABOUTME: Endpoint interface, packet type and backend registry
// ABOUTME: New picks a backend by name; "auto" picks the platform default
package endpoint

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/hearnow/loopcap/pkg/audio"
	"github.com/rs/zerolog"
)

// Flags describe a captured packet
type Flags uint32

const (
	// FlagSilent marks a packet whose data must be treated as silence
	FlagSilent Flags = 1 << iota
	// FlagDiscontinuity marks a gap before this packet
	FlagDiscontinuity
)

// Packet is one block of interleaved frames in the endpoint's mix format.
// Data is only valid until the packet is released.
type Packet struct {
	Data   []byte
	Frames int
	Flags  Flags

	buf *[]byte
}

// Silent reports whether the packet carries the silent flag
func (p Packet) Silent() bool {
	return p.Flags&FlagSilent != 0
}

// Endpoint is a capture source for the audio rendered to the default output
type Endpoint interface {
	// Name returns the backend name
	Name() string
	// Open acquires device resources and returns the native mix format
	Open() (audio.Format, error)
	// Start begins streaming packets
	Start() error
	// Stop halts streaming; resources stay acquired
	Stop() error
	// Wait blocks until packets may be available or timeout elapses.
	// It returns true when signaled.
	Wait(timeout time.Duration) (bool, error)
	// Wake signals a blocked Wait
	Wake()
	// NextPacket returns the next available packet, or false when drained
	NextPacket() (Packet, bool, error)
	// Release returns a packet's memory to the endpoint
	Release(Packet)
	// Close releases all device resources
	Close() error
}

const (
	BackendAuto      = "auto"
	BackendWASAPI    = "wasapi"
	BackendMalgo     = "malgo"
	BackendPortAudio = "portaudio"
	BackendTone      = "tone"
	BackendReplay    = "replay"
)

var (
	ErrUnknownBackend = errors.New("unknown capture backend")
	ErrUnavailable    = errors.New("capture backend not available in this build")
	ErrNotOpen        = errors.New("endpoint not open")
)

// Config selects and configures a backend
type Config struct {
	Backend      string
	QueuePackets int
	Tone         ToneConfig
	Replay       ReplayConfig
	PortAudio    PortAudioConfig
}

// ToneConfig configures the synthetic tone backend
type ToneConfig struct {
	Frequency  float64
	Amplitude  float64
	SampleRate int
	Channels   int
	Float      bool
}

// ReplayConfig configures the file replay backend
type ReplayConfig struct {
	Path string
	Loop bool
}

// PortAudioConfig configures the portaudio backend
type PortAudioConfig struct {
	// Device is a substring of the input device name; empty picks the
	// first monitor-like device
	Device string
}

// DefaultQueuePackets bounds the packet queue of callback-driven backends
const DefaultQueuePackets = 64

type factory func(cfg Config, log zerolog.Logger) (Endpoint, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]factory{}
)

func register(name string, f factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = f
}

// New creates the endpoint named by cfg.Backend
func New(cfg Config, log zerolog.Logger) (Endpoint, error) {
	name := cfg.Backend
	if name == "" || name == BackendAuto {
		name = DefaultBackend()
	}
	if cfg.QueuePackets <= 0 {
		cfg.QueuePackets = DefaultQueuePackets
	}

	registryMu.RLock()
	f, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}

	return f(cfg, log.With().Str("backend", name).Logger())
}

// DefaultBackend is the backend "auto" resolves to on this platform
func DefaultBackend() string {
	if runtime.GOOS == "windows" {
		return BackendWASAPI
	}
	return BackendMalgo
}

// Backends lists the registered backend names
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether name is a registered backend or "auto"
func Known(name string) bool {
	if name == BackendAuto {
		return true
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[name]
	return ok
}
