// ABOUTME: Capture session lifecycle: start, stop, pull, close
// ABOUTME: Lazily opens the endpoint and owns the capture goroutine
package loopback

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hearnow/loopcap/pkg/audio"
	"github.com/hearnow/loopcap/pkg/audio/ringbuf"
	"github.com/hearnow/loopcap/pkg/endpoint"
	"github.com/rs/zerolog"
)

const (
	// DefaultBufferBytes holds 2 seconds of output audio
	DefaultBufferBytes = 2 * audio.OutputBytesPerSecond
	// DefaultChunkBytes is 40ms of output audio
	DefaultChunkBytes = 1280
	// DefaultWaitTimeout bounds a single endpoint wait
	DefaultWaitTimeout = 10 * time.Second
)

var (
	ErrInit   = errors.New("capture initialization failed")
	ErrStart  = errors.New("capture stream failed to start")
	ErrClosed = errors.New("capture session closed")
)

// State is the lifecycle state of a Session
type State int32

const (
	StateIdle State = iota
	StateInitialized
	StateCapturing
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitialized:
		return "initialized"
	case StateCapturing:
		return "capturing"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// Session captures from one endpoint into a bounded byte buffer
type Session struct {
	ep          endpoint.Endpoint
	log         zerolog.Logger
	buf         *ringbuf.Buffer
	waitTimeout time.Duration

	// mu serializes Start, Stop and Close
	mu          sync.Mutex
	initialized bool
	closed      bool
	done        chan struct{}

	state   atomic.Int32
	running atomic.Bool
	format  atomic.Pointer[audio.Format]

	stats counters
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the session logger
func WithLogger(log zerolog.Logger) Option {
	return func(s *Session) {
		s.log = log
	}
}

// WithBufferSize sets the output buffer capacity in bytes
func WithBufferSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.buf = ringbuf.New(n)
		}
	}
}

// WithWaitTimeout sets the upper bound of a single endpoint wait
func WithWaitTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.waitTimeout = d
		}
	}
}

// New creates an idle session; the endpoint is opened on first Start
func New(ep endpoint.Endpoint, opts ...Option) *Session {
	s := &Session{
		ep:          ep,
		log:         zerolog.Nop(),
		waitTimeout: DefaultWaitTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.buf == nil {
		s.buf = ringbuf.New(DefaultBufferBytes)
	}
	return s
}

// Start initializes the endpoint if needed and begins capturing. It is a
// no-op while already capturing. Errors wrap ErrInit, ErrStart or ErrClosed.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if s.State() == StateCapturing {
		return nil
	}

	if !s.initialized {
		if err := s.initialize(); err != nil {
			return err
		}
	}

	prev := s.State()
	done := make(chan struct{})
	s.done = done
	s.running.Store(true)
	go s.captureLoop(done)

	if err := s.ep.Start(); err != nil {
		s.running.Store(false)
		s.ep.Wake()
		<-done
		s.done = nil
		s.setState(prev)
		s.log.Error().Err(err).Msg("Failed to start capture stream")
		return fmt.Errorf("%w: %w", ErrStart, err)
	}

	s.setState(StateCapturing)
	s.log.Info().Str("endpoint", s.ep.Name()).Msg("Capture started")
	return nil
}

// initialize opens the endpoint and validates its mix format (caller holds mu)
func (s *Session) initialize() error {
	f, err := s.ep.Open()
	if err != nil {
		s.log.Error().Err(err).Str("endpoint", s.ep.Name()).Msg("Failed to open endpoint")
		return fmt.Errorf("%w: %w", ErrInit, err)
	}

	if err := f.Validate(); err != nil {
		if cerr := s.ep.Close(); cerr != nil {
			s.log.Warn().Err(cerr).Msg("Endpoint close after invalid format")
		}
		s.log.Error().Err(err).Str("format", f.String()).Msg("Endpoint reported unusable format")
		return fmt.Errorf("%w: %w", ErrInit, err)
	}

	s.format.Store(&f)
	s.initialized = true
	s.setState(StateInitialized)

	s.log.Info().
		Int("channels", f.Channels).
		Int("sample_rate", f.SampleRate).
		Int("bits", f.BitsPerSample).
		Str("encoding", f.Encoding.String()).
		Msg("Endpoint mix format")
	return nil
}

// Stop halts capturing and joins the capture goroutine. It is a no-op
// unless the session is capturing.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Session) stopLocked() {
	if s.State() != StateCapturing {
		return
	}

	s.running.Store(false)
	s.ep.Wake()
	<-s.done
	s.done = nil

	if err := s.ep.Stop(); err != nil {
		s.log.Warn().Err(err).Msg("Endpoint stop error")
	}
	s.setState(StateStopped)
	s.log.Info().Msg("Capture stopped")
}

// PullChunk removes and returns up to n bytes of s16le mono 16 kHz audio.
// It never blocks and returns an empty slice when nothing is buffered.
func (s *Session) PullChunk(n int) []byte {
	return s.buf.Read(n)
}

// Close stops capturing and releases the endpoint. Further Starts fail
// with ErrClosed.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.stopLocked()
	s.closed = true

	var err error
	if s.initialized {
		err = s.ep.Close()
		s.initialized = false
	}
	s.setState(StateIdle)
	return err
}

// State returns the current lifecycle state
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Capturing reports whether the capture goroutine is running
func (s *Session) Capturing() bool {
	return s.State() == StateCapturing
}

// Format returns the endpoint mix format once initialized
func (s *Session) Format() (audio.Format, bool) {
	f := s.format.Load()
	if f == nil {
		return audio.Format{}, false
	}
	return *f, true
}

// Buffered returns the number of bytes waiting to be pulled
func (s *Session) Buffered() int {
	return s.buf.Len()
}

// BufferCap returns the output buffer capacity in bytes
func (s *Session) BufferCap() int {
	return s.buf.Cap()
}

// EndpointName returns the backend name of the endpoint
func (s *Session) EndpointName() string {
	return s.ep.Name()
}
