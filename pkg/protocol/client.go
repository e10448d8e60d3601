// ABOUTME: WebSocket client for the loopcap protocol
// ABOUTME: Handles connection, handshake, capture control and chunk decoding
package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hearnow/loopcap/pkg/audio/decode"
	"github.com/rs/zerolog"
)

const handshakeTimeout = 5 * time.Second

var ErrNotConnected = errors.New("not connected")

// Config holds client configuration
type Config struct {
	ServerAddr string
	Path       string // defaults to DefaultPath
	ClientID   string
	Name       string
	Codec      string // requested wire codec; empty means pcm
	DeviceInfo *DeviceInfo
	Logger     *zerolog.Logger
}

// Client represents a WebSocket client
type Client struct {
	config Config
	log    zerolog.Logger
	conn   *websocket.Conn
	mu     sync.Mutex

	hello   ServerHello
	decoder decode.Decoder

	// Message channels
	AudioChunks chan AudioChunk
	States      chan CaptureState
	Errors      chan ServerError

	// State
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
}

// AudioChunk is one decoded binary chunk
type AudioChunk struct {
	Seq     uint64
	PCM     []byte // s16le mono at the output rate
	Encoded int    // payload size on the wire
}

// NewClient creates a new WebSocket client
func NewClient(config Config) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	if config.Path == "" {
		config.Path = DefaultPath
	}
	log := zerolog.Nop()
	if config.Logger != nil {
		log = config.Logger.With().Str("component", "client").Logger()
	}

	return &Client{
		config:      config,
		log:         log,
		AudioChunks: make(chan AudioChunk, 100),
		States:      make(chan CaptureState, 10),
		Errors:      make(chan ServerError, 10),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Connect establishes WebSocket connection and performs handshake
func (c *Client) Connect(ctx context.Context) error {
	u := url.URL{Scheme: "ws", Host: c.config.ServerAddr, Path: c.config.Path}
	c.log.Info().Str("url", u.String()).Msg("connecting")

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	if err := c.handshake(); err != nil {
		c.Close()
		return fmt.Errorf("handshake failed: %w", err)
	}

	go c.readMessages()

	return nil
}

// handshake performs the protocol handshake
func (c *Client) handshake() error {
	hello := ClientHello{
		ClientID:   c.config.ClientID,
		Name:       c.config.Name,
		Version:    Version,
		Codec:      c.config.Codec,
		DeviceInfo: c.config.DeviceInfo,
	}

	if err := c.sendJSON(Message{Type: TypeClientHello, Payload: hello}); err != nil {
		return fmt.Errorf("failed to send client/hello: %w", err)
	}

	c.conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("failed to read server/hello: %w", err)
	}
	c.conn.SetReadDeadline(time.Time{})

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("failed to parse server/hello: %w", err)
	}

	switch msg.Type {
	case TypeServerHello:
	case TypeServerError:
		var serverErr ServerError
		if err := DecodePayload(msg, &serverErr); err != nil {
			return err
		}
		return fmt.Errorf("server rejected hello: %s: %s", serverErr.Error, serverErr.Message)
	default:
		return fmt.Errorf("expected server/hello, got %s", msg.Type)
	}

	if err := DecodePayload(msg, &c.hello); err != nil {
		return err
	}

	decoder, err := decode.New(c.hello.Format.Codec)
	if err != nil {
		return err
	}
	c.decoder = decoder

	c.log.Info().
		Str("server", c.hello.Name).
		Str("codec", c.hello.Format.Codec).
		Str("backend", c.hello.Backend).
		Msg("handshake complete")
	return nil
}

// Hello returns the server/hello received during the handshake
func (c *Client) Hello() ServerHello {
	return c.hello
}

// sendJSON sends a JSON message
func (c *Client) sendJSON(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return ErrNotConnected
	}

	return c.conn.WriteJSON(msg)
}

// readMessages reads and routes incoming messages
func (c *Client) readMessages() {
	defer close(c.done)
	defer func() {
		c.Close()
		c.decoder.Close()
	}()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if c.ctx.Err() == nil {
				c.log.Warn().Err(err).Msg("read error")
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			c.handleBinaryMessage(data)
		case websocket.TextMessage:
			c.handleJSONMessage(data)
		default:
			c.log.Debug().Int("type", messageType).Msg("unknown websocket message type")
		}
	}
}

// handleBinaryMessage decodes audio chunks
func (c *Client) handleBinaryMessage(data []byte) {
	chunk, err := DecodeChunk(data)
	if err != nil {
		c.log.Warn().Err(err).Msg("invalid binary message")
		return
	}

	pcm := []byte{}
	if len(chunk.Data) > 0 {
		pcm, err = c.decoder.Decode(chunk.Data)
		if err != nil {
			c.log.Warn().Err(err).Uint64("seq", chunk.Seq).Msg("decode failed")
			return
		}
	}

	select {
	case c.AudioChunks <- AudioChunk{Seq: chunk.Seq, PCM: pcm, Encoded: len(chunk.Data)}:
	case <-c.ctx.Done():
	}
}

// handleJSONMessage routes JSON messages
func (c *Client) handleJSONMessage(data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		c.log.Warn().Err(err).Msg("failed to parse JSON message")
		return
	}

	c.log.Debug().Str("type", msg.Type).Msg("received message")

	switch msg.Type {
	case TypeCaptureState:
		var state CaptureState
		if err := DecodePayload(msg, &state); err != nil {
			c.log.Warn().Err(err).Msg("bad capture/state")
			return
		}
		select {
		case c.States <- state:
		case <-c.ctx.Done():
		}

	case TypeServerError:
		var serverErr ServerError
		if err := DecodePayload(msg, &serverErr); err != nil {
			c.log.Warn().Err(err).Msg("bad server/error")
			return
		}
		c.log.Warn().Str("error", serverErr.Error).Str("message", serverErr.Message).Msg("server error")
		select {
		case c.Errors <- serverErr:
		case <-time.After(100 * time.Millisecond):
			c.log.Debug().Msg("error channel full, dropping message")
		}

	default:
		c.log.Debug().Str("type", msg.Type).Msg("unknown message type")
	}
}

// StartCapture asks the server to start capturing
func (c *Client) StartCapture() error {
	return c.sendJSON(Message{Type: TypeCaptureStart})
}

// StopCapture asks the server to stop capturing
func (c *Client) StopCapture() error {
	return c.sendJSON(Message{Type: TypeCaptureStop})
}

// Pull requests one chunk of at most n bytes; zero asks for the default size
func (c *Client) Pull(n int) error {
	return c.sendJSON(Message{Type: TypeCapturePull, Payload: CapturePull{Bytes: n}})
}

// StartStream subscribes to chunks of chunkBytes every interval; zero values
// use the server's defaults
func (c *Client) StartStream(chunkBytes int, interval time.Duration) error {
	return c.sendJSON(Message{
		Type: TypeStreamStart,
		Payload: StreamStart{
			ChunkBytes: chunkBytes,
			IntervalMS: int(interval / time.Millisecond),
		},
	})
}

// StopStream cancels a stream subscription
func (c *Client) StopStream() error {
	return c.sendJSON(Message{Type: TypeStreamStop})
}

// SendGoodbye sends a client/goodbye message before disconnecting
func (c *Client) SendGoodbye(reason string) error {
	return c.sendJSON(Message{Type: TypeClientGoodbye, Payload: ClientGoodbye{Reason: reason}})
}

// Done is closed once the read loop exits
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close closes the connection
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		c.cancel()
		c.conn.Close()
		c.log.Debug().Msg("connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
