// ABOUTME: Connected client state for the loopcap server
// ABOUTME: Owns the per-client wire encoder, chunk framing and sequence numbers
package server

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/hearnow/loopcap/pkg/audio/encode"
	"github.com/hearnow/loopcap/pkg/protocol"
)

// Client modes shown in the TUI
const (
	ModePull   = "pull"
	ModeStream = "stream"
)

// Client represents a connected client
type Client struct {
	ID    string
	Name  string
	Conn  *websocket.Conn
	Codec string

	// Encoding state shared by pulls and stream deliveries
	encoder      encode.Encoder
	codecFramer  *encode.Framer
	streamFramer *encode.Framer
	seq          uint64
	encMu        sync.Mutex

	// Output channel for messages
	sendChan chan interface{}

	mode string
	mu   sync.RWMutex
}

func newClient(id, name string, conn *websocket.Conn, encoder encode.Encoder) *Client {
	return &Client{
		ID:          id,
		Name:        name,
		Conn:        conn,
		Codec:       encoder.Codec(),
		encoder:     encoder,
		codecFramer: encode.NewFramer(encoder.FrameBytes()),
		sendChan:    make(chan interface{}, 100),
		mode:        ModePull,
	}
}

// Mode reports whether the client pulls or streams
func (c *Client) Mode() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

func (c *Client) setStreaming(chunkBytes int) {
	c.mu.Lock()
	c.mode = ModeStream
	c.mu.Unlock()

	c.encMu.Lock()
	c.streamFramer = encode.NewFramer(chunkBytes)
	c.encMu.Unlock()
}

func (c *Client) setPulling() {
	c.mu.Lock()
	c.mode = ModePull
	c.mu.Unlock()

	c.encMu.Lock()
	c.streamFramer = nil
	c.encMu.Unlock()
}

// encodeChunks encodes pcm into binary chunk messages. Frame-based codecs
// carry partial frames to the next call; stream deliveries are cut into the
// subscribed chunk size. With allowEmpty a call that yields no frame still
// produces one empty chunk.
func (c *Client) encodeChunks(pcm []byte, stream, allowEmpty bool) ([][]byte, error) {
	c.encMu.Lock()
	defer c.encMu.Unlock()

	var frames [][]byte
	switch {
	case c.encoder.FrameBytes() > 0:
		frames = c.codecFramer.Push(pcm)
	case stream && c.streamFramer != nil:
		frames = c.streamFramer.Push(pcm)
	case len(pcm) > 0:
		frames = [][]byte{pcm}
	}

	msgs := make([][]byte, 0, max(len(frames), 1))
	for _, frame := range frames {
		payload, err := c.encoder.Encode(frame)
		if err != nil {
			return msgs, err
		}
		msgs = append(msgs, protocol.EncodeChunk(c.seq, payload))
		c.seq++
	}

	if len(msgs) == 0 && allowEmpty {
		msgs = append(msgs, protocol.EncodeChunk(c.seq, nil))
		c.seq++
	}
	return msgs, nil
}

func (c *Client) close() {
	c.encMu.Lock()
	defer c.encMu.Unlock()
	c.encoder.Close()
}
