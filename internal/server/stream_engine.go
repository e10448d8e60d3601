// ABOUTME: Stream engine for the loopcap server
// ABOUTME: Pulls captured audio on a fixed tick and fans it out to streaming clients
package server

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// maxPullChunks caps one tick's pull so a stalled engine catches up in steps
const maxPullChunks = 4

// subscription is a client's stream request, paced in engine ticks
type subscription struct {
	client    *Client
	every     int
	countdown int
	pending   []byte
}

// StreamEngine manages periodic delivery to streaming clients
type StreamEngine struct {
	server     *Server
	log        zerolog.Logger
	interval   time.Duration
	chunkBytes int

	// Active subscriptions
	subs   map[string]*subscription
	subsMu sync.RWMutex

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewStreamEngine creates a stream engine ticking every interval
func NewStreamEngine(server *Server, interval time.Duration, chunkBytes int) *StreamEngine {
	return &StreamEngine{
		server:     server,
		log:        server.log.With().Str("component", "stream").Logger(),
		interval:   interval,
		chunkBytes: chunkBytes,
		subs:       make(map[string]*subscription),
		stopChan:   make(chan struct{}),
	}
}

// Start runs the engine until Stop is called
func (e *StreamEngine) Start() {
	e.log.Debug().Dur("interval", e.interval).Msg("stream engine starting")

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.tick()
		case <-e.stopChan:
			e.log.Debug().Msg("stream engine stopping")
			return
		}
	}
}

// Stop stops the engine
func (e *StreamEngine) Stop() {
	e.stopOnce.Do(func() {
		close(e.stopChan)
	})
}

// AddClient subscribes a client; chunkBytes and interval of zero use the
// engine defaults
func (e *StreamEngine) AddClient(client *Client, chunkBytes int, interval time.Duration) (int, time.Duration) {
	if chunkBytes <= 0 {
		chunkBytes = e.chunkBytes
	}
	chunkBytes += chunkBytes % 2

	every := 1
	if interval > e.interval {
		every = int((interval + e.interval/2) / e.interval)
	}

	client.setStreaming(chunkBytes)

	e.subsMu.Lock()
	e.subs[client.ID] = &subscription{client: client, every: every, countdown: every}
	e.subsMu.Unlock()

	e.log.Info().
		Str("client", client.Name).
		Int("chunk_bytes", chunkBytes).
		Dur("interval", time.Duration(every)*e.interval).
		Msg("client streaming")
	return chunkBytes, time.Duration(every) * e.interval
}

// RemoveClient unsubscribes a client
func (e *StreamEngine) RemoveClient(client *Client) {
	e.subsMu.Lock()
	_, ok := e.subs[client.ID]
	delete(e.subs, client.ID)
	e.subsMu.Unlock()

	if ok {
		client.setPulling()
		e.log.Info().Str("client", client.Name).Msg("client stopped streaming")
	}
}

// Streaming returns the number of subscribed clients
func (e *StreamEngine) Streaming() int {
	e.subsMu.RLock()
	defer e.subsMu.RUnlock()
	return len(e.subs)
}

// tick pulls once and delivers to every client whose pacing is due
func (e *StreamEngine) tick() {
	e.subsMu.Lock()
	defer e.subsMu.Unlock()

	if len(e.subs) == 0 {
		return
	}

	capture := e.server.capture
	n := min(max(capture.Buffered(), e.chunkBytes), maxPullChunks*e.chunkBytes)
	pcm := capture.PullChunk(n &^ 1)
	e.server.observe(pcm)

	for _, sub := range e.subs {
		sub.pending = append(sub.pending, pcm...)
		sub.countdown--
		if sub.countdown > 0 {
			continue
		}
		sub.countdown = sub.every

		data := sub.pending
		sub.pending = nil

		msgs, err := sub.client.encodeChunks(data, true, false)
		if err != nil {
			e.log.Warn().Err(err).Str("client", sub.client.Name).Msg("encode failed")
		}
		for _, msg := range msgs {
			if err := e.server.sendBinary(sub.client, msg); err != nil {
				e.log.Debug().Err(err).Str("client", sub.client.Name).Msg("dropping chunk")
				break
			}
		}
	}
}
