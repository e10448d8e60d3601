// ABOUTME: Main server implementation for the loopcap protocol
// ABOUTME: Manages WebSocket connections, capture control, pulls and streams
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hearnow/loopcap/internal/meter"
	"github.com/hearnow/loopcap/pkg/audio"
	"github.com/hearnow/loopcap/pkg/audio/encode"
	"github.com/hearnow/loopcap/pkg/discovery"
	"github.com/hearnow/loopcap/pkg/loopback"
	"github.com/hearnow/loopcap/pkg/protocol"
	"github.com/rs/zerolog"
)

// Capture is the capture session served to clients
type Capture interface {
	Start() error
	Stop()
	PullChunk(n int) []byte
	State() loopback.State
	Capturing() bool
	Format() (audio.Format, bool)
	Buffered() int
	BufferCap() int
	EndpointName() string
	Stats() loopback.Stats
}

// Config holds server configuration
type Config struct {
	Port        int
	Name        string
	Path        string
	EnableMDNS  bool
	UseTUI      bool
	Autostart   bool
	Codec       string        // default codec for clients that do not ask for one
	ChunkBytes  int           // default stream chunk size
	Interval    time.Duration // stream engine tick
	OpusBitrate int
}

// Server represents the loopcap server
type Server struct {
	config   Config
	serverID string
	log      zerolog.Logger
	capture  Capture

	// WebSocket upgrader
	upgrader websocket.Upgrader

	// HTTP server
	httpServer *http.Server
	mux        *http.ServeMux

	// Client management
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// Stream delivery
	engine *StreamEngine

	// Level metering of delivered audio
	meter   *meter.Meter
	level   meter.Reading
	meterMu sync.Mutex

	// mDNS discovery
	mdnsManager *discovery.Manager

	// TUI
	tui       *ServerTUI
	startTime time.Time

	// Control
	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// New creates a new server instance
func New(config Config, capture Capture, log zerolog.Logger) *Server {
	if config.Path == "" {
		config.Path = protocol.DefaultPath
	}
	if config.Codec == "" {
		config.Codec = encode.CodecPCM
	}
	if config.ChunkBytes <= 0 {
		config.ChunkBytes = loopback.DefaultChunkBytes
	}
	if config.Interval <= 0 {
		config.Interval = 40 * time.Millisecond
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		log:      log.With().Str("component", "server").Logger(),
		capture:  capture,
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			// Local network tool; non-browser clients send no Origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:   make(map[string]*Client),
		meter:     meter.New(meter.DefaultBands),
		startTime: time.Now(),
		stopChan:  make(chan struct{}),
	}
	s.engine = NewStreamEngine(s, config.Interval, config.ChunkBytes)
	s.mux.HandleFunc(config.Path, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the websocket path
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until Stop is called, the TUI quits or the listener fails
func (s *Server) Start() error {
	if s.config.UseTUI {
		s.tui = NewServerTUI()

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.tui.Start(ServerStatus{Name: s.config.Name, Port: s.config.Port, Mode: "serve"}); err != nil {
				s.log.Error().Err(err).Msg("TUI failed")
			}
		}()
	}

	s.log.Info().Str("name", s.config.Name).Str("id", s.serverID).Msg("server starting")

	if s.config.Autostart {
		if err := s.capture.Start(); err != nil {
			s.log.Error().Err(err).Msg("capture autostart failed")
		}
	}

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Path:        s.config.Path,
			Logger:      s.log,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			s.log.Warn().Err(err).Msg("failed to start mDNS advertisement")
		}
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.engine.Start()
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.statusLoop()
	}()

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.log.Info().Str("addr", addr).Str("path", s.config.Path).Msg("websocket server listening")

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	var serverErr error
	var tuiQuitChan <-chan struct{}
	if s.tui != nil {
		tuiQuitChan = s.tui.QuitChan()
	}

	select {
	case <-s.stopChan:
		s.log.Info().Msg("server shutting down")
	case <-tuiQuitChan:
		s.log.Info().Msg("TUI quit requested, shutting down")
	case err := <-errChan:
		s.log.Error().Err(err).Msg("HTTP server error")
		serverErr = err
	}

	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	s.Stop()

	if s.tui != nil {
		s.tui.Stop()
	}

	s.engine.Stop()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.log.Warn().Err(err).Msg("HTTP server shutdown error")
	}

	s.closeClients()
	s.wg.Wait()
	s.log.Info().Msg("server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// closeClients closes hijacked websocket connections, which http.Server
// Shutdown does not track
func (s *Server) closeClients() {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	for _, client := range s.clients {
		client.Conn.Close()
	}
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade error")
		return
	}

	s.log.Debug().Str("remote", r.RemoteAddr).Msg("new websocket connection")

	s.handleConnection(conn)
}

// handleConnection manages a client connection
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		s.log.Debug().Msg("rejecting connection during shutdown")
		return
	}
	s.shutdownMu.RUnlock()

	hello, err := s.readHello(conn)
	if err != nil {
		s.log.Warn().Err(err).Msg("handshake failed")
		return
	}

	codec := hello.Codec
	if codec == "" {
		codec = s.config.Codec
	}
	encoder, err := encode.New(codec, s.config.OpusBitrate)
	if err != nil {
		s.log.Warn().Err(err).Str("client", hello.Name).Msg("unsupported codec")
		rejectConn(conn, protocol.ErrCodeCodec, err.Error())
		return
	}

	client := newClient(hello.ClientID, hello.Name, conn, encoder)

	// Check for duplicate client ID and register atomically
	s.clientsMu.Lock()
	if existing, exists := s.clients[hello.ClientID]; exists {
		s.clientsMu.Unlock()
		s.log.Warn().Str("id", hello.ClientID).Str("existing", existing.Name).Msg("client ID already connected, rejecting duplicate")
		client.close()
		rejectConn(conn, protocol.ErrCodeDuplicateClient, "client ID already connected")
		return
	}
	s.clients[client.ID] = client
	s.clientsMu.Unlock()

	s.log.Info().Str("client", client.Name).Str("id", client.ID).Str("codec", client.Codec).Msg("client connected")
	s.updateTUI()

	defer func() {
		s.engine.RemoveClient(client)

		s.clientsMu.Lock()
		delete(s.clients, client.ID)
		s.clientsMu.Unlock()

		close(client.sendChan)
		client.close()
		s.log.Info().Str("client", client.Name).Msg("client disconnected")
		s.updateTUI()
	}()

	serverHello := protocol.ServerHello{
		ServerID: s.serverID,
		Name:     s.config.Name,
		Version:  protocol.Version,
		Backend:  s.capture.EndpointName(),
		Format:   protocol.OutputFormat(client.Codec),
	}
	if f, ok := s.capture.Format(); ok {
		serverHello.CaptureFormat = protocol.NewCaptureFormat(f)
	}

	if err := s.sendMessage(client, protocol.TypeServerHello, serverHello); err != nil {
		s.log.Warn().Err(err).Msg("error sending server hello")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(client)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.log.Warn().Err(err).Str("client", client.Name).Msg("websocket error")
			}
			break
		}

		if !s.handleClientMessage(client, data) {
			break
		}
	}
}

// readHello waits for client/hello and validates it, answering problems
// with server/error
func (s *Server) readHello(conn *websocket.Conn) (protocol.ClientHello, error) {
	var hello protocol.ClientHello

	_, data, err := conn.ReadMessage()
	if err != nil {
		return hello, fmt.Errorf("read hello: %w", err)
	}

	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		rejectConn(conn, protocol.ErrCodeBadPayload, "malformed message")
		return hello, fmt.Errorf("unmarshal hello: %w", err)
	}

	if msg.Type != protocol.TypeClientHello {
		rejectConn(conn, protocol.ErrCodeHelloRequired, "expected client/hello")
		return hello, fmt.Errorf("expected client/hello, got %s", msg.Type)
	}

	if err := protocol.DecodePayload(msg, &hello); err != nil {
		rejectConn(conn, protocol.ErrCodeBadPayload, err.Error())
		return hello, err
	}

	if hello.ClientID == "" {
		rejectConn(conn, protocol.ErrCodeBadPayload, "client_id is required")
		return hello, errors.New("client hello missing client_id")
	}
	if hello.Name == "" {
		hello.Name = hello.ClientID
	}
	return hello, nil
}

// rejectConn writes a server/error directly, before a writer goroutine exists
func rejectConn(conn *websocket.Conn, code, message string) {
	conn.SetWriteDeadline(time.Now().Add(time.Second))
	conn.WriteJSON(protocol.Message{
		Type:    protocol.TypeServerError,
		Payload: protocol.ServerError{Error: code, Message: message},
	})
}

// clientWriter sends messages to the client
func (s *Server) clientWriter(client *Client) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	const writeDeadline = 10 * time.Second

	for {
		select {
		case msg, ok := <-client.sendChan:
			if !ok {
				return
			}

			switch v := msg.(type) {
			case []byte:
				client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := client.Conn.WriteMessage(websocket.BinaryMessage, v); err != nil {
					s.log.Debug().Err(err).Str("client", client.Name).Msg("error writing binary message")
					return
				}
			default:
				data, err := json.Marshal(v)
				if err != nil {
					s.log.Warn().Err(err).Msg("error marshaling message")
					continue
				}
				client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
					s.log.Debug().Err(err).Str("client", client.Name).Msg("error writing text message")
					return
				}
			}

		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}

// handleClientMessage processes messages from clients; false ends the
// connection
func (s *Server) handleClientMessage(client *Client, data []byte) bool {
	var msg protocol.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(client, protocol.ErrCodeBadPayload, "malformed message")
		return true
	}

	switch msg.Type {
	case protocol.TypeCaptureStart:
		s.handleCaptureStart(client)
	case protocol.TypeCaptureStop:
		s.handleCaptureStop(client)
	case protocol.TypeCapturePull:
		s.handlePull(client, msg)
	case protocol.TypeStreamStart:
		s.handleStreamStart(client, msg)
	case protocol.TypeStreamStop:
		s.engine.RemoveClient(client)
		s.updateTUI()
	case protocol.TypeClientGoodbye:
		var goodbye protocol.ClientGoodbye
		protocol.DecodePayload(msg, &goodbye)
		s.log.Info().Str("client", client.Name).Str("reason", goodbye.Reason).Msg("client goodbye")
		return false
	default:
		s.log.Debug().Str("type", msg.Type).Msg("unknown message type")
		s.sendError(client, protocol.ErrCodeUnknownType, fmt.Sprintf("unknown message type %q", msg.Type))
	}
	return true
}

func (s *Server) handleCaptureStart(client *Client) {
	err := s.capture.Start()
	if err != nil {
		s.log.Error().Err(err).Str("client", client.Name).Msg("capture start failed")
	}
	s.sendCaptureState(client, err)
}

func (s *Server) handleCaptureStop(client *Client) {
	s.capture.Stop()
	s.sendCaptureState(client, nil)
}

func (s *Server) sendCaptureState(client *Client, err error) {
	state := protocol.CaptureState{
		OK:        err == nil,
		Capturing: s.capture.Capturing(),
		State:     s.capture.State().String(),
	}
	if err != nil {
		state.Error = err.Error()
	}
	if sendErr := s.sendMessage(client, protocol.TypeCaptureState, state); sendErr != nil {
		s.log.Debug().Err(sendErr).Str("client", client.Name).Msg("dropping capture/state")
	}
	s.updateTUI()
}

// handlePull answers capture/pull with the buffered audio encoded for the
// client; at least one chunk is sent even when nothing is buffered
func (s *Server) handlePull(client *Client, msg protocol.Message) {
	var pull protocol.CapturePull
	if err := protocol.DecodePayload(msg, &pull); err != nil || pull.Bytes < 0 {
		s.sendError(client, protocol.ErrCodeBadPayload, "bytes must be a non-negative integer")
		return
	}

	n := pull.Bytes
	if n == 0 {
		n = loopback.DefaultChunkBytes
	}
	pcm := s.capture.PullChunk(max(n&^1, 2))
	s.observe(pcm)

	msgs, err := client.encodeChunks(pcm, false, true)
	if err != nil {
		s.log.Warn().Err(err).Str("client", client.Name).Msg("encode failed")
	}
	for _, m := range msgs {
		if err := s.sendBinary(client, m); err != nil {
			s.log.Debug().Err(err).Str("client", client.Name).Msg("dropping chunk")
			return
		}
	}
}

func (s *Server) handleStreamStart(client *Client, msg protocol.Message) {
	var start protocol.StreamStart
	if err := protocol.DecodePayload(msg, &start); err != nil || start.ChunkBytes < 0 || start.IntervalMS < 0 {
		s.sendError(client, protocol.ErrCodeBadPayload, "chunk_bytes and interval_ms must be non-negative integers")
		return
	}

	err := s.capture.Start()
	if err != nil {
		s.log.Error().Err(err).Str("client", client.Name).Msg("capture start for stream failed")
	} else {
		s.engine.AddClient(client, start.ChunkBytes, time.Duration(start.IntervalMS)*time.Millisecond)
	}
	s.sendCaptureState(client, err)
}

func (s *Server) sendError(client *Client, code, message string) {
	if err := s.sendMessage(client, protocol.TypeServerError, protocol.ServerError{Error: code, Message: message}); err != nil {
		s.log.Debug().Err(err).Str("client", client.Name).Msg("dropping server/error")
	}
}

// sendMessage sends a JSON message to a client
func (s *Server) sendMessage(client *Client, msgType string, payload interface{}) error {
	msg := protocol.Message{
		Type:    msgType,
		Payload: payload,
	}

	select {
	case client.sendChan <- msg:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}

// sendBinary sends binary data to a client
func (s *Server) sendBinary(client *Client, data []byte) error {
	select {
	case client.sendChan <- data:
		return nil
	default:
		return fmt.Errorf("client send buffer full")
	}
}

// observe feeds delivered audio to the level meter
func (s *Server) observe(pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	s.meterMu.Lock()
	s.level = s.meter.Measure(pcm)
	s.meterMu.Unlock()
}

// Level returns the latest meter reading
func (s *Server) Level() meter.Reading {
	s.meterMu.Lock()
	defer s.meterMu.Unlock()
	return s.level
}
