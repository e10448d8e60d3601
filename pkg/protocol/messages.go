// ABOUTME: Loopcap wire protocol message type definitions
// ABOUTME: Defines the JSON envelope and every control payload exchanged over the websocket
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/hearnow/loopcap/pkg/audio"
)

// Version is the protocol version announced in hello messages
const Version = 1

// DefaultPath is the websocket endpoint path
const DefaultPath = "/loopcap"

// Message types
const (
	TypeClientHello   = "client/hello"
	TypeClientGoodbye = "client/goodbye"
	TypeServerHello   = "server/hello"
	TypeServerError   = "server/error"
	TypeCaptureStart  = "capture/start"
	TypeCaptureStop   = "capture/stop"
	TypeCaptureState  = "capture/state"
	TypeCapturePull   = "capture/pull"
	TypeStreamStart   = "stream/start"
	TypeStreamStop    = "stream/stop"
)

// Error codes carried by server/error
const (
	ErrCodeDuplicateClient = "duplicate_client"
	ErrCodeHelloRequired   = "hello_required"
	ErrCodeUnknownType     = "unknown_type"
	ErrCodeBadPayload      = "bad_payload"
	ErrCodeCodec           = "codec"
)

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// DecodePayload re-decodes a generically parsed payload into v
func DecodePayload(msg Message, v interface{}) error {
	if msg.Payload == nil {
		return nil
	}
	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return fmt.Errorf("re-encode %s payload: %w", msg.Type, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", msg.Type, err)
	}
	return nil
}

// ClientHello is sent by clients to initiate the handshake
type ClientHello struct {
	ClientID   string      `json:"client_id"`
	Name       string      `json:"name"`
	Version    int         `json:"version"`
	Codec      string      `json:"codec,omitempty"` // "pcm" (default) or "opus"
	DeviceInfo *DeviceInfo `json:"device_info,omitempty"`
}

// DeviceInfo contains device identification
type DeviceInfo struct {
	ProductName     string `json:"product_name"`
	Manufacturer    string `json:"manufacturer"`
	SoftwareVersion string `json:"software_version"`
}

// AudioFormat describes the format of binary chunk payloads after decoding
type AudioFormat struct {
	Codec      string `json:"codec"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	BitDepth   int    `json:"bit_depth"`
}

// CaptureFormat describes the raw format of the capture device
type CaptureFormat struct {
	Channels      int    `json:"channels"`
	SampleRate    int    `json:"sample_rate"`
	BitsPerSample int    `json:"bits_per_sample"`
	Encoding      string `json:"encoding"`
}

// NewCaptureFormat converts a device format for the wire
func NewCaptureFormat(f audio.Format) *CaptureFormat {
	return &CaptureFormat{
		Channels:      f.Channels,
		SampleRate:    f.SampleRate,
		BitsPerSample: f.BitsPerSample,
		Encoding:      f.Encoding.String(),
	}
}

// OutputFormat returns the wire format for the given codec
func OutputFormat(codec string) AudioFormat {
	return AudioFormat{
		Codec:      codec,
		SampleRate: audio.OutputSampleRate,
		Channels:   audio.OutputChannels,
		BitDepth:   audio.OutputBitDepth,
	}
}

// ServerHello is the server's response to client/hello
type ServerHello struct {
	ServerID      string         `json:"server_id"`
	Name          string         `json:"name"`
	Version       int            `json:"version"`
	Backend       string         `json:"backend"`
	Format        AudioFormat    `json:"format"`
	CaptureFormat *CaptureFormat `json:"capture_format,omitempty"` // known once the endpoint is open
}

// CaptureState answers capture/start and capture/stop
type CaptureState struct {
	OK        bool   `json:"ok"`
	Capturing bool   `json:"capturing"`
	State     string `json:"state"` // "idle", "initialized", "capturing", "stopped"
	Error     string `json:"error,omitempty"`
}

// CapturePull requests one chunk of buffered audio; zero bytes means the
// default chunk size
type CapturePull struct {
	Bytes int `json:"bytes"`
}

// StreamStart subscribes the client to periodic chunks
type StreamStart struct {
	ChunkBytes int `json:"chunk_bytes,omitempty"`
	IntervalMS int `json:"interval_ms,omitempty"`
}

// ServerError reports a rejected request
type ServerError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ClientGoodbye is sent before graceful disconnect
type ClientGoodbye struct {
	Reason string `json:"reason"` // "shutdown", "user_request"
}
