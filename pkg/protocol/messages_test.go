// ABOUTME: Tests for loopcap protocol message types
// ABOUTME: Verifies JSON field names and generic payload re-decoding
package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/hearnow/loopcap/pkg/audio"
)

func TestServerHelloMarshaling(t *testing.T) {
	hello := ServerHello{
		ServerID: "srv",
		Name:     "studio",
		Version:  Version,
		Backend:  "tone",
		Format:   OutputFormat("pcm"),
		CaptureFormat: NewCaptureFormat(audio.Format{
			Channels:      2,
			SampleRate:    48000,
			BitsPerSample: 32,
			Encoding:      audio.EncodingFloat,
		}),
	}

	data, err := json.Marshal(Message{Type: TypeServerHello, Payload: hello})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	for _, want := range []string{
		`"type":"server/hello"`,
		`"sample_rate":16000`,
		`"channels":1`,
		`"bit_depth":16`,
		`"capture_format":{"channels":2,"sample_rate":48000,"bits_per_sample":32,"encoding":"float"}`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("expected %s in %s", want, data)
		}
	}
}

func TestServerHelloOmitsUnknownCaptureFormat(t *testing.T) {
	data, err := json.Marshal(ServerHello{Format: OutputFormat("opus")})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}
	if strings.Contains(string(data), "capture_format") {
		t.Errorf("capture_format should be omitted: %s", data)
	}
}

func TestDecodePayload(t *testing.T) {
	raw := []byte(`{"type":"stream/start","payload":{"chunk_bytes":640,"interval_ms":20}}`)

	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	var start StreamStart
	if err := DecodePayload(msg, &start); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if start.ChunkBytes != 640 || start.IntervalMS != 20 {
		t.Errorf("unexpected payload: %+v", start)
	}
}

func TestDecodePayloadMissing(t *testing.T) {
	var msg Message
	if err := json.Unmarshal([]byte(`{"type":"capture/pull"}`), &msg); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	pull := CapturePull{Bytes: 7}
	if err := DecodePayload(msg, &pull); err != nil {
		t.Fatalf("DecodePayload: %v", err)
	}
	if pull.Bytes != 7 {
		t.Errorf("missing payload should leave target untouched, got %d", pull.Bytes)
	}
}

func TestDecodePayloadWrongShape(t *testing.T) {
	var msg Message
	if err := json.Unmarshal([]byte(`{"type":"capture/pull","payload":{"bytes":"lots"}}`), &msg); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	var pull CapturePull
	if err := DecodePayload(msg, &pull); err == nil {
		t.Fatal("expected error for string bytes")
	}
}

func TestCaptureStateOmitsEmptyError(t *testing.T) {
	data, _ := json.Marshal(CaptureState{OK: true, Capturing: true, State: "capturing"})
	if strings.Contains(string(data), "error") {
		t.Errorf("error should be omitted: %s", data)
	}
}
