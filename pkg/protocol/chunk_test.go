// ABOUTME: Tests for binary chunk framing
// ABOUTME: Checks header layout and short-message errors
package protocol

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeChunkLayout(t *testing.T) {
	msg := EncodeChunk(0x0102030405060708, []byte{0xAA, 0xBB})

	want := []byte{0x01, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0xAA, 0xBB}
	if !bytes.Equal(msg, want) {
		t.Fatalf("EncodeChunk = % x, want % x", msg, want)
	}
}

func TestDecodeChunk(t *testing.T) {
	chunk, err := DecodeChunk(EncodeChunk(42, []byte{1, 2, 3}))
	if err != nil {
		t.Fatalf("DecodeChunk: %v", err)
	}
	if chunk.Seq != 42 {
		t.Errorf("Seq = %d, want 42", chunk.Seq)
	}
	if !bytes.Equal(chunk.Data, []byte{1, 2, 3}) {
		t.Errorf("Data = %v", chunk.Data)
	}
}

func TestDecodeChunkEmptyPayload(t *testing.T) {
	chunk, err := DecodeChunk(EncodeChunk(1, nil))
	if err != nil {
		t.Fatalf("DecodeChunk: %v", err)
	}
	if len(chunk.Data) != 0 {
		t.Errorf("expected empty payload, got %d bytes", len(chunk.Data))
	}
}

func TestDecodeChunkErrors(t *testing.T) {
	if _, err := DecodeChunk([]byte{0x01, 0x00}); !errors.Is(err, ErrShortChunk) {
		t.Errorf("expected ErrShortChunk, got %v", err)
	}

	bad := EncodeChunk(1, nil)
	bad[0] = 0x04
	if _, err := DecodeChunk(bad); err == nil {
		t.Error("expected error for unknown type")
	}
}
