// ABOUTME: Binary audio chunk framing
// ABOUTME: One type byte, a big-endian sequence number, then the encoded payload
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	// BinaryMessageHeaderSize is the size of binary message header (type byte + sequence)
	BinaryMessageHeaderSize = 1 + 8

	// AudioChunkMessageType is the binary message type ID for audio chunks
	AudioChunkMessageType = 0x01
)

var ErrShortChunk = errors.New("binary message shorter than header")

// Chunk is one binary audio message
type Chunk struct {
	Seq  uint64
	Data []byte
}

// EncodeChunk frames payload as a binary audio message
func EncodeChunk(seq uint64, payload []byte) []byte {
	msg := make([]byte, BinaryMessageHeaderSize+len(payload))
	msg[0] = AudioChunkMessageType
	binary.BigEndian.PutUint64(msg[1:BinaryMessageHeaderSize], seq)
	copy(msg[BinaryMessageHeaderSize:], payload)
	return msg
}

// DecodeChunk parses a binary audio message. The returned Data aliases msg.
func DecodeChunk(msg []byte) (Chunk, error) {
	if len(msg) < BinaryMessageHeaderSize {
		return Chunk{}, ErrShortChunk
	}
	if msg[0] != AudioChunkMessageType {
		return Chunk{}, fmt.Errorf("unknown binary message type: %d", msg[0])
	}
	return Chunk{
		Seq:  binary.BigEndian.Uint64(msg[1:BinaryMessageHeaderSize]),
		Data: msg[BinaryMessageHeaderSize:],
	}, nil
}
