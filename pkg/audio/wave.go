// ABOUTME: WAVEFORMATEX / WAVEFORMATEXTENSIBLE descriptor parsing
// ABOUTME: Resolves container tags and sub-format GUIDs to a concrete Format
package audio

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// FormatTag is the wFormatTag field of a wave format header
type FormatTag uint16

const (
	TagPCM        FormatTag = 0x0001
	TagIEEEFloat  FormatTag = 0x0003
	TagExtensible FormatTag = 0xFFFE
)

const (
	waveFormatExSize         = 18
	waveFormatExtensibleSize = 40
	extensibleExtraSize      = 22
)

// Sub-format identifiers carried by WAVE_FORMAT_EXTENSIBLE headers
var (
	SubFormatPCM       = uuid.MustParse("00000001-0000-0010-8000-00aa00389b71")
	SubFormatIEEEFloat = uuid.MustParse("00000003-0000-0010-8000-00aa00389b71")
)

// WaveFormat mirrors a WAVEFORMATEX header with its optional extensible tail
type WaveFormat struct {
	Tag                FormatTag
	Channels           int
	SampleRate         int
	AvgBytesPerSec     int
	BlockAlign         int
	BitsPerSample      int
	ValidBitsPerSample int
	ChannelMask        uint32
	SubFormat          uuid.UUID
}

// ParseWaveFormat decodes a little-endian WAVEFORMATEX or WAVEFORMATEXTENSIBLE
func ParseWaveFormat(b []byte) (WaveFormat, error) {
	if len(b) < waveFormatExSize-2 {
		return WaveFormat{}, fmt.Errorf("wave format too short: %d bytes", len(b))
	}

	wf := WaveFormat{
		Tag:            FormatTag(binary.LittleEndian.Uint16(b[0:])),
		Channels:       int(binary.LittleEndian.Uint16(b[2:])),
		SampleRate:     int(binary.LittleEndian.Uint32(b[4:])),
		AvgBytesPerSec: int(binary.LittleEndian.Uint32(b[8:])),
		BlockAlign:     int(binary.LittleEndian.Uint16(b[12:])),
		BitsPerSample:  int(binary.LittleEndian.Uint16(b[14:])),
	}

	if wf.Tag != TagExtensible {
		return wf, nil
	}

	// Extensible headers must carry the 22-byte extension
	if len(b) < waveFormatExtensibleSize {
		return WaveFormat{}, fmt.Errorf("extensible wave format too short: %d bytes", len(b))
	}
	if cb := int(binary.LittleEndian.Uint16(b[16:])); cb < extensibleExtraSize {
		return WaveFormat{}, fmt.Errorf("extensible wave format cbSize %d < %d", cb, extensibleExtraSize)
	}

	wf.ValidBitsPerSample = int(binary.LittleEndian.Uint16(b[18:]))
	wf.ChannelMask = binary.LittleEndian.Uint32(b[20:])
	wf.SubFormat = guidFromBytes(b[24:40])
	return wf, nil
}

// Format resolves the tag (and sub-format for extensible headers) to a Format
func (wf WaveFormat) Format() Format {
	f := Format{
		Channels:      wf.Channels,
		SampleRate:    wf.SampleRate,
		BitsPerSample: wf.BitsPerSample,
	}

	switch wf.Tag {
	case TagPCM:
		f.Encoding = EncodingPCM
	case TagIEEEFloat:
		f.Encoding = EncodingFloat
	case TagExtensible:
		switch wf.SubFormat {
		case SubFormatPCM:
			f.Encoding = EncodingPCM
		case SubFormatIEEEFloat:
			f.Encoding = EncodingFloat
		default:
			f.Encoding = EncodingUnknown
		}
	default:
		f.Encoding = EncodingUnknown
	}

	return f
}

// Bytes encodes the header back into its little-endian wire layout
func (wf WaveFormat) Bytes() []byte {
	size := waveFormatExSize
	if wf.Tag == TagExtensible {
		size = waveFormatExtensibleSize
	}

	b := make([]byte, size)
	binary.LittleEndian.PutUint16(b[0:], uint16(wf.Tag))
	binary.LittleEndian.PutUint16(b[2:], uint16(wf.Channels))
	binary.LittleEndian.PutUint32(b[4:], uint32(wf.SampleRate))
	binary.LittleEndian.PutUint32(b[8:], uint32(wf.AvgBytesPerSec))
	binary.LittleEndian.PutUint16(b[12:], uint16(wf.BlockAlign))
	binary.LittleEndian.PutUint16(b[14:], uint16(wf.BitsPerSample))

	if wf.Tag == TagExtensible {
		binary.LittleEndian.PutUint16(b[16:], extensibleExtraSize)
		binary.LittleEndian.PutUint16(b[18:], uint16(wf.ValidBitsPerSample))
		binary.LittleEndian.PutUint32(b[20:], wf.ChannelMask)
		copy(b[24:40], guidToBytes(wf.SubFormat))
	}

	return b
}

// guidFromBytes converts a Windows mixed-endian GUID to RFC 4122 byte order
func guidFromBytes(b []byte) uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:], binary.LittleEndian.Uint32(b[0:]))
	binary.BigEndian.PutUint16(u[4:], binary.LittleEndian.Uint16(b[4:]))
	binary.BigEndian.PutUint16(u[6:], binary.LittleEndian.Uint16(b[6:]))
	copy(u[8:], b[8:16])
	return u
}

func guidToBytes(u uuid.UUID) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b[0:], binary.BigEndian.Uint32(u[0:]))
	binary.LittleEndian.PutUint16(b[4:], binary.BigEndian.Uint16(u[4:]))
	binary.LittleEndian.PutUint16(b[6:], binary.BigEndian.Uint16(u[6:]))
	copy(b[8:], u[8:])
	return b
}
