// ABOUTME: Mono downmix for interleaved float32 and int16 buffers
// ABOUTME: Unsupported layouts degrade to silence instead of failing
package normalize

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/hearnow/loopcap/pkg/audio"
)

// int16Scale maps signed 16-bit samples to approximately [-1, 1]
const int16Scale = 32768.0

var (
	ErrNoChannels  = errors.New("normalize: format has no channels")
	ErrShortBuffer = errors.New("normalize: buffer shorter than frame count")
)

// ToMono averages every frame of raw across its channels.
// The result always has exactly frames samples unless an error is returned.
func ToMono(f audio.Format, raw []byte, frames int) ([]float32, error) {
	if f.Channels < 1 {
		return nil, ErrNoChannels
	}
	if frames <= 0 {
		return []float32{}, nil
	}

	kind := f.Kind()
	if kind != audio.KindUnsupported {
		if need := frames * f.BlockAlign(); len(raw) < need {
			return nil, fmt.Errorf("%w: have %d bytes, need %d", ErrShortBuffer, len(raw), need)
		}
	}

	out := make([]float32, frames)

	switch kind {
	case audio.KindFloat32:
		float32ToMono(raw, f.Channels, out)
	case audio.KindInt16:
		int16ToMono(raw, f.Channels, out)
	case audio.KindUnsupported:
		// silence
	}

	return out, nil
}

func float32ToMono(raw []byte, channels int, out []float32) {
	stride := channels * 4
	for i := range out {
		frame := raw[i*stride:]
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += math.Float32frombits(binary.LittleEndian.Uint32(frame[ch*4:]))
		}
		out[i] = sum / float32(channels)
	}
}

func int16ToMono(raw []byte, channels int, out []float32) {
	stride := channels * 2
	for i := range out {
		frame := raw[i*stride:]
		var sum int32
		for ch := 0; ch < channels; ch++ {
			sum += int32(int16(binary.LittleEndian.Uint16(frame[ch*2:])))
		}
		out[i] = float32(sum) / float32(channels) / int16Scale
	}
}
