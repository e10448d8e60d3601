// ABOUTME: Per-packet conversion chain to 16 kHz mono s16le
// ABOUTME: Normalize, resample, encode; failures fall back to silence
package loopback

import (
	"fmt"

	"github.com/hearnow/loopcap/pkg/audio"
	"github.com/hearnow/loopcap/pkg/audio/encode"
	"github.com/hearnow/loopcap/pkg/audio/normalize"
	"github.com/hearnow/loopcap/pkg/audio/resample"
	"github.com/hearnow/loopcap/pkg/endpoint"
)

// converter holds the capture goroutine's reusable scratch space
type converter struct {
	scratch   []byte
	resampler *resample.Resampler
}

// convert turns one packet into output bytes. On error it still returns
// silence of the packet's expected output length.
func (c *converter) convert(f audio.Format, p endpoint.Packet) (out []byte, err error) {
	if p.Frames <= 0 {
		return nil, nil
	}
	if c.resampler == nil || c.resampler.InputRate() != f.SampleRate {
		c.resampler = resample.New(f.SampleRate, audio.OutputSampleRate)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("conversion panic: %v", r)
		}
		if err != nil {
			out = c.silence(p.Frames)
		}
	}()

	raw := c.load(f, p)

	mono, err := normalize.ToMono(f, raw, p.Frames)
	if err != nil {
		return nil, err
	}
	return encode.PCM16(c.resampler.Resample(mono)), nil
}

// load copies the packet into scratch; silent packets are zero-filled
// without touching their data
func (c *converter) load(f audio.Format, p endpoint.Packet) []byte {
	n := p.Frames * f.BlockAlign()
	if cap(c.scratch) < n {
		c.scratch = make([]byte, n)
	}
	raw := c.scratch[:n]

	if p.Silent() {
		clear(raw)
		return raw
	}
	m := copy(raw, p.Data)
	return raw[:m]
}

// silence returns zeroed output sized for a packet of frames input frames
func (c *converter) silence(frames int) []byte {
	return make([]byte, c.resampler.OutputLen(frames)*2)
}
