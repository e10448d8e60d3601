// ABOUTME: Capture goroutine: wait, drain, convert, buffer, release
// ABOUTME: Per-packet failures become silence; the loop never aborts
package loopback

import (
	"time"

	"github.com/hearnow/loopcap/pkg/endpoint"
)

// waitErrorBackoff spaces out retries when the endpoint wait itself fails
const waitErrorBackoff = 50 * time.Millisecond

func (s *Session) captureLoop(done chan struct{}) {
	defer close(done)

	conv := &converter{}
	for s.running.Load() {
		signaled, err := s.ep.Wait(s.waitTimeout)
		if err != nil {
			s.log.Warn().Err(err).Msg("Endpoint wait failed")
			time.Sleep(waitErrorBackoff)
			continue
		}
		if !signaled {
			continue
		}
		s.drain(conv)
	}
}

// drain processes every packet currently available
func (s *Session) drain(conv *converter) {
	for s.running.Load() {
		p, ok, err := s.ep.NextPacket()
		if err != nil {
			s.log.Debug().Err(err).Msg("Next packet failed")
			return
		}
		if !ok {
			return
		}
		s.handle(conv, p)
	}
}

func (s *Session) handle(conv *converter, p endpoint.Packet) {
	defer s.ep.Release(p)

	s.stats.packets.Add(1)
	if p.Silent() {
		s.stats.silentPackets.Add(1)
	}
	if p.Flags&endpoint.FlagDiscontinuity != 0 {
		s.stats.discontinuities.Add(1)
	}

	f := s.format.Load()
	if f == nil {
		s.stats.droppedPackets.Add(1)
		return
	}

	out, err := conv.convert(*f, p)
	if err != nil {
		s.stats.conversionFailures.Add(1)
		s.log.Debug().Err(err).Int("frames", p.Frames).Msg("Packet conversion failed, writing silence")
	}
	if len(out) == 0 {
		return
	}

	s.stats.bytesWritten.Add(uint64(len(out)))
	s.buf.Write(out)
}
