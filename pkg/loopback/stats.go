// ABOUTME: Capture statistics counters
// ABOUTME: Lock-free counters updated by the capture goroutine
package loopback

import "sync/atomic"

// Stats is a snapshot of capture counters
type Stats struct {
	Packets            uint64
	SilentPackets      uint64
	DroppedPackets     uint64
	Discontinuities    uint64
	ConversionFailures uint64
	BytesWritten       uint64
	BytesEvicted       uint64
	Buffered           int
}

type counters struct {
	packets            atomic.Uint64
	silentPackets      atomic.Uint64
	droppedPackets     atomic.Uint64
	discontinuities    atomic.Uint64
	conversionFailures atomic.Uint64
	bytesWritten       atomic.Uint64
}

// Stats returns a snapshot of the capture counters
func (s *Session) Stats() Stats {
	return Stats{
		Packets:            s.stats.packets.Load(),
		SilentPackets:      s.stats.silentPackets.Load(),
		DroppedPackets:     s.stats.droppedPackets.Load(),
		Discontinuities:    s.stats.discontinuities.Load(),
		ConversionFailures: s.stats.conversionFailures.Load(),
		BytesWritten:       s.stats.bytesWritten.Load(),
		BytesEvicted:       s.buf.Evicted(),
		Buffered:           s.buf.Len(),
	}
}
