// ABOUTME: Bounded packet queue shared by callback-driven backends
// ABOUTME: Auto-reset signal plus pooled packet buffers, drop-oldest on overflow
package endpoint

import (
	"sync"
	"time"
)

// packetQueue hands packets from a device callback to the capture loop.
// Its exported methods satisfy the consumer half of Endpoint.
type packetQueue struct {
	mu      sync.Mutex
	packets []Packet
	limit   int
	gap     bool
	dropped uint64

	signal chan struct{}
	pool   sync.Pool
}

func newPacketQueue(limit int) *packetQueue {
	if limit <= 0 {
		limit = DefaultQueuePackets
	}
	return &packetQueue{
		limit:  limit,
		signal: make(chan struct{}, 1),
	}
}

// push copies data into a pooled buffer and queues it. A full queue
// drops its oldest packet and flags the next one as a discontinuity.
func (q *packetQueue) push(data []byte, frames int, flags Flags) {
	bp, _ := q.pool.Get().(*[]byte)
	if bp == nil {
		b := make([]byte, 0, len(data))
		bp = &b
	}
	buf := append((*bp)[:0], data...)
	*bp = buf

	q.mu.Lock()
	if len(q.packets) >= q.limit {
		old := q.packets[0]
		q.packets = q.packets[1:]
		q.dropped++
		q.gap = true
		q.recycle(old)
	}
	if q.gap {
		flags |= FlagDiscontinuity
		q.gap = false
	}
	q.packets = append(q.packets, Packet{Data: buf, Frames: frames, Flags: flags, buf: bp})
	q.mu.Unlock()

	q.Wake()
}

func (q *packetQueue) recycle(p Packet) {
	if p.buf != nil {
		q.pool.Put(p.buf)
	}
}

// Wait blocks until a push or Wake, or until timeout
func (q *packetQueue) Wait(timeout time.Duration) (bool, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-q.signal:
		return true, nil
	case <-timer.C:
		return false, nil
	}
}

// Wake signals a waiting consumer; the signal auto-resets when consumed
func (q *packetQueue) Wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

func (q *packetQueue) NextPacket() (Packet, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.packets) == 0 {
		return Packet{}, false, nil
	}
	p := q.packets[0]
	q.packets[0] = Packet{}
	q.packets = q.packets[1:]
	return p, true, nil
}

func (q *packetQueue) Release(p Packet) {
	q.recycle(p)
}

// flush drops every queued packet
func (q *packetQueue) flush() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, p := range q.packets {
		q.recycle(p)
	}
	q.packets = nil
	q.gap = false
}

// Dropped returns how many packets were discarded on overflow
func (q *packetQueue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

func (q *packetQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.packets)
}
