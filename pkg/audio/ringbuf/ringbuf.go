// ABOUTME: Bounded drop-oldest byte buffer between capture and consumers
// ABOUTME: Circular storage guarded by a single mutex
package ringbuf

import "sync"

// Buffer is a fixed-capacity FIFO of bytes. Writes never block: when a
// write would exceed capacity the oldest bytes are discarded.
type Buffer struct {
	mu      sync.Mutex
	data    []byte
	head    int // index of the oldest byte
	size    int
	evicted uint64
}

// New creates a buffer holding at most capacity bytes
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Write appends p, evicting from the front as needed, and returns the
// number of bytes evicted. Only the last Cap() bytes of an oversized
// write are kept.
func (b *Buffer) Write(p []byte) int {
	if len(p) == 0 {
		return 0
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	capacity := len(b.data)
	evicted := 0

	if len(p) >= capacity {
		evicted = b.size + len(p) - capacity
		copy(b.data, p[len(p)-capacity:])
		b.head = 0
		b.size = capacity
		b.evicted += uint64(evicted)
		return evicted
	}

	if over := b.size + len(p) - capacity; over > 0 {
		b.head = (b.head + over) % capacity
		b.size -= over
		evicted = over
	}

	tail := (b.head + b.size) % capacity
	n := copy(b.data[tail:], p)
	copy(b.data, p[n:])
	b.size += len(p)
	b.evicted += uint64(evicted)
	return evicted
}

// Read removes and returns up to n bytes from the front. It returns an
// empty, non-nil slice when n <= 0 or the buffer is empty.
func (b *Buffer) Read(n int) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if n <= 0 || b.size == 0 {
		return []byte{}
	}
	if n > b.size {
		n = b.size
	}

	out := make([]byte, n)
	m := copy(out, b.data[b.head:min(b.head+n, len(b.data))])
	copy(out[m:], b.data)
	b.head = (b.head + n) % len(b.data)
	b.size -= n
	if b.size == 0 {
		b.head = 0
	}
	return out
}

// Len returns the number of buffered bytes
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap returns the fixed capacity
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Evicted returns the total number of bytes dropped since creation
func (b *Buffer) Evicted() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.evicted
}

// Reset discards all buffered bytes; the eviction counter is kept
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.size = 0
}
