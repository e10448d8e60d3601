// ABOUTME: Fixed-size frame splitter for frame-based encoders
// ABOUTME: Carries partial frames across pulls so no bytes are lost
package encode

// Framer cuts an arbitrary byte stream into frames of a fixed size
type Framer struct {
	size    int
	pending []byte
}

// NewFramer creates a framer; size <= 0 passes input through whole
func NewFramer(size int) *Framer {
	return &Framer{size: size}
}

// Push appends p and returns every complete frame now available
func (f *Framer) Push(p []byte) [][]byte {
	if f.size <= 0 {
		if len(p) == 0 {
			return nil
		}
		return [][]byte{p}
	}

	f.pending = append(f.pending, p...)

	var frames [][]byte
	for len(f.pending) >= f.size {
		frame := make([]byte, f.size)
		copy(frame, f.pending[:f.size])
		frames = append(frames, frame)
		f.pending = f.pending[f.size:]
	}
	return frames
}

// Pending returns the number of buffered bytes not yet forming a frame
func (f *Framer) Pending() int {
	return len(f.pending)
}

// Reset drops any buffered partial frame
func (f *Framer) Reset() {
	f.pending = nil
}
