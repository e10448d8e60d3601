// ABOUTME: Tests for the fixed-size framer
// ABOUTME: Verifies partial frames carry over between pushes
package encode

import "testing"

func TestFramerSplitsAndCarries(t *testing.T) {
	f := NewFramer(4)

	frames := f.Push([]byte{1, 2, 3})
	if len(frames) != 0 {
		t.Fatalf("expected no frames, got %d", len(frames))
	}
	if f.Pending() != 3 {
		t.Fatalf("Pending() = %d, want 3", f.Pending())
	}

	frames = f.Push([]byte{4, 5, 6, 7, 8, 9})
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(frames))
	}
	if string(frames[0]) != string([]byte{1, 2, 3, 4}) {
		t.Errorf("frame 0 = %v", frames[0])
	}
	if string(frames[1]) != string([]byte{5, 6, 7, 8}) {
		t.Errorf("frame 1 = %v", frames[1])
	}
	if f.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", f.Pending())
	}

	f.Reset()
	if f.Pending() != 0 {
		t.Errorf("Pending() after Reset = %d, want 0", f.Pending())
	}
}

func TestFramerPassthrough(t *testing.T) {
	f := NewFramer(0)

	frames := f.Push([]byte{1, 2, 3})
	if len(frames) != 1 || len(frames[0]) != 3 {
		t.Fatalf("expected one 3-byte frame, got %v", frames)
	}
	if frames := f.Push(nil); frames != nil {
		t.Errorf("expected nil for empty push, got %v", frames)
	}
}
