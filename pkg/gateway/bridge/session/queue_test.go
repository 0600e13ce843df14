package session

import (
	"bytes"
	"testing"
)

func TestFrameQueuePushAndDrain(t *testing.T) {
	q := newFrameQueue(4)
	for i := byte(0); i < 3; i++ {
		if evicted := q.Push([]byte{i}); evicted {
			t.Fatalf("push %d evicted below capacity", i)
		}
	}
	for i := byte(0); i < 3; i++ {
		frame := <-q.Frames()
		if !bytes.Equal(frame, []byte{i}) {
			t.Fatalf("frame %d = %v", i, frame)
		}
	}
	if got := q.Dropped(); got != 0 {
		t.Fatalf("Dropped() = %d, want 0", got)
	}
}

func TestFrameQueueEvictsOldestOnOverflow(t *testing.T) {
	q := newFrameQueue(2)
	q.Push([]byte{0})
	q.Push([]byte{1})
	if evicted := q.Push([]byte{2}); !evicted {
		t.Fatal("overflow push did not report eviction")
	}

	// Oldest frame is gone; the two newest remain in order.
	for _, want := range []byte{1, 2} {
		frame := <-q.Frames()
		if !bytes.Equal(frame, []byte{want}) {
			t.Fatalf("frame = %v, want [%d]", frame, want)
		}
	}
	if got := q.Dropped(); got != 1 {
		t.Fatalf("Dropped() = %d, want 1", got)
	}
}

func TestFrameQueueDefaultCapacity(t *testing.T) {
	q := newFrameQueue(0)
	if cap(q.frames) != 256 {
		t.Fatalf("default capacity = %d, want 256", cap(q.frames))
	}
}
