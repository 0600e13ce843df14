package session

import "sync/atomic"

// frameQueue relays fixed-size audio frames from the ingress loop to the
// agent-sender loop. Single producer, single consumer. The queue is bounded;
// when the agent leg cannot keep up the oldest frame is dropped so live audio
// stays current instead of drifting behind.
type frameQueue struct {
	frames  chan []byte
	dropped atomic.Int64
}

func newFrameQueue(capacity int) *frameQueue {
	if capacity <= 0 {
		capacity = 256
	}
	return &frameQueue{frames: make(chan []byte, capacity)}
}

// Push enqueues one frame, evicting the oldest queued frame on overflow.
// Returns true when an eviction happened. Safe only for a single producer.
func (q *frameQueue) Push(frame []byte) (evicted bool) {
	select {
	case q.frames <- frame:
		return false
	default:
	}
	select {
	case <-q.frames:
		q.dropped.Add(1)
		evicted = true
	default:
	}
	select {
	case q.frames <- frame:
	default:
		// Consumer raced us and the slot is gone; drop the new frame instead.
		q.dropped.Add(1)
		evicted = true
	}
	return evicted
}

// Frames exposes the consumer side so the sender loop can select on it
// together with cancellation.
func (q *frameQueue) Frames() <-chan []byte {
	return q.frames
}

func (q *frameQueue) Dropped() int64 {
	return q.dropped.Load()
}
