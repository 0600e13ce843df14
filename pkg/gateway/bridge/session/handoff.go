package session

import "context"

// streamHandoff is a single-slot, publish-at-most-once handoff for the
// telephony stream identifier. The ingress loop publishes it when the start
// event arrives; the agent-receiver loop must not touch the telephony leg
// before it has the identifier, so Await blocks until the publish happens.
type streamHandoff struct {
	ch chan string
}

func newStreamHandoff() *streamHandoff {
	return &streamHandoff{ch: make(chan string, 1)}
}

// Publish stores the identifier and reports whether this call was the first.
// Only the first publish wins; a repeated start event is ignored rather than
// overwriting a stream already in flight.
func (h *streamHandoff) Publish(streamSid string) bool {
	select {
	case h.ch <- streamSid:
		return true
	default:
		return false
	}
}

// Await blocks until an identifier has been published or ctx is done.
func (h *streamHandoff) Await(ctx context.Context) (string, error) {
	select {
	case sid := <-h.ch:
		return sid, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
