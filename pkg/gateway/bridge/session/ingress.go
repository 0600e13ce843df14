package session

import (
	"github.com/gorilla/websocket"

	"github.com/noralabs/voicebridge/pkg/gateway/bridge/protocol"
)

// ingressLoop reads telephony events and re-slices inbound caller audio into
// fixed-size frames for the agent leg. Telephony chunking arrives with
// whatever jitter the carrier produces; the agent leg expects a steady frame
// cadence, so bytes accumulate here and drain in exact FrameBytes slices.
//
// The loop exits, never errors upward: its return is the teardown trigger for
// the whole session. A new session requires a new connection.
func (s *Session) ingressLoop() error {
	frameBytes := s.cfg.FrameBytes
	acc := make([]byte, 0, 4*frameBytes)

	for {
		messageType, data, err := s.telephony.ReadMessage()
		if err != nil {
			return nil
		}
		if messageType != websocket.TextMessage {
			continue
		}

		ev, err := protocol.DecodeTelephonyEvent(data)
		if err != nil {
			s.logger.Warn("telephony stream ended on undecodable frame", "session_id", s.sessionID, "error", err)
			return nil
		}

		switch m := ev.(type) {
		case protocol.StreamStart:
			if s.streamSid.Publish(m.StreamSid) {
				s.sid.Store(m.StreamSid)
				if s.onStreamStart != nil {
					s.onStreamStart(m.StreamSid)
				}
			}
			s.logger.Info("telephony stream started", "session_id", s.sessionID, "stream_sid", m.StreamSid)
		case protocol.MediaChunk:
			if m.Track == protocol.TrackInbound {
				acc = append(acc, m.Payload...)
			}
		case protocol.StreamStop:
			return nil
		case protocol.StreamControl:
			s.logger.Debug("ignoring telephony control event", "session_id", s.sessionID, "event", m.Event)
		}

		for len(acc) >= frameBytes {
			frame := make([]byte, frameBytes)
			copy(frame, acc)
			acc = acc[:copy(acc, acc[frameBytes:])]
			if s.queue.Push(frame) {
				s.logger.Debug("audio frame evicted under backpressure", "session_id", s.sessionID)
			}
			s.framesIn.Add(1)
		}
	}
}
