package protocol

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

const (
	// TrackInbound is the caller-to-service audio track on the telephony leg.
	// Other tracks (outbound echo) are ignored by the relay.
	TrackInbound = "inbound"
)

type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badEvent(message, param string) *DecodeError {
	return &DecodeError{Code: "bad_event", Message: message, Param: param}
}

// StreamStart is the first telephony event of a call; it carries the stream
// identifier every outbound telephony event must be addressed to.
type StreamStart struct {
	StreamSid string
}

// MediaChunk is one inbound telephony audio chunk, already base64-decoded.
type MediaChunk struct {
	Track   string
	Payload []byte
}

// StreamStop signals the clean end of the telephony media stream.
type StreamStop struct{}

// StreamControl is any other telephony event kind (connected, mark, dtmf).
// The relay ignores these; only a transport error ends the stream.
type StreamControl struct {
	Event string
}

type telephonyEnvelope struct {
	Event string `json:"event"`
	Start *struct {
		StreamSid string `json:"streamSid"`
	} `json:"start,omitempty"`
	Media *struct {
		Track   string `json:"track"`
		Payload string `json:"payload"`
	} `json:"media,omitempty"`
}

// DecodeTelephonyEvent parses one text frame from the telephony leg into a
// tagged variant: StreamStart, MediaChunk, StreamStop, or StreamControl for
// every other event kind. Telephony platforms open the stream with a
// connected event and interleave mark events with media, so an unrecognized
// kind is not an error; malformed frames are.
func DecodeTelephonyEvent(data []byte) (any, error) {
	var env telephonyEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, badEvent("invalid json frame", "")
	}
	switch strings.TrimSpace(env.Event) {
	case "start":
		if env.Start == nil || strings.TrimSpace(env.Start.StreamSid) == "" {
			return nil, badEvent("start.streamSid is required", "start.streamSid")
		}
		return StreamStart{StreamSid: env.Start.StreamSid}, nil
	case "media":
		if env.Media == nil {
			return nil, badEvent("media payload is required", "media")
		}
		payload, err := base64.StdEncoding.DecodeString(env.Media.Payload)
		if err != nil {
			return nil, badEvent("media.payload is not valid base64", "media.payload")
		}
		return MediaChunk{Track: env.Media.Track, Payload: payload}, nil
	case "stop":
		return StreamStop{}, nil
	case "":
		return nil, badEvent("missing event", "event")
	default:
		return StreamControl{Event: env.Event}, nil
	}
}

type outboundMedia struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
	Media     struct {
		Payload string `json:"payload"`
	} `json:"media"`
}

// EncodeOutboundMedia wraps one binary agent audio chunk as a telephony media
// event addressed to the session's stream.
func EncodeOutboundMedia(streamSid string, audio []byte) []byte {
	msg := outboundMedia{Event: "media", StreamSid: streamSid}
	msg.Media.Payload = base64.StdEncoding.EncodeToString(audio)
	data, _ := json.Marshal(msg)
	return data
}

type clearEvent struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
}

// EncodeClear builds the telephony clear event that flushes queued playback
// audio on the caller leg (barge-in).
func EncodeClear(streamSid string) []byte {
	data, _ := json.Marshal(clearEvent{Event: "clear", StreamSid: streamSid})
	return data
}
