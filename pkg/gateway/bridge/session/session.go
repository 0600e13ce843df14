package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"github.com/noralabs/voicebridge/pkg/gateway/bridge/protocol"
	"github.com/noralabs/voicebridge/pkg/gateway/skills"
)

// DefaultFrameBytes is one relay frame: 20 telephony packets of 160
// narrowband samples each.
const DefaultFrameBytes = 20 * 160

// LegConn is the slice of a websocket connection the relay needs. It is
// satisfied by *websocket.Conn and fakeable in tests.
type LegConn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type Config struct {
	FrameBytes  int
	QueueFrames int
}

type Dependencies struct {
	Telephony LegConn
	Agent     LegConn
	Logger    *slog.Logger
	Skills    *skills.Registry
	SessionID string
	Config    Config

	// OnStreamStart, when set, observes the telephony stream identifier the
	// moment the first start event is seen. Called at most once, from the
	// ingress loop.
	OnStreamStart func(streamSid string)

	// OnFunctionCall, when set, observes every dispatched call by name.
	OnFunctionCall func(name string)
}

// Counters is a snapshot of per-session relay accounting. Stable once Run
// has returned.
type Counters struct {
	FramesIn      int64
	FramesOut     int64
	FramesDropped int64
	BargeIns      int64
	FunctionCalls int64
}

// Session is one live call: the telephony leg, the agent leg, and the three
// loops that relay between them. The loops are co-dependent; the first one to
// finish, for any reason, tears the whole session down.
type Session struct {
	telephony      LegConn
	agent          LegConn
	logger         *slog.Logger
	skills         *skills.Registry
	sessionID      string
	cfg            Config
	onStreamStart  func(streamSid string)
	onFunctionCall func(name string)

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	queue     *frameQueue
	streamSid *streamHandoff
	sid       atomic.Value

	// Both the sender loop (audio) and the receiver loop (function-call
	// responses) write on the agent socket.
	agentWriteMu sync.Mutex

	framesIn      atomic.Int64
	framesOut     atomic.Int64
	bargeIns      atomic.Int64
	functionCalls atomic.Int64
}

func New(deps Dependencies) (*Session, error) {
	if deps.Telephony == nil {
		return nil, fmt.Errorf("telephony connection is required")
	}
	if deps.Agent == nil {
		return nil, fmt.Errorf("agent connection is required")
	}
	if deps.Skills == nil {
		return nil, fmt.Errorf("skills registry is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Config.FrameBytes <= 0 {
		deps.Config.FrameBytes = DefaultFrameBytes
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		telephony:      deps.Telephony,
		agent:          deps.Agent,
		logger:         deps.Logger,
		skills:         deps.Skills,
		sessionID:      deps.SessionID,
		cfg:            deps.Config,
		onStreamStart:  deps.OnStreamStart,
		onFunctionCall: deps.OnFunctionCall,

		ctx:       ctx,
		cancel:    cancel,
		queue:     newFrameQueue(deps.Config.QueueFrames),
		streamSid: newStreamHandoff(),
	}, nil
}

// Run starts the ingress, agent-sender, and agent-receiver loops and races
// them to first completion. Whichever finishes first, the other two are
// cancelled and both leg connections are closed exactly once. Returns the
// first loop's result.
func (s *Session) Run() error {
	defer s.teardown()

	errCh := make(chan error, 3)
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		errCh <- s.ingressLoop()
	}()
	go func() {
		defer wg.Done()
		errCh <- s.senderLoop()
	}()
	go func() {
		defer wg.Done()
		errCh <- s.receiverLoop()
	}()

	err := <-errCh
	s.teardown()
	wg.Wait()
	return err
}

// Cancel tears the session down from outside (shutdown draining).
func (s *Session) Cancel() {
	s.teardown()
}

func (s *Session) teardown() {
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.telephony.Close()
		_ = s.agent.Close()
	})
}

// StreamSid reports the telephony stream identifier, or empty before the
// start event has been seen.
func (s *Session) StreamSid() string {
	sid, _ := s.sid.Load().(string)
	return sid
}

func (s *Session) Counters() Counters {
	return Counters{
		FramesIn:      s.framesIn.Load(),
		FramesOut:     s.framesOut.Load(),
		FramesDropped: s.queue.Dropped(),
		BargeIns:      s.bargeIns.Load(),
		FunctionCalls: s.functionCalls.Load(),
	}
}

func (s *Session) writeAgent(messageType int, data []byte) error {
	s.agentWriteMu.Lock()
	defer s.agentWriteMu.Unlock()
	return s.agent.WriteMessage(messageType, data)
}

// senderLoop forwards queued audio frames to the agent leg as binary
// messages. It has no natural end of input and runs until cancellation or a
// send failure.
func (s *Session) senderLoop() error {
	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		case frame := <-s.queue.Frames():
			if err := s.writeAgent(websocket.BinaryMessage, frame); err != nil {
				return err
			}
		}
	}
}

// receiverLoop demultiplexes the agent leg. It must not touch the telephony
// leg before the stream identifier exists, so it first awaits the handoff
// even when agent data arrives earlier. Messages from the one socket are
// processed strictly in arrival order; a clear emitted for barge-in therefore
// always precedes any agent audio that arrives after it.
func (s *Session) receiverLoop() error {
	streamSid, err := s.streamSid.Await(s.ctx)
	if err != nil {
		return err
	}

	for {
		messageType, data, err := s.agent.ReadMessage()
		if err != nil {
			return err
		}
		switch messageType {
		case websocket.BinaryMessage:
			if err := s.telephony.WriteMessage(websocket.TextMessage, protocol.EncodeOutboundMedia(streamSid, data)); err != nil {
				return err
			}
			s.framesOut.Add(1)
		case websocket.TextMessage:
			if err := s.handleAgentText(streamSid, data); err != nil {
				return err
			}
		}
	}
}

func (s *Session) handleAgentText(streamSid string, data []byte) error {
	msg, err := protocol.DecodeAgentEvent(data)
	if err != nil {
		// Non-fatal per message: skip and keep the session alive.
		s.logger.Debug("skipping undecodable agent message", "session_id", s.sessionID, "error", err)
		return nil
	}

	switch m := msg.(type) {
	case protocol.UserStartedSpeaking:
		s.bargeIns.Add(1)
		return s.telephony.WriteMessage(websocket.TextMessage, protocol.EncodeClear(streamSid))
	case protocol.FunctionCallRequest:
		return s.handleFunctionCalls(m)
	default:
		return nil
	}
}

// handleFunctionCalls answers every call in the batch, in order, exactly
// once each, sending a response before moving to the next call. Unknown
// names and failed executions become error payloads; a malformed entry never
// aborts the remaining batch items.
func (s *Session) handleFunctionCalls(req protocol.FunctionCallRequest) error {
	for _, call := range req.Functions {
		id, name := call.ID, call.Name
		if id == "" {
			id = "unknown"
		}
		if name == "" {
			name = "unknown"
		}

		var result map[string]any
		args, err := call.DecodeArguments()
		if err != nil {
			result = map[string]any{"error": fmt.Sprintf("Function call failed with: %v", err)}
		} else {
			result = s.skills.Invoke(s.ctx, name, args)
		}
		s.functionCalls.Add(1)
		if s.onFunctionCall != nil {
			s.onFunctionCall(name)
		}
		s.logger.Info("function call", "session_id", s.sessionID, "function", name, "id", id)

		if err := s.writeAgent(websocket.TextMessage, protocol.EncodeFunctionCallResponse(id, name, result)); err != nil {
			return err
		}
	}
	return nil
}

// IsNormalTermination reports whether a session result is an expected end of
// call rather than a failure worth logging loudly.
func IsNormalTermination(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived)
}
