package handlers

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/noralabs/voicebridge/pkg/gateway/bridge/session"
	"github.com/noralabs/voicebridge/pkg/gateway/bridge/sessions"
	"github.com/noralabs/voicebridge/pkg/gateway/config"
	"github.com/noralabs/voicebridge/pkg/gateway/lifecycle"
	"github.com/noralabs/voicebridge/pkg/gateway/metrics"
	"github.com/noralabs/voicebridge/pkg/gateway/mw"
	"github.com/noralabs/voicebridge/pkg/gateway/skills"
	"github.com/noralabs/voicebridge/pkg/gateway/store"
	"github.com/noralabs/voicebridge/pkg/gateway/upstream"
)

// StreamHandler terminates the telephony media-stream websocket and bridges
// it to a freshly dialed agent leg for the duration of the call.
type StreamHandler struct {
	Config    config.Config
	Dialer    upstream.AgentDialer
	Settings  json.RawMessage
	Logger    *slog.Logger
	Skills    *skills.Registry
	Lifecycle *lifecycle.Lifecycle
	Sessions  *sessions.Tracker
	Metrics   *metrics.Metrics
	Store     *store.Store
}

func (h StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	if h.Lifecycle.IsDraining() {
		writeError(w, r, http.StatusServiceUnavailable, "draining", "relay is draining")
		return
	}

	reqID, _ := mw.RequestIDFrom(r.Context())
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Telephony platforms do not send an Origin we could meaningfully check.
	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	telephony, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer telephony.Close()

	sessionID := "c_" + randHex(8)
	logger = logger.With("session_id", sessionID, "request_id", reqID)

	dialCtx, cancelDial := context.WithTimeout(r.Context(), h.Config.AgentDialTimeout)
	agent, err := h.Dialer.Dial(dialCtx)
	cancelDial()
	if err != nil {
		logger.Error("agent leg dial failed", "error", err)
		closeWS(telephony, websocket.CloseInternalServerErr, "agent unavailable")
		return
	}
	defer agent.Close()

	// Settings must be the first message on the agent leg; the platform
	// rejects audio sent before the session is configured.
	if err := agent.WriteMessage(websocket.TextMessage, h.Settings); err != nil {
		logger.Error("sending agent settings failed", "error", err)
		closeWS(telephony, websocket.CloseInternalServerErr, "agent unavailable")
		return
	}

	s, err := session.New(session.Dependencies{
		Telephony: telephony,
		Agent:     agent,
		Logger:    logger,
		Skills:    h.Skills,
		SessionID: sessionID,
		OnStreamStart: func(streamSid string) {
			h.Sessions.SetStreamSid(sessionID, streamSid)
		},
		OnFunctionCall: h.Metrics.FunctionCalled,
		Config: session.Config{
			FrameBytes:  h.Config.FrameBytes,
			QueueFrames: h.Config.AudioQueueFrames,
		},
	})
	if err != nil {
		logger.Error("session init failed", "error", err)
		closeWS(telephony, websocket.CloseInternalServerErr, "internal error")
		return
	}

	startedAt := time.Now()
	unregister := h.Sessions.Register(sessionID, sessions.Handle{
		StartedAt: startedAt,
		Cancel:    s.Cancel,
	})
	defer unregister()

	recordCtx, cancelRecord := context.WithTimeout(context.Background(), 5*time.Second)
	callID, storeErr := h.Store.StartCall(recordCtx, sessionID)
	cancelRecord()
	if storeErr != nil {
		logger.Warn("call record insert failed", "error", storeErr)
	}

	h.Metrics.SessionStarted()
	logger.Info("call session started")

	runErr := s.Run()
	h.Metrics.SessionStopped()

	outcome := metrics.OutcomeCompleted
	if !session.IsNormalTermination(runErr) {
		outcome = metrics.OutcomeError
		logger.Warn("call session ended with error", "error", runErr)
	} else {
		logger.Info("call session ended")
	}

	counters := s.Counters()
	h.Metrics.SessionEnded(outcome, time.Since(startedAt).Seconds(),
		counters.FramesIn, counters.FramesOut, counters.FramesDropped, counters.BargeIns)

	recordCtx, cancelRecord = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelRecord()
	if err := h.Store.SetStreamSid(recordCtx, callID, s.StreamSid()); err != nil {
		logger.Warn("call record update failed", "error", err)
	}
	if err := h.Store.EndCall(recordCtx, callID, outcome,
		counters.FramesIn, counters.FramesOut, counters.FramesDropped,
		counters.BargeIns, counters.FunctionCalls); err != nil {
		logger.Warn("call record close failed", "error", err)
	}
}

func closeWS(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
}

func randHex(nbytes int) string {
	b := make([]byte, nbytes)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().Format("20060102150405.000000000")))
	}
	return hex.EncodeToString(b)
}
