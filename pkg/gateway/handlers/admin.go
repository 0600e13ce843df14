package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/noralabs/voicebridge/pkg/gateway/bridge/sessions"
	"github.com/noralabs/voicebridge/pkg/gateway/store"
)

// SessionsHandler lists calls currently in flight.
type SessionsHandler struct {
	Sessions *sessions.Tracker
}

func (h SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	type liveSession struct {
		SessionID string    `json:"session_id"`
		StreamSid string    `json:"stream_sid,omitempty"`
		StartedAt time.Time `json:"started_at"`
		AgeSec    int64     `json:"age_seconds"`
	}

	infos := h.Sessions.List()
	out := make([]liveSession, 0, len(infos))
	now := time.Now()
	for _, info := range infos {
		out = append(out, liveSession{
			SessionID: info.SessionID,
			StreamSid: info.StreamSid,
			StartedAt: info.StartedAt,
			AgeSec:    int64(now.Sub(info.StartedAt).Seconds()),
		})
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{"sessions": out})
}

// CallsHandler lists recent call records. Empty when no database is
// configured.
type CallsHandler struct {
	Store *store.Store
}

func (h CallsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			writeError(w, r, http.StatusBadRequest, "bad_request", "limit must be an integer in [1,500]")
			return
		}
		limit = n
	}

	records, err := h.Store.RecentCalls(r.Context(), limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal", "listing call records failed")
		return
	}
	if records == nil {
		records = []store.CallRecord{}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{"calls": records})
}
