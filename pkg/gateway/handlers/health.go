package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/noralabs/voicebridge/pkg/gateway/bridge/sessions"
	"github.com/noralabs/voicebridge/pkg/gateway/lifecycle"
	"github.com/noralabs/voicebridge/pkg/gateway/store"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// ReadyHandler reports whether the relay should receive new calls. During
// shutdown draining it flips to 503 so the load balancer stops routing
// telephony traffic here while live calls finish.
type ReadyHandler struct {
	Lifecycle *lifecycle.Lifecycle
	Sessions  *sessions.Tracker
	Store     *store.Store
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK             bool     `json:"ok"`
		Draining       bool     `json:"draining"`
		ActiveSessions int      `json:"active_sessions"`
		Issues         []string `json:"issues,omitempty"`
	}

	resp := readyResp{
		OK:             true,
		ActiveSessions: h.Sessions.Count(),
	}
	if h.Lifecycle.IsDraining() {
		resp.OK = false
		resp.Draining = true
		resp.Issues = append(resp.Issues, "draining")
	}
	if err := h.Store.Ping(r.Context()); err != nil {
		resp.OK = false
		resp.Issues = append(resp.Issues, "call-record database unreachable")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if !resp.OK {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
