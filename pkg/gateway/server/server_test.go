package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/noralabs/voicebridge/pkg/gateway/config"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	settingsPath := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(settingsPath, []byte(`{"type":"Settings"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := config.Config{
		Addr:              ":0",
		AgentURL:          "ws://127.0.0.1:1/agent",
		AgentAPIKey:       "dg-test",
		AgentSettingsPath: settingsPath,
		AgentDialTimeout:  time.Second,
		FrameBytes:        3200,
		AudioQueueFrames:  16,
	}
	s, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func get(t *testing.T, h http.Handler, path string) *http.Response {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	return rec.Result()
}

func TestNew_FailsWithoutSettingsFile(t *testing.T) {
	cfg := config.Config{
		AgentSettingsPath: filepath.Join(t.TempDir(), "missing.json"),
	}
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatal("New() succeeded without a settings file")
	}
}

func TestRoutes(t *testing.T) {
	h := newTestServer(t).Handler()

	resp := get(t, h, "/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/healthz status = %d", resp.StatusCode)
	}

	resp = get(t, h, "/readyz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/readyz status = %d", resp.StatusCode)
	}

	resp = get(t, h, "/metrics")
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "voicebridge_sessions_active") {
		t.Fatalf("/metrics status = %d, body missing relay series", resp.StatusCode)
	}

	resp = get(t, h, "/sessions")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/sessions status = %d", resp.StatusCode)
	}

	resp = get(t, h, "/calls")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/calls status = %d", resp.StatusCode)
	}

	resp = get(t, h, "/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown path status = %d, want 404", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("middleware chain did not stamp X-Request-ID")
	}
}

func TestDrainingFlipsReadinessAndRefusesStreams(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	s.SetDraining()

	resp := get(t, h, "/readyz")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/readyz while draining status = %d, want 503", resp.StatusCode)
	}

	resp = get(t, h, "/stream")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("/stream while draining status = %d, want 503", resp.StatusCode)
	}
}

func TestWaitSessionsOnIdleServerReturnsImmediately(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if !s.WaitSessions(ctx) {
		t.Fatal("WaitSessions() on idle server did not drain")
	}
	if s.CancelSessions() != 0 {
		t.Fatal("CancelSessions() on idle server canceled something")
	}
}
