package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSessionLifecycleCountersFold(t *testing.T) {
	m := New()

	m.SessionStarted()
	if got := testutil.ToFloat64(m.SessionsActive); got != 1 {
		t.Fatalf("SessionsActive = %v, want 1", got)
	}
	m.SessionStopped()
	if got := testutil.ToFloat64(m.SessionsActive); got != 0 {
		t.Fatalf("SessionsActive = %v, want 0", got)
	}

	m.SessionEnded(OutcomeCompleted, 12.5, 100, 80, 3, 2)
	if got := testutil.ToFloat64(m.SessionsTotal.WithLabelValues(OutcomeCompleted)); got != 1 {
		t.Fatalf("SessionsTotal{completed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.FramesRelayed.WithLabelValues(DirectionInbound)); got != 100 {
		t.Fatalf("FramesRelayed{inbound} = %v, want 100", got)
	}
	if got := testutil.ToFloat64(m.FramesRelayed.WithLabelValues(DirectionOutbound)); got != 80 {
		t.Fatalf("FramesRelayed{outbound} = %v, want 80", got)
	}
	if got := testutil.ToFloat64(m.FramesDropped); got != 3 {
		t.Fatalf("FramesDropped = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.BargeIns); got != 2 {
		t.Fatalf("BargeIns = %v, want 2", got)
	}

	m.FunctionCalled("kb_answer")
	m.FunctionCalled("kb_answer")
	if got := testutil.ToFloat64(m.FunctionCalls.WithLabelValues("kb_answer")); got != 2 {
		t.Fatalf("FunctionCalls{kb_answer} = %v, want 2", got)
	}
}

func TestNilMetricsAreInert(t *testing.T) {
	var m *Metrics
	m.SessionStarted()
	m.SessionStopped()
	m.SessionEnded(OutcomeError, 1, 1, 1, 1, 1)
	m.FunctionCalled("kb_answer")
}

func TestHandlerServesRegisteredSeries(t *testing.T) {
	m := New()
	m.SessionEnded(OutcomeCompleted, 1, 1, 1, 0, 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if rec.Code != 200 {
		t.Fatalf("status = %d", rec.Code)
	}
	for _, series := range []string{
		"voicebridge_sessions_total",
		"voicebridge_frames_relayed_total",
		"voicebridge_session_duration_seconds",
	} {
		if !strings.Contains(body, series) {
			t.Fatalf("scrape output missing %s", series)
		}
	}
}
