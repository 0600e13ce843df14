package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/noralabs/voicebridge/pkg/gateway/bridge/sessions"
	"github.com/noralabs/voicebridge/pkg/gateway/config"
	"github.com/noralabs/voicebridge/pkg/gateway/handlers"
	"github.com/noralabs/voicebridge/pkg/gateway/lifecycle"
	"github.com/noralabs/voicebridge/pkg/gateway/metrics"
	"github.com/noralabs/voicebridge/pkg/gateway/mw"
	"github.com/noralabs/voicebridge/pkg/gateway/skills"
	"github.com/noralabs/voicebridge/pkg/gateway/store"
	"github.com/noralabs/voicebridge/pkg/gateway/upstream"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	settings  json.RawMessage
	skills    *skills.Registry
	lifecycle *lifecycle.Lifecycle
	sessions  *sessions.Tracker
	metrics   *metrics.Metrics
	store     *store.Store
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	settings, err := upstream.LoadSettings(cfg.AgentSettingsPath)
	if err != nil {
		return nil, err
	}

	var sks []skills.Skill
	if cfg.KBPath != "" {
		sks = append(sks, skills.NewKB(skills.KBOptions{
			Path:           cfg.KBPath,
			MinOverlap:     cfg.KBMinOverlap,
			MaxAnswerChars: cfg.KBMaxAnswerChars,
		}))
	}

	var st *store.Store
	if cfg.DatabaseDSN != "" {
		st, err = store.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("opening call-record store: %w", err)
		}
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		mux:       http.NewServeMux(),
		settings:  settings,
		skills:    skills.NewRegistry(sks...),
		lifecycle: &lifecycle.Lifecycle{},
		sessions:  sessions.NewTracker(),
		metrics:   metrics.New(),
		store:     st,
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{
		Lifecycle: s.lifecycle,
		Sessions:  s.sessions,
		Store:     s.store,
	})
	s.mux.Handle("/metrics", s.metrics.Handler())
	s.mux.Handle("/sessions", handlers.SessionsHandler{Sessions: s.sessions})
	s.mux.Handle("/calls", handlers.CallsHandler{Store: s.store})
	s.mux.Handle("/stream", handlers.StreamHandler{
		Config: s.cfg,
		Dialer: upstream.AgentDialer{
			URL:              s.cfg.AgentURL,
			APIKey:           s.cfg.AgentAPIKey,
			HandshakeTimeout: s.cfg.AgentDialTimeout,
		},
		Settings:  s.settings,
		Logger:    s.logger,
		Skills:    s.skills,
		Lifecycle: s.lifecycle,
		Sessions:  s.sessions,
		Metrics:   s.metrics,
		Store:     s.store,
	})
	s.mux.Handle("/", handlers.NotFoundHandler{})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}

// SetDraining flips readiness so new calls get refused while live ones run out.
func (s *Server) SetDraining() {
	s.lifecycle.SetDraining(true)
}

// WaitSessions blocks until every live call has ended or ctx expires.
func (s *Server) WaitSessions(ctx context.Context) bool {
	return s.sessions.Wait(ctx)
}

// CancelSessions force-stops whatever calls remain.
func (s *Server) CancelSessions() int {
	return s.sessions.CancelAll()
}

func (s *Server) Close() {
	s.store.Close()
}
