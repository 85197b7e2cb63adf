package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"plc-copilot/internal/config"
	"plc-copilot/internal/copilot"
	"plc-copilot/internal/metrics"
	"plc-copilot/internal/store"
	"plc-copilot/internal/types"
	"plc-copilot/internal/upstream"
)

// Deps are the collaborators a Server relays to.
type Deps struct {
	Generator copilot.Generator
	Verifier  copilot.Verifier
	Store     store.Store
	Metrics   *metrics.Metrics
	// Gatherer backs /metrics; the route is not mounted when nil.
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

type Server struct {
	router   *chi.Mux
	cfg      config.Config
	store    store.Store
	sessions *copilot.Registry
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// NewServer builds the upstream clients and the store selected by cfg and
// returns a ready Server.
func NewServer(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	var (
		m        *metrics.Metrics
		gatherer prometheus.Gatherer
	)
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		m = metrics.New(reg)
		gatherer = reg
	}

	gen, verifier, err := upstream.FromConfig(cfg, m)
	if err != nil {
		return nil, fmt.Errorf("failed to configure upstream: %w", err)
	}
	st, err := store.Open(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.StoreBackend, err)
	}
	logger.Info("relay configured",
		zap.String("upstream", cfg.UpstreamMode),
		zap.String("store", cfg.StoreBackend),
		zap.Bool("metrics", cfg.MetricsEnabled),
	)

	return New(cfg, Deps{
		Generator: gen,
		Verifier:  verifier,
		Store:     st,
		Metrics:   m,
		Gatherer:  gatherer,
		Logger:    logger,
	}), nil
}

func New(cfg config.Config, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", SessionHeader},
		ExposedHeaders:   []string{SessionHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:   r,
		cfg:      cfg,
		store:    deps.Store,
		sessions: copilot.NewRegistry(deps.Generator, deps.Verifier, deps.Store, deps.Store, logger,
			copilot.WithCapacity(cfg.SessionCacheSize, cfg.SessionIdleTTL),
			copilot.WithTranscriptLimit(cfg.MaxTranscript),
		),
		metrics:  deps.Metrics,
		gatherer: deps.Gatherer,
		logger:   logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/api/health", s.handleHealth)
	s.router.Post("/api/chat", s.handleChat)
	s.router.Post("/api/validate", s.handleValidate)
	s.router.Get("/api/download", s.handleDownload)
	s.router.Get("/api/state", s.handleState)
	s.router.Delete("/api/history", s.handleClearHistory)
	s.router.Get("/api/theme", s.handleGetTheme)
	s.router.Put("/api/theme", s.handleSetTheme)
	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

func (s *Server) Router() http.Handler { return s.router }

// Close releases the store.
func (s *Server) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sid := s.getOrCreateSessionID(w, r)

	out, err := s.sessions.Get(r.Context(), sid).Send(r.Context(), req.Prompt)
	if errors.Is(err, copilot.ErrEmptyPrompt) {
		s.writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	if err != nil {
		s.logger.Error("chat failed", zap.String("session", sid), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "chat failed")
		return
	}
	s.metrics.ObserveRoute(out.Kind)
	writeJSON(w, http.StatusOK, actionView(sid, out))
}

// handleValidate checks the session's code panel. A body with st_code
// validates that text instead; an empty body is allowed.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req types.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sid := s.getOrCreateSessionID(w, r)

	out := s.sessions.Get(r.Context(), sid).Validate(r.Context(), req.STCode)
	writeJSON(w, http.StatusOK, actionView(sid, out))
}

func actionView(sid string, out copilot.Outcome) types.ActionView {
	return types.ActionView{
		SessionID:     sid,
		Kind:          out.Kind,
		Messages:      out.Messages,
		Panels:        out.Panels,
		Notifications: out.Notifications,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, types.ErrorResponse{Error: msg})
}
