package httpserver

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kino-bot/internal/metrics"
	"kino-bot/internal/tg"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers groups optional HTTP handlers to mount.
type Handlers struct {
	TelegramWebhook http.Handler
	WebhookSecret   string
}

// Server wraps an http.Server with predefined routes.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	metrics    *metrics.Metrics
	store      Pinger
	handlers   Handlers
}

// New creates an HTTP server listening on addr with health, metrics and
// optional webhook endpoints.
func New(addr string, logger *slog.Logger, metricRegistry *metrics.Metrics, store Pinger, handlers Handlers) *Server {
	server := &Server{
		logger:   logger.With("component", "http"),
		metrics:  metricRegistry,
		store:    store,
		handlers: handlers,
	}

	server.httpServer = &http.Server{
		Addr:              addr,
		Handler:           server.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return server
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	if s.handlers.TelegramWebhook != nil {
		r.Post(tg.WebhookPathPrefix+"*", s.handleTelegramWebhook)
		s.logger.Info("telegram webhook route mounted", "path", tg.WebhookPathPrefix)
	}
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for incoming HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.store.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			writeJSON(w, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleTelegramWebhook(w http.ResponseWriter, r *http.Request) {
	secret := chi.URLParam(r, "*")
	if s.handlers.WebhookSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(s.handlers.WebhookSecret)) != 1 {
		s.metrics.IncError("http_webhook_auth")
		s.logger.Warn("webhook request with wrong secret", "remote", r.RemoteAddr)
		http.NotFound(w, r)
		return
	}
	s.handlers.TelegramWebhook.ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode json", http.StatusInternalServerError)
	}
}
