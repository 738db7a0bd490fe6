// Package server adapts the engine to HTTP and WebSocket clients. The engine
// itself stays transport-agnostic; everything here is decoding, routing and
// encoding.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ALEXSANDER2002/restaurant-sub000/internal/bus"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/metrics"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/orchestrator"
	"github.com/ALEXSANDER2002/restaurant-sub000/internal/session"
)

// Engine is what the transport needs from the orchestrator.
type Engine interface {
	Process(ctx context.Context, msg orchestrator.Message) orchestrator.ProcessingResult
	ResetSession(id string) error
	EndSession(id string) bool
	Session(id string) (session.Context, bool)
	Stats() orchestrator.Stats
	Config() orchestrator.Config
	UpdateConfig(p orchestrator.ConfigPatch) (orchestrator.Config, error)
}

// Server routes requests to the engine.
type Server struct {
	engine   Engine
	bus      *bus.Bus
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	origins  []string
	upgrader websocket.Upgrader
	log      zerolog.Logger
	router   chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithBus enables the /ws/events live event stream.
func WithBus(b *bus.Bus) Option {
	return func(s *Server) {
		s.bus = b
	}
}

// WithMetrics records request metrics and serves /metrics from g.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// WithAllowedOrigins sets the CORS and WebSocket origins. "*" allows any.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

// New creates a server.
func New(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		log:    log.With().Str("component", "server").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors(s.origins))

	r.Get("/health", s.handleHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/messages", s.handleMessage)
		r.Get("/sessions/{id}", s.handleGetSession)
		r.Post("/sessions/{id}/reset", s.handleResetSession)
		r.Delete("/sessions/{id}", s.handleEndSession)
		r.Get("/stats", s.handleStats)
		r.Get("/config", s.handleGetConfig)
		r.Patch("/config", s.handlePatchConfig)
	})

	r.Get("/ws", s.handleChatSocket)
	if s.bus != nil {
		r.Get("/ws/events", s.handleEventSocket)
	}
	return r
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// RunConfig holds the listener settings.
type RunConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, cfg RunConfig) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", cfg.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	s.log.Info().Msg("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range s.origins {
		if o == "*" || o == origin {
			return true
		}
	}
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}
