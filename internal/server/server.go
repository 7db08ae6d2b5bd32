// Package server provides the HTTP API and the websocket price feed.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/helixtrade/helix/internal/analysis"
	"github.com/helixtrade/helix/internal/backtest"
	"github.com/helixtrade/helix/internal/clients"
	"github.com/helixtrade/helix/internal/modules/alerts"
	"github.com/helixtrade/helix/internal/modules/backtests"
	"github.com/helixtrade/helix/internal/modules/papertrading"
	"github.com/helixtrade/helix/internal/modules/portfolio"
	"github.com/helixtrade/helix/internal/modules/settings"
	"github.com/helixtrade/helix/internal/modules/signals"
	"github.com/helixtrade/helix/internal/risk"
	"github.com/helixtrade/helix/internal/scheduler"
)

// Config holds server configuration.
type Config struct {
	Port    int
	DevMode bool
	Log     zerolog.Logger

	Signals     *signals.Repository
	Settings    *settings.Repository
	Portfolio   *portfolio.Repository
	Paper       *papertrading.Engine
	PaperRepo   *papertrading.Repository
	Backtests   *backtests.Repository
	Alerts      *alerts.Repository
	Risk        *risk.Manager
	Prices      *clients.PriceProvider
	Pipeline    *scheduler.Pipeline
	Backtest    *backtest.Engine
	WalkForward *backtest.WalkForward
	ML          *analysis.MLService
}

// Server represents the HTTP server.
type Server struct {
	router *chi.Mux
	server *http.Server
	log    zerolog.Logger
	cfg    Config
}

// New creates a new HTTP server.
func New(cfg Config) *Server {
	s := &Server{
		router: chi.NewRouter(),
		log:    cfg.Log.With().Str("component", "server").Logger(),
		cfg:    cfg,
	}

	s.setupMiddleware(cfg.DevMode)
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// setupMiddleware configures middleware.
func (s *Server) setupMiddleware(devMode bool) {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

// setupRoutes configures all routes.
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/ws/prices", s.handlePriceFeed)

	s.router.Route("/api", func(r chi.Router) {
		r.Route("/signals", func(r chi.Router) {
			r.Get("/", s.handleLatestSignals)
			r.Get("/accuracy", s.handleAccuracy)
			r.Get("/{symbol}/history", s.handleSignalHistory)
		})

		r.Route("/scan", func(r chi.Router) {
			r.Post("/", s.handleScanTrigger)
			r.Get("/status", s.handleScanStatus)
			r.Post("/stop", s.handleScanStop)
		})

		r.Route("/portfolio", func(r chi.Router) {
			r.Get("/holdings", s.handleHoldings)
			r.Post("/holdings", s.handleUpsertHolding)
			r.Delete("/holdings/{symbol}", s.handleRemoveHolding)
			r.Get("/transactions", s.handleTransactions)
		})

		r.Route("/paper", func(r chi.Router) {
			r.Get("/summary", s.handlePaperSummary)
			r.Get("/trades", s.handlePaperTrades)
			r.Post("/reset", s.handlePaperReset)
		})

		r.Route("/backtests", func(r chi.Router) {
			r.Get("/", s.handleRecentBacktests)
			r.Post("/run", s.handleRunBacktest)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", s.handleAlerts)
			r.Post("/{id}/acknowledge", s.handleAcknowledgeAlert)
		})

		r.Get("/risk/plan/{symbol}", s.handleRiskPlan)

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.handleGetSettings)
			r.Put("/{key}", s.handlePutSetting)
		})
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("HTTP request")
	})
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError writes an error response.
func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{
		"error": message,
	})
}
