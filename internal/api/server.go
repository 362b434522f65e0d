// Package api provides the admin HTTP server: health checks and the swap
// delivery audit trail.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/swap-notifier/internal/logging"
	"github.com/swap-notifier/internal/models"
)

// SwapReader is the read-only swap access the audit endpoints need.
type SwapReader interface {
	List(ctx context.Context, tokenAddress, chain string, processed *bool, limit int) ([]*models.SwapRecord, error)
	GetByHash(ctx context.Context, hash string) (*models.SwapRecord, error)
}

// ChainReader lists the supported chains.
type ChainReader interface {
	List(ctx context.Context) ([]*models.ChainInfo, error)
}

// Pinger reports backing-store liveness for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServerConfig holds admin server configuration.
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Server is the admin HTTP server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	swaps      SwapReader
	chains     ChainReader
	db         Pinger
	logger     *logging.Logger
	config     *ServerConfig
}

// NewServer creates the admin server instance.
func NewServer(config *ServerConfig, swaps SwapReader, chains ChainReader, db Pinger, logger *logging.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		swaps:  swaps,
		chains: chains,
		db:     db,
		logger: logger.WithField("component", "api"),
		config: config,
	}

	s.setupRouter()

	return s
}

func (s *Server) setupRouter() {
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.recoveryMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/swaps", s.handleListSwaps).Methods("GET")
	api.HandleFunc("/swaps/{hash}", s.handleGetSwap).Methods("GET")
	api.HandleFunc("/chains", s.handleListChains).Methods("GET")

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("Admin API listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts the server down.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down admin API")
	return s.httpServer.Shutdown(ctx)
}
