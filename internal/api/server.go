package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-thermostat/internal/audit"
	"github.com/nerrad567/gray-logic-thermostat/internal/bridges/thermostat"
	"github.com/nerrad567/gray-logic-thermostat/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-thermostat/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// ThermostatSource serves the presented thermostat state.
// It is satisfied by *thermostat.Bridge.
type ThermostatSource interface {
	Thermostats() []thermostat.Snapshot
	Thermostat(id string) (thermostat.Snapshot, error)
}

// HealthChecker is a dependency reported by the health endpoint.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WebSocket   config.WebSocketConfig
	Logger      *logging.Logger
	Thermostats ThermostatSource
	Commands    audit.Repository         // optional: command log endpoint returns 503 without it
	Checks      map[string]HealthChecker // optional: keyed by component name
	Hub         *Hub                     // optional: created from WebSocket when nil
	Version     string
}

// Server is the HTTP API server.
//
// It is created with New(), started with Start() and stopped with Close().
type Server struct {
	cfg         config.APIConfig
	logger      *logging.Logger
	thermostats ThermostatSource
	commands    audit.Repository
	checks      map[string]HealthChecker
	hub         *Hub
	version     string

	mu        sync.Mutex
	server    *http.Server
	cancelHub context.CancelFunc
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Thermostats == nil {
		return nil, fmt.Errorf("thermostat source is required")
	}

	hub := deps.Hub
	if hub == nil {
		hub = NewHub(deps.WebSocket, deps.Logger)
	}

	return &Server{
		cfg:         deps.Config,
		logger:      deps.Logger,
		thermostats: deps.Thermostats,
		commands:    deps.Commands,
		checks:      deps.Checks,
		hub:         hub,
		version:     deps.Version,
	}, nil
}

// Handler returns the router. Start serves it; tests call it directly.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine
// and runs the WebSocket hub until ctx ends or Close is called.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	hubCtx, cancelHub := context.WithCancel(ctx)
	go s.hub.Run(hubCtx)

	s.mu.Lock()
	s.server = srv
	s.cancelHub = cancelHub
	s.mu.Unlock()

	go func() {
		s.logger.Info("API server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	s.mu.Lock()
	srv := s.server
	cancelHub := s.cancelHub
	s.server = nil
	s.cancelHub = nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	// Hijacked WebSocket connections are not tracked by Shutdown.
	cancelHub()

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
