package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-thermal/internal/auth"
	"github.com/nerrad567/gray-logic-thermal/internal/control"
	"github.com/nerrad567/gray-logic-thermal/internal/history"
	"github.com/nerrad567/gray-logic-thermal/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-thermal/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-thermal/internal/thermal"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker is implemented by the optional backends reported on /health.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ConnectionState is implemented by clients that report a connected flag.
type ConnectionState interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Logger   *logging.Logger
	Monitors *thermal.Registry
	Controls []*control.Surface

	// Optional.
	History *history.Store
	Auth    *auth.Authenticator
	DB      *sql.DB
	MQTT    ConnectionState
	Checks  map[string]HealthChecker
	Hub     *Hub
	Version string
}

// Server is the HTTP API server.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	logger    *logging.Logger
	monitors  *thermal.Registry
	controls  map[string]*control.Surface
	history   *history.Store
	auth      *auth.Authenticator
	db        *sql.DB
	mqtt      ConnectionState
	checks    map[string]HealthChecker
	hub       *Hub
	ownHub    bool
	version   string
	startTime time.Time

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	cancel   context.CancelFunc
}

// New creates a new API server. It is not listening until Start.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If the logger or monitor registry is missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Monitors == nil {
		return nil, fmt.Errorf("monitor registry is required")
	}

	controls := make(map[string]*control.Surface, len(deps.Controls))
	for _, c := range deps.Controls {
		controls[c.Name()] = c
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		logger:    deps.Logger,
		monitors:  deps.Monitors,
		controls:  controls,
		history:   deps.History,
		auth:      deps.Auth,
		db:        deps.DB,
		mqtt:      deps.MQTT,
		checks:    deps.Checks,
		hub:       deps.Hub,
		version:   deps.Version,
		startTime: time.Now(),
	}
	if s.hub == nil {
		s.hub = NewHub(deps.WS, deps.Logger)
		s.ownHub = true
	}
	return s, nil
}

// Hub returns the WebSocket hub, for registering it as an observer.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start binds the listener and serves in the background.
//
// Returns:
//   - error: If the address cannot be bound (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding API listener on %s: %w", addr, err)
	}

	srvCtx, cancel := context.WithCancel(ctx)
	if s.ownHub {
		go s.hub.Run(srvCtx)
	}

	srv := &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	s.listener = ln
	s.cancel = cancel
	s.mu.Unlock()

	s.logger.Info("API server listening", "address", ln.Addr().String())
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the server, waiting up to 10 seconds for
// in-flight requests.
func (s *Server) Close() error {
	s.mu.Lock()
	srv, cancel := s.server, s.cancel
	s.server = nil
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	cancel()

	ctx, done := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer done()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server is serving.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
