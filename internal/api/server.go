// Package api provides the HTTP REST API and WebSocket event stream for
// the fertigation controller.
//
// It exposes session login, schedule management, manual output control,
// input readings and user administration to the local web UI. All
// protected routes authenticate with the session cookie; authorisation
// is permission-based via the auth package.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/fertigate-core/internal/audit"
	"github.com/nerrad567/fertigate-core/internal/auth"
	"github.com/nerrad567/fertigate-core/internal/history"
	"github.com/nerrad567/fertigate-core/internal/infrastructure/config"
	"github.com/nerrad567/fertigate-core/internal/infrastructure/logging"
	"github.com/nerrad567/fertigate-core/internal/input"
	"github.com/nerrad567/fertigate-core/internal/lock"
	"github.com/nerrad567/fertigate-core/internal/output"
	"github.com/nerrad567/fertigate-core/internal/schedule"
	"github.com/nerrad567/fertigate-core/internal/session"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config     config.ServerConfig
	Session    config.SessionConfig
	Logger     *logging.Logger
	Sessions   *session.Registry
	Locks      *lock.Registry
	Schedules  *schedule.Store
	Users      *auth.Store
	Dispatcher *output.Dispatcher
	Sampler    *input.Sampler
	Audit      *audit.Recorder // optional; nil disables audit recording
	History    *history.Store  // optional; nil disables the history endpoint
	Version    string
}

// Server is the HTTP API server for the fertigation controller.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.ServerConfig
	sessionCfg config.SessionConfig
	logger     *logging.Logger
	sessions   *session.Registry
	locks      *lock.Registry
	schedules  *schedule.Store
	users      *auth.Store
	dispatcher *output.Dispatcher
	sampler    *input.Sampler
	audit      *audit.Recorder
	history    *history.Store
	version    string
	server     *http.Server
	hub        *Hub
	cancel     context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Parameters:
//   - deps: Required dependencies (config, logger, registries, stores)
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Sessions == nil {
		return nil, fmt.Errorf("session registry is required")
	}
	if deps.Locks == nil {
		return nil, fmt.Errorf("lock registry is required")
	}
	if deps.Schedules == nil {
		return nil, fmt.Errorf("schedule store is required")
	}
	if deps.Users == nil {
		return nil, fmt.Errorf("user store is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("output dispatcher is required")
	}
	if deps.Sampler == nil {
		return nil, fmt.Errorf("input sampler is required")
	}

	s := &Server{
		cfg:        deps.Config,
		sessionCfg: deps.Session,
		logger:     deps.Logger,
		sessions:   deps.Sessions,
		locks:      deps.Locks,
		schedules:  deps.Schedules,
		users:      deps.Users,
		dispatcher: deps.Dispatcher,
		sampler:    deps.Sampler,
		audit:      deps.Audit,
		history:    deps.History,
		version:    deps.Version,
	}

	// The hub exists from construction so listeners can be wired before
	// Start() is called.
	s.hub = NewHub(deps.Logger)

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub and launches the HTTP listener in a
// background goroutine. The server can be stopped with Close().
//
// Parameters:
//   - ctx: Context for cancellation (not used for listener lifetime)
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	go s.hub.Run(srvCtx)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
//
// Returns:
//   - error: If shutdown encounters an error
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	// Cancel background goroutines (hub)
	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// OutputListener returns a dispatcher listener that broadcasts applied
// output transitions to WebSocket clients subscribed to "output.state".
// The listener runs on the dispatch worker and must not block; Hub
// broadcasts drop rather than wait on slow clients.
func (s *Server) OutputListener() output.Listener {
	return func(ev output.Event) {
		s.hub.Broadcast(channelOutputState, ev)
	}
}

// SampleListener returns a sampler listener that broadcasts each polled
// input batch to WebSocket clients subscribed to "input.samples".
func (s *Server) SampleListener() input.Listener {
	return func(snap input.Snapshot) {
		s.hub.Broadcast(channelInputSamples, snap)
	}
}
