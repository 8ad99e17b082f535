// Package api provides the HTTP REST API and WebSocket server for MiniLab Core.
//
// It exposes the channel registry (live snapshots, configuration and
// hardware catalogues), remote-update history, peer discovery, and system
// management endpoints to bench dashboards and tooling.
//
// The server follows the same lifecycle pattern as other components:
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

	"github.com/minilabo/minilab-core/internal/history"
	"github.com/minilabo/minilab-core/internal/infrastructure/config"
	"github.com/minilabo/minilab-core/internal/infrastructure/logging"
	"github.com/minilabo/minilab-core/internal/io"
	"github.com/minilabo/minilab-core/internal/udpsync"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// snapshotBroadcastInterval is how often the live channel snapshot is
// pushed to subscribed WebSocket clients.
const snapshotBroadcastInterval = time.Second

// Discoverer runs active peer discovery scans. *udpsync.Service satisfies it.
type Discoverer interface {
	DiscoverPeers(ctx context.Context, timeout time.Duration) udpsync.Report
}

// HistoryStore serves per-channel remote-update history.
// *history.SQLiteRepository satisfies it.
type HistoryStore interface {
	List(ctx context.Context, channelID string, limit int) ([]history.Entry, error)
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Logger   *logging.Logger
	Registry *io.Registry
	Sync     Discoverer   // optional: discovery returns udp_disabled without it
	History  HistoryStore // optional: history endpoints return 404 without it
	Version  string
}

// Server is the HTTP API server for MiniLab Core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	logger   *logging.Logger
	registry *io.Registry
	sync     Discoverer
	history  HistoryStore
	version  string
	server   *http.Server
	hub      *Hub
	cancel   context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Registry == nil {
		return nil, fmt.Errorf("channel registry is required")
	}
	// Sync and History are optional; the endpoints degrade gracefully.

	return &Server{
		cfg:      deps.Config,
		logger:   deps.Logger,
		registry: deps.Registry,
		sync:     deps.Sync,
		history:  deps.History,
		version:  deps.Version,
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub and the snapshot
// broadcast loop, and launches the HTTP listener in a background
// goroutine. The server is stopped with Close().
//
// Returns:
//   - error: If the server fails to start (port in use, etc.)
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.logger)
	go s.hub.Run(srvCtx)
	go s.broadcastSnapshots(srvCtx)

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
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server listening", "address", s.server.Addr)
	return nil
}

// broadcastSnapshots periodically pushes the live channel snapshot to
// WebSocket clients subscribed to the io.snapshot channel.
func (s *Server) broadcastSnapshots(ctx context.Context) {
	ticker := time.NewTicker(snapshotBroadcastInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.hub.ClientCount() == 0 {
				continue
			}
			s.hub.Broadcast(WSChannelSnapshot, s.registry.Snapshot())
		}
	}
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

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

// HealthCheck verifies the API server is running.
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
