// SPDX-FileCopyrightText: Copyright 2025 StudioMCP, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package server implements the Studio MCP Gateway server: an MCP
// streamable-HTTP endpoint that exposes the workflow platform's tool
// catalog to authenticated agents.
//
// Sessions are entirely managed by the gateway's session.Manager (storage,
// TTL, identity binding); the mark3labs SDK only calls the sessionIDAdapter
// during protocol flows. Tool sets are injected per session with handlers
// closed over the caller's AuthContext.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/studiomcp/gateway/pkg/auth"
	"github.com/studiomcp/gateway/pkg/gateway/session"
	"github.com/studiomcp/gateway/pkg/gateway/tools"
	"github.com/studiomcp/gateway/pkg/telemetry"
)

const (
	// defaultReadHeaderTimeout prevents slowloris attacks by limiting time
	// to read request headers.
	defaultReadHeaderTimeout = 10 * time.Second

	// defaultIdleTimeout is the maximum time to wait for the next request
	// on a kept-alive connection.
	defaultIdleTimeout = 120 * time.Second

	// defaultMaxHeaderBytes is the maximum size of request headers (1 MB).
	defaultMaxHeaderBytes = 1 << 20

	// defaultShutdownTimeout bounds graceful shutdown.
	defaultShutdownTimeout = 10 * time.Second
)

// Config holds the gateway server configuration.
type Config struct {
	// Name is the server name exposed in the MCP protocol.
	Name string

	// Version is the server version.
	Version string

	// Host is the bind address (default "127.0.0.1").
	Host string

	// Port is the bind port. Port 0 binds a random port (used by tests).
	Port int

	// EndpointPath is the MCP endpoint path (default "/studio-mcp").
	EndpointPath string

	// SessionTTL is how long inactive sessions survive (default 30m).
	SessionTTL time.Duration

	// AuthMiddleware authenticates requests and injects the AuthContext.
	// Required for any deployment that is not a test.
	AuthMiddleware func(http.Handler) http.Handler

	// SessionStorage is the session backend. Nil means in-memory.
	SessionStorage session.Storage

	// Metrics is the optional Prometheus surface. Nil disables /metrics.
	Metrics *telemetry.Metrics
}

// Server is the Studio MCP Gateway server.
type Server struct {
	config *Config

	mcpServer  *mcpserver.MCPServer
	httpServer *http.Server

	listener   net.Listener
	listenerMu sync.RWMutex

	sessionManager *session.Manager
	toolDeps       *tools.Deps
	log            *slog.Logger

	ready     chan struct{}
	readyOnce sync.Once
}

// New creates a gateway server. The tool dependencies record is shared by
// every session's tool set.
func New(cfg *Config, deps *tools.Deps, log *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps == nil || deps.Services == nil {
		return nil, fmt.Errorf("tool dependencies are required")
	}
	if log == nil {
		log = slog.Default()
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/studio-mcp"
	}
	if cfg.Name == "" {
		cfg.Name = "studio-mcp-gateway"
	}
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = session.DefaultTTL
	}
	if cfg.SessionStorage == nil {
		cfg.SessionStorage = session.NewLocalStorage()
	}
	if deps.Metrics == nil {
		deps.Metrics = cfg.Metrics
	}

	hooks := &mcpserver.Hooks{}
	mcpServer := mcpserver.NewMCPServer(
		cfg.Name,
		cfg.Version,
		mcpserver.WithToolCapabilities(false), // tools are injected per session
		mcpserver.WithLogging(),
		mcpserver.WithHooks(hooks),
	)

	srv := &Server{
		config:         cfg,
		mcpServer:      mcpServer,
		sessionManager: session.NewManager(cfg.SessionStorage, cfg.SessionTTL, log),
		toolDeps:       deps,
		log:            log,
		ready:          make(chan struct{}),
	}

	if cfg.Metrics != nil {
		if local, ok := cfg.SessionStorage.(*session.LocalStorage); ok {
			cfg.Metrics.ObserveActiveSessions(func() float64 {
				return float64(local.Count())
			})
		}
		if deps.Tasks != nil {
			store := deps.Tasks.Store()
			cfg.Metrics.ObserveActiveTasks(func() float64 {
				return float64(store.Len())
			})
		}
	}

	// The hook fires after the SDK registers the session, with the request
	// context available; that is where the caller identity gets bound and
	// the per-session tool set injected.
	hooks.AddOnRegisterSession(func(ctx context.Context, clientSession mcpserver.ClientSession) {
		srv.handleSessionRegistration(ctx, clientSession)
	})

	return srv, nil
}

// handleSessionRegistration binds the caller identity to the freshly
// generated placeholder session and injects the tool catalog, with every
// handler closed over the session's AuthContext. The tool set is immutable
// for the session's lifetime.
func (s *Server) handleSessionRegistration(ctx context.Context, clientSession mcpserver.ClientSession) {
	sessionID := clientSession.SessionID()

	ac, ok := auth.FromContext(ctx)
	if !ok {
		// The auth middleware fronts the endpoint, so a missing identity
		// means a misconfigured deployment. Do not leave an unbound session
		// behind.
		s.log.Error("no auth context during session registration; destroying session",
			"session_id", sessionID)
		_ = s.sessionManager.Destroy(ctx, sessionID)
		return
	}

	if err := s.sessionManager.Bind(ctx, sessionID, ac.PrincipalID, ac.TenantID); err != nil {
		s.log.Error("failed to bind session identity",
			"session_id", sessionID, "error", err)
		_ = s.sessionManager.Destroy(ctx, sessionID)
		return
	}

	sdkTools, err := tools.ForSession(ac, s.toolDeps, s.log)
	if err != nil {
		s.log.Error("failed to build session tool set",
			"session_id", sessionID, "error", err)
		_ = s.sessionManager.Destroy(ctx, sessionID)
		return
	}
	if err := s.mcpServer.AddSessionTools(sessionID, sdkTools...); err != nil {
		s.log.Error("failed to add session tools",
			"session_id", sessionID, "error", err)
		_ = s.sessionManager.Destroy(ctx, sessionID)
		return
	}

	s.log.Info("session established",
		"session_id", sessionID,
		"principal", ac.PrincipalID,
		"tenant", ac.TenantID,
		"tool_count", len(sdkTools))
}

// Start starts the gateway and blocks until ctx is cancelled or the HTTP
// server fails.
func (s *Server) Start(ctx context.Context) error {
	sessionAdapter := newSessionIDAdapter(s.sessionManager, s.log)

	streamableServer := mcpserver.NewStreamableHTTPServer(
		s.mcpServer,
		mcpserver.WithEndpointPath(s.config.EndpointPath),
		mcpserver.WithSessionIdManager(sessionAdapter),
	)

	// Middleware chain on the MCP endpoint, outermost first at runtime:
	// auth → session guard → SDK handler.
	guard := newSessionGuard(s.sessionManager, s.log)
	var mcpHandler http.Handler = guard.Middleware(streamableServer)
	if s.config.AuthMiddleware != nil {
		mcpHandler = s.config.AuthMiddleware(mcpHandler)
	} else {
		s.log.Warn("no authentication middleware configured; MCP endpoint is open")
	}

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	router.Get("/health", handleHealth)
	if s.config.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", s.config.Metrics.Handler())
	}
	router.Handle(s.config.EndpointPath, mcpHandler)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
		MaxHeaderBytes:    defaultMaxHeaderBytes,
		// No write timeout: GET push streams are long-lived by design.
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}
	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()

	s.log.Info("starting Studio MCP Gateway",
		"address", listener.Addr().String(),
		"endpoint", s.config.EndpointPath)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	s.readyOnce.Do(func() { close(s.ready) })

	select {
	case <-ctx.Done():
		s.log.Info("context cancelled, shutting down")
		return s.Stop(context.Background())
	case err := <-errCh:
		s.log.Error("HTTP server failed", "error", err)
		if stopErr := s.Stop(context.Background()); stopErr != nil {
			return fmt.Errorf("server error: %w; stop error: %v", err, stopErr)
		}
		return err
	}
}

// Stop gracefully stops the gateway.
func (s *Server) Stop(ctx context.Context) error {
	var errs []error

	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, defaultShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("failed to shutdown HTTP server: %w", err))
		}
	}

	s.listenerMu.Lock()
	s.listener = nil
	s.listenerMu.Unlock()

	if err := s.sessionManager.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop session manager: %w", err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	s.log.Info("Studio MCP Gateway stopped")
	return nil
}

// Address returns the actual listen address, resolving port 0 to the bound
// port once the server is started.
func (s *Server) Address() string {
	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// Ready returns a channel closed when the server is accepting connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// SessionManager exposes the session manager for tests and monitoring.
func (s *Server) SessionManager() *session.Manager {
	return s.sessionManager
}

func authFromRequest(r *http.Request) (*auth.AuthContext, bool) {
	return auth.FromContext(r.Context())
}

// handleHealth serves the liveness endpoint. Intentionally minimal: no
// session counts or version information leaks to unauthenticated callers.
func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
