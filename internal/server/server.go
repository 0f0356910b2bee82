package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/tasuki-ai/tasuki/internal/auth"
	"github.com/tasuki-ai/tasuki/internal/ratelimit"
	"github.com/tasuki-ai/tasuki/internal/service/agent"
	"github.com/tasuki-ai/tasuki/internal/storage"
)

// Server is the Tasuki HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a
// Server. MCPServer and APIKeyHash are optional (nil/empty = disabled).
type ServerConfig struct {
	DB     *storage.DB
	JWTMgr *auth.JWTManager
	Agent  *agent.Agent
	Logger *slog.Logger

	// APIKeyHash is the Argon2id hash of the shared API key accepted by
	// POST /auth/token. Empty disables token minting.
	APIKeyHash string

	MCPServer *mcpserver.MCPServer

	// RateLimiter throttles requests per user (per IP before auth).
	// Nil disables rate limiting.
	RateLimiter ratelimit.Limiter

	// OpenAPISpec is the raw OpenAPI YAML served at /openapi.yaml.
	// Nil disables the route.
	OpenAPISpec []byte

	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	RequestTimeout      time.Duration
	Version             string
	MaxRequestBodyBytes int64
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := newHandlers(cfg)

	mux := http.NewServeMux()

	// Auth endpoint (no auth required).
	mux.HandleFunc("POST /auth/token", h.handleAuthToken)

	// The agent endpoint. One message in, one reply out.
	mux.HandleFunc("POST /agent/chat", h.handleChat)

	// MCP StreamableHTTP transport (auth required).
	if cfg.MCPServer != nil {
		mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(cfg.MCPServer))
	}

	// Health (no auth).
	mux.HandleFunc("GET /health", h.handleHealth)

	// OpenAPI spec (no auth).
	if cfg.OpenAPISpec != nil {
		mux.HandleFunc("GET /openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/yaml")
			_, _ = w.Write(cfg.OpenAPISpec)
		})
	}

	// Middleware chain (outermost executes first):
	// request ID, security headers, tracing, logging, auth, rate limit,
	// recovery, handler. Rate limiting sits after auth so it can key by
	// the authenticated user.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	if cfg.RateLimiter != nil {
		handler = ratelimit.Middleware(cfg.RateLimiter, cfg.Logger)(handler)
	}
	handler = authMiddleware(cfg.JWTMgr, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler: handler,
		logger:  cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
