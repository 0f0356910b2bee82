// Package tasuki is the public API for embedding the Tasuki task agent server.
//
// Consumers import this package to construct and run the server without
// forking it:
//
//	app, err := tasuki.New(
//	    tasuki.WithVersion(version),
//	    tasuki.WithLogger(logger),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The import graph enforces a strict no-cycle rule: tasuki (root) imports
// internal/*, but internal/* never imports tasuki (root). Adapters between
// public interfaces and internal ones live here because this is the only
// file that sees both sides of the boundary.
package tasuki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"github.com/tasuki-ai/tasuki/api"
	"github.com/tasuki-ai/tasuki/internal/auth"
	"github.com/tasuki-ai/tasuki/internal/config"
	"github.com/tasuki-ai/tasuki/internal/mcp"
	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/ratelimit"
	"github.com/tasuki-ai/tasuki/internal/server"
	"github.com/tasuki-ai/tasuki/internal/service/agent"
	"github.com/tasuki-ai/tasuki/internal/service/fallback"
	"github.com/tasuki-ai/tasuki/internal/service/intent"
	"github.com/tasuki-ai/tasuki/internal/storage"
	"github.com/tasuki-ai/tasuki/internal/telemetry"
	"github.com/tasuki-ai/tasuki/internal/tools"
	"github.com/tasuki-ai/tasuki/migrations"
)

// FallbackClassifier resolves the intent of messages the pattern matcher
// cannot place. Operation must be one of "CREATE", "LIST", "COMPLETE",
// "UPDATE", "DELETE", or "UNKNOWN"; confidence is in [0, 1]. Results naming
// any other operation are treated as UNKNOWN downstream.
type FallbackClassifier interface {
	Classify(ctx context.Context, message string) (operation string, confidence float64, err error)
}

// App is the Tasuki server lifecycle. Construct with New(), run with Run().
// App has no public fields — use New() options to configure it.
type App struct {
	cfg          config.Config
	db           *storage.DB
	srv          *server.Server
	limiter      ratelimit.Limiter
	otelShutdown func(context.Context) error
	logger       *slog.Logger
	version      string
}

// New initialises the Tasuki server. It connects to the database, runs
// migrations, wires all subsystems, and returns a ready-to-run App.
// It does NOT start any goroutines or accept HTTP connections — call Run().
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	// Load configuration (env vars), then apply option overrides.
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.databaseURL != "" {
		cfg.DatabaseURL = o.databaseURL
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("tasuki starting", "version", version, "port", cfg.Port)

	// Initialize OpenTelemetry.
	otelShutdown, err := telemetry.Init(context.Background(), cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	// Connect to database.
	db, err := storage.New(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("storage: %w", err)
	}

	// Apply built-in migrations, then any registered extras.
	if err := db.RunMigrations(context.Background(), migrations.FS); err != nil {
		db.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("migrations: %w", err)
	}
	for i, extraFS := range o.extraMigrations {
		if err := db.RunMigrations(context.Background(), extraFS); err != nil {
			db.Close()
			_ = otelShutdown(context.Background())
			return nil, fmt.Errorf("extra migrations[%d]: %w", i, err)
		}
	}

	// Create JWT manager.
	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration)
	if err != nil {
		db.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("auth: %w", err)
	}

	// Hash the operator API key for the token-mint endpoint.
	var apiKeyHash string
	if cfg.APIKey != "" {
		apiKeyHash, err = auth.HashAPIKey(cfg.APIKey)
		if err != nil {
			db.Close()
			_ = otelShutdown(context.Background())
			return nil, fmt.Errorf("auth: hash api key: %w", err)
		}
	} else {
		logger.Info("token minting: disabled (no TASUKI_API_KEY)")
	}

	// Fallback classifier — external override takes priority over config.
	var provider fallback.Provider
	if o.fallback != nil {
		provider = &fallbackAdapter{fc: o.fallback}
	} else {
		provider = newFallbackProvider(cfg, logger)
	}
	classifier := intent.NewClassifier(provider, cfg.FallbackTimeout, logger)

	// Tool layer and agent.
	toolSet := tools.New(db, logger)
	agentSvc := agent.New(classifier, toolSet, logger)

	// MCP server.
	mcpSrv := mcp.New(toolSet, logger)

	// Rate limiter.
	var limiter ratelimit.Limiter
	if cfg.RateLimitEnabled {
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
		logger.Info("rate limiting: memory (in-process token bucket)",
			"rps", cfg.RateLimitRPS, "burst", cfg.RateLimitBurst)
	} else {
		limiter = ratelimit.NoopLimiter{}
		logger.Info("rate limiting: disabled")
	}

	// HTTP server (MCP mounted at /mcp).
	srv := server.New(server.ServerConfig{
		DB:                  db,
		JWTMgr:              jwtMgr,
		Agent:               agentSvc,
		Logger:              logger,
		APIKeyHash:          apiKeyHash,
		MCPServer:           mcpSrv.MCPServer(),
		RateLimiter:         limiter,
		OpenAPISpec:         api.OpenAPISpec,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		RequestTimeout:      cfg.RequestTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	return &App{
		cfg:          cfg,
		db:           db,
		srv:          srv,
		limiter:      limiter,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// Run starts the HTTP server and blocks until ctx is cancelled or a fatal
// server error occurs. On return, Shutdown is called automatically —
// callers should not call Shutdown separately.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	return a.Shutdown(context.Background())
}

// Shutdown stops accepting HTTP requests, drains in-flight chat calls, then
// closes the database pool and OTEL provider.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("tasuki shutting down")

	httpCtx, httpCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := a.srv.Shutdown(httpCtx); err != nil {
		a.logger.Error("http shutdown error", "error", err)
	}
	httpCancel()

	_ = a.limiter.Close()
	_ = a.otelShutdown(context.Background())
	a.db.Close()

	a.logger.Info("tasuki stopped")
	return nil
}

// newFallbackProvider creates the generative fallback classifier based on
// configuration. Provider selection: "openai", "noop", or "auto" (default).
// Auto mode uses OpenAI if a key is present, else noop. With noop, messages
// the pattern matcher can't place are answered with a clarification instead
// of a guess.
func newFallbackProvider(cfg config.Config, logger *slog.Logger) fallback.Provider {
	switch cfg.FallbackProvider {
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			logger.Error("OPENAI_API_KEY required when TASUKI_FALLBACK_PROVIDER=openai")
			return fallback.NewNoopProvider()
		}
		logger.Info("fallback classifier: openai", "model", cfg.FallbackModel)
		return fallback.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.FallbackModel)

	case "noop":
		logger.Info("fallback classifier: noop (pattern matching only)")
		return fallback.NewNoopProvider()

	case "auto":
		fallthrough
	default:
		if cfg.OpenAIAPIKey != "" {
			logger.Info("fallback classifier: openai (auto-detected)", "model", cfg.FallbackModel)
			return fallback.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.FallbackModel)
		}
		logger.Warn("no fallback classifier available, using noop (pattern matching only)")
		return fallback.NewNoopProvider()
	}
}

// fallbackAdapter bridges the public FallbackClassifier to the internal
// fallback.Provider interface.
type fallbackAdapter struct {
	fc FallbackClassifier
}

func (a *fallbackAdapter) Classify(ctx context.Context, message string) (fallback.Result, error) {
	op, conf, err := a.fc.Classify(ctx, message)
	if err != nil {
		return fallback.Result{}, err
	}
	return fallback.Result{Operation: model.Intent(op), Confidence: conf}, nil
}
