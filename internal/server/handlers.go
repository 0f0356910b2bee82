package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tasuki-ai/tasuki/internal/auth"
	"github.com/tasuki-ai/tasuki/internal/ctxutil"
	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/service/agent"
	"github.com/tasuki-ai/tasuki/internal/storage"
)

// handlers holds HTTP handler dependencies.
type handlers struct {
	db                  *storage.DB
	jwtMgr              *auth.JWTManager
	agent               *agent.Agent
	apiKeyHash          string
	logger              *slog.Logger
	startedAt           time.Time
	version             string
	requestTimeout      time.Duration
	maxRequestBodyBytes int64
}

func newHandlers(cfg ServerConfig) *handlers {
	return &handlers{
		db:                  cfg.DB,
		jwtMgr:              cfg.JWTMgr,
		agent:               cfg.Agent,
		apiKeyHash:          cfg.APIKeyHash,
		logger:              cfg.Logger,
		startedAt:           time.Now(),
		version:             cfg.Version,
		requestTimeout:      cfg.RequestTimeout,
		maxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	}
}

// handleAuthToken handles POST /auth/token: exchange the shared API key for
// a user-scoped bearer token.
func (h *handlers) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	var req model.TokenRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	if req.UserID == "" {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeBadRequest, "user_id is required")
		return
	}

	if h.apiKeyHash == "" {
		// Still burn a hash so the disabled path is not distinguishable by
		// timing.
		auth.DummyVerify()
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credentials")
		return
	}

	valid, err := auth.VerifyAPIKey(req.APIKey, h.apiKeyHash)
	if err != nil || !valid {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "invalid credentials")
		return
	}

	token, expiresAt, err := h.jwtMgr.IssueToken(req.UserID)
	if err != nil {
		h.logger.Error("issue token failed", "error", err)
		writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternal, "could not issue token")
		return
	}

	writeJSON(w, http.StatusOK, model.TokenResponse{Token: token, ExpiresAt: expiresAt})
}

// handleChat handles POST /agent/chat: one natural-language message in, one
// reply out. The acting user comes from the bearer token; a user_id in the
// body must agree with it.
func (h *handlers) handleChat(w http.ResponseWriter, r *http.Request) {
	claims := ctxutil.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, r, http.StatusUnauthorized, model.ErrCodeUnauthorized, "no claims in context")
		return
	}

	var req model.ChatRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		handleDecodeError(w, r, err)
		return
	}

	if req.UserID != "" && req.UserID != claims.UserID {
		writeError(w, r, http.StatusForbidden, model.ErrCodeForbidden, "user_id does not match the authenticated user")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	resp := h.agent.Process(ctx, claims.UserID, req.Message)
	writeJSON(w, http.StatusOK, resp)
}

// handleHealth handles GET /health.
func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK
	if err := h.db.Ping(r.Context()); err != nil {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":         status,
		"version":        h.version,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

// handleDecodeError maps JSON decode failures to 400s with a useful message.
func handleDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		writeError(w, r, http.StatusRequestEntityTooLarge, model.ErrCodeBadRequest, "request body too large")
		return
	}
	writeError(w, r, http.StatusBadRequest, model.ErrCodeBadRequest, "invalid request body: "+err.Error())
}
