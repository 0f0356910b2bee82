package model

import (
	"fmt"
	"strings"
	"time"
)

// HTTP error codes used in API error envelopes.
const (
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeBadRequest   = "BAD_REQUEST"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeInternal     = "INTERNAL"
)

// ChatRequest is the inbound payload for POST /agent/chat.
// UserID is resolved from the authenticated context; a body value, when
// present, must match it.
type ChatRequest struct {
	UserID  string `json:"user_id,omitempty"`
	Message string `json:"message"`
}

// Validate checks the message length constraint. The user_id constraint is
// enforced by the handler against the authenticated identity.
func (r ChatRequest) Validate() error {
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("message cannot be empty")
	}
	if len(r.Message) > MaxMessageLen {
		return fmt.Errorf("message must be under %d characters", MaxMessageLen)
	}
	return nil
}

// ChatMetadata is diagnostic context attached to an agent reply. Clients
// never depend on it.
type ChatMetadata struct {
	Intent     Intent  `json:"intent"`
	ToolCalled string  `json:"tool_called,omitempty"`
	Confidence float64 `json:"confidence"`
	DurationMS int64   `json:"duration_ms"`
}

// ChatResponse is the outbound payload for POST /agent/chat: a short
// natural-language sentence plus optional diagnostics.
type ChatResponse struct {
	Response string        `json:"response"`
	Metadata *ChatMetadata `json:"metadata,omitempty"`
}

// TokenRequest is the inbound payload for POST /auth/token.
type TokenRequest struct {
	APIKey string `json:"api_key"`
	UserID string `json:"user_id"`
}

// TokenResponse carries an issued bearer token.
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ErrorDetail carries a machine-readable code and human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseMeta is attached to every API response.
type ResponseMeta struct {
	RequestID string    `json:"request_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
