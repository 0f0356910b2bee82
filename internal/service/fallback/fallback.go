// Package fallback provides generative intent classification for messages
// the deterministic pattern pass cannot resolve.
//
// Defines a Provider interface and an OpenAI-compatible chat implementation.
// The interface allows swapping model providers without changing consumers.
package fallback

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tasuki-ai/tasuki/internal/model"
)

// NoopConfidence is reported when no generative provider is configured and
// the message could not be classified deterministically.
const NoopConfidence = 0.45

// Result is a single classification verdict from a provider.
type Result struct {
	Operation  model.Intent
	Confidence float64
}

// Provider classifies a message into one task operation.
type Provider interface {
	Classify(ctx context.Context, message string) (Result, error)
}

// systemPrompt constrains the model to a single JSON object so the response
// can be parsed without free-text recovery.
const systemPrompt = `You classify a user's message into exactly one task-management operation.

Valid operations: CREATE, LIST, COMPLETE, UPDATE, DELETE, UNKNOWN.
Use UNKNOWN when the message is not about managing tasks.

Respond with only a JSON object, no prose:
{"operation": "<OPERATION>", "confidence": <0.0-1.0>}`

// OpenAIProvider classifies messages using an OpenAI-compatible chat
// completions endpoint.
type OpenAIProvider struct {
	apiKey     string
	baseURL    string
	chatModel  string
	httpClient *http.Client
}

// NewOpenAIProvider creates a provider against an OpenAI-compatible API.
// baseURL is the API root without the /v1 path segment.
func NewOpenAIProvider(apiKey, baseURL, chatModel string) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		chatModel:  chatModel,
		httpClient: &http.Client{},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

type verdict struct {
	Operation  string  `json:"operation"`
	Confidence float64 `json:"confidence"`
}

// Classify asks the model for an operation verdict.
func (p *OpenAIProvider) Classify(ctx context.Context, message string) (Result, error) {
	reqBody, err := json.Marshal(chatRequest{
		Model: p.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: message},
		},
		Temperature: 0,
		MaxTokens:   64,
	})
	if err != nil {
		return Result{}, fmt.Errorf("fallback: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return Result{}, fmt.Errorf("fallback: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("fallback: send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("fallback: read response: %w", err)
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return Result{}, fmt.Errorf("fallback: unmarshal response: %w", err)
	}

	if result.Error != nil {
		return Result{}, fmt.Errorf("fallback: openai error: %s: %s", result.Error.Type, result.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("fallback: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	if len(result.Choices) == 0 {
		return Result{}, fmt.Errorf("fallback: empty choices in response")
	}

	return parseVerdict(result.Choices[0].Message.Content)
}

// parseVerdict extracts the JSON verdict from model output. Models sometimes
// wrap JSON in code fences even when told not to.
func parseVerdict(content string) (Result, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var v verdict
	if err := json.Unmarshal([]byte(content), &v); err != nil {
		return Result{}, fmt.Errorf("fallback: parse verdict: %w", err)
	}

	op := model.Intent(strings.ToUpper(strings.TrimSpace(v.Operation)))
	switch op {
	case model.IntentCreate, model.IntentList, model.IntentComplete,
		model.IntentUpdate, model.IntentDelete, model.IntentUnknown:
	default:
		return Result{}, fmt.Errorf("fallback: invalid operation %q in verdict", v.Operation)
	}

	if v.Confidence < 0 || v.Confidence > 1 {
		return Result{}, fmt.Errorf("fallback: confidence %v out of range", v.Confidence)
	}

	return Result{Operation: op, Confidence: v.Confidence}, nil
}

// NoopProvider reports every message as UNKNOWN at a fixed low confidence.
// Used when no API key is configured.
type NoopProvider struct{}

// NewNoopProvider creates a provider that never classifies anything.
func NewNoopProvider() *NoopProvider {
	return &NoopProvider{}
}

// Classify always returns UNKNOWN.
func (p *NoopProvider) Classify(_ context.Context, _ string) (Result, error) {
	return Result{Operation: model.IntentUnknown, Confidence: NoopConfidence}, nil
}
