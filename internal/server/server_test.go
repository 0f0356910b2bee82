package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasuki-ai/tasuki/api"
	"github.com/tasuki-ai/tasuki/internal/auth"
	"github.com/tasuki-ai/tasuki/internal/mcp"
	"github.com/tasuki-ai/tasuki/internal/model"
	"github.com/tasuki-ai/tasuki/internal/ratelimit"
	"github.com/tasuki-ai/tasuki/internal/server"
	"github.com/tasuki-ai/tasuki/internal/service/agent"
	"github.com/tasuki-ai/tasuki/internal/service/fallback"
	"github.com/tasuki-ai/tasuki/internal/service/intent"
	"github.com/tasuki-ai/tasuki/internal/testutil"
	"github.com/tasuki-ai/tasuki/internal/tools"
)

const testAPIKey = "test-api-key"

var testSrv *httptest.Server

func TestMain(m *testing.M) {
	tc := testutil.MustStartPostgres()
	code := setupAndRun(m, tc)
	tc.Terminate()
	os.Exit(code)
}

func setupAndRun(m *testing.M, tc *testutil.TestContainer) int {
	ctx := context.Background()
	logger := testutil.TestLogger()

	db, err := tc.NewTestDB(ctx, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "server test: create DB: %v\n", err)
		return 1
	}
	defer db.Close()

	jwtMgr, err := auth.NewJWTManager("", "", time.Hour)
	if err != nil {
		fmt.Fprintf(os.Stderr, "server test: jwt manager: %v\n", err)
		return 1
	}

	keyHash, err := auth.HashAPIKey(testAPIKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "server test: hash api key: %v\n", err)
		return 1
	}

	toolSet := tools.New(db, logger)
	classifier := intent.NewClassifier(fallback.NewNoopProvider(), time.Second, logger)
	ag := agent.New(classifier, toolSet, logger)
	mcpSrv := mcp.New(toolSet, logger)

	srv := server.New(server.ServerConfig{
		DB:                  db,
		JWTMgr:              jwtMgr,
		Agent:               ag,
		Logger:              logger,
		APIKeyHash:          keyHash,
		MCPServer:           mcpSrv.MCPServer(),
		RateLimiter:         ratelimit.NoopLimiter{},
		OpenAPISpec:         api.OpenAPISpec,
		Port:                0,
		ReadTimeout:         5 * time.Second,
		WriteTimeout:        5 * time.Second,
		RequestTimeout:      10 * time.Second,
		Version:             "test",
		MaxRequestBodyBytes: 64 * 1024,
	})

	testSrv = httptest.NewServer(srv.Handler())
	defer testSrv.Close()

	return m.Run()
}

func mintToken(t *testing.T, userID string) string {
	t.Helper()
	body, _ := json.Marshal(model.TokenRequest{APIKey: testAPIKey, UserID: userID})
	resp, err := http.Post(testSrv.URL+"/auth/token", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tok model.TokenResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tok))
	return tok.Token
}

func chat(t *testing.T, token, message string) (*http.Response, model.ChatResponse) {
	t.Helper()
	body, _ := json.Marshal(model.ChatRequest{Message: message})
	req, err := http.NewRequest(http.MethodPost, testSrv.URL+"/agent/chat", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out model.ChatResponse
	if resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp, out
}

func TestAuthToken(t *testing.T) {
	t.Run("valid key", func(t *testing.T) {
		token := mintToken(t, "alice")
		assert.NotEmpty(t, token)
	})

	t.Run("wrong key", func(t *testing.T) {
		body, _ := json.Marshal(model.TokenRequest{APIKey: "wrong", UserID: "alice"})
		resp, err := http.Post(testSrv.URL+"/auth/token", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("missing user_id", func(t *testing.T) {
		body, _ := json.Marshal(model.TokenRequest{APIKey: testAPIKey})
		resp, err := http.Post(testSrv.URL+"/auth/token", "application/json", bytes.NewReader(body))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestChatRequiresAuth(t *testing.T) {
	body, _ := json.Marshal(model.ChatRequest{Message: "show my tasks"})
	resp, err := http.Post(testSrv.URL+"/agent/chat", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var apiErr model.APIError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	assert.Equal(t, model.ErrCodeUnauthorized, apiErr.Error.Code)
	assert.NotEmpty(t, apiErr.Meta.RequestID)
}

func TestChatLifecycle(t *testing.T) {
	token := mintToken(t, "chat-alice")

	resp, out := chat(t, token, "create a task to buy milk")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Task created: Buy milk", out.Response)
	require.NotNil(t, out.Metadata)
	assert.Equal(t, model.IntentCreate, out.Metadata.Intent)
	assert.Equal(t, "add_task", out.Metadata.ToolCalled)

	_, out = chat(t, token, "show my tasks")
	assert.Equal(t, "You have 1 task: Buy milk.", out.Response)

	_, out = chat(t, token, "mark buy milk as done")
	assert.Equal(t, "Marked 'Buy milk' as done.", out.Response)

	_, out = chat(t, token, "delete the buy milk task")
	assert.Equal(t, "Deleted task 'Buy milk'.", out.Response)
}

func TestChatOwnershipIsolation(t *testing.T) {
	aliceToken := mintToken(t, "iso-alice")
	bobToken := mintToken(t, "iso-bob")

	_, out := chat(t, aliceToken, "create a task to water the plants")
	require.Contains(t, out.Response, "Task created")

	_, out = chat(t, bobToken, "show my tasks")
	assert.Equal(t, "You have no tasks.", out.Response)
}

func TestChatUserIDMismatch(t *testing.T) {
	token := mintToken(t, "mismatch-alice")

	body, _ := json.Marshal(model.ChatRequest{UserID: "someone-else", Message: "show my tasks"})
	req, err := http.NewRequest(http.MethodPost, testSrv.URL+"/agent/chat", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestChatBadRequests(t *testing.T) {
	token := mintToken(t, "bad-alice")

	t.Run("empty message", func(t *testing.T) {
		resp, _ := chat(t, token, "")
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed body", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, testSrv.URL+"/agent/chat", bytes.NewReader([]byte("{not json")))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown message stays 200", func(t *testing.T) {
		resp, out := chat(t, token, "what's the weather like?")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, out.Response, "task management")
	})
}

func TestHealth(t *testing.T) {
	resp, err := http.Get(testSrv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health["status"])
}

func TestOpenAPISpec(t *testing.T) {
	resp, err := http.Get(testSrv.URL + "/openapi.yaml")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))

	body := make([]byte, 16)
	n, _ := resp.Body.Read(body)
	assert.Contains(t, string(body[:n]), "openapi")
}
