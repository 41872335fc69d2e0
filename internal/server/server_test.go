package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yummy-rest/apiserver/config"
	"github.com/yummy-rest/apiserver/internal/events"
	"github.com/yummy-rest/apiserver/internal/logging"
	"github.com/yummy-rest/apiserver/internal/services"
	"github.com/yummy-rest/apiserver/internal/store/memory"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() config.Config {
	return config.Config{
		Env:      config.EnvTesting,
		Database: config.DatabaseConfig{Driver: "memory"},
		Auth:     config.AuthConfig{JWTSecret: "server-secret", TokenTTL: time.Hour},
		CORS:     config.CORSConfig{AllowedOrigins: []string{"https://app.example.com"}},
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	cfg := testConfig()
	repos := MemoryRepositories(memory.NewManager())
	svc := NewServices(cfg.Auth, repos, nil, events.Nop{}, services.WithBcryptCost(bcrypt.MinCost))
	return NewRouter(cfg, svc, logging.Discard())
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec.Code, decoded
}

func TestRecipeBookScenario(t *testing.T) {
	h := newTestRouter(t)

	code, _ := call(t, h, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "Alice@Example.com", "username": "alice", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, code)

	code, body := call(t, h, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "alice@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, code)
	token := body["access_token"].(string)

	code, body = call(t, h, http.MethodPost, "/category", token, map[string]string{
		"name": "Breakfast", "description": "Morning food",
	})
	require.Equal(t, http.StatusCreated, code)
	categoryID := int(body["categories"].(map[string]any)["id"].(float64))

	code, body = call(t, h, http.MethodPost, "/category", token, map[string]string{
		"name": "Breakfast", "description": "Morning food",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "The category already exists!", body["message"])

	code, _ = call(t, h, http.MethodPost, fmt.Sprintf("/category/%d/recipes", categoryID), token, map[string]string{
		"name": "pancakes", "ingredients": "flour, eggs, milk", "description": "Whisk and fry",
	})
	require.Equal(t, http.StatusCreated, code)

	code, body = call(t, h, http.MethodPost, "/category/999/recipes", token, map[string]string{
		"name": "pancakes",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid category!", body["message"])

	code, _ = call(t, h, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, code)

	code, body = call(t, h, http.MethodGet, "/category", token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Token blacklisted. Please log in again.", body["message"])
}

func TestHealthz(t *testing.T) {
	h := newTestRouter(t)

	code, body := call(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/category", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestOpenRepositories(t *testing.T) {
	cfg := testConfig()
	repos, closeFn, err := OpenRepositories(context.Background(), cfg)
	require.NoError(t, err)
	assert.NotNil(t, repos.Users)
	assert.NotNil(t, repos.Blacklist)
	assert.NoError(t, closeFn())

	cfg.Database.Driver = "sqlite"
	_, _, err = OpenRepositories(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown database driver")
}

func TestNewWithMemoryBackend(t *testing.T) {
	srv, err := New(context.Background(), testConfig(), logging.Discard())
	require.NoError(t, err)
	assert.NotNil(t, srv.Router())
	assert.NotNil(t, srv.Services().Exports)
	assert.NoError(t, srv.Shutdown(context.Background()))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = ""

	_, err := New(context.Background(), cfg, logging.Discard())
	assert.ErrorContains(t, err, "JWT_SECRET")
}
