package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/corevisor/internal/controlplane/api/auth"
	"github.com/marmos91/corevisor/pkg/addons"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime"
	"github.com/marmos91/corevisor/pkg/controlplane/runtime/options"
	"github.com/marmos91/corevisor/pkg/controlplane/store"
	"github.com/marmos91/corevisor/pkg/coreapp/coreapptest"
	"github.com/marmos91/corevisor/pkg/metrics"
)

const testSecret = "test-secret-key-for-testing-only-32chars"

// testSetup creates a runtime on an in-memory store and an APIConfig.
func testSetup(t *testing.T, port int) (*runtime.Runtime, APIConfig) {
	t.Helper()
	ctx := context.Background()

	db, err := store.New(ctx, &store.Config{
		Type:   store.DatabaseTypeSQLite,
		SQLite: store.SQLiteConfig{Path: ":memory:"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rt, err := runtime.New(ctx, runtime.Deps{
		Store: db,
		Core:  coreapptest.New(),
		Registry: addons.Static{
			{Slug: "core_mosquitto", Services: map[string]addons.Role{"mqtt": addons.RoleProvide}},
		},
		Options: options.Config{InstalledVersion: "2024.5.0"},
	})
	require.NoError(t, err)

	cfg := APIConfig{
		Port:         port,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  10 * time.Second,
		JWT:          JWTConfig{Secret: testSecret},
	}
	return rt, cfg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	rt, cfg := testSetup(t, 0)
	server, err := NewServer(cfg, rt)
	require.NoError(t, err)
	return server
}

func bearer(t *testing.T, s *Server, subject string, role auth.Role) string {
	t.Helper()
	tok, err := s.JWTService().Issue(subject, role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func serve(s *Server, method, target, authz, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestAPIServer_Lifecycle(t *testing.T) {
	rt, cfg := testSetup(t, 18080)

	server, err := NewServer(cfg, rt)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 1)
	go func() { errChan <- server.Start(ctx) }()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get(fmt.Sprintf("http://localhost:%d/health", cfg.Port))
		return err == nil
	}, 5*time.Second, 50*time.Millisecond)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, cfg.Port, server.Port())

	cancel()
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}

	// Stop after shutdown is a no-op.
	assert.NoError(t, server.Stop(context.Background()))
}

func TestAPIServer_DefaultConfig(t *testing.T) {
	var cfg APIConfig
	cfg.ApplyDefaults()

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 10*time.Minute, cfg.WriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.IdleTimeout)
	assert.Equal(t, 365*24*time.Hour, cfg.JWT.TokenDuration)
}

func TestAPIServer_InvalidJWTSecret(t *testing.T) {
	t.Setenv(EnvControlPlaneSecret, "")
	rt, cfg := testSetup(t, 0)
	cfg.JWT.Secret = "short"

	_, err := NewServer(cfg, rt)
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvControlPlaneSecret)
}

func TestAPIServer_SecretFromEnvironment(t *testing.T) {
	t.Setenv(EnvControlPlaneSecret, "environment-secret-that-is-long-enough")
	rt, cfg := testSetup(t, 0)
	cfg.JWT.Secret = ""

	_, err := NewServer(cfg, rt)
	require.NoError(t, err)
}

func TestAPIServer_RootRedirectsToHealth(t *testing.T) {
	s := newTestServer(t)

	rr := serve(s, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	assert.Equal(t, "/health", rr.Header().Get("Location"))
}

func TestAPIServer_Readiness(t *testing.T) {
	s := newTestServer(t)

	rr := serve(s, http.MethodGet, "/health/ready", "", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAPIServer_Authentication(t *testing.T) {
	s := newTestServer(t)
	adminToken := bearer(t, s, "admin", auth.RoleAdmin)
	addonToken := bearer(t, s, "addon_a", auth.RoleAddon)

	tests := []struct {
		name       string
		method     string
		target     string
		authz      string
		wantStatus int
	}{
		{"anonymous core", http.MethodGet, "/api/v1/core/info", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/v1/core/info", "Bearer nope", http.StatusUnauthorized},
		{"addon core", http.MethodGet, "/api/v1/core/info", addonToken, http.StatusForbidden},
		{"addon lifecycle", http.MethodPost, "/api/v1/core/restart", addonToken, http.StatusForbidden},
		{"admin core", http.MethodGet, "/api/v1/core/info", adminToken, http.StatusOK},
		{"anonymous services", http.MethodGet, "/api/v1/services", "", http.StatusUnauthorized},
		{"addon services", http.MethodGet, "/api/v1/services", addonToken, http.StatusOK},
		{"admin services", http.MethodGet, "/api/v1/services/mqtt", adminToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(s, tt.method, tt.target, tt.authz, "")
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
		})
	}
}

func TestAPIServer_StartAndServiceRoundTrip(t *testing.T) {
	s := newTestServer(t)
	adminToken := bearer(t, s, "admin", auth.RoleAdmin)
	addonToken := bearer(t, s, "addon_a", auth.RoleAddon)

	rr := serve(s, http.MethodPost, "/api/v1/core/start", adminToken, "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = serve(s, http.MethodGet, "/api/v1/core/info", adminToken, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var info map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&info))
	assert.Equal(t, "running", info["state"])

	rr = serve(s, http.MethodPost, "/api/v1/services/mqtt", addonToken, `{"host":"core-mosquitto","password":"secret"}`)
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = serve(s, http.MethodGet, "/api/v1/services/mqtt", adminToken, "")
	require.Equal(t, http.StatusOK, rr.Code)
	var svc struct {
		Enabled   bool     `json:"enabled"`
		Providers []string `json:"providers"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&svc))
	assert.True(t, svc.Enabled)
	assert.Equal(t, []string{"core_mosquitto"}, svc.Providers)
}

func TestAPIServer_Metrics(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		metrics.Reset()
		s := newTestServer(t)
		rr := serve(s, http.MethodGet, "/metrics", "", "")
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("enabled", func(t *testing.T) {
		metrics.InitRegistry()
		t.Cleanup(metrics.Reset)
		s := newTestServer(t)
		rr := serve(s, http.MethodGet, "/metrics", "", "")
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "go_goroutines")
	})
}
