package server_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commonground/eventfinder/internal/config"
	"github.com/commonground/eventfinder/internal/corpus"
	"github.com/commonground/eventfinder/internal/engine"
	"github.com/commonground/eventfinder/internal/expand"
	"github.com/commonground/eventfinder/internal/server"
	"github.com/commonground/eventfinder/internal/storage/memory"
)

// startTestServer starts a server on a random port with an in-memory
// feedback store and a small static corpus. Cleanup is registered with
// t.Cleanup.
func startTestServer(t *testing.T, cfg *config.Config) string {
	t.Helper()

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	cfg.Server.Port = 0 // random port for tests

	source := corpus.StaticSource([]corpus.RawRow{
		{"title": "Park Cleanup", "description": "Join us to clean the park", "mood": "Uplift"},
		{"title": "Tutoring Session", "description": "Help kids with homework", "mood": "Connect"},
	})
	ch, err := corpus.NewHandle(context.Background(), source)
	require.NoError(t, err)

	eng, err := engine.New(ch, expand.New(), memory.NewFeedbackStore(), engine.DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	addrChan := make(chan string, 1)
	go func() {
		addr, _ := server.Start(ctx, cfg, eng, nil)
		addrChan <- addr
	}()

	var addr string
	select {
	case addr = <-addrChan:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("server did not start within timeout")
	}

	time.Sleep(100 * time.Millisecond)

	t.Cleanup(func() {
		cancel()
		time.Sleep(100 * time.Millisecond)
	})

	return "http://" + addr
}

func devConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "127.0.0.1",
			Port: 0,
		},
		Security: config.SecurityConfig{
			SecurityMode: "development",
		},
	}
}

func TestServer_StartsOnRandomPort(t *testing.T) {
	baseURL := startTestServer(t, devConfig())

	require.True(t, strings.HasPrefix(baseURL, "http://"))
	addr := strings.TrimPrefix(baseURL, "http://")

	host, port, err := net.SplitHostPort(addr)
	assert.NoError(t, err, "address should be valid host:port format")
	assert.NotEmpty(t, host)
	assert.NotEqual(t, "0", port, "port should be assigned")
}

func TestServer_HealthEndpoint(t *testing.T) {
	baseURL := startTestServer(t, devConfig())

	resp, err := http.Get(baseURL + "/api/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var healthResp map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&healthResp))
	assert.Equal(t, "healthy", healthResp["status"])
}

func TestServer_SecurityHeaders(t *testing.T) {
	baseURL := startTestServer(t, devConfig())

	resp, err := http.Get(baseURL + "/api/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	expectedHeaders := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"X-XSS-Protection":       "1; mode=block",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for name, want := range expectedHeaders {
		assert.Equal(t, want, resp.Header.Get(name), "header %q", name)
	}
}

func TestServer_RouteRegistration(t *testing.T) {
	baseURL := startTestServer(t, devConfig())

	apiPaths := []string{
		"/api/recommendations",
		"/api/stats",
		"/api/health",
	}

	for _, path := range apiPaths {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(baseURL + path)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.NotEqual(t, http.StatusNotFound, resp.StatusCode,
				"route %s should be registered", path)
			assert.Less(t, resp.StatusCode, 500,
				"route %s should not return 5xx", path)
		})
	}
}

func TestServer_ProductionMode_RequiresAuth(t *testing.T) {
	testToken := "test-secret-token-xyz123"
	cfg := devConfig()
	cfg.Security.SecurityMode = "production"
	cfg.Security.APIToken = testToken

	baseURL := startTestServer(t, cfg)

	t.Run("without_auth_header", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/api/recommendations")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("with_valid_auth_header", func(t *testing.T) {
		req, err := http.NewRequest("GET", baseURL+"/api/recommendations?q=park", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+testToken)

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("health_stays_open", func(t *testing.T) {
		resp, err := http.Get(baseURL + "/api/health")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode,
			"/api/health should not require auth")
	})
}

func TestServer_MethodNotAllowed(t *testing.T) {
	baseURL := startTestServer(t, devConfig())

	tests := []struct {
		method string
		path   string
	}{
		{"POST", "/api/health"},
		{"POST", "/api/recommendations"},
		{"GET", "/api/feedback"},
		{"DELETE", "/api/stats"},
	}

	for _, tt := range tests {
		t.Run(tt.method+"_"+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, baseURL+tt.path, nil)
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		})
	}
}

func TestServer_GracefulShutdown(t *testing.T) {
	cfg := devConfig()

	source := corpus.StaticSource([]corpus.RawRow{
		{"title": "Park Cleanup", "description": "Join us to clean the park"},
	})
	ch, err := corpus.NewHandle(context.Background(), source)
	require.NoError(t, err)

	eng, err := engine.New(ch, expand.New(), memory.NewFeedbackStore(), engine.DefaultConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addrChan := make(chan string, 1)
	go func() {
		addr, _ := server.Start(ctx, cfg, eng, nil)
		addrChan <- addr
	}()

	var addr string
	select {
	case addr = <-addrChan:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	time.Sleep(100 * time.Millisecond)
	baseURL := "http://" + addr

	resp, err := http.Get(baseURL + "/api/health")
	require.NoError(t, err, "server should be responding before shutdown")
	_ = resp.Body.Close()

	cancel()
	time.Sleep(200 * time.Millisecond)

	checkCtx, checkCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer checkCancel()

	req, _ := http.NewRequestWithContext(checkCtx, "GET", baseURL+"/api/health", nil)
	_, err = http.DefaultClient.Do(req)
	assert.Error(t, err, "server should stop responding after shutdown")
}
