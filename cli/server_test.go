package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adonese/signup/config"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Config{
		Backend:      config.BackendLocal,
		DatabasePath: filepath.Join(t.TempDir(), "signup.db"),
		JWTKey:       "server-test-key-0123456789",
		MetricsToken: "metrics-token",
	}
	cfg.Defaults()
	return cfg
}

func TestBuildApp_LocalBackend(t *testing.T) {
	app, cleanup, err := buildApp(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(cleanup)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/register", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/api/register", strings.NewReader(`{"email":"wired@example.com","password":"secret1"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestBuildApp_Metrics(t *testing.T) {
	app, cleanup, err := buildApp(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(cleanup)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	var denied map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&denied))
	assert.Equal(t, "unauthorized", denied["code"])

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set("Authorization", "Bearer metrics-token")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestBuildApp_NotFound(t *testing.T) {
	app, cleanup, err := buildApp(context.Background(), testConfig(t))
	require.NoError(t, err)
	t.Cleanup(cleanup)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "not_found", out["code"])
}

func TestBuildApp_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWTKey = "short"
	_, _, err := buildApp(context.Background(), cfg)
	assert.Error(t, err)

	cfg = testConfig(t)
	cfg.Backend = "unknown"
	_, _, err = buildApp(context.Background(), cfg)
	assert.Error(t, err)
}

func TestDurationFromMs(t *testing.T) {
	assert.Equal(t, defaultLogSamplingTick, durationFromMs(0, defaultLogSamplingTick))
	assert.Equal(t, 1500*1000*1000, int(durationFromMs(1500, defaultLogSamplingTick)))
}

func TestClamp01(t *testing.T) {
	assert.Equal(t, 0.1, clamp01(0))
	assert.Equal(t, 1.0, clamp01(5))
	assert.Equal(t, 0.5, clamp01(0.5))
}

func TestRootCmd_Migrate(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	body := "signup:\n  db_path: " + filepath.Join(dir, "m.db") + "\n  jwt_key: migrate-key-0123456789\n"
	require.NoError(t, writeFile(cfgPath, body))

	cmd := newRootCmd()
	cmd.SetArgs([]string{"migrate", "--config", cfgPath})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
}

func writeFile(path, body string) error {
	return os.WriteFile(path, []byte(body), 0o600)
}
