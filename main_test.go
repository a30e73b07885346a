package main

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/userdb/store"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"HTTP", "DATA_DIR", "STORE_BACKEND", "ALLOWED_ORIGINS", "LOG_LEVEL", "RATE_LIMIT", "RATE_BURST"} {
		t.Setenv(k, "")
	}
	cfg, err := loadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, &config{
		httpAddr:       "0.0.0.0:8080",
		dataDir:        "./data",
		backend:        "json",
		allowedOrigins: []string{"*"},
		logLevel:       slog.LevelInfo,
		rateLimit:      20,
		rateBurst:      40,
	}, cfg)
}

func TestLoadConfigEnvAndFlags(t *testing.T) {
	t.Setenv("DATA_DIR", "/var/lib/userdb")
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := loadConfig([]string{"-store", "memory", "-allowed-origins", "https://a.example,https://b.example", "-rate-limit", "0"})
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/userdb", cfg.dataDir)
	assert.Equal(t, "memory", cfg.backend, "flags win over the environment")
	assert.Equal(t, slog.LevelDebug, cfg.logLevel)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.allowedOrigins)
	assert.Zero(t, cfg.rateLimit)
}

func TestLoadConfigErrors(t *testing.T) {
	for _, args := range [][]string{
		{"extra"},
		{"-log-level", "loud"},
		{"-rate-limit", "fast"},
		{"-rate-limit", "-1"},
		{"-rate-burst", "1.5"},
		{"-no-such-flag"},
	} {
		_, err := loadConfig(args)
		assert.Error(t, err, strings.Join(args, " "))
	}
}

func TestNewServer(t *testing.T) {
	cfg, err := loadConfig([]string{"-rate-limit", "100", "-rate-burst", "100"})
	require.NoError(t, err)
	h, err := newServer(cfg, store.NewMemoryStore())
	require.NoError(t, err)
	ts := httptest.NewServer(h)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/users", "application/json",
		strings.NewReader(`{"name":"ann","email":"ann@x.com","password":"secret1"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
