package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// unsetenv clears a variable for the test while keeping t.Setenv's restore
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"SERVER_BASE_URL", "PORT", "CACHE_PATH", "CACHE_TTL", "SESSION_TOKEN", "AGENT_CONFIG",
	} {
		unsetenv(t, key)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.ServerBaseURL)
	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "cinecircle-agent.db", cfg.CachePath)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "", cfg.SessionToken)
	assert.Equal(t, 64, cfg.NoticeBuffer)
}

func TestLoad_EnvOverrides(t *testing.T) {
	unsetenv(t, "AGENT_CONFIG")
	t.Setenv("SERVER_BASE_URL", "https://api.example.com")
	t.Setenv("PORT", "9090")
	t.Setenv("CACHE_TTL", "1h")
	t.Setenv("SESSION_TOKEN", "7.sig")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.ServerBaseURL)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, "7.sig", cfg.SessionToken)
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	unsetenv(t, "AGENT_CONFIG")
	t.Setenv("CACHE_TTL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
}

func TestLoad_FileOverlayWinsOverEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SERVER_BASE_URL", "https://env.example.com")

	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"server_base_url: https://file.example.com\n"+
			"cache_ttl: 2h\n"+
			"notice_buffer: 16\n",
	), 0o600))
	t.Setenv("AGENT_CONFIG", path)

	cfg, err := Load()
	require.NoError(t, err)

	// file values win where the file speaks
	assert.Equal(t, "https://file.example.com", cfg.ServerBaseURL)
	assert.Equal(t, 2*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 16, cfg.NoticeBuffer)
	// env values survive where the file is silent
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	t.Setenv("AGENT_CONFIG", filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load()
	require.Error(t, err)
}

func TestLoad_BadYAMLErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [\n"), 0o600))
	t.Setenv("AGENT_CONFIG", path)

	_, err := Load()
	require.Error(t, err)
}
