package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all agent configuration
type Config struct {
	ServerBaseURL string        `yaml:"server_base_url"`
	Port          string        `yaml:"port"`
	CachePath     string        `yaml:"cache_path"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
	SessionToken  string        `yaml:"session_token"`
	NoticeBuffer  int           `yaml:"notice_buffer"`
}

// Load reads configuration from environment variables, then applies the
// optional YAML overlay named by AGENT_CONFIG. File values win over env so a
// checked-in profile can pin a full setup.
func Load() (*Config, error) {
	cfg := &Config{
		ServerBaseURL: getEnv("SERVER_BASE_URL", "http://localhost:8080"),
		Port:          getEnv("PORT", "7070"),
		CachePath:     getEnv("CACHE_PATH", "cinecircle-agent.db"),
		CacheTTL:      getEnvDuration("CACHE_TTL", 24*time.Hour),
		SessionToken:  getEnv("SESSION_TOKEN", ""),
		NoticeBuffer:  64,
	}

	path := os.Getenv("AGENT_CONFIG")
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.NoticeBuffer <= 0 {
		cfg.NoticeBuffer = 64
	}

	return cfg, nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvDuration retrieves a duration environment variable or returns a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
