package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config represents the elevideo client configuration
type Config struct {
	BackendURL     string           `yaml:"backend_url"`
	HealthURL      string           `yaml:"health_url,omitempty"`
	RequestTimeout time.Duration    `yaml:"request_timeout,omitempty"`
	PageSize       int              `yaml:"page_size"`
	Heartbeat      HeartbeatConfig  `yaml:"heartbeat"`
	Credential     CredentialConfig `yaml:"credential"`
	Log            LogConfig        `yaml:"log"`
}

// HeartbeatConfig controls the liveness pinger
type HeartbeatConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// CredentialConfig selects where the bearer credential lives
type CredentialConfig struct {
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path,omitempty"`
	Seal      bool   `yaml:"seal"`
	RedisAddr string `yaml:"redis_addr,omitempty"`
	RedisKey  string `yaml:"redis_key,omitempty"`
}

// LogConfig controls the global logger
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Configuration constants for file system footprint
const (
	GlobalConfigDir  = "elevideo"
	GlobalConfigFile = "config.yaml"
	CredentialFile   = "token"
	SealingKeyFile   = "credential.key"
	DotEnvFile       = ".env"

	DefaultBackendURL        = "https://elevideo.onrender.com"
	DefaultPageSize          = 20
	DefaultHeartbeatInterval = 5 * time.Minute
	DefaultRedisKey          = "elevideo:token"
)

// Credential backends
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Default returns the built-in configuration
func Default() Config {
	return Config{
		BackendURL: DefaultBackendURL,
		PageSize:   DefaultPageSize,
		Heartbeat: HeartbeatConfig{
			Enabled:  true,
			Interval: DefaultHeartbeatInterval,
		},
		Credential: CredentialConfig{
			Backend:  BackendFile,
			RedisKey: DefaultRedisKey,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// GetConfigDir returns the elevideo config directory path
func GetConfigDir() (string, error) {
	if dir := os.Getenv("ELEVIDEO_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	confDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(confDir, GlobalConfigDir), nil
}

// EnsureConfigDir creates the config directory with owner-only permissions
func EnsureConfigDir() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// EffectiveHealthURL returns the health probe URL, derived from the backend when unset.
func (c Config) EffectiveHealthURL() string {
	if c.HealthURL != "" {
		return c.HealthURL
	}
	return strings.TrimRight(c.BackendURL, "/") + "/api/health"
}

// CredentialPath returns the credential file location for the file backend.
func (c Config) CredentialPath() (string, error) {
	if c.Credential.Path != "" {
		return c.Credential.Path, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, CredentialFile), nil
}

// Validate rejects configurations the client cannot run with.
func Validate(c Config) error {
	if err := validateURL("backend_url", c.BackendURL); err != nil {
		return err
	}
	if c.HealthURL != "" {
		if err := validateURL("health_url", c.HealthURL); err != nil {
			return err
		}
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page_size must be positive, got %d", c.PageSize)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request_timeout must not be negative")
	}
	if c.Heartbeat.Enabled && c.Heartbeat.Interval <= 0 {
		return fmt.Errorf("heartbeat.interval must be positive when the heartbeat is enabled")
	}
	switch c.Credential.Backend {
	case BackendFile, BackendMemory:
	case BackendRedis:
		if c.Credential.RedisAddr == "" {
			return fmt.Errorf("credential.redis_addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown credential backend %q", c.Credential.Backend)
	}
	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", key, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s has no host: %q", key, raw)
	}
	return nil
}
