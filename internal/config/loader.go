package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Overrides carries values set explicitly on the command line.
// Empty fields leave the lower layers untouched.
type Overrides struct {
	BackendURL string
	LogLevel   string
	LogFormat  string
}

// Load builds the effective configuration: defaults, then the YAML file, then .env,
// then ELEVIDEO_* environment variables, then command-line overrides.
// A missing config file or .env is not an error; an explicitly named one is.
func Load(path string, o Overrides) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		dir, err := GetConfigDir()
		if err != nil {
			return cfg, err
		}
		path = filepath.Join(dir, GlobalConfigFile)
	}

	if err := mergeFile(&cfg, path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			// no config file yet, defaults apply
		} else {
			return cfg, err
		}
	}

	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load %s: %w", DotEnvFile, err)
	}

	if err := mergeEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}

	if o.BackendURL != "" {
		cfg.BackendURL = o.BackendURL
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}

	cfg.BackendURL = strings.TrimRight(cfg.BackendURL, "/")

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// mergeFile decodes a YAML file over cfg. Unknown keys are rejected.
func mergeFile(cfg *Config, path string) error {
	path = filepath.Clean(path)
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("strict config parse error in %s: %w", path, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("config file %s contains multiple documents or trailing content", path)
	}
	return nil
}

type lookupFunc func(string) (string, bool)

// mergeEnv applies ELEVIDEO_* variables.
func mergeEnv(cfg *Config, lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	str("ELEVIDEO_BACKEND_URL", &cfg.BackendURL)
	str("ELEVIDEO_HEALTH_URL", &cfg.HealthURL)
	str("ELEVIDEO_CREDENTIAL_BACKEND", &cfg.Credential.Backend)
	str("ELEVIDEO_CREDENTIAL_PATH", &cfg.Credential.Path)
	str("ELEVIDEO_REDIS_ADDR", &cfg.Credential.RedisAddr)
	str("ELEVIDEO_REDIS_KEY", &cfg.Credential.RedisKey)
	str("ELEVIDEO_LOG_LEVEL", &cfg.Log.Level)
	str("ELEVIDEO_LOG_FORMAT", &cfg.Log.Format)

	if v, ok := lookup("ELEVIDEO_PAGE_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("ELEVIDEO_PAGE_SIZE: %w", err)
		}
		cfg.PageSize = n
	}
	for key, dst := range map[string]*time.Duration{
		"ELEVIDEO_REQUEST_TIMEOUT":    &cfg.RequestTimeout,
		"ELEVIDEO_HEARTBEAT_INTERVAL": &cfg.Heartbeat.Interval,
	} {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	for key, dst := range map[string]*bool{
		"ELEVIDEO_HEARTBEAT_ENABLED": &cfg.Heartbeat.Enabled,
		"ELEVIDEO_CREDENTIAL_SEAL":   &cfg.Credential.Seal,
	} {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}
	return nil
}

// WriteFile atomically writes cfg as YAML to path.
func WriteFile(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	header := []byte("# elevideo client configuration\n")
	if err := renameio.WriteFile(path, append(header, data...), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
