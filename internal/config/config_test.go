package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ELEVIDEO_CONFIG_DIR", dir)
	t.Chdir(dir)
	return dir
}

func TestLoad_DefaultsWithoutFiles(t *testing.T) {
	isolate(t)

	cfg, err := Load("", Overrides{})
	require.NoError(t, err)

	assert.Equal(t, DefaultBackendURL, cfg.BackendURL)
	assert.Equal(t, DefaultPageSize, cfg.PageSize)
	assert.True(t, cfg.Heartbeat.Enabled)
	assert.Equal(t, 5*time.Minute, cfg.Heartbeat.Interval)
	assert.Equal(t, BackendFile, cfg.Credential.Backend)
	assert.Equal(t, "https://elevideo.onrender.com/api/health", cfg.EffectiveHealthURL())
	assert.Zero(t, cfg.RequestTimeout)
}

func TestLoad_LayeringOrder(t *testing.T) {
	dir := isolate(t)

	yamlPath := filepath.Join(dir, GlobalConfigFile)
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
backend_url: https://file.example.com/
page_size: 50
heartbeat:
  enabled: true
  interval: 1m
log:
  level: warn
  format: json
`), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DotEnvFile), []byte("ELEVIDEO_PAGE_SIZE=30\n"), 0600))
	t.Setenv("ELEVIDEO_HEARTBEAT_INTERVAL", "2m")

	cfg, err := Load("", Overrides{LogLevel: "debug"})
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com", cfg.BackendURL, "trailing slash trimmed")
	assert.Equal(t, 30, cfg.PageSize, ".env beats the file")
	assert.Equal(t, 2*time.Minute, cfg.Heartbeat.Interval, "environment beats the file")
	assert.Equal(t, "debug", cfg.Log.Level, "flags beat everything")
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: https://x\n"), 0600))

	_, err := Load(path, Overrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strict config parse error")
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	dir := isolate(t)
	_, err := Load(filepath.Join(dir, "absent.yaml"), Overrides{})
	require.Error(t, err)
}

func TestLoad_RejectsNonYAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0600))
	_, err := Load(path, Overrides{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only YAML supported")
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad scheme", func(c *Config) { c.BackendURL = "ftp://x" }, false},
		{"no host", func(c *Config) { c.BackendURL = "https://" }, false},
		{"zero page size", func(c *Config) { c.PageSize = 0 }, false},
		{"unknown backend", func(c *Config) { c.Credential.Backend = "vault" }, false},
		{"redis without addr", func(c *Config) { c.Credential.Backend = BackendRedis }, false},
		{"redis with addr", func(c *Config) {
			c.Credential.Backend = BackendRedis
			c.Credential.RedisAddr = "localhost:6379"
		}, true},
		{"heartbeat without interval", func(c *Config) { c.Heartbeat.Interval = 0 }, false},
		{"heartbeat disabled without interval", func(c *Config) {
			c.Heartbeat.Enabled = false
			c.Heartbeat.Interval = 0
		}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := Validate(cfg)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestWriteFile_RoundTrip(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "nested", GlobalConfigFile)

	want := Default()
	want.BackendURL = "https://api.example.com"
	want.Credential.Seal = true
	require.NoError(t, WriteFile(path, want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	got, err := Load(path, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestCredentialPath(t *testing.T) {
	dir := isolate(t)
	cfg := Default()
	p, err := cfg.CredentialPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, CredentialFile), p)

	cfg.Credential.Path = "/tmp/custom-token"
	p, err = cfg.CredentialPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom-token", p)
}
