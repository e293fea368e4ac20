package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/certkit"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "certkit.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr())
	assert.Equal(t, "certificates.db", cfg.Store.Path)
	assert.Equal(t, "bottom-right", cfg.Render.SymbolPosition)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  host: 127.0.0.1
  port: 9090
signing:
  base_url: https://certs.example.com
render:
  symbol_position: top-left
  symbol_format: pdf417
  workers: 8
log:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Server.Addr())
	assert.Equal(t, "https://certs.example.com", cfg.Signing.BaseURL)
	assert.Equal(t, "top-left", cfg.Render.SymbolPosition)
	assert.Equal(t, "pdf417", cfg.Render.SymbolFormat)
	assert.Equal(t, 8, cfg.Render.Workers)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestEnvOverrides(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		"CERTKIT_SECRET_KEY": "from-env",
		"CERTKIT_BASE_URL":   "https://env.example.com",
		"CERTKIT_PORT":       "7070",
		"CERTKIT_LOG_LEVEL":  "warn",
	}
	cfg.applyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "from-env", cfg.Signing.SecretKey)
	assert.Equal(t, "https://env.example.com", cfg.Signing.BaseURL)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	bad := *cfg
	bad.Server.Port = 0
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Signing.BaseURL = "not-a-url"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Render.SymbolPosition = "center"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Render.SymbolFormat = "aztec"
	assert.Error(t, bad.Validate())

	bad = *cfg
	bad.Log.Level = "verbose"
	assert.Error(t, bad.Validate())
}

func TestOptions(t *testing.T) {
	cfg := Default()
	cfg.Render.SymbolPosition = "top-right"
	cfg.Render.SymbolScale = 0.2
	cfg.Render.Workers = 3

	opts := cfg.Options()
	assert.Equal(t, certkit.TopRight, opts.SymbolPosition)
	assert.Equal(t, 0.2, opts.SymbolScale)
	assert.Equal(t, 3, opts.Workers)
	// Unset fields keep their defaults.
	assert.Equal(t, 1.5, opts.OverflowThreshold)
}

func TestNewLogger(t *testing.T) {
	cfg := Default()
	logger, err := cfg.NewLogger()
	require.NoError(t, err)
	logger.Sync()

	cfg.Log.Level = "nope"
	_, err = cfg.NewLogger()
	assert.Error(t, err)
}
