// Package config loads process configuration from a YAML file with
// environment-variable overrides for deployment secrets.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lvillar/certkit"
)

// Config is the full process configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Signing SigningConfig `yaml:"signing"`
	Store   StoreConfig   `yaml:"store"`
	Render  RenderConfig  `yaml:"render"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig configures the verification API.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SigningConfig configures identity and signing. SecretKey is sensitive
// and is never serialized back out or logged.
type SigningConfig struct {
	SecretKey string `yaml:"secret_key"`
	BaseURL   string `yaml:"base_url"`
}

// StoreConfig configures certificate persistence.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// RenderConfig configures symbol placement and the overflow policy.
type RenderConfig struct {
	SymbolPosition    string  `yaml:"symbol_position"`
	SymbolScale       float64 `yaml:"symbol_scale"`
	SymbolFormat      string  `yaml:"symbol_format"`
	OverflowThreshold float64 `yaml:"overflow_threshold"`
	MinFontSizePt     float64 `yaml:"min_font_size_pt"`
	Workers           int     `yaml:"workers"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Default returns the baseline configuration before file and environment
// overrides.
func Default() *Config {
	opts := certkit.DefaultOptions()
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Store:  StoreConfig{Path: "certificates.db"},
		Render: RenderConfig{
			SymbolPosition:    string(opts.SymbolPosition),
			SymbolScale:       opts.SymbolScale,
			SymbolFormat:      "qr",
			OverflowThreshold: opts.OverflowThreshold,
			MinFontSizePt:     opts.MinFontSizePt,
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

// Load reads the YAML file at path (optional), applies CERTKIT_*
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays CERTKIT_* environment variables. The secret key is
// expected to arrive this way in deployments rather than sitting in a
// config file.
func (c *Config) applyEnv(getenv func(string) string) {
	if v := getenv("CERTKIT_SECRET_KEY"); v != "" {
		c.Signing.SecretKey = v
	}
	if v := getenv("CERTKIT_BASE_URL"); v != "" {
		c.Signing.BaseURL = v
	}
	if v := getenv("CERTKIT_STORE_PATH"); v != "" {
		c.Store.Path = v
	}
	if v := getenv("CERTKIT_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := getenv("CERTKIT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := getenv("CERTKIT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

// Validate checks the fields every run depends on. The secret key is
// only required for signing and verification paths, which check it
// themselves; Validate covers shape errors.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	if c.Signing.BaseURL != "" {
		u, err := url.Parse(c.Signing.BaseURL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("config: base_url %q is not an absolute URL", c.Signing.BaseURL)
		}
	}
	if !certkit.SymbolPosition(c.Render.SymbolPosition).Valid() {
		return fmt.Errorf("config: unknown symbol_position %q", c.Render.SymbolPosition)
	}
	switch strings.ToLower(c.Render.SymbolFormat) {
	case "qr", "pdf417":
	default:
		return fmt.Errorf("config: unknown symbol_format %q", c.Render.SymbolFormat)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log level %q", c.Log.Level)
	}
	return nil
}

// Options translates the render section into pipeline options.
func (c *Config) Options() certkit.Options {
	opts := certkit.DefaultOptions()
	if p := certkit.SymbolPosition(c.Render.SymbolPosition); p.Valid() {
		opts.SymbolPosition = p
	}
	if c.Render.SymbolScale > 0 {
		opts.SymbolScale = c.Render.SymbolScale
	}
	if c.Render.OverflowThreshold > 0 {
		opts.OverflowThreshold = c.Render.OverflowThreshold
	}
	if c.Render.MinFontSizePt > 0 {
		opts.MinFontSizePt = c.Render.MinFontSizePt
	}
	opts.Workers = c.Render.Workers
	return opts
}
