// Package config provides configuration parsing and validation for the
// shadowcodec tunnel endpoint.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/postalsys/shadowcodec/internal/aead"
)

// Config is the complete endpoint configuration: which AEAD method and
// password secure the tunnel, which role this process plays, and how it
// logs and exposes metrics.
type Config struct {
	Method       string        `yaml:"method"`
	Password     string        `yaml:"password"`
	PasswordFile string        `yaml:"password_file"`
	Role         string        `yaml:"role"`
	Listen       ListenConfig  `yaml:"listen"`
	Log          LogConfig     `yaml:"log"`
	Metrics      MetricsConfig `yaml:"metrics"`
}

// ListenConfig describes the local TCP and UDP addresses a server-role
// endpoint accepts connections on.
type ListenConfig struct {
	TCP string `yaml:"tcp"`
	UDP string `yaml:"udp"`
}

// LogConfig controls the structured logger built by internal/logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus exporter built by internal/metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Role values. Only the server role installs a salt replay guard on its
// decrypt contexts, per spec 4.7.
const (
	RoleClient = "client"
	RoleServer = "server"
)

// Default returns a config with every field set to its documented default.
func Default() *Config {
	return &Config{
		Method: "aes-256-gcm",
		Role:   RoleClient,
		Listen: ListenConfig{
			TCP: "127.0.0.1:8388",
			UDP: "127.0.0.1:8388",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9100",
		},
	}
}

// Load reads and parses a YAML config file, filling unset fields from
// Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML config data on top of Default's values.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	if err := cfg.resolvePassword(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolvePassword reads PasswordFile into Password when the former is set
// and the latter is not, trimming surrounding whitespace from the file's
// contents.
func (c *Config) resolvePassword() error {
	if c.Password != "" || c.PasswordFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.PasswordFile)
	if err != nil {
		return fmt.Errorf("config: read password_file %s: %w", c.PasswordFile, err)
	}
	c.Password = strings.TrimSpace(string(data))
	return nil
}

// Validate checks the config for internally-consistent, actionable
// values before it is handed to an endpoint.
func (c *Config) Validate() error {
	if c.Password == "" {
		return fmt.Errorf("config: password (or password_file) is required")
	}
	if !aead.IsKnownMethod(c.Method) {
		return fmt.Errorf("config: unknown method %q", c.Method)
	}
	if c.Role != RoleClient && c.Role != RoleServer {
		return fmt.Errorf("config: role must be %q or %q, got %q", RoleClient, RoleServer, c.Role)
	}
	if !isValidLogLevel(c.Log.Level) {
		return fmt.Errorf("config: invalid log level %q", c.Log.Level)
	}
	if !isValidLogFormat(c.Log.Format) {
		return fmt.Errorf("config: invalid log format %q", c.Log.Format)
	}
	return nil
}

func isValidLogLevel(level string) bool {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

func isValidLogFormat(format string) bool {
	switch strings.ToLower(format) {
	case "text", "json":
		return true
	}
	return false
}

// String renders the config with the password redacted, safe for logging.
func (c *Config) String() string {
	redacted := *c
	if redacted.Password != "" {
		redacted.Password = "***"
	}
	out, err := yaml.Marshal(redacted)
	if err != nil {
		return fmt.Sprintf("config: marshal error: %v", err)
	}
	return string(out)
}
