// Package config handles loading and managing mailquery configuration.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/wesm/mailquery/internal/dateparse"
	"github.com/wesm/mailquery/internal/scheduler"
)

// ServerConfig holds HTTP API server configuration.
type ServerConfig struct {
	BindAddr       string   `toml:"bind_addr"`        // Listen address (default: 127.0.0.1)
	APIPort        int      `toml:"api_port"`         // HTTP server port (default: 8080)
	APIKey         string   `toml:"api_key"`          // API authentication key
	CORSOrigins    []string `toml:"cors_origins"`     // Allowed browser origins
	RateLimitRPS   float64  `toml:"rate_limit_rps"`   // Per-client requests per second
	RateLimitBurst int      `toml:"rate_limit_burst"` // Per-client burst size
	MaxConnections int      `toml:"max_connections"`  // Concurrent connections; 0 means unlimited
}

// LLMConfig holds the AI search backend configuration.
type LLMConfig struct {
	Enabled        bool   `toml:"enabled"`
	Server         string `toml:"server"` // Ollama server URL
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	HealthCheck    string `toml:"health_check"` // Cron schedule for pinging the server under serve; empty disables
}

// SearchConfig holds query composition settings.
type SearchConfig struct {
	WeekStart     string `toml:"week_start"`      // First day of "this week" (default: monday)
	MaxInputRunes int    `toml:"max_input_runes"` // Longest accepted free text
}

// Config represents the mailquery configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	LLM    LLMConfig    `toml:"llm"`
	Search SearchConfig `toml:"search"`

	// Computed paths (not from config file)
	HomeDir    string `toml:"-"`
	ConfigPath string `toml:"-"`
}

// DefaultHome returns the default mailquery home directory.
// Respects MAILQUERY_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("MAILQUERY_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".mailquery"
	}
	return filepath.Join(home, ".mailquery")
}

// NewDefaultConfig returns a configuration with default values.
func NewDefaultConfig() *Config {
	return newConfig(DefaultHome())
}

func newConfig(homeDir string) *Config {
	return &Config{
		HomeDir:    homeDir,
		ConfigPath: filepath.Join(homeDir, "config.toml"),
		Server: ServerConfig{
			BindAddr:       "127.0.0.1",
			APIPort:        8080,
			RateLimitRPS:   10,
			RateLimitBurst: 20,
			MaxConnections: 64,
		},
		LLM: LLMConfig{
			Server:         "http://localhost:11434",
			Model:          "llama3.2",
			TimeoutSeconds: 30,
			HealthCheck:    "*/5 * * * *",
		},
		Search: SearchConfig{
			WeekStart:     "monday",
			MaxInputRunes: 500,
		},
	}
}

// Load reads the configuration. An explicit path must exist; otherwise
// config.toml in homeDir (or the default home) is read if present.
func Load(path, homeDir string) (*Config, error) {
	explicit := path != ""
	switch {
	case explicit:
		path = expandPath(path)
		if homeDir == "" {
			homeDir = filepath.Dir(path)
		}
	case homeDir != "":
		homeDir = expandPath(homeDir)
	default:
		homeDir = DefaultHome()
	}
	if !explicit {
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := newConfig(expandPath(homeDir))
	cfg.ConfigPath = path

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if explicit {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w%s", err, backslashHint(err))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail later.
func (c *Config) Validate() error {
	if c.Server.APIPort < 0 || c.Server.APIPort > 65535 {
		return fmt.Errorf("server.api_port %d out of range", c.Server.APIPort)
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		return fmt.Errorf("server rate limits must not be negative")
	}
	if c.Server.MaxConnections < 0 {
		return fmt.Errorf("server.max_connections must not be negative")
	}
	if c.LLM.TimeoutSeconds < 0 {
		return fmt.Errorf("llm.timeout_seconds must not be negative")
	}
	if c.LLM.HealthCheck != "" {
		if err := scheduler.ValidateCronExpr(c.LLM.HealthCheck); err != nil {
			return fmt.Errorf("llm.health_check: %w", err)
		}
	}
	if c.Search.MaxInputRunes < 0 {
		return fmt.Errorf("search.max_input_runes must not be negative")
	}
	if _, err := dateparse.ParseWeekday(c.Search.WeekStart); err != nil {
		return fmt.Errorf("search.week_start: %w", err)
	}
	return nil
}

// IsLoopback reports whether the server binds only to the local machine.
func (s ServerConfig) IsLoopback() bool {
	switch s.BindAddr {
	case "", "localhost":
		return true
	}
	ip := net.ParseIP(s.BindAddr)
	return ip != nil && ip.IsLoopback()
}

// ValidateSecure refuses to expose an unauthenticated API beyond loopback.
func (s ServerConfig) ValidateSecure() error {
	if s.APIKey == "" && !s.IsLoopback() {
		return fmt.Errorf("refusing to bind %s without [server] api_key; set an api_key or bind to 127.0.0.1", s.BindAddr)
	}
	return nil
}

// Addr returns the API listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.BindAddr, strconv.Itoa(c.Server.APIPort))
}

// LLMTimeout returns the model request timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// WeekStart returns the configured first day of the week, Monday if the
// setting is invalid.
func (c *Config) WeekStart() time.Weekday {
	d, err := dateparse.ParseWeekday(c.Search.WeekStart)
	if err != nil {
		return time.Monday
	}
	return d
}

// backslashHint explains the common Windows-path mistake in TOML strings.
func backslashHint(err error) string {
	msg := err.Error()
	if strings.Contains(msg, "invalid escape") || strings.Contains(msg, "hexadecimal digits") {
		return "\nhint: backslashes in double-quoted TOML strings are escapes; use forward slashes or single quotes for paths"
	}
	return ""
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	if len(path) > 1 && path[1] != '/' && path[1] != filepath.Separator {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
