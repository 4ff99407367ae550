// Package config loads wirebus configuration from files and the
// environment.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Config is the full wirebus configuration.
type Config struct {
	Server ServerConfig `json:"server" yaml:"server"`
	Log    LogConfig    `json:"log" yaml:"log"`
	SSE    SSEConfig    `json:"sse" yaml:"sse"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Hostname   string `json:"hostname" yaml:"hostname" env:"WIREBUS_HOSTNAME"`
	Port       int    `json:"port" yaml:"port" env:"WIREBUS_PORT"`
	EnableCORS bool   `json:"cors" yaml:"cors" env:"WIREBUS_CORS"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" env:"WIREBUS_LOG_LEVEL"`
	Pretty bool   `json:"pretty" yaml:"pretty" env:"WIREBUS_LOG_PRETTY"`
}

// SSEConfig configures event streaming to HTTP clients.
type SSEConfig struct {
	HeartbeatSeconds int `json:"heartbeatSeconds" yaml:"heartbeatSeconds" env:"WIREBUS_SSE_HEARTBEAT"`
	Buffer           int `json:"buffer" yaml:"buffer" env:"WIREBUS_SSE_BUFFER"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Hostname:   "127.0.0.1",
			Port:       8080,
			EnableCORS: true,
		},
		Log: LogConfig{
			Level: "INFO",
		},
		SSE: SSEConfig{
			HeartbeatSeconds: 30,
			Buffer:           10,
		},
	}
}

// fileNames are the recognized config file names, in load order.
var fileNames = []string{"wirebus.json", "wirebus.jsonc", "wirebus.yaml", "wirebus.yml"}

// Load builds the configuration from multiple sources (priority order):
//  1. built-in defaults
//  2. global config (~/.config/wirebus/)
//  3. project config (working directory)
//  4. .env file in the working directory (via godotenv)
//  5. WIREBUS_* environment variables (highest priority)
func Load(directory string) (*Config, error) {
	cfg := Default()

	if home, err := os.UserHomeDir(); err == nil {
		globalDir := filepath.Join(home, ".config", "wirebus")
		for _, name := range fileNames {
			loadFile(filepath.Join(globalDir, name), cfg)
		}
	}

	if directory != "" {
		// Make WIREBUS_* vars from a project .env visible to env.Parse.
		_ = godotenv.Load(filepath.Join(directory, ".env"))
		for _, name := range fileNames {
			loadFile(filepath.Join(directory, name), cfg)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment overrides: %w", err)
	}
	return cfg, nil
}

// loadFile merges a single config file into cfg. Missing files are skipped;
// malformed files are skipped too, matching the loader's best-effort layering.
func loadFile(path string, cfg *Config) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	data = interpolate(data)

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg) == nil
	default:
		// Strip JSONC comments using tidwall/jsonc.
		return json.Unmarshal(jsonc.ToJSON(data), cfg) == nil
	}
}

var envPattern = regexp.MustCompile(`\{env:([^}]+)\}`)

// interpolate replaces {env:VAR_NAME} placeholders with environment values.
func interpolate(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envPattern.FindSubmatch(match)[1]
		return []byte(os.Getenv(strings.TrimSpace(string(name))))
	})
}
