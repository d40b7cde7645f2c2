package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment overrides. Nesting levels are
// separated by a double underscore: IGW_PROVIDER__API_KEY -> provider.api_key.
const EnvPrefix = "IGW_"

// DefaultPath is the config file read when no path is given.
const DefaultPath = "config.yaml"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Provider  ProviderConfig  `koanf:"provider"`
	Admission AdmissionConfig `koanf:"admission"`
	Storage   StorageConfig   `koanf:"storage"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

type ProviderConfig struct {
	Type        string        `koanf:"type"` // openai, openai-compatible
	APIKey      string        `koanf:"api_key"`
	BaseURL     string        `koanf:"base_url"` // Custom API endpoint
	Model       string        `koanf:"model"`
	Timeout     time.Duration `koanf:"timeout"` // Hard limit on a single provider attempt
	Temperature float64       `koanf:"temperature"`
}

type AdmissionConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Limit         int           `koanf:"limit"`
	Window        time.Duration `koanf:"window"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

type StorageConfig struct {
	Type   string       `koanf:"type"` // sqlite, memory
	SQLite SQLiteConfig `koanf:"sqlite"`
}

type SQLiteConfig struct {
	Path string `koanf:"path"`
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json, text
}

var defaults = map[string]any{
	"server.port":              8080,
	"server.request_timeout":   "30s",
	"provider.type":            "openai",
	"provider.model":           "gpt-4o-mini",
	"provider.timeout":         "9s",
	"provider.temperature":     0.7,
	"admission.enabled":        true,
	"admission.limit":          5,
	"admission.window":         "60s",
	"admission.sweep_interval": "5m",
	"storage.type":             "sqlite",
	"storage.sqlite.path":      "./data/interviews.db",
	"telemetry.service_name":   "interview-gateway",
	"logging.level":            "info",
	"logging.format":           "json",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads the YAML file at path (a missing file is fine), applies
// environment overrides, and fills defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		// File not found is OK, we'll use env vars
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// Environment variables override file config
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".", -1)
	}), nil); err != nil {
		return nil, err
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	cfg.Provider.APIKey = substituteEnvVars(cfg.Provider.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would make the service misbehave. The
// provider credential is checked when the provider is first initialized.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 0 and 65535")
	}
	if c.Provider.Timeout <= 0 {
		return fmt.Errorf("provider.timeout must be positive")
	}
	if c.Provider.Temperature < 0 || c.Provider.Temperature > 2 {
		return fmt.Errorf("provider.temperature must be between 0 and 2")
	}
	if c.Admission.Enabled {
		if c.Admission.Limit <= 0 {
			return fmt.Errorf("admission.limit must be positive")
		}
		if c.Admission.Window <= 0 {
			return fmt.Errorf("admission.window must be positive")
		}
		if c.Admission.SweepInterval <= 0 {
			return fmt.Errorf("admission.sweep_interval must be positive")
		}
	}
	switch c.Storage.Type {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("storage.type %q is not supported", c.Storage.Type)
	}
	return nil
}

func substituteEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		// Extract variable name from ${VAR_NAME}
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}
