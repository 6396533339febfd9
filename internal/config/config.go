// Package config loads the copilot configuration from an optional YAML
// file and COPILOT_ environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every configuration environment variable. A double
// underscore separates levels: COPILOT_API__BASE_URL sets api.base_url.
const EnvPrefix = "COPILOT_"

// DefaultPath is the config file read when COPILOT_CONFIG is unset.
const DefaultPath = "config.yaml"

type Config struct {
	Server    ServerConfig    `koanf:"server"`
	API       APIConfig       `koanf:"api"`
	Analysis  AnalysisConfig  `koanf:"analysis"`
	Upload    UploadConfig    `koanf:"upload"`
	Search    SearchConfig    `koanf:"search"`
	Session   SessionConfig   `koanf:"session"`
	Journal   JournalConfig   `koanf:"journal"`
	CORS      CORSConfig      `koanf:"cors"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

type ServerConfig struct {
	Port           int           `koanf:"port"`
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// APIConfig points at the remote compliance analysis service.
type APIConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"` // HTTP client timeout, above analysis.timeout
}

type AnalysisConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

type UploadConfig struct {
	MaxSizeMB int           `koanf:"max_size_mb"`
	Timeout   time.Duration `koanf:"timeout"` // POST /documents deadline, above api.timeout
}

// MaxBytes returns the upload limit in bytes.
func (u UploadConfig) MaxBytes() int64 {
	return int64(u.MaxSizeMB) << 20
}

type SearchConfig struct {
	DefaultLimit int `koanf:"default_limit"`
	MaxLimit     int `koanf:"max_limit"`
}

type SessionConfig struct {
	IdleTimeout   time.Duration `koanf:"idle_timeout"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
	CookieSecure  bool          `koanf:"cookie_secure"`
}

// JournalConfig selects the analysis journal backend.
type JournalConfig struct {
	Driver string `koanf:"driver"` // memory, sqlite, postgres, mysql, none
	DSN    string `koanf:"dsn"`    // Data source name; ${VAR} is expanded
}

type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

type LoggingConfig struct {
	Level string `koanf:"level"` // debug, info, warn, error
}

// SlogLevel parses Level, defaulting to info.
func (l LoggingConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

type TelemetryConfig struct {
	Enabled     bool   `koanf:"enabled"`
	ServiceName string `koanf:"service_name"`
}

var defaults = map[string]any{
	"server.port":            3000,
	"server.request_timeout": "30s",
	"api.base_url":           "http://localhost:8000",
	"api.timeout":            "130s",
	"analysis.timeout":       "120s",
	"upload.max_size_mb":     32,
	"upload.timeout":         "140s",
	"search.default_limit":   5,
	"search.max_limit":       20,
	"session.idle_timeout":   "2h",
	"session.sweep_interval": "5m",
	"session.cookie_secure":  false,
	"journal.driver":         "memory",
	"cors.allowed_origins":   []string{"*"},
	"logging.level":          "info",
	"telemetry.enabled":      false,
	"telemetry.service_name": "compliance-copilot",
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load reads the file named by COPILOT_CONFIG (default config.yaml).
func Load() (*Config, error) {
	path := os.Getenv(EnvPrefix + "CONFIG")
	if path == "" {
		path = DefaultPath
	}
	return LoadFile(path)
}

// LoadFile reads path if it exists, then applies environment overrides and
// defaults. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	// Environment variables override file config
	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	for key, value := range defaults {
		if !k.Exists(key) {
			k.Set(key, value)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Journal.DSN = substituteEnvVars(cfg.Journal.DSN)
	cfg.API.BaseURL = strings.TrimSuffix(cfg.API.BaseURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envTransform maps COPILOT_SESSION__IDLE_TIMEOUT to session.idle_timeout
// and splits comma-separated list values.
func envTransform(key, value string) (string, any) {
	if key == EnvPrefix+"CONFIG" {
		return "", nil
	}
	name := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), "__", ".")
	if name == "cors.allowed_origins" {
		parts := strings.Split(value, ",")
		origins := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				origins = append(origins, p)
			}
		}
		return name, origins
	}
	return name, value
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.Upload.MaxSizeMB <= 0 {
		return fmt.Errorf("upload.max_size_mb must be positive, got %d", c.Upload.MaxSizeMB)
	}
	if c.Upload.Timeout <= 0 {
		return fmt.Errorf("upload.timeout must be positive, got %v", c.Upload.Timeout)
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxLimit < c.Search.DefaultLimit {
		return fmt.Errorf("search limits invalid: default %d, max %d", c.Search.DefaultLimit, c.Search.MaxLimit)
	}
	switch strings.ToLower(c.Journal.Driver) {
	case "memory", "none":
	case "sqlite", "postgres", "mysql":
		if c.Journal.DSN == "" {
			return fmt.Errorf("journal.dsn is required for driver %q", c.Journal.Driver)
		}
	default:
		return fmt.Errorf("unsupported journal.driver %q", c.Journal.Driver)
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
