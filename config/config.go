package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// MinPeriodSeconds is the shortest accepted refresh period
const MinPeriodSeconds = 60

// Config represents the application configuration
type Config struct {
	Tado    TadoConfig    `json:"tado" yaml:"tado"`
	Token   TokenConfig   `json:"token" yaml:"token"`
	Refresh RefreshConfig `json:"refresh" yaml:"refresh"`
	Bus     BusConfig     `json:"bus" yaml:"bus"`
	HTTP    HTTPConfig    `json:"http" yaml:"http"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// TadoConfig contains tado° cloud endpoints and timeouts
type TadoConfig struct {
	ClientID            string `json:"client_id" yaml:"client_id"`
	TokenURL            string `json:"token_url" yaml:"token_url"`
	BaseURL             string `json:"base_url" yaml:"base_url"`
	AuthTimeoutSeconds  int    `json:"auth_timeout_seconds" yaml:"auth_timeout_seconds"`
	FetchTimeoutSeconds int    `json:"fetch_timeout_seconds" yaml:"fetch_timeout_seconds"`
}

// AuthTimeout returns the token endpoint timeout
func (c TadoConfig) AuthTimeout() time.Duration {
	return time.Duration(c.AuthTimeoutSeconds) * time.Second
}

// FetchTimeout returns the per-request timeout for home and zone calls
func (c TadoConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// TokenConfig selects where the refresh token lives
type TokenConfig struct {
	Backend string `json:"backend" yaml:"backend"` // "file" or "sqlite"
	Path    string `json:"path" yaml:"path"`
}

// RefreshConfig contains refresh loop settings
type RefreshConfig struct {
	PeriodSeconds int `json:"period_seconds" yaml:"period_seconds"`
}

// Period returns the refresh interval
func (c RefreshConfig) Period() time.Duration {
	return time.Duration(c.PeriodSeconds) * time.Second
}

// BusConfig contains the D-Bus binding
type BusConfig struct {
	Type      string `json:"type" yaml:"type"` // "system" or "session"
	Name      string `json:"name" yaml:"name"`
	Interface string `json:"interface" yaml:"interface"`
	Path      string `json:"path" yaml:"path"`
}

// HTTPConfig contains the status API and /metrics endpoint; empty Listen disables it
type HTTPConfig struct {
	Listen string `json:"listen" yaml:"listen"`
	APIKey string `json:"api_key" yaml:"api_key"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // "text" or "json"
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Tado: TadoConfig{
			ClientID:            "1bb50063-6b0c-4d11-bd99-387f4a91cc46",
			TokenURL:            "https://login.tado.com/oauth2/token",
			BaseURL:             "https://my.tado.com",
			AuthTimeoutSeconds:  10,
			FetchTimeoutSeconds: 10,
		},
		Token: TokenConfig{
			Backend: "file",
			Path:    "/var/local/tado/refresh_token",
		},
		Refresh: RefreshConfig{
			PeriodSeconds: MinPeriodSeconds,
		},
		Bus: BusConfig{
			Type: "system",
			Name: "name.slagter.erik.tadoif",
			Path: "/",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Tado.ClientID == "" {
		return fmt.Errorf("%w: tado client id is required", ErrInvalidConfig)
	}

	if c.Tado.TokenURL == "" || c.Tado.BaseURL == "" {
		return fmt.Errorf("%w: tado token and base URLs are required", ErrInvalidConfig)
	}

	if c.Tado.AuthTimeoutSeconds <= 0 || c.Tado.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: tado timeouts must be positive", ErrInvalidConfig)
	}

	switch c.Token.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("%w: unknown token backend %q", ErrInvalidConfig, c.Token.Backend)
	}

	if c.Token.Path == "" {
		return fmt.Errorf("%w: token path is required", ErrInvalidConfig)
	}

	if c.Refresh.PeriodSeconds < MinPeriodSeconds {
		return fmt.Errorf("%w: refresh period must be at least %d seconds, got %d",
			ErrInvalidConfig, MinPeriodSeconds, c.Refresh.PeriodSeconds)
	}

	switch c.Bus.Type {
	case "system", "session":
	default:
		return fmt.Errorf("%w: unknown bus type %q", ErrInvalidConfig, c.Bus.Type)
	}

	if c.Bus.Name == "" {
		return fmt.Errorf("%w: bus name is required", ErrInvalidConfig)
	}

	if c.Bus.Interface == "" {
		c.Bus.Interface = c.Bus.Name
	}

	if !strings.HasPrefix(c.Bus.Path, "/") {
		return fmt.Errorf("%w: bus object path must start with /", ErrInvalidConfig)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Log.Format)
	}

	return nil
}

// Load loads configuration from a YAML (.yaml, .yml) or JSON file.
// Values not present in the file keep their defaults; ${VAR} references are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigFileNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	config := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadFromEnv loads configuration from TADOIF_* environment variables on top of the defaults.
// This is useful for containerized deployments
func LoadFromEnv() (*Config, error) {
	d := Default()
	config := &Config{
		Tado: TadoConfig{
			ClientID:            getEnv("TADOIF_CLIENT_ID", d.Tado.ClientID),
			TokenURL:            getEnv("TADOIF_TOKEN_URL", d.Tado.TokenURL),
			BaseURL:             getEnv("TADOIF_BASE_URL", d.Tado.BaseURL),
			AuthTimeoutSeconds:  getEnvInt("TADOIF_AUTH_TIMEOUT", d.Tado.AuthTimeoutSeconds),
			FetchTimeoutSeconds: getEnvInt("TADOIF_FETCH_TIMEOUT", d.Tado.FetchTimeoutSeconds),
		},
		Token: TokenConfig{
			Backend: getEnv("TADOIF_TOKEN_BACKEND", d.Token.Backend),
			Path:    getEnv("TADOIF_TOKEN_PATH", d.Token.Path),
		},
		Refresh: RefreshConfig{
			PeriodSeconds: getEnvInt("TADOIF_PERIOD", d.Refresh.PeriodSeconds),
		},
		Bus: BusConfig{
			Type:      getEnv("TADOIF_BUS", d.Bus.Type),
			Name:      getEnv("TADOIF_BUS_NAME", d.Bus.Name),
			Interface: getEnv("TADOIF_BUS_INTERFACE", ""),
			Path:      getEnv("TADOIF_BUS_PATH", d.Bus.Path),
		},
		HTTP: HTTPConfig{
			Listen: getEnv("TADOIF_HTTP_LISTEN", ""),
			APIKey: getEnv("TADOIF_API_KEY", ""),
		},
		Log: LogConfig{
			Level:  getEnv("TADOIF_LOG_LEVEL", d.Log.Level),
			Format: getEnv("TADOIF_LOG_FORMAT", d.Log.Format),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns defaultValue when key is unset; a malformed value yields 0 and fails validation
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		intVal, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return 0
		}
		return intVal
	}
	return defaultValue
}
