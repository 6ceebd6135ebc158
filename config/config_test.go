package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	config := Default()
	require.NoError(t, config.Validate())

	assert.Equal(t, "/var/local/tado/refresh_token", config.Token.Path)
	assert.Equal(t, "file", config.Token.Backend)
	assert.Equal(t, 60*time.Second, config.Refresh.Period())
	assert.Equal(t, 10*time.Second, config.Tado.AuthTimeout())
	assert.Equal(t, 10*time.Second, config.Tado.FetchTimeout())
	assert.Equal(t, "name.slagter.erik.tadoif", config.Bus.Interface)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{
			name:   "defaults",
			modify: func(c *Config) {},
		},
		{
			name:   "sqlite backend on session bus",
			modify: func(c *Config) { c.Token.Backend = "sqlite"; c.Bus.Type = "session" },
		},
		{
			name:    "period below minimum",
			modify:  func(c *Config) { c.Refresh.PeriodSeconds = 59 },
			wantErr: true,
		},
		{
			name:   "period at minimum",
			modify: func(c *Config) { c.Refresh.PeriodSeconds = 60 },
		},
		{
			name:    "missing client id",
			modify:  func(c *Config) { c.Tado.ClientID = "" },
			wantErr: true,
		},
		{
			name:    "missing token URL",
			modify:  func(c *Config) { c.Tado.TokenURL = "" },
			wantErr: true,
		},
		{
			name:    "zero fetch timeout",
			modify:  func(c *Config) { c.Tado.FetchTimeoutSeconds = 0 },
			wantErr: true,
		},
		{
			name:    "unknown token backend",
			modify:  func(c *Config) { c.Token.Backend = "redis" },
			wantErr: true,
		},
		{
			name:    "missing token path",
			modify:  func(c *Config) { c.Token.Path = "" },
			wantErr: true,
		},
		{
			name:    "unknown bus",
			modify:  func(c *Config) { c.Bus.Type = "starship" },
			wantErr: true,
		},
		{
			name:    "relative object path",
			modify:  func(c *Config) { c.Bus.Path = "tadoif" },
			wantErr: true,
		},
		{
			name:    "unknown log format",
			modify:  func(c *Config) { c.Log.Format = "xml" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.modify(config)

			err := config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_JSON(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.json")

	validConfig := `{
		"token": {"path": "/tmp/tado/refresh_token"},
		"refresh": {"period_seconds": 300},
		"bus": {"type": "session"}
	}`

	err := os.WriteFile(configPath, []byte(validConfig), 0644)
	require.NoError(t, err)

	config, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/tado/refresh_token", config.Token.Path)
	assert.Equal(t, 5*time.Minute, config.Refresh.Period())
	assert.Equal(t, "session", config.Bus.Type)

	// Untouched sections keep their defaults
	assert.Equal(t, "file", config.Token.Backend)
	assert.Equal(t, "https://login.tado.com/oauth2/token", config.Tado.TokenURL)
	assert.Equal(t, "name.slagter.erik.tadoif", config.Bus.Name)

	// Test file not found
	_, err = Load(filepath.Join(tmpDir, "nonexistent.json"))
	assert.ErrorIs(t, err, ErrConfigFileNotFound)

	// Test invalid JSON
	invalidPath := filepath.Join(tmpDir, "invalid.json")
	err = os.WriteFile(invalidPath, []byte("invalid json"), 0644)
	require.NoError(t, err)

	_, err = Load(invalidPath)
	assert.Error(t, err)
}

func TestLoad_YAML(t *testing.T) {
	t.Setenv("TADOIF_TEST_DIR", "/srv/tado")
	t.Setenv("TADOIF_TEST_KEY", "s3cret")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yamlConfig := `
token:
  backend: sqlite
  path: ${TADOIF_TEST_DIR}/tokens.db
refresh:
  period_seconds: 120
http:
  listen: "127.0.0.1:9464"
  api_key: ${TADOIF_TEST_KEY}
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(configPath, []byte(yamlConfig), 0644))

	config, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", config.Token.Backend)
	assert.Equal(t, "/srv/tado/tokens.db", config.Token.Path)
	assert.Equal(t, 2*time.Minute, config.Refresh.Period())
	assert.Equal(t, "127.0.0.1:9464", config.HTTP.Listen)
	assert.Equal(t, "s3cret", config.HTTP.APIKey)
	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
	assert.Equal(t, "system", config.Bus.Type)
}

func TestLoad_RejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte("refresh:\n  period_seconds: 30\n"), 0644))

	_, err := Load(configPath)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TADOIF_TOKEN_BACKEND", "sqlite")
	t.Setenv("TADOIF_TOKEN_PATH", "/custom/tokens.db")
	t.Setenv("TADOIF_PERIOD", "90")
	t.Setenv("TADOIF_BUS", "session")
	t.Setenv("TADOIF_BUS_INTERFACE", "org.example.Tado")
	t.Setenv("TADOIF_HTTP_LISTEN", ":9464")

	config, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", config.Token.Backend)
	assert.Equal(t, "/custom/tokens.db", config.Token.Path)
	assert.Equal(t, 90*time.Second, config.Refresh.Period())
	assert.Equal(t, "session", config.Bus.Type)
	assert.Equal(t, "name.slagter.erik.tadoif", config.Bus.Name)
	assert.Equal(t, "org.example.Tado", config.Bus.Interface)
	assert.Equal(t, ":9464", config.HTTP.Listen)
	assert.Empty(t, config.HTTP.APIKey)
	assert.Equal(t, "1bb50063-6b0c-4d11-bd99-387f4a91cc46", config.Tado.ClientID)
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "period too short", key: "TADOIF_PERIOD", value: "30"},
		{name: "period not a number", key: "TADOIF_PERIOD", value: "soon"},
		{name: "unknown backend", key: "TADOIF_TOKEN_BACKEND", value: "etcd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := LoadFromEnv()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
