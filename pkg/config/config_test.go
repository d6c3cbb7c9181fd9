package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/conceptdoc/pkg/observability"
	"github.com/platinummonkey/conceptdoc/pkg/storage"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEST_VAR_NOT_SET",
			defaultValue: "default",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(envPrefix+tt.key, tt.envValue)
			}
			assert.Equal(t, tt.want, getEnv(tt.key, tt.defaultValue))
		})
	}
}

// TestGetEnvBool tests the getEnvBool helper function
func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		defaultValue bool
		envValue     string
		want         bool
	}{
		{name: "returns true for 'true'", envValue: "true", want: true},
		{name: "returns true for '1'", envValue: "1", want: true},
		{name: "returns true for 'TRUE'", envValue: "TRUE", want: true},
		{name: "returns false for 'false'", defaultValue: true, envValue: "false", want: false},
		{name: "returns false for junk", defaultValue: true, envValue: "yes", want: false},
		{name: "returns default when unset", defaultValue: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(envPrefix+"TEST_BOOL", tt.envValue)
			}
			assert.Equal(t, tt.want, getEnvBool("TEST_BOOL", tt.defaultValue))
		})
	}
}

func TestGetEnvNumbers(t *testing.T) {
	t.Setenv(envPrefix+"TEST_INT", "42")
	t.Setenv(envPrefix+"TEST_BAD_INT", "forty-two")
	t.Setenv(envPrefix+"TEST_FLOAT", "0.25")
	t.Setenv(envPrefix+"TEST_DURATION", "90s")
	t.Setenv(envPrefix+"TEST_BAD_DURATION", "soon")

	assert.Equal(t, 42, getEnvInt("TEST_INT", 1))
	assert.Equal(t, 1, getEnvInt("TEST_BAD_INT", 1))
	assert.Equal(t, 0.25, getEnvFloat("TEST_FLOAT", 1))
	assert.Equal(t, 90*time.Second, getEnvDuration("TEST_DURATION", time.Second))
	assert.Equal(t, time.Second, getEnvDuration("TEST_BAD_DURATION", time.Second))
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "github", cfg.Browser.HighlightStyle)
	assert.Empty(t, cfg.Browser.PublicDir)
	assert.Equal(t, storage.TypeFilesystem, cfg.Storage.Type)
	assert.Equal(t, observability.InfoLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.MetricsEnabled)
	assert.False(t, cfg.Observability.OTelEnabled)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("CONCEPTDOC_PORT", "8000")
	t.Setenv("CONCEPTDOC_HEALTH_PORT", "8001")
	t.Setenv("CONCEPTDOC_PUBLIC_DIR", "/srv/public")
	t.Setenv("CONCEPTDOC_HIGHLIGHT_STYLE", "monokai")
	t.Setenv("CONCEPTDOC_STORAGE_TYPE", "postgres")
	t.Setenv("CONCEPTDOC_POSTGRES_URL", "postgres://localhost/docs")
	t.Setenv("CONCEPTDOC_DB_MAX_CONNS", "7")
	t.Setenv("CONCEPTDOC_REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("CONCEPTDOC_CACHE_ENTITY_TTL", "2m")
	t.Setenv("CONCEPTDOC_LOG_LEVEL", "debug")
	t.Setenv("CONCEPTDOC_OTEL_SAMPLE_RATIO", "0.5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "8001", cfg.Server.HealthPort)
	assert.Equal(t, "/srv/public", cfg.Browser.PublicDir)
	assert.Equal(t, "monokai", cfg.Browser.HighlightStyle)
	assert.Equal(t, storage.TypePostgres, cfg.Storage.Type)
	assert.Equal(t, "postgres://localhost/docs", cfg.Storage.PostgresURL)
	assert.Equal(t, 7, cfg.Storage.MaxConns)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Storage.RedisURL)
	assert.Equal(t, 2*time.Minute, cfg.Storage.CacheTTL["entity"])
	assert.Equal(t, time.Minute, cfg.Storage.CacheTTL["tree"])
	assert.Equal(t, observability.DebugLevel, cfg.Observability.LogLevel)
	assert.Equal(t, 0.5, cfg.Observability.OTel().SampleRatio)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "7000"
  read_timeout: 5s
browser:
  highlight_style: dracula
storage:
  type: sqlite
  sqlite_path: /tmp/docs.db
  cache_ttl:
    tree: 10s
observability:
  log_level: warn
  otel_enabled: true
`), 0o644))

	t.Setenv("CONCEPTDOC_PORT", "7100")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	// environment wins over the file
	assert.Equal(t, "7100", cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	// untouched keys keep their defaults
	assert.Equal(t, 15*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "dracula", cfg.Browser.HighlightStyle)
	assert.Equal(t, storage.TypeSQLite, cfg.Storage.Type)
	assert.Equal(t, "/tmp/docs.db", cfg.Storage.SQLitePath)
	assert.Equal(t, 10*time.Second, cfg.Storage.CacheTTL["tree"])
	assert.Equal(t, observability.WarnLevel, cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.OTelEnabled)
	assert.Equal(t, "conceptdoc", cfg.Observability.OTelServiceName)
}

func TestLoadFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yml"))
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yml")
		require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o644))
		_, err := LoadFile(path)
		assert.ErrorContains(t, err, "failed to parse config file")
	})

	t.Run("unknown log level", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "level.yml")
		require.NoError(t, os.WriteFile(path, []byte("observability:\n  log_level: loud\n"), 0o644))
		_, err := LoadFile(path)
		assert.Error(t, err)
	})

	t.Run("invalid result", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "invalid.yml")
		require.NoError(t, os.WriteFile(path, []byte("storage:\n  type: hybrid\n"), 0o644))
		_, err := LoadFile(path)
		assert.ErrorContains(t, err, "invalid storage type: hybrid")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			modify: func(*Config) {},
		},
		{
			name:    "missing port",
			modify:  func(c *Config) { c.Server.Port = "" },
			wantErr: "server port is required",
		},
		{
			name:    "missing health port",
			modify:  func(c *Config) { c.Server.HealthPort = "" },
			wantErr: "health port is required",
		},
		{
			name:    "same ports",
			modify:  func(c *Config) { c.Server.HealthPort = c.Server.Port },
			wantErr: "must be different",
		},
		{
			name:    "filesystem without root",
			modify:  func(c *Config) { c.Storage.FilesystemRoot = "" },
			wantErr: "filesystem root is required",
		},
		{
			name:    "postgres without url",
			modify:  func(c *Config) { c.Storage.Type = storage.TypePostgres },
			wantErr: "postgres URL is required",
		},
		{
			name: "postgres with url",
			modify: func(c *Config) {
				c.Storage.Type = storage.TypePostgres
				c.Storage.PostgresURL = "postgres://localhost/docs"
			},
		},
		{
			name: "sqlite without path",
			modify: func(c *Config) {
				c.Storage.Type = storage.TypeSQLite
				c.Storage.SQLitePath = ""
			},
			wantErr: "sqlite path is required",
		},
		{
			name:    "s3 without bucket",
			modify:  func(c *Config) { c.Storage.Type = storage.TypeS3 },
			wantErr: "S3 bucket is required",
		},
		{
			name: "s3 without schedule",
			modify: func(c *Config) {
				c.Storage.Type = storage.TypeS3
				c.Storage.S3Bucket = "docs"
				c.Storage.RefreshSchedule = ""
			},
			wantErr: "refresh schedule is required",
		},
		{
			name: "otel without endpoint",
			modify: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelEndpoint = ""
			},
			wantErr: "OpenTelemetry endpoint is required",
		},
		{
			name:    "negative sample ratio",
			modify:  func(c *Config) { c.Observability.OTelSampleRatio = -1 },
			wantErr: "sample ratio must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = ""
	cfg.Storage.Type = "tape"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server port is required")
	assert.Contains(t, err.Error(), "invalid storage type: tape")
}
