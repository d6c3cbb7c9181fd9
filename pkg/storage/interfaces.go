package storage

import (
	"context"
	"time"

	"github.com/platinummonkey/conceptdoc/pkg/entity"
)

// Store is a read-only entity backend
type Store interface {
	entity.Source

	// HealthCheck reports whether the backend can serve reads
	HealthCheck(ctx context.Context) error

	// Close releases backend resources
	Close() error
}

// Backend types
const (
	TypeFilesystem = "filesystem"
	TypePostgres   = "postgres"
	TypeSQLite     = "sqlite"
	TypeS3         = "s3"
)

// Config for storage backend
type Config struct {
	Type string `yaml:"type"` // "filesystem", "postgres", "sqlite", "s3"

	// Filesystem config
	FilesystemRoot  string `yaml:"filesystem_root"`
	FilesystemWatch bool   `yaml:"filesystem_watch"`

	// SQL config
	PostgresURL         string        `yaml:"postgres_url"`
	PostgresReplicaURLs string        `yaml:"postgres_replica_urls"` // comma separated
	SQLitePath          string        `yaml:"sqlite_path"`
	MaxConns            int           `yaml:"max_conns"`
	MinConns            int           `yaml:"min_conns"`
	Timeout             time.Duration `yaml:"timeout"`
	Migrate             bool          `yaml:"migrate"`

	// S3 config
	S3Endpoint      string `yaml:"s3_endpoint"`
	S3Region        string `yaml:"s3_region"`
	S3Bucket        string `yaml:"s3_bucket"`
	S3Prefix        string `yaml:"s3_prefix"`
	S3AccessKey     string `yaml:"s3_access_key"`
	S3SecretKey     string `yaml:"s3_secret_key"`
	S3UsePathStyle  bool   `yaml:"s3_use_path_style"`
	RefreshSchedule string `yaml:"refresh_schedule"` // cron spec

	// Redis config
	RedisURL        string `yaml:"redis_url"`
	RedisPassword   string `yaml:"redis_password"`
	RedisDB         int    `yaml:"redis_db"`
	RedisMaxRetries int    `yaml:"redis_max_retries"`
	RedisPoolSize   int    `yaml:"redis_pool_size"`

	// Cache config
	CacheEnabled bool                     `yaml:"cache_enabled"`
	CacheTTL     map[string]time.Duration `yaml:"cache_ttl"`
	L1CacheSize  int                      `yaml:"l1_cache_size"` // entries
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:            TypeFilesystem,
		FilesystemRoot:  "./data",
		FilesystemWatch: true,
		SQLitePath:      "./conceptdoc.db",
		MaxConns:        20,
		MinConns:        2,
		Timeout:         10 * time.Second,
		S3Region:        "us-east-1",
		RefreshSchedule: "@every 5m",
		RedisDB:         0,
		RedisMaxRetries: 3,
		RedisPoolSize:   10,
		CacheEnabled:    true,
		CacheTTL: map[string]time.Duration{
			"entity": 5 * time.Minute,
			"tree":   1 * time.Minute,
		},
		L1CacheSize: 1024,
	}
}
