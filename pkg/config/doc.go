// Package config provides application configuration from an optional YAML file
// and environment variables.
//
// # Overview
//
// Defaults come first, then the YAML file (when a path is given), then
// CONCEPTDOC_* environment variables. The result is validated before it is
// returned.
//
// # Configuration Structure
//
// Server settings:
//
//	CONCEPTDOC_HOST="0.0.0.0"
//	CONCEPTDOC_PORT="8080"
//	CONCEPTDOC_HEALTH_PORT="9090"
//	CONCEPTDOC_REQUEST_TIMEOUT="30s"
//
// Browser settings:
//
//	CONCEPTDOC_PUBLIC_DIR="/srv/conceptdoc/public"  # empty serves embedded assets
//	CONCEPTDOC_HIGHLIGHT_STYLE="github"
//
// Storage settings:
//
//	CONCEPTDOC_STORAGE_TYPE="sqlite"  # filesystem, postgres, sqlite, s3
//	CONCEPTDOC_FILESYSTEM_ROOT="/var/conceptdoc/data"
//	CONCEPTDOC_POSTGRES_URL="postgres://localhost/conceptdoc"
//	CONCEPTDOC_SQLITE_PATH="/var/conceptdoc/docs.db"
//	CONCEPTDOC_S3_BUCKET="conceptdoc-snapshots"
//	CONCEPTDOC_S3_REFRESH_SCHEDULE="@every 5m"
//
// Cache settings:
//
//	CONCEPTDOC_CACHE_ENABLED="true"
//	CONCEPTDOC_REDIS_URL="redis://localhost:6379"
//	CONCEPTDOC_CACHE_ENTITY_TTL="5m"
//
// Observability settings:
//
//	CONCEPTDOC_LOG_LEVEL="info"  # debug, info, warn, error
//	CONCEPTDOC_OTEL_ENABLED="true"
//	CONCEPTDOC_OTEL_ENDPOINT="otel-collector:4317"
//
// The same settings in a file:
//
//	server:
//	  port: "8080"
//	browser:
//	  highlight_style: monokai
//	storage:
//	  type: sqlite
//	  sqlite_path: ./docs.db
//	observability:
//	  log_level: debug
//
// # Usage Example
//
//	cfg, err := config.LoadFile("config.yml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("Storage: %s\n", cfg.Storage.Type)
//
// # Related Packages
//
//   - pkg/storage: Uses storage configuration
//   - pkg/observability: Uses observability configuration
package config
