// Package storage provides the entity sources the concept browser reads from.
//
// # Overview
//
// Every backend implements Store, which is an entity.Source plus health and
// lifecycle hooks:
//
//	type Store interface {
//		entity.Source
//		HealthCheck(ctx context.Context) error
//		Close() error
//	}
//
// # Backends
//
// FileSystemStorage: loads YAML fixture files from a directory into an
// in-memory graph. Optional fsnotify watching reloads the graph when files change.
//
//	store, err := storage.NewFileSystemStorage("./data")
//
// sqlstore.Store: reads the entities, entity_attributes and entity_links
// tables from PostgreSQL (lib/pq) or SQLite (go-sqlite3). Reads can be spread
// over PostgreSQL replicas.
//
// s3store.Store: loads a snapshot.json document from an S3 bucket and
// refreshes it on a cron schedule.
//
// cache.Store wraps any Store with an in-process LRU and optional Redis tier.
// Only entities and tree levels are cached, never rendered markup.
//
// # Configuration
//
//	cfg := storage.DefaultConfig()
//	cfg.Type = storage.TypePostgres
//	cfg.PostgresURL = "postgres://localhost/conceptdoc?sslmode=disable"
//	cfg.RedisURL = "redis://localhost:6379"
//	cfg.CacheTTL["entity"] = 10 * time.Minute
package storage
