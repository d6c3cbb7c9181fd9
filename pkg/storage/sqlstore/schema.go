package sqlstore

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS entities (
		id BIGINT PRIMARY KEY,
		concept VARCHAR(255) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS entity_attributes (
		entity_id BIGINT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name VARCHAR(255) NOT NULL,
		value TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (entity_id, position)
	)`,
	`CREATE TABLE IF NOT EXISTS entity_links (
		source_id BIGINT NOT NULL REFERENCES entities(id) ON DELETE CASCADE,
		name VARCHAR(255) NOT NULL,
		position INTEGER NOT NULL,
		target_id BIGINT,
		PRIMARY KEY (source_id, position)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_entity_links_target ON entity_links (target_id)`,
}

// Migrate creates the entity tables when they do not exist
func (s *Store) Migrate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "sqlstore.Migrate")
	defer span.End()

	for _, stmt := range schema {
		if _, err := s.conns.Primary().ExecContext(ctx, stmt); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}
