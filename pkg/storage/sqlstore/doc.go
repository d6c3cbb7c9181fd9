// Package sqlstore reads entities from a relational database.
//
// Three tables hold the flat entity records:
//
//	entities(id, concept)
//	entity_attributes(entity_id, position, name, value)
//	entity_links(source_id, name, position, target_id)
//
// Attribute and link order follow the position column. A link row with a NULL
// target records a link name that has no targets. PostgreSQL (lib/pq) and
// SQLite (go-sqlite3) are supported; queries are written with '?' placeholders
// and rebound for the active dialect. Reads are spread over PostgreSQL read
// replicas when configured, writes (Migrate, Import) go to the primary.
package sqlstore
