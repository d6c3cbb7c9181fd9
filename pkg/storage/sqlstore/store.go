package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/conceptdoc/pkg/entity"
	"github.com/platinummonkey/conceptdoc/pkg/observability"
	"github.com/platinummonkey/conceptdoc/pkg/storage"
)

var tracer = otel.Tracer("github.com/platinummonkey/conceptdoc/pkg/storage/sqlstore")

// Store implements storage.Store on top of a SQL database
type Store struct {
	conns   *ConnectionManager
	metrics *observability.Metrics
}

var _ storage.Store = (*Store)(nil)

// Open connects to the database described by cfg
func Open(cfg storage.Config, logger *observability.Logger, metrics *observability.Metrics) (*Store, error) {
	connCfg := ConnectionConfig{
		MaxConns:    cfg.MaxConns,
		MinConns:    cfg.MinConns,
		Timeout:     cfg.Timeout,
		MaxLifetime: 1 * time.Hour,
		MaxIdleTime: 10 * time.Minute,
	}

	switch cfg.Type {
	case storage.TypePostgres:
		connCfg.Dialect = Postgres
		connCfg.PrimaryURL = cfg.PostgresURL
		connCfg.ReplicaURLs = ParseReplicaURLs(cfg.PostgresReplicaURLs)
	case storage.TypeSQLite:
		connCfg.Dialect = SQLite
		connCfg.PrimaryURL = cfg.SQLitePath
		// SQLite allows a single writer
		connCfg.MaxConns = 1
	default:
		return nil, fmt.Errorf("sqlstore does not support storage type %q", cfg.Type)
	}

	conns, err := NewConnectionManager(connCfg, logger)
	if err != nil {
		return nil, err
	}

	s := New(conns, metrics)
	if cfg.Migrate {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := s.Migrate(ctx); err != nil {
			conns.Close()
			return nil, err
		}
	}
	return s, nil
}

// New creates a store over existing connections; metrics may be nil
func New(conns *ConnectionManager, metrics *observability.Metrics) *Store {
	return &Store{conns: conns, metrics: metrics}
}

// Connections exposes the connection manager
func (s *Store) Connections() *ConnectionManager {
	return s.conns
}

func (s *Store) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("db.system", string(s.conns.Dialect())),
		attribute.String("db.operation", op),
	)
	return tracer.Start(ctx, "sqlstore."+op, trace.WithAttributes(attrs...))
}

func (s *Store) observe(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordStorageOperation(op, string(s.conns.Dialect()), time.Since(start), err)
}

// Get implements entity.Source. The records reachable from id are loaded
// breadth first and materialized with the entity graph's cycle guard.
func (s *Store) Get(ctx context.Context, id int64) (_ *entity.Entity, err error) {
	ctx, span := s.startSpan(ctx, "Get", attribute.Int64("entity.id", id))
	defer span.End()
	start := time.Now()
	defer func() { s.observe("get", start, err) }()

	db := s.conns.Replica()

	var records []entity.Record
	loaded := make(map[int64]bool)
	queue := []int64{id}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if loaded[next] {
			continue
		}
		loaded[next] = true

		rec, err := s.loadRecord(ctx, db, next)
		if errors.Is(err, entity.ErrNotFound) && next != id {
			// dangling link target
			continue
		}
		if err != nil {
			if !errors.Is(err, entity.ErrNotFound) {
				span.RecordError(err)
				span.SetStatus(codes.Error, "failed to load entity")
			}
			return nil, err
		}
		records = append(records, *rec)

		for _, ref := range rec.Links {
			for _, target := range ref.Targets {
				if !loaded[target] {
					queue = append(queue, target)
				}
			}
		}
	}

	graph, err := entity.NewGraph(records)
	if err != nil {
		return nil, fmt.Errorf("invalid entity data: %w", err)
	}

	span.SetAttributes(attribute.Int("entity.records", len(records)))
	return graph.Materialize(id)
}

func (s *Store) loadRecord(ctx context.Context, db *sql.DB, id int64) (*entity.Record, error) {
	d := s.conns.Dialect()
	rec := &entity.Record{ID: id}

	err := db.QueryRowContext(ctx, d.Rebind(`SELECT concept FROM entities WHERE id = ?`), id).Scan(&rec.Concept)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", entity.ErrNotFound, id)
	} else if err != nil {
		return nil, fmt.Errorf("failed to get entity %d: %w", id, err)
	}

	rows, err := db.QueryContext(ctx, d.Rebind(`
		SELECT name, value
		FROM entity_attributes
		WHERE entity_id = ?
		ORDER BY position
	`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get attributes of %d: %w", id, err)
	}
	for rows.Next() {
		var attr entity.Attribute
		if err := rows.Scan(&attr.Name, &attr.Value); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan attribute: %w", err)
		}
		rec.Attributes = append(rec.Attributes, attr)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read attributes of %d: %w", id, err)
	}

	rows, err = db.QueryContext(ctx, d.Rebind(`
		SELECT name, target_id
		FROM entity_links
		WHERE source_id = ?
		ORDER BY position
	`), id)
	if err != nil {
		return nil, fmt.Errorf("failed to get links of %d: %w", id, err)
	}
	defer rows.Close()

	index := make(map[string]int)
	for rows.Next() {
		var name string
		var target sql.NullInt64
		if err := rows.Scan(&name, &target); err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		i, ok := index[name]
		if !ok {
			i = len(rec.Links)
			index[name] = i
			rec.Links = append(rec.Links, entity.LinkRef{Name: name})
		}
		if target.Valid {
			rec.Links[i].Targets = append(rec.Links[i].Targets, target.Int64)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read links of %d: %w", id, err)
	}

	return rec, nil
}

const treeNodeColumns = `
	e.id,
	e.concept,
	(SELECT a.value FROM entity_attributes a
		WHERE a.entity_id = e.id AND a.name = 'name'
		ORDER BY a.position LIMIT 1),
	CASE WHEN EXISTS (SELECT 1 FROM entity_links l
		WHERE l.source_id = e.id AND l.target_id IS NOT NULL) THEN 0 ELSE 1 END`

// TreeLevel implements entity.Source
func (s *Store) TreeLevel(ctx context.Context, parent *int64) (_ []entity.TreeNode, err error) {
	ctx, span := s.startSpan(ctx, "TreeLevel")
	defer span.End()
	start := time.Now()
	defer func() { s.observe("tree_level", start, err) }()

	db := s.conns.Replica()
	d := s.conns.Dialect()

	var rows *sql.Rows
	if parent == nil {
		rows, err = db.QueryContext(ctx, `
			SELECT `+treeNodeColumns+`
			FROM entities e
			WHERE NOT EXISTS (SELECT 1 FROM entity_links t WHERE t.target_id = e.id)
			ORDER BY e.id
		`)
	} else {
		span.SetAttributes(attribute.Int64("entity.parent", *parent))

		var exists int
		err = db.QueryRowContext(ctx, d.Rebind(`SELECT 1 FROM entities WHERE id = ?`), *parent).Scan(&exists)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %d", entity.ErrNotFound, *parent)
		} else if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("failed to get entity %d: %w", *parent, err)
		}

		rows, err = db.QueryContext(ctx, d.Rebind(`
			SELECT `+treeNodeColumns+`
			FROM entities e
			JOIN (
				SELECT target_id, MIN(position) AS pos
				FROM entity_links
				WHERE source_id = ? AND target_id IS NOT NULL
				GROUP BY target_id
			) c ON c.target_id = e.id
			ORDER BY c.pos
		`), *parent)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list tree level")
		return nil, fmt.Errorf("failed to list tree level: %w", err)
	}
	defer rows.Close()

	nodes := []entity.TreeNode{}
	for rows.Next() {
		var (
			id      int64
			concept string
			name    sql.NullString
			leaf    int
		)
		if err := rows.Scan(&id, &concept, &name, &leaf); err != nil {
			return nil, fmt.Errorf("failed to scan tree node: %w", err)
		}
		nodes = append(nodes, entity.NewTreeNode(id, concept, name.String, leaf == 1))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tree level: %w", err)
	}
	return nodes, nil
}

// Import writes records to the primary in one transaction, replacing any
// existing rows with the same ids
func (s *Store) Import(ctx context.Context, records []entity.Record) (err error) {
	ctx, span := s.startSpan(ctx, "Import", attribute.Int("entity.records", len(records)))
	defer span.End()
	start := time.Now()
	defer func() { s.observe("import", start, err) }()

	if _, err := entity.NewGraph(records); err != nil {
		return fmt.Errorf("invalid records: %w", err)
	}

	d := s.conns.Dialect()
	tx, err := s.conns.Primary().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range records {
		for _, stmt := range []string{
			`DELETE FROM entity_links WHERE source_id = ?`,
			`DELETE FROM entity_attributes WHERE entity_id = ?`,
			`DELETE FROM entities WHERE id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, d.Rebind(stmt), rec.ID); err != nil {
				return fmt.Errorf("failed to clear entity %d: %w", rec.ID, err)
			}
		}

		if _, err := tx.ExecContext(ctx, d.Rebind(`INSERT INTO entities (id, concept) VALUES (?, ?)`), rec.ID, rec.Concept); err != nil {
			return fmt.Errorf("failed to insert entity %d: %w", rec.ID, err)
		}

		for pos, attr := range rec.Attributes {
			_, err := tx.ExecContext(ctx, d.Rebind(`
				INSERT INTO entity_attributes (entity_id, position, name, value)
				VALUES (?, ?, ?, ?)
			`), rec.ID, pos, attr.Name, attr.Value)
			if err != nil {
				return fmt.Errorf("failed to insert attribute %q of %d: %w", attr.Name, rec.ID, err)
			}
		}

		pos := 0
		for _, ref := range rec.Links {
			targets := make([]sql.NullInt64, 0, len(ref.Targets))
			for _, target := range ref.Targets {
				targets = append(targets, sql.NullInt64{Int64: target, Valid: true})
			}
			if len(targets) == 0 {
				targets = append(targets, sql.NullInt64{})
			}
			for _, target := range targets {
				_, err := tx.ExecContext(ctx, d.Rebind(`
					INSERT INTO entity_links (source_id, name, position, target_id)
					VALUES (?, ?, ?, ?)
				`), rec.ID, ref.Name, pos, target)
				if err != nil {
					return fmt.Errorf("failed to insert link %q of %d: %w", ref.Name, rec.ID, err)
				}
				pos++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// HealthCheck implements storage.Store
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.conns.HealthCheck(ctx)
}

// Close implements storage.Store
func (s *Store) Close() error {
	return s.conns.Close()
}
