package sqlstore

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/conceptdoc/pkg/entity"
	"github.com/platinummonkey/conceptdoc/pkg/observability"
	"github.com/platinummonkey/conceptdoc/pkg/storage"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	conns := NewConnectionManagerFromDB(db, ConnectionConfig{Dialect: Postgres})
	return New(conns, nil), mock
}

func TestStore_Get(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT concept FROM entities WHERE id = \$1`).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"concept"}).AddRow("function"))
	mock.ExpectQuery(`FROM entity_attributes WHERE entity_id = \$1`).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"name", "value"}).
			AddRow("name", "add").
			AddRow("description", ""))
	mock.ExpectQuery(`FROM entity_links WHERE source_id = \$1`).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"name", "target_id"}).
			AddRow("return", 2).
			AddRow("argument", 3).
			AddRow("see", nil))

	mock.ExpectQuery(`SELECT concept FROM entities WHERE id = \$1`).WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"concept"}).AddRow("type"))
	mock.ExpectQuery(`FROM entity_attributes WHERE entity_id = \$1`).WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"name", "value"}).AddRow("name", "int"))
	mock.ExpectQuery(`FROM entity_links WHERE source_id = \$1`).WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"name", "target_id"}))

	// dangling target
	mock.ExpectQuery(`SELECT concept FROM entities WHERE id = \$1`).WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"concept"}))

	e, err := store.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, "function", e.Concept)
	assert.Equal(t, "add", e.Name())

	desc, ok := e.Attributes.Lookup("description")
	assert.True(t, ok)
	assert.Empty(t, desc.Value)

	assert.Equal(t, []string{"return", "argument", "see"}, linkNames(e.Links))
	ret, ok := e.Links.First("return")
	require.True(t, ok)
	assert.Equal(t, "int", ret.Name())

	args, ok := e.Links.Lookup("argument")
	assert.True(t, ok)
	assert.Empty(t, args)
}

func TestStore_GetNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT concept FROM entities WHERE id = \$1`).WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"concept"}))

	_, err := store.Get(context.Background(), 99)
	assert.True(t, errors.Is(err, entity.ErrNotFound))
}

func TestStore_GetQueryError(t *testing.T) {
	store, mock := newMockStore(t)

	registry := prometheus.NewRegistry()
	store.metrics = observability.NewMetrics(registry)

	mock.ExpectQuery(`SELECT concept FROM entities`).WithArgs(1).
		WillReturnError(errors.New("connection reset"))

	_, err := store.Get(context.Background(), 1)
	require.Error(t, err)
	assert.False(t, errors.Is(err, entity.ErrNotFound))
	assert.Equal(t, float64(1), testutil.ToFloat64(store.metrics.StorageErrorsTotal.WithLabelValues("get", "postgres", "internal")))
}

func TestStore_GetCycle(t *testing.T) {
	store, mock := newMockStore(t)

	for _, rec := range []struct{ id, target int64 }{{1, 2}, {2, 1}} {
		mock.ExpectQuery(`SELECT concept FROM entities`).WithArgs(rec.id).
			WillReturnRows(sqlmock.NewRows([]string{"concept"}).AddRow("article"))
		mock.ExpectQuery(`FROM entity_attributes`).WithArgs(rec.id).
			WillReturnRows(sqlmock.NewRows([]string{"name", "value"}))
		mock.ExpectQuery(`FROM entity_links`).WithArgs(rec.id).
			WillReturnRows(sqlmock.NewRows([]string{"name", "target_id"}).AddRow("section", rec.target))
	}

	e, err := store.Get(context.Background(), 1)
	require.NoError(t, err)

	child, ok := e.Links.First("section")
	require.True(t, ok)
	assert.Equal(t, int64(2), child.ID)
	back, ok := child.Links.Lookup("section")
	assert.True(t, ok)
	assert.Empty(t, back, "the cycle back to the root is cut")
}

func TestStore_TreeLevelRoots(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`WHERE NOT EXISTS \(SELECT 1 FROM entity_links t WHERE t.target_id = e.id\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "concept", "name", "leaf"}).
			AddRow(1, "function", "add", 0).
			AddRow(10, "article", nil, 1))

	nodes, err := store.TreeLevel(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	assert.Equal(t, entity.TreeNode{ID: "1", Text: "Function: add", Leaf: false, Concept: "function", Class: "c-function"}, nodes[0])
	assert.Equal(t, entity.TreeNode{ID: "10", Text: "Article", Leaf: true, Concept: "article", Class: "c-article"}, nodes[1])
}

func TestStore_TreeLevelChildren(t *testing.T) {
	store, mock := newMockStore(t)
	parent := int64(1)

	mock.ExpectQuery(`SELECT 1 FROM entities WHERE id = \$1`).WithArgs(parent).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))
	mock.ExpectQuery(`GROUP BY target_id`).WithArgs(parent).
		WillReturnRows(sqlmock.NewRows([]string{"id", "concept", "name", "leaf"}).
			AddRow(2, "type", "int", 1))

	nodes, err := store.TreeLevel(context.Background(), &parent)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "Type: int", nodes[0].Text)
	assert.True(t, nodes[0].Leaf)
}

func TestStore_TreeLevelUnknownParent(t *testing.T) {
	store, mock := newMockStore(t)
	parent := int64(404)

	mock.ExpectQuery(`SELECT 1 FROM entities WHERE id = \$1`).WithArgs(parent).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	_, err := store.TreeLevel(context.Background(), &parent)
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestStore_Import(t *testing.T) {
	store, mock := newMockStore(t)

	records := []entity.Record{{
		ID:         5,
		Concept:    "function",
		Attributes: entity.Attributes{{Name: "name", Value: "f"}},
		Links: entity.LinkRefs{
			{Name: "return", Targets: []int64{6}},
			{Name: "see"},
		},
	}}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM entity_links WHERE source_id = \$1`).WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM entity_attributes WHERE entity_id = \$1`).WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DELETE FROM entities WHERE id = \$1`).WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO entities`).WithArgs(5, "function").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO entity_attributes`).WithArgs(5, 0, "name", "f").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO entity_links`).WithArgs(5, "return", 0, 6).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO entity_links`).WithArgs(5, "see", 1, nil).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.Import(context.Background(), records))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ImportRollback(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM entity_links`).WillReturnError(errors.New("read only"))
	mock.ExpectRollback()

	err := store.Import(context.Background(), []entity.Record{{ID: 1, Concept: "type"}})
	assert.ErrorContains(t, err, "read only")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_ImportRejectsInvalidRecords(t *testing.T) {
	store, _ := newMockStore(t)
	err := store.Import(context.Background(), []entity.Record{{ID: 1}})
	assert.Error(t, err)
}

func TestStore_Migrate(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS entities`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS entity_attributes`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS entity_links`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS idx_entity_links_target`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOpen_UnsupportedType(t *testing.T) {
	cfg := storage.DefaultConfig()
	_, err := Open(cfg, observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{}), nil)
	assert.ErrorContains(t, err, "does not support")
}

func TestOpen_SQLiteRoundTrip(t *testing.T) {
	cfg := storage.DefaultConfig()
	cfg.Type = storage.TypeSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "entities.db")
	cfg.Migrate = true

	store, err := Open(cfg, observability.NewLogger(observability.ErrorLevel, &bytes.Buffer{}), nil)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Import(ctx, []entity.Record{
		{
			ID:         1,
			Concept:    "function",
			Attributes: entity.Attributes{{Name: "name", Value: "add"}, {Name: "description", Value: "Adds."}},
			Links:      entity.LinkRefs{{Name: "return", Targets: []int64{2}}, {Name: "argument", Targets: []int64{3, 2}}},
		},
		{ID: 2, Concept: "type", Attributes: entity.Attributes{{Name: "name", Value: "int"}}},
		{ID: 3, Concept: "argument", Attributes: entity.Attributes{{Name: "name", Value: "a"}}},
	}))

	e, err := store.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Adds.", e.Attributes.Value("description"))
	args, _ := e.Links.Lookup("argument")
	require.Len(t, args, 2)
	assert.Equal(t, "a", args[0].Name())
	assert.Equal(t, "int", args[1].Name())

	roots, err := store.TreeLevel(ctx, nil)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "Function: add", roots[0].Text)
	assert.False(t, roots[0].Leaf)

	parent := int64(1)
	children, err := store.TreeLevel(ctx, &parent)
	require.NoError(t, err)
	ids := make([]string, 0, len(children))
	for _, c := range children {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"2", "3"}, ids)

	_, err = store.Get(ctx, 42)
	assert.ErrorIs(t, err, entity.ErrNotFound)

	var count int
	require.NoError(t, store.Connections().Primary().QueryRow(`SELECT COUNT(*) FROM entity_links`).Scan(&count))
	assert.Equal(t, 3, count)
	assert.NoError(t, store.HealthCheck(ctx))

}

func linkNames(links entity.Links) []string {
	var names []string
	for _, link := range links {
		names = append(names, link.Name)
	}
	return names
}
