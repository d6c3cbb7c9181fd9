package entity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const fixture = `
- id: 1
  concept: function
  attributes:
    name: add
    description: Adds two numbers
  links:
    return: 2
    argument: [3, 4]
- id: 2
  concept: type
  attributes:
    name: int
- id: 3
  concept: argument
  attributes:
    name: a
  links:
    type: [2]
- id: 4
  concept: argument
  attributes:
    name: b
- id: 10
  concept: article
  attributes:
    title: Guide
`

func loadFixture(t *testing.T) *Graph {
	t.Helper()
	var records []Record
	require.NoError(t, yaml.Unmarshal([]byte(fixture), &records))
	g, err := NewGraph(records)
	require.NoError(t, err)
	return g
}

func TestGraph_Materialize(t *testing.T) {
	g := loadFixture(t)
	assert.Equal(t, 5, g.Len())

	e, err := g.Materialize(1)
	require.NoError(t, err)

	assert.Equal(t, "function", e.Concept)
	assert.Equal(t, "add", e.Name())
	assert.Equal(t, []string{"return", "argument"}, linkNames(e.Links))

	ret, ok := e.Links.First("return")
	require.True(t, ok)
	assert.Equal(t, "int", ret.Name())

	args, _ := e.Links.Lookup("argument")
	require.Len(t, args, 2)
	assert.Equal(t, "a", args[0].Name())
	argType, ok := args[0].Links.First("type")
	require.True(t, ok)
	assert.Equal(t, "int", argType.Name())
	assert.Equal(t, "b", args[1].Name())
}

func TestGraph_MaterializeNotFound(t *testing.T) {
	g := loadFixture(t)
	_, err := g.Materialize(99)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGraph_MaterializeCycle(t *testing.T) {
	records := []Record{
		{ID: 1, Concept: "article", Links: LinkRefs{{Name: "section", Targets: []int64{2}}}},
		{ID: 2, Concept: "article", Links: LinkRefs{{Name: "section", Targets: []int64{1, 3}}}},
		{ID: 3, Concept: "article"},
	}
	g, err := NewGraph(records)
	require.NoError(t, err)

	e, err := g.Materialize(1)
	require.NoError(t, err)

	child, ok := e.Links.First("section")
	require.True(t, ok)
	assert.Equal(t, int64(2), child.ID)

	grandchildren, _ := child.Links.Lookup("section")
	require.Len(t, grandchildren, 1, "ancestor 1 must not be expanded again")
	assert.Equal(t, int64(3), grandchildren[0].ID)
}

func TestGraph_MaterializeSkipsDanglingTargets(t *testing.T) {
	g, err := NewGraph([]Record{
		{ID: 1, Concept: "article", Links: LinkRefs{{Name: "section", Targets: []int64{404}}}},
	})
	require.NoError(t, err)

	e, err := g.Materialize(1)
	require.NoError(t, err)
	targets, ok := e.Links.Lookup("section")
	assert.True(t, ok, "link name survives even when empty")
	assert.Empty(t, targets)
}

func TestNewGraph_Errors(t *testing.T) {
	_, err := NewGraph([]Record{{ID: 1, Concept: "a"}, {ID: 1, Concept: "b"}})
	assert.Error(t, err)

	_, err = NewGraph([]Record{{ID: 1}})
	assert.Error(t, err)
}

func TestGraph_TreeLevel(t *testing.T) {
	g := loadFixture(t)

	roots, err := g.TreeLevel(nil)
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, "1", roots[0].ID)
	assert.Equal(t, "Function: add", roots[0].Text)
	assert.False(t, roots[0].Leaf)
	assert.Equal(t, "c-function", roots[0].Class)
	assert.Equal(t, "10", roots[1].ID)
	assert.True(t, roots[1].Leaf)

	parent := int64(1)
	children, err := g.TreeLevel(&parent)
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.Equal(t, []string{"2", "3", "4"}, []string{children[0].ID, children[1].ID, children[2].ID})

	missing := int64(404)
	_, err = g.TreeLevel(&missing)
	assert.True(t, errors.Is(err, ErrNotFound))
}
