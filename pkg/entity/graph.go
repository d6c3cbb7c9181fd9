package entity

import (
	"fmt"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LinkRef is the storage form of a link: a name and ordered target IDs
type LinkRef struct {
	Name    string  `json:"name"`
	Targets []int64 `json:"targets"`
}

// LinkRefs is an ordered set of link references
type LinkRefs []LinkRef

// UnmarshalYAML decodes a mapping of link name to target ID list, keeping key order
func (l *LinkRefs) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("links must be a mapping, got line %d", node.Line)
	}
	refs := make(LinkRefs, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		ref := LinkRef{Name: key.Value}
		switch val.Kind {
		case yaml.ScalarNode:
			if val.Tag != "!!null" {
				var id int64
				if err := val.Decode(&id); err != nil {
					return fmt.Errorf("link %q: %w", key.Value, err)
				}
				ref.Targets = []int64{id}
			}
		case yaml.SequenceNode:
			if err := val.Decode(&ref.Targets); err != nil {
				return fmt.Errorf("link %q: %w", key.Value, err)
			}
		default:
			return fmt.Errorf("link %q must be an id or a list of ids (line %d)", key.Value, val.Line)
		}
		refs = append(refs, ref)
	}
	*l = refs
	return nil
}

// Record is the flat storage form of an entity
type Record struct {
	ID         int64      `json:"id" yaml:"id"`
	Concept    string     `json:"concept" yaml:"concept"`
	Attributes Attributes `json:"attributes" yaml:"attributes"`
	Links      LinkRefs   `json:"links" yaml:"links"`
}

// Graph indexes records and materializes entity trees from them
type Graph struct {
	records map[int64]*Record
	order   []int64
	targets map[int64]bool
}

// NewGraph builds a graph from records; duplicate IDs are rejected
func NewGraph(records []Record) (*Graph, error) {
	g := &Graph{
		records: make(map[int64]*Record, len(records)),
		order:   make([]int64, 0, len(records)),
		targets: make(map[int64]bool),
	}

	for i := range records {
		rec := records[i]
		if rec.Concept == "" {
			return nil, fmt.Errorf("entity %d has no concept", rec.ID)
		}
		if _, exists := g.records[rec.ID]; exists {
			return nil, fmt.Errorf("duplicate entity id %d", rec.ID)
		}
		g.records[rec.ID] = &rec
		g.order = append(g.order, rec.ID)
		for _, ref := range rec.Links {
			for _, target := range ref.Targets {
				g.targets[target] = true
			}
		}
	}

	sort.Slice(g.order, func(i, j int) bool { return g.order[i] < g.order[j] })
	return g, nil
}

// Len returns the number of records in the graph
func (g *Graph) Len() int {
	return len(g.records)
}

// Materialize resolves the record with the given id into an entity tree.
// A target already on the current resolution path is left out, so cyclic
// link data still yields a finite tree. Dangling targets are skipped.
func (g *Graph) Materialize(id int64) (*Entity, error) {
	rec, ok := g.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return g.build(rec, make(map[int64]bool)), nil
}

func (g *Graph) build(rec *Record, path map[int64]bool) *Entity {
	path[rec.ID] = true
	defer delete(path, rec.ID)

	e := &Entity{
		ID:         rec.ID,
		Concept:    rec.Concept,
		Attributes: append(Attributes(nil), rec.Attributes...),
		Links:      make(Links, 0, len(rec.Links)),
	}

	for _, ref := range rec.Links {
		link := Link{Name: ref.Name, Targets: make([]*Entity, 0, len(ref.Targets))}
		for _, targetID := range ref.Targets {
			if path[targetID] {
				continue
			}
			target, ok := g.records[targetID]
			if !ok {
				continue
			}
			link.Targets = append(link.Targets, g.build(target, path))
		}
		e.Links = append(e.Links, link)
	}

	return e
}

// TreeLevel lists the nodes below parent. With a nil parent it lists the
// records that are not the target of any link, ordered by id.
func (g *Graph) TreeLevel(parent *int64) ([]TreeNode, error) {
	nodes := []TreeNode{}

	if parent == nil {
		for _, id := range g.order {
			if !g.targets[id] {
				nodes = append(nodes, g.node(g.records[id]))
			}
		}
		return nodes, nil
	}

	rec, ok := g.records[*parent]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, *parent)
	}

	seen := make(map[int64]bool)
	for _, ref := range rec.Links {
		for _, targetID := range ref.Targets {
			child, ok := g.records[targetID]
			if !ok || seen[targetID] {
				continue
			}
			seen[targetID] = true
			nodes = append(nodes, g.node(child))
		}
	}
	return nodes, nil
}

func (g *Graph) node(rec *Record) TreeNode {
	leaf := true
	for _, ref := range rec.Links {
		if len(ref.Targets) > 0 {
			leaf = false
			break
		}
	}
	return NewTreeNode(rec.ID, rec.Concept, rec.Attributes.Value("name"), leaf)
}

// NewTreeNode builds a navigation tree node
func NewTreeNode(id int64, concept, name string, leaf bool) TreeNode {
	return TreeNode{
		ID:      strconv.FormatInt(id, 10),
		Text:    Label(concept, name),
		Leaf:    leaf,
		Concept: concept,
		Class:   "c-" + concept,
	}
}
