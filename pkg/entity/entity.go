package entity

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

var (
	// ErrNotFound is returned when an entity does not exist
	ErrNotFound = errors.New("entity not found")
	// ErrInvalidID is returned when an entity identifier cannot be parsed
	ErrInvalidID = errors.New("invalid entity id")
)

// Source is the read-only access contract to the entity data source
type Source interface {
	// Get returns the fully materialized entity tree rooted at id
	Get(ctx context.Context, id int64) (*Entity, error)
	// TreeLevel lists the browser tree nodes under parent, or the top level when parent is nil
	TreeLevel(ctx context.Context, parent *int64) ([]TreeNode, error)
}

// Attribute is a single named scalar value
type Attribute struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Attributes is an ordered attribute set
type Attributes []Attribute

// Lookup returns the named attribute and whether it is present
func (a Attributes) Lookup(name string) (Attribute, bool) {
	for _, attr := range a {
		if attr.Name == name {
			return attr, true
		}
	}
	return Attribute{}, false
}

// Has reports whether the attribute is present, even if empty
func (a Attributes) Has(name string) bool {
	_, ok := a.Lookup(name)
	return ok
}

// Value returns the attribute value, or "" when absent
func (a Attributes) Value(name string) string {
	attr, _ := a.Lookup(name)
	return attr.Value
}

// NonEmpty reports whether the attribute is present with a non-empty value
func (a Attributes) NonEmpty(name string) bool {
	return a.Value(name) != ""
}

// UnmarshalYAML decodes a YAML mapping into attributes, keeping key order
func (a *Attributes) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("attributes must be a mapping, got line %d", node.Line)
	}
	attrs := make(Attributes, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return fmt.Errorf("attribute %q must be a scalar (line %d)", key.Value, val.Line)
		}
		value := val.Value
		if val.Tag == "!!null" {
			value = ""
		}
		attrs = append(attrs, Attribute{Name: key.Value, Value: value})
	}
	*a = attrs
	return nil
}

// Link is a named, ordered collection of target entities
type Link struct {
	Name    string    `json:"name"`
	Targets []*Entity `json:"targets"`
}

// Links is an ordered set of named links
type Links []Link

// Lookup returns the targets of the named link and whether the link is present
func (l Links) Lookup(name string) ([]*Entity, bool) {
	for _, link := range l {
		if link.Name == name {
			return link.Targets, true
		}
	}
	return nil, false
}

// Has reports whether the named link is present, even with no targets
func (l Links) Has(name string) bool {
	_, ok := l.Lookup(name)
	return ok
}

// First returns the first target of the named link
func (l Links) First(name string) (*Entity, bool) {
	targets, _ := l.Lookup(name)
	if len(targets) == 0 {
		return nil, false
	}
	return targets[0], true
}

// Entity is an immutable snapshot of one entity and its linked subtree
type Entity struct {
	ID         int64      `json:"id"`
	Concept    string     `json:"concept"`
	Attributes Attributes `json:"attributes"`
	Links      Links      `json:"links"`
}

// Name returns the value of the name attribute
func (e *Entity) Name() string {
	return e.Attributes.Value("name")
}

// Label returns the tree label for an entity: capitalized concept and name
func Label(concept, name string) string {
	label := Capitalize(concept)
	if name != "" {
		label += ": " + name
	}
	return label
}

// Capitalize upper-cases the first rune and lower-cases the rest
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	rest := []rune(s[size:])
	for i, c := range rest {
		rest[i] = unicode.ToLower(c)
	}
	return string(unicode.ToUpper(r)) + string(rest)
}

// ParseID parses an entity identifier from a request or command argument
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return id, nil
}

// TreeNode is one node of the browser navigation tree
type TreeNode struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Leaf    bool   `json:"leaf"`
	Concept string `json:"concept"`
	Class   string `json:"cls"`
}
