// Package entity defines the read-only view of a documentation entity that the
// renderer and the HTTP layer consume.
//
// # Overview
//
// An entity has a concept type (article, function, or anything else), an ordered
// set of named attributes and an ordered set of named links to child entities.
// Attribute access is three-state: absent, present but empty, or present with a
// value.
//
//	attr, ok := e.Attributes.Lookup("content")
//	switch {
//	case !ok:
//		// absent
//	case attr.Value == "":
//		// present, empty
//	default:
//		// present with a value
//	}
//
// # Records and Graphs
//
// Storage backends keep entities as flat records whose links hold target IDs.
// A Graph indexes records and materializes them into entity trees on demand:
//
//	g, err := entity.NewGraph(records)
//	e, err := g.Materialize(42)
//	nodes := g.TreeLevel(nil) // top level of the browser tree
//
// # Related Packages
//
//   - pkg/render: Renders entities into HTML fragments
//   - pkg/storage: Backends implementing Source
package entity
