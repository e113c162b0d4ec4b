package schema

import (
	"strings"

	"github.com/datalith/strata/pkg/errors"
)

// Node is one node of the schema tree: either a Group with ordered children
// or a Leaf with a physical type. Trees are immutable once handed to New.
type Node struct {
	Name       string
	Rep        Repetition
	Children   []*Node // non-nil only for groups
	Type       Type    // leaves only
	TypeLength int     // FixedLenByteArray leaves only

	leaf bool
}

// Group creates a group node with ordered children
func Group(name string, rep Repetition, children ...*Node) *Node {
	return &Node{Name: name, Rep: rep, Children: children}
}

// Leaf creates a leaf node with the given physical type
func Leaf(name string, rep Repetition, typ Type) *Node {
	return &Node{Name: name, Rep: rep, Type: typ, leaf: true}
}

// FixedLeaf creates a FixedLenByteArray leaf with the given byte width
func FixedLeaf(name string, rep Repetition, length int) *Node {
	return &Node{Name: name, Rep: rep, Type: FixedLenByteArray, TypeLength: length, leaf: true}
}

// IsLeaf reports whether the node is a leaf
func (n *Node) IsLeaf() bool { return n.leaf }

// Child returns the child with the given name, or nil
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ColumnDescriptor describes one leaf column, derived once when the schema
// tree is finalized and never mutated afterward.
type ColumnDescriptor struct {
	// Path is the dotted path of the leaf from the root (root name excluded)
	Path string
	// PathParts holds the path split at the dots
	PathParts []string
	// Type is the physical type of the leaf
	Type Type
	// TypeLength is the byte width for FixedLenByteArray leaves
	TypeLength int
	// MaxRepetitionLevel is the number of repeated ancestors, leaf included
	MaxRepetitionLevel int
	// MaxDefinitionLevel is the number of optional or repeated ancestors,
	// leaf included
	MaxDefinitionLevel int
	// Index is the position of the leaf in schema traversal order
	Index int
}

// Schema is a finalized schema tree together with its column descriptors.
// It is shared read-only by shredder, assembler and row group coordinator.
type Schema struct {
	root    *Node
	columns []*ColumnDescriptor
	byPath  map[string]*ColumnDescriptor
}

// New validates the tree rooted at root and derives its column descriptors.
// The root must be a Required group and every leaf path must be unique.
func New(root *Node) (*Schema, error) {
	if root == nil || root.IsLeaf() {
		return nil, errors.New(errors.KindSchemaViolation, "schema root must be a group")
	}
	if root.Rep != Required {
		return nil, errors.New(errors.KindSchemaViolation, "schema root must be required")
	}

	s := &Schema{root: root, byPath: make(map[string]*ColumnDescriptor)}
	if err := s.collect(root, nil, 0, 0); err != nil {
		return nil, err
	}
	if len(s.columns) == 0 {
		return nil, errors.New(errors.KindSchemaViolation, "schema has no leaf columns")
	}
	return s, nil
}

// MustNew is New for schemas known to be valid, panicking otherwise
func MustNew(root *Node) *Schema {
	s, err := New(root)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) collect(n *Node, path []string, maxRep, maxDef int) error {
	if n != s.root {
		path = append(path, n.Name)
		switch n.Rep {
		case Repeated:
			maxRep++
			maxDef++
		case Optional:
			maxDef++
		}
	}

	if n.IsLeaf() {
		if n.Type == FixedLenByteArray && n.TypeLength <= 0 {
			return errors.Newf(errors.KindSchemaViolation,
				"fixed length leaf %q needs a positive type length", n.Name)
		}
		dotted := strings.Join(path, ".")
		if _, dup := s.byPath[dotted]; dup {
			return errors.Newf(errors.KindSchemaViolation, "duplicate leaf path %q", dotted)
		}
		desc := &ColumnDescriptor{
			Path:               dotted,
			PathParts:          append([]string(nil), path...),
			Type:               n.Type,
			TypeLength:         n.TypeLength,
			MaxRepetitionLevel: maxRep,
			MaxDefinitionLevel: maxDef,
			Index:              len(s.columns),
		}
		s.columns = append(s.columns, desc)
		s.byPath[dotted] = desc
		return nil
	}

	if len(n.Children) == 0 {
		return errors.Newf(errors.KindSchemaViolation, "group %q has no children", n.Name)
	}
	for _, c := range n.Children {
		if err := s.collect(c, path, maxRep, maxDef); err != nil {
			return err
		}
	}
	return nil
}

// Root returns the root node
func (s *Schema) Root() *Node { return s.root }

// Columns returns the leaf column descriptors in schema order
func (s *Schema) Columns() []*ColumnDescriptor { return s.columns }

// Column returns the descriptor for a dotted path, or nil
func (s *Schema) Column(path string) *ColumnDescriptor { return s.byPath[path] }

// NumColumns returns the number of leaf columns
func (s *Schema) NumColumns() int { return len(s.columns) }
