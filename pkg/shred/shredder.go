package shred

import (
	"github.com/datalith/strata/pkg/errors"
	"github.com/datalith/strata/pkg/schema"
)

// FlatEntry is one slot of a leaf column's flattened stream. Datum is nil
// when the slot marks an absent optional branch or an empty repeated list.
type FlatEntry struct {
	RepLevel int
	DefLevel int
	Datum    *schema.Datum
}

// Shredder dissects nested records into one FlatEntry stream per leaf
// column. It holds only derived read-only lookup tables, so a single
// Shredder may be shared across goroutines.
type Shredder struct {
	schema *schema.Schema
	*layout
}

// NewShredder derives the traversal tables for the given schema
func NewShredder(s *schema.Schema) *Shredder {
	return &Shredder{schema: s, layout: newLayout(s.Root())}
}

// Schema returns the schema the shredder was built for
func (sh *Shredder) Schema() *schema.Schema { return sh.schema }

// Shred flattens one record into per-column entry streams, one slice per
// leaf column in schema order. Every column receives at least one entry,
// and the first entry of each column carries repetition level zero.
func (sh *Shredder) Shred(record Value) ([][]FlatEntry, error) {
	if !record.IsGroup() {
		return nil, errors.New(errors.KindSchemaViolation, "record must be a group value")
	}
	out := make([][]FlatEntry, sh.schema.NumColumns())
	root := sh.schema.Root()
	for _, child := range root.Children {
		if err := sh.dissect(child, 0, record.Field(child.Name), 0, 0, out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// dissect handles the repetition kind of n before descending into its
// content. repDepth is the number of repeated ancestors above n, rep the
// repetition level for the first entry emitted below n, def the current
// definition level reached so far.
func (sh *Shredder) dissect(n *schema.Node, repDepth int, v Value, rep, def int, out [][]FlatEntry) error {
	switch n.Rep {
	case schema.Repeated:
		if v.IsNull() {
			v = List()
		}
		if !v.IsList() {
			return errors.Newf(errors.KindSchemaViolation,
				"repeated field %q needs a list value, got %s", n.Name, v)
		}
		items := v.Items()
		if len(items) == 0 {
			sh.emitAbsent(n, rep, def, out)
			return nil
		}
		childDepth := repDepth + 1
		for i, item := range items {
			r := rep
			if i > 0 {
				r = childDepth
			}
			if err := sh.content(n, childDepth, item, r, def+1, out); err != nil {
				return err
			}
		}
		return nil

	case schema.Optional:
		if v.IsNull() {
			sh.emitAbsent(n, rep, def, out)
			return nil
		}
		return sh.content(n, repDepth, v, rep, def+1, out)

	default: // required
		if v.IsNull() {
			return errors.Newf(errors.KindSchemaViolation,
				"required field %q is missing", n.Name)
		}
		return sh.content(n, repDepth, v, rep, def, out)
	}
}

// content emits a single occurrence of n: the leaf datum itself, or a
// recursive pass over the group's children.
func (sh *Shredder) content(n *schema.Node, repDepth int, v Value, rep, def int, out [][]FlatEntry) error {
	if n.IsLeaf() {
		if !v.IsDatum() {
			return errors.Newf(errors.KindSchemaViolation,
				"leaf field %q needs a %s value, got %s", n.Name, n.Type, v)
		}
		d := v.Datum()
		if d.Type() != n.Type {
			return errors.Newf(errors.KindSchemaViolation,
				"leaf field %q needs %s, got %s", n.Name, n.Type, d.Type())
		}
		if n.Type == schema.FixedLenByteArray && len(d.Bytes()) != n.TypeLength {
			return errors.Newf(errors.KindSchemaViolation,
				"leaf field %q needs %d bytes, got %d", n.Name, n.TypeLength, len(d.Bytes()))
		}
		col := sh.leafIndex[n]
		out[col] = append(out[col], FlatEntry{RepLevel: rep, DefLevel: def, Datum: &d})
		return nil
	}

	if !v.IsGroup() {
		return errors.Newf(errors.KindSchemaViolation,
			"group field %q needs a group value, got %s", n.Name, v)
	}
	for _, child := range n.Children {
		if err := sh.dissect(child, repDepth, v.Field(child.Name), rep, def, out); err != nil {
			return err
		}
	}
	return nil
}

// emitAbsent writes one valueless entry to every leaf column below n so
// the streams stay aligned at record boundaries.
func (sh *Shredder) emitAbsent(n *schema.Node, rep, def int, out [][]FlatEntry) {
	r := sh.subtree[n]
	for col := r[0]; col < r[1]; col++ {
		out[col] = append(out[col], FlatEntry{RepLevel: rep, DefLevel: def})
	}
}
