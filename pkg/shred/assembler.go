package shred

import (
	"github.com/datalith/strata/pkg/errors"
	"github.com/datalith/strata/pkg/schema"
)

// EntryStream yields the decoded level/value entries of one leaf column.
// Peek returns the next entry without consuming it; both return ok=false
// once the stream is exhausted.
type EntryStream interface {
	Peek() (FlatEntry, bool, error)
	Next() (FlatEntry, bool, error)
}

// SliceStream adapts an in-memory entry slice to EntryStream
type SliceStream struct {
	entries []FlatEntry
	pos     int
}

// NewSliceStream wraps entries without copying them
func NewSliceStream(entries []FlatEntry) *SliceStream {
	return &SliceStream{entries: entries}
}

// Peek returns the next entry without consuming it
func (s *SliceStream) Peek() (FlatEntry, bool, error) {
	if s.pos >= len(s.entries) {
		return FlatEntry{}, false, nil
	}
	return s.entries[s.pos], true, nil
}

// Next consumes and returns the next entry
func (s *SliceStream) Next() (FlatEntry, bool, error) {
	e, ok, err := s.Peek()
	if ok {
		s.pos++
	}
	return e, ok, err
}

// Assembler reconstructs nested records from one EntryStream per leaf
// column, in schema order. It is the inverse of Shredder.Shred.
type Assembler struct {
	schema  *schema.Schema
	streams []EntryStream
	*layout
}

// NewAssembler pairs the schema with one stream per leaf column
func NewAssembler(s *schema.Schema, streams []EntryStream) (*Assembler, error) {
	if len(streams) != s.NumColumns() {
		return nil, errors.Newf(errors.KindStructuralCorruption,
			"schema has %d leaf columns but %d streams were supplied",
			s.NumColumns(), len(streams))
	}
	return &Assembler{schema: s, streams: streams, layout: newLayout(s.Root())}, nil
}

// ReadRecord reconstructs the next record. It returns ok=false once every
// stream is exhausted; a mix of exhausted and pending streams, or a stream
// not positioned at a record boundary, is structural corruption.
func (a *Assembler) ReadRecord() (Value, bool, error) {
	exhausted := 0
	for i, st := range a.streams {
		e, ok, err := st.Peek()
		if err != nil {
			return Value{}, false, err
		}
		if !ok {
			exhausted++
			continue
		}
		if e.RepLevel != 0 {
			return Value{}, false, errors.Newf(errors.KindStructuralCorruption,
				"column %d not at a record boundary (repetition level %d)",
				i, e.RepLevel)
		}
	}
	if exhausted == len(a.streams) {
		return Value{}, false, nil
	}
	if exhausted > 0 {
		return Value{}, false, errors.Newf(errors.KindStructuralCorruption,
			"%d of %d column streams ended mid-record", exhausted, len(a.streams))
	}

	root := a.schema.Root()
	fields := make(map[string]Value, len(root.Children))
	for _, child := range root.Children {
		v, err := a.build(child, 0, 0)
		if err != nil {
			return Value{}, false, err
		}
		fields[child.Name] = v
	}
	return Record(fields), true, nil
}

// build materializes one occurrence slot of n. repDepth is the number of
// repeated ancestors above n, def the definition level accumulated by the
// present ancestors so far.
func (a *Assembler) build(n *schema.Node, repDepth, def int) (Value, error) {
	lead := a.streams[a.firstLeaf(n)]

	switch n.Rep {
	case schema.Repeated:
		e, ok, err := lead.Peek()
		if err != nil {
			return Value{}, err
		}
		if !ok {
			return Value{}, errors.Newf(errors.KindStructuralCorruption,
				"stream for %q ended mid-record", n.Name)
		}
		if e.DefLevel <= def {
			// empty list: one placeholder entry per leaf below n
			if err := a.consumeAbsent(n, def); err != nil {
				return Value{}, err
			}
			return List(), nil
		}
		childDepth := repDepth + 1
		var items []Value
		for {
			item, err := a.content(n, childDepth, def+1)
			if err != nil {
				return Value{}, err
			}
			items = append(items, item)

			e, ok, err := lead.Peek()
			if err != nil {
				return Value{}, err
			}
			if !ok || e.RepLevel < childDepth {
				return List(items...), nil
			}
			if e.RepLevel > childDepth {
				return Value{}, errors.Newf(errors.KindStructuralCorruption,
					"repetition level %d exceeds list depth %d at %q",
					e.RepLevel, childDepth, n.Name)
			}
		}

	case schema.Optional:
		e, ok, err := lead.Peek()
		if err != nil {
			return Value{}, err
		}
		if !ok {
			return Value{}, errors.Newf(errors.KindStructuralCorruption,
				"stream for %q ended mid-record", n.Name)
		}
		if e.DefLevel <= def {
			if err := a.consumeAbsent(n, def); err != nil {
				return Value{}, err
			}
			return Null(), nil
		}
		return a.content(n, repDepth, def+1)

	default:
		return a.content(n, repDepth, def)
	}
}

// content materializes the body of one present occurrence of n
func (a *Assembler) content(n *schema.Node, repDepth, def int) (Value, error) {
	if n.IsLeaf() {
		e, ok, err := a.streams[a.leafIndex[n]].Next()
		if err != nil {
			return Value{}, err
		}
		if !ok {
			return Value{}, errors.Newf(errors.KindStructuralCorruption,
				"stream for %q ended mid-record", n.Name)
		}
		if e.Datum == nil {
			return Value{}, errors.Newf(errors.KindStructuralCorruption,
				"definition level %d promises a value for %q but none is present",
				e.DefLevel, n.Name)
		}
		return Of(*e.Datum), nil
	}

	fields := make(map[string]Value, len(n.Children))
	for _, child := range n.Children {
		v, err := a.build(child, repDepth, def)
		if err != nil {
			return Value{}, err
		}
		fields[child.Name] = v
	}
	return Record(fields), nil
}

// consumeAbsent advances every leaf below n past one placeholder entry
func (a *Assembler) consumeAbsent(n *schema.Node, def int) error {
	r := a.subtree[n]
	for col := r[0]; col < r[1]; col++ {
		e, ok, err := a.streams[col].Next()
		if err != nil {
			return err
		}
		if !ok {
			return errors.Newf(errors.KindStructuralCorruption,
				"stream for column %d ended mid-record", col)
		}
		if e.DefLevel > def {
			return errors.Newf(errors.KindStructuralCorruption,
				"column %d reports definition level %d inside an absent branch capped at %d",
				col, e.DefLevel, def)
		}
	}
	return nil
}
