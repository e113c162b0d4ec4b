// Package shred converts nested logical records into flat per-column
// level/value streams and reconstructs records from those streams.
package shred

import (
	"fmt"
	"sort"
	"strings"

	"github.com/datalith/strata/pkg/schema"
)

type valueKind uint8

const (
	kindNull valueKind = iota
	kindDatum
	kindGroup
	kindList
)

// Value is one node of a nested logical record. It is either a null, a
// leaf datum, a group of named fields, or a repeated list of values.
// A missing group field and an explicit Null are interchangeable, as are
// a null and an empty list for repeated fields.
type Value struct {
	kind   valueKind
	datum  schema.Datum
	fields map[string]Value
	items  []Value
}

// Null returns the absent value
func Null() Value { return Value{kind: kindNull} }

// Of wraps a leaf datum
func Of(d schema.Datum) Value { return Value{kind: kindDatum, datum: d} }

// Record builds a group value from named fields
func Record(fields map[string]Value) Value {
	return Value{kind: kindGroup, fields: fields}
}

// List builds a repeated value from its elements
func List(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: kindList, items: items}
}

// IsNull reports whether the value is absent
func (v Value) IsNull() bool { return v.kind == kindNull }

// IsDatum reports whether the value is a leaf datum
func (v Value) IsDatum() bool { return v.kind == kindDatum }

// IsGroup reports whether the value is a group
func (v Value) IsGroup() bool { return v.kind == kindGroup }

// IsList reports whether the value is a repeated list
func (v Value) IsList() bool { return v.kind == kindList }

// Datum returns the leaf datum; only valid when IsDatum
func (v Value) Datum() schema.Datum { return v.datum }

// Field returns the named field of a group, Null when missing
func (v Value) Field(name string) Value {
	if v.kind != kindGroup {
		return Null()
	}
	f, ok := v.fields[name]
	if !ok {
		return Null()
	}
	return f
}

// Items returns the elements of a list
func (v Value) Items() []Value { return v.items }

// Equal compares two values structurally. Missing group fields compare
// equal to Null, and a null compares equal to an empty list.
func (v Value) Equal(o Value) bool {
	if v.kind == kindNull && o.kind == kindList {
		return len(o.items) == 0
	}
	if v.kind == kindList && o.kind == kindNull {
		return len(v.items) == 0
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case kindNull:
		return true
	case kindDatum:
		return v.datum.Equal(o.datum)
	case kindList:
		if len(v.items) != len(o.items) {
			return false
		}
		for i := range v.items {
			if !v.items[i].Equal(o.items[i]) {
				return false
			}
		}
		return true
	case kindGroup:
		for _, name := range unionKeys(v.fields, o.fields) {
			if !v.Field(name).Equal(o.Field(name)) {
				return false
			}
		}
		return true
	}
	return false
}

func unionKeys(a, b map[string]Value) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String renders the value for logs and test failures
func (v Value) String() string {
	switch v.kind {
	case kindNull:
		return "null"
	case kindDatum:
		return v.datum.String()
	case kindList:
		parts := make([]string, len(v.items))
		for i, it := range v.items {
			parts[i] = it.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case kindGroup:
		keys := unionKeys(v.fields, nil)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s: %s", k, v.fields[k].String())
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	return "?"
}
