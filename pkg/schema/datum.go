package schema

import (
	"bytes"
	"fmt"
	"math"
)

// Datum is a single leaf value of one physical type. The zero Datum is not
// valid; construct values through the typed constructors so the kind tag and
// payload always agree.
type Datum struct {
	typ Type
	b   bool
	i   int64
	f   float64
	raw []byte // Int96, ByteArray and FixedLenByteArray payloads
}

// BooleanDatum returns a Boolean datum
func BooleanDatum(v bool) Datum { return Datum{typ: Boolean, b: v} }

// Int32Datum returns an Int32 datum
func Int32Datum(v int32) Datum { return Datum{typ: Int32, i: int64(v)} }

// Int64Datum returns an Int64 datum
func Int64Datum(v int64) Datum { return Datum{typ: Int64, i: v} }

// Int96Datum returns an Int96 datum from its 12-byte representation
func Int96Datum(v [12]byte) Datum {
	raw := make([]byte, 12)
	copy(raw, v[:])
	return Datum{typ: Int96, raw: raw}
}

// FloatDatum returns a Float datum
func FloatDatum(v float32) Datum { return Datum{typ: Float, f: float64(v)} }

// DoubleDatum returns a Double datum
func DoubleDatum(v float64) Datum { return Datum{typ: Double, f: v} }

// ByteArrayDatum returns a ByteArray datum. The slice is retained, not copied.
func ByteArrayDatum(v []byte) Datum { return Datum{typ: ByteArray, raw: v} }

// StringDatum returns a ByteArray datum holding the bytes of s
func StringDatum(s string) Datum { return Datum{typ: ByteArray, raw: []byte(s)} }

// FixedDatum returns a FixedLenByteArray datum. The slice is retained.
func FixedDatum(v []byte) Datum { return Datum{typ: FixedLenByteArray, raw: v} }

// Type returns the physical type of the datum
func (d Datum) Type() Type { return d.typ }

// Boolean returns the boolean payload
func (d Datum) Boolean() bool { return d.b }

// Int32 returns the int32 payload
func (d Datum) Int32() int32 { return int32(d.i) }

// Int64 returns the int64 payload
func (d Datum) Int64() int64 { return d.i }

// Float returns the float32 payload
func (d Datum) Float() float32 { return float32(d.f) }

// Double returns the float64 payload
func (d Datum) Double() float64 { return d.f }

// Bytes returns the raw payload of Int96, ByteArray and FixedLenByteArray
func (d Datum) Bytes() []byte { return d.raw }

// String renders the datum for error messages and debug logs
func (d Datum) String() string {
	switch d.typ {
	case Boolean:
		return fmt.Sprintf("%v", d.b)
	case Int32, Int64:
		return fmt.Sprintf("%d", d.i)
	case Float, Double:
		return fmt.Sprintf("%g", d.f)
	case ByteArray:
		return fmt.Sprintf("%q", d.raw)
	default:
		return fmt.Sprintf("0x%x", d.raw)
	}
}

// Equal reports whether two datums hold the same type and value
func (d Datum) Equal(o Datum) bool {
	if d.typ != o.typ {
		return false
	}
	switch d.typ {
	case Boolean:
		return d.b == o.b
	case Int32, Int64:
		return d.i == o.i
	case Float, Double:
		// NaN compares equal to itself so round trips are stable
		return d.f == o.f || (math.IsNaN(d.f) && math.IsNaN(o.f))
	default:
		return bytes.Equal(d.raw, o.raw)
	}
}

// Less orders two datums of the same physical type. Byte arrays compare
// lexicographically by unsigned bytes; this is the ordering used for
// column chunk min/max statistics.
func (d Datum) Less(o Datum) bool {
	switch d.typ {
	case Boolean:
		return !d.b && o.b
	case Int32, Int64:
		return d.i < o.i
	case Float, Double:
		return d.f < o.f
	default:
		return bytes.Compare(d.raw, o.raw) < 0
	}
}

// Key returns a map key identifying the value, used by dictionary encoders
func (d Datum) Key() string {
	switch d.typ {
	case Boolean:
		if d.b {
			return "t"
		}
		return "f"
	case Int32, Int64:
		return fmt.Sprintf("i%d", d.i)
	case Float, Double:
		return fmt.Sprintf("f%x", math.Float64bits(d.f))
	default:
		return string(d.raw)
	}
}
