// Package schema models the logical nested schema of a columnar file: the
// fixed catalog of physical storage types, the tree of groups and leaves,
// and the per-leaf column descriptors derived when the tree is finalized.
package schema

// Type represents the physical storage type of a leaf column. The catalog is
// closed: every value in a column stream is stored with one of these on-wire
// layouts, little-endian for all multi-byte fields.
type Type int

const (
	// Boolean is a single bit, bit-packed LSB first in PLAIN encoding
	Boolean Type = iota
	// Int32 is a 4-byte little-endian signed integer
	Int32
	// Int64 is an 8-byte little-endian signed integer
	Int64
	// Int96 is a legacy 12-byte timestamp, three little-endian uint32 words
	Int96
	// Float is a 4-byte IEEE 754 value
	Float
	// Double is an 8-byte IEEE 754 value
	Double
	// ByteArray is a variable-length value, 4-byte little-endian length prefix
	ByteArray
	// FixedLenByteArray is a fixed-width value, width set per column
	FixedLenByteArray
)

// String returns the format name of the physical type
func (t Type) String() string {
	switch t {
	case Boolean:
		return "BOOLEAN"
	case Int32:
		return "INT32"
	case Int64:
		return "INT64"
	case Int96:
		return "INT96"
	case Float:
		return "FLOAT"
	case Double:
		return "DOUBLE"
	case ByteArray:
		return "BYTE_ARRAY"
	case FixedLenByteArray:
		return "FIXED_LEN_BYTE_ARRAY"
	default:
		return "UNKNOWN"
	}
}

// ByteWidth returns the fixed on-wire width of the type in bytes.
// Boolean and ByteArray have no fixed whole-byte width and return -1;
// FixedLenByteArray width comes from the column descriptor.
func (t Type) ByteWidth() int {
	switch t {
	case Int32, Float:
		return 4
	case Int64, Double:
		return 8
	case Int96:
		return 12
	default:
		return -1
	}
}

// Repetition is the repetition kind of a schema node
type Repetition int

const (
	// Required fields are always present, contribute to no levels
	Required Repetition = iota
	// Optional fields may be absent, contribute one definition level
	Optional
	// Repeated fields hold zero or more values, contribute one definition
	// level and one repetition level
	Repeated
)

// String returns the format name of the repetition kind
func (r Repetition) String() string {
	switch r {
	case Required:
		return "required"
	case Optional:
		return "optional"
	case Repeated:
		return "repeated"
	default:
		return "unknown"
	}
}
