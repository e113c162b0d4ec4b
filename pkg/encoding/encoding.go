// Package encoding implements the closed catalog of column value encodings:
// plain, dictionary, the RLE/bit-packed hybrid used for levels and
// dictionary indices, and the three delta encodings. Encoders buffer values
// and emit immutable byte slices; decoders consume caller-supplied slices
// and never read past them.
//
// The bit-level layouts are fixed by the format: little-endian fixed-width
// plain values, LSB-first bit packing, ULEB128 run headers with the low bit
// selecting the run type, and byte-aligned varint block headers for the
// delta encodings.
package encoding

import (
	"github.com/datalith/strata/pkg/errors"
	"github.com/datalith/strata/pkg/schema"
)

// Encoding identifies a value encoding on the wire
type Encoding uint8

const (
	// Plain is the little-endian fixed-width layout
	Plain Encoding = 0
	// PlainDictionary is the legacy id for dictionary-encoded pages
	PlainDictionary Encoding = 2
	// RLE is the run-length / bit-packed hybrid
	RLE Encoding = 3
	// BitPacked is the legacy raw bit-packed level encoding
	BitPacked Encoding = 4
	// DeltaBinaryPacked is the frame-of-reference integer encoding
	DeltaBinaryPacked Encoding = 5
	// DeltaLengthByteArray stores delta-packed lengths then raw bytes
	DeltaLengthByteArray Encoding = 6
	// DeltaByteArray adds shared-prefix compression over DeltaLengthByteArray
	DeltaByteArray Encoding = 7
	// RLEDictionary is the modern id for dictionary-encoded pages
	RLEDictionary Encoding = 8
)

// String returns the format name of the encoding
func (e Encoding) String() string {
	switch e {
	case Plain:
		return "PLAIN"
	case PlainDictionary:
		return "PLAIN_DICTIONARY"
	case RLE:
		return "RLE"
	case BitPacked:
		return "BIT_PACKED"
	case DeltaBinaryPacked:
		return "DELTA_BINARY_PACKED"
	case DeltaLengthByteArray:
		return "DELTA_LENGTH_BYTE_ARRAY"
	case DeltaByteArray:
		return "DELTA_BYTE_ARRAY"
	case RLEDictionary:
		return "RLE_DICTIONARY"
	default:
		return "UNKNOWN"
	}
}

// IsDictionary reports whether the encoding id means dictionary indices
func (e Encoding) IsDictionary() bool {
	return e == PlainDictionary || e == RLEDictionary
}

// Encoder encodes a stream of datums of one column's physical type.
// Put may be called repeatedly; FlushBuffer returns everything encoded
// since the previous flush and resets internal state.
type Encoder interface {
	Put(values []schema.Datum) error
	Encoding() Encoding
	FlushBuffer() ([]byte, error)
}

// Decoder decodes datums from one encoded byte slice. SetData resets the
// decoder onto a new slice holding numValues values; Get fills the caller's
// buffer and returns how many values it produced.
type Decoder interface {
	SetData(data []byte, numValues int) error
	Get(buffer []schema.Datum) (int, error)
	ValuesLeft() int
	Encoding() Encoding
}

// NewEncoder returns an encoder for the column and encoding id. Dictionary
// encoders are created directly with NewDictEncoder because their lifecycle
// (dictionary page plus index pages) does not fit the plain Encoder shape.
func NewEncoder(desc *schema.ColumnDescriptor, enc Encoding) (Encoder, error) {
	switch enc {
	case Plain:
		return NewPlainEncoder(desc), nil
	case DeltaBinaryPacked:
		return NewDeltaBinaryPackedEncoder(desc)
	case DeltaLengthByteArray:
		return NewDeltaLengthByteArrayEncoder(desc)
	case DeltaByteArray:
		return NewDeltaByteArrayEncoder(desc)
	case PlainDictionary, RLEDictionary:
		return nil, errors.New(errors.KindUnsupportedEncoding,
			"dictionary encoders are created with NewDictEncoder").WithColumn(desc.Path)
	default:
		return nil, errors.Newf(errors.KindUnsupportedEncoding,
			"no encoder for encoding %s", enc).WithColumn(desc.Path)
	}
}

// NewDecoder returns a decoder for the column and encoding id. Dictionary
// decoders are created with NewDictDecoder since they need the dictionary
// page decoded first.
func NewDecoder(desc *schema.ColumnDescriptor, enc Encoding) (Decoder, error) {
	switch enc {
	case Plain:
		return NewPlainDecoder(desc), nil
	case DeltaBinaryPacked:
		return NewDeltaBinaryPackedDecoder(desc)
	case DeltaLengthByteArray:
		return NewDeltaLengthByteArrayDecoder(desc)
	case DeltaByteArray:
		return NewDeltaByteArrayDecoder(desc)
	case PlainDictionary, RLEDictionary:
		return nil, errors.New(errors.KindUnsupportedEncoding,
			"dictionary decoders are created with NewDictDecoder").WithColumn(desc.Path)
	default:
		return nil, errors.Newf(errors.KindUnsupportedEncoding,
			"no decoder for encoding %s", enc).WithColumn(desc.Path)
	}
}
