package encoding

import (
	"encoding/binary"
	"math"

	"github.com/datalith/strata/pkg/errors"
	"github.com/datalith/strata/pkg/schema"
)

// PlainEncoder writes datums in the fixed little-endian layout of their
// physical type. Booleans are bit-packed LSB first; byte arrays carry a
// 4-byte length prefix; fixed-length byte arrays are raw.
type PlainEncoder struct {
	desc *schema.ColumnDescriptor
	buf  []byte
	bits bitWriter // booleans only
}

// NewPlainEncoder creates a plain encoder for the column
func NewPlainEncoder(desc *schema.ColumnDescriptor) *PlainEncoder {
	return &PlainEncoder{desc: desc}
}

// Put encodes a batch of datums
func (e *PlainEncoder) Put(values []schema.Datum) error {
	for _, v := range values {
		if v.Type() != e.desc.Type {
			return errors.Newf(errors.KindSchemaViolation,
				"plain encoder for %s got %s value", e.desc.Type, v.Type()).
				WithColumn(e.desc.Path)
		}
		switch e.desc.Type {
		case schema.Boolean:
			bit := uint64(0)
			if v.Boolean() {
				bit = 1
			}
			e.bits.PutValue(bit, 1)
		case schema.Int32:
			e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v.Int32()))
		case schema.Int64:
			e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(v.Int64()))
		case schema.Int96:
			e.buf = append(e.buf, v.Bytes()...)
		case schema.Float:
			e.buf = binary.LittleEndian.AppendUint32(e.buf, math.Float32bits(v.Float()))
		case schema.Double:
			e.buf = binary.LittleEndian.AppendUint64(e.buf, math.Float64bits(v.Double()))
		case schema.ByteArray:
			e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(len(v.Bytes())))
			e.buf = append(e.buf, v.Bytes()...)
		case schema.FixedLenByteArray:
			if len(v.Bytes()) != e.desc.TypeLength {
				return errors.Newf(errors.KindSchemaViolation,
					"fixed length value has %d bytes, column expects %d",
					len(v.Bytes()), e.desc.TypeLength).WithColumn(e.desc.Path)
			}
			e.buf = append(e.buf, v.Bytes()...)
		}
	}
	return nil
}

// Encoding returns Plain
func (e *PlainEncoder) Encoding() Encoding { return Plain }

// FlushBuffer returns the encoded bytes and resets the encoder
func (e *PlainEncoder) FlushBuffer() ([]byte, error) {
	out := e.buf
	if e.desc.Type == schema.Boolean {
		out = append(out, e.bits.Bytes()...)
		e.bits.Reset()
	}
	e.buf = nil
	return out, nil
}

// PlainDecoder decodes the plain layout back into datums
type PlainDecoder struct {
	desc      *schema.ColumnDescriptor
	data      []byte
	start     int
	numValues int
	bits      *bitReader // booleans only
}

// NewPlainDecoder creates a plain decoder for the column
func NewPlainDecoder(desc *schema.ColumnDescriptor) *PlainDecoder {
	return &PlainDecoder{desc: desc}
}

// SetData resets the decoder onto an encoded slice holding numValues values
func (d *PlainDecoder) SetData(data []byte, numValues int) error {
	d.data = data
	d.start = 0
	d.numValues = numValues
	if d.desc.Type == schema.Boolean {
		d.bits = newBitReader(data)
	}
	return nil
}

// ValuesLeft returns the number of values not yet decoded
func (d *PlainDecoder) ValuesLeft() int { return d.numValues }

// Encoding returns Plain
func (d *PlainDecoder) Encoding() Encoding { return Plain }

// Get fills buffer with decoded datums
func (d *PlainDecoder) Get(buffer []schema.Datum) (int, error) {
	n := len(buffer)
	if n > d.numValues {
		n = d.numValues
	}
	for i := 0; i < n; i++ {
		v, err := d.one()
		if err != nil {
			return 0, err
		}
		buffer[i] = v
	}
	d.numValues -= n
	return n, nil
}

func (d *PlainDecoder) one() (schema.Datum, error) {
	switch d.desc.Type {
	case schema.Boolean:
		bit, ok := d.bits.GetValue(1)
		if !ok {
			return schema.Datum{}, d.short()
		}
		return schema.BooleanDatum(bit != 0), nil
	case schema.Int32:
		p, err := d.take(4)
		if err != nil {
			return schema.Datum{}, err
		}
		return schema.Int32Datum(int32(binary.LittleEndian.Uint32(p))), nil
	case schema.Int64:
		p, err := d.take(8)
		if err != nil {
			return schema.Datum{}, err
		}
		return schema.Int64Datum(int64(binary.LittleEndian.Uint64(p))), nil
	case schema.Int96:
		p, err := d.take(12)
		if err != nil {
			return schema.Datum{}, err
		}
		var v [12]byte
		copy(v[:], p)
		return schema.Int96Datum(v), nil
	case schema.Float:
		p, err := d.take(4)
		if err != nil {
			return schema.Datum{}, err
		}
		return schema.FloatDatum(math.Float32frombits(binary.LittleEndian.Uint32(p))), nil
	case schema.Double:
		p, err := d.take(8)
		if err != nil {
			return schema.Datum{}, err
		}
		return schema.DoubleDatum(math.Float64frombits(binary.LittleEndian.Uint64(p))), nil
	case schema.ByteArray:
		p, err := d.take(4)
		if err != nil {
			return schema.Datum{}, err
		}
		length := int(binary.LittleEndian.Uint32(p))
		body, err := d.take(length)
		if err != nil {
			return schema.Datum{}, err
		}
		out := make([]byte, length)
		copy(out, body)
		return schema.ByteArrayDatum(out), nil
	case schema.FixedLenByteArray:
		body, err := d.take(d.desc.TypeLength)
		if err != nil {
			return schema.Datum{}, err
		}
		out := make([]byte, d.desc.TypeLength)
		copy(out, body)
		return schema.FixedDatum(out), nil
	default:
		return schema.Datum{}, errors.Newf(errors.KindInternal,
			"unhandled physical type %s", d.desc.Type)
	}
}

func (d *PlainDecoder) take(n int) ([]byte, error) {
	if n < 0 || d.start+n > len(d.data) {
		return nil, d.short()
	}
	p := d.data[d.start : d.start+n]
	d.start += n
	return p, nil
}

func (d *PlainDecoder) short() error {
	return errors.New(errors.KindMalformedEncoding,
		"plain section shorter than the value count requires").WithColumn(d.desc.Path)
}
