package encoding

import (
	"github.com/datalith/strata/pkg/errors"
	"github.com/datalith/strata/pkg/schema"
)

// DeltaLengthByteArrayEncoder encodes byte arrays as a delta-binary-packed
// stream of lengths followed by the concatenated raw bytes.
type DeltaLengthByteArrayEncoder struct {
	desc    *schema.ColumnDescriptor
	lengths *DeltaBinaryPackedEncoder
	data    []byte
}

// NewDeltaLengthByteArrayEncoder creates an encoder for a ByteArray column
func NewDeltaLengthByteArrayEncoder(desc *schema.ColumnDescriptor) (*DeltaLengthByteArrayEncoder, error) {
	if desc.Type != schema.ByteArray {
		return nil, errors.Newf(errors.KindUnsupportedEncoding,
			"DELTA_LENGTH_BYTE_ARRAY supports BYTE_ARRAY, not %s", desc.Type).
			WithColumn(desc.Path)
	}
	lengths, err := NewDeltaBinaryPackedEncoder(deltaLengthDesc)
	if err != nil {
		return nil, err
	}
	return &DeltaLengthByteArrayEncoder{desc: desc, lengths: lengths}, nil
}

// Put buffers a batch of byte array datums
func (e *DeltaLengthByteArrayEncoder) Put(values []schema.Datum) error {
	for _, v := range values {
		if v.Type() != schema.ByteArray {
			return errors.Newf(errors.KindSchemaViolation,
				"delta length encoder got %s value", v.Type()).WithColumn(e.desc.Path)
		}
		if err := e.lengths.Put([]schema.Datum{schema.Int32Datum(int32(len(v.Bytes())))}); err != nil {
			return err
		}
		e.data = append(e.data, v.Bytes()...)
	}
	return nil
}

// Encoding returns DeltaLengthByteArray
func (e *DeltaLengthByteArrayEncoder) Encoding() Encoding { return DeltaLengthByteArray }

// FlushBuffer returns the length stream followed by the raw bytes
func (e *DeltaLengthByteArrayEncoder) FlushBuffer() ([]byte, error) {
	lengthBytes, err := e.lengths.FlushBuffer()
	if err != nil {
		return nil, err
	}
	out := append(lengthBytes, e.data...)
	e.data = nil
	return out, nil
}

// DeltaLengthByteArrayDecoder decodes the layout written by the encoder
type DeltaLengthByteArrayDecoder struct {
	desc      *schema.ColumnDescriptor
	lengths   []int
	idx       int
	data      []byte
	offset    int
	numValues int
}

// NewDeltaLengthByteArrayDecoder creates a decoder for a ByteArray column
func NewDeltaLengthByteArrayDecoder(desc *schema.ColumnDescriptor) (*DeltaLengthByteArrayDecoder, error) {
	if desc.Type != schema.ByteArray {
		return nil, errors.Newf(errors.KindUnsupportedEncoding,
			"DELTA_LENGTH_BYTE_ARRAY supports BYTE_ARRAY, not %s", desc.Type).
			WithColumn(desc.Path)
	}
	return &DeltaLengthByteArrayDecoder{desc: desc}, nil
}

// SetData decodes the embedded length stream and locates the raw bytes
func (d *DeltaLengthByteArrayDecoder) SetData(data []byte, numValues int) error {
	lenDec, err := NewDeltaBinaryPackedDecoder(deltaLengthDesc)
	if err != nil {
		return err
	}
	if err := lenDec.SetData(data, numValues); err != nil {
		return errors.Wrap(err, errors.KindMalformedEncoding,
			"decoding byte array lengths").WithColumn(d.desc.Path)
	}
	count := lenDec.ValuesLeft()
	buf := make([]schema.Datum, count)
	if _, err := lenDec.Get(buf); err != nil {
		return errors.Wrap(err, errors.KindMalformedEncoding,
			"decoding byte array lengths").WithColumn(d.desc.Path)
	}

	d.lengths = make([]int, count)
	total := 0
	for i, v := range buf {
		l := int(v.Int32())
		if l < 0 {
			return errors.New(errors.KindMalformedEncoding,
				"negative byte array length").WithColumn(d.desc.Path)
		}
		d.lengths[i] = l
		total += l
	}
	body := data[lenDec.Offset():]
	if total > len(body) {
		return errors.New(errors.KindMalformedEncoding,
			"byte array section shorter than the decoded lengths require").
			WithColumn(d.desc.Path)
	}
	d.data = body
	d.offset = 0
	d.idx = 0
	d.numValues = count
	return nil
}

// ValuesLeft returns the number of values not yet decoded
func (d *DeltaLengthByteArrayDecoder) ValuesLeft() int { return d.numValues }

// Encoding returns DeltaLengthByteArray
func (d *DeltaLengthByteArrayDecoder) Encoding() Encoding { return DeltaLengthByteArray }

// Get fills buffer with decoded byte array datums
func (d *DeltaLengthByteArrayDecoder) Get(buffer []schema.Datum) (int, error) {
	n := len(buffer)
	if n > d.numValues {
		n = d.numValues
	}
	for i := 0; i < n; i++ {
		l := d.lengths[d.idx]
		out := make([]byte, l)
		copy(out, d.data[d.offset:d.offset+l])
		buffer[i] = schema.ByteArrayDatum(out)
		d.offset += l
		d.idx++
	}
	d.numValues -= n
	return n, nil
}

// DeltaByteArrayEncoder prefix-compresses byte arrays: a delta-binary-packed
// stream of shared-prefix lengths followed by the suffixes in the
// delta-length layout.
type DeltaByteArrayEncoder struct {
	desc     *schema.ColumnDescriptor
	prefixes *DeltaBinaryPackedEncoder
	suffixes *DeltaLengthByteArrayEncoder
	previous []byte
}

// NewDeltaByteArrayEncoder creates an encoder for a ByteArray column
func NewDeltaByteArrayEncoder(desc *schema.ColumnDescriptor) (*DeltaByteArrayEncoder, error) {
	if desc.Type != schema.ByteArray {
		return nil, errors.Newf(errors.KindUnsupportedEncoding,
			"DELTA_BYTE_ARRAY supports BYTE_ARRAY, not %s", desc.Type).
			WithColumn(desc.Path)
	}
	prefixes, err := NewDeltaBinaryPackedEncoder(deltaLengthDesc)
	if err != nil {
		return nil, err
	}
	suffixes, err := NewDeltaLengthByteArrayEncoder(desc)
	if err != nil {
		return nil, err
	}
	return &DeltaByteArrayEncoder{desc: desc, prefixes: prefixes, suffixes: suffixes}, nil
}

// Put buffers a batch of byte array datums
func (e *DeltaByteArrayEncoder) Put(values []schema.Datum) error {
	for _, v := range values {
		if v.Type() != schema.ByteArray {
			return errors.Newf(errors.KindSchemaViolation,
				"delta byte array encoder got %s value", v.Type()).WithColumn(e.desc.Path)
		}
		cur := v.Bytes()
		prefix := 0
		for prefix < len(cur) && prefix < len(e.previous) && cur[prefix] == e.previous[prefix] {
			prefix++
		}
		if err := e.prefixes.Put([]schema.Datum{schema.Int32Datum(int32(prefix))}); err != nil {
			return err
		}
		if err := e.suffixes.Put([]schema.Datum{schema.ByteArrayDatum(cur[prefix:])}); err != nil {
			return err
		}
		e.previous = append(e.previous[:0], cur...)
	}
	return nil
}

// Encoding returns DeltaByteArray
func (e *DeltaByteArrayEncoder) Encoding() Encoding { return DeltaByteArray }

// FlushBuffer returns the prefix stream followed by the suffix section
func (e *DeltaByteArrayEncoder) FlushBuffer() ([]byte, error) {
	prefixBytes, err := e.prefixes.FlushBuffer()
	if err != nil {
		return nil, err
	}
	suffixBytes, err := e.suffixes.FlushBuffer()
	if err != nil {
		return nil, err
	}
	e.previous = nil
	return append(prefixBytes, suffixBytes...), nil
}

// DeltaByteArrayDecoder decodes the layout written by the encoder
type DeltaByteArrayDecoder struct {
	desc      *schema.ColumnDescriptor
	prefixes  []int
	idx       int
	suffixes  *DeltaLengthByteArrayDecoder
	previous  []byte
	numValues int
}

// NewDeltaByteArrayDecoder creates a decoder for a ByteArray column
func NewDeltaByteArrayDecoder(desc *schema.ColumnDescriptor) (*DeltaByteArrayDecoder, error) {
	if desc.Type != schema.ByteArray {
		return nil, errors.Newf(errors.KindUnsupportedEncoding,
			"DELTA_BYTE_ARRAY supports BYTE_ARRAY, not %s", desc.Type).
			WithColumn(desc.Path)
	}
	return &DeltaByteArrayDecoder{desc: desc}, nil
}

// SetData decodes the prefix length stream and prepares the suffix decoder
func (d *DeltaByteArrayDecoder) SetData(data []byte, numValues int) error {
	prefixDec, err := NewDeltaBinaryPackedDecoder(deltaLengthDesc)
	if err != nil {
		return err
	}
	if err := prefixDec.SetData(data, numValues); err != nil {
		return errors.Wrap(err, errors.KindMalformedEncoding,
			"decoding prefix lengths").WithColumn(d.desc.Path)
	}
	count := prefixDec.ValuesLeft()
	buf := make([]schema.Datum, count)
	if _, err := prefixDec.Get(buf); err != nil {
		return errors.Wrap(err, errors.KindMalformedEncoding,
			"decoding prefix lengths").WithColumn(d.desc.Path)
	}
	d.prefixes = make([]int, count)
	for i, v := range buf {
		l := int(v.Int32())
		if l < 0 {
			return errors.New(errors.KindMalformedEncoding,
				"negative prefix length").WithColumn(d.desc.Path)
		}
		d.prefixes[i] = l
	}

	suffixes, err := NewDeltaLengthByteArrayDecoder(d.desc)
	if err != nil {
		return err
	}
	if err := suffixes.SetData(data[prefixDec.Offset():], count); err != nil {
		return err
	}
	d.suffixes = suffixes
	d.idx = 0
	d.previous = nil
	d.numValues = count
	return nil
}

// ValuesLeft returns the number of values not yet decoded
func (d *DeltaByteArrayDecoder) ValuesLeft() int { return d.numValues }

// Encoding returns DeltaByteArray
func (d *DeltaByteArrayDecoder) Encoding() Encoding { return DeltaByteArray }

// Get fills buffer with reconstructed byte array datums
func (d *DeltaByteArrayDecoder) Get(buffer []schema.Datum) (int, error) {
	n := len(buffer)
	if n > d.numValues {
		n = d.numValues
	}
	var suffix [1]schema.Datum
	for i := 0; i < n; i++ {
		prefix := d.prefixes[d.idx]
		if prefix > len(d.previous) {
			return 0, errors.Newf(errors.KindMalformedEncoding,
				"prefix length %d exceeds previous value of %d bytes",
				prefix, len(d.previous)).WithColumn(d.desc.Path)
		}
		if _, err := d.suffixes.Get(suffix[:]); err != nil {
			return 0, err
		}
		out := make([]byte, 0, prefix+len(suffix[0].Bytes()))
		out = append(out, d.previous[:prefix]...)
		out = append(out, suffix[0].Bytes()...)
		buffer[i] = schema.ByteArrayDatum(out)
		d.previous = out
		d.idx++
	}
	d.numValues -= n
	return n, nil
}
