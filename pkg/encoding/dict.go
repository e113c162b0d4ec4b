package encoding

import (
	"github.com/datalith/strata/pkg/errors"
	"github.com/datalith/strata/pkg/schema"
)

// DictEncoder maintains an insertion-ordered table of distinct values and
// buffers index codes for the values fed to it. The dictionary itself is
// written as a plain-encoded page via WriteDict; each data page's payload is
// one byte of index bit width followed by the hybrid-run-encoded indices.
type DictEncoder struct {
	desc    *schema.ColumnDescriptor
	keys    map[string]int
	uniques []schema.Datum
	indices []int
	frozen  bool
}

// NewDictEncoder creates a dictionary encoder for the column
func NewDictEncoder(desc *schema.ColumnDescriptor) *DictEncoder {
	return &DictEncoder{desc: desc, keys: make(map[string]int)}
}

// Put buffers index codes for a batch of datums, growing the dictionary as
// unseen values arrive. A frozen encoder rejects values that would grow it.
func (e *DictEncoder) Put(values []schema.Datum) error {
	for _, v := range values {
		if v.Type() != e.desc.Type {
			return errors.Newf(errors.KindSchemaViolation,
				"dictionary encoder for %s got %s value", e.desc.Type, v.Type()).
				WithColumn(e.desc.Path)
		}
		key := v.Key()
		idx, ok := e.keys[key]
		if !ok {
			if e.frozen {
				return errors.New(errors.KindInternal,
					"frozen dictionary cannot accept new values").WithColumn(e.desc.Path)
			}
			idx = len(e.uniques)
			e.keys[key] = idx
			e.uniques = append(e.uniques, v)
		}
		e.indices = append(e.indices, idx)
	}
	return nil
}

// Encoding returns RLEDictionary
func (e *DictEncoder) Encoding() Encoding { return RLEDictionary }

// NumEntries returns the current dictionary size
func (e *DictEncoder) NumEntries() int { return len(e.uniques) }

// Uniques returns the distinct values in insertion order
func (e *DictEncoder) Uniques() []schema.Datum { return e.uniques }

// Freeze stops the dictionary from growing. Buffered and future index codes
// for already-known values remain valid.
func (e *DictEncoder) Freeze() { e.frozen = true }

// WriteDict returns the dictionary page payload: the distinct values in
// insertion order, plain-encoded.
func (e *DictEncoder) WriteDict() ([]byte, error) {
	pe := NewPlainEncoder(e.desc)
	if err := pe.Put(e.uniques); err != nil {
		return nil, err
	}
	return pe.FlushBuffer()
}

func (e *DictEncoder) indexBitWidth() int {
	switch n := len(e.uniques); {
	case n == 0:
		return 0
	case n == 1:
		return 1
	default:
		return bitWidthFor(n - 1)
	}
}

// FlushBuffer encodes the buffered index codes and resets the index buffer.
// The dictionary table is untouched and keeps accumulating across pages.
func (e *DictEncoder) FlushBuffer() ([]byte, error) {
	bw := e.indexBitWidth()
	rle := NewRleEncoder(bw)
	for _, idx := range e.indices {
		if err := rle.Put(uint64(idx)); err != nil {
			return nil, err
		}
	}
	e.indices = e.indices[:0]
	out := make([]byte, 1, 16)
	out[0] = byte(bw)
	return append(out, rle.Flush()...), nil
}

// DictDecoder decodes index pages against a dictionary table decoded from
// the chunk's dictionary page.
type DictDecoder struct {
	desc       *schema.ColumnDescriptor
	dictionary []schema.Datum
	rle        *RleDecoder
	numValues  int
}

// NewDictDecoder creates a dictionary decoder for the column. The table
// must be supplied with SetDict before any data page is decoded.
func NewDictDecoder(desc *schema.ColumnDescriptor) *DictDecoder {
	return &DictDecoder{desc: desc}
}

// SetDict installs the dictionary table
func (d *DictDecoder) SetDict(values []schema.Datum) {
	d.dictionary = values
}

// SetData resets the decoder onto an index page payload
func (d *DictDecoder) SetData(data []byte, numValues int) error {
	if d.dictionary == nil {
		return errors.New(errors.KindInternal,
			"dictionary table must be set before decoding index pages").
			WithColumn(d.desc.Path)
	}
	if len(data) == 0 {
		return errors.New(errors.KindMalformedEncoding,
			"dictionary index page is missing its bit width byte").WithColumn(d.desc.Path)
	}
	bw := int(data[0])
	if bw > 32 {
		return errors.Newf(errors.KindMalformedEncoding,
			"dictionary index bit width %d out of range", bw).WithColumn(d.desc.Path)
	}
	d.rle = NewRleDecoder(bw)
	d.rle.SetData(data[1:])
	d.numValues = numValues
	return nil
}

// ValuesLeft returns the number of values not yet decoded
func (d *DictDecoder) ValuesLeft() int { return d.numValues }

// Encoding returns RLEDictionary
func (d *DictDecoder) Encoding() Encoding { return RLEDictionary }

// Get fills buffer with datums looked up from the dictionary table
func (d *DictDecoder) Get(buffer []schema.Datum) (int, error) {
	n := len(buffer)
	if n > d.numValues {
		n = d.numValues
	}
	if n == 0 {
		return 0, nil
	}
	codes := make([]uint64, n)
	if err := d.rle.GetBatch(codes); err != nil {
		return 0, errors.Wrap(err, errors.KindMalformedEncoding,
			"decoding dictionary indices").WithColumn(d.desc.Path)
	}
	for i, c := range codes {
		if int(c) >= len(d.dictionary) {
			return 0, errors.Newf(errors.KindMalformedEncoding,
				"dictionary index %d out of range for table of %d",
				c, len(d.dictionary)).WithColumn(d.desc.Path)
		}
		buffer[i] = d.dictionary[c]
	}
	d.numValues -= n
	return n, nil
}
