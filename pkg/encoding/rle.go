package encoding

import (
	"encoding/binary"

	"github.com/datalith/strata/pkg/errors"
)

// The hybrid run stream alternates two run kinds, each introduced by a
// ULEB128 header whose low bit selects the kind:
//
//	header << 1 | 0:  RLE run, header>>1 repetitions of one value stored
//	                  in ceil(bitWidth/8) little-endian bytes
//	header << 1 | 1:  bit-packed run of (header>>1)*8 values, LSB first
//
// The bit width is supplied out of band, never stored in the stream.
// RLE runs are used for repeats of eight or more values; shorter stretches
// are grouped into bit-packed runs padded with zeros to a multiple of 8.
const rleMinRepeats = 8

// RleEncoder encodes unsigned values of a fixed bit width into the hybrid
// run format. Values are buffered and runs chosen greedily at flush time.
type RleEncoder struct {
	bitWidth int
	values   []uint64
}

// NewRleEncoder creates an encoder for values of the given bit width
func NewRleEncoder(bitWidth int) *RleEncoder {
	return &RleEncoder{bitWidth: bitWidth}
}

// Put buffers one value. The value must fit in the configured bit width.
func (e *RleEncoder) Put(v uint64) error {
	if e.bitWidth < 64 && v >= 1<<uint(e.bitWidth) {
		return errors.Newf(errors.KindInternal,
			"value %d does not fit in %d bits", v, e.bitWidth)
	}
	e.values = append(e.values, v)
	return nil
}

// Len returns the number of buffered values
func (e *RleEncoder) Len() int { return len(e.values) }

// Flush encodes all buffered values and resets the encoder
func (e *RleEncoder) Flush() []byte {
	out := make([]byte, 0, 16+len(e.values)*paddedByteWidth(e.bitWidth))
	vals := e.values
	i := 0
	for i < len(vals) {
		runEnd := i + 1
		for runEnd < len(vals) && vals[runEnd] == vals[i] {
			runEnd++
		}
		if runEnd-i >= rleMinRepeats {
			out = e.appendRleRun(out, vals[i], runEnd-i)
			i = runEnd
			continue
		}

		// Collect literals until the next long repeat or end of input
		start := i
		for i < len(vals) {
			k := i + 1
			for k < len(vals) && vals[k] == vals[i] {
				k++
			}
			if k-i >= rleMinRepeats {
				break
			}
			i = k
		}
		out = e.appendLiteralRun(out, vals[start:i])
	}
	e.values = e.values[:0]
	return out
}

func (e *RleEncoder) appendRleRun(out []byte, v uint64, count int) []byte {
	out = binary.AppendUvarint(out, uint64(count)<<1)
	for b := 0; b < paddedByteWidth(e.bitWidth); b++ {
		out = append(out, byte(v>>(8*uint(b))))
	}
	return out
}

func (e *RleEncoder) appendLiteralRun(out []byte, vals []uint64) []byte {
	groups := (len(vals) + 7) / 8
	out = binary.AppendUvarint(out, uint64(groups)<<1|1)
	var w bitWriter
	for _, v := range vals {
		w.PutValue(v, uint(e.bitWidth))
	}
	// Pad the trailing group with zeros
	for n := len(vals); n < groups*8; n++ {
		w.PutValue(0, uint(e.bitWidth))
	}
	return append(out, w.Bytes()...)
}

// RleDecoder decodes the hybrid run format produced by RleEncoder. The
// total value count is supplied by the caller; padding values in the final
// bit-packed group are never surfaced.
type RleDecoder struct {
	bitWidth int
	data     []byte
	pos      int

	repeatCount  int
	currentValue uint64

	literalCount int
	literals     *bitReader
}

// NewRleDecoder creates a decoder for values of the given bit width
func NewRleDecoder(bitWidth int) *RleDecoder {
	return &RleDecoder{bitWidth: bitWidth}
}

// SetData points the decoder at a new encoded slice
func (d *RleDecoder) SetData(data []byte) {
	d.data = data
	d.pos = 0
	d.repeatCount = 0
	d.literalCount = 0
	d.literals = nil
}

// GetBatch fills out with decoded values, returning an error if the stream
// ends before the batch is satisfied.
func (d *RleDecoder) GetBatch(out []uint64) error {
	for i := range out {
		v, err := d.next()
		if err != nil {
			return err
		}
		out[i] = v
	}
	return nil
}

func (d *RleDecoder) next() (uint64, error) {
	for d.repeatCount == 0 && d.literalCount == 0 {
		if err := d.readRunHeader(); err != nil {
			return 0, err
		}
	}
	if d.repeatCount > 0 {
		d.repeatCount--
		return d.currentValue, nil
	}
	d.literalCount--
	v, ok := d.literals.GetValue(uint(d.bitWidth))
	if !ok {
		return 0, errors.New(errors.KindMalformedEncoding,
			"bit-packed run shorter than its header declares")
	}
	return v, nil
}

func (d *RleDecoder) readRunHeader() error {
	if d.pos >= len(d.data) {
		// A zero bit width stream carries no bytes at all; every value is 0
		if d.bitWidth == 0 {
			d.repeatCount = int(^uint(0) >> 1)
			d.currentValue = 0
			return nil
		}
		return errors.New(errors.KindMalformedEncoding,
			"run stream exhausted before all values were decoded")
	}
	header, n := binary.Uvarint(d.data[d.pos:])
	if n <= 0 {
		return errors.New(errors.KindMalformedEncoding, "invalid run header varint")
	}
	d.pos += n

	if header&1 == 1 {
		groups := int(header >> 1)
		byteLen := groups * d.bitWidth // groups*8*bitWidth/8
		if d.pos+byteLen > len(d.data) {
			return errors.New(errors.KindMalformedEncoding,
				"bit-packed run overruns the encoded slice")
		}
		d.literalCount = groups * 8
		d.literals = newBitReader(d.data[d.pos : d.pos+byteLen])
		d.pos += byteLen
		return nil
	}

	count := int(header >> 1)
	if count == 0 {
		return errors.New(errors.KindMalformedEncoding, "zero-length repeated run")
	}
	width := paddedByteWidth(d.bitWidth)
	if d.pos+width > len(d.data) {
		return errors.New(errors.KindMalformedEncoding,
			"repeated run value overruns the encoded slice")
	}
	var v uint64
	for b := 0; b < width; b++ {
		v |= uint64(d.data[d.pos+b]) << (8 * uint(b))
	}
	d.pos += width
	d.repeatCount = count
	d.currentValue = v
	return nil
}
