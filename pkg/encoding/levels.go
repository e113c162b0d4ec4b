package encoding

import (
	"encoding/binary"

	"github.com/datalith/strata/pkg/errors"
)

// Repetition and definition levels travel in one of two layouts. RLE wraps
// the hybrid run stream with a 4-byte little-endian byte-length prefix so a
// reader can skip the section without decoding it. BIT_PACKED is the legacy
// raw layout: levels packed back to back at the width of the maximum level,
// no prefix, total length implied by the value count.

// LevelEncoder encodes a batch of levels bounded by maxLevel
type LevelEncoder struct {
	enc      Encoding
	bitWidth int
	rle      *RleEncoder
	packed   *bitWriter
}

// NewLevelEncoder creates a level encoder for the given layout and bound.
// Only RLE and BitPacked are valid level layouts.
func NewLevelEncoder(enc Encoding, maxLevel int) (*LevelEncoder, error) {
	bw := bitWidthFor(maxLevel)
	switch enc {
	case RLE:
		return &LevelEncoder{enc: enc, bitWidth: bw, rle: NewRleEncoder(bw)}, nil
	case BitPacked:
		return &LevelEncoder{enc: enc, bitWidth: bw, packed: &bitWriter{}}, nil
	default:
		return nil, errors.Newf(errors.KindUnsupportedEncoding,
			"%s is not a level encoding", enc)
	}
}

// Put buffers levels for encoding
func (e *LevelEncoder) Put(levels []int) error {
	for _, l := range levels {
		if l < 0 || (e.bitWidth < 64 && uint64(l) >= 1<<uint(e.bitWidth) && l != 0) {
			return errors.Newf(errors.KindInternal, "level %d out of bounds", l)
		}
		if e.rle != nil {
			if err := e.rle.Put(uint64(l)); err != nil {
				return err
			}
		} else {
			e.packed.PutValue(uint64(l), uint(e.bitWidth))
		}
	}
	return nil
}

// Consume returns the encoded section and resets the encoder
func (e *LevelEncoder) Consume() []byte {
	if e.rle != nil {
		body := e.rle.Flush()
		out := make([]byte, 4, 4+len(body))
		binary.LittleEndian.PutUint32(out, uint32(len(body)))
		return append(out, body...)
	}
	out := e.packed.Bytes()
	e.packed.Reset()
	return out
}

// LevelDecoder decodes a level section produced by LevelEncoder
type LevelDecoder struct {
	enc       Encoding
	bitWidth  int
	numValues int
	rle       *RleDecoder
	packed    *bitReader
}

// NewLevelDecoder creates a level decoder for the given layout and bound
func NewLevelDecoder(enc Encoding, maxLevel int) (*LevelDecoder, error) {
	bw := bitWidthFor(maxLevel)
	switch enc {
	case RLE:
		return &LevelDecoder{enc: enc, bitWidth: bw, rle: NewRleDecoder(bw)}, nil
	case BitPacked:
		return &LevelDecoder{enc: enc, bitWidth: bw}, nil
	default:
		return nil, errors.Newf(errors.KindUnsupportedEncoding,
			"%s is not a level encoding", enc)
	}
}

// SetData points the decoder at an encoded section expected to hold
// numValues levels, returning the number of bytes the section occupies.
func (d *LevelDecoder) SetData(data []byte, numValues int) (int, error) {
	d.numValues = numValues
	if d.rle != nil {
		if len(data) < 4 {
			return 0, errors.New(errors.KindMalformedEncoding,
				"level section shorter than its length prefix")
		}
		size := int(binary.LittleEndian.Uint32(data))
		if 4+size > len(data) {
			return 0, errors.New(errors.KindMalformedEncoding,
				"level section length prefix overruns the slice")
		}
		d.rle.SetData(data[4 : 4+size])
		return 4 + size, nil
	}
	size := (numValues*d.bitWidth + 7) / 8
	if size > len(data) {
		return 0, errors.New(errors.KindMalformedEncoding,
			"bit-packed level section shorter than the value count requires")
	}
	d.packed = newBitReader(data[:size])
	return size, nil
}

// Get fills buffer with decoded levels, returning how many were produced.
// Fewer than len(buffer) values are returned only when the section is
// exhausted.
func (d *LevelDecoder) Get(buffer []int) (int, error) {
	n := len(buffer)
	if n > d.numValues {
		n = d.numValues
	}
	if d.rle != nil {
		tmp := make([]uint64, n)
		if err := d.rle.GetBatch(tmp); err != nil {
			return 0, err
		}
		for i, v := range tmp {
			buffer[i] = int(v)
		}
	} else {
		for i := 0; i < n; i++ {
			v, ok := d.packed.GetValue(uint(d.bitWidth))
			if !ok {
				return 0, errors.New(errors.KindMalformedEncoding,
					"bit-packed level section exhausted early")
			}
			buffer[i] = int(v)
		}
	}
	d.numValues -= n
	return n, nil
}

// ValuesLeft returns how many levels remain in the section
func (d *LevelDecoder) ValuesLeft() int { return d.numValues }
