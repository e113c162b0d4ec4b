package encoding

import (
	"github.com/datalith/strata/pkg/errors"
	"github.com/datalith/strata/pkg/schema"
)

// Delta binary packing stores integers as a header followed by blocks:
//
//	header: <block size> <miniblocks per block> <total count> <first value>
//	block:  <min delta> <miniblock bit widths> <bit-packed miniblocks>
//
// Counts are ULEB128 varints; first value and min delta are zigzag varints.
// Each miniblock packs (delta - minDelta) at its own bit width, the last
// miniblock zero-padded to full size. Arithmetic wraps at the physical
// type's width so extreme value swings survive the round trip.
const (
	deltaBlockSize     = 128
	deltaNumMiniBlocks = 4
	deltaMiniBlockSize = deltaBlockSize / deltaNumMiniBlocks
)

// synthetic descriptor for the length streams embedded in the byte-array
// delta encodings
var deltaLengthDesc = &schema.ColumnDescriptor{Path: "<lengths>", Type: schema.Int32}

// DeltaBinaryPackedEncoder encodes Int32 and Int64 columns
type DeltaBinaryPackedEncoder struct {
	desc    *schema.ColumnDescriptor
	isInt32 bool

	totalValues  int
	firstValue   int64
	currentValue int64
	deltas       []int64
	blocks       bitWriter
}

// NewDeltaBinaryPackedEncoder creates a delta encoder for an integer column
func NewDeltaBinaryPackedEncoder(desc *schema.ColumnDescriptor) (*DeltaBinaryPackedEncoder, error) {
	if desc.Type != schema.Int32 && desc.Type != schema.Int64 {
		return nil, errors.Newf(errors.KindUnsupportedEncoding,
			"DELTA_BINARY_PACKED supports INT32 and INT64, not %s", desc.Type).
			WithColumn(desc.Path)
	}
	return &DeltaBinaryPackedEncoder{
		desc:    desc,
		isInt32: desc.Type == schema.Int32,
		deltas:  make([]int64, 0, deltaBlockSize),
	}, nil
}

func (e *DeltaBinaryPackedEncoder) datumValue(v schema.Datum) (int64, error) {
	if v.Type() != e.desc.Type {
		return 0, errors.Newf(errors.KindSchemaViolation,
			"delta encoder for %s got %s value", e.desc.Type, v.Type()).
			WithColumn(e.desc.Path)
	}
	if e.isInt32 {
		return int64(v.Int32()), nil
	}
	return v.Int64(), nil
}

func (e *DeltaBinaryPackedEncoder) subtract(a, b int64) int64 {
	if e.isInt32 {
		return int64(int32(a) - int32(b))
	}
	return a - b
}

// packable maps a delta difference to the unsigned value that gets
// bit-packed, wrapping at the type width
func (e *DeltaBinaryPackedEncoder) packable(delta, minDelta int64) uint64 {
	if e.isInt32 {
		return uint64(uint32(int32(delta) - int32(minDelta)))
	}
	return uint64(delta - minDelta)
}

// Put buffers a batch of integer datums
func (e *DeltaBinaryPackedEncoder) Put(values []schema.Datum) error {
	idx := 0
	if e.totalValues == 0 && len(values) > 0 {
		v, err := e.datumValue(values[0])
		if err != nil {
			return err
		}
		e.firstValue = v
		e.currentValue = v
		idx = 1
	}
	e.totalValues += len(values)

	for ; idx < len(values); idx++ {
		v, err := e.datumValue(values[idx])
		if err != nil {
			return err
		}
		e.deltas = append(e.deltas, e.subtract(v, e.currentValue))
		e.currentValue = v
		if len(e.deltas) == deltaBlockSize {
			e.flushBlock()
		}
	}
	return nil
}

func (e *DeltaBinaryPackedEncoder) flushBlock() {
	if len(e.deltas) == 0 {
		return
	}
	minDelta := e.deltas[0]
	for _, d := range e.deltas {
		if d < minDelta {
			minDelta = d
		}
	}
	e.blocks.PutZigzagVarint(minDelta)

	var widths [deltaNumMiniBlocks]byte
	remaining := len(e.deltas)
	for mb := 0; mb < deltaNumMiniBlocks && remaining > 0; mb++ {
		n := deltaMiniBlockSize
		if n > remaining {
			n = remaining
		}
		var maxPacked uint64
		base := mb * deltaMiniBlockSize
		for j := 0; j < n; j++ {
			if p := e.packable(e.deltas[base+j], minDelta); p > maxPacked {
				maxPacked = p
			}
		}
		w := 0
		for maxPacked>>uint(w) != 0 {
			w++
		}
		widths[mb] = byte(w)
		remaining -= n
	}
	e.blocks.PutAligned(widths[:])

	remaining = len(e.deltas)
	for mb := 0; mb < deltaNumMiniBlocks && remaining > 0; mb++ {
		n := deltaMiniBlockSize
		if n > remaining {
			n = remaining
		}
		base := mb * deltaMiniBlockSize
		w := uint(widths[mb])
		for j := 0; j < n; j++ {
			e.blocks.PutValue(e.packable(e.deltas[base+j], minDelta), w)
		}
		// Pad the trailing miniblock to full size
		for j := n; j < deltaMiniBlockSize; j++ {
			e.blocks.PutValue(0, w)
		}
		remaining -= n
	}
	e.deltas = e.deltas[:0]
}

// Encoding returns DeltaBinaryPacked
func (e *DeltaBinaryPackedEncoder) Encoding() Encoding { return DeltaBinaryPacked }

// FlushBuffer finalizes the stream (header plus blocks) and resets state
func (e *DeltaBinaryPackedEncoder) FlushBuffer() ([]byte, error) {
	e.flushBlock()

	var header bitWriter
	header.PutUvarint(deltaBlockSize)
	header.PutUvarint(deltaNumMiniBlocks)
	header.PutUvarint(uint64(e.totalValues))
	header.PutZigzagVarint(e.firstValue)

	out := append(header.Bytes(), e.blocks.Bytes()...)

	e.blocks.Reset()
	e.totalValues = 0
	e.firstValue = 0
	e.currentValue = 0
	e.deltas = e.deltas[:0]
	return out, nil
}

// DeltaBinaryPackedDecoder decodes the stream produced by the encoder
type DeltaBinaryPackedDecoder struct {
	desc    *schema.ColumnDescriptor
	isInt32 bool

	r         *bitReader
	numValues int

	numMiniBlocks      int
	valuesPerMiniBlock int
	firstValue         int64
	firstValueRead     bool

	minDelta               int64
	widths                 []byte
	miniBlockIdx           int
	width                  uint
	valuesCurrentMiniBlock int

	currentValue int64
}

// NewDeltaBinaryPackedDecoder creates a delta decoder for an integer column
func NewDeltaBinaryPackedDecoder(desc *schema.ColumnDescriptor) (*DeltaBinaryPackedDecoder, error) {
	if desc.Type != schema.Int32 && desc.Type != schema.Int64 {
		return nil, errors.Newf(errors.KindUnsupportedEncoding,
			"DELTA_BINARY_PACKED supports INT32 and INT64, not %s", desc.Type).
			WithColumn(desc.Path)
	}
	return &DeltaBinaryPackedDecoder{desc: desc, isInt32: desc.Type == schema.Int32}, nil
}

// SetData parses the header. numValues is the caller's expected count; a
// header that disagrees is rejected. Pass a negative count to trust the
// header (used by the byte-array delta decoders).
func (d *DeltaBinaryPackedDecoder) SetData(data []byte, numValues int) error {
	d.r = newBitReader(data)

	blockSize, ok1 := d.r.GetUvarint()
	numMiniBlocks, ok2 := d.r.GetUvarint()
	total, ok3 := d.r.GetUvarint()
	first, ok4 := d.r.GetZigzagVarint()
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return d.malformed("truncated header")
	}
	if blockSize != deltaBlockSize || numMiniBlocks != deltaNumMiniBlocks {
		// Foreign writers may choose other geometries; accept any geometry
		// whose miniblocks hold a multiple of 8 values.
		if numMiniBlocks == 0 || blockSize%numMiniBlocks != 0 ||
			(blockSize/numMiniBlocks)%8 != 0 {
			return d.malformed("invalid block geometry")
		}
	}
	if numValues >= 0 && int(total) != numValues {
		return errors.Newf(errors.KindMalformedEncoding,
			"header declares %d values, caller expected %d", total, numValues).
			WithColumn(d.desc.Path)
	}

	d.numValues = int(total)
	d.numMiniBlocks = int(numMiniBlocks)
	d.valuesPerMiniBlock = int(blockSize / numMiniBlocks)
	d.firstValue = first
	d.firstValueRead = false
	d.minDelta = 0
	d.widths = nil
	d.miniBlockIdx = 0
	d.width = 0
	d.valuesCurrentMiniBlock = 0
	d.currentValue = 0
	return nil
}

func (d *DeltaBinaryPackedDecoder) malformed(msg string) error {
	return errors.Newf(errors.KindMalformedEncoding,
		"delta binary packed: %s", msg).WithColumn(d.desc.Path)
}

func (d *DeltaBinaryPackedDecoder) initBlock() error {
	minDelta, ok := d.r.GetZigzagVarint()
	if !ok {
		return d.malformed("truncated block min delta")
	}
	widths, ok := d.r.GetAligned(d.numMiniBlocks)
	if !ok {
		return d.malformed("truncated miniblock widths")
	}
	d.widths = append(d.widths[:0], widths...)
	d.minDelta = minDelta
	d.miniBlockIdx = 0
	d.width = uint(d.widths[0])
	d.valuesCurrentMiniBlock = d.valuesPerMiniBlock
	return nil
}

func (d *DeltaBinaryPackedDecoder) datum(v int64) schema.Datum {
	if d.isInt32 {
		return schema.Int32Datum(int32(v))
	}
	return schema.Int64Datum(v)
}

// ValuesLeft returns the number of values not yet decoded
func (d *DeltaBinaryPackedDecoder) ValuesLeft() int { return d.numValues }

// Encoding returns DeltaBinaryPacked
func (d *DeltaBinaryPackedDecoder) Encoding() Encoding { return DeltaBinaryPacked }

// Get fills buffer with decoded integer datums
func (d *DeltaBinaryPackedDecoder) Get(buffer []schema.Datum) (int, error) {
	if d.r == nil {
		return 0, errors.New(errors.KindInternal, "no data set for decoding")
	}
	n := len(buffer)
	if n > d.numValues {
		n = d.numValues
	}
	for i := 0; i < n; i++ {
		if !d.firstValueRead {
			d.currentValue = d.firstValue
			d.firstValueRead = true
			buffer[i] = d.datum(d.currentValue)
			continue
		}
		if d.valuesCurrentMiniBlock == 0 {
			d.miniBlockIdx++
			if d.miniBlockIdx > 0 && d.miniBlockIdx < len(d.widths) {
				d.width = uint(d.widths[d.miniBlockIdx])
				d.valuesCurrentMiniBlock = d.valuesPerMiniBlock
			} else if err := d.initBlock(); err != nil {
				return 0, err
			}
		}
		delta, ok := d.r.GetValue(d.width)
		if !ok {
			return 0, d.malformed("truncated miniblock data")
		}
		d.currentValue += d.minDelta
		d.currentValue += int64(delta)
		buffer[i] = d.datum(d.currentValue)
		d.valuesCurrentMiniBlock--
	}
	d.numValues -= n

	// Skip the zero padding of a partially consumed trailing miniblock so
	// the byte offset lands at the end of the encoded stream.
	if d.numValues == 0 && d.valuesCurrentMiniBlock > 0 {
		if !d.r.SkipValues(d.valuesCurrentMiniBlock, d.width) {
			return 0, d.malformed("truncated miniblock padding")
		}
		d.valuesCurrentMiniBlock = 0
	}
	return n, nil
}

// Offset returns the number of bytes consumed so far, used by the
// byte-array delta decoders to find their trailing sections.
func (d *DeltaBinaryPackedDecoder) Offset() int {
	return d.r.ByteOffset()
}
