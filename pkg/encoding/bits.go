package encoding

import (
	"encoding/binary"
	"math/bits"
)

// bitWidthFor returns the number of bits needed to represent values in
// [0, max]. A max of zero needs no bits at all.
func bitWidthFor(max int) int {
	if max <= 0 {
		return 0
	}
	return bits.Len64(uint64(max))
}

// paddedByteWidth returns ceil(bitWidth/8)
func paddedByteWidth(bitWidth int) int {
	return (bitWidth + 7) / 8
}

// zigzag maps signed integers to unsigned so small magnitudes stay small
func zigzag(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

// unzigzag is the inverse of zigzag
func unzigzag(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

// bitWriter packs values LSB-first into a growing byte buffer. Multi-bit
// values are split across byte boundaries starting from the low bits, the
// layout shared by the hybrid run encoding and the delta miniblocks.
type bitWriter struct {
	data []byte
	acc  byte
	nacc uint
}

// PutValue appends the low width bits of v
func (w *bitWriter) PutValue(v uint64, width uint) {
	for width > 0 {
		free := 8 - w.nacc
		take := width
		if take > free {
			take = free
		}
		w.acc |= byte(v&((1<<take)-1)) << w.nacc
		v >>= take
		width -= take
		w.nacc += take
		if w.nacc == 8 {
			w.data = append(w.data, w.acc)
			w.acc = 0
			w.nacc = 0
		}
	}
}

// Align pads the current byte with zero bits so the next write is aligned
func (w *bitWriter) Align() {
	if w.nacc > 0 {
		w.data = append(w.data, w.acc)
		w.acc = 0
		w.nacc = 0
	}
}

// PutAligned appends raw bytes after aligning to a byte boundary
func (w *bitWriter) PutAligned(p []byte) {
	w.Align()
	w.data = append(w.data, p...)
}

// PutUvarint appends a ULEB128 varint after aligning
func (w *bitWriter) PutUvarint(v uint64) {
	w.Align()
	w.data = binary.AppendUvarint(w.data, v)
}

// PutZigzagVarint appends a zigzag-encoded varint after aligning
func (w *bitWriter) PutZigzagVarint(v int64) {
	w.PutUvarint(zigzag(v))
}

// Bytes returns the encoded bytes including any partial trailing byte
func (w *bitWriter) Bytes() []byte {
	w.Align()
	return w.data
}

// Len returns the number of whole bytes the writer would emit
func (w *bitWriter) Len() int {
	n := len(w.data)
	if w.nacc > 0 {
		n++
	}
	return n
}

// Reset clears the writer for reuse
func (w *bitWriter) Reset() {
	w.data = w.data[:0]
	w.acc = 0
	w.nacc = 0
}

// bitReader is the reading counterpart of bitWriter. All read methods
// report false instead of reading past the end of the slice.
type bitReader struct {
	data    []byte
	byteOff int
	bitOff  uint
}

func newBitReader(data []byte) *bitReader {
	return &bitReader{data: data}
}

// GetValue reads the next width bits as an LSB-first value
func (r *bitReader) GetValue(width uint) (uint64, bool) {
	var v uint64
	var got uint
	for got < width {
		if r.byteOff >= len(r.data) {
			return 0, false
		}
		avail := 8 - r.bitOff
		take := width - got
		if take > avail {
			take = avail
		}
		chunk := (uint64(r.data[r.byteOff]) >> r.bitOff) & ((1 << take) - 1)
		v |= chunk << got
		got += take
		r.bitOff += take
		if r.bitOff == 8 {
			r.bitOff = 0
			r.byteOff++
		}
	}
	return v, true
}

// SkipValues skips count values of the given width
func (r *bitReader) SkipValues(count int, width uint) bool {
	total := uint64(count) * uint64(width)
	newBit := uint64(r.byteOff)*8 + uint64(r.bitOff) + total
	if newBit > uint64(len(r.data))*8 {
		return false
	}
	r.byteOff = int(newBit / 8)
	r.bitOff = uint(newBit % 8)
	return true
}

// Align advances to the next byte boundary
func (r *bitReader) Align() {
	if r.bitOff > 0 {
		r.bitOff = 0
		r.byteOff++
	}
}

// GetAligned reads n raw bytes after aligning
func (r *bitReader) GetAligned(n int) ([]byte, bool) {
	r.Align()
	if r.byteOff+n > len(r.data) {
		return nil, false
	}
	p := r.data[r.byteOff : r.byteOff+n]
	r.byteOff += n
	return p, true
}

// GetUvarint reads a ULEB128 varint after aligning
func (r *bitReader) GetUvarint() (uint64, bool) {
	r.Align()
	v, n := binary.Uvarint(r.data[r.byteOff:])
	if n <= 0 {
		return 0, false
	}
	r.byteOff += n
	return v, true
}

// GetZigzagVarint reads a zigzag-encoded varint after aligning
func (r *bitReader) GetZigzagVarint() (int64, bool) {
	v, ok := r.GetUvarint()
	if !ok {
		return 0, false
	}
	return unzigzag(v), true
}

// ByteOffset returns the number of bytes consumed, counting a partially
// read byte as consumed
func (r *bitReader) ByteOffset() int {
	if r.bitOff > 0 {
		return r.byteOff + 1
	}
	return r.byteOff
}
