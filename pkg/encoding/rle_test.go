package encoding

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalith/strata/pkg/errors"
)

func rleRoundTrip(t *testing.T, bitWidth int, values []uint64) {
	t.Helper()
	enc := NewRleEncoder(bitWidth)
	for _, v := range values {
		require.NoError(t, enc.Put(v))
	}
	data := enc.Flush()

	dec := NewRleDecoder(bitWidth)
	dec.SetData(data)
	got := make([]uint64, len(values))
	require.NoError(t, dec.GetBatch(got))
	assert.Equal(t, values, got)
}

func TestRleRoundTrip(t *testing.T) {
	rleRoundTrip(t, 1, []uint64{0, 1, 1, 0, 1})
	rleRoundTrip(t, 1, nil)

	// long repeats become RLE runs
	long := make([]uint64, 100)
	for i := range long {
		long[i] = 1
	}
	rleRoundTrip(t, 3, long)

	// alternating values never qualify for a run
	alt := make([]uint64, 100)
	for i := range alt {
		alt[i] = uint64(i % 2)
	}
	rleRoundTrip(t, 1, alt)

	// maximal values at several widths
	for _, bw := range []int{1, 2, 5, 8, 13, 16, 24, 32} {
		max := uint64(1)<<uint(bw) - 1
		rleRoundTrip(t, bw, []uint64{max, 0, max, max, max, max, max, max, max, max, 0})
	}
}

func TestRleRoundTripRandom(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for _, bw := range []int{1, 2, 4, 7, 10} {
		for trial := 0; trial < 20; trial++ {
			n := r.Intn(500)
			values := make([]uint64, n)
			for i := range values {
				// small alphabet to exercise both run kinds
				values[i] = uint64(r.Intn(3)) % (1 << uint(bw))
			}
			rleRoundTrip(t, bw, values)
		}
	}
}

func TestRleLongRunEncodesShort(t *testing.T) {
	enc := NewRleEncoder(1)
	for i := 0; i < 1000; i++ {
		require.NoError(t, enc.Put(1))
	}
	data := enc.Flush()
	// one varint header plus one value byte
	assert.LessOrEqual(t, len(data), 4)
}

func TestRleDecodeKnownBytes(t *testing.T) {
	// 0x05 selects a bit-packed run of two groups; the two payload bytes
	// carry sixteen one-bit values LSB first.
	dec := NewRleDecoder(1)
	dec.SetData([]byte{5, 198, 2})
	got := make([]uint64, 10)
	require.NoError(t, dec.GetBatch(got))
	assert.Equal(t, []uint64{0, 1, 1, 0, 0, 0, 1, 1, 0, 1}, got)

	dec = NewRleDecoder(2)
	dec.SetData([]byte{5, 42, 168, 10, 0})
	got = make([]uint64, 10)
	require.NoError(t, dec.GetBatch(got))
	assert.Equal(t, []uint64{2, 2, 2, 0, 0, 2, 2, 2, 2, 2}, got)
}

func TestRleDecodeRleRun(t *testing.T) {
	// header 20 = 10<<1 selects an RLE run of ten copies of 2
	dec := NewRleDecoder(2)
	dec.SetData([]byte{20, 2})
	got := make([]uint64, 10)
	require.NoError(t, dec.GetBatch(got))
	for _, v := range got {
		assert.Equal(t, uint64(2), v)
	}
}

func TestRlePutOutOfRange(t *testing.T) {
	enc := NewRleEncoder(2)
	err := enc.Put(4)
	require.Error(t, err)
}

func TestRleDecodeTruncated(t *testing.T) {
	dec := NewRleDecoder(8)
	// bit-packed header promising one group with no payload
	dec.SetData([]byte{3})
	err := dec.GetBatch(make([]uint64, 8))
	assert.True(t, errors.IsKind(err, errors.KindMalformedEncoding))

	// stream that ends before the requested count
	dec = NewRleDecoder(8)
	dec.SetData([]byte{16, 7}) // 8 repeats of 7
	err = dec.GetBatch(make([]uint64, 9))
	assert.True(t, errors.IsKind(err, errors.KindMalformedEncoding))
}

func TestRleZeroBitWidth(t *testing.T) {
	// a zero bit width stream decodes to zeros without any bytes
	dec := NewRleDecoder(0)
	dec.SetData(nil)
	got := make([]uint64, 5)
	require.NoError(t, dec.GetBatch(got))
	assert.Equal(t, []uint64{0, 0, 0, 0, 0}, got)
}
