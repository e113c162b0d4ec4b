package encoding

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalith/strata/pkg/errors"
	"github.com/datalith/strata/pkg/schema"
	"github.com/datalith/strata/pkg/testutil"
)

func deltaRoundTrip(t *testing.T, desc *schema.ColumnDescriptor, values []schema.Datum) []byte {
	t.Helper()
	enc, err := NewDeltaBinaryPackedEncoder(desc)
	require.NoError(t, err)
	require.NoError(t, enc.Put(values))
	data, err := enc.FlushBuffer()
	require.NoError(t, err)

	dec, err := NewDeltaBinaryPackedDecoder(desc)
	require.NoError(t, err)
	require.NoError(t, dec.SetData(data, len(values)))
	got := make([]schema.Datum, len(values))
	n, err := dec.Get(got)
	require.NoError(t, err)
	require.Equal(t, len(values), n)
	for i := range values {
		assert.True(t, values[i].Equal(got[i]), "value %d: want %s got %s", i, values[i], got[i])
	}
	assert.Equal(t, 0, dec.ValuesLeft())
	return data
}

func int64Datums(vs ...int64) []schema.Datum {
	out := make([]schema.Datum, len(vs))
	for i, v := range vs {
		out[i] = schema.Int64Datum(v)
	}
	return out
}

func int32Datums(vs ...int32) []schema.Datum {
	out := make([]schema.Datum, len(vs))
	for i, v := range vs {
		out[i] = schema.Int32Datum(v)
	}
	return out
}

func TestDeltaBinaryPackedRoundTrip(t *testing.T) {
	desc := descFor(schema.Int64, 0)
	deltaRoundTrip(t, desc, nil)
	deltaRoundTrip(t, desc, int64Datums(42))
	deltaRoundTrip(t, desc, int64Datums(7, 7, 7, 7, 7))
	deltaRoundTrip(t, desc, int64Datums(1, 2, 3, 4, 5, 6))
	deltaRoundTrip(t, desc, int64Datums(5, -200, 31, 0, 1<<40, -(1 << 40)))

	r := rand.New(rand.NewSource(21))
	deltaRoundTrip(t, desc, testutil.AscendingInt64s(r, 1000))
	deltaRoundTrip(t, desc, testutil.RandomDatums(r, schema.Int64, 0, 777))

	desc32 := descFor(schema.Int32, 0)
	deltaRoundTrip(t, desc32, int32Datums(1, 2, 3))
	deltaRoundTrip(t, desc32, testutil.RandomDatums(r, schema.Int32, 0, 500))
}

func TestDeltaBinaryPackedExtremes(t *testing.T) {
	// deltas wrap at the type width instead of overflowing
	deltaRoundTrip(t, descFor(schema.Int64, 0), int64Datums(
		math.MinInt64, math.MaxInt64, 0, math.MaxInt64, math.MinInt64,
	))
	deltaRoundTrip(t, descFor(schema.Int32, 0), int32Datums(
		math.MinInt32, math.MaxInt32, -1, math.MaxInt32, math.MinInt32, 0,
	))
}

func TestDeltaBinaryPackedBlockBoundaries(t *testing.T) {
	desc := descFor(schema.Int64, 0)
	r := rand.New(rand.NewSource(4))
	// counts around the miniblock and block sizes
	for _, n := range []int{31, 32, 33, 127, 128, 129, 256, 300} {
		deltaRoundTrip(t, desc, testutil.RandomDatums(r, schema.Int64, 0, n))
	}
}

func TestDeltaBinaryPackedOffset(t *testing.T) {
	// Offset() must land exactly at the end of the stream once every value
	// is decoded; the byte-array encodings rely on it to locate their bodies.
	desc := descFor(schema.Int32, 0)
	r := rand.New(rand.NewSource(8))
	for _, n := range []int{1, 2, 31, 33, 128, 129, 500} {
		values := testutil.RandomDatums(r, schema.Int32, 0, n)
		enc, err := NewDeltaBinaryPackedEncoder(desc)
		require.NoError(t, err)
		require.NoError(t, enc.Put(values))
		data, err := enc.FlushBuffer()
		require.NoError(t, err)

		dec, err := NewDeltaBinaryPackedDecoder(desc)
		require.NoError(t, err)
		require.NoError(t, dec.SetData(data, n))
		got := make([]schema.Datum, n)
		_, err = dec.Get(got)
		require.NoError(t, err)
		assert.Equal(t, len(data), dec.Offset(), "count %d", n)
	}
}

func TestDeltaBinaryPackedHeaderMismatch(t *testing.T) {
	desc := descFor(schema.Int64, 0)
	enc, err := NewDeltaBinaryPackedEncoder(desc)
	require.NoError(t, err)
	require.NoError(t, enc.Put(int64Datums(1, 2, 3)))
	data, err := enc.FlushBuffer()
	require.NoError(t, err)

	dec, err := NewDeltaBinaryPackedDecoder(desc)
	require.NoError(t, err)
	err = dec.SetData(data, 4)
	assert.True(t, errors.IsKind(err, errors.KindMalformedEncoding))

	// a negative count defers to the header
	require.NoError(t, dec.SetData(data, -1))
	assert.Equal(t, 3, dec.ValuesLeft())
}

func TestDeltaBinaryPackedTruncated(t *testing.T) {
	desc := descFor(schema.Int64, 0)
	dec, err := NewDeltaBinaryPackedDecoder(desc)
	require.NoError(t, err)

	err = dec.SetData(nil, 0)
	assert.True(t, errors.IsKind(err, errors.KindMalformedEncoding))

	enc, err := NewDeltaBinaryPackedEncoder(desc)
	require.NoError(t, err)
	require.NoError(t, enc.Put(int64Datums(10, 20, 30, 40)))
	data, err := enc.FlushBuffer()
	require.NoError(t, err)

	require.NoError(t, dec.SetData(data[:len(data)-2], 4))
	_, err = dec.Get(make([]schema.Datum, 4))
	assert.True(t, errors.IsKind(err, errors.KindMalformedEncoding))
}

func TestDeltaBinaryPackedRejectsNonInteger(t *testing.T) {
	_, err := NewDeltaBinaryPackedEncoder(descFor(schema.Double, 0))
	assert.True(t, errors.IsKind(err, errors.KindUnsupportedEncoding))
	_, err = NewDeltaBinaryPackedDecoder(descFor(schema.ByteArray, 0))
	assert.True(t, errors.IsKind(err, errors.KindUnsupportedEncoding))
}
