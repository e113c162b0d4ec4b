package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalith/strata/pkg/compression"
	"github.com/datalith/strata/pkg/encoding"
	"github.com/datalith/strata/pkg/errors"
)

func TestPageRoundTrip(t *testing.T) {
	rep := []byte{1, 2, 3}
	def := []byte{4, 5}
	values := []byte("some encoded values")

	for _, codec := range []compression.Codec{
		compression.None, compression.Snappy, compression.Gzip,
		compression.LZ4, compression.Zstd, compression.S2, compression.Deflate,
	} {
		for _, checksum := range []bool{true, false} {
			w, err := NewWriter(codec, checksum)
			require.NoError(t, err)
			p, err := w.WriteDataPage(7, rep, def, values,
				encoding.Plain, encoding.RLE, encoding.RLE)
			require.NoError(t, err)

			data := p.Serialize()
			require.Len(t, data, p.TotalSize())

			got, consumed, err := Parse(data)
			require.NoError(t, err)
			assert.Equal(t, len(data), consumed)
			assert.Equal(t, Data, got.Kind)
			assert.Equal(t, encoding.Plain, got.ValueEncoding)
			assert.Equal(t, encoding.RLE, got.RepEncoding)
			assert.Equal(t, encoding.RLE, got.DefEncoding)
			assert.Equal(t, codec, got.Codec)
			assert.Equal(t, 7, got.NumValues)
			assert.Equal(t, checksum, got.HasChecksum)

			sections, err := got.Open()
			require.NoError(t, err)
			assert.Equal(t, rep, sections.RepLevels)
			assert.Equal(t, def, sections.DefLevels)
			assert.Equal(t, values, sections.Values)
		}
	}
}

func TestDictionaryPageRoundTrip(t *testing.T) {
	w, err := NewWriter(compression.Snappy, true)
	require.NoError(t, err)
	dict := []byte("plain encoded distinct values")
	p, err := w.WriteDictionaryPage(3, dict)
	require.NoError(t, err)

	got, _, err := Parse(p.Serialize())
	require.NoError(t, err)
	assert.Equal(t, Dictionary, got.Kind)
	assert.Equal(t, 3, got.NumValues)
	assert.Equal(t, 0, got.RepLevelBytes)
	assert.Equal(t, 0, got.DefLevelBytes)

	sections, err := got.Open()
	require.NoError(t, err)
	assert.Empty(t, sections.RepLevels)
	assert.Empty(t, sections.DefLevels)
	assert.Equal(t, dict, sections.Values)
}

func TestPageChecksumDetectsCorruption(t *testing.T) {
	w, err := NewWriter(compression.None, true)
	require.NoError(t, err)
	p, err := w.WriteDataPage(2, nil, []byte{1}, []byte("payload"),
		encoding.Plain, encoding.RLE, encoding.RLE)
	require.NoError(t, err)

	data := p.Serialize()
	// flip one payload byte
	data[len(data)-1] ^= 0x40

	got, _, err := Parse(data)
	require.NoError(t, err)
	_, err = got.Open()
	assert.True(t, errors.IsKind(err, errors.KindChecksumMismatch))
}

func TestPageWithoutChecksumSkipsVerification(t *testing.T) {
	w, err := NewWriter(compression.None, false)
	require.NoError(t, err)
	p, err := w.WriteDataPage(1, nil, nil, []byte("abc"),
		encoding.Plain, encoding.RLE, encoding.RLE)
	require.NoError(t, err)

	data := p.Serialize()
	data[len(data)-1] = 'z'
	got, _, err := Parse(data)
	require.NoError(t, err)
	sections, err := got.Open()
	require.NoError(t, err)
	assert.Equal(t, []byte("abz"), sections.Values)
}

func TestParseErrors(t *testing.T) {
	_, _, err := Parse([]byte{1, 2, 3})
	assert.True(t, errors.IsKind(err, errors.KindMalformedEncoding))

	w, err := NewWriter(compression.None, true)
	require.NoError(t, err)
	p, err := w.WriteDataPage(1, nil, nil, []byte("abc"),
		encoding.Plain, encoding.RLE, encoding.RLE)
	require.NoError(t, err)
	data := p.Serialize()

	// bad magic
	bad := append([]byte(nil), data...)
	bad[0] = 0
	_, _, err = Parse(bad)
	assert.True(t, errors.IsKind(err, errors.KindMalformedEncoding))

	// unknown kind
	bad = append([]byte(nil), data...)
	bad[2] = 9
	_, _, err = Parse(bad)
	assert.True(t, errors.IsKind(err, errors.KindMalformedEncoding))

	// truncated payload
	_, _, err = Parse(data[:len(data)-1])
	assert.True(t, errors.IsKind(err, errors.KindMalformedEncoding))
}

func TestParseConsumesOnePage(t *testing.T) {
	w, err := NewWriter(compression.Snappy, true)
	require.NoError(t, err)
	p1, err := w.WriteDataPage(1, nil, nil, []byte("first"),
		encoding.Plain, encoding.RLE, encoding.RLE)
	require.NoError(t, err)
	p2, err := w.WriteDataPage(1, nil, nil, []byte("second"),
		encoding.Plain, encoding.RLE, encoding.RLE)
	require.NoError(t, err)

	data := append(p1.Serialize(), p2.Serialize()...)
	got1, n1, err := Parse(data)
	require.NoError(t, err)
	got2, n2, err := Parse(data[n1:])
	require.NoError(t, err)
	assert.Equal(t, len(data), n1+n2)

	s1, err := got1.Open()
	require.NoError(t, err)
	s2, err := got2.Open()
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), s1.Values)
	assert.Equal(t, []byte("second"), s2.Values)
}
