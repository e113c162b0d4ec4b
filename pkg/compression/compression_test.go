package compression

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalith/strata/pkg/errors"
)

var allCodecs = []Codec{None, Snappy, Gzip, LZ4, Zstd, S2, Deflate}

func TestCompressorRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(13))
	inputs := [][]byte{
		nil,
		[]byte("x"),
		[]byte("the quick brown fox jumps over the lazy dog"),
		bytes.Repeat([]byte("abcd"), 10_000),
	}
	random := make([]byte, 5000)
	r.Read(random)
	inputs = append(inputs, random)

	for _, codec := range allCodecs {
		comp, err := NewCompressor(codec)
		require.NoError(t, err)
		assert.Equal(t, codec, comp.Codec())
		for i, in := range inputs {
			packed, err := comp.Compress(in)
			require.NoError(t, err, "%s input %d", codec, i)
			out, err := comp.Decompress(packed)
			require.NoError(t, err, "%s input %d", codec, i)
			assert.True(t, bytes.Equal(in, out), "%s input %d", codec, i)
		}
	}
}

func TestCompressorShrinksRepetitiveData(t *testing.T) {
	in := bytes.Repeat([]byte("columnar"), 4096)
	for _, codec := range allCodecs {
		if codec == None {
			continue
		}
		comp, err := NewCompressor(codec)
		require.NoError(t, err)
		packed, err := comp.Compress(in)
		require.NoError(t, err)
		assert.Less(t, len(packed), len(in), codec.String())
	}
}

func TestCompressorConcurrent(t *testing.T) {
	// the pooled codecs must tolerate concurrent callers
	for _, codec := range []Codec{Gzip, Zstd} {
		comp, err := NewCompressor(codec)
		require.NoError(t, err)
		done := make(chan error, 8)
		for g := 0; g < 8; g++ {
			go func(seed int64) {
				r := rand.New(rand.NewSource(seed))
				for i := 0; i < 50; i++ {
					in := make([]byte, r.Intn(2000))
					r.Read(in)
					packed, err := comp.Compress(in)
					if err != nil {
						done <- err
						return
					}
					out, err := comp.Decompress(packed)
					if err != nil {
						done <- err
						return
					}
					if !bytes.Equal(in, out) {
						done <- errors.New(errors.KindInternal, "round trip mismatch")
						return
					}
				}
				done <- nil
			}(int64(g))
		}
		for g := 0; g < 8; g++ {
			require.NoError(t, <-done)
		}
	}
}

func TestDecompressGarbage(t *testing.T) {
	garbage := []byte{0xff, 0xfe, 0xfd, 0x00, 0x01, 0x02, 0x03}
	for _, codec := range allCodecs {
		if codec == None {
			continue
		}
		comp, err := NewCompressor(codec)
		require.NoError(t, err)
		_, err = comp.Decompress(garbage)
		assert.True(t, errors.IsKind(err, errors.KindMalformedEncoding), codec.String())
	}
}

func TestCodecNames(t *testing.T) {
	for _, codec := range allCodecs {
		got, err := CodecFromName(codec.String())
		require.NoError(t, err)
		assert.Equal(t, codec, got)
	}
	_, err := CodecFromName("brotli")
	assert.True(t, errors.IsKind(err, errors.KindConfig))
	assert.Equal(t, "unknown", Codec(200).String())

	_, err = NewCompressor(Codec(200))
	assert.True(t, errors.IsKind(err, errors.KindUnsupportedEncoding))
}
