// Package compression provides the page payload codecs. Each codec is
// identified by a stable one-byte id stored in the page header, so the
// mapping here is part of the on-disk format and must not be reordered.
package compression

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"io"
	"sync"

	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/datalith/strata/pkg/errors"
)

// Codec identifies a compression codec on disk
type Codec uint8

const (
	// None stores page payloads uncompressed
	None Codec = 0
	// Snappy is fast with moderate compression
	Snappy Codec = 1
	// Gzip favors compatibility and ratio over speed
	Gzip Codec = 2
	// LZ4 uses the lz4 frame format
	LZ4 Codec = 3
	// Zstd gives the best ratio at good speed
	Zstd Codec = 4
	// S2 is snappy-compatible with better compression
	S2 Codec = 5
	// Deflate is raw DEFLATE without the gzip wrapper
	Deflate Codec = 6
)

var codecNames = map[Codec]string{
	None:    "none",
	Snappy:  "snappy",
	Gzip:    "gzip",
	LZ4:     "lz4",
	Zstd:    "zstd",
	S2:      "s2",
	Deflate: "deflate",
}

func (c Codec) String() string {
	if n, ok := codecNames[c]; ok {
		return n
	}
	return "unknown"
}

// CodecFromName resolves a configuration name to a codec id
func CodecFromName(name string) (Codec, error) {
	for c, n := range codecNames {
		if n == name {
			return c, nil
		}
	}
	return None, errors.Newf(errors.KindConfig, "unknown compression codec %q", name)
}

// Compressor compresses and decompresses page payloads in memory.
// Implementations are safe for concurrent use.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Codec() Codec
}

// NewCompressor returns the compressor for the given codec id. Unknown
// ids fail with UnsupportedEncoding, which is how a reader reports a
// page written by a newer format revision.
func NewCompressor(codec Codec) (Compressor, error) {
	switch codec {
	case None:
		return noneCompressor{}, nil
	case Snappy:
		return snappyCompressor{}, nil
	case Gzip:
		return newGzipCompressor(), nil
	case LZ4:
		return lz4Compressor{}, nil
	case Zstd:
		return newZstdCompressor(), nil
	case S2:
		return s2Compressor{}, nil
	case Deflate:
		return deflateCompressor{}, nil
	default:
		return nil, errors.Newf(errors.KindUnsupportedEncoding,
			"unknown compression codec id %d", codec)
	}
}

type noneCompressor struct{}

func (noneCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (noneCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
func (noneCompressor) Codec() Codec                           { return None }

type snappyCompressor struct{}

func (snappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (snappyCompressor) Decompress(data []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindMalformedEncoding, "snappy decompress")
	}
	return out, nil
}

func (snappyCompressor) Codec() Codec { return Snappy }

type s2Compressor struct{}

func (s2Compressor) Compress(data []byte) ([]byte, error) {
	return s2.Encode(nil, data), nil
}

func (s2Compressor) Decompress(data []byte) ([]byte, error) {
	out, err := s2.Decode(nil, data)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindMalformedEncoding, "s2 decompress")
	}
	return out, nil
}

func (s2Compressor) Codec() Codec { return S2 }

// gzipCompressor pools its writers and readers; constructing either is
// the expensive part of the codec.
type gzipCompressor struct {
	writers *sync.Pool
	readers *sync.Pool
}

func newGzipCompressor() *gzipCompressor {
	return &gzipCompressor{
		writers: &sync.Pool{New: func() interface{} {
			return gzip.NewWriter(nil)
		}},
		readers: &sync.Pool{New: func() interface{} {
			return new(gzip.Reader)
		}},
	}
}

func (gc *gzipCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gc.writers.Get().(*gzip.Writer)
	defer gc.writers.Put(w)

	w.Reset(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "gzip compress")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "gzip compress")
	}
	return buf.Bytes(), nil
}

func (gc *gzipCompressor) Decompress(data []byte) ([]byte, error) {
	r := gc.readers.Get().(*gzip.Reader)
	defer gc.readers.Put(r)

	if err := r.Reset(bytes.NewReader(data)); err != nil {
		return nil, errors.Wrap(err, errors.KindMalformedEncoding, "gzip decompress")
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindMalformedEncoding, "gzip decompress")
	}
	return out, nil
}

func (gc *gzipCompressor) Codec() Codec { return Gzip }

type lz4Compressor struct{}

func (lz4Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "lz4 compress")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "lz4 compress")
	}
	return buf.Bytes(), nil
}

func (lz4Compressor) Decompress(data []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, errors.Wrap(err, errors.KindMalformedEncoding, "lz4 decompress")
	}
	return out, nil
}

func (lz4Compressor) Codec() Codec { return LZ4 }

// zstdCompressor pools encoder and decoder instances for the same reason
// gzip does.
type zstdCompressor struct {
	encoders *sync.Pool
	decoders *sync.Pool
}

func newZstdCompressor() *zstdCompressor {
	return &zstdCompressor{
		encoders: &sync.Pool{New: func() interface{} {
			enc, _ := zstd.NewWriter(nil)
			return enc
		}},
		decoders: &sync.Pool{New: func() interface{} {
			dec, _ := zstd.NewReader(nil)
			return dec
		}},
	}
}

func (zc *zstdCompressor) Compress(data []byte) ([]byte, error) {
	enc := zc.encoders.Get().(*zstd.Encoder)
	defer zc.encoders.Put(enc)
	return enc.EncodeAll(data, nil), nil
}

func (zc *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	dec := zc.decoders.Get().(*zstd.Decoder)
	defer zc.decoders.Put(dec)

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindMalformedEncoding, "zstd decompress")
	}
	return out, nil
}

func (zc *zstdCompressor) Codec() Codec { return Zstd }

type deflateCompressor struct{}

func (deflateCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "deflate compress")
	}
	if _, err := w.Write(data); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "deflate compress")
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "deflate compress")
	}
	return buf.Bytes(), nil
}

func (deflateCompressor) Decompress(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindMalformedEncoding, "deflate decompress")
	}
	return out, nil
}

func (deflateCompressor) Codec() Codec { return Deflate }
