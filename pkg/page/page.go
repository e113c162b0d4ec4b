// Package page defines the on-disk page unit: a fixed-width little-endian
// header followed by the compressed payload. The payload of a data page is
// the encoded repetition levels, definition levels and values back to back;
// a dictionary page carries the plain-encoded distinct values only.
package page

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/datalith/strata/pkg/compression"
	"github.com/datalith/strata/pkg/encoding"
	"github.com/datalith/strata/pkg/errors"
)

// Kind distinguishes the two page kinds
type Kind uint8

const (
	// Data pages carry levels and encoded values
	Data Kind = 0
	// Dictionary pages carry the distinct-value table of a chunk
	Dictionary Kind = 1
)

func (k Kind) String() string {
	switch k {
	case Data:
		return "data"
	case Dictionary:
		return "dictionary"
	default:
		return "unknown"
	}
}

const (
	pageMagic = uint16(0x3153) // "S1" little endian

	flagChecksum = uint8(1 << 0)

	// header is magic(2) kind(1) valueEnc(1) repEnc(1) defEnc(1) codec(1)
	// flags(1) numValues(4) repLen(4) defLen(4) uncompressed(4) compressed(4)
	headerSize   = 28
	checksumSize = 8
)

// Page is one immutable on-disk page. The payload is stored compressed;
// Open decompresses and splits it.
type Page struct {
	Kind          Kind
	ValueEncoding encoding.Encoding
	RepEncoding   encoding.Encoding
	DefEncoding   encoding.Encoding
	Codec         compression.Codec

	NumValues        int
	RepLevelBytes    int
	DefLevelBytes    int
	UncompressedSize int

	HasChecksum bool
	Checksum    uint64

	payload []byte
}

// CompressedSize returns the payload size as stored
func (p *Page) CompressedSize() int { return len(p.payload) }

// TotalSize returns the full serialized size, header included
func (p *Page) TotalSize() int {
	n := headerSize + len(p.payload)
	if p.HasChecksum {
		n += checksumSize
	}
	return n
}

// AppendTo serializes the page onto buf and returns the extended slice
func (p *Page) AppendTo(buf []byte) []byte {
	flags := uint8(0)
	if p.HasChecksum {
		flags |= flagChecksum
	}
	buf = binary.LittleEndian.AppendUint16(buf, pageMagic)
	buf = append(buf, byte(p.Kind), byte(p.ValueEncoding), byte(p.RepEncoding),
		byte(p.DefEncoding), byte(p.Codec), flags)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(p.NumValues))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(p.RepLevelBytes))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(p.DefLevelBytes))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(p.UncompressedSize))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(p.payload)))
	if p.HasChecksum {
		buf = binary.LittleEndian.AppendUint64(buf, p.Checksum)
	}
	return append(buf, p.payload...)
}

// Serialize returns the full page bytes
func (p *Page) Serialize() []byte {
	return p.AppendTo(make([]byte, 0, p.TotalSize()))
}

// Parse reads one page from the front of data and returns it together
// with the number of bytes consumed. The payload is referenced, not
// copied; it is not verified or decompressed until Open.
func Parse(data []byte) (*Page, int, error) {
	if len(data) < headerSize {
		return nil, 0, errors.New(errors.KindMalformedEncoding, "truncated page header")
	}
	if binary.LittleEndian.Uint16(data) != pageMagic {
		return nil, 0, errors.New(errors.KindMalformedEncoding, "bad page magic")
	}
	p := &Page{
		Kind:             Kind(data[2]),
		ValueEncoding:    encoding.Encoding(data[3]),
		RepEncoding:      encoding.Encoding(data[4]),
		DefEncoding:      encoding.Encoding(data[5]),
		Codec:            compression.Codec(data[6]),
		NumValues:        int(binary.LittleEndian.Uint32(data[8:])),
		RepLevelBytes:    int(binary.LittleEndian.Uint32(data[12:])),
		DefLevelBytes:    int(binary.LittleEndian.Uint32(data[16:])),
		UncompressedSize: int(binary.LittleEndian.Uint32(data[20:])),
	}
	if p.Kind != Data && p.Kind != Dictionary {
		return nil, 0, errors.Newf(errors.KindMalformedEncoding, "unknown page kind %d", data[2])
	}
	compressed := int(binary.LittleEndian.Uint32(data[24:]))
	pos := headerSize
	if data[7]&flagChecksum != 0 {
		if len(data) < pos+checksumSize {
			return nil, 0, errors.New(errors.KindMalformedEncoding, "truncated page checksum")
		}
		p.HasChecksum = true
		p.Checksum = binary.LittleEndian.Uint64(data[pos:])
		pos += checksumSize
	}
	if len(data) < pos+compressed {
		return nil, 0, errors.Newf(errors.KindMalformedEncoding,
			"page payload needs %d bytes, %d available", compressed, len(data)-pos)
	}
	p.payload = data[pos : pos+compressed]
	return p, pos + compressed, nil
}

// Sections is the decompressed content of a data page split at the
// stored section lengths. Dictionary pages only populate Values.
type Sections struct {
	RepLevels []byte
	DefLevels []byte
	Values    []byte
}

// Open verifies the checksum if present, decompresses the payload and
// splits it into its sections. A checksum mismatch is fatal for the page
// and reported before any decompression is attempted.
func (p *Page) Open() (*Sections, error) {
	if p.HasChecksum {
		if got := xxhash.Sum64(p.payload); got != p.Checksum {
			return nil, errors.Newf(errors.KindChecksumMismatch,
				"page checksum mismatch: stored %016x, computed %016x", p.Checksum, got)
		}
	}
	comp, err := compression.NewCompressor(p.Codec)
	if err != nil {
		return nil, err
	}
	raw, err := comp.Decompress(p.payload)
	if err != nil {
		return nil, err
	}
	if len(raw) != p.UncompressedSize {
		return nil, errors.Newf(errors.KindMalformedEncoding,
			"page decompressed to %d bytes, header promises %d", len(raw), p.UncompressedSize)
	}
	if p.RepLevelBytes+p.DefLevelBytes > len(raw) {
		return nil, errors.New(errors.KindMalformedEncoding,
			"page level sections exceed the payload")
	}
	return &Sections{
		RepLevels: raw[:p.RepLevelBytes],
		DefLevels: raw[p.RepLevelBytes : p.RepLevelBytes+p.DefLevelBytes],
		Values:    raw[p.RepLevelBytes+p.DefLevelBytes:],
	}, nil
}

// Writer assembles pages for one column chunk: it compresses payloads
// with a fixed codec and stamps checksums when enabled.
type Writer struct {
	comp     compression.Compressor
	checksum bool
}

// NewWriter creates a page writer for the given codec
func NewWriter(codec compression.Codec, checksum bool) (*Writer, error) {
	comp, err := compression.NewCompressor(codec)
	if err != nil {
		return nil, err
	}
	return &Writer{comp: comp, checksum: checksum}, nil
}

func (w *Writer) seal(p *Page, raw []byte) (*Page, error) {
	p.UncompressedSize = len(raw)
	payload, err := w.comp.Compress(raw)
	if err != nil {
		return nil, err
	}
	p.Codec = w.comp.Codec()
	p.payload = payload
	if w.checksum {
		p.HasChecksum = true
		p.Checksum = xxhash.Sum64(payload)
	}
	return p, nil
}

// WriteDataPage builds a data page from the already-encoded level and
// value sections.
func (w *Writer) WriteDataPage(numValues int, repLevels, defLevels, values []byte,
	valueEnc, repEnc, defEnc encoding.Encoding) (*Page, error) {

	raw := make([]byte, 0, len(repLevels)+len(defLevels)+len(values))
	raw = append(raw, repLevels...)
	raw = append(raw, defLevels...)
	raw = append(raw, values...)

	return w.seal(&Page{
		Kind:          Data,
		ValueEncoding: valueEnc,
		RepEncoding:   repEnc,
		DefEncoding:   defEnc,
		NumValues:     numValues,
		RepLevelBytes: len(repLevels),
		DefLevelBytes: len(defLevels),
	}, raw)
}

// WriteDictionaryPage builds the dictionary page from the plain-encoded
// distinct values.
func (w *Writer) WriteDictionaryPage(numEntries int, dict []byte) (*Page, error) {
	return w.seal(&Page{
		Kind:          Dictionary,
		ValueEncoding: encoding.Plain,
		NumValues:     numEntries,
	}, dict)
}
