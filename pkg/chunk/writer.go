package chunk

import (
	"go.uber.org/zap"

	"github.com/datalith/strata/pkg/compression"
	"github.com/datalith/strata/pkg/config"
	"github.com/datalith/strata/pkg/encoding"
	"github.com/datalith/strata/pkg/errors"
	"github.com/datalith/strata/pkg/logger"
	"github.com/datalith/strata/pkg/metrics"
	"github.com/datalith/strata/pkg/page"
	"github.com/datalith/strata/pkg/schema"
	"github.com/datalith/strata/pkg/shred"
)

// Chunk is one finalized column chunk: its pages in on-disk order (the
// dictionary page first when present) and the frozen statistics.
type Chunk struct {
	Desc      *schema.ColumnDescriptor
	Pages     []*page.Page
	Stats     Statistics
	Encodings []encoding.Encoding
}

// pendingPage is a data page flushed while the dictionary is still live.
// Its levels are final but its values exist twice: as dictionary indices
// and as the retained raw entries, so the page can be re-encoded without
// the dictionary if the chunk falls back later.
type pendingPage struct {
	numValues int
	repBytes  []byte
	defBytes  []byte
	idxBytes  []byte
	entries   []shred.FlatEntry
}

// Writer accumulates one leaf column's shredded entries into pages.
// It is single-writer; no internal locking.
type Writer struct {
	desc *schema.ColumnDescriptor
	cfg  *config.Config
	pw   *page.Writer
	log  *zap.Logger

	valueEnc encoding.Encoding

	batch      []shred.FlatEntry
	batchBytes int

	dict     *encoding.DictEncoder
	pending  []pendingPage
	fellBack bool

	pages  []*page.Page
	stats  Statistics
	closed bool
}

// NewWriter creates a chunk writer for one leaf column
func NewWriter(desc *schema.ColumnDescriptor, cfg *config.Config) (*Writer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	codec, err := compression.CodecFromName(cfg.Compression.Codec)
	if err != nil {
		return nil, err
	}
	pw, err := page.NewWriter(codec, cfg.Checksum.Enabled)
	if err != nil {
		return nil, err
	}
	w := &Writer{
		desc:     desc,
		cfg:      cfg,
		pw:       pw,
		log:      logger.ForColumn(desc.Path),
		valueEnc: valueEncodingFor(desc, cfg.Page.ValueEncoding),
	}
	if cfg.Dictionary.Enabled && desc.Type != schema.Boolean {
		w.dict = encoding.NewDictEncoder(desc)
	}
	return w, nil
}

// WriteEntries appends shredded entries, flushing pages as the batch
// reaches the configured bounds.
func (w *Writer) WriteEntries(entries []shred.FlatEntry) error {
	if w.closed {
		return errors.New(errors.KindInternal, "chunk writer already closed").WithColumn(w.desc.Path)
	}
	for _, e := range entries {
		if e.RepLevel < 0 || e.RepLevel > w.desc.MaxRepetitionLevel ||
			e.DefLevel < 0 || e.DefLevel > w.desc.MaxDefinitionLevel {
			return errors.Newf(errors.KindSchemaViolation,
				"levels (%d, %d) outside column bounds (%d, %d)",
				e.RepLevel, e.DefLevel,
				w.desc.MaxRepetitionLevel, w.desc.MaxDefinitionLevel).
				WithColumn(w.desc.Path)
		}
		w.stats.observe(e.Datum, e.RepLevel)
		w.batch = append(w.batch, e)
		if e.Datum != nil {
			w.batchBytes += datumSize(*e.Datum)
			if w.dict != nil {
				if err := w.dict.Put([]schema.Datum{*e.Datum}); err != nil {
					return err
				}
				if w.dict.NumEntries() > w.cfg.Dictionary.MaxDistinct {
					if err := w.fallBack(); err != nil {
						return err
					}
				}
			}
		}
		if len(w.batch) >= w.cfg.Page.MaxValues || w.batchBytes >= w.cfg.Page.MaxBytes {
			if err := w.flushPage(); err != nil {
				return err
			}
		}
	}
	return nil
}

// FellBack reports whether the chunk abandoned dictionary encoding
func (w *Writer) FellBack() bool { return w.fellBack }

// flushPage encodes the current batch. While the dictionary is live the
// page is parked as pending; otherwise it is sealed immediately.
func (w *Writer) flushPage() error {
	n := len(w.batch)
	if n == 0 {
		return nil
	}
	repB, defB, err := w.encodeLevels(w.batch)
	if err != nil {
		return err
	}

	if w.dict != nil {
		idxB, err := w.dict.FlushBuffer()
		if err != nil {
			return err
		}
		w.pending = append(w.pending, pendingPage{
			numValues: n,
			repBytes:  repB,
			defBytes:  defB,
			idxBytes:  idxB,
			entries:   w.batch,
		})
		w.batch = nil
		w.batchBytes = 0
		return nil
	}

	valB, err := w.encodeValues(w.batch)
	if err != nil {
		return err
	}
	p, err := w.pw.WriteDataPage(n, repB, defB, valB, w.valueEnc, encoding.RLE, encoding.RLE)
	if err != nil {
		return err
	}
	w.emit(p)
	w.batch = nil
	w.batchBytes = 0
	return nil
}

func (w *Writer) encodeLevels(entries []shred.FlatEntry) (repB, defB []byte, err error) {
	if w.desc.MaxRepetitionLevel > 0 {
		enc, err := encoding.NewLevelEncoder(encoding.RLE, w.desc.MaxRepetitionLevel)
		if err != nil {
			return nil, nil, err
		}
		levels := make([]int, len(entries))
		for i, e := range entries {
			levels[i] = e.RepLevel
		}
		if err := enc.Put(levels); err != nil {
			return nil, nil, err
		}
		repB = enc.Consume()
	}
	if w.desc.MaxDefinitionLevel > 0 {
		enc, err := encoding.NewLevelEncoder(encoding.RLE, w.desc.MaxDefinitionLevel)
		if err != nil {
			return nil, nil, err
		}
		levels := make([]int, len(entries))
		for i, e := range entries {
			levels[i] = e.DefLevel
		}
		if err := enc.Put(levels); err != nil {
			return nil, nil, err
		}
		defB = enc.Consume()
	}
	return repB, defB, nil
}

func (w *Writer) encodeValues(entries []shred.FlatEntry) ([]byte, error) {
	enc, err := encoding.NewEncoder(w.desc, w.valueEnc)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.Datum == nil {
			continue
		}
		if err := enc.Put([]schema.Datum{*e.Datum}); err != nil {
			return nil, err
		}
	}
	return enc.FlushBuffer()
}

// fallBack abandons dictionary encoding for the rest of the chunk and
// re-encodes every parked page without it. One way; never reversed.
func (w *Writer) fallBack() error {
	w.log.Debug("dictionary threshold exceeded, falling back",
		zap.Int("distinct", w.dict.NumEntries()),
		zap.Int("threshold", w.cfg.Dictionary.MaxDistinct))
	metrics.DictionaryFallbacks.WithLabelValues(w.desc.Path).Inc()

	for _, pend := range w.pending {
		valB, err := w.encodeValues(pend.entries)
		if err != nil {
			return err
		}
		p, err := w.pw.WriteDataPage(pend.numValues, pend.repBytes, pend.defBytes, valB,
			w.valueEnc, encoding.RLE, encoding.RLE)
		if err != nil {
			return err
		}
		w.emit(p)
	}
	w.pending = nil
	w.dict = nil
	w.fellBack = true
	return nil
}

func (w *Writer) emit(p *page.Page) {
	w.record(p)
	w.pages = append(w.pages, p)
}

func (w *Writer) record(p *page.Page) {
	metrics.PagesWritten.WithLabelValues(w.desc.Path, p.Kind.String()).Inc()
	metrics.BytesWritten.WithLabelValues(w.desc.Path).Add(float64(p.TotalSize()))
	if p.CompressedSize() > 0 {
		metrics.CompressionRatio.Observe(float64(p.UncompressedSize) / float64(p.CompressedSize()))
	}
}

// Close flushes the last batch, resolves the dictionary decision and
// freezes the chunk. The page order is dictionary page first, then data
// pages in write order.
func (w *Writer) Close() (*Chunk, error) {
	if w.closed {
		return nil, errors.New(errors.KindInternal, "chunk writer already closed").WithColumn(w.desc.Path)
	}
	w.closed = true
	if err := w.flushPage(); err != nil {
		return nil, err
	}

	w.stats.DistinctCount = -1
	encodings := []encoding.Encoding{encoding.RLE}

	if w.dict != nil && len(w.pending) > 0 {
		dictB, err := w.dict.WriteDict()
		if err != nil {
			return nil, err
		}
		dp, err := w.pw.WriteDictionaryPage(w.dict.NumEntries(), dictB)
		if err != nil {
			return nil, err
		}
		pages := make([]*page.Page, 0, len(w.pending)+1)
		pages = append(pages, dp)
		for _, pend := range w.pending {
			p, err := w.pw.WriteDataPage(pend.numValues, pend.repBytes, pend.defBytes,
				pend.idxBytes, encoding.RLEDictionary, encoding.RLE, encoding.RLE)
			if err != nil {
				return nil, err
			}
			pages = append(pages, p)
		}
		w.pages = pages
		for _, p := range pages {
			w.record(p)
		}
		w.stats.DistinctCount = int64(w.dict.NumEntries())
		encodings = append(encodings, encoding.Plain, encoding.RLEDictionary)
	} else if len(w.pages) > 0 {
		encodings = append(encodings, w.valueEnc)
	}

	w.log.Debug("chunk closed",
		zap.Int("pages", len(w.pages)),
		zap.Int64("values", w.stats.TotalValues),
		zap.Int64("nulls", w.stats.NullCount),
		zap.Bool("dictionary", w.stats.DistinctCount >= 0))

	return &Chunk{
		Desc:      w.desc,
		Pages:     w.pages,
		Stats:     w.stats,
		Encodings: encodings,
	}, nil
}

// valueEncodingFor resolves the configured non-dictionary encoding for a
// column, falling back to plain when the encoding does not cover the
// column's physical type.
func valueEncodingFor(desc *schema.ColumnDescriptor, name string) encoding.Encoding {
	switch name {
	case "delta_binary_packed":
		if desc.Type == schema.Int32 || desc.Type == schema.Int64 {
			return encoding.DeltaBinaryPacked
		}
	case "delta_length_byte_array":
		if desc.Type == schema.ByteArray {
			return encoding.DeltaLengthByteArray
		}
	case "delta_byte_array":
		if desc.Type == schema.ByteArray {
			return encoding.DeltaByteArray
		}
	}
	return encoding.Plain
}

func datumSize(d schema.Datum) int {
	switch d.Type() {
	case schema.Boolean:
		return 1
	case schema.Int32, schema.Float:
		return 4
	case schema.Int64, schema.Double:
		return 8
	case schema.Int96:
		return 12
	case schema.ByteArray:
		return 4 + len(d.Bytes())
	case schema.FixedLenByteArray:
		return len(d.Bytes())
	default:
		return 8
	}
}
