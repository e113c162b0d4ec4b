package rowgroup

import (
	"github.com/datalith/strata/pkg/chunk"
	"github.com/datalith/strata/pkg/encoding"
	"github.com/datalith/strata/pkg/errors"
	"github.com/datalith/strata/pkg/metadata"
	"github.com/datalith/strata/pkg/page"
	"github.com/datalith/strata/pkg/schema"
	"github.com/datalith/strata/pkg/shred"
	"github.com/datalith/strata/pkg/storage"
)

// Flush serializes every page of the group to the store and returns the
// summary the caller feeds to its footer serializer. Pages of one chunk
// are written in order; the recorded locations make each chunk
// independently readable.
func (g *RowGroup) Flush(store storage.Store) (*metadata.RowGroupSummary, error) {
	summary := &metadata.RowGroupSummary{NumRows: g.NumRows}
	for _, c := range g.Chunks {
		col := metadata.ColumnChunkSummary{
			Path:          c.Desc.Path,
			Type:          c.Desc.Type.String(),
			Codec:         "none",
			TotalValues:   c.Stats.TotalValues,
			NumRecords:    c.Stats.NumRecords,
			NullCount:     c.Stats.NullCount,
			DistinctCount: c.Stats.DistinctCount,
			Min:           metadata.StatValue(c.Stats.Min),
			Max:           metadata.StatValue(c.Stats.Max),
		}
		for _, e := range c.Encodings {
			col.Encodings = append(col.Encodings, e.String())
		}
		for _, p := range c.Pages {
			col.Codec = p.Codec.String()
			r, err := store.Write(p.Serialize())
			if err != nil {
				return nil, errors.Wrap(err, errors.KindInternal, "flushing page").
					WithColumn(c.Desc.Path)
			}
			col.Pages = append(col.Pages, metadata.PageLocation{
				Kind:      p.Kind.String(),
				NumValues: p.NumValues,
				Range:     r,
			})
		}
		summary.Columns = append(summary.Columns, col)
	}
	return summary, nil
}

// Reader opens a flushed row group for selective reads. Only the columns
// a caller asks for are fetched and decoded; the rest stay untouched in
// the store.
type Reader struct {
	schema  *schema.Schema
	store   storage.Store
	byPath  map[string]*metadata.ColumnChunkSummary
	numRows int64
}

// Open binds a flushed summary back to its schema and store
func Open(s *schema.Schema, summary *metadata.RowGroupSummary, store storage.Store) (*Reader, error) {
	if len(summary.Columns) != s.NumColumns() {
		return nil, errors.Newf(errors.KindStructuralCorruption,
			"summary holds %d columns, schema has %d", len(summary.Columns), s.NumColumns())
	}
	byPath := make(map[string]*metadata.ColumnChunkSummary, len(summary.Columns))
	for i := range summary.Columns {
		col := &summary.Columns[i]
		if s.Column(col.Path) == nil {
			return nil, errors.Newf(errors.KindStructuralCorruption,
				"summary column %q not in schema", col.Path)
		}
		byPath[col.Path] = col
	}
	return &Reader{schema: s, store: store, byPath: byPath, numRows: summary.NumRows}, nil
}

// NumRows returns the row count recorded at flush time
func (r *Reader) NumRows() int64 { return r.numRows }

// Column fetches and parses one column's pages and returns a chunk reader
// over them. Columns not requested are never read from the store.
func (r *Reader) Column(path string) (*chunk.Reader, error) {
	desc := r.schema.Column(path)
	if desc == nil {
		return nil, errors.Newf(errors.KindSchemaViolation, "unknown column %q", path)
	}
	col := r.byPath[path]
	pages := make([]*page.Page, 0, len(col.Pages))
	for i, loc := range col.Pages {
		raw, err := r.store.Read(loc.Range)
		if err != nil {
			return nil, errors.Wrap(err, errors.KindInternal, "reading page").
				WithColumn(path).WithPage(i)
		}
		p, _, err := page.Parse(raw)
		if err != nil {
			if e, ok := err.(*errors.Error); ok {
				err = e.WithColumn(path).WithPage(i)
			}
			return nil, err
		}
		pages = append(pages, p)
	}
	return chunk.NewReader(desc, pages), nil
}

// Assembler fetches every column and builds a record assembler over the
// whole group.
func (r *Reader) Assembler() (*shred.Assembler, error) {
	streams := make([]shred.EntryStream, r.schema.NumColumns())
	for i, desc := range r.schema.Columns() {
		cr, err := r.Column(desc.Path)
		if err != nil {
			return nil, err
		}
		streams[i] = cr
	}
	return shred.NewAssembler(r.schema, streams)
}

// Encodings reports the encoding names recorded for a column at flush
// time, nil for unknown columns.
func (r *Reader) Encodings(path string) []encoding.Encoding {
	col, ok := r.byPath[path]
	if !ok {
		return nil
	}
	out := make([]encoding.Encoding, 0, len(col.Encodings))
	for _, name := range col.Encodings {
		for _, e := range []encoding.Encoding{
			encoding.Plain, encoding.PlainDictionary, encoding.RLE, encoding.BitPacked,
			encoding.DeltaBinaryPacked, encoding.DeltaLengthByteArray,
			encoding.DeltaByteArray, encoding.RLEDictionary,
		} {
			if e.String() == name {
				out = append(out, e)
				break
			}
		}
	}
	return out
}
