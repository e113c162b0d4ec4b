// Package rowgroup coordinates one row group: a writer that shreds whole
// records across the per-column chunk writers, and a reader that exposes
// flushed chunks by column path for pruned access.
package rowgroup

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/datalith/strata/pkg/chunk"
	"github.com/datalith/strata/pkg/config"
	"github.com/datalith/strata/pkg/errors"
	"github.com/datalith/strata/pkg/logger"
	"github.com/datalith/strata/pkg/metrics"
	"github.com/datalith/strata/pkg/schema"
	"github.com/datalith/strata/pkg/shred"
)

// RowGroup is a closed set of column chunks covering the same row span
type RowGroup struct {
	Schema  *schema.Schema
	NumRows int64
	Chunks  []*chunk.Chunk

	byPath map[string]*chunk.Chunk
}

// Chunk returns the chunk for a dotted column path, or nil
func (g *RowGroup) Chunk(path string) *chunk.Chunk {
	return g.byPath[path]
}

// Assembler builds a record assembler over every column of the group
func (g *RowGroup) Assembler() (*shred.Assembler, error) {
	streams := make([]shred.EntryStream, len(g.Chunks))
	for i, c := range g.Chunks {
		streams[i] = chunk.NewReader(c.Desc, c.Pages)
	}
	return shred.NewAssembler(g.Schema, streams)
}

// Writer accepts whole records, shreds them and spreads the entries over
// one chunk writer per leaf column. All chunks close together so every
// chunk spans exactly the same records.
type Writer struct {
	schema   *schema.Schema
	cfg      *config.Config
	shredder *shred.Shredder
	writers  []*chunk.Writer
	rows     int64
	closed   bool
}

// NewWriter creates a row group writer for the schema
func NewWriter(s *schema.Schema, cfg *config.Config) (*Writer, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	writers := make([]*chunk.Writer, s.NumColumns())
	for i, desc := range s.Columns() {
		w, err := chunk.NewWriter(desc, cfg)
		if err != nil {
			return nil, err
		}
		writers[i] = w
	}
	return &Writer{
		schema:   s,
		cfg:      cfg,
		shredder: shred.NewShredder(s),
		writers:  writers,
	}, nil
}

// Write shreds one record into the column chunks
func (w *Writer) Write(record shred.Value) error {
	if w.closed {
		return errors.New(errors.KindInternal, "row group writer already closed")
	}
	columns, err := w.shredder.Shred(record)
	if err != nil {
		return err
	}
	for i, entries := range columns {
		if err := w.writers[i].WriteEntries(entries); err != nil {
			return err
		}
	}
	w.rows++
	metrics.RowsWritten.Inc()
	return nil
}

// NumRows returns the records written so far
func (w *Writer) NumRows() int64 { return w.rows }

// Full reports whether the group reached its configured row bound
func (w *Writer) Full() bool { return w.rows >= int64(w.cfg.RowGroup.MaxRows) }

// Close finalizes every column chunk and returns the frozen group. Chunks
// are independent, so they close on up to WriteConcurrency goroutines;
// cancellation is checked per column, never inside a page.
func (w *Writer) Close(ctx context.Context) (*RowGroup, error) {
	if w.closed {
		return nil, errors.New(errors.KindInternal, "row group writer already closed")
	}
	w.closed = true

	chunks := make([]*chunk.Chunk, len(w.writers))
	errs := make([]error, len(w.writers))
	sem := make(chan struct{}, w.cfg.RowGroup.WriteConcurrency)
	var wg sync.WaitGroup

	for i := range w.writers {
		if err := ctx.Err(); err != nil {
			errs[i] = errors.Wrap(err, errors.KindInternal, "row group close canceled")
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			chunks[i], errs[i] = w.writers[i].Close()
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	g := &RowGroup{
		Schema:  w.schema,
		NumRows: w.rows,
		Chunks:  chunks,
		byPath:  make(map[string]*chunk.Chunk, len(chunks)),
	}
	for _, c := range chunks {
		g.byPath[c.Desc.Path] = c
	}

	metrics.RowGroupsClosed.Inc()
	logger.Debug("row group closed",
		zap.Int64("rows", w.rows),
		zap.Int("columns", len(chunks)))
	return g, nil
}
