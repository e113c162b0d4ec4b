// Package strata is a columnar storage format engine. It shreds nested,
// strongly typed records into flat per-column streams of repetition and
// definition levels plus values, encodes those streams with a small fixed
// catalog of encodings, and packs them into compressed, checksummed pages
// grouped by column chunk and row group. Reading reverses each step and
// reassembles the original nested records.
//
// # Packages
//
//   - pkg/schema: the schema tree, physical types and column descriptors
//   - pkg/shred: record shredding and assembly over level/value streams
//   - pkg/encoding: plain, dictionary, RLE/bit-packed hybrid and the
//     delta encodings
//   - pkg/page: the on-disk page layout, compression and checksums
//   - pkg/chunk: per-column page batching, dictionary lifecycle and
//     statistics
//   - pkg/rowgroup: whole-record writes across column chunks, flushing
//     and pruned reads
//   - pkg/metadata: footer summaries handed back to the caller
//   - pkg/storage: the byte-range store the engine flushes into
//
// # Writing
//
//	sch := schema.MustNew(schema.Group("doc", schema.Required,
//	    schema.Leaf("id", schema.Required, schema.Int64),
//	    schema.Leaf("name", schema.Optional, schema.ByteArray),
//	))
//	w, _ := rowgroup.NewWriter(sch, config.DefaultConfig())
//	_ = w.Write(shred.Record(map[string]shred.Value{
//	    "id":   shred.Of(schema.Int64Datum(1)),
//	    "name": shred.Of(schema.StringDatum("alpha")),
//	}))
//	group, _ := w.Close(context.Background())
//	summary, _ := group.Flush(store)
//
// # Reading
//
//	r, _ := rowgroup.Open(sch, summary, store)
//	asm, _ := r.Assembler()
//	for {
//	    rec, ok, err := asm.ReadRecord()
//	    ...
//	}
package strata
