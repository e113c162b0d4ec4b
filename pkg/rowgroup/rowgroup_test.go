package rowgroup

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalith/strata/pkg/config"
	"github.com/datalith/strata/pkg/encoding"
	"github.com/datalith/strata/pkg/errors"
	"github.com/datalith/strata/pkg/metadata"
	"github.com/datalith/strata/pkg/schema"
	"github.com/datalith/strata/pkg/shred"
	"github.com/datalith/strata/pkg/storage"
)

func eventSchema(t *testing.T) *schema.Schema {
	t.Helper()
	s, err := schema.New(schema.Group("event", schema.Required,
		schema.Leaf("id", schema.Required, schema.Int64),
		schema.Leaf("user", schema.Optional, schema.ByteArray),
		schema.Group("tags", schema.Repeated,
			schema.Leaf("key", schema.Required, schema.ByteArray),
			schema.Leaf("value", schema.Optional, schema.ByteArray),
		),
	))
	require.NoError(t, err)
	return s
}

func eventRecord(i int) shred.Value {
	fields := map[string]shred.Value{
		"id": shred.Of(schema.Int64Datum(int64(i))),
	}
	if i%3 != 0 {
		fields["user"] = shred.Of(schema.StringDatum(fmt.Sprintf("user-%d", i%5)))
	}
	var tags []shred.Value
	for j := 0; j < i%4; j++ {
		tag := map[string]shred.Value{
			"key": shred.Of(schema.StringDatum(fmt.Sprintf("k%d", j))),
		}
		if j%2 == 0 {
			tag["value"] = shred.Of(schema.StringDatum(fmt.Sprintf("v%d", i+j)))
		}
		tags = append(tags, shred.Record(tag))
	}
	fields["tags"] = shred.List(tags...)
	return shred.Record(fields)
}

func writeGroup(t *testing.T, s *schema.Schema, cfg *config.Config, n int) *RowGroup {
	t.Helper()
	w, err := NewWriter(s, cfg)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		require.NoError(t, w.Write(eventRecord(i)))
	}
	assert.Equal(t, int64(n), w.NumRows())
	g, err := w.Close(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(n), g.NumRows)
	return g
}

func assertRecords(t *testing.T, asm *shred.Assembler, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		got, ok, err := asm.ReadRecord()
		require.NoError(t, err, "record %d", i)
		require.True(t, ok, "record %d", i)
		want := eventRecord(i)
		assert.True(t, want.Equal(got), "record %d: want %s got %s", i, want, got)
	}
	_, ok, err := asm.ReadRecord()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRowGroupRoundTripInMemory(t *testing.T) {
	s := eventSchema(t)
	g := writeGroup(t, s, nil, 100)

	asm, err := g.Assembler()
	require.NoError(t, err)
	assertRecords(t, asm, 100)
}

func TestRowGroupFlushAndOpen(t *testing.T) {
	s := eventSchema(t)
	g := writeGroup(t, s, nil, 250)

	store := storage.NewMemStore()
	summary, err := g.Flush(store)
	require.NoError(t, err)
	require.Equal(t, int64(250), summary.NumRows)
	require.Len(t, summary.Columns, 4)
	assert.Greater(t, store.Size(), int64(0))

	// the footer survives its serializer
	ser := metadata.JSONSerializer{}
	blob, err := ser.Serialize(&metadata.FileFooter{RowGroups: []metadata.RowGroupSummary{*summary}})
	require.NoError(t, err)
	footer, err := ser.Deserialize(blob)
	require.NoError(t, err)
	require.Len(t, footer.RowGroups, 1)

	r, err := Open(s, &footer.RowGroups[0], store)
	require.NoError(t, err)
	assert.Equal(t, int64(250), r.NumRows())

	asm, err := r.Assembler()
	require.NoError(t, err)
	assertRecords(t, asm, 250)
}

func TestRowGroupColumnPruning(t *testing.T) {
	s := eventSchema(t)
	g := writeGroup(t, s, nil, 50)
	store := storage.NewMemStore()
	summary, err := g.Flush(store)
	require.NoError(t, err)

	r, err := Open(s, summary, store)
	require.NoError(t, err)

	// reading just the id column touches only its pages
	cr, err := r.Column("id")
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		e, ok, err := cr.Next()
		require.NoError(t, err)
		require.True(t, ok)
		require.NotNil(t, e.Datum)
		assert.Equal(t, int64(i), e.Datum.Int64())
	}
	_, ok, err := cr.Next()
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r.Column("no.such.column")
	assert.True(t, errors.IsKind(err, errors.KindSchemaViolation))
}

func TestRowGroupConfigVariants(t *testing.T) {
	s := eventSchema(t)
	variants := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zstd", func(c *config.Config) { c.Compression.Codec = "zstd" }},
		{"lz4 no checksums", func(c *config.Config) {
			c.Compression.Codec = "lz4"
			c.Checksum.Enabled = false
		}},
		{"uncompressed", func(c *config.Config) { c.Compression.Codec = "none" }},
		{"no dictionary", func(c *config.Config) { c.Dictionary.Enabled = false }},
		{"delta", func(c *config.Config) {
			c.Dictionary.Enabled = false
			c.Page.ValueEncoding = "delta_byte_array"
		}},
		{"tiny pages", func(c *config.Config) {
			c.Page.MaxValues = 7
			c.Page.MaxBytes = 64
		}},
	}
	for _, tc := range variants {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tc.mutate(cfg)
			g := writeGroup(t, s, cfg, 80)

			store := storage.NewMemStore()
			summary, err := g.Flush(store)
			require.NoError(t, err)
			r, err := Open(s, summary, store)
			require.NoError(t, err)
			asm, err := r.Assembler()
			require.NoError(t, err)
			assertRecords(t, asm, 80)
		})
	}
}

func TestRowGroupFlushToFileStore(t *testing.T) {
	s := eventSchema(t)
	g := writeGroup(t, s, nil, 60)

	path := filepath.Join(t.TempDir(), "group.strata")
	store, err := storage.CreateFileStore(path)
	require.NoError(t, err)
	defer store.Close()
	summary, err := g.Flush(store)
	require.NoError(t, err)
	require.NoError(t, store.Sync())

	r, err := Open(s, summary, store)
	require.NoError(t, err)
	asm, err := r.Assembler()
	require.NoError(t, err)
	assertRecords(t, asm, 60)
}

func TestRowGroupChunkStatistics(t *testing.T) {
	s := eventSchema(t)
	g := writeGroup(t, s, nil, 30)

	c := g.Chunk("id")
	require.NotNil(t, c)
	assert.Equal(t, int64(30), c.Stats.NumRecords)
	assert.Equal(t, int64(0), c.Stats.NullCount)
	assert.Equal(t, int64(0), c.Stats.Min.Int64())
	assert.Equal(t, int64(29), c.Stats.Max.Int64())

	// user is null for every third record
	u := g.Chunk("user")
	require.NotNil(t, u)
	assert.Equal(t, int64(10), u.Stats.NullCount)
	assert.Equal(t, int64(30), u.Stats.NumRecords)

	assert.Nil(t, g.Chunk("missing"))
}

func TestRowGroupEncodingsRecorded(t *testing.T) {
	s := eventSchema(t)
	g := writeGroup(t, s, nil, 40)
	store := storage.NewMemStore()
	summary, err := g.Flush(store)
	require.NoError(t, err)
	r, err := Open(s, summary, store)
	require.NoError(t, err)

	// low-cardinality user column stays dictionary encoded
	encs := r.Encodings("user")
	assert.Contains(t, encs, encoding.RLE)
	assert.Contains(t, encs, encoding.RLEDictionary)
	assert.Nil(t, r.Encodings("missing"))
}

func TestRowGroupFull(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.RowGroup.MaxRows = 5
	w, err := NewWriter(eventSchema(t), cfg)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		assert.False(t, w.Full())
		require.NoError(t, w.Write(eventRecord(i)))
	}
	assert.True(t, w.Full())
	_, err = w.Close(context.Background())
	require.NoError(t, err)
}

func TestRowGroupWriterClosed(t *testing.T) {
	w, err := NewWriter(eventSchema(t), nil)
	require.NoError(t, err)
	_, err = w.Close(context.Background())
	require.NoError(t, err)

	err = w.Write(eventRecord(0))
	assert.True(t, errors.IsKind(err, errors.KindInternal))
	_, err = w.Close(context.Background())
	assert.True(t, errors.IsKind(err, errors.KindInternal))
}

func TestRowGroupCloseCanceled(t *testing.T) {
	w, err := NewWriter(eventSchema(t), nil)
	require.NoError(t, err)
	require.NoError(t, w.Write(eventRecord(1)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = w.Close(ctx)
	assert.Error(t, err)
}

func TestOpenRejectsForeignSummary(t *testing.T) {
	s := eventSchema(t)
	g := writeGroup(t, s, nil, 10)
	store := storage.NewMemStore()
	summary, err := g.Flush(store)
	require.NoError(t, err)

	short := &metadata.RowGroupSummary{NumRows: summary.NumRows, Columns: summary.Columns[:2]}
	_, err = Open(s, short, store)
	assert.True(t, errors.IsKind(err, errors.KindStructuralCorruption))

	renamed := *summary
	renamed.Columns = append([]metadata.ColumnChunkSummary(nil), summary.Columns...)
	renamed.Columns[0].Path = "bogus"
	_, err = Open(s, &renamed, store)
	assert.True(t, errors.IsKind(err, errors.KindStructuralCorruption))
}
