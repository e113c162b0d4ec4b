// Package metadata defines the footer summaries the engine hands to its
// caller after a row group is flushed, and a JSON serializer for them.
// The engine itself never interprets a serialized footer beyond what
// Deserialize returns.
package metadata

import (
	"encoding/base64"

	json "github.com/goccy/go-json"

	"github.com/datalith/strata/pkg/errors"
	"github.com/datalith/strata/pkg/schema"
	"github.com/datalith/strata/pkg/storage"
)

// PageLocation records where one serialized page landed in the store
type PageLocation struct {
	Kind      string            `json:"kind"`
	NumValues int               `json:"num_values"`
	Range     storage.ByteRange `json:"range"`
}

// ColumnChunkSummary describes one flushed column chunk
type ColumnChunkSummary struct {
	Path          string         `json:"path"`
	Type          string         `json:"type"`
	Encodings     []string       `json:"encodings"`
	Codec         string         `json:"codec"`
	TotalValues   int64          `json:"total_values"`
	NumRecords    int64          `json:"num_records"`
	NullCount     int64          `json:"null_count"`
	DistinctCount int64          `json:"distinct_count"`
	Min           interface{}    `json:"min,omitempty"`
	Max           interface{}    `json:"max,omitempty"`
	Pages         []PageLocation `json:"pages"`
}

// RowGroupSummary describes one flushed row group
type RowGroupSummary struct {
	NumRows int64                `json:"num_rows"`
	Columns []ColumnChunkSummary `json:"columns"`
}

// FileFooter collects every row group of a file
type FileFooter struct {
	RowGroups []RowGroupSummary `json:"row_groups"`
}

// Serializer turns footers into opaque byte blobs and back
type Serializer interface {
	Serialize(f *FileFooter) ([]byte, error)
	Deserialize(data []byte) (*FileFooter, error)
}

// JSONSerializer is the default footer codec
type JSONSerializer struct{}

// Serialize marshals the footer to JSON
func (JSONSerializer) Serialize(f *FileFooter) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, errors.Wrap(err, errors.KindInternal, "serializing footer")
	}
	return data, nil
}

// Deserialize parses a footer produced by Serialize
func (JSONSerializer) Deserialize(data []byte) (*FileFooter, error) {
	var f FileFooter
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, errors.KindMalformedEncoding, "parsing footer")
	}
	return &f, nil
}

// StatValue renders a statistics datum as a JSON-friendly value. Byte
// arrays become base64 so arbitrary binary survives the footer.
func StatValue(d *schema.Datum) interface{} {
	if d == nil {
		return nil
	}
	switch d.Type() {
	case schema.Boolean:
		return d.Boolean()
	case schema.Int32:
		return d.Int32()
	case schema.Int64:
		return d.Int64()
	case schema.Float:
		return d.Float()
	case schema.Double:
		return d.Double()
	default:
		return base64.StdEncoding.EncodeToString(d.Bytes())
	}
}
