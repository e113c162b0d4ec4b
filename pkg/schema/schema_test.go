package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/datalith/strata/pkg/errors"
)

func TestSchemaLevels(t *testing.T) {
	// required group Doc { repeated group Name { optional bytes url } }
	s, err := New(Group("Doc", Required,
		Group("Name", Repeated,
			Leaf("url", Optional, ByteArray),
		),
	))
	require.NoError(t, err)

	require.Equal(t, 1, s.NumColumns())
	col := s.Column("Name.url")
	require.NotNil(t, col)
	assert.Equal(t, 1, col.MaxRepetitionLevel)
	assert.Equal(t, 2, col.MaxDefinitionLevel)
	assert.Equal(t, ByteArray, col.Type)
	assert.Equal(t, []string{"Name", "url"}, col.PathParts)
}

func TestSchemaDeepLevels(t *testing.T) {
	s, err := New(Group("root", Required,
		Leaf("id", Required, Int64),
		Group("outer", Optional,
			Group("inner", Repeated,
				Leaf("a", Required, Int32),
				Leaf("b", Optional, Double),
			),
		),
	))
	require.NoError(t, err)
	require.Equal(t, 3, s.NumColumns())

	id := s.Column("id")
	assert.Equal(t, 0, id.MaxRepetitionLevel)
	assert.Equal(t, 0, id.MaxDefinitionLevel)

	a := s.Column("outer.inner.a")
	assert.Equal(t, 1, a.MaxRepetitionLevel)
	assert.Equal(t, 2, a.MaxDefinitionLevel)

	b := s.Column("outer.inner.b")
	assert.Equal(t, 1, b.MaxRepetitionLevel)
	assert.Equal(t, 3, b.MaxDefinitionLevel)

	assert.Equal(t, 0, id.Index)
	assert.Equal(t, 1, a.Index)
	assert.Equal(t, 2, b.Index)
}

func TestSchemaValidation(t *testing.T) {
	_, err := New(Leaf("x", Required, Int32))
	assert.True(t, errors.IsKind(err, errors.KindSchemaViolation))

	_, err = New(Group("root", Optional, Leaf("x", Required, Int32)))
	assert.True(t, errors.IsKind(err, errors.KindSchemaViolation))

	_, err = New(Group("root", Required, Group("empty", Required)))
	assert.True(t, errors.IsKind(err, errors.KindSchemaViolation))

	_, err = New(Group("root", Required,
		Leaf("x", Required, Int32),
		Leaf("x", Required, Int64),
	))
	assert.True(t, errors.IsKind(err, errors.KindSchemaViolation))

	_, err = New(Group("root", Required, FixedLeaf("f", Required, 0)))
	assert.True(t, errors.IsKind(err, errors.KindSchemaViolation))
}

func TestDatumOrdering(t *testing.T) {
	assert.True(t, Int64Datum(1).Less(Int64Datum(2)))
	assert.False(t, Int64Datum(2).Less(Int64Datum(1)))
	assert.True(t, StringDatum("a").Less(StringDatum("ab")))
	assert.True(t, StringDatum("a").Less(StringDatum("b")))
	assert.True(t, BooleanDatum(false).Less(BooleanDatum(true)))

	// unsigned byte comparison
	assert.True(t, ByteArrayDatum([]byte{0x01}).Less(ByteArrayDatum([]byte{0xff})))
}

func TestDatumEqual(t *testing.T) {
	assert.True(t, Int32Datum(7).Equal(Int32Datum(7)))
	assert.False(t, Int32Datum(7).Equal(Int64Datum(7)))
	assert.True(t, StringDatum("x").Equal(ByteArrayDatum([]byte("x"))))

	nan := DoubleDatum(0)
	nan = DoubleDatum(nan.Double() / nan.Double()) // NaN
	assert.True(t, nan.Equal(nan))
}
