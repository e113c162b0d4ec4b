// Package testutil generates random datums and level sequences for the
// encoding and round-trip tests.
package testutil

import (
	"math/rand"

	"github.com/datalith/strata/pkg/schema"
)

// RandomDatum draws one value of the given physical type. Fixed length
// byte arrays use the supplied width.
func RandomDatum(r *rand.Rand, t schema.Type, typeLength int) schema.Datum {
	switch t {
	case schema.Boolean:
		return schema.BooleanDatum(r.Intn(2) == 1)
	case schema.Int32:
		return schema.Int32Datum(int32(r.Uint32()))
	case schema.Int64:
		return schema.Int64Datum(int64(r.Uint64()))
	case schema.Int96:
		var b [12]byte
		r.Read(b[:])
		return schema.Int96Datum(b)
	case schema.Float:
		return schema.FloatDatum(r.Float32())
	case schema.Double:
		return schema.DoubleDatum(r.Float64())
	case schema.ByteArray:
		b := make([]byte, r.Intn(24))
		r.Read(b)
		return schema.ByteArrayDatum(b)
	case schema.FixedLenByteArray:
		b := make([]byte, typeLength)
		r.Read(b)
		return schema.FixedDatum(b)
	default:
		panic("unknown type")
	}
}

// RandomDatums draws n values of the given type
func RandomDatums(r *rand.Rand, t schema.Type, typeLength, n int) []schema.Datum {
	out := make([]schema.Datum, n)
	for i := range out {
		out[i] = RandomDatum(r, t, typeLength)
	}
	return out
}

// RandomLevels draws n levels in [0, max]
func RandomLevels(r *rand.Rand, n, max int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = r.Intn(max + 1)
	}
	return out
}

// AscendingInt64s returns a monotonic sequence with small random steps,
// the shape the delta encodings compress best.
func AscendingInt64s(r *rand.Rand, n int) []schema.Datum {
	out := make([]schema.Datum, n)
	v := int64(r.Intn(1000))
	for i := range out {
		v += int64(r.Intn(100))
		out[i] = schema.Int64Datum(v)
	}
	return out
}
