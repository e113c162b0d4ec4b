package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New(KindMalformedEncoding, "bad bytes")
	assert.Equal(t, KindMalformedEncoding, err.Kind)
	assert.Equal(t, "malformed_encoding: bad bytes", err.Error())
	assert.NotEmpty(t, err.Stack)

	err = Newf(KindConfig, "unknown codec %q", "brotli")
	assert.Equal(t, `config: unknown codec "brotli"`, err.Error())
}

func TestWrap(t *testing.T) {
	cause := stderrors.New("disk on fire")
	err := Wrap(cause, KindInternal, "flushing page")
	require.NotNil(t, err)
	assert.Equal(t, "internal: flushing page: disk on fire", err.Error())
	assert.True(t, stderrors.Is(err, cause))

	// wrapping preserves the innermost stack
	inner := New(KindChecksumMismatch, "page 3")
	outer := Wrap(inner, KindChecksumMismatch, "reading chunk")
	assert.Equal(t, inner.Stack, outer.Stack)

	assert.Nil(t, Wrap(nil, KindInternal, "no-op"))
}

func TestIsKind(t *testing.T) {
	err := New(KindSchemaViolation, "missing field")
	assert.True(t, IsKind(err, KindSchemaViolation))
	assert.False(t, IsKind(err, KindInternal))

	// survives fmt wrapping
	wrapped := fmt.Errorf("while writing: %w", err)
	assert.True(t, IsKind(wrapped, KindSchemaViolation))

	assert.False(t, IsKind(stderrors.New("plain"), KindInternal))
	assert.False(t, IsKind(nil, KindInternal))
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindStructuralCorruption, KindOf(New(KindStructuralCorruption, "ragged")))
	assert.Equal(t, KindInternal, KindOf(stderrors.New("foreign")))
}

func TestDetails(t *testing.T) {
	err := New(KindChecksumMismatch, "mismatch").WithColumn("links.forward").WithPage(4)
	assert.Equal(t, "links.forward", err.Details["column"])
	assert.Equal(t, 4, err.Details["page"])

	// the kind is still visible through errors.As after chaining
	var e *Error
	require.True(t, stderrors.As(error(err), &e))
	assert.Equal(t, KindChecksumMismatch, e.Kind)
}
