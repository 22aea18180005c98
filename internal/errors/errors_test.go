package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorBuilderBasic(t *testing.T) {
	ee := New(NewStd("chunk decode failed")).
		Component("chunkproc").
		Category(CategoryDecode).
		Context("track_id", "abc123").
		Build()

	require.NotNil(t, ee)
	assert.Equal(t, "chunk decode failed", ee.Error())
	assert.Equal(t, "chunkproc", ee.GetComponent())
	assert.Equal(t, string(CategoryDecode), ee.GetCategory())
	assert.Equal(t, "abc123", ee.GetContext()["track_id"])
}

func TestErrorBuilderDefaultsComponentUnknown(t *testing.T) {
	ee := Newf("boom").Build()
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestIsNotFound(t *testing.T) {
	err := NotFoundError("track", map[string]any{"track_id": "xyz"})
	assert.True(t, IsNotFound(err))
	assert.False(t, IsNotFound(NewStd("other")))
}

func TestMarkReportedIdempotent(t *testing.T) {
	ee := Newf("oops").Build()
	assert.False(t, ee.IsReported())
	ee.MarkReported()
	assert.True(t, ee.IsReported())
}

func TestWrapPreservesUnwrap(t *testing.T) {
	base := NewStd("root cause")
	ee := Wrap(base).Category(CategoryCacheIO).Build()
	assert.Equal(t, base, Unwrap(ee))
	assert.True(t, Is(ee, base))
}
