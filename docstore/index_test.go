package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexInsertAndGetMatching(t *testing.T) {
	ix := NewIndex(IndexOptions{FieldName: "email"})
	d1 := doc("_id", "1", "email", "a@x.com")
	d2 := doc("_id", "2", "email", "b@x.com")
	require.NoError(t, ix.Insert(d1))
	require.NoError(t, ix.Insert(d2))

	got := ix.GetMatching("a@x.com")
	require.Len(t, got, 1)
	assert.Equal(t, "1", docID(got[0]))
}

func TestIndexUniqueViolationRollsBackWholeInsert(t *testing.T) {
	ix := NewIndex(IndexOptions{FieldName: "tags", Unique: true})
	d1 := doc("_id", "1", "tags", Array{"a", "b"})
	require.NoError(t, ix.Insert(d1))

	// d2 shares key "b" with d1 via array fan-out partway through; the
	// whole insert must roll back, leaving "c" unindexed too.
	d2 := doc("_id", "2", "tags", Array{"c", "b"})
	err := ix.Insert(d2)
	require.Error(t, err)
	assert.True(t, Is(err, ErrUniqueViolated))
	assert.Empty(t, ix.GetMatching("c"))
	assert.Equal(t, 2, ix.NumKeys()) // only d1's two keys remain
}

func TestIndexSparseSkipsMissingField(t *testing.T) {
	ix := NewIndex(IndexOptions{FieldName: "nickname", Sparse: true})
	require.NoError(t, ix.Insert(doc("_id", "1")))
	assert.Equal(t, 0, ix.NumKeys())
}

func TestIndexNonSparseIndexesMissingFieldAsUndefined(t *testing.T) {
	ix := NewIndex(IndexOptions{FieldName: "nickname"})
	require.NoError(t, ix.Insert(doc("_id", "1")))
	assert.Equal(t, 1, ix.NumKeys())
	got := ix.GetMatching(Undefined{})
	require.Len(t, got, 1)
}

func TestIndexUpdateBatchRollsBackOnFailure(t *testing.T) {
	ix := NewIndex(IndexOptions{FieldName: "email", Unique: true})
	d1 := doc("_id", "1", "email", "a@x.com")
	d2 := doc("_id", "2", "email", "b@x.com")
	require.NoError(t, ix.Insert(d1))
	require.NoError(t, ix.Insert(d2))

	newD1 := doc("_id", "1", "email", "b@x.com") // collides with d2
	err := ix.UpdateBatch([]DocPair{{Old: d1, New: newD1}})
	require.Error(t, err)
	// d1's original key must still resolve after the rollback.
	got := ix.GetMatching("a@x.com")
	require.Len(t, got, 1)
	assert.Equal(t, "1", docID(got[0]))
}

func TestIndexGetBetweenBounds(t *testing.T) {
	ix := NewIndex(IndexOptions{FieldName: "age"})
	for i, age := range []float64{10, 20, 30, 40} {
		require.NoError(t, ix.Insert(doc("_id", string(rune('a'+i)), "age", age)))
	}
	got := ix.GetBetweenBounds(Bounds{HasGTE: true, GTE: 20.0, HasLT: true, LT: 40.0})
	require.Len(t, got, 2)
	assert.Equal(t, 20.0, GetDotValue(got[0], "age"))
	assert.Equal(t, 30.0, GetDotValue(got[1], "age"))
}

func TestIndexSameOptions(t *testing.T) {
	ix := NewIndex(IndexOptions{FieldName: "x", Unique: true})
	assert.True(t, ix.SameOptions(IndexOptions{FieldName: "x", Unique: true}))
	assert.False(t, ix.SameOptions(IndexOptions{FieldName: "x", Unique: false}))
}
