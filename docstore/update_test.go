package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModifyReplacementPreservesID(t *testing.T) {
	old := doc("_id", "1", "name", "alice", "age", 30.0)
	repl := doc("name", "bob")
	nd, err := Modify(old, repl)
	require.NoError(t, err)
	assert.Equal(t, "1", nd.GetOr("_id"))
	assert.Equal(t, "bob", nd.GetOr("name"))
	_, hasAge := nd.Get("age")
	assert.False(t, hasAge, "replacement drops fields absent from the replacement body")
}

func TestModifyReplacementRejectsIDChange(t *testing.T) {
	old := doc("_id", "1")
	repl := doc("_id", "2")
	_, err := Modify(old, repl)
	require.Error(t, err)
	assert.True(t, Is(err, ErrInvalidModifier))
}

func TestModifyRejectsMixedModifiersAndPlainFields(t *testing.T) {
	old := doc("_id", "1")
	mixed := doc("$set", doc("a", 1.0), "b", 2.0)
	_, err := Modify(old, mixed)
	require.Error(t, err)
	assert.True(t, Is(err, ErrInvalidModifier))
}

func TestModifierSetUnsetInc(t *testing.T) {
	old := doc("_id", "1", "count", 5.0, "label", "x")
	update := doc("$set", doc("label", "y"), "$unset", doc("count", ""), "$inc", doc("score", 3.0))
	nd, err := Modify(old, update)
	require.NoError(t, err)
	assert.Equal(t, "y", nd.GetOr("label"))
	_, hasCount := nd.Get("count")
	assert.False(t, hasCount)
	assert.Equal(t, 3.0, nd.GetOr("score"))
}

func TestModifierIncRejectsNonNumericTarget(t *testing.T) {
	old := doc("_id", "1", "count", "not-a-number")
	update := doc("$inc", doc("count", 1.0))
	_, err := Modify(old, update)
	require.Error(t, err)
}

func TestModifierMinMax(t *testing.T) {
	old := doc("_id", "1", "score", 10.0)
	nd, err := Modify(old, doc("$min", doc("score", 5.0)))
	require.NoError(t, err)
	assert.Equal(t, 5.0, nd.GetOr("score"))

	nd, err = Modify(old, doc("$max", doc("score", 20.0)))
	require.NoError(t, err)
	assert.Equal(t, 20.0, nd.GetOr("score"))
}

func TestModifierPushEachSlice(t *testing.T) {
	old := doc("_id", "1", "tags", Array{"a"})
	pushArg := doc("$each", Array{"b", "c"}, "$slice", -2.0)
	nd, err := Modify(old, doc("$push", doc("tags", pushArg)))
	require.NoError(t, err)
	assert.Equal(t, Array{"b", "c"}, nd.GetOr("tags"))
}

func TestModifierAddToSetDeduplicates(t *testing.T) {
	old := doc("_id", "1", "tags", Array{"a", "b"})
	nd, err := Modify(old, doc("$addToSet", doc("tags", "b")))
	require.NoError(t, err)
	assert.Equal(t, Array{"a", "b"}, nd.GetOr("tags"))

	nd, err = Modify(old, doc("$addToSet", doc("tags", "c")))
	require.NoError(t, err)
	assert.Equal(t, Array{"a", "b", "c"}, nd.GetOr("tags"))
}

func TestModifierPopAndPull(t *testing.T) {
	old := doc("_id", "1", "tags", Array{"a", "b", "c"})
	nd, err := Modify(old, doc("$pop", doc("tags", 1.0)))
	require.NoError(t, err)
	assert.Equal(t, Array{"a", "b"}, nd.GetOr("tags"))

	nd, err = Modify(old, doc("$pop", doc("tags", -1.0)))
	require.NoError(t, err)
	assert.Equal(t, Array{"b", "c"}, nd.GetOr("tags"))

	nd, err = Modify(old, doc("$pull", doc("tags", "b")))
	require.NoError(t, err)
	assert.Equal(t, Array{"a", "c"}, nd.GetOr("tags"))
}

func TestModifierCannotTargetID(t *testing.T) {
	old := doc("_id", "1")
	_, err := Modify(old, doc("$set", doc("_id", "2")))
	require.Error(t, err)
	assert.True(t, Is(err, ErrInvalidModifier))
}

func TestSetDotValueCreatesIntermediateObjects(t *testing.T) {
	old := doc("_id", "1")
	nd, err := Modify(old, doc("$set", doc("a.b.c", 1.0)))
	require.NoError(t, err)
	assert.Equal(t, 1.0, GetDotValue(nd, "a.b.c"))
}
