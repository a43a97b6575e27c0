package docstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocOrderingPreservedAcrossSetAndDelete(t *testing.T) {
	d := NewDoc()
	d.Set("c", 1.0)
	d.Set("a", 2.0)
	d.Set("b", 3.0)
	assert.Equal(t, []string{"c", "a", "b"}, d.Keys())

	d.Set("a", 20.0) // re-set keeps position
	assert.Equal(t, []string{"c", "a", "b"}, d.Keys())

	d.Delete("c")
	assert.Equal(t, []string{"a", "b"}, d.Keys())
}

func TestDocGetOrUndefined(t *testing.T) {
	d := NewDoc()
	d.Set("x", 1.0)
	v, ok := d.Get("missing")
	assert.False(t, ok)
	assert.Nil(t, v)
	assert.Equal(t, Undefined{}, d.GetOr("missing"))
}

func TestValidFieldNameRejectsDollarAndDot(t *testing.T) {
	require.Error(t, validFieldName("$foo"))
	require.Error(t, validFieldName("a.b"))
	require.NoError(t, validFieldName("ok"))
	require.NoError(t, validFieldName("$$date")) // sentinel exempted
}

func TestGenerateIDShapeAndUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		id := GenerateID()
		assert.Len(t, id, 16)
		assert.False(t, seen[id], "duplicate id generated: %s", id)
		seen[id] = true
	}
}

func TestAreThingsEqual(t *testing.T) {
	assert.True(t, AreThingsEqual(1.0, 1.0))
	assert.False(t, AreThingsEqual(1.0, 2.0))
	assert.False(t, AreThingsEqual(Undefined{}, Undefined{}))
	assert.True(t, AreThingsEqual(Null{}, Null{}))
	assert.False(t, AreThingsEqual(1.0, "1"))

	a := Array{1.0, "two", Null{}}
	b := Array{1.0, "two", Null{}}
	c := Array{1.0, "two"}
	assert.True(t, AreThingsEqual(a, b))
	assert.False(t, AreThingsEqual(a, c))

	d1 := NewDoc()
	d1.Set("x", 1.0)
	d2 := NewDoc()
	d2.Set("x", 1.0)
	assert.True(t, AreThingsEqual(d1, d2))
	d2.Set("y", 2.0)
	assert.False(t, AreThingsEqual(d1, d2))
}

func TestCompareValuesTotalOrder(t *testing.T) {
	ordered := []Value{
		Undefined{},
		Null{},
		1.0,
		"a",
		false,
		NewTimestamp(time.Unix(0, 0)),
		Array{1.0},
		NewDoc(),
	}
	for i := 0; i < len(ordered)-1; i++ {
		assert.Negative(t, CompareValues(ordered[i], ordered[i+1], nil), "index %d should sort before %d", i, i+1)
		assert.Positive(t, CompareValues(ordered[i+1], ordered[i], nil))
	}
	assert.Equal(t, 0, CompareValues(1.0, 1.0, nil))
}

func TestGetDotValueArrayFanOut(t *testing.T) {
	inner1 := NewDoc()
	inner1.Set("v", 1.0)
	inner2 := NewDoc()
	inner2.Set("v", 2.0)
	doc := NewDoc()
	doc.Set("items", Array{inner1, inner2})

	got := GetDotValue(doc, "items.v")
	arr, ok := got.(Array)
	require.True(t, ok)
	assert.Equal(t, Array{1.0, 2.0}, arr)

	assert.Equal(t, 1.0, GetDotValue(doc, "items.0.v"))
	assert.Equal(t, Undefined{}, GetDotValue(doc, "missing.path"))
}

func TestGetDotValueArrayFanOutPreservesSlotsForMissingSubpaths(t *testing.T) {
	named := NewDoc()
	named.Set("name", "a")
	colored := NewDoc()
	colored.Set("color", "x")
	doc := NewDoc()
	doc.Set("planets", Array{named, colored})

	got := GetDotValue(doc, "planets.name")
	arr, ok := got.(Array)
	require.True(t, ok)
	require.Len(t, arr, 2)
	assert.Equal(t, "a", arr[0])
	assert.Equal(t, Undefined{}, arr[1])
}

func TestCopyValueStrictKeysDropsForbiddenFields(t *testing.T) {
	src := NewDoc()
	src.Set("ok", 1.0)
	src.Set("$bad", 2.0)
	src.Set("a.b", 3.0)

	strict := CopyValue(src, true).(*Doc)
	assert.Equal(t, []string{"ok"}, strict.Keys())

	lenient := CopyValue(src, false).(*Doc)
	assert.ElementsMatch(t, []string{"ok", "$bad", "a.b"}, lenient.Keys())
}
