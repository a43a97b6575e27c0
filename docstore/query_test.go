package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func doc(pairs ...any) *Doc {
	d := NewDoc()
	for i := 0; i+1 < len(pairs); i += 2 {
		d.Set(pairs[i].(string), pairs[i+1])
	}
	return d
}

func TestMatchLiteralEquality(t *testing.T) {
	target := doc("name", "alice", "age", 30.0)
	ok, err := Match(doc("name", "alice"), target)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Match(doc("name", "bob"), target)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchArrayFanOut(t *testing.T) {
	target := doc("tags", Array{"x", "y", "z"})
	ok, err := Match(doc("tags", "y"), target)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Match(doc("tags", "missing"), target)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchComparisonOperators(t *testing.T) {
	target := doc("age", 30.0)
	ok, err := Match(doc("age", doc("$gte", 30.0)), target)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Match(doc("age", doc("$lt", 30.0)), target)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchOrAndNot(t *testing.T) {
	target := doc("age", 17.0)
	q := doc("$or", Array{doc("age", doc("$gte", 18.0)), doc("age", doc("$lt", 18.0))})
	ok, err := Match(q, target)
	require.NoError(t, err)
	assert.True(t, ok)

	q2 := doc("$not", doc("age", doc("$gte", 18.0)))
	ok, err = Match(q2, target)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatchWherePredicate(t *testing.T) {
	target := doc("age", 42.0)
	predicate := WherePredicate(func(v Value) (bool, error) {
		d := v.(*Doc)
		return d.GetOr("age").(float64) > 40, nil
	})
	q := NewDoc()
	q.Set("$where", predicate)
	ok, err := Match(q, target)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatchWherePredicatePanicPropagatesAsPanic(t *testing.T) {
	target := doc("age", 42.0)
	predicate := WherePredicate(func(v Value) (bool, error) {
		panic("boom")
	})
	q := NewDoc()
	q.Set("$where", predicate)
	assert.Panics(t, func() {
		_, _ = Match(q, target)
	})
}

func TestMatchExistsSizeElemMatch(t *testing.T) {
	target := doc("tags", Array{"a", "b"}, "nickname", Undefined{})

	ok, err := Match(doc("tags", doc("$size", 2.0)), target)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Match(doc("nickname", doc("$exists", false)), target)
	require.NoError(t, err)
	assert.True(t, ok)

	inner := NewDoc()
	inner.Set("value", "a")
	items := Array{doc("value", "a"), doc("value", "b")}
	withItems := doc("items", items)
	ok, err = Match(doc("items", doc("$elemMatch", inner)), withItems)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMatchNin(t *testing.T) {
	target := doc("status", "open")
	ok, err := Match(doc("status", doc("$nin", Array{"closed", "archived"})), target)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Match(doc("status", doc("$nin", Array{"open"})), target)
	require.NoError(t, err)
	assert.False(t, ok)

	// $nin is not array-specific: against an array field it matches as
	// soon as any element is absent from the forbidden set.
	tags := doc("tags", Array{1.0, 2.0})
	ok, err = Match(doc("tags", doc("$nin", Array{1.0})), tags)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Match(doc("tags", doc("$nin", Array{1.0, 2.0})), tags)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchRegex(t *testing.T) {
	re, err := NewRegex("^al")
	require.NoError(t, err)
	target := doc("name", "alice")
	ok, err := Match(doc("name", doc("$regex", re)), target)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestClausesOfSkipsLogicalOperators(t *testing.T) {
	q := doc("a", 1.0, "$or", Array{}, "b", 2.0)
	clauses := clausesOf(q)
	require.Len(t, clauses, 2)
	assert.Equal(t, "a", clauses[0].field)
	assert.Equal(t, "b", clauses[1].field)
}
