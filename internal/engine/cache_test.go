package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func num(t *testing.T, s string) *ScalarValue {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return NewNumber(d)
}

// Property 5 (cache isolation): Get hands back a deep clone, so a
// caller mutating its result (the same way a script's list.sort()
// mutates a *ScalarValue's List in place) can never corrupt the
// cache's own record or any other reader's independent copy.
func TestGetReturnsAnIndependentCopyEachTime(t *testing.T) {
	c := NewSmartCache(nil)
	addr := CellAddress{Sheet: 1, Row: 1, Col: 1}
	original := NewList([]Value{num(t, "3"), num(t, "1"), num(t, "2")})
	c.Put(addr, original)

	first, ok := c.Get(addr)
	require.True(t, ok)
	list := first.(*ScalarValue)
	list.List[0], list.List[1], list.List[2] = list.List[1], list.List[2], list.List[0]

	second, ok := c.Get(addr)
	require.True(t, ok)
	assert.Equal(t, "3", DisplayString(second.(*ScalarValue).List[0]))
	assert.Equal(t, "1", DisplayString(second.(*ScalarValue).List[1]))
	assert.Equal(t, "2", DisplayString(second.(*ScalarValue).List[2]))
	assert.NotSame(t, first, second)
}

// Two independent SmartCache instances never observe each other's
// Put/MarkDirty calls.
func TestTwoCachesDoNotShareState(t *testing.T) {
	a := NewSmartCache(nil)
	b := NewSmartCache(nil)
	addr := CellAddress{Sheet: 1, Row: 1, Col: 1}

	a.Put(addr, num(t, "5"))

	_, okA := a.Get(addr)
	_, okB := b.Get(addr)
	assert.True(t, okA)
	assert.False(t, okB)
}

// Property 7 (evaluation idempotence): re-Getting an unchanged cache
// entry returns an equal value, repeatedly, without needing
// recomputation, until the entry is marked dirty.
func TestGetIsIdempotentUntilInvalidated(t *testing.T) {
	c := NewSmartCache(nil)
	addr := CellAddress{Sheet: 1, Row: 1, Col: 1}
	v := num(t, "7")
	c.Put(addr, v)

	first, ok := c.Get(addr)
	require.True(t, ok)
	second, ok := c.Get(addr)
	require.True(t, ok)
	assert.Equal(t, first, second)

	c.MarkDirty(addr)
	_, ok = c.Get(addr)
	assert.False(t, ok, "a dirty entry must miss until Put recomputes it")
}

// Property 4 (transitive dirty): marking a root dirty propagates to
// every transitive dependent recorded in the graph, and nothing else.
func TestMarkDirtyTransitivePropagatesAlongTheGraph(t *testing.T) {
	g := NewDependencyGraph()
	root := CellAddress{Sheet: 1, Row: 1, Col: 1}
	mid := CellAddress{Sheet: 1, Row: 2, Col: 1}
	leaf := CellAddress{Sheet: 1, Row: 3, Col: 1}
	unrelated := CellAddress{Sheet: 1, Row: 9, Col: 9}
	// mid depends on root, leaf depends on mid: editing root must
	// transitively dirty both mid and leaf.
	require.NoError(t, g.AddEdge(mid, root))
	require.NoError(t, g.AddEdge(leaf, mid))
	g.EnsureVertex(unrelated)

	c := NewSmartCache(nil)
	c.Put(root, num(t, "1"))
	c.Put(mid, num(t, "2"))
	c.Put(leaf, num(t, "3"))
	c.Put(unrelated, num(t, "4"))

	c.MarkDirtyTransitive(root, g)

	assert.True(t, c.IsDirty(root))
	assert.True(t, c.IsDirty(mid))
	assert.True(t, c.IsDirty(leaf))
	assert.False(t, c.IsDirty(unrelated))
}
