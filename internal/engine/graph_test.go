package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addr(sheet, row, col uint32) CellAddress {
	return CellAddress{Sheet: sheet, Row: row, Col: col}
}

func TestAddEdgeRejectsAnEdgeThatWouldCloseACycle(t *testing.T) {
	g := NewDependencyGraph()
	a, b, c := addr(1, 0, 0), addr(1, 0, 1), addr(1, 0, 2)

	require.NoError(t, g.AddEdge(a, b))
	require.NoError(t, g.AddEdge(b, c))

	err := g.AddEdge(c, a)
	require.Error(t, err)
	var circ *CircularRefError
	assert.ErrorAs(t, err, &circ)
}

func TestAddEdgeRejectsASelfLoop(t *testing.T) {
	g := NewDependencyGraph()
	a := addr(1, 0, 0)
	err := g.AddEdge(a, a)
	require.Error(t, err)
	var circ *CircularRefError
	assert.ErrorAs(t, err, &circ)
}

func TestDependentsAndPrecedentsAreInverses(t *testing.T) {
	g := NewDependencyGraph()
	a, b := addr(1, 0, 0), addr(1, 1, 0)
	// AddEdge(a, b): a depends on b, so b is a's precedent and a is one
	// of b's dependents.
	require.NoError(t, g.AddEdge(a, b))

	assert.Contains(t, g.Dependents(b), a)
	assert.Contains(t, g.Precedents(a), b)
}

func TestTransitiveDependentsWalksTheWholeChain(t *testing.T) {
	g := NewDependencyGraph()
	a, b, c := addr(1, 0, 0), addr(1, 0, 1), addr(1, 0, 2)
	// a depends on b, b depends on c: editing c must transitively dirty
	// both b and a.
	require.NoError(t, g.AddEdge(a, b))
	require.NoError(t, g.AddEdge(b, c))

	deps := g.TransitiveDependents(c)
	assert.Contains(t, deps, a)
	assert.Contains(t, deps, b)
}

func TestRemoveVertexDropsItsEdgesBothWays(t *testing.T) {
	g := NewDependencyGraph()
	a, b := addr(1, 0, 0), addr(1, 1, 0)
	require.NoError(t, g.AddEdge(a, b))

	g.RemoveVertex(a)
	assert.Empty(t, g.Dependents(b))
	assert.Empty(t, g.Precedents(a))
}
