package engine

import (
	"fmt"

	"github.com/katalvlaran/lvlath/core"
	"github.com/katalvlaran/lvlath/dfs"
)

// DependencyGraph tracks which cells reference which other cells,
// wrapping lvlath's core.Graph as the authoritative forward-edge store
// (spec.md §4.3, grounded on the teacher's graph.go DependencyGraph).
// lvlath's Graph.NeighborIDs only walks outgoing edges for a directed
// graph, so invariant I1 (every forward edge has a matching reverse
// entry) is maintained by hand in the reverse map alongside it rather
// than queried back out of lvlath.
type DependencyGraph struct {
	g       *core.Graph
	reverse map[CellAddress]map[CellAddress]struct{}
	edgeID  map[edgeKey]string
}

type edgeKey struct {
	from CellAddress
	to   CellAddress
}

// NewDependencyGraph builds an empty, directed, multi-edge-free graph.
func NewDependencyGraph() *DependencyGraph {
	return &DependencyGraph{
		g:       core.NewGraph(core.WithDirected(true)),
		reverse: make(map[CellAddress]map[CellAddress]struct{}),
		edgeID:  make(map[edgeKey]string),
	}
}

func vid(addr CellAddress) string {
	return fmt.Sprintf("%d:%d:%d", addr.Sheet, addr.Row, addr.Col)
}

// EnsureVertex registers addr as a node even if it has no edges yet, so
// that a cell with no dependencies still participates in recalc-order
// queries.
func (dg *DependencyGraph) EnsureVertex(addr CellAddress) {
	_ = dg.g.AddVertex(vid(addr))
}

// AddEdge records that `from` reads `to` (from depends on to). It
// returns *CircularRefError without mutating the graph if the edge
// would close a cycle, satisfying invariant I2 (cycle detection at
// edge-insertion time, not at recalculation time).
func (dg *DependencyGraph) AddEdge(from, to CellAddress) error {
	dg.EnsureVertex(from)
	dg.EnsureVertex(to)

	if from == to {
		return &CircularRefError{From: from, To: to, Path: []CellAddress{from, to}}
	}
	if path := dg.reachablePath(to, from); path != nil {
		full := append([]CellAddress{from}, path...)
		return &CircularRefError{From: from, To: to, Path: full}
	}

	key := edgeKey{from, to}
	if _, exists := dg.edgeID[key]; exists {
		return nil
	}
	eid, err := dg.g.AddEdge(vid(from), vid(to), 1)
	if err != nil {
		return fmt.Errorf("pycellsheet: dependency graph: %w", err)
	}
	dg.edgeID[key] = eid
	if dg.reverse[to] == nil {
		dg.reverse[to] = make(map[CellAddress]struct{})
	}
	dg.reverse[to][from] = struct{}{}
	return nil
}

// reachablePath reports whether to is reachable from `from` by
// following forward (depends-on) edges, i.e. whether adding to->from
// would close a cycle, and if so returns that path (from
// `from` through `to`, inclusive, in traversal order) so the caller can
// render the whole cycle rather than just the rejected edge. Returns
// nil if to is not reachable. This is a targeted DFS over the edge
// about to be inserted rather than a whole-graph pass, since AddEdge
// runs on every formula parse.
func (dg *DependencyGraph) reachablePath(from, to CellAddress) []CellAddress {
	if from == to {
		return []CellAddress{from}
	}
	visited := map[CellAddress]struct{}{from: {}}
	parent := map[CellAddress]CellAddress{}
	stack := []CellAddress{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		ids, err := dg.g.NeighborIDs(vid(cur))
		if err != nil {
			continue
		}
		for _, id := range ids {
			next := dg.parse(id)
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			parent[next] = cur
			if next == to {
				path := []CellAddress{next}
				for n := cur; ; n = parent[n] {
					path = append(path, n)
					if n == from {
						break
					}
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path
			}
			stack = append(stack, next)
		}
	}
	return nil
}

func (dg *DependencyGraph) parse(id string) CellAddress {
	var sheet, row, col uint32
	fmt.Sscanf(id, "%d:%d:%d", &sheet, &row, &col)
	return CellAddress{Sheet: sheet, Row: row, Col: col}
}

// RemoveEdge deletes the from->to dependency, if present.
func (dg *DependencyGraph) RemoveEdge(from, to CellAddress) {
	key := edgeKey{from, to}
	eid, ok := dg.edgeID[key]
	if !ok {
		return
	}
	_ = dg.g.RemoveEdge(eid)
	delete(dg.edgeID, key)
	if set, ok := dg.reverse[to]; ok {
		delete(set, from)
		if len(set) == 0 {
			delete(dg.reverse, to)
		}
	}
}

// RemoveAllOutgoing drops every edge where addr is the dependent (used
// before re-parsing a cell's formula and rebuilding its edge set).
func (dg *DependencyGraph) RemoveAllOutgoing(addr CellAddress, precedents []CellAddress) {
	for _, to := range precedents {
		dg.RemoveEdge(addr, to)
	}
}

// Dependents returns the cells that directly depend on addr (the
// reverse-edge set), i.e. cells that must recalculate when addr changes.
func (dg *DependencyGraph) Dependents(addr CellAddress) []CellAddress {
	set, ok := dg.reverse[addr]
	if !ok {
		return nil
	}
	out := make([]CellAddress, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	return out
}

// Precedents returns the cells addr directly depends on.
func (dg *DependencyGraph) Precedents(addr CellAddress) []CellAddress {
	ids, err := dg.g.NeighborIDs(vid(addr))
	if err != nil {
		return nil
	}
	out := make([]CellAddress, 0, len(ids))
	for _, id := range ids {
		out = append(out, dg.parse(id))
	}
	return out
}

// TransitiveDependents returns every cell reachable by following
// reverse edges from addr, used to compute the dirty set for a
// targeted recalculation (spec.md §4.4).
func (dg *DependencyGraph) TransitiveDependents(addr CellAddress) []CellAddress {
	visited := map[CellAddress]struct{}{}
	var out []CellAddress
	var walk func(CellAddress)
	walk = func(cur CellAddress) {
		for _, next := range dg.Dependents(cur) {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			out = append(out, next)
			walk(next)
		}
	}
	walk(addr)
	return out
}

// RemoveVertex drops addr and all of its edges, used when a cell is
// cleared entirely.
func (dg *DependencyGraph) RemoveVertex(addr CellAddress) {
	for _, to := range dg.Precedents(addr) {
		dg.RemoveEdge(addr, to)
	}
	for _, from := range dg.Dependents(addr) {
		dg.RemoveEdge(from, addr)
	}
	_ = dg.g.RemoveVertex(vid(addr))
}

// DetectAllCycles runs lvlath's whole-graph cycle detector, reached
// through Workbook.DetectCycles rather than the edge-insertion hot
// path (which uses the lighter targeted reachable check above): it
// canonicalizes and enumerates every cycle, heavier than a single
// edge-admission check needs but useful for a human debugging a
// workbook that got into a bad state some other way (e.g. a corrupt
// file load that bypassed AddEdge's check).
func (dg *DependencyGraph) DetectAllCycles() (bool, [][]CellAddress, error) {
	has, cycles, err := dfs.DetectCycles(dg.g)
	if err != nil {
		return false, nil, err
	}
	out := make([][]CellAddress, 0, len(cycles))
	for _, cyc := range cycles {
		addrs := make([]CellAddress, 0, len(cyc))
		for _, id := range cyc {
			addrs = append(addrs, dg.parse(id))
		}
		out = append(out, addrs)
	}
	return has, out, nil
}
