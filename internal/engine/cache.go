package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SmartCache memoizes evaluated cell values, gated by the dependency
// graph's dirty set (spec.md §4.6). INVALID is modeled as the absence
// of a map entry: Go's comma-ok map lookup gives "not cached" for free,
// and there is no value in this engine's Value universe that could be
// mistaken for "no entry", since Empty is a distinct singleton pointer.
type SmartCache struct {
	values map[CellAddress]Value
	dirty  map[CellAddress]struct{}
	hits   prometheus.Counter
	misses prometheus.Counter
	stores prometheus.Counter
}

// NewSmartCache builds an empty cache with its own prometheus counters,
// registered under reg (the domain-stack addition of SPEC_FULL.md §2).
func NewSmartCache(reg prometheus.Registerer) *SmartCache {
	c := &SmartCache{
		values: make(map[CellAddress]Value),
		dirty:  make(map[CellAddress]struct{}),
		hits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pycellsheet", Subsystem: "cache", Name: "hits_total",
			Help: "Number of SmartCache.Get calls served from cache.",
		}),
		misses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pycellsheet", Subsystem: "cache", Name: "misses_total",
			Help: "Number of SmartCache.Get calls that required recomputation.",
		}),
		stores: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pycellsheet", Subsystem: "cache", Name: "stores_total",
			Help: "Number of SmartCache.Put calls.",
		}),
	}
	if reg != nil {
		reg.MustRegister(c.hits, c.misses, c.stores)
	}
	return c
}

// Get returns a deep clone of the cached value for addr if present and
// not dirty (spec.md §4.6): the stored value is the engine's own
// record of what a cell computed to, and a caller mutating it in place
// (e.g. a script's list.sort()) must never be able to reach back into
// that record or into any other reader's copy of it.
func (c *SmartCache) Get(addr CellAddress) (Value, bool) {
	if _, isDirty := c.dirty[addr]; isDirty {
		c.misses.Inc()
		return nil, false
	}
	v, ok := c.values[addr]
	if !ok {
		c.misses.Inc()
		return nil, false
	}
	c.hits.Inc()
	cloned, _ := DeepClone(v)
	return cloned, true
}

// Put stores addr's freshly computed value and clears its dirty bit.
func (c *SmartCache) Put(addr CellAddress, v Value) {
	c.values[addr] = v
	delete(c.dirty, addr)
	c.stores.Inc()
}

// MarkDirty invalidates addr without discarding its last-known value;
// Get reports a miss for addr until the next Put clears the dirty bit.
func (c *SmartCache) MarkDirty(addr CellAddress) {
	c.dirty[addr] = struct{}{}
}

// MarkDirtyTransitive marks addr and every transitive dependent dirty,
// the dirty-propagation step of a targeted recalculation.
func (c *SmartCache) MarkDirtyTransitive(addr CellAddress, graph *DependencyGraph) {
	c.MarkDirty(addr)
	for _, dep := range graph.TransitiveDependents(addr) {
		c.MarkDirty(dep)
	}
}

// IsDirty reports whether addr is currently marked dirty.
func (c *SmartCache) IsDirty(addr CellAddress) bool {
	_, dirty := c.dirty[addr]
	return dirty
}

// AllDirty returns every address currently marked dirty, used by
// recalc_all to decide what still needs evaluation.
func (c *SmartCache) AllDirty() []CellAddress {
	out := make([]CellAddress, 0, len(c.dirty))
	for a := range c.dirty {
		out = append(out, a)
	}
	return out
}

// Remove drops addr's cached value and dirty bit entirely, used when a
// cell is deleted rather than merely recalculated.
func (c *SmartCache) Remove(addr CellAddress) {
	delete(c.values, addr)
	delete(c.dirty, addr)
}
