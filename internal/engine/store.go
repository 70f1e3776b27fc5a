package engine

// StringTable interns worksheet names, named-range names, and other
// repeated identifiers with reference counting, adapted directly from
// the teacher's string.go. Unlike the teacher, pycellsheet does not
// intern cell text or formula bodies: §3 chose plain per-cell maps for
// TextStore/AttributeStore rather than the teacher's chunked
// structure-of-arrays Worksheet, so there is no FormulaTable-sized
// volume of repeated text to justify the extra bookkeeping here.
type StringTable struct {
	strings    map[string]uint32
	reverseMap map[uint32]string
	refCounts  map[uint32]int
	nextID     uint32
}

// NewStringTable creates an empty string table; ID 0 is reserved so a
// zero-valued uint32 field reliably means "no name interned".
func NewStringTable() *StringTable {
	return &StringTable{
		strings:    make(map[string]uint32),
		reverseMap: make(map[uint32]string),
		refCounts:  make(map[uint32]int),
		nextID:     1,
	}
}

// Intern adds s or bumps its reference count, returning its ID.
func (st *StringTable) Intern(s string) uint32 {
	if id, exists := st.strings[s]; exists {
		st.refCounts[id]++
		return id
	}
	id := st.nextID
	st.strings[s] = id
	st.reverseMap[id] = s
	st.refCounts[id] = 1
	st.nextID++
	return id
}

// GetString retrieves a string by its ID.
func (st *StringTable) GetString(id uint32) (string, bool) {
	s, exists := st.reverseMap[id]
	return s, exists
}

// Contains reports whether s is already interned and returns its ID.
func (st *StringTable) Contains(s string) (uint32, bool) {
	id, exists := st.strings[s]
	return id, exists
}

// RemoveReference decrements a string's reference count, evicting it
// from the table once the count reaches zero. Returns true if evicted.
func (st *StringTable) RemoveReference(id uint32) bool {
	s, exists := st.reverseMap[id]
	if !exists {
		return false
	}
	st.refCounts[id]--
	if st.refCounts[id] <= 0 {
		delete(st.strings, s)
		delete(st.reverseMap, id)
		delete(st.refCounts, id)
		return true
	}
	return false
}

// TextStore holds the raw script text entered into each cell, keyed by
// address. A missing entry is indistinguishable from an empty cell, and
// TextStore is the only record of which cells are occupied.
type TextStore struct {
	text map[CellAddress]string
}

// NewTextStore builds an empty TextStore.
func NewTextStore() *TextStore {
	return &TextStore{text: make(map[CellAddress]string)}
}

// Get returns the raw text at addr and whether a cell exists there.
func (s *TextStore) Get(addr CellAddress) (string, bool) {
	t, ok := s.text[addr]
	return t, ok
}

// Set stores raw text at addr. Setting the empty string still counts as
// occupying the cell; callers use Delete to truly clear it.
func (s *TextStore) Set(addr CellAddress, text string) {
	s.text[addr] = text
}

// Delete removes addr's entry entirely.
func (s *TextStore) Delete(addr CellAddress) {
	delete(s.text, addr)
}

// Len reports how many cells currently have text.
func (s *TextStore) Len() int { return len(s.text) }

// AttributeStore holds the per-cell attribute bag read by the CM()
// accessor and written by Workbook.SetAttribute (spec.md §4.10, §9: attributes
// are opaque to the dependency graph, so mutating them never
// invalidates dependents).
type AttributeStore struct {
	attrs map[CellAddress]map[string]any
}

// NewAttributeStore builds an empty AttributeStore.
func NewAttributeStore() *AttributeStore {
	return &AttributeStore{attrs: make(map[CellAddress]map[string]any)}
}

// Get returns the named attribute for addr, or (nil, false) if unset.
func (s *AttributeStore) Get(addr CellAddress, key string) (any, bool) {
	bag, ok := s.attrs[addr]
	if !ok {
		return nil, false
	}
	v, ok := bag[key]
	return v, ok
}

// Set stores the named attribute for addr, creating its bag lazily.
func (s *AttributeStore) Set(addr CellAddress, key string, value any) {
	bag, ok := s.attrs[addr]
	if !ok {
		bag = make(map[string]any)
		s.attrs[addr] = bag
	}
	bag[key] = value
}

// All returns a copy of addr's attribute bag, or nil if it has none.
func (s *AttributeStore) All(addr CellAddress) map[string]any {
	bag, ok := s.attrs[addr]
	if !ok {
		return nil
	}
	out := make(map[string]any, len(bag))
	for k, v := range bag {
		out[k] = v
	}
	return out
}

// Clear drops addr's entire attribute bag.
func (s *AttributeStore) Clear(addr CellAddress) {
	delete(s.attrs, addr)
}

// NamedRegion is the cell or rectangular range a named range is bound
// to. End equals Start for a single-cell named range.
type NamedRegion struct {
	Start, End CellAddress
}

// NamedRangeTable binds interned named-range IDs (from Storage's
// NamedRanges StringTable) to the region they point at, grounded in
// the teacher's storage.go namedRanges field. Kept as its own small
// map-backed table rather than folded into StringTable, matching the
// pack's one-table-per-concern convention (string.go, storage.go).
type NamedRangeTable struct {
	regions map[uint32]NamedRegion
}

// NewNamedRangeTable builds an empty table.
func NewNamedRangeTable() *NamedRangeTable {
	return &NamedRangeTable{regions: make(map[uint32]NamedRegion)}
}

// Bind associates a named-range ID with the region it resolves to.
func (t *NamedRangeTable) Bind(id uint32, region NamedRegion) {
	t.regions[id] = region
}

// Unbind drops a named-range ID's binding, e.g. when the name is
// removed entirely (RemoveReference evicts it to 0 refs).
func (t *NamedRangeTable) Unbind(id uint32) {
	delete(t.regions, id)
}

// Region returns the bound region for a named-range ID, if any.
func (t *NamedRangeTable) Region(id uint32) (NamedRegion, bool) {
	r, ok := t.regions[id]
	return r, ok
}

// Storage aggregates the tables a Workbook needs, mirroring the
// teacher's storage.go grouping of shared tables behind one handle.
type Storage struct {
	Sheets       *StringTable
	NamedRanges  *StringTable
	NamedRegions *NamedRangeTable
	Text         *TextStore
	Attributes   *AttributeStore
	Graph        *DependencyGraph
}

// NewStorage wires up an empty set of tables for one workbook.
func NewStorage() *Storage {
	return &Storage{
		Sheets:       NewStringTable(),
		NamedRanges:  NewStringTable(),
		NamedRegions: NewNamedRangeTable(),
		Text:         NewTextStore(),
		Attributes:   NewAttributeStore(),
		Graph:        NewDependencyGraph(),
	}
}
