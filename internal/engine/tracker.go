package engine

// trackerStack is the evaluator's per-Evaluator (never goroutine-local,
// per spec.md §5's single-threaded model) call stack, adapted directly
// from the teacher's sheet.go CalculationStack: push/pop track the cells
// currently being evaluated for cycle detection and dependency
// discovery, while completed records cells already settled in this
// recalculation pass (nothing in the evaluator consults it to skip a
// cell).
type trackerStack struct {
	items      []CellAddress
	processing map[CellAddress]struct{}
	completed  map[CellAddress]struct{}
	// frames[i] accumulates the precedents discovered while items[i] was
	// on top of the stack, i.e. every cell read through C, R, Sh(...).C/R
	// or a named range during that cell's evaluation (CM and sheet-global
	// G lookups are not recorded).
	frames []map[CellAddress]struct{}
}

func newTrackerStack() *trackerStack {
	return &trackerStack{
		processing: make(map[CellAddress]struct{}),
		completed:  make(map[CellAddress]struct{}),
	}
}

func (ts *trackerStack) push(addr CellAddress) {
	ts.items = append(ts.items, addr)
	ts.processing[addr] = struct{}{}
	ts.frames = append(ts.frames, make(map[CellAddress]struct{}))
}

// pop removes the top frame and returns the set of precedents
// discovered during that cell's evaluation.
func (ts *trackerStack) pop() (CellAddress, map[CellAddress]struct{}, bool) {
	if len(ts.items) == 0 {
		return CellAddress{}, nil, false
	}
	addr := ts.items[len(ts.items)-1]
	ts.items = ts.items[:len(ts.items)-1]
	frame := ts.frames[len(ts.frames)-1]
	ts.frames = ts.frames[:len(ts.frames)-1]
	delete(ts.processing, addr)
	return addr, frame, true
}

func (ts *trackerStack) isProcessing(addr CellAddress) bool {
	_, exists := ts.processing[addr]
	return exists
}

func (ts *trackerStack) markCompleted(addr CellAddress) {
	ts.completed[addr] = struct{}{}
}

func (ts *trackerStack) isCompleted(addr CellAddress) bool {
	_, exists := ts.completed[addr]
	return exists
}

// current returns the address currently on top of the stack (the cell
// whose accessor closures are running right now), or false if nothing
// is being evaluated.
func (ts *trackerStack) current() (CellAddress, bool) {
	if len(ts.items) == 0 {
		return CellAddress{}, false
	}
	return ts.items[len(ts.items)-1], true
}

// pathTo returns the cells currently being evaluated from the first
// occurrence of addr on the stack through the top, inclusive, in
// traversal order. It is used to render the full loop in a circular
// reference's detail rather than just the re-entrant cell.
func (ts *trackerStack) pathTo(addr CellAddress) []CellAddress {
	for i, item := range ts.items {
		if item == addr {
			return append([]CellAddress(nil), ts.items[i:]...)
		}
	}
	return nil
}

// record notes that the currently-evaluating cell read from.
func (ts *trackerStack) record(from CellAddress) {
	if len(ts.frames) == 0 {
		return
	}
	ts.frames[len(ts.frames)-1][from] = struct{}{}
}

func (ts *trackerStack) reset() {
	ts.items = ts.items[:0]
	ts.frames = ts.frames[:0]
	ts.processing = make(map[CellAddress]struct{})
	ts.completed = make(map[CellAddress]struct{})
}
