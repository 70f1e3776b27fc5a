package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Workbook is the Core API surface (spec.md §6): the single entry point
// a CLI or embedding host uses to open, mutate, and recalculate a
// spreadsheet. It serializes every mutating call behind one mutex,
// mirroring the teacher's single-threaded Spreadsheet/tracker
// assumption (spec.md §5) rather than attempting fine-grained locking.
type Workbook struct {
	mu    sync.Mutex
	store *Storage
	cache *SmartCache
	eval  *Evaluator
	mode  ParserMode
	log   *zap.Logger
}

// NewWorkbook builds an empty workbook. reg may be nil to skip metrics
// registration (e.g. in unit tests constructing several workbooks).
func NewWorkbook(mode ParserMode, reg prometheus.Registerer, log *zap.Logger) *Workbook {
	if log == nil {
		log = zap.NewNop()
	}
	store := NewStorage()
	cache := NewSmartCache(reg)
	sheets := make(map[uint32]*Sheet)
	wb := &Workbook{
		store: store,
		cache: cache,
		mode:  mode,
		log:   log,
	}
	wb.eval = NewEvaluator(store, cache, sheets, mode, log)
	wb.AddWorksheet("Sheet1")
	return wb
}

func (w *Workbook) sheets() map[uint32]*Sheet { return w.eval.sheets }

// AddWorksheet registers a new sheet by name, returning its 1-based
// index.
func (w *Workbook) AddWorksheet(name string) (uint32, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, exists := w.store.Sheets.Contains(name); exists {
		return 0, NewAppError(AppErrCodeFailedPrecondition, fmt.Sprintf("worksheet %q already exists", name), nil)
	}
	id := w.store.Sheets.Intern(name)
	w.eval.sheets[id] = NewSheet(name, id)
	return id, nil
}

// RemoveWorksheet drops a sheet and every cell/dependency edge on it.
func (w *Workbook) RemoveWorksheet(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, exists := w.store.Sheets.Contains(name)
	if !exists {
		return NewAppError(AppErrCodeNotFound, fmt.Sprintf("worksheet %q not found", name), nil)
	}
	for addr := range w.store.Text.text {
		if addr.Sheet == id {
			w.store.Text.Delete(addr)
			w.store.Attributes.Clear(addr)
			w.store.Graph.RemoveVertex(addr)
			w.cache.Remove(addr)
		}
	}
	delete(w.eval.sheets, id)
	w.store.Sheets.RemoveReference(id)
	return nil
}

// Set stores raw script text at a label on the given sheet, marks
// dependents dirty, and recalculates eagerly (spec.md §6).
func (w *Workbook) Set(sheetName, label, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	addr, err := w.resolve(sheetName, label)
	if err != nil {
		return err
	}
	// A spill neighbor's producer is not a graph dependency of addr (the
	// spill relation lives in the spill table, not the dependency
	// graph), so writing real text into a neighbor needs an explicit
	// dirty+re-eval of its producer here for the conflict to surface
	// (spec.md §4.9). Captured before Set so a cell that was never a
	// spill neighbor doesn't spuriously dirty anything.
	producer, _, wasSpillNeighbor := w.eval.spill.neighborOf(addr)

	w.store.Text.Set(addr, text)
	w.store.Graph.EnsureVertex(addr)
	w.cache.MarkDirtyTransitive(addr, w.store.Graph)
	w.eval.Eval(addr)
	for _, dep := range w.store.Graph.TransitiveDependents(addr) {
		w.eval.Eval(dep)
	}
	if wasSpillNeighbor {
		w.cache.MarkDirtyTransitive(producer, w.store.Graph)
		w.eval.Eval(producer)
		for _, dep := range w.store.Graph.TransitiveDependents(producer) {
			w.eval.Eval(dep)
		}
	}
	return nil
}

// Get evaluates and returns a deep clone of the value at a label,
// recalculating lazily if needed (spec.md §4.6: callers never receive
// the engine's own stored reference).
func (w *Workbook) Get(sheetName, label string) (Value, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	addr, err := w.resolve(sheetName, label)
	if err != nil {
		return nil, err
	}
	v, _ := w.eval.Eval(addr)
	cloned, _ := DeepClone(v)
	return cloned, nil
}

// Remove clears a cell's text, attributes, and dependency edges.
func (w *Workbook) Remove(sheetName, label string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	addr, err := w.resolve(sheetName, label)
	if err != nil {
		return err
	}
	w.store.Text.Delete(addr)
	w.store.Attributes.Clear(addr)
	deps := w.store.Graph.TransitiveDependents(addr)
	w.store.Graph.RemoveVertex(addr)
	w.cache.Remove(addr)
	for _, dep := range deps {
		w.cache.MarkDirty(dep)
		w.eval.Eval(dep)
	}
	return nil
}

// DefineNamedRange binds name to the single cell or rectangular range
// between from and to (inclusive) on sheetName, interning the name if
// it is new. Re-defining an existing name rebinds its region.
func (w *Workbook) DefineNamedRange(sheetName, name, from, to string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	start, err := w.resolve(sheetName, from)
	if err != nil {
		return err
	}
	end := start
	if to != "" {
		end, err = w.resolve(sheetName, to)
		if err != nil {
			return err
		}
	}
	id, exists := w.store.NamedRanges.Contains(name)
	if !exists {
		id = w.store.NamedRanges.Intern(name)
	}
	w.store.NamedRegions.Bind(id, NamedRegion{Start: start, End: end})
	return nil
}

// RemoveNamedRange unbinds and evicts a named range.
func (w *Workbook) RemoveNamedRange(name string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, exists := w.store.NamedRanges.Contains(name)
	if !exists {
		return NewAppError(AppErrCodeNotFound, fmt.Sprintf("named range %q not found", name), nil)
	}
	w.store.NamedRegions.Unbind(id)
	w.store.NamedRanges.RemoveReference(id)
	return nil
}

// SetAttribute writes an opaque per-cell attribute, never touching the
// dependency graph (spec.md §9: attributes are opaque to the core).
func (w *Workbook) SetAttribute(sheetName, label, key string, value any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	addr, err := w.resolve(sheetName, label)
	if err != nil {
		return err
	}
	w.store.Attributes.Set(addr, key, value)
	return nil
}

// RecalcAll forces full recalculation of every dirty cell, honoring ctx
// cancellation between cells (spec.md §5).
func (w *Workbook) RecalcAll(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.eval = w.eval.WithContext(ctx)
	w.eval.RecalcAll()
}

// IsDirty reports whether a cell currently needs recalculation.
func (w *Workbook) IsDirty(sheetName, label string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	addr, err := w.resolve(sheetName, label)
	if err != nil {
		return false, err
	}
	return w.cache.IsDirty(addr), nil
}

// ApplySheetScript applies a sheet's pending Draft script.
func (w *Workbook) ApplySheetScript(sheetName string) ([]Warning, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, exists := w.store.Sheets.Contains(sheetName)
	if !exists {
		return nil, NewAppError(AppErrCodeNotFound, fmt.Sprintf("worksheet %q not found", sheetName), nil)
	}
	sh := w.eval.sheets[id]
	env := w.eval.scriptEnv(CellAddress{Sheet: id})
	lookup := func(name string) (Value, bool) {
		if v, ok := sh.Copyable[name]; ok {
			return v, true
		}
		if v, ok := sh.Uncopyable[name]; ok {
			return v, true
		}
		return nil, false
	}
	warnings, err := sh.ApplyScript(env, lookup)
	if err != nil {
		return nil, err
	}
	for addr := range w.store.Text.text {
		if addr.Sheet == id {
			w.cache.MarkDirty(addr)
		}
	}
	return warnings, nil
}

// SetSheetDraft stores a sheet's unapplied draft script text.
func (w *Workbook) SetSheetDraft(sheetName, text string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, exists := w.store.Sheets.Contains(sheetName)
	if !exists {
		return NewAppError(AppErrCodeNotFound, fmt.Sprintf("worksheet %q not found", sheetName), nil)
	}
	w.eval.sheets[id].SetDraft(text)
	return nil
}

// DirtyCells lists every cell currently marked dirty, for the CLI's
// `dirty` diagnostic command.
func (w *Workbook) DirtyCells() []CellAddress {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cache.AllDirty()
}

// DetectCycles runs the full-graph cycle diagnostic.
func (w *Workbook) DetectCycles() (bool, [][]CellAddress, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.store.Graph.DetectAllCycles()
}

func (w *Workbook) resolve(sheetName, label string) (CellAddress, error) {
	id, exists := w.store.Sheets.Contains(sheetName)
	if !exists {
		return CellAddress{}, NewAppError(AppErrCodeNotFound, fmt.Sprintf("worksheet %q not found", sheetName), nil)
	}
	row, col, err := CoordOf(label)
	if err != nil {
		return CellAddress{}, err
	}
	return CellAddress{Sheet: id, Row: row, Col: col}, nil
}
