package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/EuphoricCatface/pycellsheet/internal/engine/script"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Evaluator is the recalculation core described in spec.md §4.8. It
// owns the tracker stack shared by every evaluation; each Eval builds a
// fresh scriptEnv bound to the cell being evaluated, and the accessors
// (C, R, Sh, G, CM, CR, OFFSET) read that cell's address from it.
type Evaluator struct {
	storage *Storage
	cache   *SmartCache
	sheets  map[uint32]*Sheet
	tracker *trackerStack
	mode    ParserMode
	spill   *spillTable
	log     *zap.Logger
	ctx     context.Context
}

// NewEvaluator wires an Evaluator over shared storage and cache.
func NewEvaluator(storage *Storage, cache *SmartCache, sheets map[uint32]*Sheet, mode ParserMode, log *zap.Logger) *Evaluator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Evaluator{
		storage: storage,
		cache:   cache,
		sheets:  sheets,
		tracker: newTrackerStack(),
		mode:    mode,
		spill:   newSpillTable(),
		log:     log,
		ctx:     context.Background(),
	}
}

// WithContext returns a shallow copy of e using ctx for cancellation.
// ctx is checked only by RecalcAll, between cells; a single Eval runs to
// completion once started.
func (e *Evaluator) WithContext(ctx context.Context) *Evaluator {
	cp := *e
	cp.ctx = ctx
	return &cp
}

// Eval implements the nine-step algorithm of spec.md §4.8: cache check,
// cycle/processing check, push frame, parse, evaluate, spill fan-out,
// cache store, pop frame recording discovered edges. Eval does not mark
// dependents dirty; Workbook.Set does that before evaluating.
func (e *Evaluator) Eval(addr CellAddress) (Value, []Warning) {
	if v, ok := e.cache.Get(addr); ok {
		return v, nil
	}
	if e.tracker.isProcessing(addr) {
		loop := append(e.tracker.pathTo(addr), addr)
		circ := &CircularRefError{From: addr, To: addr, Path: loop}
		err := newError(ErrKindCircular, circ.Error())
		e.cache.Put(addr, err)
		return err, nil
	}

	raw, hasText := e.storage.Text.Get(addr)
	textEmpty := !hasText || strings.TrimSpace(raw) == ""

	// A spill neighbor is only resolved through the spill table while it
	// has no text of its own. A neighbor with real user text (the
	// conflict case of spec.md §4.9) falls straight through to ordinary
	// evaluation of that text below instead.
	if textEmpty {
		if producer, blk, ok := e.spill.neighborOf(addr); ok {
			v, warnings := e.Eval(producer)
			spillOut, isSpill := v.(*SpillOutputValue)
			if !isSpill {
				// The producer no longer spills widely enough: this
				// neighbor self-erases and reads as Empty.
				e.spill.release(producer)
				e.cache.Put(addr, Empty)
				return Empty, warnings
			}
			result := spillOut.At(blk.dr, blk.dc)
			e.cache.Put(addr, result)
			return result, warnings
		}
		e.cache.Put(addr, Empty)
		return Empty, nil
	}

	lit, code, isCode := ClassifyText(raw, e.mode)
	if !isCode {
		e.cache.Put(addr, lit)
		return lit, nil
	}

	e.tracker.push(addr)
	defer func() {
		settled, frame, _ := e.tracker.pop()
		e.reconcileEdges(settled, frame)
		e.tracker.markCompleted(settled)
	}()

	isNamedRange := func(name string) bool {
		_, ok := e.storage.NamedRanges.Contains(name)
		return ok
	}
	prog, err := ParseCellScript(code, addr, e.mode, isNamedRange)
	if err != nil {
		result := asErrorValue(err)
		e.cache.Put(addr, result)
		return result, nil
	}

	result, warnErr := script.Eval(prog, e.scriptEnv(addr))
	var warnings []Warning
	if warnErr != nil {
		v := asErrorValue(warnErr)
		e.cache.Put(addr, v)
		return v, nil
	}
	value, ok := result.(Value)
	if !ok {
		value = NewString(fmt.Sprint(result))
	}

	if spillOut, isSpill := value.(*SpillOutputValue); isSpill {
		occupied := func(n CellAddress) bool {
			text, has := e.storage.Text.Get(n)
			return has && strings.TrimSpace(text) != ""
		}
		if conflict := e.spill.register(addr, spillOut, occupied); conflict != nil {
			v := newError(ErrKindSpill, conflict.Error())
			e.cache.Put(addr, v)
			return v, warnings
		}
	}

	e.cache.Put(addr, value)
	return value, warnings
}

func (e *Evaluator) reconcileEdges(addr CellAddress, frame map[CellAddress]struct{}) {
	for _, old := range e.storage.Graph.Precedents(addr) {
		if _, still := frame[old]; !still {
			e.storage.Graph.RemoveEdge(addr, old)
		}
	}
	for to := range frame {
		if err := e.storage.Graph.AddEdge(addr, to); err != nil {
			e.log.Warn("dependency edge rejected", zap.String("from", addr.String()), zap.String("to", to.String()), zap.Error(err))
		}
	}
}

// RecalcAll recomputes every dirty cell in deterministic (sheet, row,
// col) order, matching the teacher's own iteration order over cells.
func (e *Evaluator) RecalcAll() {
	dirty := e.cache.AllDirty()
	sort.Slice(dirty, func(i, j int) bool {
		a, b := dirty[i], dirty[j]
		if a.Sheet != b.Sheet {
			return a.Sheet < b.Sheet
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Col < b.Col
	})
	for _, addr := range dirty {
		select {
		case <-e.ctx.Done():
			return
		default:
		}
		e.Eval(addr)
	}
}

func asErrorValue(err error) *ErrorValue {
	if ev, ok := err.(*ErrorValue); ok {
		return ev
	}
	id := uuid.New()
	return NewErrorValue(ErrKindOther, fmt.Sprintf("%s (ref %s)", err.Error(), id))
}

// --- script.Env implementation ---

type scriptEnv struct {
	e    *Evaluator
	addr CellAddress
}

func (e *Evaluator) scriptEnv(addr CellAddress) script.Env {
	return &scriptEnv{e: e, addr: addr}
}

func (s *scriptEnv) Lookup(name string) (any, error) {
	sh := s.e.sheetOf(s.addr)
	if sh != nil {
		if v, ok := sh.Copyable[name]; ok {
			cloned, _ := DeepClone(v)
			return cloned, nil
		}
		if v, ok := sh.Uncopyable[name]; ok {
			return v, nil
		}
	}
	if id, ok := s.e.storage.NamedRanges.Contains(name); ok {
		return s.namedRangeValue(id)
	}
	return nil, newError(ErrKindName, fmt.Sprintf("unknown name %q", name))
}

func (s *scriptEnv) namedRangeValue(id uint32) (Value, error) {
	region, bound := s.e.storage.NamedRegions.Region(id)
	if !bound {
		name, _ := s.e.storage.NamedRanges.GetString(id)
		return nil, newError(ErrKindName, fmt.Sprintf("named range %q has no bound region", name))
	}
	if region.Start == region.End {
		return s.readCell(region.Start)
	}
	from := LabelOf(region.Start.Row, region.Start.Col)
	to := LabelOf(region.End.Row, region.End.Col)
	return s.readRange(region.Start.Sheet, from, to)
}

func (s *scriptEnv) Number(text string) (any, error) {
	d, err := decimal.NewFromString(text)
	if err != nil {
		return nil, newError(ErrKindNum, err.Error())
	}
	return NewNumber(d), nil
}

func (s *scriptEnv) String(str string) any { return NewString(str) }
func (s *scriptEnv) Bool(b bool) any       { return NewBool(b) }
func (s *scriptEnv) None() any             { return Empty }
func (s *scriptEnv) List(items []any) any {
	vals := make([]Value, len(items))
	for i, it := range items {
		vals[i] = toValue(it)
	}
	return NewList(vals)
}

func (s *scriptEnv) Truthy(v any) bool { return isTruthy(toValue(v)) }

func (s *scriptEnv) BinaryOp(op string, l, r any) (any, error) {
	return binaryOp(op, toValue(l), toValue(r))
}

func (s *scriptEnv) UnaryOp(op string, v any) (any, error) {
	return unaryOp(op, toValue(v))
}

func (s *scriptEnv) Call(name string, args []any, kwargs map[string]any) (any, error) {
	switch name {
	case "C":
		return s.accessorC(args)
	case "R":
		return s.accessorR(args)
	case "Sh":
		return s.accessorSh(args)
	case "G":
		return s.accessorG(args)
	case "CM":
		return s.accessorCM(args)
	case "CR":
		return s.accessorCR(args)
	case "OFFSET":
		return s.accessorOffset(args)
	case "SpillOutput":
		return s.constructSpillOutput(args, kwargs)
	case "Range":
		return s.constructRange(args, kwargs)
	case "Empty":
		return Empty, nil
	default:
		return callBuiltin(name, valuesOf(args))
	}
}

func namedArg(args []any, kwargs map[string]any, name string, pos int) (any, bool) {
	if v, ok := kwargs[name]; ok {
		return v, true
	}
	if pos < len(args) {
		return args[pos], true
	}
	return nil, false
}

// constructSpillOutput implements the SpillOutput(cells=[...], width=,
// height=) value constructor bound into script execution locals
// (spec.md §4.8 step 7), producing a *SpillOutputValue anchored at the
// calling cell.
func (s *scriptEnv) constructSpillOutput(args []any, kwargs map[string]any) (any, error) {
	cellsArg, ok := namedArg(args, kwargs, "cells", 0)
	if !ok {
		return nil, newError(ErrKindNA, "SpillOutput() requires cells")
	}
	widthArg, hasWidth := namedArg(args, kwargs, "width", 1)
	heightArg, hasHeight := namedArg(args, kwargs, "height", 2)
	if !hasWidth || !hasHeight {
		return nil, newError(ErrKindNA, "SpillOutput() requires width and height")
	}
	list, ok := toValue(cellsArg).(*ScalarValue)
	if !ok || list.Kind != ScalarList {
		return nil, newError(ErrKindValue, "SpillOutput() cells must be a list")
	}
	width, ok1 := asNumber(toValue(widthArg))
	height, ok2 := asNumber(toValue(heightArg))
	if !ok1 || !ok2 {
		return nil, newError(ErrKindValue, "SpillOutput() width/height must be numeric")
	}
	return &SpillOutputValue{
		Cells:   list.List,
		Width:   uint32(width.IntPart()),
		Height:  uint32(height.IntPart()),
		TopLeft: s.addr,
	}, nil
}

// constructRange implements the Range(cells=[...], width=) value
// constructor, producing a *RangeValue anchored at the calling cell.
func (s *scriptEnv) constructRange(args []any, kwargs map[string]any) (any, error) {
	cellsArg, ok := namedArg(args, kwargs, "cells", 0)
	if !ok {
		return nil, newError(ErrKindNA, "Range() requires cells")
	}
	widthArg, hasWidth := namedArg(args, kwargs, "width", 1)
	if !hasWidth {
		return nil, newError(ErrKindNA, "Range() requires width")
	}
	list, ok := toValue(cellsArg).(*ScalarValue)
	if !ok || list.Kind != ScalarList {
		return nil, newError(ErrKindValue, "Range() cells must be a list")
	}
	width, ok2 := asNumber(toValue(widthArg))
	if !ok2 {
		return nil, newError(ErrKindValue, "Range() width must be numeric")
	}
	return &RangeValue{Cells: list.List, Width: uint32(width.IntPart()), TopLeft: s.addr}, nil
}

func (s *scriptEnv) Attr(recv any, name string) (any, error) {
	return methodOrAttr(s, recv, name, nil)
}

func (s *scriptEnv) MethodCall(recv any, name string, args []any, kwargs map[string]any) (any, error) {
	return methodOrAttr(s, recv, name, valuesOf(args))
}

func (s *scriptEnv) Index(recv any, index any) (any, error) {
	return indexValue(toValue(recv), toValue(index))
}

func toValue(v any) Value {
	if vv, ok := v.(Value); ok {
		return vv
	}
	return Empty
}

func valuesOf(args []any) []Value {
	out := make([]Value, len(args))
	for i, a := range args {
		out[i] = toValue(a)
	}
	return out
}
