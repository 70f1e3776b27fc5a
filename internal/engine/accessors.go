package engine

import "fmt"

// accessorC implements C("A1"): a single-cell reference relative to the
// calling cell's own sheet. It records the dependency edge via the
// tracker before forcing evaluation, per spec.md §4.8.
func (s *scriptEnv) accessorC(args []any) (any, error) {
	if len(args) != 1 {
		return nil, newError(ErrKindNA, "C() takes exactly one cell label")
	}
	label, ok := scalarString(toValue(args[0]))
	if !ok {
		return nil, newError(ErrKindValue, "C() argument must be a string label")
	}
	row, col, err := CoordOf(label)
	if err != nil {
		return nil, err
	}
	target := CellAddress{Sheet: s.addr.Sheet, Row: row, Col: col}
	return s.readCell(target)
}

func (s *scriptEnv) readCell(target CellAddress) (Value, error) {
	s.e.tracker.record(target)
	v, _ := s.e.Eval(target)
	cloned, _ := DeepClone(v)
	return cloned, nil
}

// accessorR implements R("A1","B2"): a rectangular range on the calling
// cell's own sheet.
func (s *scriptEnv) accessorR(args []any) (any, error) {
	if len(args) != 2 {
		return nil, newError(ErrKindNA, "R() takes exactly two cell labels")
	}
	from, ok1 := scalarString(toValue(args[0]))
	to, ok2 := scalarString(toValue(args[1]))
	if !ok1 || !ok2 {
		return nil, newError(ErrKindValue, "R() arguments must be string labels")
	}
	return s.readRange(s.addr.Sheet, from, to)
}

func (s *scriptEnv) readRange(sheet uint32, from, to string) (Value, error) {
	r0, c0, err := CoordOf(from)
	if err != nil {
		return nil, err
	}
	r1, c1, err := CoordOf(to)
	if err != nil {
		return nil, err
	}
	if r0 > r1 {
		r0, r1 = r1, r0
	}
	if c0 > c1 {
		c0, c1 = c1, c0
	}
	width := c1 - c0 + 1
	cells := make([]Value, 0, width*(r1-r0+1))
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			target := CellAddress{Sheet: sheet, Row: row, Col: col}
			v, _ := s.readCell(target)
			cells = append(cells, v)
		}
	}
	return &RangeValue{Cells: cells, Width: width, TopLeft: CellAddress{Sheet: sheet, Row: r0, Col: c0}}, nil
}

// shHandle is returned by Sh("Name") so .C()/.R()/.G() can be chained
// via dotted method calls, per SPEC_FULL.md §4.4's Sh(...).C(...) form.
type shHandle struct {
	env   *scriptEnv
	sheet uint32
}

func (s *scriptEnv) accessorSh(args []any) (any, error) {
	if len(args) != 1 {
		return nil, newError(ErrKindNA, "Sh() takes exactly one sheet name")
	}
	name, ok := scalarString(toValue(args[0]))
	if !ok {
		return nil, newError(ErrKindValue, "Sh() argument must be a string name")
	}
	id, found := s.e.storage.Sheets.Contains(name)
	if !found {
		return nil, newError(ErrKindRef, fmt.Sprintf("unknown sheet %q", name))
	}
	return &shHandle{env: s, sheet: id}, nil
}

// accessorG implements G("Name"): the calling cell's sheet globals are
// searched first (a copyable global is returned as a fresh deep clone),
// then the workbook's named ranges.
func (s *scriptEnv) accessorG(args []any) (any, error) {
	if len(args) != 1 {
		return nil, newError(ErrKindNA, "G() takes exactly one name")
	}
	name, ok := scalarString(toValue(args[0]))
	if !ok {
		return nil, newError(ErrKindValue, "G() argument must be a string name")
	}
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

// accessorCM implements CM("A1", "key") / CM("A1"): reads a cell's
// attribute bag directly from AttributeStore without calling Eval, so
// introspection never forces computation (spec.md §4.10).
func (s *scriptEnv) accessorCM(args []any) (any, error) {
	if len(args) < 1 {
		return nil, newError(ErrKindNA, "CM() takes a cell label and optional key")
	}
	label, ok := scalarString(toValue(args[0]))
	if !ok {
		return nil, newError(ErrKindValue, "CM() first argument must be a string label")
	}
	row, col, err := CoordOf(label)
	if err != nil {
		return nil, err
	}
	target := CellAddress{Sheet: s.addr.Sheet, Row: row, Col: col}
	if len(args) == 1 {
		bag := s.e.storage.Attributes.All(target)
		items := make([]Value, 0, len(bag))
		for k := range bag {
			items = append(items, NewString(k))
		}
		return NewList(items), nil
	}
	key, ok := scalarString(toValue(args[1]))
	if !ok {
		return nil, newError(ErrKindValue, "CM() second argument must be a string key")
	}
	v, found := s.e.storage.Attributes.Get(target, key)
	if !found {
		return Empty, nil
	}
	if vv, ok := v.(Value); ok {
		return vv, nil
	}
	return NewString(fmt.Sprint(v)), nil
}

// accessorCR implements CR(expr): a dynamic reference whose label is
// computed at runtime rather than known at rewrite time (SPEC_FULL.md
// §4.4's escape hatch for the reference parser).
func (s *scriptEnv) accessorCR(args []any) (any, error) {
	if len(args) != 1 {
		return nil, newError(ErrKindNA, "CR() takes exactly one dynamic label expression")
	}
	label, ok := scalarString(toValue(args[0]))
	if !ok {
		return nil, newError(ErrKindValue, "CR() argument must evaluate to a string label")
	}
	return s.accessorC([]any{NewString(label)})
}

// accessorOffset implements OFFSET(): it looks the calling cell up in
// the evaluator's spill table and returns its element of the producer's
// spill output. Its arguments are ignored. No cell text is rewritten to
// an OFFSET call; Eval resolves an empty spill neighbor through the
// spill table directly (spec.md §4.9).
func (s *scriptEnv) accessorOffset(args []any) (any, error) {
	producer, blk, ok := s.e.spill.neighborOf(s.addr)
	if !ok {
		return nil, newError(ErrKindRef, "OFFSET() has no registered spill producer")
	}
	v, _ := s.e.Eval(producer)
	spillOut, isSpill := v.(*SpillOutputValue)
	if !isSpill {
		return Empty, nil
	}
	return spillOut.At(blk.dr, blk.dc), nil
}

// shHandle method dispatch, reached via Env.MethodCall/Attr on an
// *shHandle receiver (see arithmetic.go's methodOrAttr).
func (h *shHandle) call(method string, args []Value) (any, error) {
	switch method {
	case "C":
		if len(args) != 1 {
			return nil, newError(ErrKindNA, "Sh(...).C() takes exactly one cell label")
		}
		label, ok := scalarString(args[0])
		if !ok {
			return nil, newError(ErrKindValue, "Sh(...).C() argument must be a string label")
		}
		row, col, err := CoordOf(label)
		if err != nil {
			return nil, err
		}
		return h.env.readCell(CellAddress{Sheet: h.sheet, Row: row, Col: col})
	case "R":
		if len(args) != 2 {
			return nil, newError(ErrKindNA, "Sh(...).R() takes exactly two cell labels")
		}
		from, ok1 := scalarString(args[0])
		to, ok2 := scalarString(args[1])
		if !ok1 || !ok2 {
			return nil, newError(ErrKindValue, "Sh(...).R() arguments must be string labels")
		}
		return h.env.readRange(h.sheet, from, to)
	case "G":
		if len(args) != 1 {
			return nil, newError(ErrKindNA, "Sh(...).G() takes exactly one name")
		}
		name, ok := scalarString(args[0])
		if !ok {
			return nil, newError(ErrKindValue, "Sh(...).G() argument must be a string name")
		}
		sh := h.env.e.sheets[h.sheet]
		if sh != nil {
			if v, ok := sh.Copyable[name]; ok {
				cloned, _ := DeepClone(v)
				return cloned, nil
			}
			if v, ok := sh.Uncopyable[name]; ok {
				return v, nil
			}
		}
		return nil, newError(ErrKindName, fmt.Sprintf("unknown name %q", name))
	default:
		return nil, newError(ErrKindName, fmt.Sprintf("Sh(...) has no method %q", method))
	}
}

func (e *Evaluator) sheetOf(addr CellAddress) *Sheet {
	return e.sheets[addr.Sheet]
}

func scalarString(v Value) (string, bool) {
	if s, ok := v.(*ScalarValue); ok && s.Kind == ScalarString {
		return s.Str, true
	}
	return "", false
}
