package engine

import (
	"fmt"
	"strings"

	"github.com/mitchellh/copystructure"
	"github.com/shopspring/decimal"
)

// Value is the tagged universe of cell values described in spec.md §3.
// Implementations are: emptyValue, ScalarValue, RangeValue,
// SpillOutputValue, HelpTextValue, ErrorValue, OpaqueValue.
type Value interface {
	isValue()
}

// emptyValue is the Empty sentinel's concrete type. Empty is the only
// instance; deep-cloning it returns the same pointer, satisfying the
// identity law of Property 6.
type emptyValue struct{}

func (*emptyValue) isValue() {}

// Empty is the singleton sentinel representing an unset cell. It behaves
// as 0 in numeric context, "" in string context, and false in boolean
// context.
var Empty Value = &emptyValue{}

// IsEmpty reports whether v is the Empty sentinel.
func IsEmpty(v Value) bool {
	_, ok := v.(*emptyValue)
	return ok
}

// ScalarValue wraps a host scripting value: a decimal number, a string, a
// boolean, or a list of Values (the script DSL's list-literal form).
type ScalarValue struct {
	Num    decimal.Decimal
	Str    string
	Bool   bool
	List   []Value
	Kind   ScalarKind
}

// ScalarKind discriminates ScalarValue's payload.
type ScalarKind uint8

const (
	ScalarNumber ScalarKind = iota
	ScalarString
	ScalarBool
	ScalarList
)

func (*ScalarValue) isValue() {}

// NewNumber wraps a decimal.Decimal as a ScalarValue.
func NewNumber(d decimal.Decimal) *ScalarValue { return &ScalarValue{Num: d, Kind: ScalarNumber} }

// NewString wraps a string as a ScalarValue.
func NewString(s string) *ScalarValue { return &ScalarValue{Str: s, Kind: ScalarString} }

// NewBool wraps a bool as a ScalarValue.
func NewBool(b bool) *ScalarValue { return &ScalarValue{Bool: b, Kind: ScalarBool} }

// NewList wraps a slice of Values as a ScalarValue.
func NewList(items []Value) *ScalarValue { return &ScalarValue{List: items, Kind: ScalarList} }

// RangeValue is a rectangular region presented row-major, flattened, plus
// its width so callers can reconstitute rows.
type RangeValue struct {
	Cells   []Value
	Width   uint32
	TopLeft CellAddress
}

func (*RangeValue) isValue() {}

// Row returns the i-th row (0-based) of the range as a length-Width slice.
func (r *RangeValue) Row(i uint32) []Value {
	start := i * r.Width
	if start >= uint32(len(r.Cells)) {
		return nil
	}
	end := start + r.Width
	if end > uint32(len(r.Cells)) {
		end = uint32(len(r.Cells))
	}
	return r.Cells[start:end]
}

// Flatten returns the non-empty elements of the range in row-major order.
func (r *RangeValue) Flatten() []Value {
	out := make([]Value, 0, len(r.Cells))
	for _, c := range r.Cells {
		if !IsEmpty(c) {
			out = append(out, c)
		}
	}
	return out
}

// SpillOutputValue is a producer cell's value that wants to fan out over a
// rectangular neighborhood of width x height, in row-major order.
type SpillOutputValue struct {
	Cells   []Value
	Width   uint32
	Height  uint32
	TopLeft CellAddress
}

func (*SpillOutputValue) isValue() {}

// At returns the value at (dr, dc) within the spill block.
func (s *SpillOutputValue) At(dr, dc uint32) Value {
	idx := dr*s.Width + dc
	if idx >= uint32(len(s.Cells)) {
		return Empty
	}
	return s.Cells[idx]
}

// HelpTextValue carries introspection text. The script environment binds
// no help() function, so evaluation never produces one; it is displayed
// and cloned like any other value.
type HelpTextValue struct {
	Query string
	Body  string
}

func (*HelpTextValue) isValue() {}

// ErrorValue represents a computation failure. It is a Value like any
// other: downstream cells referencing it receive it unchanged.
type ErrorValue struct {
	Kind   ErrorKind
	Detail string
}

func (*ErrorValue) isValue() {}

func (e *ErrorValue) Error() string { return string(e.Kind) }

// NewErrorValue builds an ErrorValue of the given kind with detail text.
func NewErrorValue(kind ErrorKind, detail string) *ErrorValue {
	return &ErrorValue{Kind: kind, Detail: detail}
}

// OpaqueValue holds a host value that is not deep-copied (typically a
// module handle or similarly uncopyable host value). It is shared by
// reference; mutation through one alias is visible through all others.
// DeepClone never produces one; it returns an existing OpaqueValue as is.
type OpaqueValue struct {
	Payload any
	TypeTag string
}

func (*OpaqueValue) isValue() {}

// Warning is a non-fatal diagnostic accumulated during evaluation and
// returned to the caller. Warnings are not stored in the producing
// cell's attribute bag.
type Warning struct {
	Kind    string
	Message string
}

const (
	WarningOpaqueValue  = "opaque_value"
	WarningEmptyNonEmpty = "empty_from_nonempty"
	WarningGlobalCollision = "global_name_collision"
)

// DeepClone returns an independent copy of v plus any warnings raised in
// doing so. Empty clones to itself (identity, Property 6). Scalars are
// copied field by field, lists, ranges and spill outputs element by
// element; an OpaqueValue is returned as is. None of these cases fails
// or raises a warning, so the returned slice is always empty.
func DeepClone(v Value) (Value, []Warning) {
	switch t := v.(type) {
	case *emptyValue:
		return Empty, nil
	case *ScalarValue:
		return cloneScalar(t)
	case *RangeValue:
		cells := make([]Value, len(t.Cells))
		var warnings []Warning
		for i, c := range t.Cells {
			cloned, w := DeepClone(c)
			cells[i] = cloned
			warnings = append(warnings, w...)
		}
		return &RangeValue{Cells: cells, Width: t.Width, TopLeft: t.TopLeft}, warnings
	case *SpillOutputValue:
		cells := make([]Value, len(t.Cells))
		var warnings []Warning
		for i, c := range t.Cells {
			cloned, w := DeepClone(c)
			cells[i] = cloned
			warnings = append(warnings, w...)
		}
		return &SpillOutputValue{Cells: cells, Width: t.Width, Height: t.Height, TopLeft: t.TopLeft}, warnings
	case *HelpTextValue:
		cp := *t
		return &cp, nil
	case *ErrorValue:
		cp := *t
		return &cp, nil
	case *OpaqueValue:
		// Opaque is shared by reference by design (spec.md §9); no clone,
		// no warning.
		return t, nil
	default:
		return v, nil
	}
}

func cloneScalar(s *ScalarValue) (Value, []Warning) {
	switch s.Kind {
	case ScalarNumber, ScalarString, ScalarBool:
		cp := *s
		return &cp, nil
	case ScalarList:
		items := make([]Value, len(s.List))
		var warnings []Warning
		for i, item := range s.List {
			cloned, w := DeepClone(item)
			items[i] = cloned
			warnings = append(warnings, w...)
		}
		return &ScalarValue{List: items, Kind: ScalarList}, warnings
	}
	return s, nil
}

// probeCopyable attempts a copystructure round-trip of an arbitrary Go
// value. It returns the cloned value on success, or (nil, false) if
// copystructure reports an error. The sheet environment does not call
// it; ApplyScript partitions bindings by DeepClone's result instead.
func probeCopyable(v any) (any, bool) {
	cp, err := copystructure.Copy(v)
	if err != nil {
		return nil, false
	}
	return cp, true
}

// DisplayString renders v the way the grid would show it in one cell
// (spec.md §4.10).
func DisplayString(v Value) string {
	switch t := v.(type) {
	case *emptyValue:
		return ""
	case *ScalarValue:
		return scalarDisplay(t)
	case *RangeValue:
		if len(t.Cells) == 0 {
			return ""
		}
		return DisplayString(t.Cells[0])
	case *SpillOutputValue:
		for _, c := range t.Cells {
			if !IsEmpty(c) {
				return DisplayString(c)
			}
		}
		return ""
	case *HelpTextValue:
		return t.Query
	case *ErrorValue:
		return string(t.Kind)
	case *OpaqueValue:
		return fmt.Sprintf("<%s>", t.TypeTag)
	default:
		return ""
	}
}

func scalarDisplay(s *ScalarValue) string {
	switch s.Kind {
	case ScalarNumber:
		return s.Num.String()
	case ScalarString:
		return s.Str
	case ScalarBool:
		if s.Bool {
			return "TRUE"
		}
		return "FALSE"
	case ScalarList:
		parts := make([]string, len(s.List))
		for i, item := range s.List {
			parts[i] = DisplayString(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return ""
}

// TooltipString renders v's tooltip text (spec.md §4.10).
func TooltipString(v Value) string {
	switch t := v.(type) {
	case *ErrorValue:
		return t.Detail
	case *HelpTextValue:
		return t.Body
	default:
		return fmt.Sprintf("%T", v)
	}
}
