package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// isTruthy applies spec.md §3's Empty-as-falsy rule: Empty behaves as
// 0/""/false in any context, including boolean.
func isTruthy(v Value) bool {
	switch t := v.(type) {
	case *emptyValue:
		return false
	case *ScalarValue:
		switch t.Kind {
		case ScalarNumber:
			return !t.Num.IsZero()
		case ScalarString:
			return t.Str != ""
		case ScalarBool:
			return t.Bool
		case ScalarList:
			return len(t.List) > 0
		}
	case *ErrorValue:
		return false
	}
	return true
}

func asNumber(v Value) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case *emptyValue:
		return decimal.Zero, true
	case *ScalarValue:
		switch t.Kind {
		case ScalarNumber:
			return t.Num, true
		case ScalarBool:
			if t.Bool {
				return decimal.NewFromInt(1), true
			}
			return decimal.Zero, true
		}
	}
	return decimal.Zero, false
}

func asString(v Value) (string, bool) {
	switch t := v.(type) {
	case *emptyValue:
		return "", true
	case *ScalarValue:
		if t.Kind == ScalarString {
			return t.Str, true
		}
	}
	return "", false
}

// binaryOp evaluates a parsed BinaryExpr operator. Arithmetic on a
// first *ErrorValue operand propagates it unchanged, the usual
// spreadsheet convention the teacher's SpreadsheetError also follows.
func binaryOp(op string, l, r Value) (Value, error) {
	if ev, ok := l.(*ErrorValue); ok {
		return ev, nil
	}
	if ev, ok := r.(*ErrorValue); ok {
		return ev, nil
	}

	switch op {
	case "+":
		if ls, ok := asString(l); ok {
			if rs, ok := asString(r); ok {
				if _, lIsNum := asNumber(l); !lIsNum || isStringLike(l) || isStringLike(r) {
					return NewString(ls + rs), nil
				}
			}
		}
		return numericBinary(op, l, r)
	case "-", "*", "/", "%", "**":
		return numericBinary(op, l, r)
	case "==":
		return NewBool(valuesEqual(l, r)), nil
	case "!=":
		return NewBool(!valuesEqual(l, r)), nil
	case "<", "<=", ">", ">=":
		return compareValues(op, l, r)
	default:
		return nil, newError(ErrKindValue, fmt.Sprintf("unsupported operator %q", op))
	}
}

func isStringLike(v Value) bool {
	s, ok := v.(*ScalarValue)
	return ok && s.Kind == ScalarString
}

func numericBinary(op string, l, r Value) (Value, error) {
	ln, lok := asNumber(l)
	rn, rok := asNumber(r)
	if !lok || !rok {
		return newError(ErrKindValue, "operand is not numeric"), nil
	}
	switch op {
	case "+":
		return NewNumber(ln.Add(rn)), nil
	case "-":
		return NewNumber(ln.Sub(rn)), nil
	case "*":
		return NewNumber(ln.Mul(rn)), nil
	case "/":
		if rn.IsZero() {
			return newError(ErrKindDiv0, ""), nil
		}
		return NewNumber(ln.Div(rn)), nil
	case "%":
		if rn.IsZero() {
			return newError(ErrKindDiv0, ""), nil
		}
		return NewNumber(ln.Mod(rn)), nil
	case "**":
		return NewNumber(ln.Pow(rn)), nil
	default:
		return nil, newError(ErrKindValue, fmt.Sprintf("unsupported numeric operator %q", op))
	}
}

func valuesEqual(l, r Value) bool {
	if IsEmpty(l) && IsEmpty(r) {
		return true
	}
	if ln, lok := asNumber(l); lok {
		if rn, rok := asNumber(r); rok {
			return ln.Equal(rn)
		}
	}
	if ls, lok := asString(l); lok {
		if rs, rok := asString(r); rok {
			return ls == rs
		}
	}
	return false
}

func compareValues(op string, l, r Value) (Value, error) {
	ln, lok := asNumber(l)
	rn, rok := asNumber(r)
	if lok && rok {
		c := ln.Cmp(rn)
		return NewBool(compareResult(op, c)), nil
	}
	ls, lsok := asString(l)
	rs, rsok := asString(r)
	if lsok && rsok {
		c := strings.Compare(ls, rs)
		return NewBool(compareResult(op, c)), nil
	}
	return newError(ErrKindValue, "operands are not comparable"), nil
}

func compareResult(op string, c int) bool {
	switch op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}

func unaryOp(op string, v Value) (Value, error) {
	if ev, ok := v.(*ErrorValue); ok {
		return ev, nil
	}
	switch op {
	case "+":
		n, ok := asNumber(v)
		if !ok {
			return newError(ErrKindValue, "operand is not numeric"), nil
		}
		return NewNumber(n), nil
	case "-":
		n, ok := asNumber(v)
		if !ok {
			return newError(ErrKindValue, "operand is not numeric"), nil
		}
		return NewNumber(n.Neg()), nil
	case "not":
		return NewBool(!isTruthy(v)), nil
	case "%":
		n, ok := asNumber(v)
		if !ok {
			return newError(ErrKindValue, "operand is not numeric"), nil
		}
		return NewNumber(n.Div(decimal.NewFromInt(100))), nil
	default:
		return nil, newError(ErrKindValue, fmt.Sprintf("unsupported unary operator %q", op))
	}
}

// indexValue resolves recv[index] for lists and ranges.
func indexValue(recv, index Value) (Value, error) {
	idx, ok := asNumber(index)
	if !ok {
		return newError(ErrKindValue, "index must be numeric"), nil
	}
	i := int(idx.IntPart())
	switch t := recv.(type) {
	case *ScalarValue:
		if t.Kind == ScalarList {
			if i < 0 || i >= len(t.List) {
				return newError(ErrKindRef, "index out of range"), nil
			}
			return t.List[i], nil
		}
	case *RangeValue:
		if i < 0 || i >= len(t.Cells) {
			return newError(ErrKindRef, "index out of range"), nil
		}
		return t.Cells[i], nil
	}
	return newError(ErrKindValue, "value is not indexable"), nil
}

// methodOrAttr dispatches recv.name (attribute) or recv.name(args...)
// (method call). args is nil for a plain attribute access.
func methodOrAttr(s *scriptEnv, recv any, name string, args []Value) (any, error) {
	if h, ok := recv.(*shHandle); ok {
		return h.call(name, args)
	}
	v := toValue(recv)
	switch t := v.(type) {
	case *RangeValue:
		return rangeMethod(t, name, args)
	case *ScalarValue:
		if t.Kind == ScalarList {
			return listMethod(t, name, args)
		}
		if t.Kind == ScalarString {
			return stringMethod(t, name, args)
		}
		if t.Kind == ScalarNumber {
			return numberMethod(t, name, args)
		}
	}
	return nil, newError(ErrKindName, fmt.Sprintf("no attribute/method %q on this value", name))
}

func rangeMethod(r *RangeValue, name string, args []Value) (any, error) {
	switch name {
	case "sum":
		return callBuiltin("SUM", []Value{r})
	case "average", "avg":
		return callBuiltin("AVERAGE", []Value{r})
	case "count":
		return callBuiltin("COUNT", []Value{r})
	case "max":
		return callBuiltin("MAX", []Value{r})
	case "min":
		return callBuiltin("MIN", []Value{r})
	case "flatten":
		return NewList(r.Flatten()), nil
	default:
		return nil, newError(ErrKindName, fmt.Sprintf("range has no method %q", name))
	}
}

func listMethod(l *ScalarValue, name string, args []Value) (any, error) {
	switch name {
	case "sum":
		return callBuiltin("SUM", []Value{l})
	case "len", "length":
		return NewNumber(decimal.NewFromInt(int64(len(l.List)))), nil
	case "sort":
		// Mirrors Python's list.sort(): mutates in place and returns
		// None, so "L.sort() or L" reads back the sorted list.
		sort.SliceStable(l.List, func(i, j int) bool { return valueLess(l.List[i], l.List[j]) })
		return Empty, nil
	case "append":
		if len(args) == 1 {
			l.List = append(l.List, args[0])
		}
		return Empty, nil
	case "reverse":
		for i, j := 0, len(l.List)-1; i < j; i, j = i+1, j-1 {
			l.List[i], l.List[j] = l.List[j], l.List[i]
		}
		return Empty, nil
	default:
		return nil, newError(ErrKindName, fmt.Sprintf("list has no method %q", name))
	}
}

// valueLess orders two Values for list.sort(): numerically when both
// are numbers, lexically when both are strings, falling back to false
// (stable no-op order) for incomparable pairs rather than erroring,
// since sort has no error return.
func valueLess(a, b Value) bool {
	if an, aok := asNumber(a); aok {
		if bn, bok := asNumber(b); bok {
			return an.LessThan(bn)
		}
	}
	if as, aok := asString(a); aok {
		if bs, bok := asString(b); bok {
			return as < bs
		}
	}
	return false
}

func stringMethod(s *ScalarValue, name string, args []Value) (any, error) {
	switch name {
	case "upper":
		return NewString(strings.ToUpper(s.Str)), nil
	case "lower":
		return NewString(strings.ToLower(s.Str)), nil
	case "strip", "trim":
		return NewString(strings.TrimSpace(s.Str)), nil
	case "len", "length":
		return NewNumber(decimal.NewFromInt(int64(len(s.Str)))), nil
	default:
		return nil, newError(ErrKindName, fmt.Sprintf("string has no method %q", name))
	}
}

func numberMethod(n *ScalarValue, name string, args []Value) (any, error) {
	switch name {
	case "round":
		places := int32(0)
		if len(args) == 1 {
			if p, ok := asNumber(args[0]); ok {
				places = int32(p.IntPart())
			}
		}
		return NewNumber(n.Num.Round(places)), nil
	case "abs":
		return NewNumber(n.Num.Abs()), nil
	default:
		return nil, newError(ErrKindName, fmt.Sprintf("number has no method %q", name))
	}
}
