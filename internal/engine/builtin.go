package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// callBuiltin dispatches a bare function call by name, the same
// flat switch-over-uppercased-name shape as the teacher's
// BuiltInFunctions.Call, generalized to this engine's decimal-backed
// Value universe instead of float64 Primitives.
func callBuiltin(name string, args []Value) (Value, error) {
	switch strings.ToUpper(name) {
	case "SUM":
		return sumFn(args)
	case "AVERAGE":
		return averageFn(args)
	case "COUNT":
		return countFn(args, false)
	case "COUNTA":
		return countFn(args, true)
	case "MAX":
		return extremeFn(args, true)
	case "MIN":
		return extremeFn(args, false)
	case "MEDIAN":
		return medianFn(args)
	case "IF":
		return ifFn(args)
	case "AND":
		return andFn(args)
	case "OR":
		return orFn(args)
	case "NOT":
		return notFn(args)
	case "CONCATENATE":
		return concatenateFn(args)
	case "LEN":
		return lenFn(args)
	case "UPPER":
		return caseFn(args, strings.ToUpper)
	case "LOWER":
		return caseFn(args, strings.ToLower)
	case "TRIM":
		return caseFn(args, strings.TrimSpace)
	case "ABS":
		return unaryMathFn(args, decimal.Decimal.Abs)
	case "ROUND":
		return roundFn(args)
	case "SQRT":
		return sqrtFn(args)
	case "POWER":
		return powerFn(args)
	case "MOD":
		return modFn(args)
	case "PI":
		return NewNumber(decimal.NewFromFloat(3.14159265358979323846)), nil
	default:
		return newError(ErrKindName, fmt.Sprintf("unknown function: %s", name)), nil
	}
}

// flattenNumbers expands RangeValue/list arguments into their scalar
// numeric members, skipping non-numeric and empty entries, the same
// "range expands, scalar counts directly" walk as the teacher's
// IterateValues loops in SUM/AVERAGE/MAX/MIN.
func flattenNumbers(args []Value) ([]decimal.Decimal, *ErrorValue) {
	var out []decimal.Decimal
	var walk func(v Value) *ErrorValue
	walk = func(v Value) *ErrorValue {
		switch t := v.(type) {
		case *ErrorValue:
			return t
		case *RangeValue:
			for _, c := range t.Cells {
				if err := walk(c); err != nil {
					return err
				}
			}
		case *ScalarValue:
			if t.Kind == ScalarList {
				for _, c := range t.List {
					if err := walk(c); err != nil {
						return err
					}
				}
				return nil
			}
			if n, ok := asNumber(t); ok {
				out = append(out, n)
			}
		}
		return nil
	}
	for _, a := range args {
		if err := walk(a); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func sumFn(args []Value) (Value, error) {
	nums, errv := flattenNumbers(args)
	if errv != nil {
		return errv, nil
	}
	sum := decimal.Zero
	for _, n := range nums {
		sum = sum.Add(n)
	}
	return NewNumber(sum), nil
}

func averageFn(args []Value) (Value, error) {
	nums, errv := flattenNumbers(args)
	if errv != nil {
		return errv, nil
	}
	if len(nums) == 0 {
		return newError(ErrKindDiv0, "AVERAGE of no values"), nil
	}
	sum := decimal.Zero
	for _, n := range nums {
		sum = sum.Add(n)
	}
	return NewNumber(sum.Div(decimal.NewFromInt(int64(len(nums))))), nil
}

func countFn(args []Value, countAllNonEmpty bool) (Value, error) {
	count := 0
	var walk func(v Value)
	walk = func(v Value) {
		switch t := v.(type) {
		case *emptyValue:
			return
		case *RangeValue:
			for _, c := range t.Cells {
				walk(c)
			}
		case *ScalarValue:
			if t.Kind == ScalarList {
				for _, c := range t.List {
					walk(c)
				}
				return
			}
			if countAllNonEmpty || t.Kind == ScalarNumber {
				count++
			}
		case *ErrorValue:
			if countAllNonEmpty {
				count++
			}
		default:
			if countAllNonEmpty {
				count++
			}
		}
	}
	for _, a := range args {
		walk(a)
	}
	return NewNumber(decimal.NewFromInt(int64(count))), nil
}

func extremeFn(args []Value, wantMax bool) (Value, error) {
	nums, errv := flattenNumbers(args)
	if errv != nil {
		return errv, nil
	}
	if len(nums) == 0 {
		return NewNumber(decimal.Zero), nil
	}
	best := nums[0]
	for _, n := range nums[1:] {
		if (wantMax && n.GreaterThan(best)) || (!wantMax && n.LessThan(best)) {
			best = n
		}
	}
	return NewNumber(best), nil
}

func medianFn(args []Value) (Value, error) {
	nums, errv := flattenNumbers(args)
	if errv != nil {
		return errv, nil
	}
	if len(nums) == 0 {
		return newError(ErrKindNum, "MEDIAN of no values"), nil
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i].LessThan(nums[j]) })
	mid := len(nums) / 2
	if len(nums)%2 == 1 {
		return NewNumber(nums[mid]), nil
	}
	return NewNumber(nums[mid-1].Add(nums[mid]).Div(decimal.NewFromInt(2))), nil
}

func ifFn(args []Value) (Value, error) {
	if len(args) < 2 || len(args) > 3 {
		return newError(ErrKindNA, "IF() takes 2 or 3 arguments"), nil
	}
	if isTruthy(args[0]) {
		return args[1], nil
	}
	if len(args) == 3 {
		return args[2], nil
	}
	return NewBool(false), nil
}

func andFn(args []Value) (Value, error) {
	for _, a := range args {
		if !isTruthy(a) {
			return NewBool(false), nil
		}
	}
	return NewBool(true), nil
}

func orFn(args []Value) (Value, error) {
	for _, a := range args {
		if isTruthy(a) {
			return NewBool(true), nil
		}
	}
	return NewBool(false), nil
}

func notFn(args []Value) (Value, error) {
	if len(args) != 1 {
		return newError(ErrKindNA, "NOT() takes exactly one argument"), nil
	}
	return NewBool(!isTruthy(args[0])), nil
}

func concatenateFn(args []Value) (Value, error) {
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(DisplayString(a))
	}
	return NewString(sb.String()), nil
}

func lenFn(args []Value) (Value, error) {
	if len(args) != 1 {
		return newError(ErrKindNA, "LEN() takes exactly one argument"), nil
	}
	s, ok := asString(args[0])
	if !ok {
		return newError(ErrKindValue, "LEN() argument must be text"), nil
	}
	return NewNumber(decimal.NewFromInt(int64(len(s)))), nil
}

func caseFn(args []Value, f func(string) string) (Value, error) {
	if len(args) != 1 {
		return newError(ErrKindNA, "expected exactly one text argument"), nil
	}
	s, ok := asString(args[0])
	if !ok {
		return newError(ErrKindValue, "argument must be text"), nil
	}
	return NewString(f(s)), nil
}

func unaryMathFn(args []Value, f func(decimal.Decimal) decimal.Decimal) (Value, error) {
	if len(args) != 1 {
		return newError(ErrKindNA, "expected exactly one numeric argument"), nil
	}
	n, ok := asNumber(args[0])
	if !ok {
		return newError(ErrKindValue, "argument must be numeric"), nil
	}
	return NewNumber(f(n)), nil
}

func roundFn(args []Value) (Value, error) {
	if len(args) < 1 || len(args) > 2 {
		return newError(ErrKindNA, "ROUND() takes 1 or 2 arguments"), nil
	}
	n, ok := asNumber(args[0])
	if !ok {
		return newError(ErrKindValue, "ROUND() first argument must be numeric"), nil
	}
	places := int32(0)
	if len(args) == 2 {
		p, ok := asNumber(args[1])
		if !ok {
			return newError(ErrKindValue, "ROUND() second argument must be numeric"), nil
		}
		places = int32(p.IntPart())
	}
	return NewNumber(n.Round(places)), nil
}

func sqrtFn(args []Value) (Value, error) {
	if len(args) != 1 {
		return newError(ErrKindNA, "SQRT() takes exactly one argument"), nil
	}
	n, ok := asNumber(args[0])
	if !ok {
		return newError(ErrKindValue, "SQRT() argument must be numeric"), nil
	}
	if n.IsNegative() {
		return newError(ErrKindNum, "SQRT() of a negative number"), nil
	}
	f, _ := n.Float64()
	return NewNumber(decimal.NewFromFloat(sqrtFloat(f))), nil
}

func sqrtFloat(f float64) float64 {
	if f == 0 {
		return 0
	}
	x := f
	for i := 0; i < 40; i++ {
		x = 0.5 * (x + f/x)
	}
	return x
}

func powerFn(args []Value) (Value, error) {
	if len(args) != 2 {
		return newError(ErrKindNA, "POWER() takes exactly two arguments"), nil
	}
	base, ok1 := asNumber(args[0])
	exp, ok2 := asNumber(args[1])
	if !ok1 || !ok2 {
		return newError(ErrKindValue, "POWER() arguments must be numeric"), nil
	}
	return NewNumber(base.Pow(exp)), nil
}

func modFn(args []Value) (Value, error) {
	if len(args) != 2 {
		return newError(ErrKindNA, "MOD() takes exactly two arguments"), nil
	}
	a, ok1 := asNumber(args[0])
	b, ok2 := asNumber(args[1])
	if !ok1 || !ok2 {
		return newError(ErrKindValue, "MOD() arguments must be numeric"), nil
	}
	if b.IsZero() {
		return newError(ErrKindDiv0, ""), nil
	}
	return NewNumber(a.Mod(b)), nil
}
