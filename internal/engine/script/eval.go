package script

import "fmt"

// Env is the host binding a Program evaluates against. The engine
// package implements Env so that all spreadsheet-specific value
// semantics (Empty-as-zero, decimal arithmetic, error propagation)
// live in the engine's Evaluator rather than in this package — script
// stays a pure, spreadsheet-agnostic expression evaluator, the same
// separation of concerns as CalcMark-go-calcmark's Evaluator/Env split.
type Env interface {
	// Lookup resolves a bare identifier: a variable, named range, or
	// (after reference rewriting, an accessor call instead) a global.
	Lookup(name string) (any, error)
	// Number, String, Bool construct host-native scalar values so this
	// package never needs to import the host's value types.
	Number(text string) (any, error)
	String(s string) any
	Bool(b bool) any
	None() any
	List(items []any) any
	// BinaryOp evaluates a non-short-circuit binary operator.
	BinaryOp(op string, left, right any) (any, error)
	// UnaryOp evaluates a unary or postfix operator ("+","-","not","%").
	UnaryOp(op string, operand any) (any, error)
	// Truthy converts a host value to a bool for and/or short-circuiting.
	Truthy(v any) bool
	// Call invokes a bare-name function call, e.g. SUM(A1:A5) or a
	// rewritten accessor call like C("A1").
	Call(name string, args []any, kwargs map[string]any) (any, error)
	// Attr resolves recv.name as an attribute access (no call).
	Attr(recv any, name string) (any, error)
	// MethodCall resolves recv.name(args...) as a dotted method call.
	MethodCall(recv any, name string, args []any, kwargs map[string]any) (any, error)
	// Index resolves recv[index].
	Index(recv any, index any) (any, error)
}

// Eval walks prog's AST against env, the tree-walking counterpart to
// the teacher formula.go's Evaluate switch over AST node types.
func Eval(prog *Program, env Env) (any, error) {
	return evalNode(prog.Expr, env)
}

func evalNode(n Node, env Env) (any, error) {
	switch t := n.(type) {
	case *NumberLit:
		return env.Number(t.Text)
	case *StringLit:
		return env.String(t.Value), nil
	case *BoolLit:
		return env.Bool(t.Value), nil
	case *NoneLit:
		return env.None(), nil
	case *ListLit:
		items := make([]any, len(t.Items))
		for i, it := range t.Items {
			v, err := evalNode(it, env)
			if err != nil {
				return nil, err
			}
			items[i] = v
		}
		return env.List(items), nil
	case *Ident:
		return env.Lookup(t.Name)
	case *LogicalExpr:
		left, err := evalNode(t.Left, env)
		if err != nil {
			return nil, err
		}
		leftTruthy := env.Truthy(left)
		if t.Op == "or" && leftTruthy {
			return left, nil
		}
		if t.Op == "and" && !leftTruthy {
			return left, nil
		}
		return evalNode(t.Right, env)
	case *UnaryExpr:
		operand, err := evalNode(t.Operand, env)
		if err != nil {
			return nil, err
		}
		return env.UnaryOp(t.Op, operand)
	case *BinaryExpr:
		left, err := evalNode(t.Left, env)
		if err != nil {
			return nil, err
		}
		right, err := evalNode(t.Right, env)
		if err != nil {
			return nil, err
		}
		return env.BinaryOp(t.Op, left, right)
	case *CallExpr:
		return evalCall(t, env)
	case *AttrExpr:
		recv, err := evalNode(t.Recv, env)
		if err != nil {
			return nil, err
		}
		return env.Attr(recv, t.Name)
	case *IndexExpr:
		recv, err := evalNode(t.Recv, env)
		if err != nil {
			return nil, err
		}
		idx, err := evalNode(t.Index, env)
		if err != nil {
			return nil, err
		}
		return env.Index(recv, idx)
	default:
		return nil, fmt.Errorf("script: unhandled node type %T", n)
	}
}

func evalCall(c *CallExpr, env Env) (any, error) {
	args := make([]any, len(c.Args))
	for i, a := range c.Args {
		v, err := evalNode(a, env)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	kwargs := make(map[string]any, len(c.Kwargs))
	for _, kw := range c.Kwargs {
		v, err := evalNode(kw.Value, env)
		if err != nil {
			return nil, err
		}
		kwargs[kw.Name] = v
	}

	switch callee := c.Callee.(type) {
	case *Ident:
		return env.Call(callee.Name, args, kwargs)
	case *AttrExpr:
		recv, err := evalNode(callee.Recv, env)
		if err != nil {
			return nil, err
		}
		return env.MethodCall(recv, callee.Name, args, kwargs)
	default:
		return nil, fmt.Errorf("script: callee must be a name or attribute, got %T", callee)
	}
}
