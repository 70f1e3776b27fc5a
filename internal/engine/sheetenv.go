package engine

import (
	"fmt"
	"strings"

	"github.com/EuphoricCatface/pycellsheet/internal/engine/script"
)

// Sheet is one worksheet's cell-independent state: its name, its
// position among sibling sheets, its script-apply draft/applied text,
// and the globals that draft produces once applied (spec.md §4.7).
type Sheet struct {
	Name       string
	Index      uint32
	Draft      string
	Applied    string
	Copyable   map[string]Value
	Uncopyable map[string]Value
}

// NewSheet creates an empty, unapplied sheet.
func NewSheet(name string, index uint32) *Sheet {
	return &Sheet{
		Name:       name,
		Index:      index,
		Copyable:   make(map[string]Value),
		Uncopyable: make(map[string]Value),
	}
}

// SetDraft stores draft script text without applying it. Draft text is
// never persisted to the file format; LoadWorkbook sets it to the
// loaded script rather than clearing it.
func (s *Sheet) SetDraft(text string) { s.Draft = text }

// GetDraft returns the sheet's unapplied draft text.
func (s *Sheet) GetDraft() string { return s.Draft }

// ApplyScript parses sh.Draft as a sequence of `name = expr` statements,
// the script DSL's only statement form (SPEC_FULL.md §1/§4.7), and
// evaluates each right-hand side against an accumulating binding table
// so a later line can see an earlier line's name. On success the
// resulting bindings are partitioned into Copyable/Uncopyable via the
// deep-clone probe and Draft becomes Applied; on any parse or
// evaluation error the previous Applied/Copyable/Uncopyable are left
// untouched, matching the "apply fails before producing a new pair"
// rule.
func (s *Sheet) ApplyScript(env script.Env, lookupEnv func(name string) (Value, bool)) ([]Warning, error) {
	lines := splitStatements(s.Draft)
	bindings := make(map[string]Value)
	bindEnv := &sheetApplyEnv{inner: env, bindings: bindings, fallback: lookupEnv}

	for lineNo, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, expr, ok := splitAssignment(line)
		if !ok {
			return nil, fmt.Errorf("pycellsheet: sheet script line %d: expected `name = expr`", lineNo+1)
		}
		prog, err := script.Parse(expr)
		if err != nil {
			return nil, fmt.Errorf("pycellsheet: sheet script line %d: %w", lineNo+1, err)
		}
		raw, err := script.Eval(prog, bindEnv)
		if err != nil {
			return nil, fmt.Errorf("pycellsheet: sheet script line %d: %w", lineNo+1, err)
		}
		v, ok := raw.(Value)
		if !ok {
			return nil, fmt.Errorf("pycellsheet: sheet script line %d: not a spreadsheet value", lineNo+1)
		}
		bindings[name] = v
	}

	copyable := make(map[string]Value, len(bindings))
	uncopyable := make(map[string]Value)
	var warnings []Warning
	for name, v := range bindings {
		cloned, w := DeepClone(v)
		warnings = append(warnings, w...)
		if _, demoted := cloned.(*OpaqueValue); demoted {
			uncopyable[name] = cloned
		} else {
			copyable[name] = cloned
		}
	}

	s.Copyable = copyable
	s.Uncopyable = uncopyable
	s.Applied = s.Draft
	return warnings, nil
}

// splitStatements splits sheet-script source on newlines and semicolons.
func splitStatements(src string) []string {
	var out []string
	for _, byLine := range strings.Split(src, "\n") {
		out = append(out, strings.Split(byLine, ";")...)
	}
	return out
}

// splitAssignment splits `name = expr` on the first top-level `=`,
// rejecting `==` so comparisons inside expr are not mistaken for the
// statement's own assignment operator.
func splitAssignment(line string) (name, expr string, ok bool) {
	for i := 0; i < len(line); i++ {
		if line[i] != '=' {
			continue
		}
		if i+1 < len(line) && line[i+1] == '=' {
			i++
			continue
		}
		if i > 0 && (line[i-1] == '=' || line[i-1] == '!' || line[i-1] == '<' || line[i-1] == '>') {
			continue
		}
		name = strings.TrimSpace(line[:i])
		expr = strings.TrimSpace(line[i+1:])
		if !isIdentText(name) {
			return "", "", false
		}
		return name, expr, true
	}
	return "", "", false
}

// sheetApplyEnv wraps the evaluator's normal script.Env, resolving
// names against bindings already produced earlier in the same
// ApplyScript pass before falling back to the sheet's own accumulated
// globals and finally to the inner Env (cell accessors).
type sheetApplyEnv struct {
	inner    script.Env
	bindings map[string]Value
	fallback func(name string) (Value, bool)
}

func (e *sheetApplyEnv) Lookup(name string) (any, error) {
	if v, ok := e.bindings[name]; ok {
		return v, nil
	}
	if e.fallback != nil {
		if v, ok := e.fallback(name); ok {
			return v, nil
		}
	}
	return e.inner.Lookup(name)
}

func (e *sheetApplyEnv) Number(text string) (any, error)    { return e.inner.Number(text) }
func (e *sheetApplyEnv) String(s string) any                { return e.inner.String(s) }
func (e *sheetApplyEnv) Bool(b bool) any                     { return e.inner.Bool(b) }
func (e *sheetApplyEnv) None() any                            { return e.inner.None() }
func (e *sheetApplyEnv) List(items []any) any                 { return e.inner.List(items) }
func (e *sheetApplyEnv) Truthy(v any) bool                    { return e.inner.Truthy(v) }
func (e *sheetApplyEnv) BinaryOp(op string, l, r any) (any, error) {
	return e.inner.BinaryOp(op, l, r)
}
func (e *sheetApplyEnv) UnaryOp(op string, v any) (any, error) { return e.inner.UnaryOp(op, v) }
func (e *sheetApplyEnv) Call(name string, args []any, kwargs map[string]any) (any, error) {
	return e.inner.Call(name, args, kwargs)
}
func (e *sheetApplyEnv) Attr(recv any, name string) (any, error) {
	return e.inner.Attr(recv, name)
}
func (e *sheetApplyEnv) MethodCall(recv any, name string, args []any, kwargs map[string]any) (any, error) {
	return e.inner.MethodCall(recv, name, args, kwargs)
}
func (e *sheetApplyEnv) Index(recv any, index any) (any, error) { return e.inner.Index(recv, index) }
