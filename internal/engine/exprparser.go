package engine

import "github.com/EuphoricCatface/pycellsheet/internal/engine/script"

// ParseCellScript rewrites bare spreadsheet references in raw cell text
// per mode (spec.md §4.3) and parses the result as a script.Program,
// ready for script.Eval against an Evaluator-backed script.Env.
func ParseCellScript(raw string, owner CellAddress, mode ParserMode, isNamedRange NameLookup) (*script.Program, error) {
	rewritten, err := Rewrite(raw, owner, mode, isNamedRange)
	if err != nil {
		return nil, err
	}
	prog, err := script.Parse(rewritten)
	if err != nil {
		return nil, newError(ErrKindValue, err.Error())
	}
	return prog, nil
}
