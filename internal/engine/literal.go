package engine

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ClassifyText implements the Expression Parser (spec.md §4.3): the
// step that runs before the Reference Parser and decides whether raw
// cell text is a literal value (no dependencies, no code execution) or
// tagged code bound for Rewrite/script.Eval. isCode reports which case
// applies; when isCode is false, lit is the literal value and code is
// unused, and vice versa.
func ClassifyText(raw string, mode ParserMode) (lit Value, code string, isCode bool) {
	switch mode {
	case PurePythonic:
		return nil, raw, true

	case Mixed:
		if strings.HasPrefix(raw, "'") {
			return NewString(raw[1:]), "", false
		}
		return nil, raw, true

	case ReverseMixed:
		if strings.HasPrefix(raw, ">") {
			return nil, raw[1:], true
		}
		if strings.HasPrefix(raw, "'") {
			return NewString(raw[1:]), "", false
		}
		return NewString(raw), "", false

	case PureSpreadsheet:
		if strings.HasPrefix(raw, "=") {
			return nil, raw[1:], true
		}
		if d, err := decimal.NewFromString(raw); err == nil {
			return NewNumber(d), "", false
		}
		s := strings.TrimPrefix(raw, "'")
		return NewString(s), "", false

	default:
		return nil, raw, true
	}
}
