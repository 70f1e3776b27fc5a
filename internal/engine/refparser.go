package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// ParserMode selects how cell script text is read, per spec.md §4.3.
// It is string-backed so it round-trips through koanf config and the
// file format's [parser_settings] section without a custom marshaler.
type ParserMode string

const (
	PurePythonic    ParserMode = "pure_pythonic"    // bare references already written as accessor calls
	Mixed           ParserMode = "mixed"            // Python expressions with bare spreadsheet references
	ReverseMixed    ParserMode = "reverse_mixed"     // text is a string literal unless prefixed with '>'
	PureSpreadsheet ParserMode = "pure_spreadsheet"  // classic "=A1+B2" formula syntax
)

// NameLookup reports whether name is a known named range, so the
// rewriter can tell a bare identifier that should become a G("X") call
// apart from an ordinary script variable left for the evaluator to
// resolve on its own.
type NameLookup func(name string) bool

// Rewrite rewrites bare spreadsheet references in code into explicit
// accessor calls. owner is not used; relative references are resolved
// at eval time, not rewrite time.
// Unrecognized bare identifiers are passed through unchanged so the
// script evaluator's normal identifier lookup handles them. code has
// already had its mode-specific literal/code prefix stripped by
// ClassifyText (spec.md §4.3) by the time it reaches here.
func Rewrite(code string, owner CellAddress, mode ParserMode, isNamedRange NameLookup) (string, error) {
	if mode == PureSpreadsheet {
		code = strings.ReplaceAll(code, "&", "+")
	}
	if mode == PurePythonic {
		return code, nil
	}

	toks := scanRefTokens(code)
	var sb strings.Builder
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch t.Type {
		case RefTokenString, RefTokenComment, RefTokenDotIdent:
			sb.WriteString(t.Text)

		case RefTokenSheetRef:
			name := strings.TrimSuffix(t.Text, "!")
			name = strings.TrimSuffix(strings.TrimPrefix(name, "'"), "'")
			if i+1 < len(toks) && toks[i+1].Type == RefTokenCellRef {
				sb.WriteString(fmt.Sprintf("Sh(%s).C(%s)", quoteGo(name), quoteGo(toks[i+1].Text)))
				i++
			} else if i+1 < len(toks) && toks[i+1].Type == RefTokenRangeRef {
				from, to, err := splitRange(toks[i+1].Text)
				if err != nil {
					return "", err
				}
				sb.WriteString(fmt.Sprintf("Sh(%s).R(%s,%s)", quoteGo(name), quoteGo(from), quoteGo(to)))
				i++
			} else if i+1 < len(toks) && toks[i+1].Type == RefTokenText && isIdentText(toks[i+1].Text) {
				sb.WriteString(fmt.Sprintf("Sh(%s).G(%s)", quoteGo(name), quoteGo(toks[i+1].Text)))
				i++
			} else {
				return "", &RefSyntaxError{Label: t.Text, Cause: "sheet reference not followed by a cell, range, or name"}
			}

		case RefTokenCellRef:
			sb.WriteString(fmt.Sprintf("C(%s)", quoteGo(t.Text)))

		case RefTokenRangeRef:
			from, to, err := splitRange(t.Text)
			if err != nil {
				return "", err
			}
			sb.WriteString(fmt.Sprintf("R(%s,%s)", quoteGo(from), quoteGo(to)))

		case RefTokenText:
			if isNamedRange != nil && isIdentText(t.Text) && isNamedRange(t.Text) {
				sb.WriteString(fmt.Sprintf("G(%s)", quoteGo(t.Text)))
			} else {
				sb.WriteString(t.Text)
			}

		default:
			sb.WriteString(t.Text)
		}
	}
	return sb.String(), nil
}

func splitRange(text string) (from, to string, err error) {
	parts := strings.SplitN(text, ":", 2)
	if len(parts) != 2 {
		return "", "", &RefSyntaxError{Label: text, Cause: "malformed range"}
	}
	return parts[0], parts[1], nil
}

func isIdentText(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if i == 0 && !(isLetter(byte(r)) || r == '_') {
			return false
		}
		if i > 0 && !(isLetter(byte(r)) || r == '_' || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

func quoteGo(s string) string {
	return strconv.Quote(s)
}
