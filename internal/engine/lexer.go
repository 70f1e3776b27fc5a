package engine

import "strings"

// RefTokenType classifies a span of raw cell script text for the
// reference parser (§4.4), adapted from the teacher lexer.go's
// TokenType enum and charXxx rune-constant idiom, narrowed to just the
// classes the rewrite pass needs to distinguish.
type RefTokenType int

const (
	RefTokenText RefTokenType = iota // anything not rewritten
	RefTokenString                   // a quoted string literal, opaque
	RefTokenComment                  // a // or # line comment, opaque
	RefTokenCellRef                  // e.g. A1
	RefTokenRangeRef                 // e.g. A1:B2
	RefTokenSheetRef                  // e.g. Name! or 'Name with space'!
	RefTokenDotIdent                 // .identifier, never rewritten
)

// RefToken is one classified span of the source, with rune offsets.
type RefToken struct {
	Type  RefTokenType
	Start int
	End   int
	Text  string
}

const (
	charNull       = 0
	charQuote      = '"'
	charApostrophe = '\''
	charColon      = ':'
	charExclaim    = '!'
	charPeriod     = '.'
)

// scanRefTokens walks src and produces a flat token stream. Every byte
// of src belongs to exactly one token; concatenating Text fields
// reproduces src exactly, which is what lets Rewrite splice replacement
// text in without re-deriving the untouched spans.
func scanRefTokens(src string) []RefToken {
	runes := []rune(src)
	var out []RefToken
	i := 0
	n := len(runes)

	for i < n {
		r := runes[i]
		switch {
		case r == charQuote || r == charApostrophe:
			start := i
			quote := r
			i++
			for i < n && runes[i] != quote {
				if runes[i] == '\\' && i+1 < n {
					i++
				}
				i++
			}
			if i < n {
				i++ // closing quote
			}
			text := string(runes[start:i])
			if quote == charApostrophe && i < n && runes[i] == charExclaim {
				i++
				out = append(out, RefToken{Type: RefTokenSheetRef, Start: start, End: i, Text: string(runes[start:i])})
				continue
			}
			out = append(out, RefToken{Type: RefTokenString, Start: start, End: i, Text: text})

		case r == '/' && i+1 < n && runes[i+1] == '/':
			start := i
			for i < n && runes[i] != '\n' {
				i++
			}
			out = append(out, RefToken{Type: RefTokenComment, Start: start, End: i, Text: string(runes[start:i])})

		case r == '#':
			start := i
			for i < n && runes[i] != '\n' {
				i++
			}
			out = append(out, RefToken{Type: RefTokenComment, Start: start, End: i, Text: string(runes[start:i])})

		case r == charPeriod && i+1 < n && isLetter(byte(runes[i+1])):
			start := i
			i++
			for i < n && isIdentRune(runes[i]) {
				i++
			}
			out = append(out, RefToken{Type: RefTokenDotIdent, Start: start, End: i, Text: string(runes[start:i])})

		case isLetter(byte(r)) || r == '_':
			start := i
			for i < n && isIdentRune(runes[i]) {
				i++
			}
			word := string(runes[start:i])
			if i < n && runes[i] == charExclaim {
				i++
				out = append(out, RefToken{Type: RefTokenSheetRef, Start: start, End: i, Text: string(runes[start:i])})
				continue
			}
			if IsCellLabel(word) {
				rangeEnd := i
				if i < n && runes[i] == charColon {
					j := i + 1
					k := j
					for k < n && isIdentRune(runes[k]) {
						k++
					}
					if IsCellLabel(string(runes[j:k])) {
						rangeEnd = k
					}
				}
				if rangeEnd > i {
					out = append(out, RefToken{Type: RefTokenRangeRef, Start: start, End: rangeEnd, Text: string(runes[start:rangeEnd])})
					i = rangeEnd
					continue
				}
				out = append(out, RefToken{Type: RefTokenCellRef, Start: start, End: i, Text: word})
				continue
			}
			out = append(out, RefToken{Type: RefTokenText, Start: start, End: i, Text: word})

		default:
			start := i
			i++
			out = append(out, RefToken{Type: RefTokenText, Start: start, End: i, Text: string(r)})
		}
	}
	return out
}

func isIdentRune(r rune) bool {
	return isLetter(byte(r)) || (r >= '0' && r <= '9') || r == '_'
}

// joinText concatenates a run of tokens' raw text, used by callers that
// need to re-emit untouched spans verbatim.
func joinText(toks []RefToken) string {
	var sb strings.Builder
	for _, t := range toks {
		sb.WriteString(t.Text)
	}
	return sb.String()
}
