package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func owner() CellAddress { return CellAddress{Sheet: 1, Row: 1, Col: 1} }

// Property 9 (parser non-leakage): a bare cell label inside a string
// literal is never rewritten into an accessor call.
func TestRewriteLeavesCellLabelsInsideStringLiteralsAlone(t *testing.T) {
	out, err := Rewrite(`"A1 and B2 are just words here" + A1`, owner(), ReverseMixed, nil)
	require.NoError(t, err)
	assert.Contains(t, out, `"A1 and B2 are just words here"`)
	assert.Contains(t, out, `C("A1")`)
}

// Property 9 continued: a bare cell label inside a line comment is
// never rewritten either.
func TestRewriteLeavesCellLabelsInsideCommentsAlone(t *testing.T) {
	out, err := Rewrite("A1 + 1 # uses A1 and B2", owner(), ReverseMixed, nil)
	require.NoError(t, err)
	assert.Contains(t, out, `C("A1")`)
	assert.Contains(t, out, "# uses A1 and B2")
}

func TestRewriteTranslatesACellRangeIntoAnRCall(t *testing.T) {
	out, err := Rewrite("A1:B2", owner(), ReverseMixed, nil)
	require.NoError(t, err)
	assert.Equal(t, `R("A1","B2")`, out)
}

func TestRewriteTranslatesASheetQualifiedCellIntoShC(t *testing.T) {
	out, err := Rewrite("Other!A1", owner(), ReverseMixed, nil)
	require.NoError(t, err)
	assert.Equal(t, `Sh("Other").C("A1")`, out)
}

func TestRewriteResolvesABareNamedRangeThroughG(t *testing.T) {
	isNamed := func(name string) bool { return name == "Total" }
	out, err := Rewrite("Total + 1", owner(), ReverseMixed, isNamed)
	require.NoError(t, err)
	assert.Contains(t, out, `G("Total")`)
}

func TestRewriteLeavesPurePythonicCodeUntouched(t *testing.T) {
	out, err := Rewrite(`C("A1") + 1`, owner(), PurePythonic, nil)
	require.NoError(t, err)
	assert.Equal(t, `C("A1") + 1`, out)
}

func TestRewriteTranslatesAmpersandConcatToPlusInPureSpreadsheet(t *testing.T) {
	out, err := Rewrite(`A1&"x"`, owner(), PureSpreadsheet, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "+")
	assert.NotContains(t, out, "&")
}
