package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkbook(t *testing.T, mode ParserMode) *Workbook {
	t.Helper()
	return NewWorkbook(mode, nil, nil)
}

func numberOf(t *testing.T, v Value) string {
	t.Helper()
	return DisplayString(v)
}

// S1: a three-cell dependency chain evaluates bottom-up.
func TestChainOfDependentCellsEvaluatesInOrder(t *testing.T) {
	wb := newTestWorkbook(t, ReverseMixed)
	require.NoError(t, wb.Set("Sheet1", "A1", ">1+1"))
	require.NoError(t, wb.Set("Sheet1", "A2", `>C("A1")+1`))
	require.NoError(t, wb.Set("Sheet1", "A3", `>C("A2")+1`))

	a1, err := wb.Get("Sheet1", "A1")
	require.NoError(t, err)
	a2, err := wb.Get("Sheet1", "A2")
	require.NoError(t, err)
	a3, err := wb.Get("Sheet1", "A3")
	require.NoError(t, err)

	assert.Equal(t, "2", numberOf(t, a1))
	assert.Equal(t, "3", numberOf(t, a2))
	assert.Equal(t, "4", numberOf(t, a3))
}

// S2: editing the root of a chain invalidates every transitive dependent.
func TestEditingARootCellInvalidatesItsDependents(t *testing.T) {
	wb := newTestWorkbook(t, ReverseMixed)
	require.NoError(t, wb.Set("Sheet1", "A1", ">1+1"))
	require.NoError(t, wb.Set("Sheet1", "A2", `>C("A1")+1`))
	require.NoError(t, wb.Set("Sheet1", "A3", `>C("A2")+1`))

	require.NoError(t, wb.Set("Sheet1", "A1", ">10"))

	a3, err := wb.Get("Sheet1", "A3")
	require.NoError(t, err)
	assert.Equal(t, "12", numberOf(t, a3))
}

// S3: a two-cell mutual reference resolves to a sticky circular-reference error.
func TestMutualCellReferencesProduceACircularError(t *testing.T) {
	wb := newTestWorkbook(t, ReverseMixed)
	require.NoError(t, wb.Set("Sheet1", "A1", `>C("A2")+1`))
	require.NoError(t, wb.Set("Sheet1", "A2", `>C("A1")+1`))

	a1, err := wb.Get("Sheet1", "A1")
	require.NoError(t, err)
	ev, ok := a1.(*ErrorValue)
	require.True(t, ok, "expected an ErrorValue, got %T", a1)
	assert.Equal(t, ErrKindCircular, ev.Kind)

	a2, err := wb.Get("Sheet1", "A2")
	require.NoError(t, err)
	ev2, ok := a2.(*ErrorValue)
	require.True(t, ok, "expected an ErrorValue, got %T", a2)
	assert.Equal(t, ErrKindCircular, ev2.Kind)
}

// S4: a sheet-level list global is deep-cloned per read, so a cell's
// in-place .sort() never mutates the global other cells see.
func TestSheetScriptListGlobalIsIsolatedFromCellMutation(t *testing.T) {
	wb := newTestWorkbook(t, ReverseMixed)
	require.NoError(t, wb.SetSheetDraft("Sheet1", "L = [3, 1, 2]"))
	_, err := wb.ApplySheetScript("Sheet1")
	require.NoError(t, err)

	require.NoError(t, wb.Set("Sheet1", "A1", `>G("L").sort() or G("L")`))

	a1, err := wb.Get("Sheet1", "A1")
	require.NoError(t, err)
	list, ok := a1.(*ScalarValue)
	require.True(t, ok, "expected a ScalarValue list, got %T", a1)
	require.Equal(t, ScalarList, list.Kind)
	require.Len(t, list.List, 3)
	assert.Equal(t, "1", DisplayString(list.List[0]))
	assert.Equal(t, "2", DisplayString(list.List[1]))
	assert.Equal(t, "3", DisplayString(list.List[2]))

	fresh, ok := wb.sheets()[1].Copyable["L"]
	require.True(t, ok)
	freshList := fresh.(*ScalarValue)
	assert.Equal(t, "3", DisplayString(freshList.List[0]))
	assert.Equal(t, "1", DisplayString(freshList.List[1]))
	assert.Equal(t, "2", DisplayString(freshList.List[2]))
}

// S5: SpillOutput fans a producer's value across a rectangle of empty
// neighbors, and giving a neighbor real text raises a spill conflict.
func TestSpillOutputFansAcrossEmptyNeighborsAndConflictsOnOverwrite(t *testing.T) {
	wb := newTestWorkbook(t, ReverseMixed)
	require.NoError(t, wb.Set("Sheet1", "B2", `>SpillOutput(cells=[1,2,3,4], width=2, height=2)`))

	b2, err := wb.Get("Sheet1", "B2")
	require.NoError(t, err)
	c2, err := wb.Get("Sheet1", "C2")
	require.NoError(t, err)
	b3, err := wb.Get("Sheet1", "B3")
	require.NoError(t, err)
	c3, err := wb.Get("Sheet1", "C3")
	require.NoError(t, err)

	assert.Equal(t, "1", numberOf(t, b2))
	assert.Equal(t, "2", numberOf(t, c2))
	assert.Equal(t, "3", numberOf(t, b3))
	assert.Equal(t, "4", numberOf(t, c3))

	require.NoError(t, wb.Set("Sheet1", "C3", ">99"))

	b2Again, err := wb.Get("Sheet1", "B2")
	require.NoError(t, err)
	ev, ok := b2Again.(*ErrorValue)
	require.True(t, ok, "expected B2 to become a spill conflict error, got %T", b2Again)
	assert.Equal(t, ErrKindSpill, ev.Kind)

	c3Again, err := wb.Get("Sheet1", "C3")
	require.NoError(t, err)
	assert.Equal(t, "99", numberOf(t, c3Again))
}

// S6: referencing an empty cell in arithmetic treats it as zero.
func TestArithmeticOnAnEmptyCellTreatsItAsZero(t *testing.T) {
	wb := newTestWorkbook(t, ReverseMixed)
	require.NoError(t, wb.Set("Sheet1", "A2", `>C("A1")+5`))

	a2, err := wb.Get("Sheet1", "A2")
	require.NoError(t, err)
	assert.Equal(t, "5", numberOf(t, a2))
}

func TestCrossSheetReferenceReadsFromTheNamedSheet(t *testing.T) {
	wb := newTestWorkbook(t, ReverseMixed)
	_, err := wb.AddWorksheet("Other")
	require.NoError(t, err)

	require.NoError(t, wb.Set("Other", "A1", ">7"))
	require.NoError(t, wb.Set("Sheet1", "A1", `>Other!A1+1`))

	v, err := wb.Get("Sheet1", "A1")
	require.NoError(t, err)
	assert.Equal(t, "8", numberOf(t, v))
}

func TestRemovingACellClearsItAndDirtiesItsDependents(t *testing.T) {
	wb := newTestWorkbook(t, ReverseMixed)
	require.NoError(t, wb.Set("Sheet1", "A1", ">5"))
	require.NoError(t, wb.Set("Sheet1", "A2", `>C("A1")+1`))

	require.NoError(t, wb.Remove("Sheet1", "A1"))

	a2, err := wb.Get("Sheet1", "A2")
	require.NoError(t, err)
	assert.Equal(t, "1", numberOf(t, a2))
}

func TestNamedRangeResolvesToItsBoundCell(t *testing.T) {
	wb := newTestWorkbook(t, ReverseMixed)
	require.NoError(t, wb.Set("Sheet1", "A1", ">42"))
	require.NoError(t, wb.DefineNamedRange("Sheet1", "Answer", "A1", ""))

	require.NoError(t, wb.Set("Sheet1", "A2", `>G("Answer")+1`))
	a2, err := wb.Get("Sheet1", "A2")
	require.NoError(t, err)
	assert.Equal(t, "43", numberOf(t, a2))
}
