package engine

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeepCloneOfEmptyReturnsTheSameSingleton(t *testing.T) {
	cloned, warnings := DeepClone(Empty)
	assert.Same(t, Empty, cloned)
	assert.Empty(t, warnings)
}

func TestDeepCloneOfScalarProducesAnIndependentCopy(t *testing.T) {
	original := NewNumber(decimal.NewFromInt(42))
	cloned, warnings := DeepClone(original)
	require.Empty(t, warnings)

	clonedScalar, ok := cloned.(*ScalarValue)
	require.True(t, ok)
	assert.True(t, clonedScalar.Num.Equal(decimal.NewFromInt(42)))
	assert.NotSame(t, original, clonedScalar)
}

func TestDeepCloneOfListRecursesIntoEachElement(t *testing.T) {
	list := NewList([]Value{NewNumber(decimal.NewFromInt(1)), NewString("a")})
	cloned, warnings := DeepClone(list)
	require.Empty(t, warnings)

	clonedList := cloned.(*ScalarValue)
	require.Len(t, clonedList.List, 2)
	assert.NotSame(t, list.List[0], clonedList.List[0])
	assert.NotSame(t, list.List[1], clonedList.List[1])
}

func TestDeepCloneOfOpaqueSharesTheSamePointer(t *testing.T) {
	opaque := &OpaqueValue{Payload: make(chan int), TypeTag: "chan"}
	cloned, warnings := DeepClone(opaque)
	assert.Same(t, opaque, cloned)
	assert.Empty(t, warnings)
}

func TestProbeCopyableDemotesAnUncopyableValue(t *testing.T) {
	_, ok := probeCopyable(make(chan int))
	assert.False(t, ok)

	cp, ok := probeCopyable(42)
	assert.True(t, ok)
	assert.Equal(t, 42, cp)
}

func TestDisplayStringRendersEachValueKind(t *testing.T) {
	assert.Equal(t, "", DisplayString(Empty))
	assert.Equal(t, "3", DisplayString(NewNumber(decimal.NewFromInt(3))))
	assert.Equal(t, "hi", DisplayString(NewString("hi")))
	assert.Equal(t, "TRUE", DisplayString(NewBool(true)))
	assert.Equal(t, "#DIV/0!", DisplayString(NewErrorValue(ErrKindDiv0, "division by zero")))
}
