package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabelOfRoundTripsThroughCoordOf(t *testing.T) {
	cases := []struct {
		label    string
		row, col uint32
	}{
		{"A1", 0, 0},
		{"Z1", 0, 25},
		{"AA1", 0, 26},
		{"AZ1", 0, 51},
		{"BA1", 0, 52},
		{"A27", 26, 0},
		{"aa27", 26, 26},
	}
	for _, c := range cases {
		row, col, err := CoordOf(c.label)
		require.NoError(t, err, c.label)
		assert.Equal(t, c.row, row, c.label)
		assert.Equal(t, c.col, col, c.label)
	}
}

func TestLabelOfProducesBijectiveColumns(t *testing.T) {
	assert.Equal(t, "A1", LabelOf(0, 0))
	assert.Equal(t, "Z1", LabelOf(0, 25))
	assert.Equal(t, "AA1", LabelOf(0, 26))
	assert.Equal(t, "AZ1", LabelOf(0, 51))
	assert.Equal(t, "BA1", LabelOf(0, 52))
}

func TestCoordOfRejectsMalformedLabels(t *testing.T) {
	for _, bad := range []string{"", "1A", "A", "A0", "A-1", "1"} {
		_, _, err := CoordOf(bad)
		assert.Error(t, err, bad)
		var refErr *RefSyntaxError
		assert.ErrorAs(t, err, &refErr)
	}
}

func TestIsCellLabelAgreesWithCoordOf(t *testing.T) {
	assert.True(t, IsCellLabel("A1"))
	assert.False(t, IsCellLabel("not a label"))
}
