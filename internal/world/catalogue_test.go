package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnableExitsOnlyBranchA(t *testing.T) {
	_, cat, err := twoExitRoom.Build()
	require.NoError(t, err)

	require.NoError(t, cat.EnableExits(ExitsOf(BranchA)))
	assert.Equal(t, cat.Get(DestExitA), cat.Get(DestExit))
	assert.True(t, cat.IsEnabledExit(C(2, 0)))
	assert.False(t, cat.IsEnabledExit(C(3, 0)))
	assert.Equal(t, ExitsOf(BranchA), cat.Enabled())

	require.NoError(t, cat.EnableExits(AllExits))
	assert.ElementsMatch(t, []Coord{C(2, 0), C(3, 0)}, cat.Get(DestExit))
}

func TestEnableExitsEmpty(t *testing.T) {
	_, cat, err := twoExitRoom.Build()
	require.NoError(t, err)

	err = cat.EnableExits(ExitsOf(BranchC))
	assert.ErrorIs(t, err, ErrConfig)
	err = cat.EnableExits(0)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestExitSetNames(t *testing.T) {
	want := []string{
		"Only ExitA", "Only ExitB", "Only ExitC",
		"ExitA or ExitB", "ExitB or ExitC", "ExitA or ExitC",
		"Any Exit",
	}
	for i, combo := range ExitCombinations {
		assert.Equal(t, want[i], combo.String())
		parsed, err := ParseExitSet(want[i])
		require.NoError(t, err)
		assert.Equal(t, combo, parsed)
	}
}

func TestParseExitSetLetters(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want ExitSet
	}{
		{"A", ExitsOf(BranchA)},
		{"a, c", ExitsOf(BranchA, BranchC)},
		{"ExitB,ExitC", ExitsOf(BranchB, BranchC)},
		{"any exit", AllExits},
	} {
		got, err := ParseExitSet(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := ParseExitSet("D")
	assert.ErrorIs(t, err, ErrConfig)
}
