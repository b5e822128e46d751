package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/talgya/evacsim/internal/world"
)

func TestDensitySpeed(t *testing.T) {
	for _, tc := range []struct {
		base      float64
		neighbors int
		want      float64
	}{
		{0.9, 0, 0.9},
		{0.9, 1, 0.9},
		{0.9, 2, 0.5}, // ceil(0.45*10)/10
		{0.9, 3, 0.3},
		{0.6, 2, 0.3},
		{1.3, 3, 0.5},
		{2.6, 7, 0.4},
		{2.6, 8, 1.0},
		{0.9, 20, 1.0},
	} {
		assert.InDelta(t, tc.want, DensitySpeed(tc.base, tc.neighbors, 8), 1e-9,
			"base=%v neighbors=%d", tc.base, tc.neighbors)
	}
}

func TestDensitySpeedMonotone(t *testing.T) {
	for _, g := range []Gender{GenderMale, GenderFemale} {
		for _, mode := range []MovementMode{Walking, Running} {
			base := BaseSpeed(g, mode)
			prev := DensitySpeed(base, 0, 8)
			assert.Equal(t, base, prev)
			for n := 1; n < 8; n++ {
				cur := DensitySpeed(base, n, 8)
				assert.LessOrEqual(t, cur, prev, "%s mode %d, %d neighbours", g, mode, n)
				assert.Greater(t, cur, 0.0)
				prev = cur
			}
		}
	}
}

func TestCurrentSpeed(t *testing.T) {
	g := world.NewGrid(5, 5)
	a := &Agent{ID: 1, Movement: MovementState{WalkingSpeed: 1.4, RunningSpeed: 2.6}}
	g.Place(a, world.C(2, 2))

	assert.Equal(t, 1.4, a.CurrentSpeed(g, 1, 8))
	a.Evacuate()
	assert.Equal(t, 2.6, a.CurrentSpeed(g, 1, 8))

	g.Place(&Agent{ID: 2}, world.C(1, 1))
	g.Place(&Agent{ID: 3}, world.C(3, 3))
	assert.InDelta(t, 1.3, a.CurrentSpeed(g, 1, 8), 1e-9)

	for i := 0; i < 6; i++ {
		g.Place(&Agent{ID: AgentID(10 + i)}, world.C(2, 2))
	}
	assert.Equal(t, 1.0, a.CurrentSpeed(g, 1, 8))
}
